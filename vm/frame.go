package vm

// Frame is a single call's execution context (spec.md §3.2): an
// operand stack, grow-on-write local slots, a byte cursor into the
// frame's bytecode, and a borrowed handle to that bytecode. Mirrors
// the teacher's fixed register file generalized to an indexed,
// grow-on-demand slot list.
type Frame struct {
	stack  []Value
	locals []Value
	cursor int
	code   []byte
}

// NewFrame constructs a frame from a Function, initialising local slot
// 0 to List(f.module) per spec.md §3.2.
func NewFrame(fn *Function) *Frame {
	return &Frame{
		stack:  nil,
		locals: []Value{fn.Module},
		cursor: 0,
		code:   fn.Bytecode,
	}
}

// Cursor and SetCursor expose the instruction cursor to the host
// driver, which rebases it on a Jump directive.
func (f *Frame) Cursor() int       { return f.cursor }
func (f *Frame) SetCursor(c int)   { f.cursor = c }
func (f *Frame) Bytecode() []byte  { return f.code }

// Push appends a value to the operand stack.
func (f *Frame) Push(v Value) { f.stack = append(f.stack, v) }

// Pop removes and returns the top of the operand stack. The vacated
// slot is zeroed: the backing array stays live beneath len for as long
// as the stack grows, so a stale Value left there would hold its heap
// cell (List, Bytes, ...) reachable long after the pop — exactly the
// kind of phantom strong reference that would make LIST_UPGRADE's
// "freed" case impossible to observe.
func (f *Frame) Pop() (Value, error) {
	n := len(f.stack)
	if n == 0 {
		return None, StackEmptyError{}
	}
	v := f.stack[n-1]
	f.stack[n-1] = Value{}
	f.stack = f.stack[:n-1]
	return v, nil
}

// Load reads local slot i. A slot at or beyond the current length was
// never assigned and is a FrameReadError, per spec.md §4.C.
func (f *Frame) Load(i uint8) (Value, error) {
	if int(i) >= len(f.locals) {
		return None, FrameReadError{Index: i}
	}
	return f.locals[i], nil
}

// Store writes local slot i, growing and None-filling as needed.
func (f *Frame) Store(i uint8, v Value) {
	f.growTo(int(i) + 1)
	f.locals[i] = v
}

// Swap exchanges slot i with v, returning the slot's previous value.
// Grows as needed, matching Store.
func (f *Frame) Swap(i uint8, v Value) Value {
	f.growTo(int(i) + 1)
	old := f.locals[i]
	f.locals[i] = v
	return old
}

func (f *Frame) growTo(n int) {
	if n <= len(f.locals) {
		return
	}
	grown := make([]Value, n)
	copy(grown, f.locals)
	for i := len(f.locals); i < n; i++ {
		grown[i] = None
	}
	f.locals = grown
}
