package vm

import (
	"encoding/binary"
	"math"
)

// DirectiveKind distinguishes the five directives a Step can return
// (spec.md §4.F).
type DirectiveKind int

const (
	DirNone DirectiveKind = iota
	DirJump
	DirCall
	DirCallNative
	DirReturn
)

// Directive is the host action Step requests. Only the fields
// relevant to Kind are populated.
type Directive struct {
	Kind DirectiveKind

	JumpDelta int32

	CallFn   Value // TypeFunction
	CallArgs []Value

	NativeFn   Value // TypeNativeFn
	NativeArgs []Value

	ReturnValue Value
}

var directiveNone = Directive{Kind: DirNone}

// Step decodes one instruction at the frame's cursor, mutates the
// frame, and returns a directive (spec.md §4.F). The cursor is always
// advanced past the instruction's bytes before returning, including
// on a failing jump predicate or a type error raised mid-instruction;
// the sole exception is a truncated/unknown instruction, where the
// cursor is left untouched and BytecodeReadError is returned.
func Step(f *Frame) (Directive, error) {
	code := f.Bytecode()
	at := f.Cursor()
	if at >= len(code) {
		return Directive{}, BytecodeReadError{At: at}
	}

	op := Bytecode(code[at])
	size := op.OperandSize()
	if size < 0 || at+1+size > len(code) {
		return Directive{}, BytecodeReadError{At: at}
	}
	operand := code[at+1 : at+1+size]
	f.SetCursor(at + 1 + size)

	switch op {
	case NONE:
		return directiveNone, nil

	case ADD, SUB, MUL, DIV, REM:
		return directiveNone, execArith(f, op)
	case NEG:
		return directiveNone, execNeg(f)
	case SHL, SHR, AND, OR, XOR:
		return directiveNone, execBitwise(f, op)
	case NOT:
		return directiveNone, execNot(f)
	case INT_TO_REAL:
		return directiveNone, execIntToReal(f)
	case REAL_TO_INT:
		return directiveNone, execRealToInt(f)

	case CMP:
		return directiveNone, execCmp(f)

	case CALL:
		return execCall(f, operand[0])
	case RETURN:
		return execReturn(f)
	case JUMP:
		delta := int32(binary.BigEndian.Uint32(operand))
		return Directive{Kind: DirJump, JumpDelta: delta}, nil
	case JUMP_ZERO:
		return execJumpZero(f, operand)
	case JUMP_NEG:
		return execJumpNeg(f, operand)

	case LIT_NONE:
		f.Push(None)
		return directiveNone, nil
	case LIT_TRUE:
		f.Push(Bool(true))
		return directiveNone, nil
	case LIT_FALSE:
		f.Push(Bool(false))
		return directiveNone, nil
	case LIT_INT:
		f.Push(Integer(int64(binary.BigEndian.Uint64(operand))))
		return directiveNone, nil
	case LIT_REAL:
		f.Push(Real(math.Float64frombits(binary.BigEndian.Uint64(operand))))
		return directiveNone, nil

	case FRM_LOAD:
		v, err := f.Load(operand[0])
		if err != nil {
			return Directive{}, err
		}
		f.Push(v)
		return directiveNone, nil
	case FRM_STORE:
		v, err := f.Pop()
		if err != nil {
			return Directive{}, err
		}
		f.Store(operand[0], v)
		return directiveNone, nil
	case FRM_SWAP:
		v, err := f.Pop()
		if err != nil {
			return Directive{}, err
		}
		f.Push(f.Swap(operand[0], v))
		return directiveNone, nil
	case FRM_COPY:
		v, err := f.Pop()
		if err != nil {
			return Directive{}, err
		}
		f.Push(v)
		f.Push(v)
		return directiveNone, nil
	case FRM_POP:
		_, err := f.Pop()
		return directiveNone, err

	case LIST_CREATE:
		f.Push(NewList(nil))
		return directiveNone, nil
	case LIST_PUSH:
		return directiveNone, execListPush(f)
	case LIST_POP:
		return directiveNone, execListPop(f)
	case LIST_DOWNGRADE:
		return directiveNone, execListDowngrade(f)
	case LIST_UPGRADE:
		return directiveNone, execListUpgrade(f)

	case BYTES_CREATE:
		f.Push(NewBytesBuffer(nil))
		return directiveNone, nil

	case STR_CREATE:
		return directiveNone, execStrCreate(f)
	case STR_CHAR_AT:
		return directiveNone, execStrCharAt(f)
	case STR_CHARS:
		return directiveNone, execStrChars(f)

	case SEQ_GET:
		return directiveNone, execSeqGet(f)
	case SEQ_SET:
		return directiveNone, execSeqSet(f)
	case SEQ_GET_SLICE:
		return directiveNone, execSeqGetSlice(f)
	case SEQ_SET_SLICE:
		return directiveNone, execSeqSetSlice(f)
	case SEQ_APPEND:
		return directiveNone, execSeqAppend(f)
	case SEQ_LEN:
		return directiveNone, execSeqLen(f)
	case SEQ_RESIZE:
		return directiveNone, execSeqResize(f)

	default:
		return Directive{}, BytecodeReadError{At: at}
	}
}

// --- arithmetic & bitwise -------------------------------------------------

func execArith(f *Frame, op Bytecode) error {
	b, err := f.Pop()
	if err != nil {
		return err
	}
	a, err := f.Pop()
	if err != nil {
		return err
	}

	switch {
	case a.Type() == TypeInteger && b.Type() == TypeInteger:
		x, y := a.AsInteger(), b.AsInteger()
		switch op {
		case ADD:
			f.Push(Integer(x + y))
		case SUB:
			f.Push(Integer(x - y))
		case MUL:
			f.Push(Integer(x * y))
		case DIV:
			if y == 0 {
				return DivByZeroError{}
			}
			f.Push(Integer(x / y))
		case REM:
			if y == 0 {
				return DivByZeroError{}
			}
			f.Push(Integer(x % y))
		}
		return nil
	case a.Type() == TypeReal && b.Type() == TypeReal:
		x, y := a.AsReal(), b.AsReal()
		switch op {
		case ADD:
			f.Push(Real(x + y))
		case SUB:
			f.Push(Real(x - y))
		case MUL:
			f.Push(Real(x * y))
		case DIV:
			f.Push(Real(x / y))
		case REM:
			f.Push(Real(math.Mod(x, y)))
		}
		return nil
	default:
		if a.Type() != TypeInteger && a.Type() != TypeReal {
			return TypeError{Actual: a.Type(), Position: 1}
		}
		return TypeError{Actual: b.Type(), Position: 0}
	}
}

func execNeg(f *Frame) error {
	a, err := f.Pop()
	if err != nil {
		return err
	}
	switch a.Type() {
	case TypeInteger:
		f.Push(Integer(-a.AsInteger()))
	case TypeReal:
		f.Push(Real(-a.AsReal()))
	default:
		return TypeError{Actual: a.Type(), Position: 0}
	}
	return nil
}

func execBitwise(f *Frame, op Bytecode) error {
	b, err := f.Pop()
	if err != nil {
		return err
	}
	a, err := f.Pop()
	if err != nil {
		return err
	}
	if a.Type() != TypeInteger {
		return TypeError{Actual: a.Type(), Position: 1}
	}
	if b.Type() != TypeInteger {
		return TypeError{Actual: b.Type(), Position: 0}
	}
	x, y := a.AsInteger(), b.AsInteger()
	switch op {
	case SHL:
		f.Push(Integer(x << uint(y)))
	case SHR:
		f.Push(Integer(x >> uint(y)))
	case AND:
		f.Push(Integer(x & y))
	case OR:
		f.Push(Integer(x | y))
	case XOR:
		f.Push(Integer(x ^ y))
	}
	return nil
}

func execNot(f *Frame) error {
	a, err := f.Pop()
	if err != nil {
		return err
	}
	if a.Type() != TypeInteger {
		return TypeError{Actual: a.Type(), Position: 0}
	}
	f.Push(Integer(^a.AsInteger()))
	return nil
}

func execIntToReal(f *Frame) error {
	a, err := f.Pop()
	if err != nil {
		return err
	}
	switch a.Type() {
	case TypeInteger:
		f.Push(Real(float64(a.AsInteger())))
	case TypeReal:
		f.Push(a)
	default:
		return TypeError{Actual: a.Type(), Position: 0}
	}
	return nil
}

func execRealToInt(f *Frame) error {
	a, err := f.Pop()
	if err != nil {
		return err
	}
	switch a.Type() {
	case TypeReal:
		f.Push(Integer(int64(math.Trunc(a.AsReal()))))
	case TypeInteger:
		f.Push(a)
	default:
		return TypeError{Actual: a.Type(), Position: 0}
	}
	return nil
}

// --- comparison ------------------------------------------------------------

func execCmp(f *Frame) error {
	b, err := f.Pop()
	if err != nil {
		return err
	}
	a, err := f.Pop()
	if err != nil {
		return err
	}
	switch Cmp(a, b) {
	case Less:
		f.Push(Integer(-1))
	case Equal:
		f.Push(Integer(0))
	case Greater:
		f.Push(Integer(1))
	default:
		f.Push(None)
	}
	return nil
}

// --- control flow ------------------------------------------------------------

// execCall follows the source VM's own pop order: the call target is
// popped first (it is the topmost operand), then the n arguments.
// Those n pops come off in (arg pushed-last .. arg pushed-first)
// order; the first one popped is — per spec.md §4.D — the *last*
// argument the callee sees, so the popped slice is reversed before
// being handed to the host as CallArgs/NativeArgs.
func execCall(f *Frame, n uint8) (Directive, error) {
	target, err := f.Pop()
	if err != nil {
		return Directive{}, err
	}

	popped := make([]Value, n)
	for i := 0; i < int(n); i++ {
		v, err := f.Pop()
		if err != nil {
			return Directive{}, err
		}
		popped[i] = v
	}
	args := make([]Value, n)
	for i, v := range popped {
		args[int(n)-1-i] = v
	}

	switch target.Type() {
	case TypeFunction:
		return Directive{Kind: DirCall, CallFn: target, CallArgs: args}, nil
	case TypeNativeFn:
		return Directive{Kind: DirCallNative, NativeFn: target, NativeArgs: args}, nil
	default:
		return Directive{}, TypeError{Actual: target.Type(), Position: 0}
	}
}

func execReturn(f *Frame) (Directive, error) {
	v, err := f.Pop()
	if err != nil {
		return Directive{}, err
	}
	return Directive{Kind: DirReturn, ReturnValue: v}, nil
}

func execJumpZero(f *Frame, operand []byte) (Directive, error) {
	x, err := f.Pop()
	if err != nil {
		return Directive{}, err
	}
	var zero bool
	switch x.Type() {
	case TypeBool:
		zero = !x.AsBool()
	case TypeInteger:
		zero = x.AsInteger() == 0
	case TypeReal:
		zero = x.AsReal() == 0
	default:
		return Directive{}, TypeError{Actual: x.Type(), Position: 0}
	}
	if !zero {
		return directiveNone, nil
	}
	delta := int32(binary.BigEndian.Uint32(operand))
	return Directive{Kind: DirJump, JumpDelta: delta}, nil
}

func execJumpNeg(f *Frame, operand []byte) (Directive, error) {
	x, err := f.Pop()
	if err != nil {
		return Directive{}, err
	}
	var neg bool
	switch x.Type() {
	case TypeInteger:
		neg = x.AsInteger() < 0
	case TypeReal:
		neg = x.AsReal() < 0
	case TypeNone:
		neg = true
	default:
		return Directive{}, TypeError{Actual: x.Type(), Position: 0}
	}
	if !neg {
		return directiveNone, nil
	}
	delta := int32(binary.BigEndian.Uint32(operand))
	return Directive{Kind: DirJump, JumpDelta: delta}, nil
}

// --- lists -------------------------------------------------------------

// execListPush is a pure side effect: it does not repush the list.
// Seeing its result again requires a second handle to the same list,
// e.g. via a preceding FRM_COPY.
func execListPush(f *Frame) error {
	v, err := f.Pop()
	if err != nil {
		return err
	}
	lst, err := f.Pop()
	if err != nil {
		return err
	}
	if lst.Type() != TypeList {
		return TypeError{Actual: lst.Type(), Position: 1}
	}
	lst.ListPush(v)
	return nil
}

func execListPop(f *Frame) error {
	lst, err := f.Pop()
	if err != nil {
		return err
	}
	if lst.Type() != TypeList {
		return TypeError{Actual: lst.Type(), Position: 0}
	}
	v, ok := lst.ListPop()
	if !ok {
		return IndexReadError{Index: 0}
	}
	f.Push(v)
	return nil
}

func execListDowngrade(f *Frame) error {
	lst, err := f.Pop()
	if err != nil {
		return err
	}
	if lst.Type() != TypeList {
		return TypeError{Actual: lst.Type(), Position: 0}
	}
	f.Push(lst.Downgrade())
	return nil
}

func execListUpgrade(f *Frame) error {
	w, err := f.Pop()
	if err != nil {
		return err
	}
	if w.Type() != TypeListWeak {
		return TypeError{Actual: w.Type(), Position: 0}
	}
	if lst, ok := w.Upgrade(); ok {
		f.Push(lst)
	} else {
		f.Push(None)
	}
	return nil
}

// --- strings -------------------------------------------------------------

// execStrCreate is a bare constructor, on par with LIST_CREATE and
// BYTES_CREATE: it pushes a fresh, empty StringBuffer and takes no
// operand off the stack. A StringValue's UTF-8 invariant is upheld by
// whatever host-side path actually produces one (bytecode alone never
// builds a StringValue).
func execStrCreate(f *Frame) error {
	f.Push(NewStringBuffer(""))
	return nil
}

func execStrCharAt(f *Frame) error {
	idx, err := f.Pop()
	if err != nil {
		return err
	}
	if idx.Type() != TypeInteger {
		return TypeError{Actual: idx.Type(), Position: 0}
	}
	s, err := f.Pop()
	if err != nil {
		return err
	}
	var r rune
	var ok bool
	switch s.Type() {
	case TypeStringValue:
		r, ok = s.StringValueCharAt(idx.AsInteger())
	case TypeStringBuffer:
		r, ok = s.StringBufferCharAt(idx.AsInteger())
	default:
		return TypeError{Actual: s.Type(), Position: 1}
	}
	if !ok {
		f.Push(None)
	} else {
		f.Push(Char(r))
	}
	return nil
}

func execStrChars(f *Frame) error {
	s, err := f.Pop()
	if err != nil {
		return err
	}
	switch s.Type() {
	case TypeStringValue:
		f.Push(NewList(s.StringValueChars()))
	case TypeStringBuffer:
		f.Push(NewList(s.StringBufferChars()))
	default:
		return TypeError{Actual: s.Type(), Position: 0}
	}
	return nil
}

// --- sequences -------------------------------------------------------------

func execSeqGet(f *Frame) error {
	idx, err := f.Pop()
	if err != nil {
		return err
	}
	if idx.Type() != TypeInteger {
		return TypeError{Actual: idx.Type(), Position: 0}
	}
	seq, err := f.Pop()
	if err != nil {
		return err
	}
	i := idx.AsInteger()
	switch seq.Type() {
	case TypeList:
		v, ok := seq.ListGet(i)
		if !ok {
			return IndexReadError{Index: i}
		}
		f.Push(v)
	case TypeBytes:
		v, ok := seq.BytesGet(i)
		if !ok {
			return IndexReadError{Index: i}
		}
		f.Push(Integer(v))
	case TypeBytesBuffer:
		v, ok := seq.BytesBufferGet(i)
		if !ok {
			return IndexReadError{Index: i}
		}
		f.Push(Integer(v))
	default:
		return TypeError{Actual: seq.Type(), Position: 1}
	}
	return nil
}

// execSeqSet mutates in place and pushes nothing back; the replaced
// value is discarded, same as the source VM's own SeqSet arm.
func execSeqSet(f *Frame) error {
	v, err := f.Pop()
	if err != nil {
		return err
	}
	idx, err := f.Pop()
	if err != nil {
		return err
	}
	if idx.Type() != TypeInteger {
		return TypeError{Actual: idx.Type(), Position: 1}
	}
	seq, err := f.Pop()
	if err != nil {
		return err
	}
	i := idx.AsInteger()
	switch seq.Type() {
	case TypeList:
		if _, ok := seq.ListSet(i, v); !ok {
			return IndexWriteError{Index: i}
		}
	case TypeBytesBuffer:
		if v.Type() != TypeInteger {
			return TypeError{Actual: v.Type(), Position: 0}
		}
		if _, ok := seq.BytesBufferGet(i); !ok {
			return IndexWriteError{Index: i}
		}
		seq.BytesBufferSet(i, v.AsInteger())
	default:
		return TypeError{Actual: seq.Type(), Position: 2}
	}
	return nil
}

func execSeqGetSlice(f *Frame) error {
	b, err := f.Pop()
	if err != nil {
		return err
	}
	if b.Type() != TypeInteger {
		return TypeError{Actual: b.Type(), Position: 0}
	}
	a, err := f.Pop()
	if err != nil {
		return err
	}
	if a.Type() != TypeInteger {
		return TypeError{Actual: a.Type(), Position: 1}
	}
	seq, err := f.Pop()
	if err != nil {
		return err
	}
	lo, hi := a.AsInteger(), b.AsInteger()
	switch seq.Type() {
	case TypeList:
		items, ok := seq.ListGetSlice(lo, hi)
		if !ok {
			return SliceReadError{Start: lo, End: hi}
		}
		f.Push(NewList(items))
	case TypeBytes:
		out, ok := seq.BytesGetSlice(lo, hi)
		if !ok {
			return SliceReadError{Start: lo, End: hi}
		}
		f.Push(out)
	case TypeBytesBuffer:
		out, ok := seq.BytesBufferGetSlice(lo, hi)
		if !ok {
			return SliceReadError{Start: lo, End: hi}
		}
		f.Push(out)
	default:
		return TypeError{Actual: seq.Type(), Position: 2}
	}
	return nil
}

// execSeqSetSlice implements the supplemented SEQ_SET_SLICE semantics
// (spec.md §9: lift set_slice over {List, BytesBuffer}, reject other
// receivers with Type). Stack: seq src off / — mutates in place and
// pushes nothing, matching SEQ_SET/SEQ_RESIZE's no-repush convention.
func execSeqSetSlice(f *Frame) error {
	off, err := f.Pop()
	if err != nil {
		return err
	}
	if off.Type() != TypeInteger {
		return TypeError{Actual: off.Type(), Position: 0}
	}
	src, err := f.Pop()
	if err != nil {
		return err
	}
	seq, err := f.Pop()
	if err != nil {
		return err
	}

	offset := off.AsInteger()
	switch seq.Type() {
	case TypeList:
		if src.Type() != TypeList {
			return TypeError{Actual: src.Type(), Position: 1}
		}
		items, ok := src.ListGetSlice(0, int64(src.ListLen()))
		if !ok || !seq.ListSetSlice(items, offset) {
			return SliceReadError{Start: offset, End: offset + int64(len(items))}
		}
	case TypeBytesBuffer:
		data, ok := bytesOf(src)
		if !ok {
			return TypeError{Actual: src.Type(), Position: 1}
		}
		if !seq.BytesBufferSetSlice(data, offset) {
			return SliceReadError{Start: offset, End: offset + int64(len(data))}
		}
	default:
		return TypeError{Actual: seq.Type(), Position: 2}
	}
	return nil
}

// execSeqAppend implements the supplemented SEQ_APPEND semantics.
// Stack: seq other / — mutates in place, pushes nothing.
func execSeqAppend(f *Frame) error {
	other, err := f.Pop()
	if err != nil {
		return err
	}
	seq, err := f.Pop()
	if err != nil {
		return err
	}
	switch seq.Type() {
	case TypeList:
		if other.Type() != TypeList {
			return TypeError{Actual: other.Type(), Position: 0}
		}
		items, _ := other.ListGetSlice(0, int64(other.ListLen()))
		seq.ListAppend(items)
	case TypeBytesBuffer:
		data, ok := bytesOf(other)
		if !ok {
			return TypeError{Actual: other.Type(), Position: 0}
		}
		seq.BytesBufferAppend(data)
	default:
		return TypeError{Actual: seq.Type(), Position: 1}
	}
	return nil
}

func execSeqLen(f *Frame) error {
	seq, err := f.Pop()
	if err != nil {
		return err
	}
	switch seq.Type() {
	case TypeList:
		f.Push(Integer(int64(seq.ListLen())))
	case TypeBytes:
		f.Push(Integer(int64(seq.BytesLen())))
	case TypeBytesBuffer:
		f.Push(Integer(int64(seq.BytesBufferLen())))
	case TypeStringValue:
		f.Push(Integer(int64(len(seq.StringValueBytes()))))
	case TypeStringBuffer:
		f.Push(Integer(int64(seq.StringBufferLen())))
	default:
		return TypeError{Actual: seq.Type(), Position: 0}
	}
	return nil
}

// execSeqResize mutates in place and pushes nothing back.
func execSeqResize(f *Frame) error {
	n, err := f.Pop()
	if err != nil {
		return err
	}
	if n.Type() != TypeInteger {
		return TypeError{Actual: n.Type(), Position: 0}
	}
	seq, err := f.Pop()
	if err != nil {
		return err
	}
	size := n.AsInteger()
	switch seq.Type() {
	case TypeList:
		if !seq.ListResize(size) {
			return IndexWriteError{Index: size}
		}
	case TypeBytesBuffer:
		if !seq.BytesBufferResize(size) {
			return IndexWriteError{Index: size}
		}
	default:
		return TypeError{Actual: seq.Type(), Position: 1}
	}
	return nil
}

func bytesOf(v Value) ([]byte, bool) {
	switch v.Type() {
	case TypeBytes:
		return v.byt.data, true
	case TypeBytesBuffer:
		return v.buf.snapshot(), true
	default:
		return nil, false
	}
}
