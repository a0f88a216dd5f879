package vm

import "fmt"

// VmError is the closed set of failures Step and the codec can
// surface. A host recovers the concrete kind with a type switch.
type VmError interface {
	error
	vmError()
}

// StackEmptyError is returned when an opcode pops an empty operand stack.
type StackEmptyError struct{}

func (StackEmptyError) Error() string { return "operand stack is empty" }
func (StackEmptyError) vmError()      {}

// DivByZeroError is returned by DIV/REM on a zero integer divisor.
type DivByZeroError struct{}

func (DivByZeroError) Error() string { return "division by zero" }
func (DivByZeroError) vmError()      {}

// FrameReadError is returned when a local slot was never assigned
// and lies at or beyond the current local slot count.
type FrameReadError struct{ Index uint8 }

func (e FrameReadError) Error() string { return fmt.Sprintf("local slot %d never assigned", e.Index) }
func (FrameReadError) vmError()        {}

// IndexReadError is returned by an out-of-range sequence get/pop.
type IndexReadError struct{ Index int64 }

func (e IndexReadError) Error() string { return fmt.Sprintf("index %d out of range", e.Index) }
func (IndexReadError) vmError()        {}

// IndexWriteError is returned by an out-of-range sequence set.
type IndexWriteError struct{ Index int64 }

func (e IndexWriteError) Error() string {
	return fmt.Sprintf("index %d out of range for write", e.Index)
}
func (IndexWriteError) vmError() {}

// SliceReadError is returned by an out-of-range slice operation.
type SliceReadError struct{ Start, End int64 }

func (e SliceReadError) Error() string {
	return fmt.Sprintf("slice bounds [%d:%d] out of range", e.Start, e.End)
}
func (SliceReadError) vmError() {}

// BytecodeReadError is returned when the cursor runs off the end of
// the bytecode mid-instruction, or lands on an unknown opcode.
type BytecodeReadError struct{ At int }

func (e BytecodeReadError) Error() string { return fmt.Sprintf("truncated bytecode at %d", e.At) }
func (BytecodeReadError) vmError()        {}

// TypeError is returned when a popped operand has the wrong Value
// variant. Position identifies which popped operand (0 = top).
type TypeError struct {
	Actual   ValueType
	Position uint8
}

func (e TypeError) Error() string {
	return fmt.Sprintf("unexpected type %s at operand position %d", e.Actual, e.Position)
}
func (TypeError) vmError() {}
