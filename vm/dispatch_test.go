package vm

import (
	"runtime"
	"testing"
)

// runProgram assembles ops into a Function and drives Step across a
// call stack exactly the way a host (see the root main.go) would,
// returning the value RETURN produces from the outermost frame.
// Tests that need a CALL target in a local slot build the entry frame
// themselves, store the target there, and call runFrame directly.
func runProgram(t *testing.T, ops []Operation) (Value, error) {
	t.Helper()
	code, err := Assemble(ops)
	assert(t, err == nil, "assemble: %v", err)
	fn := NewFunction(NewList(nil), code)
	entry := NewFrame(fn.Function())
	return runFrame(t, entry)
}

func runFrame(t *testing.T, entry *Frame) (Value, error) {
	t.Helper()
	frames := []*Frame{entry}
	for {
		top := frames[len(frames)-1]
		directive, err := Step(top)
		if err != nil {
			return None, err
		}
		// Force a collection after every step so any weak handle whose
		// strong reference just disappeared is actually reclaimed by
		// the time the test asserts on it — mirrors main.go's driver.
		runtime.GC()

		switch directive.Kind {
		case DirNone:
		case DirJump:
			top.SetCursor(top.Cursor() + int(directive.JumpDelta))
		case DirCall:
			callee := NewFrame(directive.CallFn.Function())
			for i, arg := range directive.CallArgs {
				callee.Store(uint8(i+1), arg)
			}
			frames = append(frames, callee)
		case DirCallNative:
			result, nativeErr := directive.NativeFn.AsNativeFn()(directive.NativeArgs)
			if nativeErr != nil {
				return None, nativeErr
			}
			top.Push(result)
		case DirReturn:
			frames = frames[:len(frames)-1]
			if len(frames) == 0 {
				return directive.ReturnValue, nil
			}
			frames[len(frames)-1].Push(directive.ReturnValue)
		}
	}
}

// --- spec.md §8 end-to-end scenarios ---------------------------------------

func TestScenarioAdd(t *testing.T) {
	v, err := runProgram(t, []Operation{
		{Op: LIT_INT, Int: 2},
		{Op: LIT_INT, Int: 3},
		{Op: ADD},
		{Op: RETURN},
	})
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeInteger && v.AsInteger() == 5, "got %v", v)
}

func TestScenarioSubReal(t *testing.T) {
	v, err := runProgram(t, []Operation{
		{Op: LIT_REAL, Real: 1.5},
		{Op: LIT_REAL, Real: 0.5},
		{Op: SUB},
		{Op: RETURN},
	})
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeReal && v.AsReal() == 1.0, "got %v", v)
}

func TestScenarioDivByZero(t *testing.T) {
	_, err := runProgram(t, []Operation{
		{Op: LIT_INT, Int: 10},
		{Op: LIT_INT, Int: 0},
		{Op: DIV},
		{Op: RETURN},
	})
	_, ok := err.(DivByZeroError)
	assert(t, ok, "expected DivByZeroError, got %v", err)
}

func TestScenarioCmp(t *testing.T) {
	v, err := runProgram(t, []Operation{
		{Op: LIT_INT, Int: 1},
		{Op: LIT_INT, Int: 2},
		{Op: CMP},
		{Op: RETURN},
	})
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeInteger && v.AsInteger() == -1, "got %v", v)
}

func TestScenarioListPushLen(t *testing.T) {
	v, err := runProgram(t, []Operation{
		{Op: LIST_CREATE},
		{Op: FRM_COPY},
		{Op: LIT_INT, Int: 7},
		{Op: LIST_PUSH},
		{Op: SEQ_LEN},
		{Op: RETURN},
	})
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeInteger && v.AsInteger() == 1, "got %v", v)
}

func TestScenarioJumpZero(t *testing.T) {
	v, err := runProgram(t, []Operation{
		{Op: LIT_INT, Int: 0},
		{Op: JUMP_ZERO, Target: 4},
		{Op: LIT_INT, Int: 1},
		{Op: RETURN},
		{Op: LIT_INT, Int: 2},
		{Op: RETURN},
	})
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeInteger && v.AsInteger() == 2, "a zero predicate must take the jump, got %v", v)
}

func TestScenarioJumpZeroNotTaken(t *testing.T) {
	v, err := runProgram(t, []Operation{
		{Op: LIT_INT, Int: 1},
		{Op: JUMP_ZERO, Target: 4},
		{Op: LIT_INT, Int: 1},
		{Op: RETURN},
		{Op: LIT_INT, Int: 2},
		{Op: RETURN},
	})
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeInteger && v.AsInteger() == 1, "a nonzero predicate must fall through, got %v", v)
}

// --- weak handle freeing -----------------------------------------------

func TestWeakFreedWithoutStrongHandle(t *testing.T) {
	v, err := runProgram(t, []Operation{
		{Op: LIST_CREATE},
		{Op: LIST_DOWNGRADE},
		{Op: LIST_UPGRADE},
		{Op: RETURN},
	})
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeNone, "upgrading a weak handle with no surviving strong handle must yield None, got %v", v)
}

func TestWeakAliveWithStrongHandleRetained(t *testing.T) {
	v, err := runProgram(t, []Operation{
		{Op: LIST_CREATE},
		{Op: FRM_COPY},
		{Op: LIST_DOWNGRADE},
		{Op: LIST_UPGRADE},
		{Op: RETURN},
	})
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeList, "a retained FRM_COPY must keep the list alive through downgrade/upgrade, got %v", v)
}

// --- handle aliasing ---------------------------------------------------

func TestListPushAliasesViaFrameCopy(t *testing.T) {
	// Two copies of the same handle on the stack; pushing through one
	// must be visible through the other, since LIST_PUSH mutates the
	// shared cell in place and does not repush its own operand.
	v, err := runProgram(t, []Operation{
		{Op: LIST_CREATE},
		{Op: FRM_COPY},
		{Op: LIT_INT, Int: 42},
		{Op: LIST_PUSH},
		{Op: LIT_INT, Int: 0},
		{Op: SEQ_GET},
		{Op: RETURN},
	})
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeInteger && v.AsInteger() == 42, "got %v", v)
}

func TestListPushWithoutCopyLosesTheHandle(t *testing.T) {
	// Without FRM_COPY, the single handle is consumed entirely by
	// LIST_PUSH (which does not repush it), so SEQ_GET right after has
	// nothing left to operate on.
	_, err := runProgram(t, []Operation{
		{Op: LIST_CREATE},
		{Op: LIT_INT, Int: 42},
		{Op: LIST_PUSH},
		{Op: LIT_INT, Int: 0},
		{Op: SEQ_GET},
		{Op: RETURN},
	})
	_, ok := err.(StackEmptyError)
	assert(t, ok, "expected StackEmptyError, got %v", err)
}

// --- CALL ----------------------------------------------------------------

func TestCallUserFunction(t *testing.T) {
	// callee: ADD its two arguments, stored in locals 1 and 2.
	calleeCode, err := Assemble([]Operation{
		{Op: FRM_LOAD, Arg8: 1},
		{Op: FRM_LOAD, Arg8: 2},
		{Op: ADD},
		{Op: RETURN},
	})
	assert(t, err == nil, "assemble callee: %v", err)
	callee := NewFunction(NewList(nil), calleeCode)

	// caller: push callee's two args, then the target, then CALL 2.
	// CALL pops the target first, so it must be loaded last.
	callerOps := []Operation{
		{Op: LIT_INT, Int: 10},
		{Op: LIT_INT, Int: 32},
		{Op: FRM_LOAD, Arg8: 1}, // loads callee (stored into slot 1 below)
		{Op: CALL, Arg8: 2},
		{Op: RETURN},
	}
	code, err := Assemble(callerOps)
	assert(t, err == nil, "assemble caller: %v", err)
	fn := NewFunction(NewList(nil), code)
	entry := NewFrame(fn.Function())
	entry.Store(1, callee)

	v, err := runFrame(t, entry)
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeInteger && v.AsInteger() == 42, "got %v", v)
}

func TestCallNative(t *testing.T) {
	double := NativeFnValue(func(args []Value) (Value, error) {
		return Integer(args[0].AsInteger() * 2), nil
	})

	callerOps := []Operation{
		{Op: LIT_INT, Int: 21},
		{Op: FRM_LOAD, Arg8: 1},
		{Op: CALL, Arg8: 1},
		{Op: RETURN},
	}
	code, err := Assemble(callerOps)
	assert(t, err == nil, "assemble: %v", err)
	fn := NewFunction(NewList(nil), code)
	entry := NewFrame(fn.Function())
	entry.Store(1, double)

	v, err := runFrame(t, entry)
	assert(t, err == nil, "run: %v", err)
	assert(t, v.Type() == TypeInteger && v.AsInteger() == 42, "got %v", v)
}

func TestCallTargetTypeError(t *testing.T) {
	_, err := runProgram(t, []Operation{
		{Op: LIT_INT, Int: 1}, // not callable
		{Op: CALL, Arg8: 0},
		{Op: RETURN},
	})
	te, ok := err.(TypeError)
	assert(t, ok, "expected TypeError, got %v", err)
	assert(t, te.Position == 0, "the call target is popped first, so its mismatch is position 0, got %d", te.Position)
}

// --- SEQ_SET / SEQ_RESIZE do not repush their receiver ------------------

func TestSeqResizeDoesNotRepush(t *testing.T) {
	// seq n / (nothing): RETURN right after SEQ_RESIZE must find an
	// empty stack, proving SEQ_RESIZE did not leave the receiver behind.
	_, err := runProgram(t, []Operation{
		{Op: LIST_CREATE},
		{Op: LIT_INT, Int: 9},
		{Op: SEQ_RESIZE},
		{Op: RETURN},
	})
	_, ok := err.(StackEmptyError)
	assert(t, ok, "expected StackEmptyError since SEQ_RESIZE must not repush its receiver, got %v", err)
}

func TestSeqSetDoesNotRepush(t *testing.T) {
	// seq idx v / (nothing): same shape, for SEQ_SET. The list is
	// resized (via a retained FRM_COPY) to length 1 first so index 0
	// is in range.
	_, err := runProgram(t, []Operation{
		{Op: LIST_CREATE},
		{Op: FRM_COPY},
		{Op: LIT_INT, Int: 1},
		{Op: SEQ_RESIZE},
		{Op: LIT_INT, Int: 0},
		{Op: LIT_INT, Int: 5},
		{Op: SEQ_SET},
		{Op: RETURN},
	})
	_, ok := err.(StackEmptyError)
	assert(t, ok, "expected StackEmptyError since SEQ_SET must not repush its receiver, got %v", err)
}
