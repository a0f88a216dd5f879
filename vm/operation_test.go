package vm

import "testing"

// sameOps fails the test unless the two operation lists are equal
// field by field. Comparing every field, including ones the opcode
// does not use, is sound because Disassemble leaves unused fields at
// their zero value.
func sameOps(t *testing.T, got, want []Operation) {
	t.Helper()
	assert(t, len(got) == len(want), "operation count: got %d want %d", len(got), len(want))
	for i := range want {
		assert(t, got[i] == want[i], "operation %d: got %+v want %+v", i, got[i], want[i])
	}
}

func TestAssembleDisassembleRoundTrip(t *testing.T) {
	ops := []Operation{
		{Op: ADD},
		{Op: LIT_INT, Int: 2},
		{Op: LIT_REAL, Real: 3.5},
		{Op: FRM_LOAD, Arg8: 4},
		{Op: CALL, Arg8: 2},
		{Op: RETURN},
	}
	code, err := Assemble(ops)
	assert(t, err == nil, "assemble: %v", err)

	back, err := Disassemble(code)
	assert(t, err == nil, "disassemble: %v", err)
	sameOps(t, back, ops)
}

// TestJumpRoundTrip exercises the shape of spec.md §8's "jump-zero"
// scenario: a forward jump clear across two intervening instructions,
// verifying the target operation index survives assemble->disassemble.
func TestJumpRoundTrip(t *testing.T) {
	ops := []Operation{
		{Op: LIT_INT, Int: 0},        // 0
		{Op: JUMP_ZERO, Target: 4},   // 1
		{Op: LIT_INT, Int: 1},        // 2
		{Op: RETURN},                 // 3
		{Op: LIT_INT, Int: 2},        // 4 (jump target)
		{Op: RETURN},                 // 5
	}
	code, err := Assemble(ops)
	assert(t, err == nil, "assemble: %v", err)

	back, err := Disassemble(code)
	assert(t, err == nil, "disassemble: %v", err)
	sameOps(t, back, ops)
}

func TestJumpRoundTripBackward(t *testing.T) {
	ops := []Operation{
		{Op: LIT_INT, Int: 1}, // 0 (jump target)
		{Op: LIT_INT, Int: 0}, // 1
		{Op: JUMP, Target: 0}, // 2 (jumps backward)
	}
	code, err := Assemble(ops)
	assert(t, err == nil, "assemble: %v", err)

	back, err := Disassemble(code)
	assert(t, err == nil, "disassemble: %v", err)
	sameOps(t, back, ops)
}

func TestDisassembleTruncated(t *testing.T) {
	code, err := Assemble([]Operation{{Op: LIT_INT, Int: 1}})
	assert(t, err == nil, "assemble: %v", err)

	_, err = Disassemble(code[:len(code)-1])
	assert(t, err != nil, "truncated operand must fail to disassemble")
}

func TestDisassembleUnknownOpcode(t *testing.T) {
	_, err := Disassemble([]byte{0xFF})
	assert(t, err != nil, "unknown opcode must fail to disassemble")
}

func TestMnemonics(t *testing.T) {
	ops := []Operation{{Op: ADD}, {Op: RETURN}}
	m := Mnemonics(ops)
	assert(t, len(m) == 2 && m[0] == "add" && m[1] == "return", "got %v", m)
}
