package vm

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Operation is the structured AST form of one instruction (spec.md
// §4.E). A program is an ordered []Operation; Assemble/Disassemble are
// mutual inverses over well-formed programs.
//
// Only the fields relevant to Op are meaningful; which ones those are
// is determined entirely by Op (see the opcode table in spec.md §4.D).
type Operation struct {
	Op Bytecode

	// Arg8 carries CALL's argument count n, and the slot index i for
	// FRM_LOAD / FRM_STORE / FRM_SWAP.
	Arg8 uint8

	// Int carries LIT_INT's literal value.
	Int int64

	// Real carries LIT_REAL's literal value.
	Real float64

	// Target carries the destination operation's index within the
	// same program, for JUMP / JUMP_ZERO / JUMP_NEG. It is an index
	// into the Operation slice, not a byte offset; Assemble resolves
	// it to the byte-accurate relative delta spec.md §4.E requires.
	Target int
}

// AssembleError reports a program that Assemble could not encode.
type AssembleError struct {
	OperationIndex int
	Reason         string
}

func (e *AssembleError) Error() string {
	return errors.Errorf("assemble: operation %d: %s", e.OperationIndex, e.Reason).Error()
}

// DisassembleError reports bytecode that Disassemble could not decode.
type DisassembleError struct {
	At     int
	Reason string
}

func (e *DisassembleError) Error() string {
	return errors.Errorf("disassemble: byte %d: %s", e.At, e.Reason).Error()
}

type pendingJump struct {
	operandPos int // byte offset of the jump's operand
	target     int // operation index
}

// Assemble encodes an ordered operation list into the wire format
// described by spec.md §4.D/§4.E: one pass emits bytes with
// placeholder jump operands while recording each instruction's start
// offset, a second pass patches every jump operand with a delta
// relative to the byte immediately after the operand itself —
// delta = targetInstructionStart - (operandPos + 4) — so Disassemble
// can recover the target by adding delta to its cursor right after
// reading the 4-byte operand.
func Assemble(ops []Operation) ([]byte, error) {
	starts := make([]int, len(ops))
	var buf []byte
	var jumps []pendingJump

	for i, op := range ops {
		starts[i] = len(buf)
		buf = append(buf, byte(op.Op))

		switch op.Op {
		case CALL, FRM_LOAD, FRM_STORE, FRM_SWAP:
			buf = append(buf, op.Arg8)
		case LIT_INT:
			buf = appendU64(buf, uint64(op.Int))
		case LIT_REAL:
			buf = appendU64(buf, math.Float64bits(op.Real))
		case JUMP, JUMP_ZERO, JUMP_NEG:
			jumps = append(jumps, pendingJump{operandPos: len(buf), target: op.Target})
			buf = append(buf, 0, 0, 0, 0)
		default:
			if op.Op.OperandSize() != 0 {
				return nil, &AssembleError{OperationIndex: i, Reason: "unrecognised opcode " + op.Op.String()}
			}
		}
	}

	for _, j := range jumps {
		if j.target < 0 || j.target >= len(ops) {
			return nil, &AssembleError{OperationIndex: j.target, Reason: "jump target out of range"}
		}
		delta := int64(starts[j.target]) - int64(j.operandPos+4)
		binary.BigEndian.PutUint32(buf[j.operandPos:], uint32(int32(delta)))
	}

	return buf, nil
}

type pendingTarget struct {
	opIndex int
	absByte int
}

// Disassemble is Assemble's inverse: it walks the byte stream, builds
// one Operation per instruction with a placeholder Target of 0 for
// jumps, and resolves jump targets to operation indices in a second
// pass once every instruction's start offset is known.
func Disassemble(code []byte) ([]Operation, error) {
	var ops []Operation
	starts := make(map[int]int) // byte offset -> operation index
	var pending []pendingTarget

	c := 0
	for c < len(code) {
		start := c
		op := Bytecode(code[c])
		size := op.OperandSize()
		if size < 0 {
			return nil, &DisassembleError{At: start, Reason: "unknown opcode"}
		}
		c++
		if c+size > len(code) {
			return nil, &DisassembleError{At: start, Reason: "truncated operand"}
		}

		starts[start] = len(ops)
		operation := Operation{Op: op}

		switch op {
		case CALL, FRM_LOAD, FRM_STORE, FRM_SWAP:
			operation.Arg8 = code[c]
		case LIT_INT:
			operation.Int = int64(readU64(code[c : c+8]))
		case LIT_REAL:
			operation.Real = math.Float64frombits(readU64(code[c : c+8]))
		case JUMP, JUMP_ZERO, JUMP_NEG:
			delta := int32(binary.BigEndian.Uint32(code[c : c+4]))
			operandPos := c
			absTarget := operandPos + size + int(delta)
			pending = append(pending, pendingTarget{opIndex: len(ops), absByte: absTarget})
		}

		c += size
		ops = append(ops, operation)
	}

	for _, p := range pending {
		idx, ok := starts[p.absByte]
		if !ok {
			return nil, &DisassembleError{At: p.absByte, Reason: "jump target does not land on an instruction boundary"}
		}
		ops[p.opIndex].Target = idx
	}

	return ops, nil
}

// Mnemonics renders a program as its mnemonic sequence, one string
// per operation.
func Mnemonics(ops []Operation) []string {
	return lo.Map(ops, func(op Operation, _ int) string { return op.Op.String() })
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readU64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
