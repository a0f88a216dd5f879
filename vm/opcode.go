package vm

// Bytecode is a single instruction opcode, one byte wide (spec.md §4.D).
// The numeric values below are part of the wire format: changing one
// would break any previously assembled program.
type Bytecode byte

const (
	NONE Bytecode = 1

	ADD Bytecode = 2
	SUB Bytecode = 3
	MUL Bytecode = 4
	DIV Bytecode = 5
	REM Bytecode = 6

	NEG Bytecode = 7

	SHL Bytecode = 8
	SHR Bytecode = 9
	AND Bytecode = 10
	OR  Bytecode = 11
	XOR Bytecode = 12
	NOT Bytecode = 13

	INT_TO_REAL Bytecode = 14
	REAL_TO_INT Bytecode = 15

	CMP Bytecode = 19

	CALL      Bytecode = 20
	RETURN    Bytecode = 21
	JUMP      Bytecode = 22
	JUMP_ZERO Bytecode = 23
	JUMP_NEG  Bytecode = 24

	LIT_NONE  Bytecode = 30
	LIT_TRUE  Bytecode = 31
	LIT_FALSE Bytecode = 32
	LIT_INT   Bytecode = 33
	LIT_REAL  Bytecode = 34

	FRM_LOAD  Bytecode = 40
	FRM_STORE Bytecode = 41
	FRM_SWAP  Bytecode = 42
	FRM_COPY  Bytecode = 43
	FRM_POP   Bytecode = 44

	LIST_CREATE   Bytecode = 50
	LIST_PUSH     Bytecode = 51
	LIST_POP      Bytecode = 52
	LIST_DOWNGRADE Bytecode = 53
	LIST_UPGRADE  Bytecode = 54

	BYTES_CREATE Bytecode = 55

	STR_CREATE   Bytecode = 60
	STR_CHAR_AT  Bytecode = 61
	STR_CHARS    Bytecode = 62

	SEQ_GET       Bytecode = 70
	SEQ_SET       Bytecode = 71
	SEQ_GET_SLICE Bytecode = 72
	SEQ_SET_SLICE Bytecode = 73
	SEQ_APPEND    Bytecode = 74
	SEQ_LEN       Bytecode = 75
	SEQ_RESIZE    Bytecode = 76
)

var (
	// strToOpMap maps mnemonics to opcodes, for tooling/debug listing
	// symmetry with opToStrMap below.
	strToOpMap = map[string]Bytecode{
		"none": NONE,

		"add": ADD,
		"sub": SUB,
		"mul": MUL,
		"div": DIV,
		"rem": REM,

		"neg": NEG,

		"shl": SHL,
		"shr": SHR,
		"and": AND,
		"or":  OR,
		"xor": XOR,
		"not": NOT,

		"int_to_real": INT_TO_REAL,
		"real_to_int": REAL_TO_INT,

		"cmp": CMP,

		"call":      CALL,
		"return":    RETURN,
		"jump":      JUMP,
		"jump_zero": JUMP_ZERO,
		"jump_neg":  JUMP_NEG,

		"lit_none":  LIT_NONE,
		"lit_true":  LIT_TRUE,
		"lit_false": LIT_FALSE,
		"lit_int":   LIT_INT,
		"lit_real":  LIT_REAL,

		"frm_load":  FRM_LOAD,
		"frm_store": FRM_STORE,
		"frm_swap":  FRM_SWAP,
		"frm_copy":  FRM_COPY,
		"frm_pop":   FRM_POP,

		"list_create":   LIST_CREATE,
		"list_push":     LIST_PUSH,
		"list_pop":      LIST_POP,
		"list_downgrade": LIST_DOWNGRADE,
		"list_upgrade":  LIST_UPGRADE,

		"bytes_create": BYTES_CREATE,

		"str_create":  STR_CREATE,
		"str_char_at": STR_CHAR_AT,
		"str_chars":   STR_CHARS,

		"seq_get":       SEQ_GET,
		"seq_set":       SEQ_SET,
		"seq_get_slice": SEQ_GET_SLICE,
		"seq_set_slice": SEQ_SET_SLICE,
		"seq_append":    SEQ_APPEND,
		"seq_len":       SEQ_LEN,
		"seq_resize":    SEQ_RESIZE,
	}

	// opToStrMap is the reverse of strToOpMap, built by init.
	opToStrMap map[Bytecode]string
)

func init() {
	opToStrMap = make(map[Bytecode]string, len(strToOpMap))
	for s, b := range strToOpMap {
		opToStrMap[b] = s
	}
}

// String renders the opcode's mnemonic for disassembly listings and
// error messages.
func (b Bytecode) String() string {
	str, ok := opToStrMap[b]
	if !ok {
		return "?unknown?"
	}
	return str
}

// OperandSize returns the number of inline operand bytes following
// this opcode, or -1 if the opcode is unrecognised. Single-byte
// opcodes (no operand) return 0.
func (b Bytecode) OperandSize() int {
	switch b {
	case CALL, FRM_LOAD, FRM_STORE, FRM_SWAP:
		return 1
	case JUMP, JUMP_ZERO, JUMP_NEG:
		return 4
	case LIT_INT, LIT_REAL:
		return 8
	default:
		if _, ok := opToStrMap[b]; ok {
			return 0
		}
		return -1
	}
}

// IsJump reports whether the opcode carries a relative jump operand,
// the one class of operand the assembler/disassembler patch in a
// second pass (spec.md §4.E).
func (b Bytecode) IsJump() bool {
	return b == JUMP || b == JUMP_ZERO || b == JUMP_NEG
}
