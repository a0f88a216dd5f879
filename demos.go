package main

import "glacier/vm"

// demoPrograms holds the built-in instruction sequences this binary
// can assemble and run, one per spec.md §8 end-to-end scenario plus a
// couple exercising the native registry and list handles. There is no
// text assembler in this module (spec.md only specifies assembly from
// a structured Operation list, never from source text), so demos are
// authored directly as []vm.Operation.
var demoPrograms = map[string][]vm.Operation{
	"add": {
		{Op: vm.LIT_INT, Int: 2},
		{Op: vm.LIT_INT, Int: 3},
		{Op: vm.ADD},
		{Op: vm.RETURN},
	},
	"sub-real": {
		{Op: vm.LIT_REAL, Real: 1.5},
		{Op: vm.LIT_REAL, Real: 0.5},
		{Op: vm.SUB},
		{Op: vm.RETURN},
	},
	"div-by-zero": {
		{Op: vm.LIT_INT, Int: 10},
		{Op: vm.LIT_INT, Int: 0},
		{Op: vm.DIV},
		{Op: vm.RETURN},
	},
	"cmp": {
		{Op: vm.LIT_INT, Int: 1},
		{Op: vm.LIT_INT, Int: 2},
		{Op: vm.CMP},
		{Op: vm.RETURN},
	},
	"list-push-len": {
		{Op: vm.LIST_CREATE},
		{Op: vm.FRM_COPY},
		{Op: vm.LIT_INT, Int: 7},
		{Op: vm.LIST_PUSH},
		{Op: vm.SEQ_LEN},
		{Op: vm.RETURN},
	},
	// LIT_INT 0; JUMP_ZERO +L; LIT_INT 1; RETURN; L: LIT_INT 2; RETURN
	"jump-zero": {
		{Op: vm.LIT_INT, Int: 0},
		{Op: vm.JUMP_ZERO, Target: 4},
		{Op: vm.LIT_INT, Int: 1},
		{Op: vm.RETURN},
		{Op: vm.LIT_INT, Int: 2},
		{Op: vm.RETURN},
	},
	"weak-freed": {
		{Op: vm.LIST_CREATE},
		{Op: vm.LIST_DOWNGRADE},
		{Op: vm.LIST_UPGRADE},
		{Op: vm.RETURN},
	},
	"weak-alive": {
		{Op: vm.LIST_CREATE},
		{Op: vm.FRM_COPY},
		{Op: vm.LIST_DOWNGRADE},
		{Op: vm.LIST_UPGRADE},
		{Op: vm.RETURN},
	},
	// Calls the "len" NativeFn (main.go seeds local slot 1 with it) on
	// a freshly built one-element list, demonstrating CallNative. CALL
	// pops its target first, so the NativeFn must be loaded last, right
	// before the CALL, with the argument(s) already beneath it.
	"call-native-len": {
		{Op: vm.LIST_CREATE},
		{Op: vm.FRM_COPY},
		{Op: vm.LIT_INT, Int: 1},
		{Op: vm.LIST_PUSH},
		{Op: vm.FRM_LOAD, Arg8: 1},
		{Op: vm.CALL, Arg8: 1},
		{Op: vm.RETURN},
	},
}

// demosUsingNativeSlot names demos that expect local slot 1 to hold a
// NativeFn seeded by the host before stepping begins.
var demosUsingNativeSlot = map[string]string{
	"call-native-len": "len",
}
