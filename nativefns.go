package main

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"glacier/vm"
)

// nativeRegistry is a small table of host functions a program can
// CALL into via CallNative (spec.md §6.3). It stands in for the
// standard-library-of-native-functions the core VM deliberately
// leaves out of scope, generalized from the teacher's hardware device
// registry (vm/devices.go HardwareDevice/GetInfo/TrySend) into named
// NativeFn entries instead of device ports.
type nativeRegistry struct {
	byName map[string]vm.Value
}

func newNativeRegistry() *nativeRegistry {
	r := &nativeRegistry{byName: make(map[string]vm.Value)}
	r.register("len", nativeLen)
	r.register("sum", nativeSum)
	r.register("upper", nativeUpper)
	return r
}

func (r *nativeRegistry) register(name string, fn vm.NativeFn) {
	r.byName[name] = vm.NativeFnValue(fn)
}

// Lookup returns the NativeFn value registered under name, usable as
// the CALL target pushed onto a frame's operand stack.
func (r *nativeRegistry) Lookup(name string) (vm.Value, bool) {
	v, ok := r.byName[name]
	return v, ok
}

// Names lists the registry's entries, for the CLI's --list-natives
// flag.
func (r *nativeRegistry) Names() []string {
	return lo.Keys(r.byName)
}

// nativeLen reports the length of a sequence-kind argument (List,
// Bytes, BytesBuffer, StringValue, StringBuffer), mirroring SEQ_LEN's
// polymorphism but callable from host code as a demo CallNative.
func nativeLen(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.None, errors.Errorf("len: expected 1 argument, got %d", len(args))
	}
	a := args[0]
	switch a.Type() {
	case vm.TypeList:
		return vm.Integer(int64(a.ListLen())), nil
	case vm.TypeBytes:
		return vm.Integer(int64(a.BytesLen())), nil
	case vm.TypeBytesBuffer:
		return vm.Integer(int64(a.BytesBufferLen())), nil
	case vm.TypeStringValue:
		return vm.Integer(int64(len(a.StringValueBytes()))), nil
	case vm.TypeStringBuffer:
		return vm.Integer(int64(a.StringBufferLen())), nil
	default:
		return vm.None, vm.TypeError{Actual: a.Type(), Position: 0}
	}
}

// nativeSum adds a List of Integer or Real values, all of one type.
func nativeSum(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 || args[0].Type() != vm.TypeList {
		return vm.None, errors.New("sum: expected a single List argument")
	}
	items, _ := args[0].ListGetSlice(0, int64(args[0].ListLen()))
	if len(items) == 0 {
		return vm.Integer(0), nil
	}
	if items[0].Type() == vm.TypeReal {
		var total float64
		for _, v := range items {
			if v.Type() != vm.TypeReal {
				return vm.None, vm.TypeError{Actual: v.Type(), Position: 0}
			}
			total += v.AsReal()
		}
		return vm.Real(total), nil
	}
	var total int64
	for _, v := range items {
		if v.Type() != vm.TypeInteger {
			return vm.None, vm.TypeError{Actual: v.Type(), Position: 0}
		}
		total += v.AsInteger()
	}
	return vm.Integer(total), nil
}

// nativeUpper upper-cases a StringValue/StringBuffer argument.
func nativeUpper(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.None, errors.Errorf("upper: expected 1 argument, got %d", len(args))
	}
	a := args[0]
	var s string
	switch a.Type() {
	case vm.TypeStringValue:
		s = a.StringValueStr()
	case vm.TypeStringBuffer:
		s = a.StringBufferStr()
	default:
		return vm.None, vm.TypeError{Actual: a.Type(), Position: 0}
	}
	return vm.NewStringValue(toUpperASCII(s)), nil
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
