package vm

import (
	"fmt"
	"reflect"
)

// ValueType is the fixed total order of runtime value tags (spec.md
// §3.1). The numeric order is part of the comparison contract: a
// lower ValueType always sorts before a higher one in cross-type cmp.
type ValueType uint8

const (
	TypeNone ValueType = iota
	TypeBool
	TypeInteger
	TypeReal
	TypeChar
	TypeList
	TypeListWeak
	TypeBytes
	TypeBytesBuffer
	TypeStringValue
	TypeStringBuffer
	TypeFunction
	TypeNativeFn
	TypeUnknown
)

var typeNames = [...]string{
	TypeNone:         "None",
	TypeBool:         "Bool",
	TypeInteger:      "Integer",
	TypeReal:         "Real",
	TypeChar:         "Char",
	TypeList:         "List",
	TypeListWeak:     "ListWeak",
	TypeBytes:        "Bytes",
	TypeBytesBuffer:  "BytesBuffer",
	TypeStringValue:  "StringValue",
	TypeStringBuffer: "StringBuffer",
	TypeFunction:     "Function",
	TypeNativeFn:     "NativeFn",
	TypeUnknown:      "Unknown",
}

func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "?unknown-type?"
}

// NativeFn is a host-provided function. Argument ordering matches
// CALL: the topmost popped value becomes the last argument.
type NativeFn func(args []Value) (Value, error)

// Value is the tagged union of runtime values (spec.md §3.1). The zero
// Value is None. Construct heap-backed variants with the NewXxx
// constructors in heap.go / function.go.
type Value struct {
	typ  ValueType
	b    bool
	i    int64
	r    float64
	c    rune
	list *listCell
	weak weakList
	byt  *bytesCell
	buf  *bytesBufferCell
	str  *stringCell
	sbuf *stringBufferCell
	fn   *Function
	nfn  NativeFn
	unk  any
}

// Type returns the value's tag.
func (v Value) Type() ValueType { return v.typ }

// None is the singleton unit/absent value.
var None = Value{typ: TypeNone}

func Bool(b bool) Value    { return Value{typ: TypeBool, b: b} }
func Integer(i int64) Value { return Value{typ: TypeInteger, i: i} }
func Real(r float64) Value  { return Value{typ: TypeReal, r: r} }
func Char(c rune) Value     { return Value{typ: TypeChar, c: c} }

func NativeFnValue(f NativeFn) Value { return Value{typ: TypeNativeFn, nfn: f} }
func Unknown(obj any) Value          { return Value{typ: TypeUnknown, unk: obj} }

// AsBool, AsInteger, AsReal, AsChar do not check the variant: called
// on the wrong variant they return the zero value of their result
// type. Step never calls them without having already type-switched
// via Type().
func (v Value) AsBool() bool       { return v.b }
func (v Value) AsInteger() int64   { return v.i }
func (v Value) AsReal() float64    { return v.r }
func (v Value) AsChar() rune       { return v.c }
func (v Value) AsNativeFn() NativeFn { return v.nfn }
func (v Value) AsUnknown() any     { return v.unk }

func (v Value) String() string {
	switch v.typ {
	case TypeNone:
		return "none"
	case TypeBool:
		return fmt.Sprintf("%t", v.b)
	case TypeInteger:
		return fmt.Sprintf("%d", v.i)
	case TypeReal:
		return fmt.Sprintf("%g", v.r)
	case TypeChar:
		return fmt.Sprintf("%q", v.c)
	case TypeList:
		return fmt.Sprintf("list(len=%d)", v.list.len())
	case TypeListWeak:
		return "list-weak"
	case TypeBytes:
		return fmt.Sprintf("bytes(len=%d)", len(v.byt.data))
	case TypeBytesBuffer:
		return fmt.Sprintf("bytes-buffer(len=%d)", v.buf.len())
	case TypeStringValue:
		return v.str.s
	case TypeStringBuffer:
		return v.sbuf.s
	case TypeFunction:
		return "function"
	case TypeNativeFn:
		return "native-fn"
	default:
		return "unknown"
	}
}

// Ordering is the result of Cmp: Less, Equal, Greater, or Incomparable
// (NaN reals, and distinct handles of the identity-compared types
// List, ListWeak, Function and Unknown).
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
	Incomparable
)

// Cmp implements spec.md §4.A. Values of different tags order by
// ValueType, except the Bytes/BytesBuffer and StringValue/StringBuffer
// pairs, which compare by content in either argument order.
func Cmp(a, b Value) Ordering {
	if a.typ == b.typ {
		return cmpSameType(a, b)
	}

	// Cross-tag byte/string equality fallback applies regardless of
	// which side holds the lower tag.
	if (a.typ == TypeBytes && b.typ == TypeBytesBuffer) || (a.typ == TypeBytesBuffer && b.typ == TypeBytes) {
		return cmpBytesCross(a, b)
	}
	if (a.typ == TypeStringValue && b.typ == TypeStringBuffer) || (a.typ == TypeStringBuffer && b.typ == TypeStringValue) {
		return cmpStringCross(a, b)
	}

	if a.typ < b.typ {
		return Less
	}
	return Greater
}

func cmpBytesCross(a, b Value) Ordering {
	var x, y []byte
	if a.typ == TypeBytes {
		x, y = a.byt.data, b.buf.snapshot()
	} else {
		x, y = a.buf.snapshot(), b.byt.data
	}
	return cmpByteSlices(x, y)
}

func cmpStringCross(a, b Value) Ordering {
	var x, y string
	if a.typ == TypeStringValue {
		x, y = a.str.s, b.sbuf.s
	} else {
		x, y = a.sbuf.s, b.str.s
	}
	return cmpStrings(x, y)
}

func cmpSameType(a, b Value) Ordering {
	switch a.typ {
	case TypeNone:
		return Equal
	case TypeBool:
		return cmpOrdered(boolToInt(a.b), boolToInt(b.b))
	case TypeInteger:
		return cmpOrdered(a.i, b.i)
	case TypeReal:
		return cmpReal(a.r, b.r)
	case TypeChar:
		return cmpOrdered(a.c, b.c)
	case TypeList:
		if a.list == b.list {
			return Equal
		}
		return Incomparable
	case TypeListWeak:
		if a.weak.target == b.weak.target {
			return Equal
		}
		return Incomparable
	case TypeBytes:
		if a.byt == b.byt {
			return Equal
		}
		return cmpByteSlices(a.byt.data, b.byt.data)
	case TypeBytesBuffer:
		if a.buf == b.buf {
			return Equal
		}
		return cmpByteSlices(a.buf.snapshot(), b.buf.snapshot())
	case TypeStringValue:
		if a.str == b.str {
			return Equal
		}
		return cmpStrings(a.str.s, b.str.s)
	case TypeStringBuffer:
		if a.sbuf == b.sbuf {
			return Equal
		}
		return cmpStrings(a.sbuf.s, b.sbuf.s)
	case TypeFunction:
		if a.fn == b.fn {
			return Equal
		}
		return Incomparable
	case TypeNativeFn:
		return cmpOrdered(nativeFnAddr(a.nfn), nativeFnAddr(b.nfn))
	case TypeUnknown:
		if sameUnknown(a.unk, b.unk) {
			return Equal
		}
		return Incomparable
	default:
		return Incomparable
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func cmpOrdered[T int | int64 | rune | uintptr](a, b T) Ordering {
	switch {
	case a < b:
		return Less
	case a == b:
		return Equal
	default:
		return Greater
	}
}

func cmpReal(a, b float64) Ordering {
	switch {
	case a != a || b != b: // NaN
		return Incomparable
	case a < b:
		return Less
	case a == b:
		return Equal
	case a > b:
		return Greater
	default:
		return Incomparable
	}
}

func cmpByteSlices(a, b []byte) Ordering {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return cmpOrdered(int(a[i]), int(b[i]))
		}
	}
	return cmpOrdered(len(a), len(b))
}

func cmpStrings(a, b string) Ordering {
	return cmpByteSlices([]byte(a), []byte(b))
}

// nativeFnAddr returns the address NativeFn's underlying code pointer,
// mirroring the original Rust's function-pointer-address comparison
// (datamodel.rs's NativeFn arm) since Go func values aren't otherwise
// comparable.
func nativeFnAddr(f NativeFn) uintptr {
	return reflect.ValueOf(f).Pointer()
}

// sameUnknown compares two opaque host payloads by identity only
// (spec.md §3.1). Payloads passed to Unknown may be slices, maps, or
// funcs, which panic on == — reflect.Value.Comparable guards against
// that instead of trusting the dynamic type.
func sameUnknown(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
