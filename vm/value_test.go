package vm

import (
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestCmpSameType(t *testing.T) {
	assert(t, Cmp(Integer(1), Integer(2)) == Less, "1 < 2")
	assert(t, Cmp(Integer(2), Integer(2)) == Equal, "2 == 2")
	assert(t, Cmp(Integer(3), Integer(2)) == Greater, "3 > 2")
	assert(t, Cmp(Real(1.5), Real(1.5)) == Equal, "1.5 == 1.5")
	assert(t, Cmp(Bool(false), Bool(true)) == Less, "false < true")
	assert(t, Cmp(None, None) == Equal, "none == none")
	assert(t, Cmp(Char('a'), Char('b')) == Less, "'a' < 'b'")
}

func TestCmpRealNaN(t *testing.T) {
	nan := Real(nan())
	assert(t, Cmp(nan, nan) == Incomparable, "NaN is incomparable with itself")
	assert(t, Cmp(nan, Real(1)) == Incomparable, "NaN is incomparable with a number")
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestCmpListIdentity(t *testing.T) {
	a := NewList(nil)
	b := NewList(nil)
	assert(t, Cmp(a, a) == Equal, "a list is equal to itself")
	assert(t, Cmp(a, b) == Incomparable, "two distinct empty lists are incomparable, not equal")
}

func TestCmpCrossType(t *testing.T) {
	// None(0) sorts below Bool(1) sorts below Integer(2), per the fixed
	// tag order spec.md §3.1 defines.
	assert(t, Cmp(None, Bool(true)) == Less, "None < Bool by tag order")
	assert(t, Cmp(Integer(1), Bool(true)) == Greater, "Integer > Bool by tag order")
}

func TestCmpBytesCrossTag(t *testing.T) {
	a := NewBytes([]byte("abc"))
	b := NewBytesBuffer([]byte("abc"))
	assert(t, Cmp(a, b) == Equal, "Bytes and BytesBuffer with equal content compare Equal")

	c := NewBytesBuffer([]byte("abd"))
	assert(t, Cmp(a, c) == Less, "abc < abd")
}

func TestCmpStringCrossTag(t *testing.T) {
	a := NewStringValue("hello")
	b := NewStringBuffer("hello")
	assert(t, Cmp(a, b) == Equal, "StringValue and StringBuffer with equal content compare Equal")
}

func TestBytesImmutableAfterConstruction(t *testing.T) {
	src := []byte("abc")
	v := NewBytes(src)
	src[0] = 'z'
	got, ok := v.BytesGet(0)
	assert(t, ok, "index 0 in range")
	assert(t, got == int64('a'), "NewBytes copies its input; mutating the caller's slice afterwards must not be observed")
}
