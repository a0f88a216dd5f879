package vm

import "weak"

// listCell is the shared, mutable backing store for a List value. A Go
// pointer to listCell already gives the aliasing semantics spec.md's
// "shared handle" calls for — no manual refcount is kept; the cell
// lives as long as something holds a *listCell.
type listCell struct {
	items []Value
}

func newListCell(items []Value) *listCell {
	if items == nil {
		items = []Value{}
	}
	return &listCell{items: items}
}

// NewList allocates a fresh List value wrapping items (not copied).
func NewList(items []Value) Value {
	return Value{typ: TypeList, list: newListCell(items)}
}

func (c *listCell) len() int { return len(c.items) }

func (c *listCell) get(i int64) (Value, bool) {
	if i < 0 || i >= int64(len(c.items)) {
		return None, false
	}
	return c.items[i], true
}

func (c *listCell) set(i int64, v Value) (Value, bool) {
	if i < 0 || i >= int64(len(c.items)) {
		return None, false
	}
	old := c.items[i]
	c.items[i] = v
	return old, true
}

func (c *listCell) getSlice(a, b int64) ([]Value, bool) {
	if a < 0 || b < a || b > int64(len(c.items)) {
		return nil, false
	}
	out := make([]Value, b-a)
	copy(out, c.items[a:b])
	return out, true
}

func (c *listCell) setSlice(src []Value, off int64) bool {
	if off < 0 || off+int64(len(src)) > int64(len(c.items)) {
		return false
	}
	copy(c.items[off:], src)
	return true
}

func (c *listCell) push(v Value) { c.items = append(c.items, v) }

func (c *listCell) pop() (Value, bool) {
	n := len(c.items)
	if n == 0 {
		return None, false
	}
	v := c.items[n-1]
	c.items = c.items[:n-1]
	return v, true
}

func (c *listCell) append(vs []Value) { c.items = append(c.items, vs...) }

func (c *listCell) resize(n int64) bool {
	if n < 0 {
		return false
	}
	cur := int64(len(c.items))
	switch {
	case n == cur:
		return true
	case n < cur:
		c.items = c.items[:n]
	default:
		grown := make([]Value, n)
		copy(grown, c.items)
		for i := cur; i < n; i++ {
			grown[i] = None
		}
		c.items = grown
	}
	return true
}

// weakList is a non-owning relation to a listCell, backed by the
// standard library weak package: Value() yields the zero Pointer once
// the target is unreachable, which is exactly "upgrades to None if
// target freed" (spec.md §3.1).
type weakList struct {
	target weak.Pointer[listCell]
}

// Downgrade turns a List value into a ListWeak value.
func (v Value) Downgrade() Value {
	return Value{typ: TypeListWeak, weak: weakList{target: weak.Make(v.list)}}
}

// Upgrade returns (List, true) if the target is still alive, else
// (None, false).
func (v Value) Upgrade() (Value, bool) {
	cell := v.weak.target.Value()
	if cell == nil {
		return None, false
	}
	return Value{typ: TypeList, list: cell}, true
}

// List accessor methods operating on a Value known (by caller) to hold
// TypeList. These are thin forwarders so dispatch.go reads like the
// opcode table.

func (v Value) ListLen() int                            { return v.list.len() }
func (v Value) ListGet(i int64) (Value, bool)            { return v.list.get(i) }
func (v Value) ListSet(i int64, x Value) (Value, bool)   { return v.list.set(i, x) }
func (v Value) ListGetSlice(a, b int64) ([]Value, bool)  { return v.list.getSlice(a, b) }
func (v Value) ListSetSlice(src []Value, off int64) bool { return v.list.setSlice(src, off) }
func (v Value) ListPush(x Value)                         { v.list.push(x) }
func (v Value) ListPop() (Value, bool)                   { return v.list.pop() }
func (v Value) ListAppend(xs []Value)                    { v.list.append(xs) }
func (v Value) ListResize(n int64) bool                  { return v.list.resize(n) }

// bytesCell is the immutable backing store for a Bytes value.
type bytesCell struct {
	data []byte
}

// NewBytes allocates an immutable Bytes value. data is copied so the
// caller's slice can be mutated freely afterwards.
func NewBytes(data []byte) Value {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Value{typ: TypeBytes, byt: &bytesCell{data: cp}}
}

func (v Value) BytesLen() int { return len(v.byt.data) }

func (v Value) BytesGet(i int64) (int64, bool) {
	if i < 0 || i >= int64(len(v.byt.data)) {
		return 0, false
	}
	return int64(v.byt.data[i]), true
}

// BytesGetSlice slices an immutable Bytes into a fresh mutable
// BytesBuffer copy, per spec.md §4.B.
func (v Value) BytesGetSlice(a, b int64) (Value, bool) {
	if a < 0 || b < a || b > int64(len(v.byt.data)) {
		return None, false
	}
	cp := make([]byte, b-a)
	copy(cp, v.byt.data[a:b])
	return NewBytesBuffer(cp), true
}

// bytesBufferCell is the mutable backing store for a BytesBuffer value.
type bytesBufferCell struct {
	data []byte
}

// NewBytesBuffer allocates a mutable BytesBuffer value, copying data.
func NewBytesBuffer(data []byte) Value {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Value{typ: TypeBytesBuffer, buf: &bytesBufferCell{data: cp}}
}

func (c *bytesBufferCell) len() int { return len(c.data) }

// snapshot returns the current contents for cross-tag comparison; it
// is not exposed outside the package.
func (c *bytesBufferCell) snapshot() []byte { return c.data }

func (v Value) BytesBufferLen() int { return v.buf.len() }

func (v Value) BytesBufferGet(i int64) (int64, bool) {
	if i < 0 || i >= int64(len(v.buf.data)) {
		return 0, false
	}
	return int64(v.buf.data[i]), true
}

// BytesBufferSet writes the low 8 bits of x into slot i, per spec.md
// §4.D ("Writing an Integer into a BytesBuffer truncates to the low 8
// bits").
func (v Value) BytesBufferSet(i int64, x int64) bool {
	if i < 0 || i >= int64(len(v.buf.data)) {
		return false
	}
	v.buf.data[i] = byte(x)
	return true
}

func (v Value) BytesBufferGetSlice(a, b int64) (Value, bool) {
	if a < 0 || b < a || b > int64(len(v.buf.data)) {
		return None, false
	}
	cp := make([]byte, b-a)
	copy(cp, v.buf.data[a:b])
	return NewBytesBuffer(cp), true
}

func (v Value) BytesBufferSetSlice(src []byte, off int64) bool {
	if off < 0 || off+int64(len(src)) > int64(len(v.buf.data)) {
		return false
	}
	copy(v.buf.data[off:], src)
	return true
}

// CopyWithin implements §4.B's copy_within: bounds-checked, aliasing
// allowed (uses the same aliasing-safe semantics as copy()).
func (v Value) CopyWithin(srcOff, dstOff, n int64) bool {
	data := v.buf.data
	if srcOff < 0 || dstOff < 0 || n < 0 {
		return false
	}
	if srcOff+n > int64(len(data)) || dstOff+n > int64(len(data)) {
		return false
	}
	copy(data[dstOff:dstOff+n], data[srcOff:srcOff+n])
	return true
}

func (v Value) BytesBufferResize(n int64) bool {
	if n < 0 {
		return false
	}
	cur := int64(len(v.buf.data))
	switch {
	case n == cur:
		return true
	case n < cur:
		v.buf.data = v.buf.data[:n]
	default:
		grown := make([]byte, n)
		copy(grown, v.buf.data)
		v.buf.data = grown
	}
	return true
}

func (v Value) BytesBufferAppend(more []byte) {
	v.buf.data = append(v.buf.data, more...)
}

// stringCell is the immutable, UTF-8-validated backing store for a
// StringValue.
type stringCell struct {
	s string
}

// NewStringValue allocates a StringValue holding s as given. s is not
// checked for valid UTF-8: invalid input yields a StringValue whose
// payload is invalid UTF-8.
func NewStringValue(s string) Value {
	return Value{typ: TypeStringValue, str: &stringCell{s: s}}
}

func (v Value) StringValueStr() string   { return v.str.s }
func (v Value) StringValueBytes() []byte { return []byte(v.str.s) }

// StringValueCharAt returns the first scalar at or after byte offset
// byteI, or (0, false) if none remains.
func (v Value) StringValueCharAt(byteI int64) (rune, bool) {
	return charAtOrAfter(v.str.s, byteI)
}

func (v Value) StringValueChars() []Value { return charsOf(v.str.s) }

// stringBufferCell is the mutable backing store for a StringBuffer.
type stringBufferCell struct {
	s string
}

// NewStringBuffer allocates a StringBuffer from an initial string.
func NewStringBuffer(s string) Value {
	return Value{typ: TypeStringBuffer, sbuf: &stringBufferCell{s: s}}
}

func (v Value) StringBufferLen() int { return len(v.sbuf.s) }

func (v Value) StringBufferStr() string { return v.sbuf.s }

func (v Value) StringBufferClear() { v.sbuf.s = "" }

func (v Value) StringBufferAppend(s string) { v.sbuf.s += s }

func (v Value) StringBufferCharAt(byteI int64) (rune, bool) {
	return charAtOrAfter(v.sbuf.s, byteI)
}

func (v Value) StringBufferChars() []Value { return charsOf(v.sbuf.s) }

func charAtOrAfter(s string, byteI int64) (rune, bool) {
	if byteI < 0 || byteI >= int64(len(s)) {
		return 0, false
	}
	for i, r := range s {
		if int64(i) >= byteI {
			return r, true
		}
	}
	return 0, false
}

func charsOf(s string) []Value {
	out := make([]Value, 0, len(s))
	for _, r := range s {
		out = append(out, Char(r))
	}
	return out
}
