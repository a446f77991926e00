package arch

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Registers is a whole register set of one architecture.
type Registers interface {
	// PC returns the program counter.
	PC() uint64
	// Size is the length of the canonical serialization.
	Size() int
	// MarshalBinary returns the canonical serialization: every field in
	// layout order, little-endian.
	MarshalBinary() ([]byte, error)
	// UnmarshalBinary replaces the set from its canonical serialization.
	// The input length must equal Size exactly.
	UnmarshalBinary(data []byte) error
}

// Field is one register in a layout.
type Field struct {
	Name string
	Size int // bytes
}

// Layout is an ordered list of register fields.
type Layout []Field

// Size returns the total serialized size of the layout.
func (l Layout) Size() int {
	n := 0
	for _, f := range l {
		n += f.Size
	}
	return n
}

// Locate returns the byte offset and width of register id.
func (l Layout) Locate(id int) (offset, size int, ok bool) {
	if id < 0 || id >= len(l) {
		return 0, 0, false
	}
	for _, f := range l[:id] {
		offset += f.Size
	}
	return offset, l[id].Size, true
}

// Index returns the register id of the named field, or -1.
func (l Layout) Index(name string) int {
	for i, f := range l {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// repeat appends n fields named prefix0..prefix(n-1).
func (l Layout) repeat(prefix string, n, size int) Layout {
	for i := 0; i < n; i++ {
		l = append(l, Field{Name: fmt.Sprintf("%s%d", prefix, i), Size: size})
	}
	return l
}

// with appends fields of one size.
func (l Layout) with(size int, names ...string) Layout {
	for _, name := range names {
		l = append(l, Field{Name: name, Size: size})
	}
	return l
}

// marshalLE encodes a fixed-size struct of integer and byte-array
// fields in declaration order.
func marshalLE(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(binary.Size(v))
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unmarshalLE is the inverse of marshalLE.  v must be a pointer.
func unmarshalLE(data []byte, v interface{}) error {
	if want := binary.Size(v); len(data) != want {
		return fmt.Errorf("register set is %d bytes, got %d", want, len(data))
	}
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, v)
}
