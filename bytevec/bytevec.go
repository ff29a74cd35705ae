// Package bytevec provides the append-only byte sink used to assemble class
// files: big-endian primitive puts with doubling growth, in-place patching of
// previously written fields, and modified UTF-8 string encoding.
package bytevec

import (
	"errors"
	"fmt"
)

// MaxUTF8Len is the largest encoded byte length a length-prefixed string may have.
const MaxUTF8Len = 65535

// ErrStringTooLong is returned when an encoded string would not fit its
// 2-byte length prefix.
var ErrStringTooLong = errors.New("encoded string too long")

// ---------------------------------------------------------------------------
// ByteVector: growable big-endian byte buffer
// ---------------------------------------------------------------------------

// ByteVector is a growable byte buffer. The zero value is ready to use.
type ByteVector struct {
	data   []byte // backing storage; len(data) is the capacity
	length int    // number of bytes written
}

// New creates a ByteVector with the given initial capacity.
func New(capacity int) *ByteVector {
	return &ByteVector{data: make([]byte, capacity)}
}

// Len returns the number of bytes written.
func (v *ByteVector) Len() int {
	return v.length
}

// Cap returns the current capacity of the backing storage.
func (v *ByteVector) Cap() int {
	return len(v.data)
}

// Bytes returns the written bytes. The slice aliases the vector's storage
// and is only valid until the next put.
func (v *ByteVector) Bytes() []byte {
	return v.data[:v.length]
}

// enlarge grows the storage so that at least size more bytes fit. Capacity
// doubles, or grows to exactly fit when doubling is not enough.
func (v *ByteVector) enlarge(size int) {
	doubled := 2 * len(v.data)
	needed := v.length + size
	newCap := doubled
	if needed > doubled {
		newCap = needed
	}
	grown := make([]byte, newCap)
	copy(grown, v.data[:v.length])
	v.data = grown
}

func (v *ByteVector) ensure(size int) {
	if v.length+size > len(v.data) {
		v.enlarge(size)
	}
}

// PutByte appends one byte.
func (v *ByteVector) PutByte(b int) {
	v.ensure(1)
	v.data[v.length] = byte(b)
	v.length++
}

// Put11 appends two bytes.
func (v *ByteVector) Put11(b1, b2 int) {
	v.ensure(2)
	v.data[v.length] = byte(b1)
	v.data[v.length+1] = byte(b2)
	v.length += 2
}

// PutShort appends a big-endian 16-bit value.
func (v *ByteVector) PutShort(s int) {
	v.ensure(2)
	v.data[v.length] = byte(s >> 8)
	v.data[v.length+1] = byte(s)
	v.length += 2
}

// Put12 appends one byte followed by a big-endian 16-bit value.
func (v *ByteVector) Put12(b, s int) {
	v.ensure(3)
	v.data[v.length] = byte(b)
	v.data[v.length+1] = byte(s >> 8)
	v.data[v.length+2] = byte(s)
	v.length += 3
}

// PutInt appends a big-endian 32-bit value.
func (v *ByteVector) PutInt(i int) {
	v.ensure(4)
	d := v.data[v.length:]
	d[0] = byte(i >> 24)
	d[1] = byte(i >> 16)
	d[2] = byte(i >> 8)
	d[3] = byte(i)
	v.length += 4
}

// PutLong appends a big-endian 64-bit value.
func (v *ByteVector) PutLong(l int64) {
	v.PutInt(int(int32(l >> 32)))
	v.PutInt(int(int32(l)))
}

// PutByteArray appends b. A nil b appends len zero bytes, which is how
// switch instruction padding is written.
func (v *ByteVector) PutByteArray(b []byte, length int) {
	v.ensure(length)
	if b != nil {
		copy(v.data[v.length:], b[:length])
	} else {
		clear(v.data[v.length : v.length+length])
	}
	v.length += length
}

// PutUTF8 appends a 2-byte length prefix followed by the modified UTF-8
// encoding of s. The prefix is written first and patched once the encoded
// length is known.
func (v *ByteVector) PutUTF8(s string) error {
	start := v.length
	v.PutShort(0)
	v.putModifiedString(s)
	n := v.length - start - 2
	if n > MaxUTF8Len {
		v.length = start
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, n)
	}
	v.SetShort(start, n)
	return nil
}

func (v *ByteVector) putModifiedString(s string) {
	for i := 0; i < len(s); {
		r, size := nextRune(s, i)
		v.putModifiedRune(r)
		i += size
	}
}

func (v *ByteVector) putModifiedRune(r rune) {
	switch {
	case r >= 0x01 && r <= 0x7F:
		v.PutByte(int(r))
	case r <= 0x7FF:
		v.Put11(0xC0|int(r>>6)&0x1F, 0x80|int(r)&0x3F)
	case r <= 0xFFFF:
		v.ensure(3)
		v.data[v.length] = byte(0xE0 | (r>>12)&0x0F)
		v.data[v.length+1] = byte(0x80 | (r>>6)&0x3F)
		v.data[v.length+2] = byte(0x80 | r&0x3F)
		v.length += 3
	default:
		hi, lo := surrogates(r)
		v.putModifiedRune(hi)
		v.putModifiedRune(lo)
	}
}

// ---------------------------------------------------------------------------
// In-place patching
// ---------------------------------------------------------------------------

// SetByte overwrites the byte at offset.
func (v *ByteVector) SetByte(offset, b int) {
	v.data[offset] = byte(b)
}

// SetShort overwrites the 16-bit value at offset.
func (v *ByteVector) SetShort(offset, s int) {
	v.data[offset] = byte(s >> 8)
	v.data[offset+1] = byte(s)
}

// SetInt overwrites the 32-bit value at offset.
func (v *ByteVector) SetInt(offset, i int) {
	v.data[offset] = byte(i >> 24)
	v.data[offset+1] = byte(i >> 16)
	v.data[offset+2] = byte(i >> 8)
	v.data[offset+3] = byte(i)
}

// SetLong overwrites the 64-bit value at offset.
func (v *ByteVector) SetLong(offset int, l int64) {
	v.SetInt(offset, int(int32(l>>32)))
	v.SetInt(offset+4, int(int32(l)))
}
