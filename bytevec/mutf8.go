package bytevec

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Unpaired surrogates cannot be represented in valid UTF-8. They are kept
// in decoded strings as their 3-byte modified UTF-8 form (ED A0 80 to
// ED BF BF), which the encoder writes back unchanged, so any CONSTANT_Utf8
// survives a read and write byte for byte.

// surrogates splits a supplementary code point into its UTF-16 pair.
func surrogates(r rune) (rune, rune) {
	return utf16.EncodeRune(r)
}

// nextRune decodes the rune starting at s[i]. A kept unpaired surrogate is
// returned as the surrogate code unit with size 3.
func nextRune(s string, i int) (rune, int) {
	r, size := utf8.DecodeRuneInString(s[i:])
	if r == utf8.RuneError && size == 1 && i+2 < len(s) &&
		s[i] == 0xED && s[i+1] >= 0xA0 && s[i+1] <= 0xBF && s[i+2]&0xC0 == 0x80 {
		return rune(s[i]&0x0F)<<12 | rune(s[i+1]&0x3F)<<6 | rune(s[i+2]&0x3F), 3
	}
	return r, size
}

// EncodedLen returns the number of bytes the modified UTF-8 encoding of s
// occupies, not counting the length prefix.
func EncodedLen(s string) int {
	n := 0
	for i := 0; i < len(s); {
		r, size := nextRune(s, i)
		i += size
		switch {
		case r >= 0x01 && r <= 0x7F:
			n++
		case r <= 0x7FF:
			n += 2
		case r <= 0xFFFF:
			n += 3
		default:
			n += 6
		}
	}
	return n
}

// DecodeModifiedUTF8 decodes a modified UTF-8 byte sequence. Surrogate pairs
// are recombined into supplementary code points.
func DecodeModifiedUTF8(b []byte) string {
	return DecodeUTF16(AppendUTF16(make([]uint16, 0, len(b)), b))
}

// DecodeUTF16 converts UTF-16 code units to a string, keeping unpaired
// surrogates in their 3-byte form.
func DecodeUTF16(units []uint16) string {
	buf := make([]byte, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if utf16.IsSurrogate(u) {
			if i+1 < len(units) {
				if r := utf16.DecodeRune(u, rune(units[i+1])); r != utf8.RuneError {
					buf = utf8.AppendRune(buf, r)
					i++
					continue
				}
			}
			buf = append(buf, byte(0xE0|u>>12), byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
			continue
		}
		buf = utf8.AppendRune(buf, u)
	}
	return string(buf)
}

// AppendUTF16 appends the UTF-16 code units encoded by the modified UTF-8
// sequence b to dst. A truncated trailing sequence is dropped.
func AppendUTF16(dst []uint16, b []byte) []uint16 {
	for i := 0; i < len(b); {
		c := b[i]
		switch c >> 4 {
		case 0, 1, 2, 3, 4, 5, 6, 7:
			dst = append(dst, uint16(c))
			i++
		case 12, 13:
			if i+1 >= len(b) {
				return dst
			}
			dst = append(dst, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		default:
			if i+2 >= len(b) {
				return dst
			}
			dst = append(dst, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		}
	}
	return dst
}

// EncodeModifiedUTF8 returns the modified UTF-8 encoding of s without a
// length prefix and without the 65535 byte limit of PutUTF8.
func EncodeModifiedUTF8(s string) []byte {
	v := New(EncodedLen(s))
	v.putModifiedString(s)
	return v.Bytes()
}
