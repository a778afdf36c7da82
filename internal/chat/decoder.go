package chat

import (
	"strings"
	"unicode/utf8"
)

// Decoder turns an arbitrarily chunked UTF-8 byte stream into text.
//
// A multi-byte character split across two chunks is held back until the
// rest of its bytes arrive, so concatenating every Decode result (plus
// Flush) equals decoding the whole stream at once.
type Decoder struct {
	carry []byte
}

// Decode returns the text for all complete characters seen so far.
// Invalid bytes decode to U+FFFD.
func (d *Decoder) Decode(p []byte) string {
	buf := p
	if len(d.carry) > 0 {
		buf = append(d.carry, p...)
		d.carry = nil
	}

	cut := incompleteTail(buf)
	if cut < len(buf) {
		d.carry = append([]byte(nil), buf[cut:]...)
		buf = buf[:cut]
	}
	return decodeValid(buf)
}

// Flush ends the stream. A dangling partial sequence becomes U+FFFD.
func (d *Decoder) Flush() string {
	if len(d.carry) == 0 {
		return ""
	}
	d.carry = nil
	return string(utf8.RuneError)
}

// Pending reports how many bytes are held back waiting for more input.
func (d *Decoder) Pending() int {
	return len(d.carry)
}

// incompleteTail returns the index where a truncated trailing sequence
// starts, or len(b) when b ends on a character boundary.
func incompleteTail(b []byte) int {
	n := len(b)
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return i
			}
			return n
		}
	}
	return n
}

func decodeValid(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}
