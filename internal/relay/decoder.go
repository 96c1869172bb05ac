package relay

import "unicode/utf8"

// Decoder turns a byte stream into text chunks that never end in the middle
// of a UTF-8 sequence. Incomplete trailing bytes of one chunk are held back
// and prepended to the next. Invalid bytes are passed through unchanged.
type Decoder struct {
	pending []byte
}

// Decode returns the longest prefix of pending+p that ends on a character
// boundary and keeps the remainder for the next call.
func (d *Decoder) Decode(p []byte) string {
	buf := p
	if len(d.pending) > 0 {
		buf = append(d.pending, p...)
		d.pending = nil
	}

	n := completePrefix(buf)
	if n < len(buf) {
		d.pending = append([]byte(nil), buf[n:]...)
	}
	return string(buf[:n])
}

// Flush returns any held-back bytes and resets the decoder.
func (d *Decoder) Flush() []byte {
	rest := d.pending
	d.pending = nil
	return rest
}

// completePrefix reports how many leading bytes of b end on a rune boundary.
// Only a genuinely incomplete sequence at the tail is excluded.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
