// Package sse turns a text/event-stream byte stream into lines and typed events.
package sse

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LineDecoder converts byte fragments of arbitrary size into complete text lines.
// A rune split across two fragments is held back until the rest of it arrives.
type LineDecoder struct {
	dec     *encoding.Decoder
	carry   []byte // undecoded tail: an incomplete UTF-8 sequence
	pending strings.Builder
	closed  bool
}

// NewLineDecoder returns a decoder for a single stream.
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{dec: unicode.UTF8.NewDecoder()}
}

// Feed decodes p and returns every line completed by it, without line terminators.
// The trailing fragment after the last newline is kept for the next call.
func (d *LineDecoder) Feed(p []byte) []string {
	if d.closed || len(p) == 0 {
		return nil
	}

	src := p
	if len(d.carry) > 0 {
		src = append(d.carry, p...)
		d.carry = nil
	}

	text, rest := d.decode(src)
	if len(rest) > 0 {
		d.carry = append([]byte(nil), rest...)
	}
	if text == "" {
		return nil
	}

	d.pending.WriteString(text)
	buffered := d.pending.String()
	idx := strings.LastIndexByte(buffered, '\n')
	if idx < 0 {
		return nil
	}

	complete := buffered[:idx]
	d.pending.Reset()
	d.pending.WriteString(buffered[idx+1:])

	lines := strings.Split(complete, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Close ends the stream. The unterminated trailing fragment is dropped; it is returned
// only so callers can report it.
func (d *LineDecoder) Close() string {
	if d.closed {
		return ""
	}
	d.closed = true
	if len(d.carry) > 0 {
		tail, _, _ := transform.Bytes(d.dec, d.carry)
		d.pending.Write(tail)
		d.carry = nil
	}
	discarded := d.pending.String()
	d.pending.Reset()
	return discarded
}

// decode transforms as much of src as forms complete runes and returns the
// undecoded remainder.
func (d *LineDecoder) decode(src []byte) (string, []byte) {
	// Worst case every byte is invalid and becomes a 3-byte U+FFFD.
	dst := make([]byte, len(src)*3+utf8.UTFMax)
	nDst, nSrc, err := d.dec.Transform(dst, src, false)
	if err != nil && !errors.Is(err, transform.ErrShortSrc) {
		// The UTF-8 decoder only reports short buffers; anything else means a
		// corrupted state, so fall back to a lossy conversion of the input.
		d.dec.Reset()
		return strings.ToValidUTF8(string(src), "�"), nil
	}
	return string(dst[:nDst]), src[nSrc:]
}
