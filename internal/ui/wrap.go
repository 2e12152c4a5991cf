package ui

import "github.com/muesli/reflow/wordwrap"

// Wrap word-wraps plain text to width columns. A non-positive width
// returns s unchanged.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}
