package ui

import (
	"fmt"
	"strings"
	"time"
)

// StreamingIndicator renders the status line shown while a reply streams.
type StreamingIndicator struct {
	Spinner    string // spinner.View() output
	Phase      string // "Waiting", "Responding"
	Elapsed    time.Duration
	Chars      int // 0 = don't show
	Model      string
	ShowCancel bool // show "(esc to cancel)"
}

// Render returns the formatted streaming indicator string
func (s StreamingIndicator) Render(styles *Styles) string {
	var b strings.Builder

	b.WriteString(s.Spinner)
	b.WriteString(" ")
	b.WriteString(s.Phase)
	b.WriteString("...")

	if s.Chars > 0 {
		fmt.Fprintf(&b, " %d chars |", s.Chars)
	}
	fmt.Fprintf(&b, " %.1fs", s.Elapsed.Seconds())

	if s.Model != "" {
		b.WriteString(" | ")
		b.WriteString(Truncate(s.Model, 32))
	}
	if s.ShowCancel {
		b.WriteString(" ")
		b.WriteString(styles.Muted.Render("(esc to cancel)"))
	}
	return b.String()
}
