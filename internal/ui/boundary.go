package ui

import "strings"

// minBoundaryLen is the shortest text worth splitting for caching.
const minBoundaryLen = 20

// FindSafeBoundary returns the byte offset of the last paragraph break in
// text at or after from where the markdown before it is complete: no open
// code fence and no dangling inline marker. It returns -1 if there is none.
func FindSafeBoundary(text string, from int) int {
	if len(text) < minBoundaryLen || from >= len(text) {
		return -1
	}
	if from < 0 {
		from = 0
	}

	pos := len(text)
	for {
		paraEnd := strings.LastIndex(text[:pos], "\n\n")
		if paraEnd == -1 || paraEnd < from {
			return -1
		}
		safe := paraEnd + 2
		if countFences(text[:safe])%2 == 0 && inlineMarkersBalanced(text[:safe]) {
			return safe
		}
		pos = paraEnd
	}
}

// countFences counts lines that start with ``` after leading blanks.
func countFences(text string) int {
	count := 0
	for line := range strings.SplitSeq(text, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			count++
		}
	}
	return count
}

// inlineMarkersBalanced reports whether **, *, _, ~~ and code spans are
// all closed in text.
func inlineMarkersBalanced(text string) bool {
	var bold, italic, underscore, strike bool
	for i := 0; i < len(text); {
		switch {
		case text[i] == '`':
			start := i
			for i < len(text) && text[i] == '`' {
				i++
			}
			fence := text[start:i]
			end := strings.Index(text[i:], fence)
			if end == -1 {
				return false
			}
			i += end + len(fence)
		case strings.HasPrefix(text[i:], "**"):
			bold = !bold
			i += 2
		case text[i] == '*':
			italic = !italic
			i++
		case text[i] == '_':
			underscore = !underscore
			i++
		case strings.HasPrefix(text[i:], "~~"):
			strike = !strike
			i += 2
		default:
			i++
		}
	}
	return !bold && !italic && !underscore && !strike
}

// StreamRenderer renders a growing markdown reply. The complete prefix is
// rendered once and cached; the unfinished tail is word-wrapped as plain
// text until it becomes complete.
type StreamRenderer struct {
	width  int
	stable int
	cached string
}

// NewStreamRenderer creates a renderer for the given wrap width.
func NewStreamRenderer(width int) *StreamRenderer {
	return &StreamRenderer{width: width}
}

// Render returns the display form of content, which must extend the
// content of the previous call. Shorter content resets the cache.
func (r *StreamRenderer) Render(content string) string {
	if len(content) < r.stable {
		r.Reset()
	}
	if safe := FindSafeBoundary(content, r.stable); safe > r.stable {
		r.stable = safe
		r.cached = RenderMarkdown(content[:safe], r.width)
	}

	tail := strings.TrimLeft(content[r.stable:], "\n")
	switch {
	case r.cached == "":
		return Wrap(tail, r.width)
	case tail == "":
		return r.cached
	default:
		return r.cached + "\n\n" + Wrap(tail, r.width)
	}
}

// Finish renders the whole content as markdown.
func (r *StreamRenderer) Finish(content string) string {
	r.Reset()
	return RenderMarkdown(content, r.width)
}

// Reset drops the cached prefix.
func (r *StreamRenderer) Reset() {
	r.stable = 0
	r.cached = ""
}
