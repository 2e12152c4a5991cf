package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Color palette - consistent across all TUI components
var (
	Green   = lipgloss.Color("10") // success
	Red     = lipgloss.Color("9")  // errors
	Grey    = lipgloss.Color("8")  // muted text
	Blue    = lipgloss.Color("4")  // headers, borders
	White   = lipgloss.Color("15") // header text
	Magenta = lipgloss.Color("13") // assistant label
	Cyan    = lipgloss.Color("14") // user label
)

// Status indicators
const (
	SuccessIcon = "✓"
	FailIcon    = "✗"
	PromptIcon  = "❯"
)

// Styles returns styled text helpers bound to a renderer
type Styles struct {
	renderer *lipgloss.Renderer

	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Success     lipgloss.Style
	Error       lipgloss.Style
	Muted       lipgloss.Style
	Bold        lipgloss.Style
	Highlighted lipgloss.Style

	// Transcript roles
	User      lipgloss.Style
	Assistant lipgloss.Style

	// Code block header and provider group headings
	CodeHeader  lipgloss.Style
	GroupHeader lipgloss.Style
}

// NewStyles creates a new Styles instance for the given output
func NewStyles(output io.Writer) *Styles {
	r := lipgloss.NewRenderer(output)

	return &Styles{
		renderer: r,

		Title: r.NewStyle().
			Bold(true).
			Foreground(White),

		Subtitle: r.NewStyle().
			Foreground(Grey),

		Success: r.NewStyle().
			Foreground(Green),

		Error: r.NewStyle().
			Foreground(Red),

		Muted: r.NewStyle().
			Foreground(Grey),

		Bold: r.NewStyle().
			Bold(true),

		Highlighted: r.NewStyle().
			Bold(true).
			Foreground(Green),

		User: r.NewStyle().
			Bold(true).
			Foreground(Cyan),

		Assistant: r.NewStyle().
			Bold(true).
			Foreground(Magenta),

		CodeHeader: r.NewStyle().
			Foreground(White).
			Background(Blue).
			Padding(0, 1),

		GroupHeader: r.NewStyle().
			Bold(true).
			Foreground(Blue),
	}
}

// DefaultStyles returns styles for stderr (default TUI output)
func DefaultStyles() *Styles {
	return NewStyles(os.Stderr)
}

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}

// Truncate shortens s to maxWidth display cells, ending with an ellipsis
// when it had to cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
