package chat

import (
	"fmt"
	"strings"

	chatcore "github.com/samsaffron/term-chat/internal/chat"
	"github.com/samsaffron/term-chat/internal/ui"
)

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryNotice
	entryError
)

// entry is one item of the on-screen history. Assistant entries read their
// text from the conversation transcript through slot.
type entry struct {
	kind  entryKind
	text  string
	files []string // attached file names for user entries
	slot  chatcore.SlotID
	final bool
}

func (m *Model) entryText(e entry) string {
	if e.kind != entryAssistant {
		return e.text
	}
	msg, ok := m.conv.Transcript().Get(e.slot)
	if !ok {
		return ""
	}
	return msg.Content
}

// renderEntry renders one history entry for the given width.
func (m *Model) renderEntry(e entry, width int) string {
	switch e.kind {
	case entryUser:
		var b strings.Builder
		b.WriteString(m.styles.User.Render(ui.PromptIcon + " "))
		b.WriteString(ui.Wrap(e.text, width-2))
		if len(e.files) > 0 {
			b.WriteString("\n")
			b.WriteString(m.styles.Muted.Render("  attached: " + strings.Join(e.files, ", ")))
		}
		return b.String()

	case entryAssistant:
		content := m.entryText(e)
		var body string
		if e.final {
			body = ui.RenderMarkdown(content, width)
		} else {
			body = m.streamRenderer.Render(content)
		}
		out := m.styles.Assistant.Render("assistant") + "\n" + body
		if e.final {
			if footer := m.codeFooter(content); footer != "" {
				out += "\n" + footer
			}
		}
		return out

	case entryError:
		return m.styles.Error.Render(ui.FailIcon + " " + e.text)

	default:
		return m.styles.Muted.Render(ui.RenderMarkdown(e.text, width))
	}
}

// codeFooter lists the code blocks of a reply with their copy command.
func (m *Model) codeFooter(content string) string {
	blocks := ui.ExtractCodeBlocks(content)
	if len(blocks) == 0 {
		return ""
	}
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = m.styles.CodeHeader.Render(fmt.Sprintf("%d %s", i+1, b.Language))
	}
	return strings.Join(parts, " ") + m.styles.Muted.Render("  /copy N to copy a block")
}

// renderHistory renders every entry separated by blank lines.
func (m *Model) renderHistory() string {
	width := m.contentWidth()
	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		parts = append(parts, m.renderEntry(e, width))
	}
	return strings.Join(parts, "\n\n")
}

// lastReply returns the most recent assistant text, if any.
func (m *Model) lastReply() (string, bool) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].kind == entryAssistant {
			return m.entryText(m.entries[i]), true
		}
	}
	return "", false
}
