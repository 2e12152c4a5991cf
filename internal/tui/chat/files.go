package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	chatcore "github.com/samsaffron/term-chat/internal/chat"
)

func fileName(path string) string {
	return filepath.Base(path)
}

// attachFiles resolves pattern (a path or glob) and queues the files for the
// next message.
func (m *Model) attachFiles(pattern string) (tea.Model, tea.Cmd) {
	paths, err := chatcore.ExpandAttachments([]string{pattern})
	if err != nil {
		return m.showError(err.Error())
	}
	if len(paths) == 0 {
		return m.showError(fmt.Sprintf("no files match %s", pattern))
	}

	var added []string
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return m.showError(fmt.Sprintf("cannot attach %s: %v", p, err))
		}
		if info.IsDir() {
			continue
		}
		if !containsString(m.files, p) {
			m.files = append(m.files, p)
		}
		added = append(added, fmt.Sprintf("`%s` (%s)", fileName(p), FormatFileSize(info.Size())))
		total += info.Size()
	}
	if len(added) == 0 {
		return m.showError(fmt.Sprintf("no files match %s", pattern))
	}

	return m.showSystemMessage(fmt.Sprintf("Attached %s, %s total. It will be sent with your next message.",
		strings.Join(added, ", "), FormatFileSize(total)))
}

func (m *Model) clearFiles() int {
	n := len(m.files)
	m.files = nil
	return n
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1fGB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1fMB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1fKB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}
