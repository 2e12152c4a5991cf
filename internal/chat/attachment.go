package chat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// textExtensions are inlined into the message; anything else is only named.
var textExtensions = map[string]bool{
	".txt":  true,
	".js":   true,
	".py":   true,
	".html": true,
	".css":  true,
	".json": true,
}

// Attachment is a local file prepared for a message.
type Attachment struct {
	Path    string
	Name    string
	Content string // empty unless Text
	Text    bool
	Size    int64
}

// AttachmentError reports a file that could not be attached. The message is
// still sent without it.
type AttachmentError struct {
	Path string
	Err  error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("could not read attached file %s: %v", e.Path, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// IsTextFile reports whether name is inlined rather than just mentioned.
func IsTextFile(name string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}

// LoadAttachment stats path and, for text files, reads its content.
func LoadAttachment(path string) (*Attachment, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &AttachmentError{Path: path, Err: err}
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, &AttachmentError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &AttachmentError{Path: path, Err: errors.New("is a directory")}
	}

	att := &Attachment{
		Path: absPath,
		Name: filepath.Base(absPath),
		Text: IsTextFile(absPath),
		Size: info.Size(),
	}
	if !att.Text {
		return att, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &AttachmentError{Path: path, Err: err}
	}
	att.Content = string(content)
	return att, nil
}

// Section renders the text appended to a message for this attachment.
func (a *Attachment) Section() string {
	if !a.Text {
		return fmt.Sprintf("\n\nI've attached a file named \"%s\"", a.Name)
	}
	lang := strings.TrimPrefix(filepath.Ext(a.Name), ".")
	if lang == "" {
		lang = "text"
	}
	return fmt.Sprintf("\n\nAttached file (%s):\n```%s\n%s\n```", a.Name, lang, a.Content)
}

// Compose appends each attachment's section to content. Files that fail to
// load are skipped and reported in the returned error, which joins one
// *AttachmentError per failure; the composed text is usable either way.
func Compose(content string, paths ...string) (string, error) {
	var sb strings.Builder
	sb.WriteString(content)

	var errs []error
	for _, p := range paths {
		att, err := LoadAttachment(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sb.WriteString(att.Section())
	}
	return sb.String(), errors.Join(errs...)
}

// ExpandAttachments resolves glob patterns (including "**") to file paths.
// Patterns without glob characters pass through so missing files surface as
// AttachmentErrors later.
func ExpandAttachments(patterns []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			if !seen[pattern] {
				seen[pattern] = true
				out = append(out, pattern)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}
