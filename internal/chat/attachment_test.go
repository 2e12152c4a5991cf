package chat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestComposeSections(t *testing.T) {
	dir := t.TempDir()
	py := writeFile(t, dir, "main.py", "print('hi')")
	img := writeFile(t, dir, "photo.png", "\x89PNG")
	notes := writeFile(t, dir, "NOTES.TXT", "remember")

	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"no attachments", nil, "look"},
		{"text file is fenced", []string{py}, "look\n\nAttached file (main.py):\n```py\nprint('hi')\n```"},
		{"binary file is mentioned", []string{img}, "look\n\nI've attached a file named \"photo.png\""},
		{"extension match ignores case", []string{notes}, "look\n\nAttached file (NOTES.TXT):\n```TXT\nremember\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compose("look", tt.paths...)
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			if got != tt.want {
				t.Errorf("Compose =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestComposeMissingFileStillSends(t *testing.T) {
	dir := t.TempDir()
	ok := writeFile(t, dir, "a.json", `{"a":1}`)
	missing := filepath.Join(dir, "gone.txt")

	got, err := Compose("hi", missing, ok)
	if err == nil {
		t.Fatal("expected an attachment error")
	}
	var attErr *AttachmentError
	if !errors.As(err, &attErr) {
		t.Fatalf("err %T is not an AttachmentError", err)
	}
	if attErr.Path != missing {
		t.Errorf("Path = %q", attErr.Path)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err does not wrap ErrNotExist: %v", err)
	}
	if !strings.HasPrefix(got, "hi") || !strings.Contains(got, "```json\n{\"a\":1}\n```") {
		t.Errorf("composed = %q", got)
	}
	if strings.Contains(got, "gone.txt") {
		t.Errorf("missing file leaked into message: %q", got)
	}
}

func TestLoadAttachmentDirectory(t *testing.T) {
	if _, err := LoadAttachment(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestExpandAttachments(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "src/a.js", "a")
	b := writeFile(t, dir, "src/deep/b.js", "b")
	writeFile(t, dir, "src/c.css", "c")

	got, err := ExpandAttachments([]string{
		filepath.Join(dir, "src", "**", "*.js"),
		a,
		"plain-missing.txt",
	})
	if err != nil {
		t.Fatalf("ExpandAttachments: %v", err)
	}
	want := []string{a, b, "plain-missing.txt"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
}
