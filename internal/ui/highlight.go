package ui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
)

// DefaultCodeLanguage labels fenced blocks that name no language.
const DefaultCodeLanguage = "text"

func codeStyle() string {
	if hasDarkBackground() {
		return "monokai"
	}
	return "github"
}

// HighlightCode colors code for a terminal. Unknown languages are analysed
// from the content; on any failure the code is returned unchanged.
func HighlightCode(code, language string) string {
	if lexers.Get(language) == nil {
		language = ""
	}
	var sb strings.Builder
	if err := quick.Highlight(&sb, code, language, "terminal256", codeStyle()); err != nil {
		return code
	}
	return strings.TrimRight(sb.String(), "\n")
}

// CodeLabel returns the language shown in a code block header.
func CodeLabel(language string) string {
	if strings.TrimSpace(language) == "" {
		return DefaultCodeLanguage
	}
	return language
}

// RenderCodeBlock renders a header with the language label followed by the
// highlighted code.
func (s *Styles) RenderCodeBlock(block CodeBlock) string {
	return s.CodeHeader.Render(CodeLabel(block.Language)) + "\n" + HighlightCode(block.Code, block.Language)
}
