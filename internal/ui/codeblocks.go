package ui

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is one fenced code block of a message.
type CodeBlock struct {
	Language string
	Code     string
}

var markdownParser = goldmark.New().Parser()

// ExtractCodeBlocks returns the fenced code blocks of markdown in document
// order. An unterminated fence runs to the end of the input.
func ExtractCodeBlocks(markdown string) []CodeBlock {
	src := []byte(markdown)
	doc := markdownParser.Parse(text.NewReader(src))

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var code strings.Builder
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			code.Write(seg.Value(src))
		}
		blocks = append(blocks, CodeBlock{
			Language: CodeLabel(string(fenced.Language(src))),
			Code:     strings.TrimSuffix(code.String(), "\n"),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}
