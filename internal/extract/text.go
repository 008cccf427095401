package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const textCharsPerPage = 3000

type textExtractor struct{}

func (t *textExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	s := string(data)
	return Result{Text: s, Pages: estimatePages(s)}, nil
}

// markdownExtractor walks the goldmark AST and keeps the text content of
// every block, dropping markup such as emphasis markers and link targets.
type markdownExtractor struct{}

func (m *markdownExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	doc := goldmark.New().Parser().Parse(text.NewReader(data))
	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(data))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(data))
				}
				return ast.WalkSkipChildren, nil
			}
			sb.WriteString("\n")
		default:
			if !entering && n.Type() == ast.TypeBlock {
				sb.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return Result{}, err
	}
	out := sb.String()
	return Result{Text: out, Pages: estimatePages(out)}, nil
}

func estimatePages(s string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n == 0 {
		return 0
	}
	return (n + textCharsPerPage - 1) / textCharsPerPage
}
