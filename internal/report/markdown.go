package report

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"medical-summary/internal/models"
)

// markdown parses without paragraph transformers, so a line shaped like a
// link reference definition ("[Note]: see report") stays a paragraph.
var markdown = goldmark.New(goldmark.WithParser(parser.NewParser(
	parser.WithBlockParsers(parser.DefaultBlockParsers()...),
	parser.WithInlineParsers(parser.DefaultInlineParsers()...),
)))

// PlainLines strips markdown from model-written section text and returns one
// entry per non-blank line. List markers, emphasis and headings are dropped,
// entities and backslash escapes are resolved, and code is kept verbatim.
// Lines reading "Not documented" are skipped.
func PlainLines(content string) []string {
	source := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var lines []string
	var cur strings.Builder
	flush := func() {
		line := strings.TrimSpace(cur.String())
		cur.Reset()
		if line == "" || strings.EqualFold(line, models.NotDocumented) {
			return
		}
		lines = append(lines, line)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				cur.Write(unescape(node.Segment.Value(source)))
				if node.SoftLineBreak() || node.HardLineBreak() {
					flush()
				}
			}
		case *ast.String:
			if entering {
				cur.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				cur.Write(node.URL(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			if entering {
				for i := 0; i < node.Segments.Len(); i++ {
					seg := node.Segments.At(i)
					cur.Write(seg.Value(source))
				}
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			if entering {
				flush()
				for i := 0; i < n.Lines().Len(); i++ {
					seg := n.Lines().At(i)
					cur.Write(seg.Value(source))
					flush()
				}
			}
			return ast.WalkSkipChildren, nil
		default:
			if n.Type() == ast.TypeBlock {
				flush()
			}
		}
		return ast.WalkContinue, nil
	})
	flush()
	return lines
}

func unescape(b []byte) []byte {
	return util.UnescapePunctuations(util.ResolveNumericReferences(util.ResolveEntityNames(b)))
}

// isEmptySection reports whether a record field carries nothing to render.
func isEmptySection(content string) bool {
	s := strings.TrimSpace(content)
	return s == "" || strings.EqualFold(s, models.NotDocumented)
}
