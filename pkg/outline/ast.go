package outline

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractAST builds the outline from a goldmark parse instead of line patterns.
// It follows the same conventions as Extract: a leading level-1 heading is treated as the
// document title and dropped, empty headings are skipped, and numbering is identical.
// Unlike Extract it recognises setext headings and keeps headings whose text contains '#'.
func ExtractAST(source []byte) []Heading {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var headings []Heading
	first := true
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		isTitle := first && heading.Level == 1
		first = false
		if isTitle {
			return ast.WalkSkipChildren, nil
		}

		headingText := strings.TrimSpace(inlineText(heading, source))
		if headingText != "" {
			headings = append(headings, Heading{
				Index: len(headings),
				Level: heading.Level,
				Text:  headingText,
			})
		}
		return ast.WalkSkipChildren, nil
	})

	Number(headings)
	return headings
}

// inlineText concatenates the literal text under n, descending into emphasis, links and code spans.
func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		default:
			buf.WriteString(inlineText(c, source))
		}
	}
	return buf.String()
}
