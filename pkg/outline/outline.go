// Package outline derives a numbered heading outline from raw markdown text.
//
// Extraction is line-pattern based rather than a full markdown parse: text before the
// first heading, the document's own "# Title" line, mid-line '#' runs, fenced code blocks
// and inline emphasis markup are stripped before heading lines are matched.
package outline

import (
	"regexp"
	"strings"
)

// Heading is one extracted markdown heading.
type Heading struct {
	Index  int    `json:"index" yaml:"index"`     // 0-based position in document order
	Level  int    `json:"level" yaml:"level"`     // number of leading '#' characters
	Text   string `json:"text" yaml:"text"`       // heading text with emphasis/code markup removed
	ListNo string `json:"list_no" yaml:"list_no"` // dot-joined hierarchical number, e.g. "2.1.3"
}

// Stripping pipeline. Order matters, each pattern runs on the output of the previous one.
var (
	preamblePattern   = regexp.MustCompile(`^[^#]+\n`)                  // everything before the first '#'
	inlineHashPattern = regexp.MustCompile(`[^\n#]+#+\s[^#\n]+\n*`)     // '#' runs that do not start a line
	titlePattern      = regexp.MustCompile(`^#\s[^#\n]*\n+`)            // leading "# Title" line only
	fencePattern      = regexp.MustCompile("```[^`\\n]*\\n+[^`]+```\\n+") // fenced code blocks
	inlineCodePattern = regexp.MustCompile("`([^`\\n]+)`")
	asteriskPattern   = regexp.MustCompile(`\*\*?([^*\n]+)\*\*?`)
	underscorePattern = regexp.MustCompile(`__?([^_\n]+)__?`)

	headingPattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+([^#\n]+)`)
)

// Extract maps raw markdown to its ordered, numbered outline.
// A document without headings yields an empty (nil) slice, not an error.
func Extract(source string) []Heading {
	content := Strip(source)
	if content == "" {
		return nil
	}

	matches := headingPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	headings := make([]Heading, 0, len(matches))
	for _, m := range matches {
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		headings = append(headings, Heading{
			Index: len(headings),
			Level: len(m[1]),
			Text:  text,
		})
	}

	Number(headings)
	return headings
}

// Strip runs the stripping pipeline and returns the text heading lines are matched against.
// Unbalanced fences are left in place; whatever survives may surface as headings.
func Strip(source string) string {
	content := strings.ReplaceAll(source, "\r\n", "\n")
	content = preamblePattern.ReplaceAllString(content, "")
	content = inlineHashPattern.ReplaceAllString(content, "")
	content = titlePattern.ReplaceAllString(content, "")
	content = fencePattern.ReplaceAllString(content, "")
	content = inlineCodePattern.ReplaceAllString(content, "${1}")
	content = asteriskPattern.ReplaceAllString(content, "${1}")
	content = underscorePattern.ReplaceAllString(content, "${1}")
	return strings.TrimSpace(content)
}

// Extractor maps markdown to an outline
type Extractor func(source string) []Heading

// ExtractorByName returns the extractor registered under name: "goldmark" selects the
// AST-based extractor, anything else the pattern pipeline.
func ExtractorByName(name string) Extractor {
	if name == "goldmark" {
		return func(source string) []Heading { return ExtractAST([]byte(source)) }
	}
	return Extract
}
