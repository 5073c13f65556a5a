package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// signature lists the markers that identify a framework. Any single marker is enough.
type signature struct {
	Framework    Framework
	Selectors    []string // Content containers, most specific first
	Noise        []string // Framework chrome that renders inside the content container
	Attributes   []string // Attribute presence, e.g. "data-docusaurus"
	Classes      []string // Class names; a trailing '*' matches by prefix
	Scripts      []string // Substrings of script src values
	HTMLPatterns []string // Lowercase substrings of the raw HTML
}

func (sig signature) matches(doc *goquery.Document, lowerHTML string) bool {
	for _, attr := range sig.Attributes {
		if doc.Find("[" + attr + "]").Length() > 0 {
			return true
		}
	}
	for _, class := range sig.Classes {
		if prefix, ok := strings.CutSuffix(class, "*"); ok {
			if hasClassPrefix(doc, prefix) {
				return true
			}
		} else if doc.Find("."+class).Length() > 0 {
			return true
		}
	}
	for _, pattern := range sig.Scripts {
		matched := doc.Find("script[src]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			src, _ := s.Attr("src")
			return strings.Contains(src, pattern)
		})
		if matched.Length() > 0 {
			return true
		}
	}
	for _, pattern := range sig.HTMLPatterns {
		if strings.Contains(lowerHTML, pattern) {
			return true
		}
	}
	return false
}

func hasClassPrefix(doc *goquery.Document, prefix string) bool {
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		for _, c := range strings.Fields(class) {
			if strings.HasPrefix(c, prefix) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// Order matters: ReadTheDocs pages are built by Sphinx, so they are checked first.
var frameworkSignatures = []signature{
	{
		Framework:    FrameworkDocusaurus,
		Selectors:    []string{".theme-doc-markdown", "article[class*='theme-doc']", "article.markdown", "main article"},
		Noise:        []string{".theme-doc-toc-mobile", "nav.pagination-nav", ".theme-doc-breadcrumbs"},
		Attributes:   []string{"data-docusaurus", "data-docusaurus-root-container"},
		Classes:      []string{"docusaurus-wrapper", "theme-doc-markdown"},
		HTMLPatterns: []string{"__docusaurus", "docusaurus.io"},
	},
	{
		Framework:    FrameworkMkDocs,
		Selectors:    []string{"article.md-content__inner", ".md-content article", ".md-content"},
		Noise:        []string{".md-source-file", "a.md-content__button"},
		Attributes:   []string{"data-md-component", "data-md-color-scheme"},
		Classes:      []string{"md-content", "md-main"},
		HTMLPatterns: []string{"mkdocs", "material for mkdocs"},
	},
	{
		Framework:    FrameworkReadTheDocs,
		Selectors:    []string{".rst-content div[role='main']", ".rst-content", "div[role='main']", ".document"},
		Noise:        []string{"div[role='navigation']", ".rst-footer-buttons"},
		Classes:      []string{"rst-content", "wy-nav-content"},
		Scripts:      []string{"readthedocs", "rtd"},
		HTMLPatterns: []string{"readthedocs.org", "readthedocs.io", "sphinx-rtd-theme"},
	},
	{
		Framework:    FrameworkSphinx,
		Selectors:    []string{"article.bd-article", "div.body", "div.document", "main.bd-main"},
		Noise:        []string{".bd-toc", ".prev-next-area"},
		Classes:      []string{"sphinxsidebar", "sphinx-tabs"},
		Scripts:      []string{"searchindex.js", "_static/sphinx"},
		HTMLPatterns: []string{"created using sphinx", "sphinx-doc.org", "_static/alabaster", "_static/pygments"},
	},
	{
		Framework:    FrameworkGitBook,
		Selectors:    []string{"section.normal.markdown-section", ".page-inner section", "main[class*='gitbook']"},
		Noise:        []string{".navigation"},
		Classes:      []string{"gitbook*", "markdown-section"},
		HTMLPatterns: []string{"gitbook", "gb-page"},
	},
}
