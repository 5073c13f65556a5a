// Package detect recognises documentation site generators in HTML sources and picks the
// element holding the article, so headings from navigation chrome stay out of the outline.
package detect

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Framework names a documentation site generator
type Framework string

const (
	FrameworkUnknown     Framework = "unknown"
	FrameworkDocusaurus  Framework = "docusaurus"
	FrameworkMkDocs      Framework = "mkdocs"
	FrameworkSphinx      Framework = "sphinx"
	FrameworkGitBook     Framework = "gitbook"
	FrameworkReadTheDocs Framework = "readthedocs"
)

// Permalink anchors every generator may place inside headings
var commonNoise = []string{"a.headerlink", "a.anchor", "a.hash-link"}

// Candidates tried in order when no framework is recognised
var fallbackSelectors = []string{"main article", "article", "main", "[role='main']", "body"}

// Result describes where the content of a page lives
type Result struct {
	Framework Framework
	Selectors []string // Tried in order; the first with a match wins
	Noise     []string // Removed from the content before conversion
	Fallback  bool     // No framework recognised
}

// Select returns the first element matched by the result's selectors, with its noise
// removed, and the selector that matched. ok is false when nothing matches.
func (r Result) Select(doc *goquery.Document) (content *goquery.Selection, selector string, ok bool) {
	for _, selector := range r.Selectors {
		selection := doc.Find(selector)
		if selection.Length() == 0 {
			continue
		}
		content = selection.First()
		for _, noise := range r.Noise {
			content.Find(noise).Remove()
		}
		return content, selector, true
	}
	return nil, "", false
}

// Detector resolves content selectors, remembering the result per host
type Detector struct {
	mu    sync.RWMutex
	cache map[string]Result
	log   *logrus.Entry
}

// NewDetector creates a detector with an empty cache
func NewDetector(log *logrus.Entry) *Detector {
	return &Detector{cache: make(map[string]Result), log: log}
}

// Resolve turns a configured selector into a Result. "auto" runs detection; anything else is
// used as given (a comma-separated list is tried in order) with the common permalink noise.
func (d *Detector) Resolve(doc *goquery.Document, selector, host string) Result {
	if !IsAutoSelector(selector) {
		return Result{Framework: FrameworkUnknown, Selectors: splitSelectors(selector), Noise: commonNoise}
	}
	return d.Detect(doc, host)
}

// Detect recognises the framework of doc. Results for remote hosts are cached; host is empty
// for local files, which are always inspected.
func (d *Detector) Detect(doc *goquery.Document, host string) Result {
	if host != "" {
		d.mu.RLock()
		cached, ok := d.cache[host]
		d.mu.RUnlock()
		if ok {
			return cached
		}
	}

	result := Result{Framework: FrameworkUnknown, Selectors: fallbackSelectors, Noise: commonNoise, Fallback: true}
	html, _ := doc.Html()
	for _, sig := range frameworkSignatures {
		if sig.matches(doc, strings.ToLower(html)) {
			result = Result{
				Framework: sig.Framework,
				Selectors: append(append([]string(nil), sig.Selectors...), fallbackSelectors...),
				Noise:     append(append([]string(nil), commonNoise...), sig.Noise...),
			}
			break
		}
	}

	fields := logrus.Fields{"host": host, "framework": result.Framework}
	if result.Fallback {
		d.log.WithFields(fields).Debug("No documentation framework recognised, using generic selectors")
	} else {
		d.log.WithFields(fields).Debug("Detected documentation framework")
	}

	if host != "" {
		d.mu.Lock()
		d.cache[host] = result
		d.mu.Unlock()
	}
	return result
}

// Cached returns how many hosts have a remembered result
func (d *Detector) Cached() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}

// IsAutoSelector reports whether selector requests detection
func IsAutoSelector(selector string) bool {
	return strings.EqualFold(strings.TrimSpace(selector), "auto")
}

func splitSelectors(selector string) []string {
	var out []string
	for _, part := range strings.Split(selector, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return []string{"body"}
	}
	return out
}
