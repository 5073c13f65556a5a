package outline

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var positionalIDPattern = regexp.MustCompile(`heading-\d+`)

// HeadingID is the identifier a heading is bound to on the page.
// Positional ids ("heading-3") are stable across text edits; declarative ids
// ("2.1-Install") are human readable and survive reordering of unrelated sections.
func HeadingID(h Heading, declarative bool) string {
	if declarative {
		return h.ListNo + "-" + h.Text
	}
	return "heading-" + strconv.Itoa(h.Index)
}

// ParseHashID extracts the heading id referenced by a URL fragment.
// The fragment may include its leading '#' and may be percent-encoded. In positional mode the
// first "heading-N" token wins, so fragments such as "#/docs/heading-4" still resolve.
// An empty string means no id could be found.
func ParseHashID(hash string, declarative bool) string {
	var raw string
	if declarative {
		raw = strings.TrimSpace(strings.TrimPrefix(hash, "#"))
	} else {
		raw = positionalIDPattern.FindString(hash)
	}
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Find returns the heading whose id equals id.
func Find(headings []Heading, id string, declarative bool) (Heading, bool) {
	for _, h := range headings {
		if HeadingID(h, declarative) == id {
			return h, true
		}
	}
	return Heading{}, false
}

// FindByListNo returns the heading carrying listNo.
func FindByListNo(headings []Heading, listNo string) (Heading, bool) {
	for _, h := range headings {
		if h.ListNo == listNo {
			return h, true
		}
	}
	return Heading{}, false
}
