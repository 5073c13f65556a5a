package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadingID(t *testing.T) {
	h := Heading{Index: 2, Level: 2, Text: "Install", ListNo: "1.2"}

	assert.Equal(t, "heading-2", HeadingID(h, false))
	assert.Equal(t, "1.2-Install", HeadingID(h, true))
}

func TestParseHashID(t *testing.T) {
	tests := []struct {
		name        string
		hash        string
		declarative bool
		want        string
	}{
		{"positional", "#heading-3", false, "heading-3"},
		{"positional embedded", "#/docs/heading-12?x=1", false, "heading-12"},
		{"positional first wins", "#heading-1-heading-2", false, "heading-1"},
		{"positional missing", "#intro", false, ""},
		{"empty", "", false, ""},
		{"declarative", "#1.2-Install", true, "1.2-Install"},
		{"declarative encoded", "#1.2-Hello%20World", true, "1.2-Hello World"},
		{"declarative unicode", "#1-%E4%BD%A0%E5%A5%BD", true, "1-你好"},
		{"declarative bad escape", "#1-100%", true, "1-100%"},
		{"declarative empty", "#", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHashID(tt.hash, tt.declarative))
		})
	}
}

func TestFind(t *testing.T) {
	headings := Extract("# T\n## A\n### B\n")

	h, ok := Find(headings, "heading-1", false)
	assert.True(t, ok)
	assert.Equal(t, "B", h.Text)

	h, ok = Find(headings, "1.1-B", true)
	assert.True(t, ok)
	assert.Equal(t, 1, h.Index)

	_, ok = Find(headings, "heading-9", false)
	assert.False(t, ok)

	h, ok = FindByListNo(headings, "1")
	assert.True(t, ok)
	assert.Equal(t, "A", h.Text)
}
