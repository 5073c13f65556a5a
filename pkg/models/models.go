package models

import (
	"time"

	"github.com/Sriram-PR/md-navbar/pkg/outline"
)

// NavStateEntry stores where a reader left a document
type NavStateEntry struct {
	DocKey      string    `json:"doc_key"`
	Hash        string    `json:"hash"`                   // Last fragment written, including '#'
	ListNo      string    `json:"list_no,omitempty"`      // Active heading when saved
	ScrollTop   float64   `json:"scroll_top"`             // Window scroll offset when saved
	ContentHash string    `json:"content_hash,omitempty"` // SHA-256 of the source the state belongs to
	UpdatedAt   time.Time `json:"updated_at"`
}

// OutlineEntry caches the outline extracted from one source text
type OutlineEntry struct {
	ContentHash string            `json:"content_hash"`
	Extractor   string            `json:"extractor"`
	Headings    []outline.Heading `json:"headings"`
	ExtractedAt time.Time         `json:"extracted_at"`
}

// SourceResult is the outcome of loading and outlining one document
type SourceResult struct {
	DocKey      string            `json:"doc_key" yaml:"doc_key"`
	Location    string            `json:"location" yaml:"location"`
	Status      SourceStatus      `json:"status" yaml:"status"`
	ErrorType   string            `json:"error_type,omitempty" yaml:"error_type,omitempty"` // Error category (on failure)
	Error       string            `json:"error,omitempty" yaml:"error,omitempty"`
	ContentHash string            `json:"content_hash,omitempty" yaml:"content_hash,omitempty"`
	Extractor   string            `json:"extractor" yaml:"extractor"`
	Cached      bool              `json:"cached,omitempty" yaml:"cached,omitempty"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`
	Headings    []outline.Heading `json:"headings" yaml:"headings"`
}

// OutlineReport groups the results of one outline run
type OutlineReport struct {
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Documents   []SourceResult `json:"documents" yaml:"documents"`
}

// Counts returns how many results ended in each status
func (r OutlineReport) Counts() map[SourceStatus]int {
	counts := make(map[SourceStatus]int)
	for _, d := range r.Documents {
		counts[d.Status]++
	}
	return counts
}
