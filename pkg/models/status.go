package models

// SourceStatus represents the outcome of processing one document
type SourceStatus string

const (
	SourceStatusUnset   SourceStatus = ""        // Zero value = unset/unknown
	SourceStatusPending SourceStatus = "pending" // Queued but not processed
	SourceStatusSuccess SourceStatus = "success" // Loaded and outlined
	SourceStatusFailure SourceStatus = "failure" // Load or conversion failed
	SourceStatusSkipped SourceStatus = "skipped" // Disallowed by robots.txt or size limits
)

// String implements fmt.Stringer for logging
func (s SourceStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s SourceStatus) IsValid() bool {
	switch s {
	case SourceStatusPending, SourceStatusSuccess, SourceStatusFailure, SourceStatusSkipped:
		return true
	}
	return false
}

// IsTerminal returns true once a document needs no further work
func (s SourceStatus) IsTerminal() bool {
	return s == SourceStatusSuccess || s == SourceStatusFailure || s == SourceStatusSkipped
}
