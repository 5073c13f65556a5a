package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// Sentinel errors. Callers wrap them with %w so CategorizeError can classify the result.
var (
	ErrRetryFailed        = errors.New("request failed after all retries") // Wraps the last underlying error
	ErrClientHTTPError    = errors.New("client HTTP error (4xx)")
	ErrServerHTTPError    = errors.New("server HTTP error (5xx)")
	ErrOtherHTTPError     = errors.New("other HTTP error (non-2xx)")
	ErrRobotsDisallowed   = errors.New("disallowed by robots.txt")
	ErrSourceTooLarge     = errors.New("source exceeds size limit")
	ErrContentSelector    = errors.New("content selector not found")
	ErrParsing            = errors.New("parsing error") // URL, HTML, JSON or YAML
	ErrMarkdownConversion = errors.New("failed to convert HTML to markdown")
	ErrFilesystem         = errors.New("filesystem error")
	ErrDatabase           = errors.New("database error")
	ErrConfigValidation   = errors.New("configuration validation error")
	ErrUnknownHeading     = errors.New("unknown heading identifier")
	ErrSessionNotFound    = errors.New("navigation session not found")
)

// WrapErrorf prefixes err with a formatted message, keeping it matchable with errors.Is.
// Returns nil when err is nil.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

type errorCategory struct {
	sentinel error
	name     string
	refine   func(err error) string // optional, returns "" to keep name
}

// Order matters: a retry failure wrapping an HTTP error is reported as a retry failure.
var errorCategories = []errorCategory{
	{ErrRetryFailed, "RetryFailed_Unknown", refineRetry},
	{ErrClientHTTPError, "HTTP_4xx", refineClientStatus},
	{ErrServerHTTPError, "HTTP_5xx", nil},
	{ErrOtherHTTPError, "HTTP_OtherStatus", nil},
	{ErrRobotsDisallowed, "Policy_Robots", nil},
	{ErrSourceTooLarge, "Policy_SourceSize", nil},
	{ErrContentSelector, "Content_SelectorNotFound", nil},
	{ErrParsing, "Content_ParsingOther", refineParsing},
	{ErrMarkdownConversion, "Content_Markdown", nil},
	{ErrFilesystem, "Filesystem_Other", refineFilesystem},
	{ErrDatabase, "Database_Other", nil},
	{ErrConfigValidation, "Config_Validation", nil},
	{ErrUnknownHeading, "Navigation_UnknownHeading", nil},
	{ErrSessionNotFound, "Navigation_SessionNotFound", nil},
	{context.Canceled, "System_ContextCanceled", nil},
	{context.DeadlineExceeded, "System_ContextDeadlineExceeded", nil},
}

// CategorizeError maps an error to a stable category string for logs and tool results.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	for _, c := range errorCategories {
		if !errors.Is(err, c.sentinel) {
			continue
		}
		if c.refine != nil {
			if refined := c.refine(err); refined != "" {
				return refined
			}
		}
		return c.name
	}

	if isTimeout(err) {
		return "Network_Timeout"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Network_ConnectionRefused"
	case strings.Contains(msg, "no such host"):
		return "Network_DNSLookup"
	}
	return "Unknown"
}

// refineRetry inspects the whole error tree since fetch joins the sentinel and the last
// attempt's error with two %w verbs.
func refineRetry(err error) string {
	switch {
	case errors.Is(err, ErrServerHTTPError):
		return "RetryFailed_HTTPServer"
	case errors.Is(err, ErrClientHTTPError):
		return "RetryFailed_HTTPClient"
	case isTimeout(err):
		return "RetryFailed_NetworkTimeout"
	case err == ErrRetryFailed:
		return ""
	}
	return "RetryFailed_NetworkOther"
}

func refineClientStatus(err error) string {
	msg := err.Error()
	for _, code := range []string{"404", "403"} {
		if strings.Contains(msg, " "+code+" ") {
			return "HTTP_" + code
		}
	}
	return ""
}

func refineParsing(err error) string {
	msg := err.Error()
	for _, kind := range []string{"URL", "HTML", "JSON", "YAML"} {
		if strings.Contains(msg, kind) {
			return "Content_Parsing" + kind
		}
	}
	return ""
}

func refineFilesystem(err error) string {
	switch {
	case errors.Is(err, os.ErrPermission):
		return "Filesystem_Permission"
	case errors.Is(err, os.ErrNotExist):
		return "Filesystem_NotExist"
	}
	return ""
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
