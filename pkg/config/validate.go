package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

const (
	defaultThrottleWindow = 300 * time.Millisecond
	defaultSettleDelay    = 500 * time.Millisecond
	defaultMaxSourceBytes = 50 * 1024 * 1024
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// MaxConcurrentSources
	if c.MaxConcurrentSources <= 0 {
		warnings = append(warnings, "max_concurrent_sources should be > 0, defaulting to 4")
		c.MaxConcurrentSources = 4
	}

	// MaxRequestsPerHost
	if c.MaxRequestsPerHost <= 0 {
		c.MaxRequestsPerHost = 2
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './navbar_state'")
		c.StateDir = "./navbar_state"
	}

	// DBGCInterval
	if c.DBGCInterval < 0 {
		warnings = append(warnings, "db_gc_interval cannot be negative, disabling periodic GC")
		c.DBGCInterval = 0
	}

	// MaxRetries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 3
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}

	// InitialRetryDelay > MaxRetryDelay check
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	// SemaphoreAcquireTimeout
	if c.SemaphoreAcquireTimeout <= 0 {
		c.SemaphoreAcquireTimeout = 30 * time.Second
	}

	// RespectRobots
	if c.RespectRobots == nil {
		respect := true
		c.RespectRobots = &respect
	}

	// ContentSelector
	if c.ContentSelector == "" {
		c.ContentSelector = ContentSelectorAuto
	}

	// MaxSourceBytes
	if c.MaxSourceBytes < 0 {
		warnings = append(warnings, "max_source_bytes cannot be negative, setting to 0 (unlimited)")
		c.MaxSourceBytes = 0
	} else if c.MaxSourceBytes == 0 {
		c.MaxSourceBytes = defaultMaxSourceBytes
	}

	// Extractor
	switch c.Extractor {
	case "":
		c.Extractor = ExtractorPattern
	case ExtractorPattern, ExtractorGoldmark:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown extractor %q, defaulting to '%s'", c.Extractor, ExtractorPattern))
		c.Extractor = ExtractorPattern
	}

	warnings = append(warnings, c.Navbar.applyDefaults()...)
	c.Layout.applyDefaults()
	c.validateHTTPClientSettings()

	return warnings, nil // AppConfig validation never fails fatally
}

// applyDefaults fills every unset global navbar option
func (n *NavbarConfig) applyDefaults() (warnings []string) {
	if n.Ordered == nil {
		n.Ordered = boolPtr(true)
	}
	if n.HeadingTopOffset == nil {
		zero := 0.0
		n.HeadingTopOffset = &zero
	}
	if n.UpdateHashAuto == nil {
		n.UpdateHashAuto = boolPtr(false)
	}
	if n.HashMode == nil {
		n.HashMode = boolPtr(false)
	}
	if n.Declarative == nil {
		n.Declarative = boolPtr(false)
	}
	if *n.UpdateHashAuto && !*n.HashMode {
		warnings = append(warnings, "navbar.update_hash_auto has no effect while navbar.hash_mode is false")
	}
	warnings = append(warnings, n.validateOverrides("navbar")...)
	if n.Behavior == "" {
		n.Behavior = BehaviorAuto
	}
	if n.ThrottleWindow <= 0 {
		n.ThrottleWindow = defaultThrottleWindow
	}
	if n.SettleDelay <= 0 {
		n.SettleDelay = defaultSettleDelay
	}
	return warnings
}

// validateOverrides checks fields that are valid at both the global and the document level
func (n *NavbarConfig) validateOverrides(scope string) (warnings []string) {
	if n.Behavior != "" && n.Behavior != BehaviorAuto && n.Behavior != BehaviorSmooth {
		warnings = append(warnings, fmt.Sprintf("%s.behavior %q is not auto|smooth, using auto", scope, n.Behavior))
		n.Behavior = BehaviorAuto
	}
	if n.ThrottleWindow < 0 {
		warnings = append(warnings, fmt.Sprintf("%s.throttle_window cannot be negative, using default", scope))
		n.ThrottleWindow = 0
	}
	if n.SettleDelay < 0 {
		warnings = append(warnings, fmt.Sprintf("%s.settle_delay cannot be negative, using default", scope))
		n.SettleDelay = 0
	}
	return warnings
}

// applyDefaults replaces non-positive layout metrics with DefaultLayout values
func (l *LayoutConfig) applyDefaults() {
	d := DefaultLayout()
	if l.LineHeight <= 0 {
		l.LineHeight = d.LineHeight
	}
	if l.HeadingLineHeight <= 0 {
		l.HeadingLineHeight = d.HeadingLineHeight
	}
	if l.CharsPerLine <= 0 {
		l.CharsPerLine = d.CharsPerLine
	}
	if l.BlockGap <= 0 {
		l.BlockGap = d.BlockGap
	}
	if l.ViewportHeight <= 0 {
		l.ViewportHeight = d.ViewportHeight
	}
}

// WithDefaults returns a copy of l with unset metrics filled in
func (l LayoutConfig) WithDefaults() LayoutConfig {
	l.applyDefaults()
	return l
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

// Validate checks DocumentConfig fields and applies defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place (format detection, override clean-up).
func (c *DocumentConfig) Validate() (warnings []string, err error) {
	// Required: Location
	c.Location = strings.TrimSpace(c.Location)
	if c.Location == "" {
		return nil, fmt.Errorf("%w: document has no location", utils.ErrConfigValidation)
	}

	if IsRemote(c.Location) {
		u, parseErr := url.Parse(c.Location)
		if parseErr != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: invalid document URL %q", utils.ErrConfigValidation, c.Location)
		}
	}

	// Format
	switch strings.ToLower(c.Format) {
	case "":
		c.Format = DetectFormat(c.Location)
	case FormatMarkdown, "md":
		c.Format = FormatMarkdown
	case FormatHTML, "htm":
		c.Format = FormatHTML
	default:
		return nil, fmt.Errorf("%w: unknown document format %q", utils.ErrConfigValidation, c.Format)
	}

	// Extractor
	if c.Extractor != "" && c.Extractor != ExtractorPattern && c.Extractor != ExtractorGoldmark {
		warnings = append(warnings, fmt.Sprintf("unknown extractor %q, inheriting global extractor", c.Extractor))
		c.Extractor = ""
	}

	// DelayPerHost
	if c.DelayPerHost < 0 {
		warnings = append(warnings, "document delay_per_host cannot be negative, inheriting global delay")
		c.DelayPerHost = 0
	}

	warnings = append(warnings, c.Navbar.validateOverrides("document navbar")...)
	return warnings, nil
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// DetectFormat guesses a document's format from its location. Remote locations without an
// explicit .md/.markdown suffix are treated as HTML pages.
func DetectFormat(location string) string {
	path := location
	if IsRemote(location) {
		if u, err := url.Parse(location); err == nil {
			path = u.Path
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return FormatMarkdown
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	}
	if IsRemote(location) {
		return FormatHTML
	}
	return FormatMarkdown
}

func boolPtr(b bool) *bool {
	return &b
}
