package config

import "time"

// Extractor names accepted by the extractor settings
const (
	ExtractorPattern  = "pattern"
	ExtractorGoldmark = "goldmark"
)

// Scroll behaviors accepted by navbar.behavior
const (
	BehaviorAuto   = "auto"
	BehaviorSmooth = "smooth"
)

// ContentSelectorAuto asks the loader to recognise the site generator of HTML sources
const ContentSelectorAuto = "auto"

// Source formats accepted by documents.<key>.format
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// NavbarConfig holds the navigation options. At the global level Validate fills every field;
// inside a DocumentConfig nil/empty fields inherit the global value.
type NavbarConfig struct {
	Ordered          *bool         `yaml:"ordered,omitempty"`            // Show list numbers next to items
	HeadingTopOffset *float64      `yaml:"heading_top_offset,omitempty"` // Pixel correction for fixed headers
	UpdateHashAuto   *bool         `yaml:"update_hash_auto,omitempty"`   // Write the hash while scrolling
	HashMode         *bool         `yaml:"hash_mode,omitempty"`          // Master switch for any hash writes
	Declarative      *bool         `yaml:"declarative,omitempty"`        // "<listNo>-<text>" ids instead of "heading-<index>"
	Behavior         string        `yaml:"behavior,omitempty"`           // auto | smooth
	Container        string        `yaml:"container,omitempty"`          // Scroll target, empty = window
	ThrottleWindow   time.Duration `yaml:"throttle_window,omitempty"`
	SettleDelay      time.Duration `yaml:"settle_delay,omitempty"`
}

// NavbarSettings is a NavbarConfig with every option resolved
type NavbarSettings struct {
	Ordered          bool
	HeadingTopOffset float64
	UpdateHashAuto   bool
	HashMode         bool
	Declarative      bool
	Behavior         string
	Container        string
	ThrottleWindow   time.Duration
	SettleDelay      time.Duration
}

// LayoutConfig drives the headless page layout used by simulations
type LayoutConfig struct {
	LineHeight        float64 `yaml:"line_height,omitempty"`
	HeadingLineHeight float64 `yaml:"heading_line_height,omitempty"`
	CharsPerLine      int     `yaml:"chars_per_line,omitempty"`
	BlockGap          float64 `yaml:"block_gap,omitempty"`
	ViewportHeight    float64 `yaml:"viewport_height,omitempty"`
}

// DocumentConfig holds configuration specific to a single document
type DocumentConfig struct {
	Location        string        `yaml:"location"`                   // Local path or http(s) URL
	Format          string        `yaml:"format,omitempty"`           // markdown | html, empty = detect
	ContentSelector string        `yaml:"content_selector,omitempty"` // HTML sources only
	UserAgent       string        `yaml:"user_agent,omitempty"`
	DelayPerHost    time.Duration `yaml:"delay_per_host,omitempty"`
	Extractor       string        `yaml:"extractor,omitempty"`
	RespectRobots   *bool         `yaml:"respect_robots,omitempty"`
	Navbar          NavbarConfig  `yaml:"navbar,omitempty"`
}

// AppConfig holds the global application configuration
type AppConfig struct {
	DefaultUserAgent        string                    `yaml:"default_user_agent"`
	DefaultDelayPerHost     time.Duration             `yaml:"default_delay_per_host"`
	MaxRequestsPerHost      int                       `yaml:"max_requests_per_host"`
	MaxConcurrentSources    int                       `yaml:"max_concurrent_sources"`
	StateDir                string                    `yaml:"state_dir"`
	EnableStateStore        bool                      `yaml:"enable_state_store,omitempty"`
	DBGCInterval            time.Duration             `yaml:"db_gc_interval,omitempty"`
	MaxRetries              int                       `yaml:"max_retries,omitempty"`
	InitialRetryDelay       time.Duration             `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay           time.Duration             `yaml:"max_retry_delay,omitempty"`
	SemaphoreAcquireTimeout time.Duration             `yaml:"semaphore_acquire_timeout,omitempty"`
	RespectRobots           *bool                     `yaml:"respect_robots,omitempty"`
	ContentSelector         string                    `yaml:"content_selector,omitempty"`
	MaxSourceBytes          int64                     `yaml:"max_source_bytes,omitempty"`
	Extractor               string                    `yaml:"extractor,omitempty"`
	HTTPClientSettings      HTTPClientConfig          `yaml:"http_client_settings,omitempty"`
	Navbar                  NavbarConfig              `yaml:"navbar,omitempty"`
	Layout                  LayoutConfig              `yaml:"layout,omitempty"`
	Documents               map[string]DocumentConfig `yaml:"documents"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// DefaultLayout returns the layout used when none is configured
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		LineHeight:        24,
		HeadingLineHeight: 40,
		CharsPerLine:      80,
		BlockGap:          16,
		ViewportHeight:    800,
	}
}

// GetEffectiveNavbar merges a document's navbar overrides onto the global navbar block.
// Call AppConfig.Validate first so global defaults are in place.
func GetEffectiveNavbar(docCfg DocumentConfig, appCfg AppConfig) NavbarSettings {
	global := appCfg.Navbar
	doc := docCfg.Navbar

	s := NavbarSettings{
		Ordered:          pickBool(doc.Ordered, global.Ordered, true),
		HeadingTopOffset: pickFloat(doc.HeadingTopOffset, global.HeadingTopOffset),
		UpdateHashAuto:   pickBool(doc.UpdateHashAuto, global.UpdateHashAuto, false),
		HashMode:         pickBool(doc.HashMode, global.HashMode, false),
		Declarative:      pickBool(doc.Declarative, global.Declarative, false),
		Behavior:         global.Behavior,
		Container:        global.Container,
		ThrottleWindow:   global.ThrottleWindow,
		SettleDelay:      global.SettleDelay,
	}
	if doc.Behavior != "" {
		s.Behavior = doc.Behavior
	}
	if doc.Container != "" {
		s.Container = doc.Container
	}
	if doc.ThrottleWindow > 0 {
		s.ThrottleWindow = doc.ThrottleWindow
	}
	if doc.SettleDelay > 0 {
		s.SettleDelay = doc.SettleDelay
	}
	if s.Behavior == "" {
		s.Behavior = BehaviorAuto
	}
	return s
}

// GetEffectiveExtractor determines which outline extractor a document uses
func GetEffectiveExtractor(docCfg DocumentConfig, appCfg AppConfig) string {
	if docCfg.Extractor != "" {
		return docCfg.Extractor
	}
	if appCfg.Extractor != "" {
		return appCfg.Extractor
	}
	return ExtractorPattern
}

// GetEffectiveContentSelector determines the selector used to cut HTML sources down
func GetEffectiveContentSelector(docCfg DocumentConfig, appCfg AppConfig) string {
	if docCfg.ContentSelector != "" {
		return docCfg.ContentSelector
	}
	if appCfg.ContentSelector != "" {
		return appCfg.ContentSelector
	}
	return ContentSelectorAuto
}

// GetEffectiveUserAgent determines the user agent for remote documents
func GetEffectiveUserAgent(docCfg DocumentConfig, appCfg AppConfig) string {
	if docCfg.UserAgent != "" {
		return docCfg.UserAgent
	}
	return appCfg.DefaultUserAgent
}

// GetEffectiveDelayPerHost determines the politeness delay for remote documents
func GetEffectiveDelayPerHost(docCfg DocumentConfig, appCfg AppConfig) time.Duration {
	if docCfg.DelayPerHost > 0 {
		return docCfg.DelayPerHost
	}
	return appCfg.DefaultDelayPerHost
}

// GetEffectiveRespectRobots determines whether robots.txt gates a remote document
func GetEffectiveRespectRobots(docCfg DocumentConfig, appCfg AppConfig) bool {
	return pickBool(docCfg.RespectRobots, appCfg.RespectRobots, true)
}

func pickBool(override, global *bool, fallback bool) bool {
	if override != nil {
		return *override
	}
	if global != nil {
		return *global
	}
	return fallback
}

func pickFloat(override, global *float64) float64 {
	if override != nil {
		return *override
	}
	if global != nil {
		return *global
	}
	return 0
}
