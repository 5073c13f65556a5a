package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 {
	return &f
}

func validatedApp(t *testing.T, cfg AppConfig) AppConfig {
	t.Helper()
	_, err := cfg.Validate()
	require.NoError(t, err)
	return cfg
}

func TestGetEffectiveNavbar_Defaults(t *testing.T) {
	app := validatedApp(t, AppConfig{})

	s := GetEffectiveNavbar(DocumentConfig{}, app)

	assert.Equal(t, NavbarSettings{
		Ordered:        true,
		Behavior:       BehaviorAuto,
		ThrottleWindow: 300 * time.Millisecond,
		SettleDelay:    500 * time.Millisecond,
	}, s)
}

func TestGetEffectiveNavbar_DocumentOverrides(t *testing.T) {
	app := validatedApp(t, AppConfig{
		Navbar: NavbarConfig{
			HashMode:         boolPtr(true),
			HeadingTopOffset: floatPtr(64),
			Container:        "#content",
		},
	})
	doc := DocumentConfig{
		Navbar: NavbarConfig{
			Ordered:        boolPtr(false),
			Declarative:    boolPtr(true),
			UpdateHashAuto: boolPtr(true),
			Behavior:       BehaviorSmooth,
			SettleDelay:    time.Second,
		},
	}

	s := GetEffectiveNavbar(doc, app)

	assert.False(t, s.Ordered)
	assert.True(t, s.Declarative)
	assert.True(t, s.UpdateHashAuto)
	assert.True(t, s.HashMode, "unset override inherits global")
	assert.Equal(t, 64.0, s.HeadingTopOffset)
	assert.Equal(t, "#content", s.Container)
	assert.Equal(t, BehaviorSmooth, s.Behavior)
	assert.Equal(t, time.Second, s.SettleDelay)
	assert.Equal(t, 300*time.Millisecond, s.ThrottleWindow)
}

func TestGetEffectiveExtractor(t *testing.T) {
	tests := []struct {
		name     string
		docCfg   DocumentConfig
		appCfg   AppConfig
		expected string
	}{
		{"document overrides global", DocumentConfig{Extractor: ExtractorGoldmark}, AppConfig{Extractor: ExtractorPattern}, ExtractorGoldmark},
		{"document empty uses global", DocumentConfig{}, AppConfig{Extractor: ExtractorGoldmark}, ExtractorGoldmark},
		{"both empty uses pattern", DocumentConfig{}, AppConfig{}, ExtractorPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetEffectiveExtractor(tt.docCfg, tt.appCfg))
		})
	}
}

func TestGetEffectiveContentSelector(t *testing.T) {
	assert.Equal(t, "main", GetEffectiveContentSelector(DocumentConfig{ContentSelector: "main"}, AppConfig{ContentSelector: "article"}))
	assert.Equal(t, "article", GetEffectiveContentSelector(DocumentConfig{}, AppConfig{ContentSelector: "article"}))
	assert.Equal(t, ContentSelectorAuto, GetEffectiveContentSelector(DocumentConfig{}, AppConfig{}))
}

func TestGetEffectiveRespectRobots(t *testing.T) {
	tests := []struct {
		name     string
		docCfg   DocumentConfig
		appCfg   AppConfig
		expected bool
	}{
		{"document disabled overrides global enabled", DocumentConfig{RespectRobots: boolPtr(false)}, AppConfig{RespectRobots: boolPtr(true)}, false},
		{"document nil uses global disabled", DocumentConfig{}, AppConfig{RespectRobots: boolPtr(false)}, false},
		{"both nil respects robots", DocumentConfig{}, AppConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetEffectiveRespectRobots(tt.docCfg, tt.appCfg))
		})
	}
}

func TestGetEffectiveUserAgentAndDelay(t *testing.T) {
	app := AppConfig{DefaultUserAgent: "md-navbar/1.0", DefaultDelayPerHost: time.Second}

	assert.Equal(t, "md-navbar/1.0", GetEffectiveUserAgent(DocumentConfig{}, app))
	assert.Equal(t, "custom", GetEffectiveUserAgent(DocumentConfig{UserAgent: "custom"}, app))
	assert.Equal(t, time.Second, GetEffectiveDelayPerHost(DocumentConfig{}, app))
	assert.Equal(t, 2*time.Second, GetEffectiveDelayPerHost(DocumentConfig{DelayPerHost: 2 * time.Second}, app))
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]string{
		"README.md":                          FormatMarkdown,
		"docs/guide.markdown":                FormatMarkdown,
		"notes.txt":                          FormatMarkdown,
		"page.html":                          FormatHTML,
		"https://example.com/docs/":          FormatHTML,
		"https://example.com/raw/README.md":  FormatMarkdown,
		"https://example.com/a.md?plain=1":   FormatMarkdown,
		"HTTP://EXAMPLE.COM/INDEX.HTM":       FormatHTML,
	}
	for location, want := range tests {
		t.Run(location, func(t *testing.T) {
			assert.Equal(t, want, DetectFormat(location))
		})
	}
}
