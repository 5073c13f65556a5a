package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

func TestAppConfig_Validate_Defaults(t *testing.T) {
	cfg := AppConfig{} // Zero value
	warnings, err := cfg.Validate()

	require.NoError(t, err)

	// Check defaults applied
	assert.Equal(t, 4, cfg.MaxConcurrentSources)
	assert.Equal(t, 2, cfg.MaxRequestsPerHost)
	assert.Equal(t, "./navbar_state", cfg.StateDir)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.InitialRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.SemaphoreAcquireTimeout)
	require.NotNil(t, cfg.RespectRobots)
	assert.True(t, *cfg.RespectRobots)
	assert.Equal(t, ContentSelectorAuto, cfg.ContentSelector)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxSourceBytes)
	assert.Equal(t, ExtractorPattern, cfg.Extractor)

	// Navbar defaults
	require.NotNil(t, cfg.Navbar.Ordered)
	assert.True(t, *cfg.Navbar.Ordered)
	assert.False(t, *cfg.Navbar.HashMode)
	assert.False(t, *cfg.Navbar.UpdateHashAuto)
	assert.False(t, *cfg.Navbar.Declarative)
	assert.Equal(t, 0.0, *cfg.Navbar.HeadingTopOffset)
	assert.Equal(t, BehaviorAuto, cfg.Navbar.Behavior)
	assert.Equal(t, 300*time.Millisecond, cfg.Navbar.ThrottleWindow)
	assert.Equal(t, 500*time.Millisecond, cfg.Navbar.SettleDelay)

	// Layout and HTTP client defaults
	assert.Equal(t, DefaultLayout(), cfg.Layout)
	assert.Equal(t, 45*time.Second, cfg.HTTPClientSettings.Timeout)
	assert.Equal(t, 100, cfg.HTTPClientSettings.MaxIdleConns)
	assert.Equal(t, 2, cfg.HTTPClientSettings.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, cfg.HTTPClientSettings.IdleConnTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPClientSettings.TLSHandshakeTimeout)
	assert.Equal(t, 1*time.Second, cfg.HTTPClientSettings.ExpectContinueTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTPClientSettings.DialerTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientSettings.DialerKeepAlive)

	// Check warnings generated
	assert.True(t, containsWarning(warnings, "max_concurrent_sources should be > 0"))
	assert.True(t, containsWarning(warnings, "state_dir is empty"))
}

func TestAppConfig_Validate_ValidConfig(t *testing.T) {
	cfg := AppConfig{
		MaxConcurrentSources: 8,
		StateDir:             "/state",
		MaxRetries:           5,
		InitialRetryDelay:    2 * time.Second,
		MaxRetryDelay:        60 * time.Second,
		Extractor:            ExtractorGoldmark,
		Navbar: NavbarConfig{
			HashMode:       boolPtr(true),
			UpdateHashAuto: boolPtr(true),
			Behavior:       BehaviorSmooth,
		},
		Layout: LayoutConfig{LineHeight: 20},
	}

	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 8, cfg.MaxConcurrentSources)
	assert.Equal(t, "/state", cfg.StateDir)
	assert.Equal(t, ExtractorGoldmark, cfg.Extractor)
	assert.Equal(t, BehaviorSmooth, cfg.Navbar.Behavior)
	assert.Equal(t, 20.0, cfg.Layout.LineHeight)
	assert.Equal(t, 40.0, cfg.Layout.HeadingLineHeight)
}

func TestAppConfig_Validate_Corrections(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*AppConfig)
		wantWarning string
		check       func(*testing.T, *AppConfig)
	}{
		{
			name: "negative max_retries",
			setup: func(c *AppConfig) {
				c.MaxRetries = -1
				c.InitialRetryDelay = 1 * time.Second // Prevent default of 3 retries
			},
			wantWarning: "max_retries cannot be negative",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, 0, c.MaxRetries)
			},
		},
		{
			name: "initial delay above max delay",
			setup: func(c *AppConfig) {
				c.InitialRetryDelay = time.Minute
				c.MaxRetryDelay = 10 * time.Second
			},
			wantWarning: "initial_retry_delay",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, 10*time.Second, c.InitialRetryDelay)
			},
		},
		{
			name:        "unknown extractor",
			setup:       func(c *AppConfig) { c.Extractor = "regex" },
			wantWarning: "unknown extractor",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, ExtractorPattern, c.Extractor)
			},
		},
		{
			name:        "invalid behavior",
			setup:       func(c *AppConfig) { c.Navbar.Behavior = "instant" },
			wantWarning: "navbar.behavior",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, BehaviorAuto, c.Navbar.Behavior)
			},
		},
		{
			name:        "negative settle delay",
			setup:       func(c *AppConfig) { c.Navbar.SettleDelay = -time.Second },
			wantWarning: "settle_delay cannot be negative",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, 500*time.Millisecond, c.Navbar.SettleDelay)
			},
		},
		{
			name:        "auto hash without hash mode",
			setup:       func(c *AppConfig) { c.Navbar.UpdateHashAuto = boolPtr(true) },
			wantWarning: "update_hash_auto has no effect",
			check: func(t *testing.T, c *AppConfig) {
				assert.True(t, *c.Navbar.UpdateHashAuto)
			},
		},
		{
			name:        "negative max_source_bytes",
			setup:       func(c *AppConfig) { c.MaxSourceBytes = -5 },
			wantWarning: "max_source_bytes cannot be negative",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, int64(0), c.MaxSourceBytes)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{MaxConcurrentSources: 1, StateDir: "/state"}
			tt.setup(&cfg)

			warnings, err := cfg.Validate()

			require.NoError(t, err)
			assert.True(t, containsWarning(warnings, tt.wantWarning), "warnings: %v", warnings)
			tt.check(t, &cfg)
		})
	}
}

func TestDocumentConfig_Validate(t *testing.T) {
	t.Run("missing location", func(t *testing.T) {
		cfg := DocumentConfig{Location: "   "}
		_, err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrConfigValidation)
	})

	t.Run("invalid url", func(t *testing.T) {
		cfg := DocumentConfig{Location: "https://"}
		_, err := cfg.Validate()
		assert.ErrorIs(t, err, utils.ErrConfigValidation)
	})

	t.Run("unknown format", func(t *testing.T) {
		cfg := DocumentConfig{Location: "a.md", Format: "rst"}
		_, err := cfg.Validate()
		assert.ErrorIs(t, err, utils.ErrConfigValidation)
	})

	t.Run("format detected and normalized", func(t *testing.T) {
		cfg := DocumentConfig{Location: "docs/guide.md"}
		_, err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, FormatMarkdown, cfg.Format)

		cfg = DocumentConfig{Location: "https://example.com/docs", Format: "HTM"}
		_, err = cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, FormatHTML, cfg.Format)
	})

	t.Run("bad overrides become warnings", func(t *testing.T) {
		cfg := DocumentConfig{
			Location:     "a.md",
			Extractor:    "ast",
			DelayPerHost: -time.Second,
			Navbar:       NavbarConfig{Behavior: "jump"},
		}
		warnings, err := cfg.Validate()
		require.NoError(t, err)
		assert.Len(t, warnings, 3)
		assert.Empty(t, cfg.Extractor)
		assert.Equal(t, time.Duration(0), cfg.DelayPerHost)
		assert.Equal(t, BehaviorAuto, cfg.Navbar.Behavior)
	})
}

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
