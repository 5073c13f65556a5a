package utils

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	underscoreRuns       = regexp.MustCompile(`_+`)
)

const maxFilenameLength = 100

// SanitizeFilename turns name into a safe file or key component. Document keys and the
// state database directory are both derived through it.
func SanitizeFilename(name string) string {
	cleaned := underscoreRuns.ReplaceAllString(invalidFilenameChars.ReplaceAllString(name, "_"), "_")
	cleaned = strings.Trim(cleaned, "_ ")
	if len(cleaned) > maxFilenameLength {
		cleaned = strings.Trim(cleaned[:maxFilenameLength], "_ ")
	}
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// DocKeyFromLocation derives a stable document key from a file path or URL.
// URLs keep their host and path; files keep their base name without extension.
func DocKeyFromLocation(location string) string {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if u, err := url.Parse(location); err == nil && u.Host != "" {
			return SanitizeFilename(u.Host + strings.TrimSuffix(u.Path, "/"))
		}
	}
	base := filepath.Base(location)
	return SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
}
