// Package parse normalizes document locations so the same source is recognised however it
// was spelled.
package parse

import (
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// NormalizeURL lowercases scheme and host, drops default ports, the fragment and a trailing
// path slash, and turns an empty path into "/". The query is kept since it may select the
// document. u is not modified.
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	if host, port, err := net.SplitHostPort(normalized.Host); err == nil {
		if (normalized.Scheme == "http" && port == "80") || (normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" {
		normalized.Path = "/"
	} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
		normalized.Path = strings.TrimSuffix(normalized.Path, "/")
	}

	// A fragment names a heading, which is navigation state rather than part of the source
	normalized.Fragment = ""
	normalized.RawFragment = ""

	return normalized.String()
}

// NormalizeLocation normalizes an http(s) URL with NormalizeURL and cleans a file path.
// Unparsable URLs are returned trimmed but otherwise untouched.
func NormalizeLocation(location string) string {
	location = strings.TrimSpace(location)
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		u, err := url.Parse(location)
		if err != nil {
			return location
		}
		return NormalizeURL(u)
	}
	if location == "" {
		return ""
	}
	return filepath.Clean(location)
}
