package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

func robotsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			w.WriteHeader(status)
			w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, hits
}

func newTestChecker() *RobotsChecker {
	f := NewFetcher(http.DefaultClient, testPolicy(0), testLogger())
	return NewRobotsChecker(f, NewRateLimiter(0, testLogger()), "md-navbar-test", 0, testLogger())
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestRobotsChecker(t *testing.T) {
	t.Run("disallowed path", func(t *testing.T) {
		server, _ := robotsServer(t, 200, "User-agent: *\nDisallow: /private\n")
		rc := newTestChecker()

		err := rc.Check(context.Background(), mustParse(t, server.URL+"/private/guide.md"), "md-navbar-test")
		assert.ErrorIs(t, err, utils.ErrRobotsDisallowed)
		assert.NoError(t, rc.Check(context.Background(), mustParse(t, server.URL+"/docs/guide.md"), "md-navbar-test"))
	})

	t.Run("missing robots allows everything", func(t *testing.T) {
		server, _ := robotsServer(t, 404, "")
		rc := newTestChecker()
		assert.NoError(t, rc.Check(context.Background(), mustParse(t, server.URL+"/private"), "md-navbar-test"))
	})

	t.Run("rules are cached per host", func(t *testing.T) {
		server, hits := robotsServer(t, 200, "User-agent: *\nDisallow:\n")
		rc := newTestChecker()
		for range 3 {
			require.NoError(t, rc.Check(context.Background(), mustParse(t, server.URL+"/a"), "md-navbar-test"))
		}
		assert.Equal(t, int32(1), hits.Load())
	})
}
