package mcp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/log"
	"github.com/Sriram-PR/md-navbar/pkg/models"
	"github.com/Sriram-PR/md-navbar/pkg/storage"
)

// Laid out with the default metrics: A at 96, B at 192, height 312
const guideDoc = "# Title\n\npara\n\n## A\n\ntext\n\n## B\n\nmore\n\nend\n"

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T, store storage.Store) *Server {
	t.Helper()
	cfg := &config.AppConfig{
		Layout: config.LayoutConfig{ViewportHeight: 100},
		Documents: map[string]config.DocumentConfig{
			"guide": {Location: writeDoc(t, "guide.md", guideDoc)},
		},
	}
	server, err := NewServer(&ServerConfig{AppConfig: cfg, Logger: log.New("error", io.Discard), Store: store})
	require.NoError(t, err)
	t.Cleanup(func() { server.Shutdown(context.Background()) })
	return server
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func call(t *testing.T, handler toolHandler, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return result, text.Text
}

func callOK(t *testing.T, handler toolHandler, args map[string]any, out any) {
	t.Helper()
	result, text := call(t, handler, args)
	require.False(t, result.IsError, text)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(text), out))
	}
}

func openSession(t *testing.T, s *Server, args map[string]any) SessionSnapshot {
	t.Helper()
	var snap SessionSnapshot
	callOK(t, s.handleOpenSession, args, &snap)
	require.NotEmpty(t, snap.ID)
	return snap
}

func TestExtractOutline(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("inline markdown", func(t *testing.T) {
		var result models.SourceResult
		callOK(t, s.handleExtractOutline, map[string]any{"markdown": "## One\n### Two\n## Three\n"}, &result)
		require.Len(t, result.Headings, 3)
		assert.Equal(t, "1.1", result.Headings[1].ListNo)
		assert.Equal(t, config.ExtractorPattern, result.Extractor)
	})

	t.Run("goldmark extractor", func(t *testing.T) {
		var result models.SourceResult
		callOK(t, s.handleExtractOutline, map[string]any{"markdown": "## C# tips\n", "extractor": "goldmark"}, &result)
		require.Len(t, result.Headings, 1)
		assert.Equal(t, "C# tips", result.Headings[0].Text)
	})

	t.Run("configured document", func(t *testing.T) {
		var result models.SourceResult
		callOK(t, s.handleExtractOutline, map[string]any{"doc_key": "guide"}, &result)
		assert.Equal(t, "guide", result.DocKey)
		assert.Len(t, result.Headings, 2)
	})

	t.Run("file location", func(t *testing.T) {
		var result models.SourceResult
		callOK(t, s.handleExtractOutline, map[string]any{"location": writeDoc(t, "notes.md", "## Only\n")}, &result)
		assert.Equal(t, "notes", result.DocKey)
		assert.Len(t, result.Headings, 1)
	})

	t.Run("errors", func(t *testing.T) {
		result, _ := call(t, s.handleExtractOutline, map[string]any{})
		assert.True(t, result.IsError)
		result, _ = call(t, s.handleExtractOutline, map[string]any{"markdown": "## A", "extractor": "regex"})
		assert.True(t, result.IsError)
		result, text := call(t, s.handleExtractOutline, map[string]any{"location": filepath.Join(t.TempDir(), "gone.md")})
		assert.True(t, result.IsError)
		assert.Contains(t, text, "Filesystem_NotExist")
	})
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	snap := openSession(t, s, map[string]any{"markdown": guideDoc, "hash_mode": true, "update_hash_auto": true})

	assert.Equal(t, "1", snap.CurrentListNo)
	assert.False(t, snap.Locked)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "heading-0", snap.Items[0].ID)
	assert.True(t, snap.Items[0].Active)
	assert.Equal(t, "1", snap.Items[0].Label)

	t.Run("scroll selects nearest heading and writes hash", func(t *testing.T) {
		var after SessionSnapshot
		callOK(t, s.handleScrollSession, map[string]any{"session_id": snap.ID, "top": 200.0}, &after)
		assert.Equal(t, "2", after.CurrentListNo)
		assert.Equal(t, "#heading-1", after.Hash)
	})

	t.Run("click scrolls to heading", func(t *testing.T) {
		var after SessionSnapshot
		callOK(t, s.handleClickSession, map[string]any{"session_id": snap.ID, "heading_id": "heading-0"}, &after)
		assert.Equal(t, "1", after.CurrentListNo)
		assert.Equal(t, 96.0, after.ScrollTop)
		assert.Equal(t, "#heading-0", after.Hash)
	})

	t.Run("unknown heading is rejected", func(t *testing.T) {
		result, text := call(t, s.handleClickSession, map[string]any{"session_id": snap.ID, "heading_id": "heading-9"})
		assert.True(t, result.IsError)
		assert.Contains(t, text, "unknown heading")
	})

	t.Run("navigate follows the fragment", func(t *testing.T) {
		var after SessionSnapshot
		callOK(t, s.handleNavigateSession, map[string]any{"session_id": snap.ID, "hash": "#heading-1"}, &after)
		assert.Equal(t, "2", after.CurrentListNo)
		assert.Equal(t, 192.0, after.ScrollTop)
	})

	t.Run("replace source resets to first heading", func(t *testing.T) {
		var after SessionSnapshot
		callOK(t, s.handleReplaceSessionSource, map[string]any{"session_id": snap.ID, "markdown": "## X\n\n## Y\n\n## Z\n"}, &after)
		require.Len(t, after.Items, 3)
		assert.Equal(t, "1", after.CurrentListNo)
		assert.Equal(t, 0.0, after.ScrollTop)
	})

	t.Run("close", func(t *testing.T) {
		callOK(t, s.handleCloseSession, map[string]any{"session_id": snap.ID}, nil)
		result, text := call(t, s.handleGetSession, map[string]any{"session_id": snap.ID})
		assert.True(t, result.IsError)
		assert.Contains(t, text, "not found")
	})
}

func TestOpenSessionOptions(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("declarative ids and initial hash", func(t *testing.T) {
		snap := openSession(t, s, map[string]any{"markdown": guideDoc, "declarative": true, "hash": "#2-B"})
		assert.Equal(t, "2-B", snap.Items[1].ID)
		assert.Equal(t, "2", snap.CurrentListNo)
		assert.Equal(t, 192.0, snap.ScrollTop)
	})

	t.Run("hash writes need hash mode", func(t *testing.T) {
		snap := openSession(t, s, map[string]any{"markdown": guideDoc, "update_hash_auto": true})
		var after SessionSnapshot
		callOK(t, s.handleScrollSession, map[string]any{"session_id": snap.ID, "top": 200.0}, &after)
		assert.Equal(t, "2", after.CurrentListNo)
		assert.Empty(t, after.Hash)
	})

	t.Run("missing source", func(t *testing.T) {
		result, _ := call(t, s.handleOpenSession, map[string]any{})
		assert.True(t, result.IsError)
		result, _ = call(t, s.handleOpenSession, map[string]any{"doc_key": "nope"})
		assert.True(t, result.IsError)
	})

	t.Run("missing scroll offset", func(t *testing.T) {
		snap := openSession(t, s, map[string]any{"markdown": guideDoc})
		result, _ := call(t, s.handleScrollSession, map[string]any{"session_id": snap.ID})
		assert.True(t, result.IsError)
	})
}

func TestSessionHashPersistence(t *testing.T) {
	store, err := storage.NewBadgerStore(context.Background(), t.TempDir(), "mcp", false, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	s := newTestServer(t, store)

	first := openSession(t, s, map[string]any{"doc_key": "guide", "hash_mode": true, "update_hash_auto": true})
	callOK(t, s.handleScrollSession, map[string]any{"session_id": first.ID, "top": 200.0}, nil)

	state, found, err := store.GetNavState("guide")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "#heading-1", state.Hash)
	assert.Equal(t, "2", state.ListNo)

	second := openSession(t, s, map[string]any{"doc_key": "guide"})
	assert.Equal(t, "2", second.CurrentListNo, "saved hash restores the active heading")
	assert.Equal(t, 192.0, second.ScrollTop)

	var listing struct {
		Documents []map[string]any `json:"documents"`
	}
	callOK(t, s.handleListDocuments, nil, &listing)
	require.Len(t, listing.Documents, 1)
	assert.Equal(t, "#heading-1", listing.Documents[0]["last_hash"])
}
