package storage

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/md-navbar/pkg/log"
	"github.com/Sriram-PR/md-navbar/pkg/models"
	"github.com/Sriram-PR/md-navbar/pkg/outline"
)

func testLogger() *logrus.Entry {
	return log.Discard()
}

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(context.Background(), t.TempDir(), "guide", false, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewBadgerStore(t *testing.T) {
	t.Run("fresh start has zero count", func(t *testing.T) {
		store := newTestStore(t)
		count, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("keep state preserves data", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		store1, err := NewBadgerStore(ctx, dir, "guide", false, testLogger())
		require.NoError(t, err)
		require.NoError(t, store1.SaveNavState(&models.NavStateEntry{DocKey: "guide", Hash: "#heading-2", ListNo: "1.1"}))
		require.NoError(t, store1.Close())

		store2, err := NewBadgerStore(ctx, dir, "guide", true, testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { store2.Close() })

		count, err := store2.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		entry, found, err := store2.GetNavState("guide")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "#heading-2", entry.Hash)
	})

	t.Run("fresh start wipes data", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		store1, err := NewBadgerStore(ctx, dir, "guide", false, testLogger())
		require.NoError(t, err)
		require.NoError(t, store1.SaveNavState(&models.NavStateEntry{DocKey: "guide"}))
		require.NoError(t, store1.Close())

		store2, err := NewBadgerStore(ctx, dir, "guide", false, testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { store2.Close() })

		_, found, err := store2.GetNavState("guide")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestNavState(t *testing.T) {
	t.Run("missing state", func(t *testing.T) {
		store := newTestStore(t)
		entry, found, err := store.GetNavState("nope")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, entry)
	})

	t.Run("save overwrites without growing count", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.SaveNavState(&models.NavStateEntry{DocKey: "a", ListNo: "1"}))
		require.NoError(t, store.SaveNavState(&models.NavStateEntry{DocKey: "a", ListNo: "2"}))

		entry, found, err := store.GetNavState("a")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "2", entry.ListNo)
		assert.False(t, entry.UpdatedAt.IsZero())

		count, _ := store.Count()
		assert.Equal(t, 1, count)
	})

	t.Run("empty doc key rejected", func(t *testing.T) {
		store := newTestStore(t)
		assert.Error(t, store.SaveNavState(&models.NavStateEntry{}))
	})

	t.Run("delete", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.SaveNavState(&models.NavStateEntry{DocKey: "a"}))
		require.NoError(t, store.DeleteNavState("a"))
		require.NoError(t, store.DeleteNavState("a"))

		_, found, err := store.GetNavState("a")
		require.NoError(t, err)
		assert.False(t, found)
		count, _ := store.Count()
		assert.Equal(t, 0, count)
	})

	t.Run("list is ordered and skips outlines", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.SaveNavState(&models.NavStateEntry{DocKey: "b"}))
		require.NoError(t, store.SaveNavState(&models.NavStateEntry{DocKey: "a"}))
		require.NoError(t, store.PutOutline(&models.OutlineEntry{ContentHash: "x", Extractor: "pattern"}))

		entries, err := store.ListNavStates(context.Background())
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a", entries[0].DocKey)
		assert.Equal(t, "b", entries[1].DocKey)
	})

	t.Run("list honours cancellation", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.SaveNavState(&models.NavStateEntry{DocKey: "a"}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := store.ListNavStates(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestOutlineCache(t *testing.T) {
	store := newTestStore(t)
	headings := []outline.Heading{
		{Index: 0, Level: 2, Text: "A", ListNo: "1"},
		{Index: 1, Level: 3, Text: "B", ListNo: "1.1"},
	}

	require.NoError(t, store.PutOutline(&models.OutlineEntry{ContentHash: "abc", Extractor: "pattern", Headings: headings}))

	entry, found, err := store.GetOutline("abc", "pattern")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, headings, entry.Headings)
	assert.False(t, entry.ExtractedAt.IsZero())

	_, found, err = store.GetOutline("abc", "goldmark")
	require.NoError(t, err)
	assert.False(t, found, "extractor is part of the cache key")
}

func TestRunGCStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunGC(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunGC did not return after cancel")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store, err := NewBadgerStore(context.Background(), t.TempDir(), "guide", false, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
