package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPermits_LimitPerHost(t *testing.T) {
	permits := NewHostPermits(2, time.Hour, testLogger())

	r1, err := permits.Acquire(context.Background(), "docs.example")
	require.NoError(t, err)
	r2, err := permits.Acquire(context.Background(), "docs.example")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = permits.Acquire(ctx, "docs.example")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "third permit should block until timeout")

	// Other hosts are independent
	r3, err := permits.Acquire(context.Background(), "wiki.example")
	require.NoError(t, err)
	assert.Equal(t, 2, permits.Hosts())

	r1()
	r4, err := permits.Acquire(context.Background(), "docs.example")
	require.NoError(t, err)

	r2()
	r3()
	r4()
}

func TestHostPermits_Defaults(t *testing.T) {
	permits := NewHostPermits(0, 0, testLogger())
	assert.Equal(t, int64(defaultPermitsPerHost), permits.perHost)
	assert.Equal(t, defaultHostIdleTTL, permits.idleTTL)
}

func TestHostPermits_ReleaseIsIdempotent(t *testing.T) {
	permits := NewHostPermits(1, time.Hour, testLogger())

	release, err := permits.Acquire(context.Background(), "docs.example")
	require.NoError(t, err)
	release()
	release()

	// A double release must not have freed a second permit
	held, err := permits.Acquire(context.Background(), "docs.example")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = permits.Acquire(ctx, "docs.example")
	assert.Error(t, err)
	held()
}

func TestHostPermits_Do(t *testing.T) {
	permits := NewHostPermits(1, time.Hour, testLogger())
	sentinel := errors.New("load failed")

	err := permits.Do(context.Background(), "docs.example", func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	// Permit was returned even though fn failed
	ran := false
	require.NoError(t, permits.Do(context.Background(), "docs.example", func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestHostPermits_SweepsIdleHosts(t *testing.T) {
	permits := NewHostPermits(1, time.Minute, testLogger())
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	permits.now = func() time.Time { return clock }

	held, err := permits.Acquire(context.Background(), "held.example")
	require.NoError(t, err)
	for _, host := range []string{"a.example", "b.example"} {
		require.NoError(t, permits.Do(context.Background(), host, func() error { return nil }))
	}
	require.Equal(t, 3, permits.Hosts())

	clock = clock.Add(2 * time.Minute)
	require.NoError(t, permits.Do(context.Background(), "c.example", func() error { return nil }))
	assert.Equal(t, 2, permits.Hosts(), "held host must survive the sweep")

	held()
}

func TestHostPermits_CancelledAcquireIsNotCounted(t *testing.T) {
	permits := NewHostPermits(1, time.Minute, testLogger())
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	permits.now = func() time.Time { return clock }

	held, err := permits.Acquire(context.Background(), "docs.example")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = permits.Acquire(ctx, "docs.example")
	assert.ErrorIs(t, err, context.Canceled)

	held()
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, permits.Do(context.Background(), "other.example", func() error { return nil }))
	assert.Equal(t, 1, permits.Hosts())
}

func TestHostPermits_Concurrent(t *testing.T) {
	permits := NewHostPermits(5, time.Hour, testLogger())
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		current int
		peak    int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, permits.Do(context.Background(), "busy.example", func() error {
				mu.Lock()
				current++
				peak = max(peak, current)
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				current--
				mu.Unlock()
				return nil
			}))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 5)
	assert.Equal(t, 1, permits.Hosts())
}
