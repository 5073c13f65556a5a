package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	defaultPermitsPerHost = 2
	defaultHostIdleTTL    = 5 * time.Minute
)

type hostSlot struct {
	sem     *semaphore.Weighted
	inUse   int64 // held plus waiting
	idleFor time.Time
}

// HostPermits bounds concurrent source loads per host. Hosts with no activity for longer
// than the idle TTL are forgotten the next time any permit is requested.
type HostPermits struct {
	mu        sync.Mutex
	slots     map[string]*hostSlot
	perHost   int64
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	log       *logrus.Entry
}

// NewHostPermits creates a pool allowing perHost concurrent loads per host.
// A non-positive idleTTL uses five minutes.
func NewHostPermits(perHost int, idleTTL time.Duration, log *logrus.Entry) *HostPermits {
	if perHost <= 0 {
		log.Warnf("max_requests_per_host must be positive, using %d", defaultPermitsPerHost)
		perHost = defaultPermitsPerHost
	}
	if idleTTL <= 0 {
		idleTTL = defaultHostIdleTTL
	}
	return &HostPermits{
		slots:   make(map[string]*hostSlot),
		perHost: int64(perHost),
		idleTTL: idleTTL,
		now:     time.Now,
		log:     log,
	}
}

// Acquire blocks until a permit for host is free or ctx ends. The returned release func
// is safe to call more than once.
func (p *HostPermits) Acquire(ctx context.Context, host string) (func(), error) {
	p.mu.Lock()
	p.sweepLocked()
	slot, ok := p.slots[host]
	if !ok {
		slot = &hostSlot{sem: semaphore.NewWeighted(p.perHost)}
		p.slots[host] = slot
		p.log.WithFields(logrus.Fields{"host": host, "limit": p.perHost}).Debug("Tracking new host")
	}
	slot.inUse++
	p.mu.Unlock()

	if err := slot.sem.Acquire(ctx, 1); err != nil {
		p.done(slot)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			slot.sem.Release(1)
			p.done(slot)
		})
	}, nil
}

// Do runs fn while holding a permit for host
func (p *HostPermits) Do(ctx context.Context, host string, fn func() error) error {
	release, err := p.Acquire(ctx, host)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Hosts reports how many hosts are currently tracked
func (p *HostPermits) Hosts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

func (p *HostPermits) done(slot *hostSlot) {
	p.mu.Lock()
	slot.inUse--
	slot.idleFor = p.now()
	p.mu.Unlock()
}

func (p *HostPermits) sweepLocked() {
	now := p.now()
	if now.Sub(p.lastSweep) < p.idleTTL {
		return
	}
	p.lastSweep = now

	for host, slot := range p.slots {
		if slot.inUse == 0 && now.Sub(slot.idleFor) >= p.idleTTL {
			delete(p.slots, host)
		}
	}
	p.log.WithField("remaining", len(p.slots)).Debug("Swept idle hosts")
}
