package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/md-navbar/pkg/models"
)

// NavStateStore persists the reading position of each document
type NavStateStore interface {
	// GetNavState returns the saved state for docKey and whether one exists
	GetNavState(docKey string) (*models.NavStateEntry, bool, error)

	// SaveNavState writes entry, replacing any previous state for entry.DocKey
	SaveNavState(entry *models.NavStateEntry) error

	// DeleteNavState removes the state for docKey; missing keys are not an error
	DeleteNavState(docKey string) error

	// ListNavStates returns every saved state ordered by document key
	ListNavStates(ctx context.Context) ([]models.NavStateEntry, error)
}

// OutlineCache stores extracted outlines keyed by source content hash and extractor
type OutlineCache interface {
	GetOutline(contentHash, extractor string) (*models.OutlineEntry, bool, error)
	PutOutline(entry *models.OutlineEntry) error
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// Count returns the cached number of keys in the store
	Count() (int, error)

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}

// Store combines all store interfaces for components that need full access
type Store interface {
	NavStateStore
	OutlineCache
	StoreAdmin
}
