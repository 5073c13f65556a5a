package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/md-navbar/pkg/log"
	"github.com/Sriram-PR/md-navbar/pkg/models"
	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

const (
	navKeyPrefix     = "nav:"      // Prefix for document navigation state keys
	outlineKeyPrefix = "outline:"  // Prefix for cached outline keys
	stateDBDir       = "navbar_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements the Store interface using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	ctx      context.Context // Parent context
	keyCount atomic.Int64    // Cached key count for O(1) Count
}

// NewBadgerStore opens (or creates) the state database for name under stateDir.
// With keepState false any existing database is removed first.
func NewBadgerStore(ctx context.Context, stateDir, name string, keepState bool, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{
		log: logger,
		ctx: ctx,
	}

	dbPath := filepath.Join(stateDir, utils.SanitizeFilename(name)+"_"+stateDBDir)

	if !keepState {
		logger.Warnf("keepState is false. REMOVING existing state directory: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			// Log error but attempt to continue; Badger might recover or create new files
			logger.Errorf("Failed to remove existing state directory %s: %v", dbPath, err)
		}
	}

	logger.Infof("Initializing navigation state database at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(log.NewBadgerLogrusAdapter(logger)).
		WithNumVersionsToKeep(1) // Only the latest state matters

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	if keepState {
		count, err := store.countKeys()
		if err != nil {
			logger.Warnf("Failed to count existing keys: %v", err)
		} else {
			store.keyCount.Store(int64(count))
			logger.Debugf("Loaded existing key count: %d", count)
		}
	}

	return store, nil
}

// countKeys performs a one-time full key scan (used only when reopening existing state).
func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// putJSON upserts value under key and keeps the key count current
func (s *BadgerStore) putJSON(key []byte, value interface{}) error {
	if s.db == nil {
		return fmt.Errorf("%w: state database not initialized", utils.ErrDatabase)
	}
	data, errJSON := json.Marshal(value)
	if errJSON != nil {
		return fmt.Errorf("%w: failed to marshal value for key '%s': %w", utils.ErrParsing, string(key), errJSON)
	}

	isNew := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			isNew = true
		} else if errGet != nil {
			return errGet
		}
		return txn.SetEntry(badger.NewEntry(key, data))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error: %v", err)
		return fmt.Errorf("%w: failed setting key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if isNew {
		s.keyCount.Add(1)
	}
	return nil
}

// getJSON decodes the value under key into dst. Undecodable values are treated as missing.
func (s *BadgerStore) getJSON(key []byte, dst interface{}) (bool, error) {
	found := false
	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}
		return item.Value(func(val []byte) error {
			if errJSON := json.Unmarshal(val, dst); errJSON != nil {
				s.log.Warnf("Failed to unmarshal value for key '%s': %v. Treating as missing.", string(key), errJSON)
				return nil
			}
			found = true
			return nil
		})
	})
	if errView != nil {
		s.log.Errorf("DB View error for key '%s': %v", string(key), errView)
		return false, errView
	}
	return found, nil
}

// GetNavState implements NavStateStore
func (s *BadgerStore) GetNavState(docKey string) (*models.NavStateEntry, bool, error) {
	var entry models.NavStateEntry
	found, err := s.getJSON([]byte(navKeyPrefix+docKey), &entry)
	if err != nil || !found {
		return nil, false, err
	}
	return &entry, true, nil
}

// SaveNavState implements NavStateStore
func (s *BadgerStore) SaveNavState(entry *models.NavStateEntry) error {
	if entry.DocKey == "" {
		return fmt.Errorf("%w: navigation state needs a document key", utils.ErrDatabase)
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	if err := s.putJSON([]byte(navKeyPrefix+entry.DocKey), entry); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"doc": entry.DocKey, "hash": entry.Hash}).Debug("Saved navigation state")
	return nil
}

// DeleteNavState implements NavStateStore
func (s *BadgerStore) DeleteNavState(docKey string) error {
	key := []byte(navKeyPrefix + docKey)
	existed := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		existed = true
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: failed deleting key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if existed {
		s.keyCount.Add(-1)
	}
	return nil
}

// ListNavStates implements NavStateStore
func (s *BadgerStore) ListNavStates(ctx context.Context) ([]models.NavStateEntry, error) {
	var entries []models.NavStateEntry
	scanErrors := 0

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(navKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			errValue := item.Value(func(val []byte) error {
				var entry models.NavStateEntry
				if errJSON := json.Unmarshal(val, &entry); errJSON != nil {
					s.log.Errorf("Failed unmarshal NavStateEntry for '%s': %v. Skipping.", string(item.Key()), errJSON)
					scanErrors++
					return nil
				}
				entries = append(entries, entry)
				return nil
			})
			if errValue != nil {
				scanErrors++
			}
		}
		return nil
	})
	if err != nil {
		return entries, err
	}
	if scanErrors > 0 {
		s.log.Warnf("Skipped %d unreadable navigation state entries", scanErrors)
	}
	return entries, nil
}

func outlineKey(contentHash, extractor string) []byte {
	return []byte(outlineKeyPrefix + extractor + ":" + contentHash)
}

// GetOutline implements OutlineCache
func (s *BadgerStore) GetOutline(contentHash, extractor string) (*models.OutlineEntry, bool, error) {
	var entry models.OutlineEntry
	found, err := s.getJSON(outlineKey(contentHash, extractor), &entry)
	if err != nil || !found {
		return nil, false, err
	}
	return &entry, true, nil
}

// PutOutline implements OutlineCache
func (s *BadgerStore) PutOutline(entry *models.OutlineEntry) error {
	if entry.ExtractedAt.IsZero() {
		entry.ExtractedAt = time.Now()
	}
	return s.putJSON(outlineKey(entry.ContentHash, entry.Extractor), entry)
}

// Count implements StoreAdmin.
// Returns the cached key count (O(1)) maintained by atomic updates on writes.
func (s *BadgerStore) Count() (int, error) {
	return int(s.keyCount.Load()), nil
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute // Default interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Debug("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Debug("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for {
				// Run GC if log is at least 50% reclaimable space
				if err = s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB garbage collection: %v", ctx.Err())
			return
		}
	}
}

// Close implements StoreAdmin
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Debug("Closing navigation state DB...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing navigation state DB: %v", err)
			return fmt.Errorf("%w: closing database: %w", utils.ErrDatabase, err)
		}
	}
	return nil
}

var _ Store = (*BadgerStore)(nil)
