package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"scope-crawler/pkg/models"
	"scope-crawler/pkg/utils"
)

const (
	urlKeyPrefix = "url:"        // Prefix for frontier URL keys in DB
	seenDBDir    = "frontier_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements FrontierStore using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	inMemory bool
	keyCount atomic.Int64 // Cached key count for O(1) Count
}

// NewBadgerStore opens the frontier store. An empty stateDir keeps the database
// in memory; otherwise any database left in stateDir by a previous run is removed first.
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	logger = logger.WithField("component", "frontier_store")
	store := &BadgerStore{log: logger, inMemory: stateDir == ""}

	var opts badger.Options
	if store.inMemory {
		logger.Info("Initializing in-memory frontier database")
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbPath := filepath.Join(stateDir, seenDBDir)
		logger.Warnf("REMOVING existing frontier state directory: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			// Badger may still open over leftovers; continue and let Open decide
			logger.Errorf("Failed to remove existing state directory %s: %v", dbPath, err)
		}
		if err := os.MkdirAll(dbPath, 0755); err != nil {
			return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
		}
		logger.Infof("Initializing frontier database at: %s", dbPath)
		opts = badger.DefaultOptions(dbPath)
	}
	opts = opts.
		WithLogger(newBadgerLogger(logger.WithField("component", "badgerdb"))).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database: %w", utils.ErrDatabase, err)
	}

	logger.Info("Frontier database initialized successfully.")
	return store, nil
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// MarkSeen implements SeenStore
func (s *BadgerStore) MarkSeen(normalizedURL string) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("%w: frontier store not initialized", utils.ErrDatabase)
	}
	added := false
	key := []byte(urlKeyPrefix + normalizedURL)

	err := s.dbUpdate(func(txn *badger.Txn) error {
		added = false
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			if errSet := txn.Set(key, []byte(models.VisitStatusObserved)); errSet != nil {
				return errSet
			}
			added = true
			return nil
		}
		// Key already exists (errGet == nil) or a real error occurred
		return errGet
	})

	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in MarkSeen: %v", err)
		return false, fmt.Errorf("%w: marking URL key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if added {
		s.keyCount.Add(1)
	}
	return added, nil
}

// MarkFetched implements SeenStore
func (s *BadgerStore) MarkFetched(normalizedURL string) error {
	if s.db == nil {
		return fmt.Errorf("%w: frontier store not initialized", utils.ErrDatabase)
	}
	key := []byte(urlKeyPrefix + normalizedURL)

	isNew := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		isNew = errors.Is(errGet, badger.ErrKeyNotFound)
		if errGet != nil && !isNew {
			return errGet
		}
		return txn.Set(key, []byte(models.VisitStatusFetched))
	})

	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in MarkFetched: %v", err)
		return fmt.Errorf("%w: marking URL key '%s' fetched: %w", utils.ErrDatabase, string(key), err)
	}
	if isNew {
		s.keyCount.Add(1)
	}
	return nil
}

// Status implements SeenStore
func (s *BadgerStore) Status(normalizedURL string) (models.VisitStatus, error) {
	status := models.VisitStatusUnseen
	key := []byte(urlKeyPrefix + normalizedURL)

	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		return item.Value(func(val []byte) error {
			status = models.VisitStatus(val)
			if !status.IsValid() {
				s.log.Warnf("Unexpected status '%s' for key '%s'. Treating as 'observed'.", string(val), string(key))
				status = models.VisitStatusObserved
			}
			return nil
		})
	})
	if err != nil {
		s.log.Errorf("DB View error in Status for key '%s': %v", string(key), err)
		return models.VisitStatusUnseen, fmt.Errorf("%w: reading URL key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	return status, nil
}

// Count implements SeenStore.
// Returns the cached key count maintained by atomic increments on writes.
func (s *BadgerStore) Count() (int, error) {
	return int(s.keyCount.Load()), nil
}

// RunGC runs BadgerDB's value log garbage collection periodically.
// In-memory stores have no value log and return immediately.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if s.inMemory {
		s.log.Debug("In-memory frontier database, GC not needed.")
		return
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Info("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			var err error
			for {
				// Rewrite while at least half of a value log file is reclaimable
				if err = s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
			if errors.Is(err, badger.ErrNoRewrite) {
				s.log.Debug("BadgerDB GC finished (no rewrite needed).")
			} else {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Infof("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// WriteSeenLog writes "<status>\t<url>" lines for every stored URL, in key order
func (s *BadgerStore) WriteSeenLog(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		s.log.Errorf("Failed create seen log '%s': %v", filePath, err)
		return fmt.Errorf("%w: create seen log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	writtenCount := 0
	prefix := []byte(urlKeyPrefix)

	iterErr := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			u := string(item.Key()[len(prefix):])
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(writer, "%s\t%s\n", models.VisitStatus(val), u); err != nil {
				return err
			}
			writtenCount++
		}
		return nil
	})
	if iterErr != nil {
		s.log.Errorf("Error writing seen log: %v", iterErr)
		return fmt.Errorf("%w: writing seen log '%s': %w", utils.ErrDatabase, filePath, iterErr)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("%w: flushing seen log '%s': %w", utils.ErrFilesystem, filePath, err)
	}

	s.log.Infof("Wrote %d URLs to seen log: %s", writtenCount, filePath)
	return nil
}

// Close implements StoreAdmin
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Info("Closing frontier DB...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing frontier DB: %v", err)
			return fmt.Errorf("%w: closing frontier DB: %w", utils.ErrDatabase, err)
		}
		return nil
	}
	return nil
}
