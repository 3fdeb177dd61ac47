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

	"github.com/Sriram-PR/article-dl/pkg/log"
	"github.com/Sriram-PR/article-dl/pkg/models"
	"github.com/Sriram-PR/article-dl/pkg/parse"
	"github.com/Sriram-PR/article-dl/pkg/utils"
)

const (
	resultKeyPrefix = "result:"    // Prefix for article keys in DB
	ledgerDBDir     = "results_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements ResultLedger using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	keyCount atomic.Int64 // Cached key count for O(1) Count
}

var _ ResultLedger = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) the ledger under stateDir. Entries persist across runs.
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}

	dbPath := filepath.Join(stateDir, ledgerDBDir)
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))).
		WithNumVersionsToKeep(1) // Only the latest outcome matters

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	count, err := store.countKeys()
	if err != nil {
		logger.Warnf("Failed to count existing ledger keys: %v", err)
	} else {
		store.keyCount.Store(int64(count))
	}

	logger.Infof("Result ledger opened at %s (%d entries)", dbPath, count)
	return store, nil
}

// countKeys performs a one-time full key scan at open
func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(resultKeyPrefix)
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
// Workers record concurrently; conflicts on the same key resolve in microseconds.
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

// RecordResult implements ResultLedger
func (s *BadgerStore) RecordResult(key string, entry *models.ResultDBEntry) error {
	if s.db == nil {
		return fmt.Errorf("%w: ledger not initialized", utils.ErrDatabase)
	}
	dbKey := []byte(resultKeyPrefix + key)

	entryBytes, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshal ledger entry for '%s': %w", utils.ErrParsing, key, err)
	}

	isNew := false
	err = s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(dbKey)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			isNew = true
		}
		return txn.SetEntry(badger.NewEntry(dbKey, entryBytes))
	})
	if err != nil {
		s.log.WithField("key", string(dbKey)).Errorf("DB Update error in RecordResult: %v", err)
		return fmt.Errorf("%w: set ledger entry '%s': %w", utils.ErrDatabase, key, err)
	}
	if isNew {
		s.keyCount.Add(1)
	}
	s.log.Debugf("Recorded '%s' as %s", key, entry.Status)
	return nil
}

// CheckResult implements ResultLedger
func (s *BadgerStore) CheckResult(key string) (models.LedgerStatus, *models.ResultDBEntry, error) {
	status := models.LedgerStatusMissing
	var entry *models.ResultDBEntry
	dbKey := []byte(resultKeyPrefix + key)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(dbKey)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: get ledger key '%s': %w", utils.ErrDatabase, key, errGet)
		}
		return item.Value(func(val []byte) error {
			var decoded models.ResultDBEntry
			if errJSON := json.Unmarshal(val, &decoded); errJSON != nil {
				// Undecodable entries are treated as never recorded
				s.log.Warnf("Failed to unmarshal ledger entry for '%s': %v", key, errJSON)
				return nil
			}
			if !decoded.Status.IsValid() {
				s.log.Warnf("Ledger entry for '%s' has unknown status '%s', ignoring", key, decoded.Status)
				return nil
			}
			entry = &decoded
			status = models.LedgerStatusFound
			return nil
		})
	})
	if errView != nil {
		s.log.Errorf("DB View error in CheckResult for '%s': %v", key, errView)
		return models.LedgerStatusDBError, nil, errView
	}
	return status, entry, nil
}

// FilterSucceeded implements ResultLedger. Lines that cannot be parsed as URLs are kept for the validator to judge.
func (s *BadgerStore) FilterSucceeded(urls []string) ([]string, int, error) {
	remaining := make([]string, 0, len(urls))
	skipped := 0
	for _, raw := range urls {
		key, _, err := parse.ParseAndNormalize(raw)
		if err != nil {
			remaining = append(remaining, raw)
			continue
		}
		status, entry, err := s.CheckResult(key)
		if err != nil {
			return nil, 0, err
		}
		if status == models.LedgerStatusFound && entry.Status == models.ResultStatusSuccess {
			skipped++
			s.log.WithField("url", raw).Debug("Already downloaded, skipping")
			continue
		}
		remaining = append(remaining, raw)
	}
	return remaining, skipped, nil
}

// Observe implements ResultLedger. Errors are logged; the ledger never affects a batch.
func (s *BadgerStore) Observe(batchID string, result models.Result) {
	key, _, err := parse.ParseAndNormalize(result.URL)
	if err != nil {
		s.log.WithField("url", result.URL).Warnf("Cannot derive ledger key: %v", err)
		return
	}
	entry := &models.ResultDBEntry{
		Status:        result.Status(),
		Title:         result.Title,
		HTTPStatus:    result.HTTPStatus,
		ElapsedMillis: result.ElapsedMillis,
		BatchID:       batchID,
		LastAttempt:   result.ProducedAt,
	}
	if result.Success {
		entry.ContentHash = utils.CalculateStringSHA256(result.SanitizedHTML)
	} else {
		entry.ErrorType = result.Error
	}
	if err := s.RecordResult(key, entry); err != nil {
		s.log.WithField("url", result.URL).Errorf("Failed to record result: %v", err)
	}
}

// Count implements ResultLedger
func (s *BadgerStore) Count() int {
	return int(s.keyCount.Load())
}

// RunGC runs BadgerDB's value log garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				continue
			}
			var err error
			for err == nil {
				// Rewrite while at least half of a value log file is reclaimable
				err = s.db.RunValueLogGC(0.5)
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			s.log.Debugf("Stopping ledger GC: %v", ctx.Err())
			return
		}
	}
}

// Close implements ResultLedger
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing result ledger: %v", err)
		return fmt.Errorf("%w: close ledger: %w", utils.ErrDatabase, err)
	}
	s.log.Debug("Result ledger closed")
	return nil
}
