package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/article-dl/pkg/models"
)

// ResultLedger remembers the outcome of every article URL across batches
type ResultLedger interface {
	// RecordResult stores the latest outcome for a ledger key
	RecordResult(key string, entry *models.ResultDBEntry) error

	// CheckResult returns LedgerStatusFound with the decoded entry, LedgerStatusMissing, or LedgerStatusDBError
	CheckResult(key string) (status models.LedgerStatus, entry *models.ResultDBEntry, err error)

	// FilterSucceeded drops URLs whose last recorded outcome was a success
	FilterSucceeded(urls []string) (remaining []string, skipped int, err error)

	// Observe records a batch Result; lets the ledger act as a scheduler result sink
	Observe(batchID string, result models.Result)

	// Count returns the number of recorded keys
	Count() int

	// RunGC runs periodic value log garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database
	Close() error
}
