package storage

import (
	"context"
	"time"

	"scope-crawler/pkg/models"
)

// SeenStore is the frontier's dedup set, keyed by normalized URL.
// Each key carries the URL's visit status.
type SeenStore interface {
	// MarkSeen records normalizedURL as observed.
	// Returns true if the URL was newly added, false if it already existed
	MarkSeen(normalizedURL string) (bool, error)

	// MarkFetched promotes normalizedURL to fetched, adding it if absent
	MarkFetched(normalizedURL string) error

	// Status returns VisitStatusUnseen for unknown URLs
	Status(normalizedURL string) (models.VisitStatus, error)

	// Count returns the number of URLs in the store
	Count() (int, error)
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// WriteSeenLog writes every stored URL with its status to filePath
	WriteSeenLog(filePath string) error

	// RunGC runs periodic garbage collection until ctx is done. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database
	Close() error
}

// FrontierStore combines the interfaces the frontier and main need
type FrontierStore interface {
	SeenStore
	StoreAdmin
}
