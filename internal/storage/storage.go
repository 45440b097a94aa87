// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"

	"newsagg/internal/model"
)

// Match describes a near-duplicate hit against an existing canonical article.
type Match struct {
	ID    string
	Score int
}

// Storage is the interface for all persistence operations.
type Storage interface {
	// Exists reports whether an article with the given ID is already stored.
	Exists(ctx context.Context, id string) (bool, error)

	// Save persists an article, running duplicate detection first. It returns
	// true iff the article is new and independently deliverable (not a
	// near-duplicate of an existing canonical article). Re-saving a known ID
	// is a no-op returning false.
	Save(ctx context.Context, article *model.Article) (bool, error)

	// FindSimilar scans canonical articles created within the given window
	// and returns the first one whose title similarity crosses the
	// duplicate threshold, or nil if none does.
	FindSimilar(ctx context.Context, title string, within time.Duration) (*Match, error)

	// MarkSent flags an article as delivered. Idempotent.
	MarkSent(ctx context.Context, id string) error

	// Unsent returns all undelivered canonical articles ordered by
	// publication timestamp, newest first.
	Unsent(ctx context.Context) ([]model.Article, error)

	// CleanupOld hard-deletes articles older than the retention horizon and
	// returns the number removed.
	CleanupOld(ctx context.Context, days int) (int64, error)

	// Stats returns aggregate article counts.
	Stats(ctx context.Context) (*model.Stats, error)

	Close() error
}
