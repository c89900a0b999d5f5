package repository

import (
	"context"
	"time"

	"FinSight/internal/domain/models"
)

// Ledger provides read-only access to normalized transactions. Records are
// returned ordered by posted_at ascending with a stable tie-break on id.
// skipped counts rows that failed normalization and were dropped.
type Ledger interface {
	Load(ctx context.Context, userID string, from, to time.Time) (records []models.TransactionRecord, skipped int, err error)
	// LastPostedAt returns the most recent posted_at for the user, used to
	// anchor windows when the caller does not supply as_of.
	LastPostedAt(ctx context.Context, userID string) (time.Time, bool, error)
}

// Catalog supplies the product list. Static or slowly changing.
type Catalog interface {
	Products(ctx context.Context) ([]models.Product, error)
}

// TransactionStream is a live feed of raw transaction events (ingestion).
type TransactionStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.TransactionRecord, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher forwards normalized transactions to the event backend.
type Publisher interface {
	Publish(ctx context.Context, t *models.TransactionRecord) error
	PublishBatch(ctx context.Context, ts []*models.TransactionRecord) error
	Close() error
}

// Storage persists normalized transactions in the ledger store.
type Storage interface {
	Store(ctx context.Context, t *models.TransactionRecord) error
	StoreBatch(ctx context.Context, ts []*models.TransactionRecord) error
	Health(ctx context.Context) error
	Close() error
}

// FeedbackStore is the injected key-value store for user feedback on
// insights and recommendations.
type FeedbackStore interface {
	Put(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string, dest any) error
}

// Metrics abstracts the pipeline's operational counters.
type Metrics interface {
	RecordSnapshotComputed(userID string)
	RecordSkippedRecords(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordCacheEvent(kind string) // hit, miss, coalesced, expired
	RecordIngested(backend string)
}
