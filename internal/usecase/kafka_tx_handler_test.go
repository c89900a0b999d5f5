package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"FinSight/internal/domain/models"
)

type captureMetrics struct {
	mu      sync.Mutex
	skipped int
	errors  map[string]int
	counts  map[string]int
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{errors: make(map[string]int), counts: make(map[string]int)}
}

func (m *captureMetrics) RecordSnapshotComputed(userID string) {}

func (m *captureMetrics) RecordSkippedRecords(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped += n
}

func (m *captureMetrics) RecordIngested(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[backend]++
}

func (m *captureMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *captureMetrics) RecordCacheEvent(kind string) {}
func (m *captureMetrics) RecordLatency(op string, seconds float64) {}

type captureStorage struct {
	stored []*models.TransactionRecord
	err    error
}

func (s *captureStorage) Store(ctx context.Context, t *models.TransactionRecord) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, t)
	return nil
}

func (s *captureStorage) StoreBatch(ctx context.Context, ts []*models.TransactionRecord) error {
	for _, t := range ts {
		if err := s.Store(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *captureStorage) Health(ctx context.Context) error { return nil }
func (s *captureStorage) Close() error                     { return nil }

type captureInvalidator struct {
	users []string
}

func (i *captureInvalidator) Invalidate(userID string) { i.users = append(i.users, userID) }

func TestKafkaTxHandlerStoresValidTransaction(t *testing.T) {
	storage := &captureStorage{}
	metrics := newCaptureMetrics()
	inv := &captureInvalidator{}
	h := NewKafkaTxHandler("transactions.raw", storage, metrics).WithInvalidator(inv)

	posted := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	payload := []byte(`{"id":"t1","user_id":"u1","posted_at":"` + posted + `","direction":"debit","amount":"-42.50","currency":"EUR","mcc":5411}`)

	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(storage.stored) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(storage.stored))
	}
	rec := storage.stored[0]
	if rec.Category != models.CategoryGroceries {
		t.Fatalf("expected Groceries from MCC 5411, got %s", rec.Category)
	}
	if metrics.counts["clickhouse"] != 1 {
		t.Fatalf("expected one ingested record, got %d", metrics.counts["clickhouse"])
	}
	if len(inv.users) != 1 || inv.users[0] != "u1" {
		t.Fatalf("expected invalidation for u1, got %v", inv.users)
	}
}

func TestKafkaTxHandlerDropsSchemaViolations(t *testing.T) {
	storage := &captureStorage{}
	metrics := newCaptureMetrics()
	h := NewKafkaTxHandler("transactions.raw", storage, metrics)

	// credit with negative amount: sign mismatch
	payload := []byte(`{"id":"t1","user_id":"u1","posted_at":"2026-03-01","direction":"credit","amount":"-10.00"}`)

	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("schema violations must not be retried, got %v", err)
	}
	if len(storage.stored) != 0 {
		t.Fatalf("expected no stored records, got %d", len(storage.stored))
	}
	if metrics.skipped != 1 {
		t.Fatalf("expected 1 skipped record, got %d", metrics.skipped)
	}
}

func TestKafkaTxHandlerReturnsUnmarshalError(t *testing.T) {
	metrics := newCaptureMetrics()
	h := NewKafkaTxHandler("transactions.raw", &captureStorage{}, metrics)

	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected unmarshal error")
	}
	if metrics.errors["consumer_unmarshal"] != 1 {
		t.Fatalf("expected unmarshal error metric, got %v", metrics.errors)
	}
}

func TestKafkaTxHandlerPropagatesStoreFailure(t *testing.T) {
	storage := &captureStorage{err: context.DeadlineExceeded}
	metrics := newCaptureMetrics()
	h := NewKafkaTxHandler("transactions.raw", storage, metrics)

	payload := []byte(`{"id":"t1","user_id":"u1","posted_at":"2026-03-01","direction":"debit","amount":"-10.00"}`)
	if err := h.Handle(context.Background(), payload); err == nil {
		t.Fatalf("expected store failure to propagate for retry")
	}
}
