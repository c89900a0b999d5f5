package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
)

type countingProc struct {
	mu    sync.Mutex
	seen  []*models.TransactionRecord
	fail  int // fail this many calls before succeeding
	calls int
}

func (p *countingProc) Process(ctx context.Context, t *models.TransactionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.fail {
		return fmt.Errorf("backend down")
	}
	p.seen = append(p.seen, t)
	return nil
}

func (p *countingProc) processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

type nullMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newNullMetrics() *nullMetrics { return &nullMetrics{errors: make(map[string]int)} }

func (m *nullMetrics) RecordSnapshotComputed(userID string) {}
func (m *nullMetrics) RecordSkippedRecords(n int) {}
func (m *nullMetrics) RecordIngested(backend string) {}
func (m *nullMetrics) RecordCacheEvent(kind string) {}
func (m *nullMetrics) RecordLatency(op string, seconds float64) {}

func (m *nullMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func validRecord(id, user string) *models.TransactionRecord {
	return &models.TransactionRecord{
		ID:        id,
		UserID:    user,
		PostedAt:  time.Now().UTC(),
		Direction: models.Debit,
		Amount:    decimal.NewFromInt(-25),
		Currency:  "EUR",
		Category:  models.CategoryOther,
	}
}

func TestPipelineForwardsValidRecord(t *testing.T) {
	proc := &countingProc{}
	p := NewIngestPipeline(proc, newNullMetrics())

	if err := p.Process(context.Background(), validRecord("t1", "u1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.processed() != 1 {
		t.Fatalf("expected 1 processed record, got %d", proc.processed())
	}
}

func TestPipelineRejectsInvalidRecords(t *testing.T) {
	proc := &countingProc{}
	metrics := newNullMetrics()
	p := NewIngestPipeline(proc, metrics)

	bad := validRecord("t1", "u1")
	bad.Amount = decimal.NewFromInt(25) // debit must be negative

	if err := p.Process(context.Background(), bad); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := p.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
	if proc.processed() != 0 {
		t.Fatalf("invalid records must not reach the backend")
	}
	if metrics.errors["pipeline_validate"] != 2 {
		t.Fatalf("expected 2 validation errors, got %d", metrics.errors["pipeline_validate"])
	}
}

func TestPipelineThrottlesPerUser(t *testing.T) {
	proc := &countingProc{}
	metrics := newNullMetrics()
	p := NewIngestPipeline(proc, metrics, WithMaxRPS(1))

	if err := p.Process(context.Background(), validRecord("t1", "u1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// immediate second record for the same user is throttled, not an error
	if err := p.Process(context.Background(), validRecord("t2", "u1")); err != nil {
		t.Fatalf("throttling must be silent, got %v", err)
	}
	// a different user is unaffected
	if err := p.Process(context.Background(), validRecord("t3", "u2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if proc.processed() != 2 {
		t.Fatalf("expected 2 processed records, got %d", proc.processed())
	}
	if metrics.errors["pipeline_throttle"] != 1 {
		t.Fatalf("expected 1 throttle event, got %d", metrics.errors["pipeline_throttle"])
	}
}

func TestPipelineBuffersAndFlushesOnBackendRecovery(t *testing.T) {
	proc := &countingProc{fail: 1}
	p := NewIngestPipeline(proc, newNullMetrics(), WithBufferSize(8))
	p.Start(context.Background())
	defer p.Stop()

	if err := p.Process(context.Background(), validRecord("t1", "u1")); err == nil {
		t.Fatalf("expected downstream error on first attempt")
	}

	// the flusher retries from the buffer once the backend recovers
	deadline := time.Now().Add(2 * time.Second)
	for proc.processed() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("buffered record was never flushed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPipelineTransformHook(t *testing.T) {
	proc := &countingProc{}
	p := NewIngestPipeline(proc, newNullMetrics(), WithTransform(func(t *models.TransactionRecord) *models.TransactionRecord {
		t.Channel = "web"
		return t
	}))

	if err := p.Process(context.Background(), validRecord("t1", "u1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.seen[0].Channel != "web" {
		t.Fatalf("transform hook not applied")
	}
}
