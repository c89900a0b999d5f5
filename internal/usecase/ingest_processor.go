package usecase

import (
	"context"
	"fmt"
	"time"

	"FinSight/internal/domain/models"
	drepo "FinSight/internal/domain/repository"
)

// IngestProcessor routes normalized transactions to the configured backend:
// straight into the ledger store, or through the event bus for downstream
// consumers to persist.
type IngestProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

func NewIngestProcessor(pub drepo.Publisher, store drepo.Storage, metrics drepo.Metrics, backend string) *IngestProcessor {
	return &IngestProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single transaction to the configured backend.
func (p *IngestProcessor) Process(ctx context.Context, t *models.TransactionRecord) error {
	if t == nil {
		return fmt.Errorf("transaction is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, t)
	case "clickhouse":
		err = p.store.Store(ctx, t)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("ingest")
		return fmt.Errorf("process transaction: %w", err)
	}

	p.metrics.RecordIngested(p.backend)
	p.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes multiple transactions in one backend call.
func (p *IngestProcessor) ProcessBatch(ctx context.Context, ts []*models.TransactionRecord) error {
	if len(ts) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, ts)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, ts)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("ingest_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for range ts {
		p.metrics.RecordIngested(p.backend)
	}
	p.metrics.RecordLatency("ingest_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *IngestProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
