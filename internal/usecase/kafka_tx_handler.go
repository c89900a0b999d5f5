package usecase

import (
	"context"
	"encoding/json"
	"time"

	domrepo "FinSight/internal/domain/repository"
	"FinSight/internal/services/features"
	pkgkafka "FinSight/pkg/kafka"
)

// KafkaTxHandler consumes raw transaction events from the bus, normalizes
// them and writes them to the ledger store. Rows failing normalization are
// counted and dropped, never stored half-formed.
type KafkaTxHandler struct {
	topic        string
	storage      domrepo.Storage
	metrics      domrepo.Metrics
	orchestrator interface{ Invalidate(userID string) }
}

func NewKafkaTxHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaTxHandler {
	return &KafkaTxHandler{topic: topic, storage: storage, metrics: metrics}
}

// WithInvalidator registers a profile cache to invalidate after each write.
func (h *KafkaTxHandler) WithInvalidator(inv interface{ Invalidate(userID string) }) *KafkaTxHandler {
	h.orchestrator = inv
	return h
}

func (h *KafkaTxHandler) Topic() string { return h.topic }

func (h *KafkaTxHandler) Handle(ctx context.Context, b []byte) error {
	var raw features.RawTransaction
	if err := json.Unmarshal(b, &raw); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	rec, err := features.Normalize(raw)
	if err != nil {
		h.metrics.RecordSkippedRecords(1)
		h.metrics.RecordError("consumer_schema")
		// a malformed row is dropped, not retried
		return nil
	}

	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(rec.PostedAt).Seconds())

	start := time.Now()
	err = h.storage.Store(ctx, &rec)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordIngested("clickhouse")

	if h.orchestrator != nil {
		h.orchestrator.Invalidate(rec.UserID)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTxHandler)(nil)
