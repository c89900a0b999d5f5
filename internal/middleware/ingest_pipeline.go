package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, t *models.TransactionRecord) error
}

// IngestPipeline sits between the transaction feed and the backend. It
// validates, throttles per user, and buffers when downstream is unavailable
// so a backend blip does not drop ledger facts.
type IngestPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.TransactionRecord
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-user last accepted time
	// optional transform hook applied before validation
	transform func(*models.TransactionRecord) *models.TransactionRecord
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max accepted transactions per second per user.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer size for downstream failures.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook applied to each record.
func WithTransform(fn func(*models.TransactionRecord) *models.TransactionRecord) PipelineOption {
	return func(p *IngestPipeline) { p.transform = fn }
}

func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,
		bufSize:  1000,
		bufCh:    make(chan *models.TransactionRecord, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.TransactionRecord, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered transactions.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case t := <-p.bufCh:
				if t == nil {
					continue
				}
				if err := p.proc.Process(ctx, t); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- t:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards the record downstream,
// buffering on backend errors.
func (p *IngestPipeline) Process(ctx context.Context, t *models.TransactionRecord) error {
	start := time.Now()
	if p.transform != nil && t != nil {
		t = p.transform(t)
	}
	if err := validateTransaction(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(t.UserID, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- t:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateTransaction(t *models.TransactionRecord) error {
	if t == nil {
		return fmt.Errorf("transaction nil")
	}
	if t.ID == "" {
		return fmt.Errorf("id empty")
	}
	if t.UserID == "" {
		return fmt.Errorf("user id empty")
	}
	if t.PostedAt.IsZero() {
		return fmt.Errorf("posted_at invalid")
	}
	if !t.SignValid() {
		return fmt.Errorf("amount sign does not match direction")
	}
	return nil
}

func (p *IngestPipeline) allow(userID string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[userID]
	if last.IsZero() {
		p.lastSeen[userID] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[userID] = now
	return true
}
