package usecase

import (
	"context"

	"FinSight/internal/domain/models"
	drepo "FinSight/internal/domain/repository"
	mid "FinSight/internal/middleware"
)

// IngestCollector consumes the live transaction feed and pushes each record
// through the ingest pipeline into the configured backend.
type IngestCollector struct {
	stream  drepo.TransactionStream
	proc    *IngestProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

func NewIngestCollector(stream drepo.TransactionStream, proc *IngestProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *IngestCollector {
	return &IngestCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the transaction feed is connected.
func (c *IngestCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *IngestCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	txCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, txCh, errCh)
	return nil
}

func (c *IngestCollector) consume(ctx context.Context, txCh <-chan *models.TransactionRecord, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-txCh:
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.proc.Process(ctx, t)
			}
		}
	}
}

func (c *IngestCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying IngestProcessor for lifecycle management.
func (c *IngestCollector) Processor() *IngestProcessor { return c.proc }

// Shutdown stops the pipeline and closes the feed.
func (c *IngestCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
