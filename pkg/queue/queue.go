package queue

import (
	"context"
	"time"
)

// Publisher pushes typed messages onto a queue for an out-of-process
// consumer to drain.
type Publisher interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Message is the wire envelope for one queued payload.
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Attempts  int
	Timestamp time.Time
}
