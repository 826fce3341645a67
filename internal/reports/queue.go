package reports

import (
	"context"
	"time"
)

// Queue is an at-least-once message queue. A received message stays owned by
// the consumer until Delete is called with its receipt handle.
type Queue interface {
	Send(ctx context.Context, body string, delay time.Duration) error
	Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Message is a received queue entry.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Reclaimer is implemented by queues that must return expired unacknowledged
// messages to consumers themselves. SQS does this through its own visibility
// timeout and does not implement it.
type Reclaimer interface {
	Reclaim(ctx context.Context, visibility time.Duration) (int, error)
}
