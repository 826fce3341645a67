package reports

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is a Queue backed by an in-memory buffered channel. It only
// serves a worker running in the same process. Received messages are held
// until deleted and go back on the channel when Reclaim finds them expired.
type MemoryQueue struct {
	ch chan Message

	mu       sync.Mutex
	inflight map[string]inflightMessage
	now      func() time.Time
}

type inflightMessage struct {
	msg      Message
	received time.Time
}

// NewMemoryQueue creates a MemoryQueue with the provided buffer capacity.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{
		ch:       make(chan Message, buffer),
		inflight: make(map[string]inflightMessage),
		now:      time.Now,
	}
}

// Send enqueues a payload or blocks until ctx is done. Delayed messages are
// delivered from a timer goroutine.
func (q *MemoryQueue) Send(ctx context.Context, body string, delay time.Duration) error {
	msg := Message{
		ID:            uuid.NewString(),
		Body:          body,
		ReceiptHandle: uuid.NewString(),
	}

	if delay > 0 {
		time.AfterFunc(delay, func() { q.ch <- msg })
		return nil
	}

	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a message is available, ctx is done, or wait elapses.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]Message, error) {
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, nil
	case msg := <-q.ch:
		messages := q.collect(msg, maxMessages)
		q.track(messages)
		return messages, nil
	}
}

// Delete acknowledges a received message.
func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	delete(q.inflight, receiptHandle)
	q.mu.Unlock()
	return nil
}

// Reclaim re-sends messages received more than visibility ago and never
// deleted. Each redelivery gets a fresh receipt handle.
func (q *MemoryQueue) Reclaim(ctx context.Context, visibility time.Duration) (int, error) {
	q.mu.Lock()
	cutoff := q.now().Add(-visibility)
	var expired []Message
	for handle, m := range q.inflight {
		if m.received.Before(cutoff) {
			expired = append(expired, m.msg)
			delete(q.inflight, handle)
		}
	}
	q.mu.Unlock()

	for i, msg := range expired {
		if err := q.Send(ctx, msg.Body, 0); err != nil {
			q.mu.Lock()
			for _, m := range expired[i:] {
				q.inflight[m.ReceiptHandle] = inflightMessage{msg: m}
			}
			q.mu.Unlock()
			return i, err
		}
	}
	return len(expired), nil
}

func (q *MemoryQueue) track(messages []Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for _, msg := range messages {
		q.inflight[msg.ReceiptHandle] = inflightMessage{msg: msg, received: now}
	}
}

func (q *MemoryQueue) collect(first Message, max int) []Message {
	messages := make([]Message, 0, max)
	messages = append(messages, first)
	for len(messages) < max {
		select {
		case msg := <-q.ch:
			messages = append(messages, msg)
		default:
			return messages
		}
	}
	return messages
}
