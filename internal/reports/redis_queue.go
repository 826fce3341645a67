package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Queue with four keys: a ready list, a processing
// list holding received but unacknowledged bodies, a hash of claim times for
// those bodies, and a sorted set of delayed bodies. Times are unix
// milliseconds.
type RedisQueue struct {
	client     *redis.Client
	ready      string
	processing string
	claims     string
	delayed    string
	now        func() time.Time
}

// NewRedisQueue creates a queue whose keys are prefixed with name.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	if client == nil {
		panic("reports: redis client cannot be nil")
	}
	if name == "" {
		name = "reports"
	}
	return &RedisQueue{
		client:     client,
		ready:      name + ":ready",
		processing: name + ":processing",
		claims:     name + ":claims",
		delayed:    name + ":delayed",
		now:        time.Now,
	}
}

func (q *RedisQueue) Send(ctx context.Context, body string, delay time.Duration) error {
	var err error
	if delay > 0 {
		due := q.now().Add(delay).UnixMilli()
		err = q.client.ZAdd(ctx, q.delayed, redis.Z{Score: float64(due), Member: body}).Err()
	} else {
		err = q.client.LPush(ctx, q.ready, body).Err()
	}
	if err != nil {
		return fmt.Errorf("reports: redis send: %w", err)
	}
	return nil
}

// Receive returns at most one message; maxMessages is accepted for interface
// parity.
func (q *RedisQueue) Receive(ctx context.Context, _ int, wait time.Duration) ([]Message, error) {
	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}
	if wait < time.Second {
		wait = time.Second
	}

	body, err := q.client.BRPopLPush(ctx, q.ready, q.processing, wait).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reports: redis receive: %w", err)
	}
	if err := q.client.HSet(ctx, q.claims, body, q.now().UnixMilli()).Err(); err != nil {
		return nil, fmt.Errorf("reports: redis claim: %w", err)
	}
	return []Message{{ID: body, Body: body, ReceiptHandle: body}}, nil
}

func (q *RedisQueue) Delete(ctx context.Context, receiptHandle string) error {
	if receiptHandle == "" {
		return nil
	}
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processing, 1, receiptHandle)
		pipe.HDel(ctx, q.claims, receiptHandle)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reports: redis delete: %w", err)
	}
	return nil
}

// Reclaim moves bodies claimed more than visibility ago back onto the ready
// list. A processing body without a claim time gets one now, so it is
// reclaimed one visibility period later. LREM decides which consumer wins a
// body when several reclaim at once.
func (q *RedisQueue) Reclaim(ctx context.Context, visibility time.Duration) (int, error) {
	bodies, err := q.client.LRange(ctx, q.processing, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("reports: redis reclaim: %w", err)
	}
	if len(bodies) == 0 {
		return 0, nil
	}
	claims, err := q.client.HGetAll(ctx, q.claims).Result()
	if err != nil {
		return 0, fmt.Errorf("reports: redis reclaim: %w", err)
	}

	now := q.now().UnixMilli()
	cutoff := now - visibility.Milliseconds()
	moved := 0
	for _, body := range bodies {
		raw, ok := claims[body]
		if !ok {
			if err := q.client.HSetNX(ctx, q.claims, body, now).Err(); err != nil {
				return moved, fmt.Errorf("reports: redis reclaim: %w", err)
			}
			continue
		}
		if claimed, err := strconv.ParseInt(raw, 10, 64); err == nil && claimed > cutoff {
			continue
		}

		removed, err := q.client.LRem(ctx, q.processing, 1, body).Result()
		if err != nil {
			return moved, fmt.Errorf("reports: redis reclaim: %w", err)
		}
		if removed == 0 {
			continue
		}
		_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, q.claims, body)
			pipe.LPush(ctx, q.ready, body)
			return nil
		})
		if err != nil {
			return moved, fmt.Errorf("reports: redis reclaim: %w", err)
		}
		moved++
	}
	return moved, nil
}

// promoteDue moves delayed bodies whose due time has passed onto the ready
// list. ZREM decides which consumer wins a body when several promote at once.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	max := strconv.FormatInt(q.now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return fmt.Errorf("reports: redis promote: %w", err)
	}
	for _, body := range due {
		removed, err := q.client.ZRem(ctx, q.delayed, body).Result()
		if err != nil {
			return fmt.Errorf("reports: redis promote: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.ready, body).Err(); err != nil {
			return fmt.Errorf("reports: redis promote: %w", err)
		}
	}
	return nil
}
