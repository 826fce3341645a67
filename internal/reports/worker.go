package reports

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// JobHandler settles a decoded job.
type JobHandler interface {
	Handle(ctx context.Context, job Job) error
}

// WorkerConfig tunes a Worker.
type WorkerConfig struct {
	Concurrency int
	ReceiveWait time.Duration
	// VisibilityTimeout is how long a received job may stay unacknowledged
	// before a Reclaimer queue hands it to another consumer.
	VisibilityTimeout time.Duration
}

// Worker consumes report jobs from the queue and hands them to the runner.
type Worker struct {
	queue   Queue
	handler JobHandler
	logger  zerolog.Logger
	cfg     WorkerConfig
}

func NewWorker(queue Queue, handler JobHandler, logger zerolog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ReceiveWait <= 0 {
		cfg.ReceiveWait = 5 * time.Second
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 15 * time.Minute
	}
	return &Worker{queue: queue, handler: handler, logger: logger, cfg: cfg}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if r, ok := w.queue.(Reclaimer); ok {
		g.Go(func() error {
			w.reclaimLoop(ctx, r)
			return nil
		})
	}
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			w.loop(ctx, workerID)
			return nil
		})
	}
	w.logger.Info().Int("concurrency", w.cfg.Concurrency).Msg("report worker started")
	err := g.Wait()
	w.logger.Info().Msg("report worker stopped")
	return err
}

func (w *Worker) loop(ctx context.Context, workerID int) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		messages, err := w.queue.Receive(ctx, 1, w.cfg.ReceiveWait)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error().Err(err).Int("worker_id", workerID).Msg("failed to receive report jobs")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) reclaimLoop(ctx context.Context, r Reclaimer) {
	ticker := time.NewTicker(w.cfg.VisibilityTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		moved, err := r.Reclaim(ctx, w.cfg.VisibilityTimeout)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("failed to reclaim report jobs")
			}
			continue
		}
		if moved > 0 {
			w.logger.Warn().Int("jobs", moved).Msg("requeued expired report jobs")
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg Message) {
	job, err := decodeJob(msg.Body)
	if err != nil {
		w.logger.Error().Err(err).Str("msg_id", msg.ID).Msg("failed to decode report job")
		w.deleteMessage(msg.ReceiptHandle)
		return
	}

	w.logger.Debug().Str("job_id", job.ID).Str("report_id", job.ReportID).Int("attempt", job.Attempt).Msg("processing report job")

	if err := w.handler.Handle(ctx, job); err != nil {
		// Unacknowledged; redelivered once the visibility timeout lapses.
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("report job not settled")
		return
	}
	w.deleteMessage(msg.ReceiptHandle)
}

func (w *Worker) deleteMessage(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error().Err(err).Msg("failed to delete report job")
	}
}
