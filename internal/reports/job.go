package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smart-health-server/internal/models"
)

// Job is the queued unit of work for one report. Dates are "2006-01-02".
type Job struct {
	ID         string            `json:"id"`
	ReportID   string            `json:"report_id"`
	ReportType models.ReportType `json:"report_type"`
	DateFrom   string            `json:"date_from"`
	DateTo     string            `json:"date_to"`
	Email      string            `json:"email,omitempty"`
	Attempt    int               `json:"attempt"`
}

func encodeJob(job Job) (Job, string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return Job{}, "", fmt.Errorf("reports: encode job: %w", err)
	}
	return job, string(body), nil
}

func decodeJob(body string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return Job{}, fmt.Errorf("reports: decode job: %w", err)
	}
	return job, nil
}

// Publisher hands jobs to the queue.
type Publisher struct {
	queue Queue
}

func NewPublisher(queue Queue) *Publisher {
	return &Publisher{queue: queue}
}

// Publish enqueues the job for immediate execution.
func (p *Publisher) Publish(ctx context.Context, job Job) error {
	return p.PublishAfter(ctx, job, 0)
}

// PublishAfter enqueues the job to become visible after delay.
func (p *Publisher) PublishAfter(ctx context.Context, job Job, delay time.Duration) error {
	_, body, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body, delay); err != nil {
		return fmt.Errorf("reports: enqueue job for report %s: %w", job.ReportID, err)
	}
	return nil
}
