package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"smart-health-server/internal/analytics"
	"smart-health-server/internal/booking"
	"smart-health-server/internal/metrics"
	"smart-health-server/internal/models"
	"smart-health-server/internal/storage"
)

const (
	emailSubject = "Your Report Is Ready"
	emailBody    = "Please find your generated report attached."
	pdfMIME      = "application/pdf"
)

// Aggregator is the read side the reports draw their figures from.
type Aggregator interface {
	AppointmentStats(ctx context.Context, start, end time.Time) (analytics.AppointmentStats, error)
	FinancialStats(ctx context.Context, start, end time.Time) (analytics.FinancialStats, error)
	UserActivityStats(ctx context.Context, start, end time.Time) (analytics.UserActivityStats, error)
}

// Mailer delivers a document as an email attachment.
type Mailer interface {
	SendAttachment(ctx context.Context, to, subject, body, fileName string, data []byte) error
}

type aggregateFunc func(ctx context.Context, agg Aggregator, start, end time.Time) ([]analytics.Figure, error)

type reportKind struct {
	template  string
	aggregate aggregateFunc
}

var kinds = map[models.ReportType]reportKind{
	models.ReportAppointments: {TemplateSummary, func(ctx context.Context, agg Aggregator, start, end time.Time) ([]analytics.Figure, error) {
		s, err := agg.AppointmentStats(ctx, start, end)
		return s.Figures(), err
	}},
	models.ReportFinance: {TemplateFinancial, func(ctx context.Context, agg Aggregator, start, end time.Time) ([]analytics.Figure, error) {
		s, err := agg.FinancialStats(ctx, start, end)
		return s.Figures(), err
	}},
	models.ReportActivity: {TemplateActivity, func(ctx context.Context, agg Aggregator, start, end time.Time) ([]analytics.Figure, error) {
		s, err := agg.UserActivityStats(ctx, start, end)
		return s.Figures(), err
	}},
}

// FileName is the attachment and download name for a report type.
func FileName(t models.ReportType) string {
	return string(t) + "_report.pdf"
}

// FileKey is the storage key of a report's document. Re-running a job
// overwrites the same key.
func FileKey(reportID string, t models.ReportType) string {
	return reportID + "/" + FileName(t)
}

// RunnerConfig holds the collaborators of a Runner.
type RunnerConfig struct {
	Reports    ReportStore
	Aggregator Aggregator
	Renderer   Renderer
	Storage    storage.Store
	Mailer     Mailer
	Publisher  *Publisher
	Metrics    *metrics.ReportMetrics
	Logger     zerolog.Logger
	Location   *time.Location
	MaxRetries int
	Backoff    time.Duration
}

// Runner executes report jobs.
type Runner struct {
	cfg RunnerConfig
	now func() time.Time
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Renderer == nil {
		cfg.Renderer = PDFRenderer{}
	}
	return &Runner{cfg: cfg, now: time.Now}
}

// Run executes one attempt of a job. Errors wrapped with Permanent must not
// be retried; any other error is transient.
func (r *Runner) Run(ctx context.Context, job Job) error {
	log := r.cfg.Logger.With().Str("report_id", job.ReportID).Str("report_type", string(job.ReportType)).Logger()

	if _, err := r.cfg.Reports.Get(ctx, job.ReportID); err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return Permanent(err)
		}
		return fmt.Errorf("load report: %w", err)
	}

	kind, ok := kinds[job.ReportType]
	if !ok {
		return Permanent(fmt.Errorf("%w: %q", ErrUnknownReportType, job.ReportType))
	}

	start, err := booking.ParseDate(job.DateFrom, r.cfg.Location)
	if err != nil {
		return Permanent(err)
	}
	end, err := booking.ParseDate(job.DateTo, r.cfg.Location)
	if err != nil {
		return Permanent(err)
	}

	figures, err := kind.aggregate(ctx, r.cfg.Aggregator, start, end)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	doc, err := r.cfg.Renderer.Render(kind.template, Document{
		DateFrom:    job.DateFrom,
		DateTo:      job.DateTo,
		Figures:     figures,
		GeneratedAt: r.now().In(r.cfg.Location),
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	key := FileKey(job.ReportID, job.ReportType)
	fileName := FileName(job.ReportType)
	if err := r.cfg.Storage.Put(ctx, key, doc, pdfMIME); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	if err := r.cfg.Reports.MarkReady(ctx, job.ReportID, key, fileName); err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return Permanent(err)
		}
		return fmt.Errorf("mark ready: %w", err)
	}
	log.Info().Str("file_key", key).Msg("report ready")

	if job.Email == "" {
		log.Warn().Msg("no email provided for report delivery")
		return nil
	}
	if r.cfg.Mailer == nil {
		log.Warn().Msg("report mailer not configured, skipping delivery")
		return nil
	}
	if err := r.cfg.Mailer.SendAttachment(ctx, job.Email, emailSubject, emailBody, fileName, doc); err != nil {
		log.Error().Err(err).Str("email", job.Email).Msg("failed to email report")
		return nil
	}
	log.Info().Str("email", job.Email).Msg("report emailed")
	return nil
}

// Handle runs the job and settles its outcome: success and permanent
// failures are final, transient failures are re-published with backoff until
// MaxRetries retries have been spent. It returns an error only when a retry
// could not be published.
func (r *Runner) Handle(ctx context.Context, job Job) error {
	started := r.now()
	err := r.Run(ctx, job)
	elapsed := r.now().Sub(started).Seconds()
	reportType := string(job.ReportType)

	log := r.cfg.Logger.With().
		Str("report_id", job.ReportID).
		Str("report_type", reportType).
		Int("attempt", job.Attempt).
		Logger()

	switch {
	case err == nil:
		r.cfg.Metrics.ObserveJob(reportType, "ready", elapsed)
		return nil
	case IsPermanent(err):
		log.Error().Err(err).Msg("report job aborted")
		r.cfg.Metrics.ObserveJob(reportType, "dropped", elapsed)
		return nil
	case job.Attempt >= r.cfg.MaxRetries || r.cfg.Publisher == nil:
		log.Error().Err(err).Msg("report job failed, retries exhausted")
		r.cfg.Metrics.ObserveJob(reportType, "failed", elapsed)
		return nil
	}

	next := job
	next.Attempt++
	delay := r.backoff(next.Attempt)
	log.Warn().Err(err).Dur("retry_in", delay).Msg("report job failed, retrying")
	r.cfg.Metrics.ObserveJob(reportType, "retried", elapsed)

	if perr := r.cfg.Publisher.PublishAfter(ctx, next, delay); perr != nil {
		return fmt.Errorf("republish report job: %w", perr)
	}
	return nil
}

// backoff doubles per attempt starting from the configured base.
func (r *Runner) backoff(attempt int) time.Duration {
	if r.cfg.Backoff <= 0 || attempt <= 0 {
		return 0
	}
	return r.cfg.Backoff << (attempt - 1)
}
