// Package app wires configuration into the HTTP server, the report worker
// and the migration command.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"smart-health-server/internal/ai"
	"smart-health-server/internal/analytics"
	"smart-health-server/internal/config"
	"smart-health-server/internal/logging"
	"smart-health-server/internal/metrics"
	"smart-health-server/internal/models"
	"smart-health-server/internal/notify"
	"smart-health-server/internal/reports"
	"smart-health-server/internal/routes"
	"smart-health-server/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App holds the long-lived collaborators shared by every command.
type App struct {
	Cfg       *config.Config
	Logger    zerolog.Logger
	DB        *gorm.DB
	Registry  *prometheus.Registry
	Queue     reports.Queue
	Storage   storage.Store
	Publisher *reports.Publisher

	reportMetrics  *metrics.ReportMetrics
	bookingMetrics *metrics.BookingMetrics
	notifyMetrics  *metrics.NotificationMetrics

	awsCfg  *aws.Config
	closers []func() error
}

// New opens the database and builds the queue and storage backends.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	db, err := models.InitDB(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Cfg:            cfg,
		Logger:         logger,
		DB:             db,
		Registry:       reg,
		reportMetrics:  metrics.NewReportMetrics(reg),
		bookingMetrics: metrics.NewBookingMetrics(reg),
		notifyMetrics:  metrics.NewNotificationMetrics(reg),
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	if a.Queue, err = a.buildQueue(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.Storage, err = a.buildStorage(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Publisher = reports.NewPublisher(a.Queue)
	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) aws(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.Cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	a.awsCfg = &cfg
	return cfg, nil
}

func (a *App) buildQueue(ctx context.Context) (reports.Queue, error) {
	switch a.Cfg.Queue.Backend {
	case "redis":
		opts, err := redis.ParseURL(a.Cfg.Queue.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return reports.NewRedisQueue(client, a.Cfg.Queue.Name), nil
	case "sqs":
		awsCfg, err := a.aws(ctx)
		if err != nil {
			return nil, err
		}
		return reports.NewSQSQueue(sqs.NewFromConfig(awsCfg), a.Cfg.Queue.SQSURL), nil
	default:
		return reports.NewMemoryQueue(100), nil
	}
}

func (a *App) buildStorage(ctx context.Context) (storage.Store, error) {
	if a.Cfg.Storage.Backend == "s3" {
		awsCfg, err := a.aws(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(s3.NewFromConfig(awsCfg), a.Cfg.Storage.S3Bucket, a.Cfg.Storage.S3Prefix), nil
	}
	return storage.NewLocalStore(a.Cfg.Storage.LocalDir)
}

// Migrate brings the schema up to date.
func (a *App) Migrate(ctx context.Context) error {
	if err := models.Migrate(a.DB.WithContext(ctx)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.Logger.Info().Str("driver", a.Cfg.Database.Driver).Msg("database migrated")
	return nil
}

func (a *App) notifier() *notify.Notifier {
	log := logging.Component(a.Logger, "notifications")

	var email notify.TemplateSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    a.Cfg.SendGrid.APIKey,
		FromEmail: a.Cfg.SendGrid.FromEmail,
		FromName:  a.Cfg.SendGrid.FromName,
	}, log); sg != nil {
		email = sg
	} else {
		log.Warn().Msg("SENDGRID_API_KEY not set, appointment emails are logged only")
	}

	var sms notify.SMSSender
	if client, err := notify.NewSMSClient(notify.SMSConfig{
		BaseURL: a.Cfg.SMS.BaseURL,
		APIKey:  a.Cfg.SMS.APIKey,
		From:    a.Cfg.SMS.From,
	}); err == nil {
		sms = client
	} else {
		log.Warn().Err(err).Msg("sms gateway not configured, texts are logged only")
	}

	return notify.NewNotifier(email, sms, notify.Templates{
		Booked:    a.Cfg.SendGrid.BookedTemplate,
		Cancelled: a.Cfg.SendGrid.CancelledTemplate,
	}, a.notifyMetrics, log)
}

func (a *App) assistant(ctx context.Context) *ai.Service {
	log := logging.Component(a.Logger, "ai")
	if a.Cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, ai endpoints return fallback text")
		return ai.NewService(nil, log)
	}
	client, err := ai.NewGeminiClient(ctx, a.Cfg.Gemini.APIKey, a.Cfg.Gemini.Model)
	if err != nil {
		log.Error().Err(err).Msg("gemini client unavailable")
		return ai.NewService(nil, log)
	}
	a.closers = append(a.closers, client.Close)
	return ai.NewService(client, log)
}

func (a *App) reportMailer() reports.Mailer {
	if a.Cfg.Mailer.Username == "" {
		a.Logger.Warn().Msg("EMAIL_HOST_USER not set, report emails are logged only")
		return notify.NewStubEmailSender(logging.Component(a.Logger, "notifications"))
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     a.Cfg.Mailer.Host,
		Port:     a.Cfg.Mailer.Port,
		Username: a.Cfg.Mailer.Username,
		Password: a.Cfg.Mailer.Password,
		From:     a.Cfg.Mailer.DefaultFrom,
	})
}

// Worker builds the report job consumer.
func (a *App) Worker() *reports.Worker {
	log := logging.Component(a.Logger, "reports")
	runner := reports.NewRunner(reports.RunnerConfig{
		Reports:    reports.GormReportStore{DB: a.DB},
		Aggregator: analytics.NewService(a.DB, a.Cfg.Location()),
		Renderer:   reports.PDFRenderer{},
		Storage:    a.Storage,
		Mailer:     a.reportMailer(),
		Publisher:  a.Publisher,
		Metrics:    a.reportMetrics,
		Logger:     log,
		Location:   a.Cfg.Location(),
		MaxRetries: a.Cfg.Worker.MaxRetries,
		Backoff:    a.Cfg.Worker.Backoff,
	})
	return reports.NewWorker(a.Queue, runner, log, reports.WorkerConfig{
		Concurrency:       a.Cfg.Worker.Concurrency,
		VisibilityTimeout: a.Cfg.Worker.VisibilityTimeout,
	})
}

// RunWorker consumes report jobs until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	if a.Cfg.Queue.Backend == "memory" {
		a.Logger.Warn().Msg("memory queue is process-local, run the worker inside serve instead")
	}
	return a.Worker().Run(ctx)
}

// Router builds the HTTP handler.
func (a *App) Router(ctx context.Context) *gin.Engine {
	if a.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return routes.NewRouter(routes.Dependencies{
		DB:        a.DB,
		Cfg:       a.Cfg,
		Logger:    logging.Component(a.Logger, "http"),
		Notifier:  a.notifier(),
		Assistant: a.assistant(ctx),
		Publisher: a.Publisher,
		Storage:   a.Storage,
		Bookings:  a.bookingMetrics,
		Gatherer:  a.Registry,
	})
}

// Serve runs the HTTP server until ctx is cancelled. With the memory queue
// the report worker runs in the same process.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Cfg.Port,
		Handler:           a.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Logger.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	if a.Cfg.Queue.Backend == "memory" {
		g.Go(func() error {
			return a.Worker().Run(ctx)
		})
	}
	return g.Wait()
}
