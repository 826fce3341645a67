package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	TimeZone                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	PageSize                  int
	AIRatePerMinute           int
	Database                  DatabaseConfig
	Mailer                    MailerConfig
	SendGrid                  SendGridConfig
	SMS                       SMSConfig
	Gemini                    GeminiConfig
	AWSRegion                 string
	Queue                     QueueConfig
	Storage                   StorageConfig
	Worker                    WorkerConfig

	location *time.Location
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// MailerConfig holds SMTP settings used for report delivery
type MailerConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DefaultFrom string
}

// SendGridConfig holds the dynamic-template email settings
type SendGridConfig struct {
	APIKey            string
	FromEmail         string
	FromName          string
	BookedTemplate    string
	CancelledTemplate string
}

// SMSConfig holds the SMS gateway settings
type SMSConfig struct {
	BaseURL string
	APIKey  string
	From    string
}

// GeminiConfig holds generative AI settings
type GeminiConfig struct {
	APIKey string
	Model  string
}

// QueueConfig selects the report job queue backend
type QueueConfig struct {
	Backend  string
	RedisURL string
	SQSURL   string
	Name     string
}

// StorageConfig selects where rendered reports are kept
type StorageConfig struct {
	Backend  string
	LocalDir string
	S3Bucket string
	S3Prefix string
}

// WorkerConfig tunes the report job consumer
type WorkerConfig struct {
	Concurrency       int
	MaxRetries        int
	Backoff           time.Duration
	VisibilityTimeout time.Duration
}

// LoadConfig loads configuration from an optional .env file and the environment.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		Username: v.GetString("DB_USERNAME"),
		Password: v.GetString("DB_PASSWORD"),
		Name:     v.GetString("DB_NAME"),
		DSN:      v.GetString("DATABASE_DSN"),
	}
	if dbConfig.DSN == "" {
		dbConfig.DSN = buildDSN(dbConfig)
	}

	cfg := &Config{
		Port:                      v.GetString("PORT"),
		Origin:                    v.GetString("ORIGIN"),
		Environment:               strings.ToLower(v.GetString("ENVIRONMENT")),
		LogLevel:                  strings.ToLower(v.GetString("LOG_LEVEL")),
		TimeZone:                  v.GetString("TIME_ZONE"),
		JWTSecret:                 v.GetString("JWT_SECRET"),
		JWTRefreshSecret:          v.GetString("JWT_REFRESH_SECRET"),
		JWTExpirationMinutes:      v.GetInt("JWT_EXPIRATION_MINUTES"),
		JWTRefreshExpirationHours: v.GetInt("JWT_REFRESH_EXPIRATION_HOURS"),
		PageSize:                  v.GetInt("PAGE_SIZE"),
		AIRatePerMinute:           v.GetInt("AI_RATE_PER_MINUTE"),
		Database:                  dbConfig,
		Mailer: MailerConfig{
			Host:        v.GetString("EMAIL_HOST"),
			Port:        v.GetInt("EMAIL_PORT"),
			Username:    v.GetString("EMAIL_HOST_USER"),
			Password:    v.GetString("EMAIL_HOST_PASSWORD"),
			DefaultFrom: v.GetString("DEFAULT_FROM_EMAIL"),
		},
		SendGrid: SendGridConfig{
			APIKey:            v.GetString("SENDGRID_API_KEY"),
			FromEmail:         v.GetString("SENDGRID_FROM_EMAIL"),
			FromName:          v.GetString("SENDGRID_FROM_NAME"),
			BookedTemplate:    v.GetString("SENDGRID_TEMPLATE_BOOKED"),
			CancelledTemplate: v.GetString("SENDGRID_TEMPLATE_CANCELLED"),
		},
		SMS: SMSConfig{
			BaseURL: v.GetString("SMS_BASE_URL"),
			APIKey:  v.GetString("SMS_API_KEY"),
			From:    v.GetString("SMS_FROM"),
		},
		Gemini: GeminiConfig{
			APIKey: v.GetString("GEMINI_API_KEY"),
			Model:  v.GetString("GEMINI_MODEL"),
		},
		AWSRegion: v.GetString("AWS_REGION"),
		Queue: QueueConfig{
			Backend:  strings.ToLower(v.GetString("QUEUE_BACKEND")),
			RedisURL: v.GetString("REDIS_URL"),
			SQSURL:   v.GetString("SQS_QUEUE_URL"),
			Name:     v.GetString("QUEUE_NAME"),
		},
		Storage: StorageConfig{
			Backend:  strings.ToLower(v.GetString("STORAGE_BACKEND")),
			LocalDir: v.GetString("REPORTS_DIR"),
			S3Bucket: v.GetString("REPORTS_S3_BUCKET"),
			S3Prefix: v.GetString("REPORTS_S3_PREFIX"),
		},
		Worker: WorkerConfig{
			Concurrency:       v.GetInt("WORKER_CONCURRENCY"),
			MaxRetries:        v.GetInt("REPORT_MAX_RETRIES"),
			Backoff:           v.GetDuration("REPORT_RETRY_BACKOFF"),
			VisibilityTimeout: v.GetDuration("JOB_VISIBILITY_TIMEOUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("ORIGIN", "http://localhost:3000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TIME_ZONE", "UTC")
	v.SetDefault("JWT_EXPIRATION_MINUTES", 60)
	v.SetDefault("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	v.SetDefault("PAGE_SIZE", 10)
	v.SetDefault("AI_RATE_PER_MINUTE", 10)

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "smart_health")

	v.SetDefault("EMAIL_HOST", "localhost")
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("DEFAULT_FROM_EMAIL", "noreply@example.com")
	v.SetDefault("SENDGRID_FROM_NAME", "Smart Health")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")

	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("QUEUE_BACKEND", "memory")
	v.SetDefault("QUEUE_NAME", "reports")
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("REPORTS_DIR", "media/reports")
	v.SetDefault("REPORTS_S3_PREFIX", "reports/")

	v.SetDefault("WORKER_CONCURRENCY", 2)
	v.SetDefault("REPORT_MAX_RETRIES", 3)
	v.SetDefault("REPORT_RETRY_BACKOFF", "5s")
	v.SetDefault("JOB_VISIBILITY_TIMEOUT", "15m")
}

func buildDSN(db DatabaseConfig) string {
	switch db.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			db.Host, db.Username, db.Password, db.Name, db.Port)
	case "sqlite":
		return db.Name + ".db"
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			db.Username, db.Password, db.Host, db.Port, db.Name)
	}
}

// Validate checks the configuration eagerly so that a bad deployment fails at
// startup instead of on the first request or job.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() {
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
		if c.JWTRefreshSecret == "" {
			errs = append(errs, errors.New("JWT_REFRESH_SECRET is required in production"))
		}
	} else {
		if c.JWTSecret == "" {
			c.JWTSecret = "dev-jwt-secret-change-me"
		}
		if c.JWTRefreshSecret == "" {
			c.JWTRefreshSecret = "dev-refresh-secret-change-me"
		}
	}

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be mysql, postgres or sqlite, got %q", c.Database.Driver))
	}

	switch c.Queue.Backend {
	case "memory":
	case "redis":
		if c.Queue.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when QUEUE_BACKEND=redis"))
		}
	case "sqs":
		if c.Queue.SQSURL == "" {
			errs = append(errs, errors.New("SQS_QUEUE_URL is required when QUEUE_BACKEND=sqs"))
		}
	default:
		errs = append(errs, fmt.Errorf("QUEUE_BACKEND must be memory, redis or sqs, got %q", c.Queue.Backend))
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			errs = append(errs, errors.New("REPORTS_DIR is required when STORAGE_BACKEND=local"))
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("REPORTS_S3_BUCKET is required when STORAGE_BACKEND=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be local or s3, got %q", c.Storage.Backend))
	}

	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err))
	} else {
		c.location = loc
	}

	if c.JWTExpirationMinutes <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINUTES must be positive"))
	}
	if c.JWTRefreshExpirationHours <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_EXPIRATION_HOURS must be positive"))
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be between 1 and 100, got %d", c.PageSize))
	}
	if c.AIRatePerMinute <= 0 {
		errs = append(errs, errors.New("AI_RATE_PER_MINUTE must be positive"))
	}
	if c.Worker.Concurrency <= 0 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be positive"))
	}
	if c.Worker.MaxRetries < 0 {
		errs = append(errs, errors.New("REPORT_MAX_RETRIES cannot be negative"))
	}
	if c.Worker.VisibilityTimeout < time.Second {
		errs = append(errs, errors.New("JOB_VISIBILITY_TIMEOUT must be at least 1s"))
	}

	return errors.Join(errs...)
}

// Location returns the canonical time zone used for booking and reporting.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether the server runs with development settings.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
