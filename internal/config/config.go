package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret string
	TokenTTL  time.Duration

	// Object store (S3-compatible).
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	SignedURLTTL time.Duration

	// Notification transport. Mode selects "smtp" or "relay".
	MailMode      string
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SenderEmail   string
	RelayURL      string
	OperatorEmail string

	// Dispatcher retry policy.
	MailAttempts       int
	MailRetryDelay     time.Duration
	MailAttemptTimeout time.Duration

	// Loan policy.
	DefaultInterestRate float64
	DefaultTermMonths   int
	LoanTransitions     string

	// Optional base-rate feed seeding the default interest rate.
	RateFeedURL    string
	RateFeedMargin float64

	// Idempotency store. Empty address disables the middleware.
	RedisAddr string
	RedisDB   int
	IdempotencyTTL time.Duration

	// Cron spec for the pending-review reminder. Empty disables it.
	ReminderSchedule string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		DBConn:   getEnv("DB_CONN", "host=localhost port=5432 user=loanoffice password=loanoffice dbname=loanoffice sslmode=disable"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getDuration("TOKEN_TTL", 2*time.Hour),

		S3Endpoint:   getEnv("S3_ENDPOINT", "s3.amazonaws.com"),
		S3Region:     getEnv("S3_REGION", "af-south-1"),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3UseSSL:     getBool("S3_USE_SSL", true),
		SignedURLTTL: getDuration("SIGNED_URL_TTL", 15*time.Minute),

		MailMode:      getEnv("MAIL_MODE", "smtp"),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", "no-reply@msbfinance.co.za"),
		RelayURL:      getEnv("MAIL_RELAY_URL", ""),
		OperatorEmail: getEnv("OPERATOR_EMAIL", ""),

		MailAttempts:       getInt("MAIL_ATTEMPTS", 3),
		MailRetryDelay:     getDuration("MAIL_RETRY_DELAY", 3*time.Second),
		MailAttemptTimeout: getDuration("MAIL_ATTEMPT_TIMEOUT", 10*time.Second),

		DefaultInterestRate: getFloat("DEFAULT_INTEREST_RATE", 24.5),
		DefaultTermMonths:   getInt("DEFAULT_TERM_MONTHS", 12),
		LoanTransitions:     getEnv("LOAN_TRANSITIONS", ""),

		RateFeedURL:    getEnv("RATE_FEED_URL", ""),
		RateFeedMargin: getFloat("RATE_FEED_MARGIN", 5.0),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisDB:        getInt("REDIS_DB", 0),
		IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required")
	}
	switch cfg.MailMode {
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required when MAIL_MODE=smtp")
		}
	case "relay":
		if cfg.RelayURL == "" {
			return nil, fmt.Errorf("MAIL_RELAY_URL is required when MAIL_MODE=relay")
		}
	default:
		return nil, fmt.Errorf("MAIL_MODE must be smtp or relay, got %q", cfg.MailMode)
	}
	if cfg.OperatorEmail == "" {
		return nil, fmt.Errorf("OPERATOR_EMAIL is required")
	}
	if cfg.MailAttempts < 1 {
		return nil, fmt.Errorf("MAIL_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
