package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	App       AppConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Vault     VaultConfig
	Storage   StorageConfig
	OpenSign  OpenSignConfig
	Bitrix    BitrixConfig
	Email     EmailConfig
	Workflow  WorkflowConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         string
	TimeoutRead  time.Duration
	TimeoutWrite time.Duration
	TimeoutIdle  time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig holds the secret used to verify caller tokens
type JWTConfig struct {
	Secret string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Duration time.Duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	Env           string
	Name          string
	Version       string
	MigrationsDir string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	ReminderCron        string // e.g., "0 9 * * *" (Daily 9 AM)
	ReconcileCron       string // e.g., "*/30 * * * *" (every 30 minutes)
	OverdueCron         string // e.g., "0 8 * * *" (Daily 8 AM)
	ReminderLeadTime    time.Duration
	ReconcileGracePause time.Duration
	EnableReminders     bool
	EnableReconcile     bool
	EnableOverdue       bool
}

// VaultConfig holds Vault-related configuration
type VaultConfig struct {
	Address      string
	Token        string
	TransitMount string
	EvidenceKey  string
	Enabled      bool
}

// StorageConfig holds object storage configuration for document artifacts
type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string // optional, e.g. LocalStack "http://localhost:4566"
	AccessKey     string
	SecretKey     string
	PresignExpiry time.Duration
}

// OpenSignConfig holds signing provider configuration
type OpenSignConfig struct {
	BaseURL       string
	APIToken      string
	WebhookSecret string
	Timeout       time.Duration
	RetryMax      int
}

// BitrixConfig holds CRM configuration
type BitrixConfig struct {
	WebhookURL   string
	PipelineFile string
	Timeout      time.Duration
}

// EmailConfig holds email-related configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	PortalURL    string
	Enabled      bool
}

// WorkflowConfig holds resolver limits
type WorkflowConfig struct {
	MaxSigners  int
	Concurrency int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// godotenv doesn't override already-set variables, so order matters
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnv("SERVER_PORT", "8080"),
			TimeoutRead:  getDurationEnv("SERVER_TIMEOUT_READ", 15*time.Second),
			TimeoutWrite: getDurationEnv("SERVER_TIMEOUT_WRITE", 60*time.Second),
			TimeoutIdle:  getDurationEnv("SERVER_TIMEOUT_IDLE", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "hrcenter"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "hrcenter_db"),
			SSLMode:         getEnv("DB_SSLMODE", "prefer"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getSliceEnv("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"}),
			ExposedHeaders:   getSliceEnv("CORS_EXPOSED_HEADERS", []string{"Link"}),
			AllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getIntEnv("CORS_MAX_AGE", 300),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getBoolEnv("RATE_LIMIT_ENABLED", true),
			Requests: getIntEnv("RATE_LIMIT_REQUESTS", 100),
			Duration: getDurationEnv("RATE_LIMIT_DURATION", 1*time.Minute),
		},
		App: AppConfig{
			Env:           getEnv("APP_ENV", "development"),
			Name:          getEnv("APP_NAME", "HR Center"),
			Version:       getEnv("APP_VERSION", "1.0.0"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Scheduler: SchedulerConfig{
			ReminderCron:        getEnv("SCHEDULER_REMINDER_CRON", "0 9 * * *"),     // Daily 9 AM
			ReconcileCron:       getEnv("SCHEDULER_RECONCILE_CRON", "*/30 * * * *"), // Every 30 minutes
			OverdueCron:         getEnv("SCHEDULER_OVERDUE_CRON", "0 8 * * *"),      // Daily 8 AM
			ReminderLeadTime:    getDurationEnv("SCHEDULER_REMINDER_LEAD_TIME", 72*time.Hour),
			ReconcileGracePause: getDurationEnv("SCHEDULER_RECONCILE_GRACE", 15*time.Minute),
			EnableReminders:     getBoolEnv("SCHEDULER_ENABLE_REMINDERS", true),
			EnableReconcile:     getBoolEnv("SCHEDULER_ENABLE_RECONCILE", true),
			EnableOverdue:       getBoolEnv("SCHEDULER_ENABLE_OVERDUE", true),
		},
		Vault: VaultConfig{
			Address:      getEnv("VAULT_ADDR", "http://localhost:8200"),
			Token:        getEnv("VAULT_TOKEN", ""),
			TransitMount: getEnv("VAULT_TRANSIT_MOUNT", "transit"),
			EvidenceKey:  getEnv("VAULT_EVIDENCE_KEY", "signature-evidence"),
			Enabled:      getBoolEnv("VAULT_ENABLED", false),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("STORAGE_BUCKET", "hr-center-documents"),
			Region:        getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:     getEnv("STORAGE_SECRET_KEY", ""),
			PresignExpiry: getDurationEnv("STORAGE_PRESIGN_EXPIRY", 15*time.Minute),
		},
		OpenSign: OpenSignConfig{
			BaseURL:       getEnv("OPENSIGN_BASE_URL", "https://sandbox.opensignlabs.com/api/v1.1"),
			APIToken:      getEnv("OPENSIGN_API_TOKEN", ""),
			WebhookSecret: getEnv("OPENSIGN_WEBHOOK_SECRET", ""),
			Timeout:       getDurationEnv("OPENSIGN_TIMEOUT", 30*time.Second),
			RetryMax:      getIntEnv("OPENSIGN_RETRY_MAX", 3),
		},
		Bitrix: BitrixConfig{
			WebhookURL:   getEnv("BITRIX24_WEBHOOK_URL", ""),
			PipelineFile: getEnv("BITRIX24_PIPELINE_FILE", "./config/pipeline.yaml"),
			Timeout:      getDurationEnv("BITRIX24_TIMEOUT", 30*time.Second),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
			PortalURL:    getEnv("PORTAL_URL", "http://localhost:3000"),
			Enabled:      getBoolEnv("EMAIL_ENABLED", true),
		},
		Workflow: WorkflowConfig{
			MaxSigners:  getIntEnv("WORKFLOW_MAX_SIGNERS", 4),
			Concurrency: getIntEnv("WORKFLOW_CONCURRENCY", 8),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.OpenSign.WebhookSecret == "" {
		return fmt.Errorf("OPENSIGN_WEBHOOK_SECRET is required")
	}
	if c.Database.Password == "" && c.App.Env == "production" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}
	if c.Workflow.MaxSigners < 1 {
		return fmt.Errorf("WORKFLOW_MAX_SIGNERS must be at least 1")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		// Split by comma and trim whitespace
		parts := strings.Split(value, ",")
		var result []string
		for _, v := range parts {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
