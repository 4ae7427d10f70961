package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	SES       SESConfig
	Admin     AdminConfig
	Retention RetentionConfig
	Rules     Rules
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
	APIRateLimit   int
	APIRateWindow  time.Duration
}

// StoreConfig selects where attempts and alert state live
type StoreConfig struct {
	AttemptBackend string
	AlertBackend   string
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ApplicationName   string
	StatementTimeout  time.Duration
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NATSConfig enables alert fan-out over NATS when URL is set
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// SESConfig enables alert e-mail when FromAddress and Recipients are set
type SESConfig struct {
	Region      string
	FromAddress string
	Recipients  []string
	MinSeverity models.Severity
}

type AdminConfig struct {
	JWTSecret string
	Issuer    string
}

type RetentionConfig struct {
	AttemptRetention time.Duration
	AuditRetention   time.Duration
	CleanupInterval  time.Duration
}

// Enabled reports whether NATS notifications are configured
func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

// Enabled reports whether SES notifications are configured
func (c SESConfig) Enabled() bool {
	return c.FromAddress != "" && len(c.Recipients) > 0
}

// UsesPostgres reports whether any store is backed by Postgres
func (c StoreConfig) UsesPostgres() bool {
	return c.AttemptBackend == BackendPostgres || c.AlertBackend == BackendPostgres
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	adminSecret := getEnv("ADMIN_JWT_SECRET", "")
	if adminSecret == "" {
		return nil, fmt.Errorf("ADMIN_JWT_SECRET is required")
	}

	minSeverity, err := models.ParseSeverity(getEnv("SES_MIN_SEVERITY", string(models.SeverityError)))
	if err != nil {
		return nil, fmt.Errorf("SES_MIN_SEVERITY: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			APIRateLimit:   getEnvAsInt("API_RATE_LIMIT", 300),
			APIRateWindow:  getEnvAsDuration("API_RATE_WINDOW", time.Minute),
		},
		Store: StoreConfig{
			AttemptBackend: strings.ToLower(getEnv("ATTEMPT_STORE", BackendPostgres)),
			AlertBackend:   strings.ToLower(getEnv("ALERT_STORE", BackendPostgres)),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "attempts"),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "alerts"),
		},
		SES: SESConfig{
			Region:      getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("SES_FROM_ADDRESS", ""),
			Recipients:  getEnvAsList("SES_ALERT_RECIPIENTS"),
			MinSeverity: minSeverity,
		},
		Admin: AdminConfig{
			JWTSecret: adminSecret,
			Issuer:    getEnv("ADMIN_JWT_ISSUER", "sentinel"),
		},
		Retention: RetentionConfig{
			AttemptRetention: getEnvAsDuration("ATTEMPT_RETENTION", 7*24*time.Hour),
			AuditRetention:   getEnvAsDuration("AUDIT_RETENTION", 90*24*time.Hour),
			CleanupInterval:  getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
	}

	rules, err := LoadRules(getEnv("RULES_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Rules = *rules

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that do not run
// the service
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	db := loadDatabase()
	if db.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	return &db, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "sentinel"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		ApplicationName:   getEnv("DB_APPLICATION_NAME", "sentinel"),
		StatementTimeout:  getEnvAsDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
	}
}

func (c *Config) validate() error {
	if err := validateBackend("ATTEMPT_STORE", c.Store.AttemptBackend, BackendPostgres, BackendRedis, BackendMemory); err != nil {
		return err
	}
	if err := validateBackend("ALERT_STORE", c.Store.AlertBackend, BackendPostgres, BackendMemory); err != nil {
		return err
	}

	if c.Store.UsesPostgres() && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required for the postgres backend")
	}

	if err := validateJWTSecret(c.Admin.JWTSecret, c.Server.Env); err != nil {
		return err
	}

	longest := c.Rules.LongestWindow()
	if c.Retention.AttemptRetention <= longest {
		return fmt.Errorf("ATTEMPT_RETENTION (%s) must exceed the longest attempt window (%s)",
			c.Retention.AttemptRetention, longest)
	}

	if c.Retention.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive")
	}

	return nil
}

func validateBackend(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s (got %q)", name, strings.Join(allowed, ", "), value)
}

// validateJWTSecret enforces minimum security standards for the admin token secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("ADMIN_JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("ADMIN_JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated variable, dropping blanks
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return []string{}
	}

	out := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
