package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Projection ProjectionConfig
	Billing    BillingConfig
	Summary    SummaryConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig gates the bearer-token check in front of the API.
type JWTConfig struct {
	Enabled    bool
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ProjectionConfig tunes class-schedule projection.
type ProjectionConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	// DefaultWindowMonths is added to today when no end date is supplied.
	DefaultWindowMonths int
	FloorAllocation     bool
	LegacyRRFallback    bool
}

// BillingConfig tunes payment materialization.
type BillingConfig struct {
	LegacyItemJoin bool
	WarmupEnabled  bool
	WarmupWorkers  int
	WarmupRetries  int
	WarmupDelay    time.Duration
}

// SummaryConfig tunes the per-student summary.
type SummaryConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Enabled:    v.GetBool("AUTH_ENABLED"),
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Projection = ProjectionConfig{
		CacheEnabled:        v.GetBool("PROJECTION_CACHE_ENABLED"),
		CacheTTL:            parseDuration(v.GetString("PROJECTION_CACHE_TTL"), 5*time.Minute),
		DefaultWindowMonths: v.GetInt("PROJECTION_DEFAULT_WINDOW_MONTHS"),
		FloorAllocation:     v.GetBool("PROJECTION_FLOOR_ALLOCATION"),
		LegacyRRFallback:    v.GetBool("RECURRENCE_LEGACY_FALLBACK"),
	}
	if cfg.Projection.DefaultWindowMonths <= 0 {
		cfg.Projection.DefaultWindowMonths = 3
	}

	warmupWorkers := v.GetInt("BILLING_WARMUP_WORKERS")
	if warmupWorkers <= 0 {
		warmupWorkers = 1
	}
	cfg.Billing = BillingConfig{
		LegacyItemJoin: v.GetBool("BILLING_LEGACY_ITEM_JOIN"),
		WarmupEnabled:  v.GetBool("BILLING_WARMUP_ENABLED"),
		WarmupWorkers:  warmupWorkers,
		WarmupRetries:  v.GetInt("BILLING_WARMUP_RETRIES"),
		WarmupDelay:    parseDuration(v.GetString("BILLING_WARMUP_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Summary = SummaryConfig{
		CacheTTL: parseDuration(v.GetString("SUMMARY_CACHE_TTL"), 15*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "educollab")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "educollab")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PROJECTION_CACHE_ENABLED", true)
	v.SetDefault("PROJECTION_CACHE_TTL", "5m")
	v.SetDefault("PROJECTION_DEFAULT_WINDOW_MONTHS", 3)
	v.SetDefault("PROJECTION_FLOOR_ALLOCATION", false)
	v.SetDefault("RECURRENCE_LEGACY_FALLBACK", true)

	v.SetDefault("BILLING_LEGACY_ITEM_JOIN", true)
	v.SetDefault("BILLING_WARMUP_ENABLED", true)
	v.SetDefault("BILLING_WARMUP_WORKERS", 2)
	v.SetDefault("BILLING_WARMUP_RETRIES", 3)
	v.SetDefault("BILLING_WARMUP_RETRY_DELAY", "2s")

	v.SetDefault("SUMMARY_CACHE_TTL", "15m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
