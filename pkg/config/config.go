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

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Insights InsightsSettings
	Export   ExportConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs caching of course insight responses.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// InsightsSettings carries the analytics thresholds and alert policy as
// plain values; the service layer materialises them into its own
// configuration type.
type InsightsSettings struct {
	GradeThreshold          float64
	AttendanceThreshold     float64
	EngagementThreshold     float64
	SubmissionRateThreshold float64

	AlertsEnabled  bool
	AlertFrequency string

	PredictionsEnabled  bool
	PredictionFrequency string
	ConfidenceThreshold float64

	BatchWorkers int
}

// ExportConfig gates the report export endpoints.
type ExportConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

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
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("INSIGHTS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Insights = InsightsSettings{
		GradeThreshold:          v.GetFloat64("RISK_GRADE_THRESHOLD"),
		AttendanceThreshold:     v.GetFloat64("RISK_ATTENDANCE_THRESHOLD"),
		EngagementThreshold:     v.GetFloat64("RISK_ENGAGEMENT_THRESHOLD"),
		SubmissionRateThreshold: v.GetFloat64("RISK_SUBMISSION_RATE_THRESHOLD"),
		AlertsEnabled:           v.GetBool("ALERTS_ENABLED"),
		AlertFrequency:          v.GetString("ALERT_FREQUENCY"),
		PredictionsEnabled:      v.GetBool("PREDICTIONS_ENABLED"),
		PredictionFrequency:     v.GetString("PREDICTION_FREQUENCY"),
		ConfidenceThreshold:     v.GetFloat64("PREDICTION_CONFIDENCE_THRESHOLD"),
		BatchWorkers:            v.GetInt("INSIGHTS_BATCH_WORKERS"),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_EXPORT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lumen_insights")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("INSIGHTS_CACHE_TTL", "10m")

	v.SetDefault("RISK_GRADE_THRESHOLD", 70)
	v.SetDefault("RISK_ATTENDANCE_THRESHOLD", 0.8)
	v.SetDefault("RISK_ENGAGEMENT_THRESHOLD", 0.6)
	v.SetDefault("RISK_SUBMISSION_RATE_THRESHOLD", 0.8)
	v.SetDefault("ALERTS_ENABLED", true)
	v.SetDefault("ALERT_FREQUENCY", "daily")
	v.SetDefault("PREDICTIONS_ENABLED", true)
	v.SetDefault("PREDICTION_FREQUENCY", "weekly")
	v.SetDefault("PREDICTION_CONFIDENCE_THRESHOLD", 0.7)
	v.SetDefault("INSIGHTS_BATCH_WORKERS", 4)

	v.SetDefault("ENABLE_EXPORT", false)
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
