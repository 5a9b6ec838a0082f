// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, recommendation tuning,
// retraining cadence, reminders, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-booking-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RecoConfig tunes the recommendation engine.
type RecoConfig struct {
	BlendWeight      float64 // RECO_BLEND_WEIGHT: convex weight on the rule score [0,1]
	TopK             int     // RECO_TOP_K: slots returned per request
	WindowDays       int     // RECO_WINDOW_DAYS: candidate look-ahead horizon
	MaxCandidates    int     // RECO_MAX_CANDIDATES: candidate cap per request
	RecentWindowDays int     // RECO_RECENT_WINDOW_DAYS: recent-count feature window
}

// RetrainConfig tunes the model retraining pipeline.
type RetrainConfig struct {
	MinRows          int           // RETRAIN_MIN_ROWS: skip below this dataset size
	RegressionMargin float64       // RETRAIN_REGRESSION_MARGIN: tolerated accuracy loss
	HoldoutRatio     float64       // RETRAIN_HOLDOUT_RATIO in (0,1)
	Seed             int64         // RETRAIN_SEED for the deterministic split
	Interval         time.Duration // RETRAIN_INTERVAL: cadence; 0 disables the loop
}

// ReminderConfig tunes the reminder sweep and its broker.
type ReminderConfig struct {
	CheckInterval time.Duration // REMINDER_CHECK_INTERVAL: sweep cadence; 0 disables
	AMQPURL       string        // AMQP_URL: broker address; empty selects console fallback
	AMQPExchange  string        // AMQP_EXCHANGE: topic exchange for reminder events
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	DBPath string // SQLite path

	// Recommendation / training / reminders
	Reco     RecoConfig
	Retrain  RetrainConfig
	Reminder ReminderConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "app.db"),

		// Recommendation engine
		Reco: RecoConfig{
			BlendWeight:      getfloat("RECO_BLEND_WEIGHT", 0.5),
			TopK:             getint("RECO_TOP_K", 2),
			WindowDays:       getint("RECO_WINDOW_DAYS", 30),
			MaxCandidates:    getint("RECO_MAX_CANDIDATES", 50),
			RecentWindowDays: getint("RECO_RECENT_WINDOW_DAYS", 90),
		},

		// Retraining
		Retrain: RetrainConfig{
			MinRows:          getint("RETRAIN_MIN_ROWS", 50),
			RegressionMargin: getfloat("RETRAIN_REGRESSION_MARGIN", 0.02),
			HoldoutRatio:     getfloat("RETRAIN_HOLDOUT_RATIO", 0.2),
			Seed:             int64(getint("RETRAIN_SEED", 1)),
			Interval:         getdur("RETRAIN_INTERVAL", 0),
		},

		// Reminders
		Reminder: ReminderConfig{
			CheckInterval: getdur("REMINDER_CHECK_INTERVAL", time.Hour),
			AMQPURL:       getenv("AMQP_URL", ""),
			AMQPExchange:  getenv("AMQP_EXCHANGE", "booking.reminders"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-booking-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Reco.BlendWeight < 0 || cfg.Reco.BlendWeight > 1 {
		return cfg, errors.New("RECO_BLEND_WEIGHT must be between 0 and 1")
	}
	if cfg.Reco.TopK < 1 {
		return cfg, errors.New("RECO_TOP_K must be >= 1")
	}
	if cfg.Reco.WindowDays < 1 {
		return cfg, errors.New("RECO_WINDOW_DAYS must be >= 1")
	}
	if cfg.Reco.MaxCandidates < 1 {
		return cfg, errors.New("RECO_MAX_CANDIDATES must be >= 1")
	}
	if cfg.Reco.RecentWindowDays < 1 {
		return cfg, errors.New("RECO_RECENT_WINDOW_DAYS must be >= 1")
	}
	if cfg.Retrain.MinRows < 1 {
		return cfg, errors.New("RETRAIN_MIN_ROWS must be >= 1")
	}
	if cfg.Retrain.HoldoutRatio <= 0 || cfg.Retrain.HoldoutRatio >= 1 {
		return cfg, errors.New("RETRAIN_HOLDOUT_RATIO must be in (0,1)")
	}
	if cfg.Retrain.Interval < 0 {
		return cfg, errors.New("RETRAIN_INTERVAL must be >= 0")
	}
	if cfg.Reminder.CheckInterval < 0 {
		return cfg, errors.New("REMINDER_CHECK_INTERVAL must be >= 0")
	}
	if strings.TrimSpace(cfg.Reminder.AMQPExchange) == "" {
		return cfg, errors.New("AMQP_EXCHANGE must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
