// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, messaging gateway credentials, model parameters, and
// conversation thresholds. A Config is built once at process start and passed
// explicitly to the components that need it.
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "issy-assistant")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ZAPIConfig holds Z-API instance credentials.
type ZAPIConfig struct {
	BaseURL       string // ZAPI_BASE_URL
	InstanceID    string // ZAPI_INSTANCE_ID
	InstanceToken string // ZAPI_INSTANCE_TOKEN
	ClientToken   string // ZAPI_CLIENT_TOKEN
}

// TwilioConfig holds Twilio WhatsApp credentials.
type TwilioConfig struct {
	AccountSID string // TWILIO_ACCOUNT_SID
	AuthToken  string // TWILIO_AUTH_TOKEN
	From       string // TWILIO_WHATSAPP_FROM, e.g. "whatsapp:+14155238886"

	// WebhookBaseURL is the public scheme://host Twilio posts to, used to
	// verify signatures behind proxies. Empty rebuilds it from the request.
	WebhookBaseURL string // TWILIO_WEBHOOK_BASE_URL
}

// OpenAIConfig holds the generative model settings.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
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

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for operator API routes

	// OperatorAPIToken is the bearer token for the operator API. The
	// routes are not registered while it is empty.
	OperatorAPIToken string

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN

	// Messaging gateway
	GatewayProvider string // zapi|twilio
	ZAPI            ZAPIConfig
	Twilio          TwilioConfig

	// Generative model
	OpenAI OpenAIConfig

	// Conversation behavior
	HumanDelayMin  int           // seconds
	HumanDelayMax  int           // seconds
	HistoryLimit   int           // transcript entries sent as context
	SessionTimeout time.Duration // inactivity window before the welcome is resent
	AdminPhones    []string      // allow-list for in-band admin commands

	// Knowledge
	KnowledgePath string // optional markdown with extra product facts
	FactsTopK     int    // facts attached to each AI prompt

	// Pipeline
	EventTimeout time.Duration // upper bound for one inbound event
	DedupeTTL    time.Duration // how long a processed message id is remembered
	LockBackend  string        // memory|redis
	RedisURL     string
	LockTTL      time.Duration

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
		Port:              getenv("PORT", "3000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		OperatorAPIToken: strings.TrimSpace(getenv("OPERATOR_API_TOKEN", "")),

		// Storage
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "app.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),

		// Messaging gateway
		GatewayProvider: strings.ToLower(getenv("GATEWAY_PROVIDER", "zapi")),
		ZAPI: ZAPIConfig{
			BaseURL:       strings.TrimRight(getenv("ZAPI_BASE_URL", "https://api.z-api.io"), "/"),
			InstanceID:    getenv("ZAPI_INSTANCE_ID", ""),
			InstanceToken: getenv("ZAPI_INSTANCE_TOKEN", ""),
			ClientToken:   getenv("ZAPI_CLIENT_TOKEN", ""),
		},
		Twilio: TwilioConfig{
			AccountSID: getenv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getenv("TWILIO_AUTH_TOKEN", ""),
			From:       getenv("TWILIO_WHATSAPP_FROM", ""),

			WebhookBaseURL: strings.TrimRight(getenv("TWILIO_WEBHOOK_BASE_URL", ""), "/"),
		},

		// Generative model
		OpenAI: OpenAIConfig{
			APIKey:      getenv("OPENAI_API_KEY", ""),
			BaseURL:     getenv("OPENAI_BASE_URL", ""),
			Model:       getenv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: getfloat("OPENAI_TEMPERATURE", 0.85),
			MaxTokens:   getint("OPENAI_MAX_TOKENS", 500),
			Timeout:     getdur("OPENAI_TIMEOUT", 20*time.Second),
		},

		// Conversation behavior
		HumanDelayMin:  getdelay("HUMAN_DELAY_MIN", 2),
		HumanDelayMax:  getdelay("HUMAN_DELAY_MAX", 3),
		HistoryLimit:   getint("HISTORY_LIMIT", 20),
		SessionTimeout: getdur("SESSION_TIMEOUT", 30*time.Minute),
		AdminPhones:    splitCSV(getenv("ADMIN_PHONE_NUMBERS", "")),

		// Knowledge
		KnowledgePath: getenv("KNOWLEDGE_PATH", ""),
		FactsTopK:     getint("FACTS_TOP_K", 4),

		// Pipeline
		EventTimeout: getdur("EVENT_TIMEOUT", 60*time.Second),
		DedupeTTL:    getdur("DEDUPE_TTL", 24*time.Hour),
		LockBackend:  strings.ToLower(getenv("LOCK_BACKEND", "memory")),
		RedisURL:     getenv("REDIS_URL", "redis://localhost:6379/0"),
		LockTTL:      getdur("LOCK_TTL", 90*time.Second),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

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
			ServiceName: getenv("OTEL_SERVICE_NAME", "issy-assistant"),
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
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}
	for i, p := range cfg.AdminPhones {
		cfg.AdminPhones[i] = digitsOnly(p)
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
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.GatewayProvider {
	case "zapi", "twilio":
	default:
		return cfg, errors.New("GATEWAY_PROVIDER must be one of: zapi, twilio")
	}
	if cfg.OpenAI.Temperature < 0 || cfg.OpenAI.Temperature > 2 {
		return cfg, errors.New("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	if cfg.OpenAI.MaxTokens < 1 {
		return cfg, errors.New("OPENAI_MAX_TOKENS must be >= 1")
	}
	if cfg.OpenAI.Timeout <= 0 {
		return cfg, errors.New("OPENAI_TIMEOUT must be > 0")
	}
	if cfg.HumanDelayMin < 0 || cfg.HumanDelayMax < cfg.HumanDelayMin {
		return cfg, errors.New("HUMAN_DELAY_MIN must be >= 0 and <= HUMAN_DELAY_MAX")
	}
	if cfg.HistoryLimit < 0 {
		return cfg, errors.New("HISTORY_LIMIT must be >= 0")
	}
	if cfg.SessionTimeout <= 0 {
		return cfg, errors.New("SESSION_TIMEOUT must be > 0")
	}
	if cfg.FactsTopK < 0 {
		return cfg, errors.New("FACTS_TOP_K must be >= 0")
	}
	if cfg.EventTimeout <= 0 {
		return cfg, errors.New("EVENT_TIMEOUT must be > 0")
	}
	if cfg.DedupeTTL <= 0 {
		return cfg, errors.New("DEDUPE_TTL must be > 0")
	}
	switch cfg.LockBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return cfg, errors.New("REDIS_URL is required when LOCK_BACKEND=redis")
		}
		if cfg.LockTTL <= 0 {
			return cfg, errors.New("LOCK_TTL must be > 0")
		}
	default:
		return cfg, errors.New("LOCK_BACKEND must be one of: memory, redis")
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

// IsAdmin reports whether phone is on the admin allow-list. Both sides are
// compared as digits only, so "+55 11 9..." and "55119..." match.
func (c Config) IsAdmin(phone string) bool {
	p := digitsOnly(phone)
	if p == "" {
		return false
	}
	for _, a := range c.AdminPhones {
		if a == p {
			return true
		}
	}
	return false
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

// getdelay reads a typing delay in whole seconds from k. k+"_MS", when set,
// wins and is rounded to the nearest second (1500 -> 2).
func getdelay(k string, def int) int {
	if v, ok := os.LookupEnv(k + "_MS"); ok && v != "" {
		if ms, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			if ms < 0 {
				return -1
			}
			return (ms + 500) / 1000
		}
	}
	return getint(k, def)
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

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
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
