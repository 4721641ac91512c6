// Package config loads the service configuration from the environment.
// Every variable has a default; Load normalizes and validates the result and
// reports all problems at once.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig lists origins allowed to call the API from a browser. Empty
// means any origin, without credentials.
type CORSConfig struct {
	AllowedOrigins []string // CORS_ALLOWED_ORIGINS
}

// SecurityConfig controls HSTS and the Secure flag on the session cookie.
type SecurityConfig struct {
	EnableHSTS bool          // ENABLE_HSTS
	HSTSMaxAge time.Duration // HSTS_MAX_AGE
}

// OTELConfig controls trace export.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (host:port)
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0,1]
}

// DBConfig selects the SQL driver and the primary/replica connections.
type DBConfig struct {
	Driver     string // DB_DRIVER: sqlite|postgres
	Path       string // DB_PATH (sqlite file)
	DSN        string // DB_DSN (postgres primary)
	ReplicaDSN string // DB_REPLICA_DSN (optional read path)
}

// ThanksConfig holds the thanks policy.
type ThanksConfig struct {
	MaxLoadThankedPeriod time.Duration // THANKS_MAX_LOAD_THANKED_PERIOD_DAYS, in days
	SendToBots           bool          // THANKS_SEND_TO_BOTS
	AllowedLogTypes      []string      // THANKS_ALLOWED_LOG_TYPES: "type" or "type/subtype"
	ConfirmationRequired bool          // THANKS_CONFIRMATION_REQUIRED
	PrivilegedGroups     []string      // THANKS_PRIVILEGED_GROUPS
}

// SessionConfig selects where the per-session thanked list lives.
type SessionConfig struct {
	Backend    string        // SESSION_BACKEND: memory|redis
	TTL        time.Duration // SESSION_TTL
	CookieName string        // SESSION_COOKIE
	MaxEntries int           // SESSION_MAX_ENTRIES (memory backend only)

	RedisAddr     string // REDIS_ADDR
	RedisPassword string // REDIS_PASSWORD
	RedisDB       int    // REDIS_DB
}

// NotifyConfig selects the notification transport.
type NotifyConfig struct {
	Backend     string // NOTIFY_BACKEND: log|nats
	NATSURL     string // NATS_URL
	NATSSubject string // NATS_SUBJECT
}

// DefaultAllowedLogTypes lists the log types whose entries can be thanked
// when THANKS_ALLOWED_LOG_TYPES is unset.
var DefaultAllowedLogTypes = []string{
	"contentmodel", "create", "delete", "import", "merge", "move",
	"pagelang", "patrol", "protect", "tag", "managetags", "rights", "lock",
}

// DefaultPrivilegedGroups lists the groups allowed to thank from gated views.
var DefaultPrivilegedGroups = []string{
	"sysop", "content-moderator", "threadmoderator", "rollback",
	"staff", "soap", "wiki-representative", "wiki-specialist",
}

// Config is the full service configuration.
type Config struct {
	// Server
	Port              string        // PORT
	ReadTimeout       time.Duration // READ_TIMEOUT
	ReadHeaderTimeout time.Duration // READ_HEADER_TIMEOUT
	WriteTimeout      time.Duration // WRITE_TIMEOUT
	IdleTimeout       time.Duration // IDLE_TIMEOUT
	MaxHeaderBytes    int           // MAX_HEADER_BYTES
	GinMode           string        // GIN_MODE: debug|release|test

	LogLevel       string // LOG_LEVEL
	LogPretty      bool   // LOG_PRETTY: console output instead of JSON
	SwaggerEnabled bool   // SWAGGER_ENABLED
	APIBasePath    string // API_BASE_PATH

	DB      DBConfig
	Thanks  ThanksConfig
	Session SessionConfig
	Notify  NotifyConfig

	RateRPS       float64 // RATE_RPS
	RateBurst     int     // RATE_BURST
	RateWriteCost int     // RATE_WRITE_COST: tokens per POST

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration // IDEMPOTENCY_TTL

	OTEL OTELConfig
}

// MustLoad is Load for main: it panics on an invalid environment.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, applies defaults and validates. Unparseable
// values fall back to their default. The returned Config is populated even
// when err is non-nil.
func Load() (Config, error) {
	cfg := Config{
		Port:              envString("PORT", "8080"),
		ReadTimeout:       env("READ_TIMEOUT", 15*time.Second, time.ParseDuration),
		ReadHeaderTimeout: env("READ_HEADER_TIMEOUT", 10*time.Second, time.ParseDuration),
		WriteTimeout:      env("WRITE_TIMEOUT", 20*time.Second, time.ParseDuration),
		IdleTimeout:       env("IDLE_TIMEOUT", 60*time.Second, time.ParseDuration),
		MaxHeaderBytes:    env("MAX_HEADER_BYTES", 1<<20, strconv.Atoi),
		GinMode:           oneOf(envLower("GIN_MODE", "release"), "release", "debug", "test"),

		LogLevel:       envLower("LOG_LEVEL", "info"),
		LogPretty:      env("LOG_PRETTY", false, parseBool),
		SwaggerEnabled: env("SWAGGER_ENABLED", false, parseBool),
		APIBasePath:    normalizeBasePath(envString("API_BASE_PATH", "/api/v1")),

		DB:      loadDB(),
		Thanks:  loadThanks(),
		Session: loadSession(),
		Notify:  loadNotify(),

		RateRPS:       env("RATE_RPS", 5.0, parseFloat),
		RateBurst:     env("RATE_BURST", 10, strconv.Atoi),
		RateWriteCost: env("RATE_WRITE_COST", 2, strconv.Atoi),

		CORS: CORSConfig{AllowedOrigins: splitCSV(envString("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: env("ENABLE_HSTS", false, parseBool),
			HSTSMaxAge: env("HSTS_MAX_AGE", 180*24*time.Hour, time.ParseDuration),
		},

		IdempotencyTTL: env("IDEMPOTENCY_TTL", 24*time.Hour, time.ParseDuration),

		OTEL: OTELConfig{
			Enabled:     env("OTEL_ENABLED", false, parseBool),
			Endpoint:    envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    env("OTEL_EXPORTER_OTLP_INSECURE", true, parseBool),
			ServiceName: envString("OTEL_SERVICE_NAME", "go-thanks-backend"),
			SampleRatio: env("OTEL_TRACES_SAMPLER_ARG", 1.0, parseFloat),
		},
	}
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	return cfg, cfg.Validate()
}

func loadDB() DBConfig {
	return DBConfig{
		Driver:     envLower("DB_DRIVER", "sqlite"),
		Path:       envString("DB_PATH", "thanks.db"),
		DSN:        envString("DB_DSN", ""),
		ReplicaDSN: envString("DB_REPLICA_DSN", ""),
	}
}

func loadThanks() ThanksConfig {
	days := env("THANKS_MAX_LOAD_THANKED_PERIOD_DAYS", 30, strconv.Atoi)
	return ThanksConfig{
		MaxLoadThankedPeriod: time.Duration(days) * 24 * time.Hour,
		SendToBots:           env("THANKS_SEND_TO_BOTS", false, parseBool),
		AllowedLogTypes:      csvOr(envString("THANKS_ALLOWED_LOG_TYPES", ""), DefaultAllowedLogTypes),
		ConfirmationRequired: env("THANKS_CONFIRMATION_REQUIRED", true, parseBool),
		PrivilegedGroups:     csvOr(envString("THANKS_PRIVILEGED_GROUPS", ""), DefaultPrivilegedGroups),
	}
}

func loadSession() SessionConfig {
	return SessionConfig{
		Backend:       envLower("SESSION_BACKEND", "memory"),
		TTL:           env("SESSION_TTL", 24*time.Hour, time.ParseDuration),
		CookieName:    envString("SESSION_COOKIE", "thanks_session"),
		MaxEntries:    env("SESSION_MAX_ENTRIES", 100000, strconv.Atoi),
		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envString("REDIS_PASSWORD", ""),
		RedisDB:       env("REDIS_DB", 0, strconv.Atoi),
	}
}

func loadNotify() NotifyConfig {
	return NotifyConfig{
		Backend:     envLower("NOTIFY_BACKEND", "log"),
		NATSURL:     envString("NATS_URL", "nats://localhost:4222"),
		NATSSubject: envString("NATS_SUBJECT", "echo.edit-thank"),
	}
}

// Validate reports every invalid setting, joined into one error.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(in(c.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"),
		"LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")

	switch c.DB.Driver {
	case "sqlite":
		check(strings.TrimSpace(c.DB.Path) != "", "DB_PATH must not be empty")
	case "postgres":
		check(strings.TrimSpace(c.DB.DSN) != "", "DB_DSN must not be empty when DB_DRIVER=postgres")
	default:
		check(false, "DB_DRIVER must be one of: sqlite, postgres (got %q)", c.DB.Driver)
	}

	check(c.Thanks.MaxLoadThankedPeriod > 0, "THANKS_MAX_LOAD_THANKED_PERIOD_DAYS must be > 0")

	check(in(c.Session.Backend, "memory", "redis"), "SESSION_BACKEND must be one of: memory, redis")
	check(c.Session.TTL > 0, "SESSION_TTL must be > 0")
	check(strings.TrimSpace(c.Session.CookieName) != "", "SESSION_COOKIE must not be empty")
	if c.Session.Backend == "redis" {
		check(strings.TrimSpace(c.Session.RedisAddr) != "", "REDIS_ADDR must not be empty when SESSION_BACKEND=redis")
	}

	check(in(c.Notify.Backend, "log", "nats"), "NOTIFY_BACKEND must be one of: log, nats")
	if c.Notify.Backend == "nats" {
		check(strings.TrimSpace(c.Notify.NATSURL) != "" && strings.TrimSpace(c.Notify.NATSSubject) != "",
			"NATS_URL and NATS_SUBJECT must be set when NOTIFY_BACKEND=nats")
	}

	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	if c.RateBurst >= 1 {
		check(c.RateWriteCost >= 1 && c.RateWriteCost <= c.RateBurst,
			"RATE_WRITE_COST must be between 1 and RATE_BURST (%d)", c.RateBurst)
	}

	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// env returns the parsed value of k, or def when k is unset, empty or
// unparseable.
func env[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	out, err := parse(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return out
}

func envString(k, def string) string {
	return env(k, def, func(s string) (string, error) { return s, nil })
}

func envLower(k, def string) string {
	return strings.ToLower(envString(k, def))
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// parseBool accepts the usual spellings: 1/0, true/false, yes/no, y/n, on/off.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func in(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// oneOf returns v if allowed, else the first allowed value.
func oneOf(v string, allowed ...string) string {
	if in(v, allowed...) {
		return v
	}
	return allowed[0]
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// csvOr splits s, falling back to a copy of def when nothing is left.
func csvOr(s string, def []string) []string {
	if out := splitCSV(s); len(out) > 0 {
		return out
	}
	return append([]string(nil), def...)
}

// normalizeBasePath returns p with one leading slash and no trailing slash.
// Empty becomes "/".
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
