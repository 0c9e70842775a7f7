package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreSupabase = "supabase"
	StoreSQL      = "sql"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Ledger
	AccountID string // empty: earliest banca, resolved at startup
	Timezone  string

	// Persistence
	StoreBackend string
	DatabaseURL  string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Observability
	OTLPEndpoint string

	// Operator auth (disabled when the secret is empty)
	OperatorTokenSecret string
	OperatorTokenTTL    time.Duration
}

var defaults = map[string]any{
	"port":                        8080,
	"log_level":                   "info",
	"banca_account_id":            "",
	"banca_timezone":              "America/Sao_Paulo",
	"store_backend":               StoreSupabase,
	"database_url":                "sqlite://banca.db",
	"supabase_url":                "",
	"supabase_anon_key":           "",
	"supabase_service_role_key":   "",
	"http_timeout":                10 * time.Second,
	"max_retries":                 3,
	"initial_backoff":             100 * time.Millisecond,
	"max_concurrency":             50,
	"cache_backend":               CacheMemory,
	"cache_ttl":                   5 * time.Minute,
	"redis_addr":                  "localhost:6379",
	"redis_password":              "",
	"redis_db":                    0,
	"otel_exporter_otlp_endpoint": "",
	"operator_token_secret":       "",
	"operator_token_ttl":          24 * time.Hour,
}

// LoadDotEnv reads a .env file into the environment.
// It does NOT override existing env vars (env takes precedence).
func LoadDotEnv(path string) error {
	return godotenv.Load(path)
}

// NewViper returns a viper instance reading the environment with every
// default registered. Callers may bind flags onto it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	return v
}

// Load reads configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:     v.GetInt("port"),
		LogLevel: v.GetString("log_level"),

		AccountID: strings.TrimSpace(v.GetString("banca_account_id")),
		Timezone:  v.GetString("banca_timezone"),

		StoreBackend: strings.ToLower(v.GetString("store_backend")),
		DatabaseURL:  v.GetString("database_url"),

		SupabaseURL:        strings.TrimRight(v.GetString("supabase_url"), "/"),
		SupabaseAnonKey:    v.GetString("supabase_anon_key"),
		SupabaseServiceKey: v.GetString("supabase_service_role_key"),

		HTTPTimeout: v.GetDuration("http_timeout"),

		MaxRetries:     v.GetInt("max_retries"),
		InitialBackoff: v.GetDuration("initial_backoff"),
		MaxConcurrency: v.GetInt("max_concurrency"),

		CacheBackend:  strings.ToLower(v.GetString("cache_backend")),
		CacheTTL:      v.GetDuration("cache_ttl"),
		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),

		OTLPEndpoint: v.GetString("otel_exporter_otlp_endpoint"),

		OperatorTokenSecret: v.GetString("operator_token_secret"),
		OperatorTokenTTL:    v.GetDuration("operator_token_ttl"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case StoreSupabase:
		if c.SupabaseURL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required for the supabase store"))
		}
		if c.SupabaseServiceKey == "" && c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_SERVICE_ROLE_KEY or SUPABASE_ANON_KEY is required"))
		}
	case StoreSQL:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the sql store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Port <= 0 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	return errors.Join(errs...)
}

// Location resolves the configured IANA zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BANCA_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
