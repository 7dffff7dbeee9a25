package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration. Defaults come from Default and are
// overridden by the environment variables listed in bindings.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	SLA       SLAConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
	App       AppConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
	MigrationsPath  string
}

// RedisConfig holds the connection used for per-ticket assignment locks.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	// PermissionCacheTTL bounds how long RBAC grants are cached per user.
	PermissionCacheTTL time.Duration
}

// RateLimitConfig has a general budget and a stricter one for assignment routes.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	AssignRPS         float64
	AssignBurst       int
}

type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongWait        time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// SLAConfig holds the policy table and the reporting and monitor knobs.
// PolicyFile, when set, names a YAML file that overrides the hour values
// and is reloaded on change.
type SLAConfig struct {
	CriticalHours   float64
	HighHours       float64
	MediumHours     float64
	LowHours        float64
	PolicyFile      string
	ForecastHorizon time.Duration
	TrendDays       int
	MonitorEnabled  bool
	MonitorInterval time.Duration
	SweepLimit      int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load reads an optional .env file, applies the environment and validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file, using process environment")
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns Default overridden by the process environment, unvalidated.
func FromEnv() *Config {
	cfg := Default()
	for _, b := range cfg.bindings() {
		raw, ok := os.LookupEnv(b.key)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			continue
		}
		if err := b.set(raw); err != nil {
			log.Printf("config: ignoring malformed %s=%q: %v", b.key, raw, err)
		}
	}
	return cfg
}

// Default is the development configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			MigrationsPath:  "file://migrations",
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			LockTTL: 10 * time.Second,
		},
		JWT: JWTConfig{
			AccessTokenTTL:     time.Hour,
			PermissionCacheTTL: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			BurstSize:         20,
			AssignRPS:         2,
			AssignBurst:       5,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongWait:        time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			MaxAge:         300,
		},
		SLA: SLAConfig{
			CriticalHours:   4,
			HighHours:       8,
			MediumHours:     24,
			LowHours:        72,
			ForecastHorizon: 24 * time.Hour,
			TrendDays:       30,
			MonitorEnabled:  true,
			MonitorInterval: time.Minute,
			SweepLimit:      200,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		App: AppConfig{
			Name:        "service-desk-sla",
			Version:     "dev",
			Environment: "development",
		},
	}
}

type binding struct {
	key string
	set func(raw string) error
}

func (c *Config) bindings() []binding {
	return []binding{
		{"SERVER_PORT", into(&c.Server.Port, parseString)},
		{"SERVER_READ_TIMEOUT", into(&c.Server.ReadTimeout, time.ParseDuration)},
		{"SERVER_WRITE_TIMEOUT", into(&c.Server.WriteTimeout, time.ParseDuration)},
		{"SERVER_IDLE_TIMEOUT", into(&c.Server.IdleTimeout, time.ParseDuration)},
		{"SERVER_SHUTDOWN_TIMEOUT", into(&c.Server.ShutdownTimeout, time.ParseDuration)},

		{"DATABASE_URL", into(&c.Database.URL, parseString)},
		{"DB_MAX_OPEN_CONNS", into(&c.Database.MaxOpenConns, strconv.Atoi)},
		{"DB_MAX_IDLE_CONNS", into(&c.Database.MaxIdleConns, strconv.Atoi)},
		{"DB_CONN_MAX_LIFETIME", into(&c.Database.ConnMaxLifetime, time.ParseDuration)},
		{"DB_CONN_MAX_IDLE_TIME", into(&c.Database.ConnMaxIdleTime, time.ParseDuration)},
		{"DB_AUTO_MIGRATE", into(&c.Database.AutoMigrate, strconv.ParseBool)},
		{"DB_MIGRATIONS_PATH", into(&c.Database.MigrationsPath, parseString)},

		{"REDIS_ADDR", into(&c.Redis.Addr, parseString)},
		{"REDIS_PASSWORD", into(&c.Redis.Password, parseString)},
		{"REDIS_DB", into(&c.Redis.DB, strconv.Atoi)},
		{"REDIS_LOCK_TTL", into(&c.Redis.LockTTL, time.ParseDuration)},

		{"JWT_SECRET", into(&c.JWT.Secret, parseString)},
		{"JWT_ACCESS_TOKEN_TTL", into(&c.JWT.AccessTokenTTL, time.ParseDuration)},
		{"RBAC_CACHE_TTL", into(&c.JWT.PermissionCacheTTL, time.ParseDuration)},

		{"RATE_LIMIT_ENABLED", into(&c.RateLimit.Enabled, strconv.ParseBool)},
		{"RATE_LIMIT_RPS", into(&c.RateLimit.RequestsPerSecond, parseFloat)},
		{"RATE_LIMIT_BURST", into(&c.RateLimit.BurstSize, strconv.Atoi)},
		{"RATE_LIMIT_ASSIGN_RPS", into(&c.RateLimit.AssignRPS, parseFloat)},
		{"RATE_LIMIT_ASSIGN_BURST", into(&c.RateLimit.AssignBurst, strconv.Atoi)},

		{"WS_ALLOWED_ORIGINS", into(&c.WebSocket.AllowedOrigins, parseList)},
		{"WS_READ_BUFFER_SIZE", into(&c.WebSocket.ReadBufferSize, strconv.Atoi)},
		{"WS_WRITE_BUFFER_SIZE", into(&c.WebSocket.WriteBufferSize, strconv.Atoi)},
		{"WS_PING_INTERVAL", into(&c.WebSocket.PingInterval, time.ParseDuration)},
		{"WS_PONG_WAIT", into(&c.WebSocket.PongWait, time.ParseDuration)},

		{"CORS_ALLOWED_ORIGINS", into(&c.CORS.AllowedOrigins, parseList)},
		{"CORS_MAX_AGE", into(&c.CORS.MaxAge, strconv.Atoi)},

		{"SLA_CRITICAL_HOURS", into(&c.SLA.CriticalHours, parseFloat)},
		{"SLA_HIGH_HOURS", into(&c.SLA.HighHours, parseFloat)},
		{"SLA_MEDIUM_HOURS", into(&c.SLA.MediumHours, parseFloat)},
		{"SLA_LOW_HOURS", into(&c.SLA.LowHours, parseFloat)},
		{"SLA_POLICY_FILE", into(&c.SLA.PolicyFile, parseString)},
		{"SLA_FORECAST_HORIZON", into(&c.SLA.ForecastHorizon, time.ParseDuration)},
		{"SLA_TREND_DAYS", into(&c.SLA.TrendDays, strconv.Atoi)},
		{"SLA_MONITOR_ENABLED", into(&c.SLA.MonitorEnabled, strconv.ParseBool)},
		{"SLA_MONITOR_INTERVAL", into(&c.SLA.MonitorInterval, time.ParseDuration)},
		{"ASSIGN_SWEEP_LIMIT", into(&c.SLA.SweepLimit, strconv.Atoi)},

		{"METRICS_ENABLED", into(&c.Metrics.Enabled, strconv.ParseBool)},
		{"METRICS_PATH", into(&c.Metrics.Path, parseString)},

		{"LOG_LEVEL", into(&c.Logging.Level, parseString)},
		{"LOG_FORMAT", into(&c.Logging.Format, parseString)},

		{"APP_NAME", into(&c.App.Name, parseString)},
		{"APP_VERSION", into(&c.App.Version, parseString)},
		{"APP_ENV", into(&c.App.Environment, parseString)},
	}
}

// into returns a setter that parses raw and stores it in dst, leaving dst
// untouched on error.
func into[T any](dst *T, parse func(string) (T, error)) func(string) error {
	return func(raw string) error {
		v, err := parse(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func parseString(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func parseList(s string) ([]string, error) {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("empty list")
	}
	return out, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if c.Database.URL == "" {
		fail("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		fail("JWT_SECRET is required")
	}
	if c.Redis.Addr == "" {
		fail("REDIS_ADDR is required")
	}

	if c.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			fail("JWT_SECRET must be at least 32 characters in production")
		}
		if len(c.WebSocket.AllowedOrigins) == 0 {
			fail("WS_ALLOWED_ORIGINS must be set in production")
		}
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		fail("DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}
	if c.Redis.LockTTL <= 0 {
		fail("REDIS_LOCK_TTL must be positive")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		fail("METRICS_PATH must start with /")
	}
	problems = append(problems, c.SLA.validate()...)

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(problems...))
}

func (s SLAConfig) validate() []error {
	var errs []error

	tiers := []struct {
		key   string
		hours float64
	}{
		{"SLA_CRITICAL_HOURS", s.CriticalHours},
		{"SLA_HIGH_HOURS", s.HighHours},
		{"SLA_MEDIUM_HOURS", s.MediumHours},
		{"SLA_LOW_HOURS", s.LowHours},
	}
	for i, tier := range tiers {
		if tier.hours <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", tier.key))
		}
		if i > 0 && tiers[i-1].hours > tier.hours {
			errs = append(errs, fmt.Errorf("%s cannot be greater than %s", tiers[i-1].key, tier.key))
		}
	}

	positive := []struct {
		key string
		ok  bool
	}{
		{"SLA_FORECAST_HORIZON", s.ForecastHorizon > 0},
		{"SLA_TREND_DAYS", s.TrendDays > 0},
		{"SLA_MONITOR_INTERVAL", !s.MonitorEnabled || s.MonitorInterval > 0},
		{"ASSIGN_SWEEP_LIMIT", s.SweepLimit > 0},
	}
	for _, p := range positive {
		if !p.ok {
			errs = append(errs, fmt.Errorf("%s must be positive", p.key))
		}
	}
	return errs
}

func (c *Config) IsDevelopment() bool { return c.App.Environment == "development" }

func (c *Config) IsProduction() bool { return c.App.Environment == "production" }

// String is safe to log: the database password and JWT secret are withheld.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, Redis: %s, JWT: [REDACTED], RateLimit: %v, SLA: %.0f/%.0f/%.0f/%.0fh, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.Redis.Addr,
		c.RateLimit.Enabled,
		c.SLA.CriticalHours, c.SLA.HighHours, c.SLA.MediumHours, c.SLA.LowHours,
		c.App.Environment,
	)
}

// redactURL drops the credentials from a connection URL. Unparseable input
// is withheld entirely.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[REDACTED]"
	}
	if u.User != nil {
		u.User = url.User("REDACTED")
	}
	return u.String()
}
