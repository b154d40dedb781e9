// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// minJWTSecretLength is the shortest accepted HS256 signing secret, in bytes.
const minJWTSecretLength = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting: per user on the API, per IP on register/login
	RateLimitAPIEnabled bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAPIRPM     int  `env:"RATE_LIMIT_API_RPM" envDefault:"120"`
	RateLimitAPIBurst   int  `env:"RATE_LIMIT_API_BURST" envDefault:"30"`
	RateLimitAuthRPM    int  `env:"RATE_LIMIT_AUTH_RPM" envDefault:"10"`
	RateLimitAuthBurst  int  `env:"RATE_LIMIT_AUTH_BURST" envDefault:"5"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Session tokens
	JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"tally"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

	// Reporting calendar. REPORT_TIMEZONE is an IANA name or "Local".
	ReportTimezone string `env:"REPORT_TIMEZONE" envDefault:"Local"`
	WeekStart      string `env:"WEEK_START" envDefault:"sunday"`

	location *time.Location
	weekday  time.Weekday
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Location returns the time zone report windows are computed in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// WeekStartDay returns the weekday report weeks begin on.
func (c *Config) WeekStartDay() time.Weekday {
	return c.weekday
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing or malformed.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}

	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("REPORT_TIMEZONE: %w", err))
	}
	c.location = loc

	day, err := parseWeekday(c.WeekStart)
	if err != nil {
		errs = append(errs, err)
	}
	c.weekday = day

	if c.RateLimitAPIEnabled && (c.RateLimitAPIRPM <= 0 || c.RateLimitAPIBurst <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_API_RPM and RATE_LIMIT_API_BURST must be positive"))
	}
	if c.RateLimitAuthRPM <= 0 || c.RateLimitAuthBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_AUTH_RPM and RATE_LIMIT_AUTH_BURST must be positive"))
	}

	return errors.Join(errs...)
}

func parseWeekday(name string) (time.Weekday, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if normalized == full || normalized == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("WEEK_START: unknown weekday %q", name)
}
