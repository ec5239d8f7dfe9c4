// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config is the immutable process configuration. It is built once at
// startup and handed to constructors.
type Config struct {
	Port        int
	NATSServers []string
	DatabaseURL string
	JWTSecret   string

	JWTExpiresIn time.Duration
	JWTIssuer    string
	BcryptCost   int
	NATSPort     int
	LogLevel     string
	LogFormat    string
}

// Defaults for optional settings.
const (
	DefaultJWTExpiresIn = 2 * time.Hour
	DefaultJWTIssuer    = "auth-service"
	DefaultBcryptCost   = 10
	DefaultNATSPort     = 4222
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Load reads an optional .env file, then builds and validates the
// configuration from the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using the given lookup function instead of
// the process environment.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	var errs []error

	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	required := func(key string) string {
		v := get(key)
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
		return v
	}

	cfg := &Config{
		DatabaseURL:  required("DATABASE_URL"),
		JWTSecret:    required("JWT_SECRET"),
		JWTExpiresIn: DefaultJWTExpiresIn,
		JWTIssuer:    DefaultJWTIssuer,
		BcryptCost:   DefaultBcryptCost,
		NATSPort:     DefaultNATSPort,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
	}

	if raw := required("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("PORT must be a number: %q", raw))
		}
		cfg.Port = port
	}

	if raw := required("NATS_SERVERS"); raw != "" {
		cfg.NATSServers = splitCSV(raw)
	}

	if raw := get("JWT_EXPIRES_IN"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("JWT_EXPIRES_IN must be a duration: %q", raw))
		}
		cfg.JWTExpiresIn = d
	}
	if raw := get("JWT_ISSUER"); raw != "" {
		cfg.JWTIssuer = raw
	}
	if raw := get("BCRYPT_COST"); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("BCRYPT_COST must be a number: %q", raw))
		}
		cfg.BcryptCost = cost
	}
	if raw := get("NATS_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("NATS_PORT must be a number: %q", raw))
		}
		cfg.NATSPort = port
	}
	if raw := get("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	if raw := get("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = strings.ToLower(raw)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("validate config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and formats.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.NATSPort < 1 || c.NATSPort > 65535 {
		errs = append(errs, fmt.Errorf("NATS_PORT out of range: %d", c.NATSPort))
	}
	if len(c.NATSServers) == 0 {
		errs = append(errs, errors.New("NATS_SERVERS must list at least one server"))
	}
	for _, s := range c.NATSServers {
		if !validServerAddr(s) {
			errs = append(errs, fmt.Errorf("NATS_SERVERS entry is not a valid address: %q", s))
		}
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json: %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validate config: %w", errors.Join(errs...))
	}
	return nil
}

// NATSURL joins the configured servers into the comma-separated form
// accepted by nats.Connect.
func (c *Config) NATSURL() string {
	return strings.Join(c.NATSServers, ",")
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validServerAddr accepts scheme URLs (nats://, tls://, ws://, wss://) and
// bare host:port pairs.
func validServerAddr(s string) bool {
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return false
		}
		switch u.Scheme {
		case "nats", "tls", "ws", "wss":
			return true
		}
		return false
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil || host == "" {
		return false
	}
	_, err = strconv.Atoi(port)
	return err == nil
}
