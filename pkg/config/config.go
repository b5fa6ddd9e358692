// Package config loads service configuration from the environment, with
// an optional YAML file as a base layer. Environment variables win over
// file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Delivery DeliveryConfig `yaml:"delivery"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds credential store configuration
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite3".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AuthConfig holds authentication behavior configuration
type AuthConfig struct {
	// LoginFields is the ordered list of identity columns the resolver
	// tries: username, email, phone.
	LoginFields []string `yaml:"login_fields"`
}

// DeliveryConfig holds reset-code delivery configuration
type DeliveryConfig struct {
	// Mode is "log" or "smtp".
	Mode          string `yaml:"mode"`
	SMTPAddr      string `yaml:"smtp_addr"`
	EmailFrom     string `yaml:"email_from"`
	ResetLinkBase string `yaml:"reset_link_base"`
}

// Load builds configuration from an optional YAML file and the
// environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "gatekeeper.db",
		},
		Auth: AuthConfig{
			LoginFields: []string{"phone"},
		},
		Delivery: DeliveryConfig{
			Mode: "log",
		},
		LogLevel: "INFO",
	}
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("GATEKEEPER_HOST", c.Server.Host)
	c.Server.Port = getEnv("GATEKEEPER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("GATEKEEPER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("GATEKEEPER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("GATEKEEPER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("GATEKEEPER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.Driver = getEnv("GATEKEEPER_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("GATEKEEPER_DB_DSN", c.Database.DSN)

	if fields := getEnv("GATEKEEPER_LOGIN_FIELDS", ""); fields != "" {
		c.Auth.LoginFields = splitAndTrim(fields)
	}

	c.Delivery.Mode = getEnv("GATEKEEPER_DELIVERY_MODE", c.Delivery.Mode)
	c.Delivery.SMTPAddr = getEnv("GATEKEEPER_SMTP_ADDR", c.Delivery.SMTPAddr)
	c.Delivery.EmailFrom = getEnv("GATEKEEPER_EMAIL_FROM", c.Delivery.EmailFrom)
	c.Delivery.ResetLinkBase = getEnv("GATEKEEPER_RESET_LINK_BASE", c.Delivery.ResetLinkBase)

	c.LogLevel = getEnv("GATEKEEPER_LOG_LEVEL", c.LogLevel)
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	switch c.Delivery.Mode {
	case "log":
	case "smtp":
		if c.Delivery.SMTPAddr == "" || c.Delivery.EmailFrom == "" {
			return fmt.Errorf("smtp delivery requires smtp_addr and email_from")
		}
	default:
		return fmt.Errorf("unsupported delivery mode %q", c.Delivery.Mode)
	}
	if len(c.Auth.LoginFields) == 0 {
		return fmt.Errorf("at least one login field is required")
	}
	return nil
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
