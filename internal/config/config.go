// Package config loads the ninja-auth server settings from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMemory    = "memory"
	StoreFS        = "fs"
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreDatastore = "datastore"
)

// Session backends accepted in SESSION_STORE.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Secure   bool   `env:"SMTP_SECURE"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"Ninja Auth <no-reply@localhost>"`
}

// Enabled reports whether mail goes through SMTP instead of the log.
func (s SMTP) Enabled() bool { return s.Host != "" }

type Provider struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func (p Provider) Enabled() bool { return p.ClientID != "" && p.ClientSecret != "" }

type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	ApplicationHost string        `env:"APPLICATION_HOST" envDefault:"http://localhost:8080"`
	JWTSecret       string        `env:"JWT_SECRET"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"1h"`

	StoreDriver       string `env:"STORE_DRIVER" envDefault:"memory"`
	StorePath         string `env:"STORE_PATH" envDefault:"./data"`
	DatabaseDSN       string `env:"DATABASE_DSN"`
	DatastoreProject  string `env:"DATASTORE_PROJECT"`
	DatastoreDatabase string `env:"DATASTORE_DATABASE"`
	DatastoreCreds    string `env:"DATASTORE_CREDENTIALS_FILE"`

	SessionStore    string        `env:"SESSION_STORE" envDefault:"memory"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"100m"`
	SecureCookies   bool          `env:"SECURE_COOKIES"`

	SMTP SMTP

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
	GithubClientID     string `env:"GITHUB_CLIENT_ID"`
	GithubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GithubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	OtelEndpoint string `env:"NINJA_AUTH_OTEL_ENDPOINT"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and fills derived defaults.
func Load(logger *slog.Logger) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.EnsureDefaults(logger); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnsureDefaults validates the drivers and fills values derived from
// others. A missing JWT_SECRET is replaced with a random one, which means
// outstanding recovery links die with the process.
func (c *Config) EnsureDefaults(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	c.ApplicationHost = strings.TrimRight(c.ApplicationHost, "/")

	switch c.StoreDriver {
	case StoreMemory, StoreFS, StoreSQLite:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the %s store", c.StoreDriver)
		}
	case StoreDatastore:
		if c.DatastoreProject == "" {
			return fmt.Errorf("DATASTORE_PROJECT is required for the datastore store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == StoreSQLite && c.DatabaseDSN == "" {
		c.DatabaseDSN = "ninja-auth.db"
	}

	switch c.SessionStore {
	case SessionMemory, SessionRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	if c.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		c.JWTSecret = hex.EncodeToString(b)
		logger.Warn("JWT_SECRET is not set, using a random secret for this process")
	}

	if c.GoogleCallbackURL == "" {
		c.GoogleCallbackURL = c.ApplicationHost + "/auth/google/callback/"
	}
	if c.GithubCallbackURL == "" {
		c.GithubCallbackURL = c.ApplicationHost + "/auth/github/callback/"
	}
	return nil
}

func (c *Config) Google() Provider {
	return Provider{ClientID: c.GoogleClientID, ClientSecret: c.GoogleClientSecret, CallbackURL: c.GoogleCallbackURL}
}

func (c *Config) Github() Provider {
	return Provider{ClientID: c.GithubClientID, ClientSecret: c.GithubClientSecret, CallbackURL: c.GithubCallbackURL}
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
