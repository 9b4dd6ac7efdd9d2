// Package config loads the configuration of the carddav-sync command from
// environment variables. Command-line flags are applied on top by the
// command itself.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/chucktrukk/carddavclient/internal/logger"
)

// Validation errors returned by Config.Validate.
var (
	// ErrInvalidServerConfigs indicates a missing or malformed server URL,
	// or a non-positive request timeout.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidStorageConfigs indicates an empty database path.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSyncConfigs indicates non-positive concurrency or round
	// limits.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidLogConfigs indicates an unknown log level.
	ErrInvalidLogConfigs = errors.New("invalid log configuration")
)

// Config is the configuration of the carddav-sync command.
type Config struct {
	// Server holds the CardDAV endpoint and credentials.
	Server Server `envPrefix:"CARDDAV_"`

	// Sync tunes the synchronization engine.
	Sync Sync `envPrefix:"CARDDAV_"`

	// DBPath is the path of the SQLite database holding the local copy.
	DBPath string `env:"CARDDAV_DB" envDefault:"contacts.db"`

	// LogLevel is a zerolog level name.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type Server struct {
	// URL is the CardDAV endpoint, or a bare domain name resolved through
	// DNS service discovery (RFC 6764).
	URL      string `env:"URL"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`

	// AddressBook is the path of the address book to synchronize. If
	// empty, the first address book of the user is used.
	AddressBook string `env:"ADDRESSBOOK"`

	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Domain returns URL if it's a bare domain name, and an empty string if it's
// a full URL.
func (s *Server) Domain() string {
	if strings.ContainsAny(s.URL, ":/") {
		return ""
	}
	return s.URL
}

type Sync struct {
	FetchConcurrency int `env:"FETCH_CONCURRENCY" envDefault:"4"`
	MaxSyncRounds    int `env:"MAX_SYNC_ROUNDS" envDefault:"16"`

	// Props restricts the vCard properties fetched for changed cards.
	Props []string `env:"PROPS" envSeparator:","`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration before it is used.
func (cfg *Config) Validate() error {
	if cfg.Server.URL == "" {
		return fmt.Errorf("%w: missing URL", ErrInvalidServerConfigs)
	}
	if cfg.Server.Domain() == "" {
		u, err := url.Parse(cfg.Server.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: malformed URL %q", ErrInvalidServerConfigs, cfg.Server.URL)
		}
	}
	if cfg.Server.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidServerConfigs)
	}

	if cfg.DBPath == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Sync.FetchConcurrency <= 0 || cfg.Sync.MaxSyncRounds <= 0 {
		return ErrInvalidSyncConfigs
	}

	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLogConfigs, err)
	}

	return nil
}
