// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

// Config holds the application configuration loaded from environment variables.
// Per-scan settings come from command-line flags, not from here.
type Config struct {
	DownloadDir     string        `env:"SCANGATE_DOWNLOAD_DIR" envDefault:"AppScan_Results"`
	PollInterval    time.Duration `env:"SCANGATE_POLL_INTERVAL" envDefault:"30s"`
	DownloadTimeout time.Duration `env:"SCANGATE_DOWNLOAD_TIMEOUT" envDefault:"90s"`
	DBPath          string        `env:"SCANGATE_DB_PATH" envDefault:"scangate.db"`
	SecretKey       SecretKey     `env:"SCANGATE_SECRET_KEY"`
	RateLimit       float64       `env:"SCANGATE_RATE_LIMIT" envDefault:"5"`
	LogLevel        slog.Level    `env:"SCANGATE_LOG_LEVEL" envDefault:"info"`

	ClientName    string `env:"APPSCAN_CLIENT"`
	ClientVersion string `env:"APPSCAN_CLIENT_VERSION"`
	CodeBuild     bool   `env:"CODEBUILD_CI"`

	// ClientIdentity is derived once in Load from ClientName, ClientVersion
	// and the host OS.
	ClientIdentity string `env:"-"`
}

// SecretKey is the AES-256 key for the credential store, given as 64 hex characters.
type SecretKey []byte

// UnmarshalText decodes and length-checks a hex-encoded key.
func (k *SecretKey) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*k = nil
		return nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("SCANGATE_SECRET_KEY must be hex-encoded: %w", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("SCANGATE_SECRET_KEY must be 64 hex characters (32 bytes), got %d bytes", len(b))
	}
	*k = b
	return nil
}

// HistoryEnabled reports whether local history and credential storage are on.
func (c *Config) HistoryEnabled() bool {
	return c.DBPath != ""
}

// ClientType returns the client type reported to the service.
func (c *Config) ClientType() string {
	if c.CodeBuild {
		return model.ClientTypeCodeBuild
	}
	return model.ClientTypeCLI
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional; see the struct tags for names and defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: SCANGATE_POLL_INTERVAL must be positive, got %s", model.ErrConfiguration, cfg.PollInterval)
	}
	if cfg.DownloadTimeout <= 0 {
		return nil, fmt.Errorf("%w: SCANGATE_DOWNLOAD_TIMEOUT must be positive, got %s", model.ErrConfiguration, cfg.DownloadTimeout)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("%w: SCANGATE_RATE_LIMIT must not be negative, got %v", model.ErrConfiguration, cfg.RateLimit)
	}
	if strings.TrimSpace(cfg.DownloadDir) == "" {
		return nil, fmt.Errorf("%w: SCANGATE_DOWNLOAD_DIR must not be empty", model.ErrConfiguration)
	}

	cfg.ClientIdentity = ClientIdentity(cfg.ClientName, cfg.ClientVersion, runtime.GOOS)
	return &cfg, nil
}

const defaultClientName = "AppScanCloudCLI"

var clientIdentityStrip = regexp.MustCompile(`[^a-zA-Z0-9\-._]`)

// ClientIdentity builds the "<client>-<os>-<version>" string sent with each
// submission. Blank inputs fall back to defaults, a trailing "-snapshot" is
// dropped, and any character outside [a-zA-Z0-9-._] is removed.
func ClientIdentity(client, version, goos string) string {
	client = strings.TrimSpace(client)
	if client == "" {
		client = defaultClientName
	}
	version = strings.TrimSpace(version)
	if version == "" {
		version = "dev"
	}
	goos = strings.ToLower(strings.TrimSpace(goos))

	id := client + "-" + goos + "-" + strings.ToLower(version)
	id = strings.TrimSuffix(id, "-snapshot")
	return clientIdentityStrip.ReplaceAllString(id, "")
}
