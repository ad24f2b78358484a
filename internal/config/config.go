// Package config provides configuration loading and validation from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sipico/covid-counter-client/internal/api"
	"github.com/sipico/covid-counter-client/internal/debounce"
	"github.com/sipico/covid-counter-client/internal/logging"
	"github.com/sipico/covid-counter-client/internal/storage"
)

// Defaults for optional settings.
const (
	DefaultLogLevel       = "warn"
	DefaultStorageBackend = storage.BackendSQLite
	DefaultRequestTimeout = 15 * time.Second
	appDir                = "covid-counter"
)

// Config holds all client configuration.
type Config struct {
	LogLevel             string        // debug, info, warn, error
	LogFile              string        // Optional: log destination (empty = stderr)
	APIURL               string        // Base URL of the COVID counter API
	StorageBackend       string        // sqlite, bolt or memory
	StoragePath          string        // Session database path
	StorageEncryptionKey string        // Optional: 64 hex chars enabling encryption at rest
	DebounceWindow       time.Duration // Filter input quiet period
	RequestTimeout       time.Duration // Per-request HTTP timeout
	MetricsListenAddr    string        // Optional: serve Prometheus metrics (e.g., "localhost:9090")
}

// Load parses configuration from environment variables.
// Every option has a default, so an empty environment is valid.
func Load() (*Config, error) {
	logLevel := os.Getenv("LOG_LEVEL")
	apiURL := os.Getenv("COVID_API_URL")
	backend := os.Getenv("STORAGE_BACKEND")
	storagePath := os.Getenv("STORAGE_PATH")

	// Set defaults for optional fields
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	if apiURL == "" {
		apiURL = api.DefaultBaseURL
	}

	if backend == "" {
		backend = DefaultStorageBackend
	}

	if storagePath == "" {
		storagePath = defaultStoragePath(backend)
	}

	debounceWindow, err := durationEnv("DEBOUNCE_WINDOW", debounce.DefaultWindow)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := durationEnv("REQUEST_TIMEOUT", DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:             logLevel,
		LogFile:              os.Getenv("LOG_FILE"),
		APIURL:               strings.TrimRight(apiURL, "/"),
		StorageBackend:       backend,
		StoragePath:          storagePath,
		StorageEncryptionKey: os.Getenv("STORAGE_ENCRYPTION_KEY"),
		DebounceWindow:       debounceWindow,
		RequestTimeout:       requestTimeout,
		MetricsListenAddr:    os.Getenv("METRICS_LISTEN_ADDR"),
	}

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("COVID_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}

	switch c.StorageBackend {
	case storage.BackendSQLite, storage.BackendBolt:
		if c.StoragePath == "" {
			return fmt.Errorf("STORAGE_PATH is required for the %s backend", c.StorageBackend)
		}
	case storage.BackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of sqlite, bolt, memory, got %q", c.StorageBackend)
	}

	if c.StorageEncryptionKey != "" {
		if _, err := storage.ParseKey(c.StorageEncryptionKey); err != nil {
			return fmt.Errorf("STORAGE_ENCRYPTION_KEY must be 64 hex characters (32 bytes)")
		}
	}

	if c.DebounceWindow <= 0 {
		return fmt.Errorf("DEBOUNCE_WINDOW must be positive, got %s", c.DebounceWindow)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// StorageOptions converts the storage settings for storage.Open.
func (c *Config) StorageOptions() (storage.Options, error) {
	opts := storage.Options{Backend: c.StorageBackend, Path: c.StoragePath}
	if c.StorageEncryptionKey != "" {
		key, err := storage.ParseKey(c.StorageEncryptionKey)
		if err != nil {
			return storage.Options{}, err
		}
		opts.EncryptionKey = key
	}
	return opts, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", name, raw, err)
	}
	return d, nil
}

// defaultStoragePath places the session database under the user's config
// directory ($XDG_CONFIG_HOME on Linux).
func defaultStoragePath(backend string) string {
	name := "client.db"
	if backend == storage.BackendBolt {
		name = "client.bolt"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", appDir, name)
	}
	return filepath.Join(dir, appDir, name)
}
