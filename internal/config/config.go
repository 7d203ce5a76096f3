package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// defaultAPIBaseURL is the upload/call-log backend used when no override
// is configured.
const defaultAPIBaseURL = "https://web.growthacademy.in"

// Config holds all configuration for callsync. Values are resolved in
// order: built-in defaults, then the optional YAML config file, then
// environment variables. Field defaults live in Default() rather than
// envDefault tags so the YAML overlay is not clobbered by env parsing.
type Config struct {
	// Directory containing call recordings. Required.
	RecordingsDir string `env:"RECORDINGS_DIR" yaml:"recordings_dir"`

	// Base URL of the remote API (upload endpoint and admin API).
	APIBaseURL string `env:"API_BASE_URL" yaml:"api_base_url"`

	// Remote user identity. Uploads are refused while this is zero.
	UserID int `env:"USER_ID" yaml:"user_id"`

	// Number of call-log candidates fetched per orchestration run.
	FetchLimit int `env:"FETCH_LIMIT" yaml:"fetch_limit"`

	// Maximum uploads in flight within one batch.
	UploadConcurrency int `env:"UPLOAD_CONCURRENCY" yaml:"upload_concurrency"`

	// Interval between timer-driven sync runs. Zero disables the timer;
	// the watcher and explicit subcommands still work.
	SyncInterval time.Duration `env:"SYNC_INTERVAL" yaml:"sync_interval"`

	// AutoSync uploads unsynced recordings whenever a scan is triggered.
	// When false, triggers only refresh the inventory.
	AutoSync bool `env:"AUTO_SYNC" yaml:"auto_sync"`

	// AutoRefresh enables the filesystem watcher on the recordings
	// directory so new recordings trigger a rescan.
	AutoRefresh bool `env:"AUTO_REFRESH" yaml:"auto_refresh"`

	// Path of the bbolt state database. Empty means ~/.callsync/state.db.
	StatePath string `env:"STATE_PATH" yaml:"state_path"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" yaml:"environment"`
}

// Default returns a Config with built-in defaults applied.
func Default() *Config {
	return &Config{
		APIBaseURL:        defaultAPIBaseURL,
		FetchLimit:        200,
		UploadConcurrency: 10,
		SyncInterval:      15 * time.Minute,
		AutoRefresh:       true,
		Environment:       "development",
	}
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the API URL and user id to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from the optional YAML file and environment
// variables. It first attempts to load a .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := Default()

	if err := cfg.loadFile(configFilePath()); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Resolve RecordingsDir to an absolute path at startup so log lines
	// and watcher registration are unambiguous regardless of the working
	// directory the daemon was launched from.
	absDir, err := filepath.Abs(cfg.RecordingsDir)
	if err != nil {
		return nil, fmt.Errorf("resolving recordings dir to absolute path: %w", err)
	}
	cfg.RecordingsDir = absDir

	return cfg, nil
}

// configFilePath returns the YAML config path: $CALLSYNC_CONFIG if set,
// otherwise ./callsync.yaml.
func configFilePath() string {
	if p := os.Getenv("CALLSYNC_CONFIG"); p != "" {
		return p
	}

	return "callsync.yaml"
}

// loadFile overlays values from a YAML config file onto cfg. A missing
// file is not an error; a present but unreadable or malformed file is.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) validate() error {
	if c.RecordingsDir == "" {
		return fmt.Errorf("RECORDINGS_DIR is required")
	}

	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL must not be empty")
	}

	if c.FetchLimit <= 0 {
		return fmt.Errorf("FETCH_LIMIT must be positive, got %d", c.FetchLimit)
	}

	if c.UploadConcurrency <= 0 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be positive, got %d", c.UploadConcurrency)
	}

	if c.SyncInterval < 0 {
		return fmt.Errorf("SYNC_INTERVAL must not be negative, got %s", c.SyncInterval)
	}

	if c.UserID < 0 {
		return fmt.Errorf("USER_ID must not be negative, got %d", c.UserID)
	}

	return nil
}

// DefaultStatePath returns the state database path used when STATE_PATH
// is not configured: ~/.callsync/state.db
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".callsync", "state.db"), nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
