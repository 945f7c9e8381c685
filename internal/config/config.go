package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "DBXMIRROR_"
)

// Config holds application configuration
type Config struct {
	// DefaultProfile names the keyring entry used for token lookup
	DefaultProfile string `json:"defaultProfile"`

	// DefaultOutputFormat is the summary format (json, table)
	DefaultOutputFormat types.OutputFormat `json:"defaultOutputFormat"`

	// Backend is the storage backend (dropbox, gdrive, blob)
	Backend string `json:"backend"`

	// Bucket is the gocloud.dev bucket URL for the blob backend
	Bucket string `json:"bucket,omitempty"`

	// Concurrency bounds simultaneous list and download calls
	Concurrency int `json:"concurrency"`

	// ChunkSize is the streaming buffer size in bytes
	ChunkSize int `json:"chunkSize"`

	// Exclude holds glob patterns skipped during traversal
	Exclude []string `json:"exclude,omitempty"`

	// MaxRetries is the maximum number of retries for API calls
	MaxRetries int `json:"maxRetries"`

	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int `json:"retryBaseDelay"`

	// RequestTimeout is the per-call timeout in seconds
	RequestTimeout int `json:"requestTimeout"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `json:"logLevel"`

	// ColorOutput enables colored console logs
	ColorOutput bool `json:"colorOutput"`
}

var validLogLevels = []string{"quiet", "normal", "verbose", "debug"}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultProfile:      "default",
		DefaultOutputFormat: types.OutputFormatTable,
		Backend:             utils.BackendDropbox,
		Concurrency:         utils.DefaultConcurrency,
		ChunkSize:           utils.DefaultChunkSize,
		MaxRetries:          utils.DefaultMaxRetries,
		RetryBaseDelay:      utils.DefaultRetryDelayMs,
		RequestTimeout:      utils.DefaultRequestTimeout,
		LogLevel:            "normal",
		ColorOutput:         true,
	}
}

// Load reads the default config file, then applies env overrides.
// Precedence: CLI flags > env vars > config file > defaults; flags are
// applied by the caller.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path. A missing file is
// not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ReadFile returns the defaults overlaid with the file at path, without
// environment overrides. Used when editing the file.
func ReadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.loadFromFile(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv(EnvPrefix + "DEFAULT_PROFILE"); v != "" {
		c.DefaultProfile = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		c.DefaultOutputFormat = types.OutputFormat(v)
	}
	if v := os.Getenv(EnvPrefix + "BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvPrefix + "BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv(EnvPrefix + "EXCLUDE"); v != "" {
		c.Exclude = splitList(v)
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "COLOR_OUTPUT"); v != "" {
		c.ColorOutput = parseBool(v)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"CONCURRENCY", &c.Concurrency},
		{"CHUNK_SIZE", &c.ChunkSize},
		{"MAX_RETRIES", &c.MaxRetries},
		{"RETRY_BASE_DELAY", &c.RetryBaseDelay},
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
	}
	for _, e := range ints {
		v := os.Getenv(EnvPrefix + e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %q is not an integer", EnvPrefix, e.name, v)
		}
		*e.dst = n
	}
	return nil
}

// Save writes the configuration to path with restricted permissions
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DefaultOutputFormat != types.OutputFormatJSON &&
		c.DefaultOutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'table')", c.DefaultOutputFormat)
	}

	switch c.Backend {
	case utils.BackendDropbox, utils.BackendGDrive:
	case utils.BackendBlob:
		if c.Bucket == "" {
			return fmt.Errorf("backend %q requires a bucket URL", c.Backend)
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be 'dropbox', 'gdrive' or 'blob')", c.Backend)
	}

	if c.Concurrency < 1 || c.Concurrency > utils.MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got: %d", utils.MaxConcurrency, c.Concurrency)
	}

	if c.ChunkSize < 1 || c.ChunkSize > utils.MaxChunkSize {
		return fmt.Errorf("chunk size must be between 1 and %d bytes, got: %d", utils.MaxChunkSize, c.ChunkSize)
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}

	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > 60000 {
		return fmt.Errorf("retry base delay must be between 100ms and 60000ms, got: %d", c.RetryBaseDelay)
	}

	if c.RequestTimeout < 1 || c.RequestTimeout > 3600 {
		return fmt.Errorf("request timeout must be between 1 and 3600 seconds, got: %d", c.RequestTimeout)
	}

	for _, level := range validLogLevels {
		if c.LogLevel == level {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
}

// GetRetryBaseDelay returns the retry base delay as a duration
func (c *Config) GetRetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// GetRequestTimeout returns the request timeout as a duration
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns $DBXMIRROR_CONFIG_DIR or ~/.config/dbxmirror
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dbxmirror"), nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
