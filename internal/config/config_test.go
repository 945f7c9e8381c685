package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dl-alexandre/dbxmirror/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != "dropbox" {
		t.Errorf("Backend = %q, want dropbox", cfg.Backend)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", cfg.Concurrency)
	}
	if cfg.ChunkSize != 4096 {
		t.Errorf("ChunkSize = %d, want 4096", cfg.ChunkSize)
	}
	if cfg.DefaultOutputFormat != types.OutputFormatTable {
		t.Errorf("DefaultOutputFormat = %q, want table", cfg.DefaultOutputFormat)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad output", func(c *Config) { c.DefaultOutputFormat = "xml" }, "invalid output format"},
		{"bad backend", func(c *Config) { c.Backend = "ftp" }, "invalid backend"},
		{"blob without bucket", func(c *Config) { c.Backend = "blob" }, "requires a bucket"},
		{"blob with bucket", func(c *Config) { c.Backend = "blob"; c.Bucket = "mem://" }, ""},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"huge concurrency", func(c *Config) { c.Concurrency = 100000 }, "concurrency"},
		{"zero chunk", func(c *Config) { c.ChunkSize = 0 }, "chunk size"},
		{"one byte chunk", func(c *Config) { c.ChunkSize = 1 }, ""},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max retries"},
		{"tiny delay", func(c *Config) { c.RetryBaseDelay = 10 }, "retry base delay"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "request timeout"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("LoadFrom() = %+v, want defaults", cfg)
	}
}

func TestLoadFrom_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	file := DefaultConfig()
	file.Concurrency = 4
	file.ChunkSize = 8192
	file.Exclude = []string{"*.tmp"}
	if err := file.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	t.Setenv(EnvPrefix+"CONCURRENCY", "7")
	t.Setenv(EnvPrefix+"EXCLUDE", ".git, node_modules ,")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Concurrency != 7 {
		t.Errorf("Concurrency = %d, want env value 7", cfg.Concurrency)
	}
	if cfg.ChunkSize != 8192 {
		t.Errorf("ChunkSize = %d, want file value 8192", cfg.ChunkSize)
	}
	if want := []string{".git", "node_modules"}; !reflect.DeepEqual(cfg.Exclude, want) {
		t.Errorf("Exclude = %v, want %v", cfg.Exclude, want)
	}
}

func TestLoadFrom_Errors(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(broken); err == nil {
		t.Error("expected error for malformed JSON")
	}

	t.Setenv(EnvPrefix+"CHUNK_SIZE", "big")
	if _, err := LoadFrom(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for non-integer env value")
	}
}

func TestSave_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("mode = %o, want 600", perm)
	}

	bad := DefaultConfig()
	bad.Concurrency = 0
	if err := bad.Save(path); err == nil {
		t.Error("Save() accepted invalid config")
	}
}

func TestGetConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPrefix+"CONFIG_DIR", dir)

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if path != filepath.Join(dir, ConfigFileName) {
		t.Errorf("GetConfigPath() = %q", path)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GetRetryBaseDelay() != time.Second {
		t.Errorf("GetRetryBaseDelay() = %v", cfg.GetRetryBaseDelay())
	}
	if cfg.GetRequestTimeout() != time.Minute {
		t.Errorf("GetRequestTimeout() = %v", cfg.GetRequestTimeout())
	}
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, " YES ": true, "1": true, "on": true, "false": false, "": false, "nope": false} {
		if got := parseBool(in); got != want {
			t.Errorf("parseBool(%q) = %v, want %v", in, got, want)
		}
	}
}
