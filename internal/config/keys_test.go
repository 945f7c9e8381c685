package config

import "testing"

func TestSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(c *Config) bool
	}{
		{"concurrency", "32", false, func(c *Config) bool { return c.Concurrency == 32 }},
		{"chunkSize", "65536", false, func(c *Config) bool { return c.ChunkSize == 65536 }},
		{"CHUNKSIZE", "0", true, nil},
		{"concurrency", "many", true, nil},
		{"exclude", "*.tmp, node_modules/", false, func(c *Config) bool {
			return len(c.Exclude) == 2 && c.Exclude[1] == "node_modules/"
		}},
		{"backend", "gdrive", false, func(c *Config) bool { return c.Backend == "gdrive" }},
		{"backend", "blob", true, nil},
		{"logLevel", "debug", false, func(c *Config) bool { return c.LogLevel == "debug" }},
		{"colorOutput", "off", false, func(c *Config) bool { return !c.ColorOutput }},
		{"cacheTTL", "5", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			c := DefaultConfig()
			before := *c
			err := c.Set(tt.key, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if c.Concurrency != before.Concurrency || c.ChunkSize != before.ChunkSize || c.Backend != before.Backend {
					t.Error("config changed on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Set: %v", err)
			}
			if !tt.check(c) {
				t.Errorf("value not applied: %+v", c)
			}
		})
	}
}

func TestReadFile_IgnoresEnvironment(t *testing.T) {
	t.Setenv(EnvPrefix+"CONCURRENCY", "99")
	c, err := ReadFile(t.TempDir() + "/missing.json")
	if err != nil {
		t.Fatal(err)
	}
	if c.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want default", c.Concurrency)
	}
}
