package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dl-alexandre/dbxmirror/internal/types"
)

// setters maps the lowercased JSON key of every editable field to a
// function parsing and assigning its value
var setters = map[string]func(c *Config, value string) error{
	"defaultprofile": func(c *Config, v string) error {
		c.DefaultProfile = v
		return nil
	},
	"defaultoutputformat": func(c *Config, v string) error {
		c.DefaultOutputFormat = types.OutputFormat(v)
		return nil
	},
	"backend": func(c *Config, v string) error {
		c.Backend = v
		return nil
	},
	"bucket": func(c *Config, v string) error {
		c.Bucket = v
		return nil
	},
	"concurrency":    intSetter(func(c *Config) *int { return &c.Concurrency }),
	"chunksize":      intSetter(func(c *Config) *int { return &c.ChunkSize }),
	"maxretries":     intSetter(func(c *Config) *int { return &c.MaxRetries }),
	"retrybasedelay": intSetter(func(c *Config) *int { return &c.RetryBaseDelay }),
	"requesttimeout": intSetter(func(c *Config) *int { return &c.RequestTimeout }),
	"exclude": func(c *Config, v string) error {
		c.Exclude = splitList(v)
		return nil
	},
	"loglevel": func(c *Config, v string) error {
		c.LogLevel = v
		return nil
	},
	"coloroutput": func(c *Config, v string) error {
		c.ColorOutput = parseBool(v)
		return nil
	},
}

func intSetter(field func(c *Config) *int) func(c *Config, value string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("value %q is not an integer", v)
		}
		*field(c) = n
		return nil
	}
}

// Keys lists the keys accepted by Set
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one field by key (case-insensitive, e.g. "chunkSize") and
// validates the result. On error c is left unchanged.
func (c *Config) Set(key, value string) error {
	set, ok := setters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s (known: %s)", key, strings.Join(Keys(), ", "))
	}
	next := *c
	next.Exclude = append([]string(nil), c.Exclude...)
	if err := set(&next, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
