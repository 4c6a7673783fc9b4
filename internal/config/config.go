// Package config handles plantrec configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/plantrec/plantrec/internal/cluster"
	"github.com/plantrec/plantrec/internal/dataset"
	"github.com/plantrec/plantrec/internal/logging"
	"github.com/plantrec/plantrec/internal/query"
	"github.com/plantrec/plantrec/internal/recommend"
	"github.com/plantrec/plantrec/internal/scale"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "PLANTREC_"

// Server defaults.
const (
	DefaultAddr      = "127.0.0.1:8080"
	DefaultRateLimit = 5.0
	DefaultBurst     = 10
)

// ErrUnknownKey is returned by Get and Set for an unrecognized key.
var ErrUnknownKey = errors.New("unknown config key")

// Config represents configuration stored in ~/.config/plantrec/config.yml.
type Config struct {
	Dataset     DatasetConfig     `yaml:"dataset"`
	CatalogFile string            `yaml:"catalog_file,omitempty"` // Empty uses the built-in plant catalog
	Cluster     cluster.Config    `yaml:"cluster"`
	Scaling     ScalingConfig     `yaml:"scaling"`
	Seed        uint64            `yaml:"seed,omitempty"` // Zero picks a fresh seed per run
	Timeout     time.Duration     `yaml:"timeout"`
	Placeholder PlaceholderConfig `yaml:"placeholder"`
	Logging     logging.Config    `yaml:"logging"`
	Server      ServerConfig      `yaml:"server"`
}

// DatasetConfig locates the base species table.
type DatasetConfig struct {
	Source string `yaml:"source,omitempty"` // .csv, .jsonl, .db or postgres:// DSN
	Table  string `yaml:"table,omitempty"`  // SQL table name
}

// ScalingConfig selects the feature scaling policy.
type ScalingConfig struct {
	Policy string `yaml:"policy"`
}

// PlaceholderConfig is the identity given to the query row.
type PlaceholderConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ServerConfig configures `plantrec serve`.
type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"` // Requests per second
	Burst     int     `yaml:"burst"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	log := logging.DefaultConfig()
	log.Output = nil
	return &Config{
		Dataset:     DatasetConfig{Table: dataset.DefaultTable},
		Cluster:     cluster.DefaultConfig(),
		Scaling:     ScalingConfig{Policy: scale.PolicyJoint},
		Timeout:     recommend.DefaultTimeout,
		Placeholder: PlaceholderConfig{ID: query.PlaceholderID, Name: query.PlaceholderName},
		Logging:     log,
		Server:      ServerConfig{Addr: DefaultAddr, RateLimit: DefaultRateLimit, Burst: DefaultBurst},
	}
}

// Validate checks every setting that can be checked without touching the
// dataset.
func (c *Config) Validate() error {
	if err := c.Pipeline().Validate(); err != nil {
		return err
	}
	if c.Dataset.Source != "" {
		if _, err := dataset.DetectFormat(c.Dataset.Source); err != nil {
			return err
		}
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s (valid: console, json)", c.Logging.Format)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit must be positive, got %v", c.Server.RateLimit)
	}
	if c.Server.Burst < 1 {
		return fmt.Errorf("server.burst must be at least 1, got %d", c.Server.Burst)
	}
	return nil
}

// Pipeline returns the recommendation pipeline settings.
func (c *Config) Pipeline() recommend.Config {
	return recommend.Config{
		Cluster:       c.Cluster,
		ScalingPolicy: c.Scaling.Policy,
		Seed:          c.Seed,
		Timeout:       c.Timeout,
		Placeholder:   dataset.Identity{ID: c.Placeholder.ID, Name: c.Placeholder.Name},
	}
}

// field binds a dotted config key to its string accessors.
type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(p func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func intField(p func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not an integer: %q", v)
			}
			*p(c) = n
			return nil
		},
	}
}

func floatField(p func(c *Config) *float64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatFloat(*p(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("not a number: %q", v)
			}
			*p(c) = f
			return nil
		},
	}
}

var fields = map[string]field{
	"dataset.source":         stringField(func(c *Config) *string { return &c.Dataset.Source }),
	"dataset.table":          stringField(func(c *Config) *string { return &c.Dataset.Table }),
	"catalog_file":           stringField(func(c *Config) *string { return &c.CatalogFile }),
	"cluster.cluster_count":  intField(func(c *Config) *int { return &c.Cluster.ClusterCount }),
	"cluster.kernel_width":   floatField(func(c *Config) *float64 { return &c.Cluster.KernelWidth }),
	"cluster.init_count":     intField(func(c *Config) *int { return &c.Cluster.InitCount }),
	"cluster.max_iterations": intField(func(c *Config) *int { return &c.Cluster.MaxIterations }),
	"cluster.diagnostics": {
		get: func(c *Config) string { return strconv.FormatBool(c.Cluster.Diagnostics) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("not a boolean: %q", v)
			}
			c.Cluster.Diagnostics = b
			return nil
		},
	},
	"scaling.policy": stringField(func(c *Config) *string { return &c.Scaling.Policy }),
	"seed": {
		get: func(c *Config) string { return strconv.FormatUint(c.Seed, 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("not an unsigned integer: %q", v)
			}
			c.Seed = n
			return nil
		},
	},
	"timeout": {
		get: func(c *Config) string { return c.Timeout.String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("not a duration: %q", v)
			}
			c.Timeout = d
			return nil
		},
	},
	"placeholder.id":    stringField(func(c *Config) *string { return &c.Placeholder.ID }),
	"placeholder.name":  stringField(func(c *Config) *string { return &c.Placeholder.Name }),
	"logging.level":     stringField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format":    stringField(func(c *Config) *string { return &c.Logging.Format }),
	"server.addr":       stringField(func(c *Config) *string { return &c.Server.Addr }),
	"server.rate_limit": floatField(func(c *Config) *float64 { return &c.Server.RateLimit }),
	"server.burst":      intField(func(c *Config) *int { return &c.Server.Burst }),
}

// Keys returns every settable key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "cluster.cluster_count".
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set parses and assigns the value of a dotted key.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// EnvName returns the environment variable overriding key, e.g.
// PLANTREC_CLUSTER_CLUSTER_COUNT for cluster.cluster_count.
func EnvName(key string) string {
	return EnvPrefix + toUpperSnake(key)
}

// ApplyEnv overrides settings from PLANTREC_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range Keys() {
		v, ok := lookup(EnvName(key))
		if !ok || v == "" {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return fmt.Errorf("%s: %w", EnvName(key), err)
		}
	}
	return nil
}

// toUpperSnake converts a dotted key to an env var suffix.
func toUpperSnake(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, ".", "_")
	return strings.ReplaceAll(s, "-", "_")
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
