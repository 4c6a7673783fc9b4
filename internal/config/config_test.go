package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plantrec/plantrec/internal/scale"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Cluster.ClusterCount != 5 || cfg.Cluster.KernelWidth != 0.5 || cfg.Cluster.InitCount != 5 {
		t.Errorf("cluster defaults = %+v", cfg.Cluster)
	}
	if cfg.Scaling.Policy != scale.PolicyJoint {
		t.Errorf("Scaling.Policy = %q, want joint", cfg.Scaling.Policy)
	}
	if cfg.Placeholder.ID != "42" || cfg.Placeholder.Name != "sample" {
		t.Errorf("Placeholder = %+v", cfg.Placeholder)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"csv source", func(c *Config) { c.Dataset.Source = "plants.csv" }, false},
		{"postgres source", func(c *Config) { c.Dataset.Source = "postgres://localhost/plants" }, false},
		{"unknown source", func(c *Config) { c.Dataset.Source = "plants.xlsx" }, true},
		{"bad policy", func(c *Config) { c.Scaling.Policy = "global" }, true},
		{"zero clusters", func(c *Config) { c.Cluster.ClusterCount = 0 }, true},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"zero rate", func(c *Config) { c.Server.RateLimit = 0 }, true},
		{"zero burst", func(c *Config) { c.Server.Burst = 0 }, true},
		{"empty placeholder", func(c *Config) { c.Placeholder.ID = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"dataset.source", "/data/plants.csv"},
		{"cluster.cluster_count", "7"},
		{"cluster.kernel_width", "0.25"},
		{"cluster.diagnostics", "true"},
		{"scaling.policy", "base"},
		{"seed", "1234"},
		{"timeout", "30s"},
		{"server.rate_limit", "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := Default()
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != tt.value {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestGetSet_Errors(t *testing.T) {
	cfg := Default()

	if _, err := cfg.Get("nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get unknown: err = %v, want ErrUnknownKey", err)
	}
	if err := cfg.Set("nope", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set unknown: err = %v, want ErrUnknownKey", err)
	}
	for key, bad := range map[string]string{
		"cluster.cluster_count": "five",
		"cluster.kernel_width":  "wide",
		"cluster.diagnostics":   "maybe",
		"seed":                  "-1",
		"timeout":               "soon",
	} {
		if err := cfg.Set(key, bad); err == nil {
			t.Errorf("Set(%q, %q) should fail", key, bad)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PLANTREC_DATASET_SOURCE":        "/srv/plants.db",
		"PLANTREC_CLUSTER_CLUSTER_COUNT": "3",
		"PLANTREC_SEED":                  "99",
		"PLANTREC_LOGGING_LEVEL":         "debug",
		"PLANTREC_SERVER_ADDR":           "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.Dataset.Source != "/srv/plants.db" {
		t.Errorf("Dataset.Source = %q", cfg.Dataset.Source)
	}
	if cfg.Cluster.ClusterCount != 3 {
		t.Errorf("ClusterCount = %d, want 3", cfg.Cluster.ClusterCount)
	}
	if cfg.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.Seed)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("empty env var overrode Server.Addr: %q", cfg.Server.Addr)
	}

	env["PLANTREC_SEED"] = "lots"
	if err := Default().ApplyEnv(lookup); err == nil {
		t.Error("ApplyEnv should fail on an unparsable value")
	}
}

func TestToUpperSnake(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"seed", "SEED"},
		{"dataset.source", "DATASET_SOURCE"},
		{"server.rate_limit", "SERVER_RATE_LIMIT"},
		{"my-key", "MY_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := toUpperSnake(tt.input)
			if got != tt.want {
				t.Errorf("toUpperSnake(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPipeline(t *testing.T) {
	cfg := Default()
	cfg.Seed = 7
	cfg.Scaling.Policy = scale.PolicyBase

	p := cfg.Pipeline()
	if p.Seed != 7 || p.ScalingPolicy != scale.PolicyBase || p.Placeholder.ID != "42" {
		t.Errorf("Pipeline() = %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Pipeline().Validate() = %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	if got := ExpandPath("~/plants.csv"); got != filepath.Join(home, "plants.csv") {
		t.Errorf("ExpandPath(~/plants.csv) = %q", got)
	}
	if got := ExpandPath("/abs/plants.csv"); got != "/abs/plants.csv" {
		t.Errorf("ExpandPath(/abs/plants.csv) = %q", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath(\"\") = %q", got)
	}
}
