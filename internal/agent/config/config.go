// Package config is the agent's configuration envelope: a YAML file loaded
// at startup, plus the per-container multiline override precedence chain
// (Docker label > per-container file override > base config).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Multiline is the base multiline.* section of the config file.
type Multiline struct {
	Enabled            bool                          `yaml:"enabled"`
	TimeoutMs          int                           `yaml:"timeout_ms"`
	MaxLines           int                           `yaml:"max_lines"`
	RequireErrorAnchor bool                          `yaml:"require_error_anchor"`
	ContainerOverrides map[string]ContainerOverride `yaml:"container_overrides"`
}

// ContainerOverride is one entry of multiline.container_overrides.
type ContainerOverride struct {
	Enabled   *bool `yaml:"enabled"`
	TimeoutMs *int  `yaml:"timeout_ms"`
	MaxLines  *int  `yaml:"max_lines"`
}

// Config is the agent's recognized configuration options (spec §6).
type Config struct {
	BindAddress              string    `yaml:"bind_address"`
	TLSCertPath              string    `yaml:"tls_cert_path"`
	TLSKeyPath               string    `yaml:"tls_key_path"`
	TLSCAPath                string    `yaml:"tls_ca_path"`
	DockerSocket             string    `yaml:"docker_socket"`
	MaxConcurrentStreams     int       `yaml:"max_concurrent_streams"`
	AuditLogPath             string    `yaml:"audit_log_path"`
	InventorySyncIntervalSec int       `yaml:"inventory_sync_interval_secs"`
	Multiline                Multiline `yaml:"multiline"`
}

// Load reads and parses a YAML config file, then validates the fields
// spec §8 calls out as required-positive.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants spec §6 states explicitly.
func (c *Config) Validate() error {
	if c.InventorySyncIntervalSec <= 0 {
		return fmt.Errorf("config: inventory_sync_interval_secs must be > 0")
	}
	if c.Multiline.Enabled {
		if c.Multiline.TimeoutMs <= 0 {
			return fmt.Errorf("config: multiline.timeout_ms must be > 0 when enabled")
		}
		if c.Multiline.MaxLines <= 0 {
			return fmt.Errorf("config: multiline.max_lines must be > 0 when enabled")
		}
	}
	return nil
}

// ResolvedMultiline is the fully resolved multiline setting for one
// container, after applying the precedence chain.
type ResolvedMultiline struct {
	Enabled            bool
	TimeoutMs          int
	MaxLines           int
	RequireErrorAnchor bool
}

// Resolve applies base config, then the per-container file override (if
// any), then Docker label overrides (highest precedence), per spec §6.
func (c *Config) Resolve(containerName string, labels map[string]string) ResolvedMultiline {
	out := ResolvedMultiline{
		Enabled:            c.Multiline.Enabled,
		TimeoutMs:          c.Multiline.TimeoutMs,
		MaxLines:           c.Multiline.MaxLines,
		RequireErrorAnchor: c.Multiline.RequireErrorAnchor,
	}

	if ov, ok := c.Multiline.ContainerOverrides[containerName]; ok {
		if ov.Enabled != nil {
			out.Enabled = *ov.Enabled
		}
		if ov.TimeoutMs != nil {
			out.TimeoutMs = *ov.TimeoutMs
		}
		if ov.MaxLines != nil {
			out.MaxLines = *ov.MaxLines
		}
	}

	applyLabelBool(labels, "docktail.multiline.enabled", &out.Enabled)
	applyLabelInt(labels, "docktail.multiline.timeout_ms", &out.TimeoutMs)
	applyLabelInt(labels, "docktail.multiline.max_lines", &out.MaxLines)
	applyLabelBool(labels, "docktail.multiline.require_error_anchor", &out.RequireErrorAnchor)

	return out
}

// LogFormatLabel returns the docktail.log_format label, if present and
// non-empty. The value is returned as is, without checking that it names a
// known format; an absent or empty label reports false.
func LogFormatLabel(labels map[string]string) (string, bool) {
	v, ok := labels["docktail.log_format"]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func applyLabelBool(labels map[string]string, key string, dst *bool) {
	v, ok := labels[key]
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return
	}
	*dst = b
}

func applyLabelInt(labels map[string]string, key string, dst *int) {
	v, ok := labels[key]
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = n
}
