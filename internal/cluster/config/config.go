// Package config is the cluster's configuration envelope, loaded the same
// way the agent's is (internal/agent/config): a single YAML file read and
// validated at startup, per spec §6's "Cluster:" line.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StaticAgent is one entry of agents.static_agents.
type StaticAgent struct {
	ID          string `yaml:"id"`
	Address     string `yaml:"address"`
	TLSCertPath string `yaml:"tls_cert_path"`
	TLSKeyPath  string `yaml:"tls_key_path"`
	TLSCAPath   string `yaml:"tls_ca_path"`
	ServerName  string `yaml:"server_name"`
}

// Agents is the agents.* section: the static fleet plus pool tuning.
type Agents struct {
	StaticAgents        []StaticAgent `yaml:"static_agents"`
	HealthCheckInterval  time.Duration `yaml:"health_check_interval"`
	ReconnectBackoff     time.Duration `yaml:"reconnect_backoff"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
}

// Discovery is the discovery.* section (C14).
type Discovery struct {
	Enabled              bool          `yaml:"enabled"`
	LabelKey             string        `yaml:"label_key"`
	LabelValue           string        `yaml:"label_value"`
	IntervalSecs         int           `yaml:"interval_secs"`
	AgentPort            int           `yaml:"agent_port"`
	RegistrationEnabled  bool          `yaml:"registration_enabled"`
	TLSCertPath          string        `yaml:"tls_cert_path"`
	TLSKeyPath           string        `yaml:"tls_key_path"`
	TLSCAPath            string        `yaml:"tls_ca_path"`
	ServerName           string        `yaml:"server_name"`
}

func (d Discovery) Interval() time.Duration {
	return time.Duration(d.IntervalSecs) * time.Second
}

// Server is the server.* section: the GraphQL/HTTP listener's own settings.
type Server struct {
	BindAddress       string   `yaml:"bind_address"`
	CORSOrigins       []string `yaml:"cors_origins"`
	MaxRequestBodyBytes int64  `yaml:"max_request_body_bytes"`
}

// Config is the cluster's recognized configuration options (spec §6).
type Config struct {
	Server    Server    `yaml:"server"`
	Agents    Agents    `yaml:"agents"`
	Discovery Discovery `yaml:"discovery"`
}

// Load reads and parses a YAML config file, then validates the fields §6/§8
// depend on.
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

// Validate checks the invariants the agent pool and discovery depend on to
// avoid degenerate configurations (zero backoff, zero retries).
func (c *Config) Validate() error {
	if c.Server.BindAddress == "" {
		return fmt.Errorf("config: server.bind_address is required")
	}
	if c.Agents.HealthCheckInterval <= 0 {
		return fmt.Errorf("config: agents.health_check_interval must be > 0")
	}
	if c.Agents.ReconnectBackoff <= 0 {
		return fmt.Errorf("config: agents.reconnect_backoff must be > 0")
	}
	if c.Agents.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("config: agents.max_reconnect_attempts must be > 0")
	}
	for _, a := range c.Agents.StaticAgents {
		if a.ID == "" || a.Address == "" {
			return fmt.Errorf("config: agents.static_agents entries require id and address")
		}
	}
	if c.Discovery.Enabled {
		if c.Discovery.LabelKey == "" {
			return fmt.Errorf("config: discovery.label_key is required when discovery.enabled")
		}
		if c.Discovery.AgentPort <= 0 {
			return fmt.Errorf("config: discovery.agent_port must be > 0 when discovery.enabled")
		}
	}
	if c.Server.MaxRequestBodyBytes <= 0 {
		c.Server.MaxRequestBodyBytes = 2 * 1024 * 1024
	}
	return nil
}
