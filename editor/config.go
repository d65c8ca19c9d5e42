package editor

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all editor configuration.
type Config struct {
	DBPath      string       `yaml:"db_path"`
	AuditDBPath string       `yaml:"audit_db_path"`
	HTTPAddr    string       `yaml:"http_addr"`
	Frame       FrameConfig  `yaml:"frame"`
	Bridge      BridgeConfig `yaml:"bridge"`

	// SanitizeOnEnter scrubs screen HTML through the bluemonday policy when
	// a session starts. On by default; disable only for trusted pipelines.
	SanitizeOnEnter *bool `yaml:"sanitize_on_enter"`

	// AuditRetentionDays bounds the edit event history. Zero keeps forever.
	AuditRetentionDays int `yaml:"audit_retention_days"`

	// TraceSQL routes design-store queries through the tracing driver and
	// persists them in the audit database.
	TraceSQL bool `yaml:"trace_sql"`
}

// FrameConfig describes the device frame screens are designed in.
type FrameConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	CornerRadius float64 `yaml:"corner_radius"`
}

// BridgeConfig controls the host↔sandbox transport.
type BridgeConfig struct {
	Buffer int `yaml:"buffer"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "eazyui.db"
	}
	if c.AuditDBPath == "" {
		c.AuditDBPath = "eazyui_audit.db"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8086"
	}
	if c.Frame.Width <= 0 {
		c.Frame.Width = 390
	}
	if c.Frame.Height <= 0 {
		c.Frame.Height = 844
	}
	if c.Frame.CornerRadius < 0 {
		c.Frame.CornerRadius = 0
	} else if c.Frame.CornerRadius == 0 {
		c.Frame.CornerRadius = 24
	}
	if c.Bridge.Buffer <= 0 {
		c.Bridge.Buffer = 64
	}
	if c.SanitizeOnEnter == nil {
		on := true
		c.SanitizeOnEnter = &on
	}
}

func (c *Config) sanitizeOnEnter() bool {
	return c.SanitizeOnEnter == nil || *c.SanitizeOnEnter
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
