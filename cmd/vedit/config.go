package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/absmartly/vedit/selector"
)

// Config is the top-level vedit configuration.
type Config struct {
	Listen        string         `yaml:"listen"`
	PagePath      string         `yaml:"page_path"`
	StorePath     string         `yaml:"store_path"`
	AutoStopDelay time.Duration `yaml:"auto_stop_delay"`
	// Selector nil means defaults; a present block is taken as given,
	// explicit falses included.
	Selector *SelectorConfig `yaml:"selector"`
	Browser  BrowserConfig   `yaml:"browser"`
}

// SelectorConfig controls selector generation.
type SelectorConfig struct {
	PreferDataAttributes bool     `yaml:"prefer_data_attributes"`
	DataAttributes       []string `yaml:"data_attributes"`
	AvoidAutoGenerated   bool     `yaml:"avoid_auto_generated"`
	IncludeParentContext bool     `yaml:"include_parent_context"`
	MaxParentLevels      int      `yaml:"max_parent_levels"`
}

// BrowserConfig controls the live-page applier.
type BrowserConfig struct {
	Remote     string        `yaml:"remote"`
	Stealth    bool          `yaml:"stealth"`
	NavTimeout time.Duration `yaml:"nav_timeout"`
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8791"
	}
	if c.AutoStopDelay <= 0 {
		c.AutoStopDelay = 3 * time.Second
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Selector == nil {
		def := selector.DefaultOptions()
		c.Selector = &SelectorConfig{
			PreferDataAttributes: def.PreferDataAttributes,
			DataAttributes:       def.DataAttributes,
			AvoidAutoGenerated:   def.AvoidAutoGenerated,
			IncludeParentContext: def.IncludeParentContext,
			MaxParentLevels:      def.MaxParentLevels,
		}
	}
}

func (c *Config) selectorOptions() *selector.Options {
	return &selector.Options{
		PreferDataAttributes: c.Selector.PreferDataAttributes,
		DataAttributes:       c.Selector.DataAttributes,
		AvoidAutoGenerated:   c.Selector.AvoidAutoGenerated,
		IncludeParentContext: c.Selector.IncludeParentContext,
		MaxParentLevels:      c.Selector.MaxParentLevels,
	}
}
