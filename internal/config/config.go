// Package config loads scan settings from a YAML file with environment
// overrides (A11YSCAN_*). Flags beat env, env beats file, file beats
// defaults; the merge happens in the CLI layer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/browser"
	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/keyboard"
	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/scan"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Keyboard tunes the keyboard audit.
type Keyboard struct {
	Enabled             bool `yaml:"enabled"`
	MaxTabPresses       int  `yaml:"maxTabPresses"`
	TrapRepeatThreshold int  `yaml:"trapRepeatThreshold"`
}

// Config is the file shape. Zero values defer to scan/browser defaults.
type Config struct {
	Targets  []string `yaml:"urls"`
	Engine   string   `yaml:"engine"`
	Headless *bool    `yaml:"headless"`

	NavTimeout  Duration `yaml:"navTimeout"`
	SettleDelay Duration `yaml:"settleDelay"`

	MaxNavigationWaits int      `yaml:"maxNavigationWaits"`
	MaxRetries         int      `yaml:"maxRetries"`
	RetryDelayBase     Duration `yaml:"retryDelayBase"`

	Tags             []string `yaml:"tags"`
	RequireReact     bool     `yaml:"requireReact"`
	InternalPatterns []string `yaml:"internalPatterns"`
	FailThreshold    *int     `yaml:"failThreshold"`

	Keyboard Keyboard `yaml:"keyboard"`
	AxePath  string   `yaml:"axePath"`
}

// Load reads the file (if path is non-empty) and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("A11YSCAN_ENGINE"); v != "" {
		c.Engine = v
	}
	if v := os.Getenv("A11YSCAN_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Headless = &b
		}
	}
	if v := os.Getenv("A11YSCAN_AXE_PATH"); v != "" {
		c.AxePath = v
	}
	if v := os.Getenv("A11YSCAN_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
}

// ScanOptions converts the config into the engine's option set.
func (c *Config) ScanOptions() (scan.Options, error) {
	engine, err := browser.ParseEngine(c.Engine)
	if err != nil {
		return scan.Options{}, err
	}
	headless := true
	if c.Headless != nil {
		headless = *c.Headless
	}
	return scan.Options{
		Browser: browser.Options{
			Engine:      engine,
			Headless:    headless,
			NavTimeout:  time.Duration(c.NavTimeout),
			SettleDelay: time.Duration(c.SettleDelay),
		},
		MaxNavigationWaits: c.MaxNavigationWaits,
		MaxRetries:         c.MaxRetries,
		RetryDelayBase:     time.Duration(c.RetryDelayBase),
		Tags:               c.Tags,
		RequireReact:       c.RequireReact,
		Keyboard:           c.Keyboard.Enabled,
		KeyboardOpts: keyboard.Options{
			MaxTabPresses:       c.Keyboard.MaxTabPresses,
			TrapRepeatThreshold: c.Keyboard.TrapRepeatThreshold,
		},
		InternalPatterns: c.InternalPatterns,
		FailThreshold:    c.FailThreshold,
	}, nil
}
