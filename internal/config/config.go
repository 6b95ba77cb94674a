// Package config loads the relayctl configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration. Every field has a usable
// default; a missing config file is not an error.
type Config struct {
	// Driver selects the device backend: "hid", "serial" or "mock".
	Driver string `yaml:"driver"`
	Serial struct {
		Boards []BoardConfig `yaml:"boards"`
	} `yaml:"serial"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Web struct {
		Listen string `yaml:"listen"`
	} `yaml:"web"`
	PollInterval string `yaml:"poll_interval"`
	Log          struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// BoardConfig describes one serial-protocol relay board. These boards
// have no factory serial number, so the config assigns one.
type BoardConfig struct {
	Port     string `yaml:"port"`
	Serial   string `yaml:"serial"`
	Channels int    `yaml:"channels"`
	Baud     int    `yaml:"baud"`
}

// DefaultPath returns the per-user config file path,
// e.g. ~/.config/relayctl/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "relayctl", "config.yaml"), nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Driver = "hid"
	cfg.MQTT.TopicPrefix = "relayctl"
	cfg.Web.Listen = "127.0.0.1:8480"
	cfg.PollInterval = "1s"
	cfg.Log.Level = "warn"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads the config at path. An empty path means the default
// location; a missing file at the default location yields the
// defaults, while an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return defaults(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return defaults(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Driver {
	case "hid", "serial", "mock":
	default:
		return fmt.Errorf("driver must be hid, serial or mock, got %q", c.Driver)
	}
	if c.Driver == "serial" && len(c.Serial.Boards) == 0 {
		return fmt.Errorf("serial driver requires at least one serial.boards entry")
	}
	for i, b := range c.Serial.Boards {
		if b.Port == "" {
			return fmt.Errorf("serial.boards[%d].port is required", i)
		}
		if len(b.Serial) != 5 {
			return fmt.Errorf("serial.boards[%d].serial must be 5 characters, got %q", i, b.Serial)
		}
		if b.Channels < 1 || b.Channels > 8 {
			return fmt.Errorf("serial.boards[%d].channels must be 1-8, got %d", i, b.Channels)
		}
	}
	if _, err := time.ParseDuration(c.PollInterval); err != nil {
		return fmt.Errorf("poll_interval: %w", err)
	}
	return nil
}

// PollDuration returns the parsed poll interval.
func (c *Config) PollDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return time.Second
	}
	return d
}
