package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL points at a locally running backend, matching the demo
// server's default listen address.
const DefaultBaseURL = "http://127.0.0.1:5000"

type Config struct {
	BaseURL  string `yaml:"base_url"`
	LogFile  string `yaml:"log_file"`
	Debug    bool   `yaml:"debug"`
	Theme    string `yaml:"theme"`
	Username string `yaml:"username"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Theme:   "midnight",
	}
}

// Load reads the config file at path, falling back to defaults when the
// file is missing. Environment variables override file values so a
// deployment can repoint the client without editing config.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if v := os.Getenv("WIGCHAT_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("WIGCHAT_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Theme == "" {
		cfg.Theme = "midnight"
	}
	return cfg, nil
}

func Save(cfg Config, path string) error {
	if path == "" {
		return errors.New("no path provided for config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "wigchat", "config.yml")
}
