package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".understudy"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("UNDERSTUDY_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load process env vars from ~/.config/understudy/env (and
	// fallbacks) first, so they are visible to envconfig below.
	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find the config path
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	// If the file doesn't exist, continue with defaults.

	envconfig.Process("UNDERSTUDY_STATE", &cfg.State)
	envconfig.Process("UNDERSTUDY_MODEL", &cfg.Model)
	envconfig.Process("UNDERSTUDY_STORE", &cfg.Store)
	envconfig.Process("UNDERSTUDY_PERSONAS", &cfg.Personas)
	envconfig.Process("UNDERSTUDY_GEMINI", &cfg.Providers.Gemini)
	envconfig.Process("UNDERSTUDY_OPENAI", &cfg.Providers.OpenAI)
	envconfig.Process("UNDERSTUDY_WHATSAPP", &cfg.WhatsApp)

	// Fallbacks for credentials set the conventional way.
	if cfg.Providers.Gemini.APIKey == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.Providers.Gemini.APIKey = key
		} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			cfg.Providers.Gemini.APIKey = key
		}
	}
	if cfg.Providers.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Providers.OpenAI.APIKey = key
		}
	}
	if cfg.Store.ProjectID == "" {
		if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
			cfg.Store.ProjectID = project
		}
	}

	// Expand ~ in paths
	expandHome := func(p *string) {
		if strings.HasPrefix(*p, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				*p = filepath.Join(home, (*p)[1:])
			}
		}
	}
	expandHome(&cfg.State.Dir)
	expandHome(&cfg.Personas.Path)

	return cfg, nil
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
