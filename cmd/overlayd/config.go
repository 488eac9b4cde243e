package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rsl-live/arena-overlay/internal/config"
	"gopkg.in/yaml.v3"
)

// Config is the daemon's deploy-time configuration. Environment variables
// override the file so a broadcast setup can tweak a single knob without
// editing yaml.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Service struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"service"`

	Overlay struct {
		SettingsPath    string        `yaml:"settings_path"`
		PollInterval    time.Duration `yaml:"poll_interval"`
		ServiceInterval time.Duration `yaml:"service_interval"`
		MaxWorkers      int           `yaml:"max_workers"`
	} `yaml:"overlay"`

	NATS struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

func defaultDaemonConfig() *Config {
	var cfg Config
	cfg.Server.Port = "8090"
	cfg.Overlay.SettingsPath = config.DefaultPath
	return &cfg
}

// loadConfig reads the yaml config, tolerating a missing file, then applies
// environment overrides.
func loadConfig(path string) (*Config, error) {
	cfg := defaultDaemonConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// run on defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Server.Port = getEnv("OVERLAY_PORT", cfg.Server.Port)
	cfg.Service.BaseURL = getEnv("RSL_BASE_URL", cfg.Service.BaseURL)
	cfg.Overlay.SettingsPath = getEnv("OVERLAY_SETTINGS_PATH", cfg.Overlay.SettingsPath)
	cfg.Overlay.MaxWorkers = getEnvAsInt("OVERLAY_MAX_WORKERS", cfg.Overlay.MaxWorkers)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	if os.Getenv("NATS_URL") != "" {
		cfg.NATS.Enabled = true
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
