package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
)

// Config is the session configuration the client is started with. The cache
// itself needs none of it; the surrounding session owns it and passes the
// log settings to dlog.Setup.
type Config struct {
	Token       string `mapstructure:"token"`
	GatewayURL  string `mapstructure:"gateway_url"`
	LogDir      string `mapstructure:"log_dir"`
	ArchiveCron string `mapstructure:"archive_cron"`
}

// Load decodes a settings map into a Config and applies defaults. The token
// is the only required value.
func Load(values map[string]any) (Config, error) {
	var cfg Config
	if err := mapstructure.Decode(values, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Token == "" {
		return Config{}, errors.New("config: token is required")
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	if cfg.ArchiveCron == "" {
		cfg.ArchiveCron = "0 0 * * *"
	}
	return cfg, nil
}

// FromEnv loads the config from the process environment.
func FromEnv() (Config, error) {
	return Load(map[string]any{
		"token":        os.Getenv("TOKEN"),
		"gateway_url":  os.Getenv("GATEWAY_URL"),
		"log_dir":      os.Getenv("LOG_DIR"),
		"archive_cron": os.Getenv("ARCHIVE_CRON"),
	})
}
