package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and decodes a TOML config file on top of DefaultConfig, then
// applies environment variable overrides and validates the result. A
// "defaults, then decode, then env, then validate" shape, with no
// multi-profile/multi-drive machinery since this process runs a single
// configuration.
func Load(path string, logger *slog.Logger) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		logger.Debug("loading config file", slog.String("path", path))

		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	} else {
		logger.Debug("no config file path set, using defaults + environment")
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but treats a missing file at path as
// "use defaults", a zero-config first-run behavior.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		return Load("", logger)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", slog.String("path", path))

		return Load("", logger)
	}

	return Load(path, logger)
}
