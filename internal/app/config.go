package app

import (
	"errors"
	"fmt"

	"github.com/vk/deskshell/internal/buildmode"
	"github.com/vk/deskshell/internal/config"
)

// Config holds everything the bootstrapper needs besides the runtime.
type Config struct {
	LogFormat string
	LogLevel  string

	// Profile is normally buildmode.Current().
	Profile buildmode.Profile
	// Model is the resolved application configuration.
	Model *config.Model
}

// NewConfig validates cfg and returns a copy ready for NewBuilder.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Model == nil {
		return nil, errors.New("Model is a required configuration field and cannot be nil")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("unknown log format '%s', expected 'text' or 'json'", cfg.LogFormat)
	}
	if err := cfg.Model.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
