package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds the environment overrides recognised by the shell.
type Env struct {
	LogLevel   string `env:"DESKSHELL_LOG_LEVEL"`
	LogFormat  string `env:"DESKSHELL_LOG_FORMAT"`
	BridgeAddr string `env:"DESKSHELL_BRIDGE_ADDR"`
	BrowserBin string `env:"DESKSHELL_BROWSER_BIN"`
	Runtime    string `env:"DESKSHELL_RUNTIME"`
}

// ParseEnv loads overrides from environment variables.
func ParseEnv() (*Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &e, nil
}

// Apply copies every set override onto the model.
func (e *Env) Apply(m *Model) {
	if e.BridgeAddr != "" {
		m.Bridge.Address = e.BridgeAddr
	}
	if e.BrowserBin != "" {
		m.Runtime.BrowserBin = e.BrowserBin
	}
	if e.Runtime != "" {
		m.Runtime.Kind = e.Runtime
	}
}
