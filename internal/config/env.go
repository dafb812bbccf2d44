package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

const (
	envPrefix      = "KBC_"
	defaultDataDir = "/data"
)

// Environment is the part of the process environment the platform injects into
// every job.
type Environment struct {
	URL         string `koanf:"url"`
	Token       string `koanf:"token"`
	RunID       string `koanf:"runid"`
	ComponentID string `koanf:"componentid"`
	ConfigID    string `koanf:"configid"`
	DataDir     string `koanf:"datadir"`
}

// LoadEnvironment reads the KBC_* variables.
func LoadEnvironment() (*Environment, error) {
	k := koanf.New(".")
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	e := Environment{DataDir: defaultDataDir}
	if err := k.Unmarshal("", &e); err != nil {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	return &e, nil
}
