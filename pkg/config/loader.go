package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses the process environment into cfg, which must be a pointer to a
// struct using `env` and `envDefault` tags.
func Load(cfg any) error {
	return LoadFrom(cfg, nil)
}

// LoadFrom parses the given environment into cfg. A nil map reads the process
// environment.
func LoadFrom(cfg any, environment map[string]string) error {
	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
