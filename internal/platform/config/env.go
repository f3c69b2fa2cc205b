// Package config centralizes environment parsing and fatal-exit handling for
// the edge binaries. Every knob is read from POS_EDGE_-prefixed variables and
// may be overridden by flags at the command layer.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
