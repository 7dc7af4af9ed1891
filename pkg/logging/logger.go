// Package logging builds the zap loggers used by the CLI and ingestion.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a zap logger at the given level. When debug is true it uses the
// development config (human-readable console output); otherwise the
// production config (JSON). An empty level keeps the config's default.
func New(level string, debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
