// Package config handles logger and runtime setup shared by the command line
// drivers.
package config

import (
	"github.com/retroenv/retrogolib/log"
)

// Default driver settings.
const (
	DefaultCyclesPerFrame = 10
	DefaultTimerHz        = 100
	DefaultScale          = 10
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
