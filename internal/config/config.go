// Package config loads and validates executor configuration from YAML
// files and environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all executor settings. The step budget is a required,
// caller-visible decision: there is no hidden default ceiling for cyclic
// graphs.
type Config struct {
	// StepBudget is the global per-run step ceiling.
	StepBudget int `mapstructure:"step_budget" yaml:"step_budget" validate:"required,gt=0"`

	// DefaultNodeTimeout bounds a single invocation attempt for nodes that
	// declare no timeout of their own. Zero disables the default.
	DefaultNodeTimeout time.Duration `mapstructure:"default_node_timeout" yaml:"default_node_timeout" validate:"gte=0"`

	// SessionPath is the SQLite database file holding paused-run snapshots.
	SessionPath string `mapstructure:"session_path" yaml:"session_path" validate:"required"`

	// SnapshotTTL expires abandoned paused runs from the in-memory session
	// store. Zero means snapshots never expire.
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl" yaml:"snapshot_ttl" validate:"gte=0"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level" validate:"required,oneof=debug info warn error"`

	// CredentialPrefix namespaces environment-backed credential lookups.
	CredentialPrefix string `mapstructure:"credential_prefix" yaml:"credential_prefix"`
}

// DefaultConfig returns the baseline configuration. StepBudget is
// deliberately left at a modest value rather than "unlimited" so cyclic
// graphs terminate even with a default config.
func DefaultConfig() *Config {
	return &Config{
		StepBudget:         100,
		DefaultNodeTimeout: 60 * time.Second,
		SessionPath:        defaultSessionPath(),
		SnapshotTTL:        24 * time.Hour,
		LogLevel:           "info",
		CredentialPrefix:   "HIVE_",
	}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hive-sessions.db"
	}
	return filepath.Join(home, ".hive", "sessions.db")
}
