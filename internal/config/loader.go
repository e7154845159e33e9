package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/aden-hq/hive/internal/types"
	"github.com/aden-hq/hive/internal/util"
)

// Load reads configuration from the given YAML file, layered over defaults,
// with HIVE_* environment variables taking precedence over both. ${VAR}
// references inside string values are interpolated from the environment,
// and session_path additionally supports ~ expansion.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := DefaultConfig()
	v.SetDefault("step_budget", defaults.StepBudget)
	v.SetDefault("default_node_timeout", defaults.DefaultNodeTimeout)
	v.SetDefault("session_path", defaults.SessionPath)
	v.SetDefault("snapshot_ttl", defaults.SnapshotTTL)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("credential_prefix", defaults.CredentialPrefix)

	v.SetEnvPrefix("HIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}
	expanded, err := util.ExpandPath(cfg.SessionPath)
	if err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to expand session_path", err)
	}
	cfg.SessionPath = expanded
	cfg.CredentialPrefix = os.ExpandEnv(cfg.CredentialPrefix)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults behaves like Load but returns the validated defaults
// when the file does not exist.
func LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

