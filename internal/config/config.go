// Package config loads CLI configuration from metatree.yml and the
// METATREE_* environment
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the metatree CLI configuration
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
	Backend   string `mapstructure:"backend"`
	Store     string `mapstructure:"store"`
}

// Load loads the configuration from metatree.yml or metatree.yaml,
// falling back to environment variables and defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("backend", "metatree")
	v.SetDefault("store", ".")

	v.SetConfigName("metatree")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("METATREE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}
