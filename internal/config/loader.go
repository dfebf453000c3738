package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ConfigPaths holds the path to the optional main configuration file.
type ConfigPaths struct {
	Main string // path to synccore.toml; empty means defaults + env only
}

// DefaultConfigPaths returns the conventional configuration file path.
func DefaultConfigPaths() ConfigPaths {
	return ConfigPaths{Main: "synccore.toml"}
}

// LoadConfig loads configuration from, in increasing priority:
//  1. Default values (this module's own defaults, not rippled's)
//  2. The main configuration file, if paths.Main is non-empty
//  3. Environment variables under the SYNCCORE_ prefix
//
// then validates the result.
func LoadConfig(paths ConfigPaths) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if paths.Main != "" {
		if err := loadMainConfig(v, paths.Main); err != nil {
			return nil, fmt.Errorf("config: load main config: %w", err)
		}
	}

	v.SetEnvPrefix("SYNCCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.configPath = paths.Main

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func loadMainConfig(v *viper.Viper, configPath string) error {
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", configPath, err)
	}
	return nil
}

// LoadConfigFromFile loads configuration with mainPath as the main
// config file.
func LoadConfigFromFile(mainPath string) (*Config, error) {
	return LoadConfig(ConfigPaths{Main: mainPath})
}

// LoadDefaultConfig loads configuration from the conventional path if
// it exists, falling back to defaults + environment otherwise.
func LoadDefaultConfig() (*Config, error) {
	paths := DefaultConfigPaths()
	if _, err := os.Stat(paths.Main); os.IsNotExist(err) {
		paths.Main = ""
	}
	return LoadConfig(paths)
}
