package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Cache      CacheConfig      `toml:"cache"`
	Classifier ClassifierConfig `toml:"classifier"`
	Auth       AuthConfig       `toml:"auth"`
	Batch      BatchConfig      `toml:"batch"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// CacheConfig locates the restored-output token cache.
type CacheConfig struct {
	Path string `toml:"path"`
}

// ClassifierConfig controls the span-classification collaborator.
//
// When Endpoint is empty only the built-in rule classifier runs. FailOpen
// downgrades an unreachable endpoint from a hard error to a warning; the
// default is to fail loudly rather than ship an under-anonymized document.
type ClassifierConfig struct {
	Endpoint       string  `toml:"endpoint"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	FailOpen       bool    `toml:"fail_open"`
	MinConfidence  float64 `toml:"min_confidence"`
}

// AuthConfig contains credential hashing settings.
type AuthConfig struct {
	BcryptCost int `toml:"bcrypt_cost"`
}

// BatchConfig contains worker pool settings for multi-document runs.
type BatchConfig struct {
	NumWorkers int     `toml:"num_workers"`
	RateLimit  float64 `toml:"rate_limit"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
