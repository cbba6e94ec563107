package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "deid.db" {
			t.Errorf("expected database path deid.db, got %s", config.Database.Path)
		}

		if config.Cache.Path != "deid_cache.db" {
			t.Errorf("expected cache path deid_cache.db, got %s", config.Cache.Path)
		}

		if config.Classifier.FailOpen {
			t.Error("classifier should fail closed by default")
		}

		if config.Auth.BcryptCost != 12 {
			t.Errorf("expected bcrypt cost 12, got %d", config.Auth.BcryptCost)
		}

		if config.Batch.NumWorkers != 4 {
			t.Errorf("expected 4 batch workers, got %d", config.Batch.NumWorkers)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[cache]
path = "/custom/cache.db"

[classifier]
endpoint = "http://localhost:8001"
timeout_seconds = 5
fail_open = true
min_confidence = 0.8

[auth]
bcrypt_cost = 10

[batch]
num_workers = 2
rate_limit = 1.5
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Classifier.Endpoint != "http://localhost:8001" {
			t.Errorf("expected classifier endpoint http://localhost:8001, got %s", config.Classifier.Endpoint)
		}

		if !config.Classifier.FailOpen {
			t.Error("expected fail_open true")
		}

		if config.Batch.RateLimit != 1.5 {
			t.Errorf("expected rate limit 1.5, got %f", config.Batch.RateLimit)
		}
	})
}
