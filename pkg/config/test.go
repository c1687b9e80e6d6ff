package config

import (
	"os"
	"path/filepath"
)

func loadTestConfig(cfg *Config) {
	tmpDir := os.TempDir()

	cfg.DatabaseFilePath = ":memory:"
	cfg.DataDir = filepath.Join(tmpDir, "scrivano-test-data")
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.UserConfigFilePath = filepath.Join(tmpDir, "scrivano-test-config.json")
}
