package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	DatabaseMaxRetries        int
	DataDir                   string
	Hostname                  string
	MaxUploadSizeBytes        int64
	RemoteTimeout             time.Duration
	ServerHost                string
	ServerPort                int
	UploadPollInterval        time.Duration

	UserConfig         *UserConfig
	UserConfigFilePath string
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		Hostname:                  hostname,
		MaxUploadSizeBytes:        25 * 1024 * 1024,
		RemoteTimeout:             30 * time.Second,
		ServerPort:                3690,
		UploadPollInterval:        5 * time.Second,
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	if cfg.UserConfigFilePath == "" {
		cfg.UserConfigFilePath = userConfigFilePath()
	}

	userConfig, err := loadUserConfig(cfg.UserConfigFilePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.UserConfig = userConfig

	return cfg, nil
}

// NewForTest returns a config suitable for unit tests: in-memory database,
// temp directories, and no user config file reads.
func NewForTest() *Config {
	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 1,
		DatabaseConnectRetryDelay: 10 * time.Millisecond,
		DatabaseMaxRetries:        5,
		MaxUploadSizeBytes:        25 * 1024 * 1024,
		RemoteTimeout:             time.Second,
		UploadPollInterval:        10 * time.Millisecond,
	}
	loadTestConfig(cfg)
	cfg.UserConfig = loadDefaultUserConfig()
	return cfg
}

// AssetsDir is where the local asset store keeps one file per asset id.
func (cfg *Config) AssetsDir() string {
	return filepath.Join(cfg.DataDir, "assets")
}
