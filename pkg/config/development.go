package config

import (
	"os"
	"strconv"
)

func loadDevelopmentConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data.sqlite"
	cfg.DataDir = "./tmp/data"
	cfg.ServerHost = "127.0.0.1"
	cfg.UserConfigFilePath = "./tmp/config.json"
}
