package config

import (
	"os"
	"strconv"
)

func loadProductionConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.DatabaseFilePath = "/data/data.sqlite"
	cfg.DataDir = "/data"
	cfg.ServerHost = "0.0.0.0"

	if dir := os.Getenv("DATA_DIRECTORY"); dir != "" {
		cfg.DataDir = dir
		cfg.DatabaseFilePath = dir + "/data.sqlite"
	}
}
