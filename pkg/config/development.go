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
	cfg.ServerHost = "127.0.0.1"
	cfg.SettingsFilePath = "./tmp/settings.yaml"
}

func loadTestConfig(cfg *Config) {
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.SettingsFilePath = ""
	cfg.WorkerProcesses = 1
}

func loadProductionConfig(cfg *Config) {
	configDir := os.Getenv("CONFIG_DIRECTORY")
	if configDir == "" {
		configDir = "/config"
	}

	cfg.DatabaseFilePath = configDir + "/data.sqlite"
	cfg.ServerHost = "0.0.0.0"
	cfg.SettingsFilePath = configDir + "/settings.yaml"
}
