package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	DatabaseMaxRetries        int
	Hostname                  string
	ServerHost                string
	ServerPort                int
	SettingsFilePath          string
	WorkerProcesses           int

	// Scanner holds the settings threaded through every scan. It is loaded
	// once at startup and treated as immutable from then on.
	Scanner ScannerSettings
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        10,
		Hostname:                  hostname,
		ServerPort:                3757,
		WorkerProcesses:           2,
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	scanner, err := LoadScannerSettings(cfg.SettingsFilePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Scanner = *scanner

	return cfg, nil
}
