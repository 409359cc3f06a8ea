package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	ConfigDirectory           string
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseBusyTimeout       time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	Hostname                  string
	ServerHost                string
	ServerPort                int
	UserConfigFilePath        string

	UserConfig *UserConfig
}

const environmentENV = "ENVIRONMENT"
const configDirectoryENV = "CONFIG_DIRECTORY"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	configDir := os.Getenv(configDirectoryENV)
	if configDir == "" {
		configDir = "/config"
	}

	cfg := &Config{
		ConfigDirectory:           configDir,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseFilePath:          filepath.Join(configDir, "foliarr.sqlite"),
		Hostname:                  hostname,
		ServerPort:                7445,
		UserConfigFilePath:        filepath.Join(configDir, "config.json"),
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	cfg.UserConfig, err = loadUserConfig(cfg.UserConfigFilePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return cfg, nil
}
