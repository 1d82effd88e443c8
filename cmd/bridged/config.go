package main

import (
	"fmt"

	"github.com/spf13/viper"

	continuitybridge "github.com/Xhuk/ContinuityBridge.poc-sub005"
)

type AppConfig struct {
	Name      string `mapstructure:"name"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type IngestConfig struct {
	Topic string `mapstructure:"topic"`
}

type RoutingConfig struct {
	Rules    []continuitybridge.RoutingRule `mapstructure:"rules"`
	Fallback continuitybridge.Warehouse     `mapstructure:"fallback"`
}

type DaemonConfig struct {
	App      AppConfig                      `mapstructure:"app"`
	HTTP     HTTPConfig                     `mapstructure:"http"`
	Engine   continuitybridge.Config        `mapstructure:"engine"`
	Ingest   IngestConfig                   `mapstructure:"ingest"`
	Routing  RoutingConfig                  `mapstructure:"routing"`
	Mapping  continuitybridge.MappingConfig `mapstructure:"mapping"`
	FlowsDir string                         `mapstructure:"flows_dir"`
}

func loadConfig(configPath string) (*DaemonConfig, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg DaemonConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	if cfg.App.Name == "" {
		cfg.App.Name = "bridged"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 9090
	}
	if cfg.Ingest.Topic == "" {
		cfg.Ingest.Topic = "items.inbound"
	}

	return &cfg, nil
}
