package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the daemon configuration read from the yaml config file.
type Config struct {
	Source     string `mapstructure:"source"`
	SerialPort string `mapstructure:"serial-port"`
	BaudRate   int    `mapstructure:"baud-rate"`
	StoreFile  string `mapstructure:"store-file"`
	LogLevel   string `mapstructure:"log-level"`
}

func ParseConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetDefault("source", "serial")
	v.SetDefault("serial-port", "/dev/ttyS0")
	v.SetDefault("baud-rate", 115200)
	v.SetDefault("store-file", "/var/lib/pillslot/state.db")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %v", configFile, err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	if config.BaudRate <= 0 {
		return nil, fmt.Errorf("baud-rate must be positive, got %d", config.BaudRate)
	}
	return config, nil
}
