package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/thermolink/internal/transport"
)

type simConfig struct {
	Listen     string
	SerialPort string
	BaudRate   int
	BaseTemp   float64
}

func defaultSimConfig() simConfig {
	return simConfig{
		Listen:   "localhost:9000",
		BaudRate: transport.DefaultBaudRate,
		BaseTemp: 25.0,
	}
}

type fileConfig struct {
	Listen     string  `toml:"listen"`
	SerialPort string  `toml:"serial_port"`
	BaudRate   int     `toml:"baud_rate"`
	BaseTemp   float64 `toml:"base_temp"`
}

func loadSimConfig(path string) (simConfig, error) {
	cfg := defaultSimConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return simConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("serial_port") {
		cfg.SerialPort = strings.TrimSpace(raw.SerialPort)
	}
	if meta.IsDefined("baud_rate") {
		cfg.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("base_temp") {
		cfg.BaseTemp = raw.BaseTemp
	}

	return cfg, nil
}
