package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/thermolink/internal/host"
	"github.com/danmuck/thermolink/internal/transport"
)

type ctlConfig struct {
	Address    string
	SerialPort string
	BaudRate   int
	Host       host.Config
}

func defaultCtlConfig() ctlConfig {
	return ctlConfig{
		Address:  "localhost:9000",
		BaudRate: transport.DefaultBaudRate,
		Host:     host.DefaultConfig(),
	}
}

type fileConfig struct {
	Address        string `toml:"address"`
	SerialPort     string `toml:"serial_port"`
	BaudRate       int    `toml:"baud_rate"`
	RequestTimeout string `toml:"request_timeout"`
	MaxAttempts    int    `toml:"max_attempts"`
}

func loadCtlConfig(path string) (ctlConfig, error) {
	cfg := defaultCtlConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ctlConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("serial_port") {
		cfg.SerialPort = strings.TrimSpace(raw.SerialPort)
	}
	if meta.IsDefined("baud_rate") {
		cfg.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("request_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RequestTimeout))
		if err != nil {
			return ctlConfig{}, fmt.Errorf("parse request_timeout: %w", err)
		}
		cfg.Host.RequestTimeout = d
	}
	if meta.IsDefined("max_attempts") {
		cfg.Host.MaxAttempts = raw.MaxAttempts
	}

	return cfg, nil
}
