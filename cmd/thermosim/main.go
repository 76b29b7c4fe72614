package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/thermolink/internal/device"
	"github.com/danmuck/thermolink/internal/logging"
	"github.com/danmuck/thermolink/internal/transport"
)

func main() {
	logging.ConfigureRuntime()

	var (
		configPath = flag.String("config", "", "TOML config file")
		listen     = flag.String("listen", "", "TCP listen address")
		serialPort = flag.String("serial", "", "serve over a serial device instead of TCP")
		baseTemp   = flag.Float64("base-temp", 0, "simulated sensor base temperature")
	)
	flag.Parse()

	cfg := defaultSimConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadSimConfig(*configPath); err != nil {
			fatal(err)
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *serialPort != "" {
		cfg.SerialPort = *serialPort
	}
	if *baseTemp != 0 {
		cfg.BaseTemp = *baseTemp
	}

	state := device.NewState(
		device.NewSimSensor(float32(cfg.BaseTemp)),
		device.NewSimClock(),
		device.NewSimActuator(),
	)

	var err error
	if cfg.SerialPort != "" {
		err = runSerial(cfg, state)
	} else {
		err = runTCP(cfg, state)
	}
	if err != nil {
		fatal(err)
	}
}

func runSerial(cfg simConfig, state *device.State) error {
	port, err := transport.OpenSerial(cfg.SerialPort, cfg.BaudRate)
	if err != nil {
		return err
	}
	log.Info().Str("serial", cfg.SerialPort).Int("baud", cfg.BaudRate).Msg("emulator up")
	return device.NewService(port, state).Run()
}

// runTCP serves one host connection at a time, like the single UART on
// the real device. Device state persists across connections.
func runTCP(cfg simConfig, state *device.State) error {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	defer ln.Close()
	log.Info().Str("listen", cfg.Listen).Float64("base_temp", cfg.BaseTemp).Msg("emulator up")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		log.Info().Str("peer", conn.RemoteAddr().String()).Msg("host connected")

		svc := device.NewService(conn, state)
		if err := svc.Run(); err != nil {
			log.Warn().Err(err).Msg("link failed")
		}
		conn.Close()
		log.Info().Str("peer", conn.RemoteAddr().String()).Msg("host disconnected")
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "thermosim: %v\n", err)
	os.Exit(1)
}
