package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/thermolink/internal/host"
	"github.com/danmuck/thermolink/internal/logging"
	"github.com/danmuck/thermolink/internal/thermo"
	"github.com/danmuck/thermolink/internal/transport"
)

const usage = `usage: thermoctl [flags] <command> [args]

commands:
  ping
  temp
  date                      read the device date
  set-date YY MM DD WK      two-digit year, ISO weekday 1-7
  time                      read the device time
  set-time HH MM SS
  alarms                    read alarm thresholds
  set-alarm ID LOW HIGH     channel 0=buzzer 1=led
  log START END [MAX]       unix-second range, inclusive
  led on|off
  buzzer on|off
`

func main() {
	logging.ConfigureRuntime()

	var (
		configPath = flag.String("config", "", "TOML config file")
		addr       = flag.String("addr", "", "TCP address of the emulator")
		serialPort = flag.String("serial", "", "serial device path")
		baudRate   = flag.Int("baud", 0, "serial baud rate")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := defaultCtlConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadCtlConfig(*configPath); err != nil {
			fatal(err)
		}
	}
	if *addr != "" {
		cfg.Address = *addr
	}
	if *serialPort != "" {
		cfg.SerialPort = *serialPort
	}
	if *baudRate > 0 {
		cfg.BaudRate = *baudRate
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	stream, err := openStream(cfg)
	if err != nil {
		fatal(err)
	}
	cli := host.NewClient(stream, cfg.Host)
	defer cli.Close()

	if err := runCommand(cli, args[0], args[1:]); err != nil {
		fatal(err)
	}
}

func openStream(cfg ctlConfig) (transport.Stream, error) {
	if cfg.SerialPort != "" {
		return transport.OpenSerial(cfg.SerialPort, cfg.BaudRate)
	}
	return transport.DialTCP(cfg.Address, 5*time.Second)
}

func runCommand(cli *host.Client, command string, args []string) error {
	ctx := context.Background()

	switch command {
	case "ping":
		start := time.Now()
		if err := cli.Ping(ctx); err != nil {
			return err
		}
		fmt.Printf("pong (%s)\n", time.Since(start).Round(time.Millisecond))
		return nil

	case "temp":
		temp, err := cli.ReadTemperature(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%.2f°C\n", temp)
		return nil

	case "date":
		d, err := cli.ReadDate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("20%02d-%02d-%02d (weekday %d)\n", d.Year, d.Month, d.Day, d.Weekday)
		return nil

	case "set-date":
		vals, err := parseUint8Args(args, 4)
		if err != nil {
			return err
		}
		return cli.SetDate(ctx, thermo.Date{
			Year: vals[0], Month: vals[1], Day: vals[2], Weekday: vals[3],
		})

	case "time":
		t, err := cli.ReadTime(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%02d:%02d:%02d\n", t.Hour, t.Minute, t.Second)
		return nil

	case "set-time":
		vals, err := parseUint8Args(args, 3)
		if err != nil {
			return err
		}
		return cli.SetTime(ctx, thermo.Time{
			Hour: vals[0], Minute: vals[1], Second: vals[2],
		})

	case "alarms":
		alarms, err := cli.ReadAlarms(ctx)
		if err != nil {
			return err
		}
		for _, a := range alarms {
			fmt.Printf("channel %d: %.1f°C .. %.1f°C\n", a.ID, a.LowTemp, a.HighTemp)
		}
		return nil

	case "set-alarm":
		if len(args) != 3 {
			return fmt.Errorf("set-alarm takes ID LOW HIGH")
		}
		id, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("bad channel id %q", args[0])
		}
		low, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("bad low threshold %q", args[1])
		}
		high, err := strconv.ParseFloat(args[2], 32)
		if err != nil {
			return fmt.Errorf("bad high threshold %q", args[2])
		}
		return cli.WriteAlarms(ctx, []thermo.AlarmConfig{{
			ID: uint8(id), LowTemp: float32(low), HighTemp: float32(high),
		}})

	case "log":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("log takes START END [MAX]")
		}
		start, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad start %q", args[0])
		}
		end, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad end %q", args[1])
		}
		var max uint16
		if len(args) == 3 {
			m, err := strconv.ParseUint(args[2], 10, 16)
			if err != nil {
				return fmt.Errorf("bad max %q", args[2])
			}
			max = uint16(m)
		}
		entries, err := cli.ReadLog(ctx, start, end, max)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %.2f°C\n",
				time.Unix(int64(e.Timestamp), 0).UTC().Format(time.DateTime), e.Temperature)
		}
		fmt.Printf("%d entries\n", len(entries))
		return nil

	case "led":
		on, err := parseOnOff(args)
		if err != nil {
			return err
		}
		return cli.SetLED(ctx, on)

	case "buzzer":
		on, err := parseOnOff(args)
		if err != nil {
			return err
		}
		return cli.SetBuzzer(ctx, on)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func parseUint8Args(args []string, n int) ([]uint8, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	out := make([]uint8, n)
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", a)
		}
		out[i] = uint8(v)
	}
	return out, nil
}

func parseOnOff(args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("expected on|off")
	}
	switch strings.ToLower(args[0]) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on|off, got %q", args[0])
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "thermoctl: %v\n", err)
	os.Exit(1)
}
