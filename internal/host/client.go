package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/thermolink/internal/observability"
	"github.com/danmuck/thermolink/internal/protocol"
	"github.com/danmuck/thermolink/internal/protocol/schema"
	"github.com/danmuck/thermolink/internal/thermo"
)

var ErrUnknownCommand = errors.New("host: unknown command")

// StatusError is a non-OK ST field in an otherwise valid response.
type StatusError struct {
	Command string
	Status  protocol.Status
}

func (e StatusError) Error() string {
	return fmt.Sprintf("host: %s: device status 0x%02x", e.Command, uint8(e.Status))
}

// Client is the typed host-side API over one transport link. It owns the
// read pump, the reassembler and the correlator; callers see domain
// values and errors only.
type Client struct {
	rw         io.ReadWriteCloser
	cfg        Config
	correlator *Correlator
	reasm      *protocol.Reassembler
	done       chan struct{}
	log        zerolog.Logger
}

// NewClient wraps an open duplex stream and starts its read pump. Close
// the client, not the stream, when finished.
func NewClient(rw io.ReadWriteCloser, cfg Config) *Client {
	observability.Register()
	c := &Client{
		rw:         rw,
		cfg:        cfg.WithDefaults(),
		correlator: NewCorrelator(rw),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "client").Logger(),
	}
	c.reasm = protocol.NewReassembler(func(f protocol.Frame, err error) {
		if err != nil {
			// Framing damage is recovered by the reassembler; nothing to
			// retry at this layer.
			c.log.Debug().Err(err).Msg("frame dropped")
			return
		}
		c.correlator.HandleFrame(f)
	})
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)
	buf := make([]byte, 512)
	for {
		n, err := c.rw.Read(buf)
		if n > 0 {
			c.reasm.Feed(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				c.log.Warn().Err(err).Msg("transport read failed")
			}
			c.correlator.Close()
			return
		}
	}
}

// Close tears down the transport and fails every pending request.
func (c *Client) Close() error {
	c.correlator.Close()
	err := c.rw.Close()
	<-c.done
	return err
}

// call runs the bounded retry loop around single-attempt sends. An
// in-flight collision is the caller's bug and is surfaced immediately;
// timeouts and transient failures burn attempts with backoff between.
func (c *Client) call(ctx context.Context, command string, da []protocol.Field) (Result, error) {
	cmd, ok := schema.Lookup(command)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := NextBackoffDelay(c.cfg.Backoff, attempt-1, nil)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}

		ch, err := c.correlator.Send(command, da, c.cfg.RequestTimeout)
		if err != nil {
			if errors.Is(err, ErrRequestAlreadyInFlight) || errors.Is(err, ErrDisconnected) {
				return Result{}, err
			}
			lastErr = err
			continue
		}

		select {
		case res := <-ch:
			if res.Err != nil {
				if errors.Is(res.Err, ErrDisconnected) {
					return Result{}, res.Err
				}
				c.log.Debug().Err(res.Err).Str("command", command).Int("attempt", attempt).Msg("attempt failed")
				lastErr = res.Err
				continue
			}
			if res.Status != protocol.StatusOK {
				return Result{}, StatusError{Command: command, Status: res.Status}
			}
			if err := cmd.ValidateResponse(res.Fields); err != nil {
				return Result{}, err
			}
			return res, nil
		case <-ctx.Done():
			// The pending entry expires on its own timer.
			return Result{}, ctx.Err()
		}
	}
	return Result{}, lastErr
}

// Ping checks device liveness.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, protocol.CmdPing, nil)
	return err
}

// ReadTemperature reads the current sensor temperature in °C.
func (c *Client) ReadTemperature(ctx context.Context) (float32, error) {
	res, err := c.call(ctx, protocol.CmdGetTemp, nil)
	if err != nil {
		return 0, err
	}
	f, _ := protocol.GetField(res.Fields, protocol.TagTemperature)
	return f.Float32()
}

// ReadDate reads the device RTC date.
func (c *Client) ReadDate(ctx context.Context) (thermo.Date, error) {
	res, err := c.call(ctx, protocol.CmdGetDate, nil)
	if err != nil {
		return thermo.Date{}, err
	}
	return thermo.ParseDate(res.Fields)
}

// ReadTime reads the device RTC time.
func (c *Client) ReadTime(ctx context.Context) (thermo.Time, error) {
	res, err := c.call(ctx, protocol.CmdGetTime, nil)
	if err != nil {
		return thermo.Time{}, err
	}
	return thermo.ParseTime(res.Fields)
}

// SetDate writes the device RTC date.
func (c *Client) SetDate(ctx context.Context, d thermo.Date) error {
	if err := d.Validate(); err != nil {
		return err
	}
	_, err := c.call(ctx, protocol.CmdSetDate, thermo.DateFields(d))
	return err
}

// SetTime writes the device RTC time.
func (c *Client) SetTime(ctx context.Context, t thermo.Time) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := c.call(ctx, protocol.CmdSetTime, thermo.TimeFields(t))
	return err
}

// ReadAlarms reads every alarm channel's thresholds.
func (c *Client) ReadAlarms(ctx context.Context) ([]thermo.AlarmConfig, error) {
	res, err := c.call(ctx, protocol.CmdGetAlarms, nil)
	if err != nil {
		return nil, err
	}
	list, _ := protocol.GetField(res.Fields, protocol.TagAlarmList)
	return thermo.ParseAlarmList(list)
}

// WriteAlarms replaces alarm thresholds. The low<high invariant is
// enforced here, not by the wire protocol.
func (c *Client) WriteAlarms(ctx context.Context, alarms []thermo.AlarmConfig) error {
	for _, a := range alarms {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	_, err := c.call(ctx, protocol.CmdSetAlarms,
		[]protocol.Field{thermo.AlarmListField(alarms)})
	return err
}

// ReadLog fetches log entries with timestamps in [start, end]. max caps
// the entry count; 0 means the device default.
func (c *Client) ReadLog(ctx context.Context, start, end uint64, max uint16) ([]thermo.LogEntry, error) {
	da := []protocol.Field{
		protocol.NewFieldUint64(protocol.TagTimeStart, start),
		protocol.NewFieldUint64(protocol.TagTimeEnd, end),
	}
	if max > 0 {
		da = append(da, protocol.NewFieldUint16(protocol.TagMaxCount, max))
	}
	res, err := c.call(ctx, protocol.CmdGetLog, da)
	if err != nil {
		return nil, err
	}
	list, _ := protocol.GetField(res.Fields, protocol.TagLogList)
	return thermo.ParseLogList(list)
}

// SetLED switches the LED channel.
func (c *Client) SetLED(ctx context.Context, on bool) error {
	cmd := protocol.CmdResetLED
	if on {
		cmd = protocol.CmdSetLED
	}
	_, err := c.call(ctx, cmd, nil)
	return err
}

// SetBuzzer switches the buzzer channel.
func (c *Client) SetBuzzer(ctx context.Context, on bool) error {
	cmd := protocol.CmdResetBuzzer
	if on {
		cmd = protocol.CmdSetBuzzer
	}
	_, err := c.call(ctx, cmd, nil)
	return err
}
