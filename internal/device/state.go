// Package device is the sensor-side half of the link: a dispatcher that
// answers host requests against mutable device state, backed by
// pluggable hardware collaborators.
package device

import (
	"sync"
	"time"

	"github.com/danmuck/thermolink/internal/thermo"
)

// TemperatureSensor reads the probe. Implementations may fail, e.g. a
// disconnected thermistor.
type TemperatureSensor interface {
	ReadTemperature() (float32, error)
}

// Clock is the device RTC.
type Clock interface {
	Now() (thermo.Date, thermo.Time)
	SetDate(thermo.Date) error
	SetTime(thermo.Time) error
}

// Actuator drives the output channels (buzzer, LED).
type Actuator interface {
	Set(channel uint8, on bool) error
}

// DefaultLogCapacity is the ring size of the on-device temperature log.
const DefaultLogCapacity = 100

// LogRing is a fixed-capacity temperature log. Oldest entries fall off
// once full; iteration order is insertion order.
type LogRing struct {
	entries []thermo.LogEntry
	limit   int
}

func NewLogRing(limit int) *LogRing {
	if limit <= 0 {
		limit = DefaultLogCapacity
	}
	return &LogRing{limit: limit}
}

func (r *LogRing) Add(e thermo.LogEntry) {
	r.entries = append(r.entries, e)
	if len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
}

func (r *LogRing) Len() int {
	return len(r.entries)
}

// Select returns up to max entries with timestamps in [start, end],
// oldest first. The bounds are inclusive on both ends.
func (r *LogRing) Select(start, end uint64, max int) []thermo.LogEntry {
	out := make([]thermo.LogEntry, 0, max)
	for _, e := range r.entries {
		if e.Timestamp < start || e.Timestamp > end {
			continue
		}
		out = append(out, e)
		if len(out) >= max {
			break
		}
	}
	return out
}

// State is the mutable device state shared by all command handlers.
// Handlers run one at a time per dispatcher, but a metrics scrape or a
// second transport may read concurrently, so access is locked.
type State struct {
	mu     sync.Mutex
	sensor TemperatureSensor
	clock  Clock
	act    Actuator

	alarms map[uint8]thermo.AlarmConfig
	log    *LogRing

	// Timestamp supplies log timestamps; tests pin it.
	Timestamp func() uint64
}

// NewState wires the hardware collaborators and seeds the factory alarm
// thresholds for both channels.
func NewState(sensor TemperatureSensor, clock Clock, act Actuator) *State {
	return &State{
		sensor: sensor,
		clock:  clock,
		act:    act,
		alarms: map[uint8]thermo.AlarmConfig{
			thermo.ChannelBuzzer: {ID: thermo.ChannelBuzzer, LowTemp: 10, HighTemp: 30},
			thermo.ChannelLED:    {ID: thermo.ChannelLED, LowTemp: 15, HighTemp: 35},
		},
		log:       NewLogRing(DefaultLogCapacity),
		Timestamp: func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// Alarms returns the configured thresholds, buzzer channel first.
func (s *State) Alarms() []thermo.AlarmConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]thermo.AlarmConfig, 0, len(s.alarms))
	for _, id := range []uint8{thermo.ChannelBuzzer, thermo.ChannelLED} {
		if a, ok := s.alarms[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// SetAlarm replaces one channel's thresholds.
func (s *State) SetAlarm(a thermo.AlarmConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alarms[a.ID] = a
}

// RecordSample appends one temperature reading to the log.
func (s *State) RecordSample(temp float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Add(thermo.LogEntry{Timestamp: s.Timestamp(), Temperature: temp})
}

// SelectLog reads logged samples in [start, end], capped at max.
func (s *State) SelectLog(start, end uint64, max int) []thermo.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Select(start, end, max)
}

// CheckAlarms drives each channel from the current reading: on when the
// temperature leaves the channel's [low, high] band, off inside it.
func (s *State) CheckAlarms(temp float32) error {
	s.mu.Lock()
	alarms := make([]thermo.AlarmConfig, 0, len(s.alarms))
	for _, a := range s.alarms {
		alarms = append(alarms, a)
	}
	s.mu.Unlock()

	for _, a := range alarms {
		breach := temp < a.LowTemp || temp > a.HighTemp
		if err := s.act.Set(a.ID, breach); err != nil {
			return err
		}
	}
	return nil
}
