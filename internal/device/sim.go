package device

import (
	"math/rand"
	"sync"
	"time"

	"github.com/danmuck/thermolink/internal/thermo"
)

// SimSensor is a software probe that drifts around a base temperature.
// It stands in for the thermistor in the emulator and in tests.
type SimSensor struct {
	mu   sync.Mutex
	base float32
	temp float32
	rng  *rand.Rand
}

func NewSimSensor(base float32) *SimSensor {
	return &SimSensor{
		base: base,
		temp: base,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SimSensor) ReadTemperature() (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temp += float32(s.rng.Float64()-0.5) * 0.4
	// Pull the reading back toward base so drift stays bounded.
	s.temp += (s.base - s.temp) * 0.05
	return s.temp, nil
}

// SimClock keeps device time as an offset from the host clock, so sdat
// and stim take effect without a real RTC.
type SimClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func NewSimClock() *SimClock {
	return &SimClock{}
}

func (c *SimClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *SimClock) Now() (thermo.Date, thermo.Time) {
	t := c.now()
	wd := uint8(t.Weekday())
	if wd == 0 {
		wd = 7 // ISO weekday, Sunday is 7
	}
	return thermo.Date{
			Year:    uint8(t.Year() % 100),
			Month:   uint8(t.Month()),
			Day:     uint8(t.Day()),
			Weekday: wd,
		}, thermo.Time{
			Hour:   uint8(t.Hour()),
			Minute: uint8(t.Minute()),
			Second: uint8(t.Second()),
		}
}

func (c *SimClock) SetDate(d thermo.Date) error {
	cur := c.now()
	want := time.Date(2000+int(d.Year), time.Month(d.Month), int(d.Day),
		cur.Hour(), cur.Minute(), cur.Second(), 0, cur.Location())
	c.mu.Lock()
	c.offset += want.Sub(cur)
	c.mu.Unlock()
	return nil
}

func (c *SimClock) SetTime(t thermo.Time) error {
	cur := c.now()
	want := time.Date(cur.Year(), cur.Month(), cur.Day(),
		int(t.Hour), int(t.Minute), int(t.Second), 0, cur.Location())
	c.mu.Lock()
	c.offset += want.Sub(cur)
	c.mu.Unlock()
	return nil
}

// SimActuator latches channel states in memory.
type SimActuator struct {
	mu    sync.Mutex
	state map[uint8]bool
}

func NewSimActuator() *SimActuator {
	return &SimActuator{state: make(map[uint8]bool)}
}

func (a *SimActuator) Set(channel uint8, on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state[channel] = on
	return nil
}

// On reports the latched state of one channel.
func (a *SimActuator) On(channel uint8) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state[channel]
}
