package device

import (
	"testing"

	"github.com/danmuck/thermolink/internal/testutil/testlog"
	"github.com/danmuck/thermolink/internal/thermo"
)

func TestLogRingEvictsOldest(t *testing.T) {
	testlog.Start(t)
	r := NewLogRing(3)
	for i := uint64(1); i <= 5; i++ {
		r.Add(thermo.LogEntry{Timestamp: i, Temperature: float32(i)})
	}
	if r.Len() != 3 {
		t.Fatalf("len %d", r.Len())
	}
	got := r.Select(0, 10, 10)
	if len(got) != 3 || got[0].Timestamp != 3 || got[2].Timestamp != 5 {
		t.Fatalf("got %+v", got)
	}
}

func TestLogRingSelectBoundsInclusive(t *testing.T) {
	testlog.Start(t)
	r := NewLogRing(10)
	for _, ts := range []uint64{999, 1000, 1500, 2000, 2001} {
		r.Add(thermo.LogEntry{Timestamp: ts})
	}
	got := r.Select(1000, 2000, 10)
	if len(got) != 3 || got[0].Timestamp != 1000 || got[2].Timestamp != 2000 {
		t.Fatalf("got %+v", got)
	}
}

func TestLogRingSelectCap(t *testing.T) {
	testlog.Start(t)
	r := NewLogRing(10)
	for i := uint64(1); i <= 5; i++ {
		r.Add(thermo.LogEntry{Timestamp: i})
	}
	got := r.Select(0, 10, 2)
	if len(got) != 2 || got[0].Timestamp != 1 || got[1].Timestamp != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestCheckAlarmsBands(t *testing.T) {
	testlog.Start(t)
	state, act := testState(nil)

	// Inside both factory bands: everything off.
	if err := state.CheckAlarms(20); err != nil {
		t.Fatalf("check: %v", err)
	}
	if act.On(thermo.ChannelBuzzer) || act.On(thermo.ChannelLED) {
		t.Fatal("channels on inside bands")
	}

	// 12° is below the LED band (15-35) but inside the buzzer band (10-30).
	if err := state.CheckAlarms(12); err != nil {
		t.Fatalf("check: %v", err)
	}
	if act.On(thermo.ChannelBuzzer) {
		t.Fatal("buzzer on inside its band")
	}
	if !act.On(thermo.ChannelLED) {
		t.Fatal("led off below its band")
	}

	// Back inside: the channel clears.
	if err := state.CheckAlarms(20); err != nil {
		t.Fatalf("check: %v", err)
	}
	if act.On(thermo.ChannelLED) {
		t.Fatal("led not cleared")
	}
}

func TestSimClockSetDateAndTime(t *testing.T) {
	testlog.Start(t)
	c := NewSimClock()
	if err := c.SetDate(thermo.Date{Year: 30, Month: 7, Day: 4, Weekday: 4}); err != nil {
		t.Fatalf("set date: %v", err)
	}
	if err := c.SetTime(thermo.Time{Hour: 12, Minute: 30, Second: 0}); err != nil {
		t.Fatalf("set time: %v", err)
	}
	d, tm := c.Now()
	if d.Year != 30 || d.Month != 7 || d.Day != 4 {
		t.Fatalf("date %+v", d)
	}
	if tm.Hour != 12 || tm.Minute != 30 {
		t.Fatalf("time %+v", tm)
	}
}
