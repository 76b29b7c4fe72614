package thermo

import (
	"errors"
	"testing"
)

func TestDateRoundTrip(t *testing.T) {
	d := Date{Year: 25, Month: 12, Day: 31, Weekday: 3}
	got, err := ParseDate(DateFields(d))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != d {
		t.Fatalf("got %+v want %+v", got, d)
	}
}

func TestDateValidate(t *testing.T) {
	bad := []Date{
		{Year: 25, Month: 0, Day: 1, Weekday: 1},
		{Year: 25, Month: 13, Day: 1, Weekday: 1},
		{Year: 25, Month: 1, Day: 0, Weekday: 1},
		{Year: 25, Month: 1, Day: 32, Weekday: 1},
		{Year: 25, Month: 1, Day: 1, Weekday: 0},
		{Year: 25, Month: 1, Day: 1, Weekday: 8},
		{Year: 100, Month: 1, Day: 1, Weekday: 1},
	}
	for _, d := range bad {
		if err := d.Validate(); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%+v: expected ErrInvalidDate, got %v", d, err)
		}
	}
	if err := (Date{Year: 25, Month: 6, Day: 15, Weekday: 7}).Validate(); err != nil {
		t.Fatalf("valid date rejected: %v", err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	tm := Time{Hour: 23, Minute: 59, Second: 58}
	got, err := ParseTime(TimeFields(tm))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != tm {
		t.Fatalf("got %+v want %+v", got, tm)
	}
}

func TestTimeValidate(t *testing.T) {
	for _, tm := range []Time{{Hour: 24}, {Minute: 60}, {Second: 60}} {
		if err := tm.Validate(); !errors.Is(err, ErrInvalidTime) {
			t.Fatalf("%+v: expected ErrInvalidTime, got %v", tm, err)
		}
	}
}

func TestAlarmListRoundTrip(t *testing.T) {
	alarms := []AlarmConfig{
		{ID: ChannelBuzzer, LowTemp: 10, HighTemp: 30},
		{ID: ChannelLED, LowTemp: 15, HighTemp: 35},
	}
	got, err := ParseAlarmList(AlarmListField(alarms))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || got[0] != alarms[0] || got[1] != alarms[1] {
		t.Fatalf("got %+v", got)
	}
}

func TestAlarmValidate(t *testing.T) {
	a := AlarmConfig{ID: 0, LowTemp: 30, HighTemp: 10}
	if err := a.Validate(); !errors.Is(err, ErrInvalidAlarmRange) {
		t.Fatalf("expected ErrInvalidAlarmRange, got %v", err)
	}
	a = AlarmConfig{ID: 0, LowTemp: 10, HighTemp: 10}
	if err := a.Validate(); !errors.Is(err, ErrInvalidAlarmRange) {
		t.Fatalf("equal bounds accepted")
	}
}

func TestLogListRoundTrip(t *testing.T) {
	entries := []LogEntry{
		{Timestamp: 1500, Temperature: 22.5},
		{Timestamp: 2500, Temperature: 23.0},
	}
	got, err := ParseLogList(LogListField(entries))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || got[0] != entries[0] || got[1] != entries[1] {
		t.Fatalf("got %+v", got)
	}
}

func TestLogListEmpty(t *testing.T) {
	got, err := ParseLogList(LogListField(nil))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}
