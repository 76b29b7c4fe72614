// Package thermo holds the domain values exchanged between host and
// device: calendar date/time, alarm thresholds, and temperature log
// entries, plus their TLV wire mappings.
package thermo

import (
	"errors"
	"fmt"

	"github.com/danmuck/thermolink/internal/protocol"
)

var (
	ErrInvalidDate       = errors.New("thermo: invalid date")
	ErrInvalidTime       = errors.New("thermo: invalid time")
	ErrInvalidAlarmRange = errors.New("thermo: alarm low must be below high")
	ErrMissingField      = errors.New("thermo: missing field")
)

// Alarm channel ids, fixed by the hardware.
const (
	ChannelBuzzer uint8 = 0
	ChannelLED    uint8 = 1
)

// Date is an RTC calendar date. Year is two-digit (0-99).
type Date struct {
	Year    uint8
	Month   uint8
	Day     uint8
	Weekday uint8 // 1=Monday .. 7=Sunday
}

func (d Date) Validate() error {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 ||
		d.Weekday < 1 || d.Weekday > 7 || d.Year > 99 {
		return fmt.Errorf("%w: %+v", ErrInvalidDate, d)
	}
	return nil
}

// Time is an RTC wall-clock time.
type Time struct {
	Hour   uint8
	Minute uint8
	Second uint8
}

func (t Time) Validate() error {
	if t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
		return fmt.Errorf("%w: %+v", ErrInvalidTime, t)
	}
	return nil
}

// AlarmConfig is one alarm channel's temperature thresholds. The
// LowTemp < HighTemp invariant is a caller concern, not a wire one.
type AlarmConfig struct {
	ID       uint8
	LowTemp  float32
	HighTemp float32
}

func (a AlarmConfig) Validate() error {
	if a.LowTemp >= a.HighTemp {
		return fmt.Errorf("%w: channel %d: %.1f >= %.1f",
			ErrInvalidAlarmRange, a.ID, a.LowTemp, a.HighTemp)
	}
	return nil
}

// LogEntry is one temperature log sample.
type LogEntry struct {
	Timestamp   uint64 // unix seconds
	Temperature float32
}

// DateFields maps a Date onto its DA payload.
func DateFields(d Date) []protocol.Field {
	return []protocol.Field{
		protocol.NewFieldUint8(protocol.TagYear, d.Year),
		protocol.NewFieldUint8(protocol.TagMonth, d.Month),
		protocol.NewFieldUint8(protocol.TagDay, d.Day),
		protocol.NewFieldUint8(protocol.TagWeekday, d.Weekday),
	}
}

// ParseDate reads a Date from DA fields.
func ParseDate(fields []protocol.Field) (Date, error) {
	var d Date
	for _, dst := range []struct {
		tag string
		p   *uint8
	}{
		{protocol.TagYear, &d.Year},
		{protocol.TagMonth, &d.Month},
		{protocol.TagDay, &d.Day},
		{protocol.TagWeekday, &d.Weekday},
	} {
		f, ok := protocol.GetField(fields, dst.tag)
		if !ok {
			return Date{}, fmt.Errorf("%w: %s", ErrMissingField, dst.tag)
		}
		v, err := f.Uint8()
		if err != nil {
			return Date{}, err
		}
		*dst.p = v
	}
	return d, nil
}

// TimeFields maps a Time onto its DA payload.
func TimeFields(t Time) []protocol.Field {
	return []protocol.Field{
		protocol.NewFieldUint8(protocol.TagHour, t.Hour),
		protocol.NewFieldUint8(protocol.TagMinute, t.Minute),
		protocol.NewFieldUint8(protocol.TagSecond, t.Second),
	}
}

// ParseTime reads a Time from DA fields.
func ParseTime(fields []protocol.Field) (Time, error) {
	var t Time
	for _, dst := range []struct {
		tag string
		p   *uint8
	}{
		{protocol.TagHour, &t.Hour},
		{protocol.TagMinute, &t.Minute},
		{protocol.TagSecond, &t.Second},
	} {
		f, ok := protocol.GetField(fields, dst.tag)
		if !ok {
			return Time{}, fmt.Errorf("%w: %s", ErrMissingField, dst.tag)
		}
		v, err := f.Uint8()
		if err != nil {
			return Time{}, err
		}
		*dst.p = v
	}
	return t, nil
}

// AlarmItemFields maps one alarm config onto an IT item's children.
func AlarmItemFields(a AlarmConfig) []protocol.Field {
	return []protocol.Field{
		protocol.NewFieldUint8(protocol.TagAlarmID, a.ID),
		protocol.NewFieldFloat32(protocol.TagAlarmLow, a.LowTemp),
		protocol.NewFieldFloat32(protocol.TagAlarmHigh, a.HighTemp),
	}
}

// AlarmListField builds the AL field: repeated IT items, one per config.
func AlarmListField(alarms []AlarmConfig) protocol.Field {
	items := make([]protocol.Field, 0, len(alarms))
	for _, a := range alarms {
		items = append(items, protocol.NewFieldNested(protocol.TagAlarmItem, AlarmItemFields(a)))
	}
	return protocol.NewFieldNested(protocol.TagAlarmList, items)
}

// ParseAlarmList reads alarm configs from an AL field's nested items.
func ParseAlarmList(list protocol.Field) ([]AlarmConfig, error) {
	items, err := list.Nested()
	if err != nil {
		return nil, err
	}
	out := make([]AlarmConfig, 0, len(items))
	for _, item := range protocol.CollectFields(items, protocol.TagAlarmItem) {
		fields, err := item.Nested()
		if err != nil {
			return nil, err
		}
		var a AlarmConfig
		idField, ok := protocol.GetField(fields, protocol.TagAlarmID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, protocol.TagAlarmID)
		}
		if a.ID, err = idField.Uint8(); err != nil {
			return nil, err
		}
		lowField, ok := protocol.GetField(fields, protocol.TagAlarmLow)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, protocol.TagAlarmLow)
		}
		if a.LowTemp, err = lowField.Float32(); err != nil {
			return nil, err
		}
		highField, ok := protocol.GetField(fields, protocol.TagAlarmHigh)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, protocol.TagAlarmHigh)
		}
		if a.HighTemp, err = highField.Float32(); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// LogListField builds the LG field: repeated IT items of TS + "T ".
func LogListField(entries []LogEntry) protocol.Field {
	items := make([]protocol.Field, 0, len(entries))
	for _, e := range entries {
		items = append(items, protocol.NewFieldNested(protocol.TagAlarmItem, []protocol.Field{
			protocol.NewFieldUint64(protocol.TagTimestamp, e.Timestamp),
			protocol.NewFieldFloat32(protocol.TagTemperature, e.Temperature),
		}))
	}
	return protocol.NewFieldNested(protocol.TagLogList, items)
}

// ParseLogList reads log entries from an LG field's nested items.
func ParseLogList(list protocol.Field) ([]LogEntry, error) {
	items, err := list.Nested()
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, 0, len(items))
	for _, item := range protocol.CollectFields(items, protocol.TagAlarmItem) {
		fields, err := item.Nested()
		if err != nil {
			return nil, err
		}
		var e LogEntry
		tsField, ok := protocol.GetField(fields, protocol.TagTimestamp)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, protocol.TagTimestamp)
		}
		if e.Timestamp, err = tsField.Uint64(); err != nil {
			return nil, err
		}
		tField, ok := protocol.GetField(fields, protocol.TagTemperature)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, protocol.TagTemperature)
		}
		if e.Temperature, err = tField.Float32(); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
