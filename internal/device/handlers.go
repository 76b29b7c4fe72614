package device

import (
	"github.com/danmuck/thermolink/internal/protocol"
	"github.com/danmuck/thermolink/internal/thermo"
)

// Handler executes one instruction against device state. It returns the
// response DA fields and the status for the ST field.
type Handler func(*State, []protocol.Field) ([]protocol.Field, protocol.Status)

var handlers = map[string]Handler{
	protocol.CmdPing:        handlePing,
	protocol.CmdGetTemp:     handleGetTemp,
	protocol.CmdGetDate:     handleGetDate,
	protocol.CmdGetTime:     handleGetTime,
	protocol.CmdSetDate:     handleSetDate,
	protocol.CmdSetTime:     handleSetTime,
	protocol.CmdGetAlarms:   handleGetAlarms,
	protocol.CmdSetAlarms:   handleSetAlarms,
	protocol.CmdGetLog:      handleGetLog,
	protocol.CmdSetLED:      actuatorHandler(thermo.ChannelLED, true),
	protocol.CmdResetLED:    actuatorHandler(thermo.ChannelLED, false),
	protocol.CmdSetBuzzer:   actuatorHandler(thermo.ChannelBuzzer, true),
	protocol.CmdResetBuzzer: actuatorHandler(thermo.ChannelBuzzer, false),
}

func handlePing(*State, []protocol.Field) ([]protocol.Field, protocol.Status) {
	return nil, protocol.StatusOK
}

// handleGetTemp reads the probe, logs the sample, and re-evaluates the
// alarm channels against it before answering.
func handleGetTemp(s *State, _ []protocol.Field) ([]protocol.Field, protocol.Status) {
	temp, err := s.sensor.ReadTemperature()
	if err != nil {
		return nil, protocol.StatusSensorError
	}
	s.RecordSample(temp)
	if err := s.CheckAlarms(temp); err != nil {
		return nil, protocol.StatusInternalError
	}
	return []protocol.Field{
		protocol.NewFieldFloat32(protocol.TagTemperature, temp),
	}, protocol.StatusOK
}

func handleGetDate(s *State, _ []protocol.Field) ([]protocol.Field, protocol.Status) {
	d, _ := s.clock.Now()
	return thermo.DateFields(d), protocol.StatusOK
}

func handleGetTime(s *State, _ []protocol.Field) ([]protocol.Field, protocol.Status) {
	_, t := s.clock.Now()
	return thermo.TimeFields(t), protocol.StatusOK
}

func handleSetDate(s *State, args []protocol.Field) ([]protocol.Field, protocol.Status) {
	d, err := thermo.ParseDate(args)
	if err != nil {
		return nil, protocol.StatusInvalidParam
	}
	if err := d.Validate(); err != nil {
		return nil, protocol.StatusInvalidParam
	}
	if err := s.clock.SetDate(d); err != nil {
		return nil, protocol.StatusInternalError
	}
	return nil, protocol.StatusOK
}

func handleSetTime(s *State, args []protocol.Field) ([]protocol.Field, protocol.Status) {
	t, err := thermo.ParseTime(args)
	if err != nil {
		return nil, protocol.StatusInvalidParam
	}
	if err := t.Validate(); err != nil {
		return nil, protocol.StatusInvalidParam
	}
	if err := s.clock.SetTime(t); err != nil {
		return nil, protocol.StatusInternalError
	}
	return nil, protocol.StatusOK
}

func handleGetAlarms(s *State, _ []protocol.Field) ([]protocol.Field, protocol.Status) {
	return []protocol.Field{thermo.AlarmListField(s.Alarms())}, protocol.StatusOK
}

func handleSetAlarms(s *State, args []protocol.Field) ([]protocol.Field, protocol.Status) {
	list, ok := protocol.GetField(args, protocol.TagAlarmList)
	if !ok {
		return nil, protocol.StatusInvalidParam
	}
	alarms, err := thermo.ParseAlarmList(list)
	if err != nil {
		return nil, protocol.StatusInvalidParam
	}
	for _, a := range alarms {
		if a.ID != thermo.ChannelBuzzer && a.ID != thermo.ChannelLED {
			return nil, protocol.StatusInvalidParam
		}
		if err := a.Validate(); err != nil {
			return nil, protocol.StatusInvalidParam
		}
	}
	for _, a := range alarms {
		s.SetAlarm(a)
	}
	return nil, protocol.StatusOK
}

// defaultLogLimit caps a glog response when the request omits MX.
const defaultLogLimit = 100

func handleGetLog(s *State, args []protocol.Field) ([]protocol.Field, protocol.Status) {
	startField, ok := protocol.GetField(args, protocol.TagTimeStart)
	if !ok {
		return nil, protocol.StatusInvalidParam
	}
	endField, ok := protocol.GetField(args, protocol.TagTimeEnd)
	if !ok {
		return nil, protocol.StatusInvalidParam
	}
	start, err := startField.Uint64()
	if err != nil {
		return nil, protocol.StatusInvalidParam
	}
	end, err := endField.Uint64()
	if err != nil {
		return nil, protocol.StatusInvalidParam
	}

	limit := defaultLogLimit
	if mxField, ok := protocol.GetField(args, protocol.TagMaxCount); ok {
		mx, err := mxField.Uint16()
		if err != nil || mx == 0 {
			return nil, protocol.StatusInvalidParam
		}
		limit = int(mx)
	}

	entries := s.SelectLog(start, end, limit)
	return []protocol.Field{thermo.LogListField(entries)}, protocol.StatusOK
}

func actuatorHandler(channel uint8, on bool) Handler {
	return func(s *State, _ []protocol.Field) ([]protocol.Field, protocol.Status) {
		if err := s.act.Set(channel, on); err != nil {
			return nil, protocol.StatusInternalError
		}
		return nil, protocol.StatusOK
	}
}
