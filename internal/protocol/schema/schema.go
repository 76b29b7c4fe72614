// Package schema is the closed command catalog: for each 4-character
// instruction, the DA fields its request and response may carry. The
// catalog is defined at process start and never mutated.
package schema

import (
	"fmt"
	"sort"

	"github.com/danmuck/thermolink/internal/protocol"
)

// Requirement declares one DA field within a command's request or
// response payload.
type Requirement struct {
	Tag      string
	Kind     protocol.Kind
	Required bool
}

// Command is one catalog entry.
type Command struct {
	Name     string
	Request  []Requirement
	Response []Requirement
}

// ValidationError reports a DA payload that does not satisfy its schema.
type ValidationError struct {
	Command string
	Tag     string
	Reason  string
}

func (e ValidationError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("schema: %s: %s", e.Command, e.Reason)
	}
	return fmt.Sprintf("schema: %s field %q: %s", e.Command, e.Tag, e.Reason)
}

var catalog = map[string]Command{
	protocol.CmdPing: {Name: protocol.CmdPing},
	protocol.CmdGetTemp: {
		Name: protocol.CmdGetTemp,
		Response: []Requirement{
			{protocol.TagTemperature, protocol.KindF32, true},
		},
	},
	protocol.CmdGetDate: {
		Name: protocol.CmdGetDate,
		Response: []Requirement{
			{protocol.TagYear, protocol.KindU8, true},
			{protocol.TagMonth, protocol.KindU8, true},
			{protocol.TagDay, protocol.KindU8, true},
			{protocol.TagWeekday, protocol.KindU8, true},
		},
	},
	protocol.CmdGetTime: {
		Name: protocol.CmdGetTime,
		Response: []Requirement{
			{protocol.TagHour, protocol.KindU8, true},
			{protocol.TagMinute, protocol.KindU8, true},
			{protocol.TagSecond, protocol.KindU8, true},
		},
	},
	protocol.CmdSetDate: {
		Name: protocol.CmdSetDate,
		Request: []Requirement{
			{protocol.TagYear, protocol.KindU8, true},
			{protocol.TagMonth, protocol.KindU8, true},
			{protocol.TagDay, protocol.KindU8, true},
			{protocol.TagWeekday, protocol.KindU8, true},
		},
	},
	protocol.CmdSetTime: {
		Name: protocol.CmdSetTime,
		Request: []Requirement{
			{protocol.TagHour, protocol.KindU8, true},
			{protocol.TagMinute, protocol.KindU8, true},
			{protocol.TagSecond, protocol.KindU8, true},
		},
	},
	protocol.CmdGetAlarms: {
		Name: protocol.CmdGetAlarms,
		Response: []Requirement{
			{protocol.TagAlarmList, protocol.KindNested, true},
		},
	},
	protocol.CmdSetAlarms: {
		Name: protocol.CmdSetAlarms,
		Request: []Requirement{
			{protocol.TagAlarmList, protocol.KindNested, true},
		},
	},
	protocol.CmdGetLog: {
		Name: protocol.CmdGetLog,
		Request: []Requirement{
			{protocol.TagTimeStart, protocol.KindU64, true},
			{protocol.TagTimeEnd, protocol.KindU64, true},
			{protocol.TagMaxCount, protocol.KindU16, false},
		},
		Response: []Requirement{
			{protocol.TagLogList, protocol.KindNested, true},
		},
	},
	protocol.CmdSetLED:      {Name: protocol.CmdSetLED},
	protocol.CmdResetLED:    {Name: protocol.CmdResetLED},
	protocol.CmdSetBuzzer:   {Name: protocol.CmdSetBuzzer},
	protocol.CmdResetBuzzer: {Name: protocol.CmdResetBuzzer},
}

// Lookup returns the catalog entry for an instruction string.
func Lookup(name string) (Command, bool) {
	cmd, ok := catalog[name]
	return cmd, ok
}

// Names lists every catalog instruction in sorted order.
func Names() []string {
	out := make([]string, 0, len(catalog))
	for name := range catalog {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidateRequest checks request DA fields against the command schema.
func (c Command) ValidateRequest(fields []protocol.Field) error {
	return c.validate(c.Request, fields)
}

// ValidateResponse checks response DA fields against the command schema.
func (c Command) ValidateResponse(fields []protocol.Field) error {
	return c.validate(c.Response, fields)
}

func (c Command) validate(reqs []Requirement, fields []protocol.Field) error {
	for _, req := range reqs {
		f, ok := protocol.GetField(fields, req.Tag)
		if !ok {
			if req.Required {
				return ValidationError{Command: c.Name, Tag: req.Tag, Reason: "missing required field"}
			}
			continue
		}
		v, err := f.Decode()
		if err != nil {
			return ValidationError{Command: c.Name, Tag: req.Tag, Reason: err.Error()}
		}
		// U64 tags narrowed by the smallest-width rule decode as U64
		// already; only a genuine kind clash is an error.
		if v.Kind != req.Kind {
			return ValidationError{Command: c.Name, Tag: req.Tag,
				Reason: fmt.Sprintf("kind %d, want %d", v.Kind, req.Kind)}
		}
	}
	return nil
}
