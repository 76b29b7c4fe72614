package device

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/thermolink/internal/observability"
	"github.com/danmuck/thermolink/internal/protocol"
	"github.com/danmuck/thermolink/internal/protocol/schema"
)

// Dispatcher turns inbound HOST_REQUEST frames into reply wire bytes.
// One dispatcher serves one link; replies echo the request packet id in
// their responseId header field.
type Dispatcher struct {
	state *State
	enc   *protocol.Encoder
	log   zerolog.Logger
}

func NewDispatcher(state *State) *Dispatcher {
	observability.Register()
	return &Dispatcher{
		state: state,
		enc:   protocol.NewEncoder(),
		log:   log.With().Str("component", "dispatcher").Logger(),
	}
}

// HandleFrame answers one decoded inbound frame. Every inbound frame
// gets exactly one reply: a DEVICE_RESPONSE when the instruction ran,
// a DEVICE_ERROR when the frame itself could not be served.
func (d *Dispatcher) HandleFrame(f protocol.Frame) ([]byte, error) {
	if f.Type != protocol.HostRequest {
		d.log.Warn().Uint8("type", uint8(f.Type)).Msg("non-request frame")
		return d.errorReply(protocol.ErrCodeUnexpectedResponse, "not a request frame", f.PacketID)
	}

	fields, err := f.Fields()
	if err != nil {
		d.log.Warn().Err(err).Msg("undecodable request payload")
		return d.errorReply(protocol.ErrCodeCorrupt, "bad request payload", f.PacketID)
	}

	in, ok := protocol.GetField(fields, protocol.TagInstruction)
	if !ok {
		return d.errorReply(protocol.ErrCodeUnknown, "missing instruction", f.PacketID)
	}
	command := in.Text()
	cmd, ok := schema.Lookup(command)
	if !ok {
		d.log.Warn().Str("command", command).Msg("unknown instruction")
		return d.errorReply(protocol.ErrCodeUnknown, "unknown instruction "+command, f.PacketID)
	}

	var args []protocol.Field
	if da, ok := protocol.GetField(fields, protocol.TagData); ok {
		if args, err = da.Nested(); err != nil {
			return d.errorReply(protocol.ErrCodeCorrupt, "bad request data", f.PacketID)
		}
	}

	var (
		result []protocol.Field
		status protocol.Status
	)
	if err := cmd.ValidateRequest(args); err != nil {
		d.log.Debug().Err(err).Str("command", command).Msg("request rejected")
		status = protocol.StatusInvalidParam
	} else {
		result, status = d.run(command, args)
	}

	d.log.Debug().Str("command", command).Uint8("status", uint8(status)).Msg("command handled")
	observability.RecordDeviceCommand(command, uint8(status))

	reply := []protocol.Field{
		protocol.NewFieldString(protocol.TagInstruction, command),
		protocol.NewFieldUint8(protocol.TagStatus, uint8(status)),
	}
	if len(result) > 0 {
		reply = append(reply, protocol.NewFieldNested(protocol.TagData, result))
	}
	wire, _, err := d.enc.Encode(protocol.DeviceResponse, reply, f.PacketID)
	return wire, err
}

// run executes the handler with a panic guard. A handler bug must cost
// one INTERNAL_ERROR response, never the link.
func (d *Dispatcher) run(command string, args []protocol.Field) (result []protocol.Field, status protocol.Status) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("command", command).Interface("panic", r).Msg("handler panicked")
			result, status = nil, protocol.StatusInternalError
		}
	}()
	h, ok := handlers[command]
	if !ok {
		// Catalog and handler table must agree; a gap is a build defect.
		return nil, protocol.StatusInternalError
	}
	return h(d.state, args)
}

// CorruptReply builds the DEVICE_ERROR frame for an inbound frame that
// failed CRC or framing. No packet id survives corruption, so the
// responseId is zero.
func (d *Dispatcher) CorruptReply(desc string) ([]byte, error) {
	return d.errorReply(protocol.ErrCodeCorrupt, desc, 0)
}

func (d *Dispatcher) errorReply(code protocol.ErrorCode, desc string, responseID uint16) ([]byte, error) {
	fields := []protocol.Field{
		protocol.NewFieldUint8(protocol.TagErrorCode, uint8(code)),
		protocol.NewFieldString(protocol.TagErrorDesc, desc),
	}
	wire, _, err := d.enc.Encode(protocol.DeviceError, fields, responseID)
	return wire, err
}
