package host

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/thermolink/internal/observability"
	"github.com/danmuck/thermolink/internal/protocol"
)

var (
	ErrRequestAlreadyInFlight = errors.New("host: request already in flight")
	ErrRequestTimeout         = errors.New("host: request timed out")
	ErrDisconnected           = errors.New("host: transport disconnected")
)

// RemoteError is a DEVICE_ERROR frame surfaced to the caller.
type RemoteError struct {
	Code protocol.ErrorCode
	Desc string
}

func (e RemoteError) Error() string {
	if e.Desc == "" {
		return fmt.Sprintf("host: device error 0x%02x", uint8(e.Code))
	}
	return fmt.Sprintf("host: device error 0x%02x: %s", uint8(e.Code), e.Desc)
}

// Result is the outcome of one request. Exactly one Result is delivered
// per Send, on the returned channel.
type Result struct {
	Status protocol.Status
	Fields []protocol.Field // decoded DA contents, nil when the response carried none
	Frame  protocol.Frame
	Err    error
}

type pendingRequest struct {
	command  string
	packetID uint16
	timer    *time.Timer
	done     chan Result
}

// Correlator matches asynchronous device responses back to the requests
// that caused them. At most one request per command key may be in flight;
// a second Send for the same key fails rather than replacing the first.
type Correlator struct {
	mu      sync.Mutex
	w       io.Writer
	enc     *protocol.Encoder
	pending map[string]*pendingRequest
	closed  bool
	log     zerolog.Logger
}

func NewCorrelator(w io.Writer) *Correlator {
	return &Correlator{
		w:       w,
		enc:     protocol.NewEncoder(),
		pending: make(map[string]*pendingRequest),
		log:     log.With().Str("component", "correlator").Logger(),
	}
}

// Send encodes one HOST_REQUEST, writes it, and arms the timeout. The
// returned channel receives exactly one Result: the matched response, a
// timeout, or a disconnect.
func (c *Correlator) Send(command string, da []protocol.Field, timeout time.Duration) (<-chan Result, error) {
	fields := []protocol.Field{
		protocol.NewFieldString(protocol.TagInstruction, command),
		protocol.NewFieldNested(protocol.TagData, da),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrDisconnected
	}
	if _, exists := c.pending[command]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRequestAlreadyInFlight, command)
	}
	wire, id, err := c.enc.Encode(protocol.HostRequest, fields, 0)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	p := &pendingRequest{
		command:  command,
		packetID: id,
		done:     make(chan Result, 1),
	}
	c.pending[command] = p
	p.timer = time.AfterFunc(timeout, func() { c.expire(command, p) })
	c.mu.Unlock()

	if _, err := c.w.Write(wire); err != nil {
		c.remove(command, p)
		return nil, fmt.Errorf("host: write request: %w", err)
	}
	c.log.Debug().Str("command", command).Uint16("packet_id", id).Msg("request sent")
	return p.done, nil
}

// InFlight reports whether a request for command is awaiting its response.
func (c *Correlator) InFlight(command string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[command]
	return ok
}

// HandleFrame resolves a decoded frame against the pending table. Frames
// that match nothing are logged and dropped; a late response must never
// be misapplied to a newer request.
func (c *Correlator) HandleFrame(f protocol.Frame) {
	switch f.Type {
	case protocol.DeviceError:
		c.handleErrorFrame(f)
		return
	case protocol.DeviceResponse:
	default:
		c.log.Warn().Uint8("type", uint8(f.Type)).Msg("unexpected frame type")
		return
	}

	fields, err := f.Fields()
	if err != nil {
		c.log.Warn().Err(err).Msg("undecodable response payload")
		return
	}
	in, ok := protocol.GetField(fields, protocol.TagInstruction)
	if !ok {
		c.log.Warn().Msg("response without instruction field")
		return
	}
	command := in.Text()

	c.mu.Lock()
	p, ok := c.pending[command]
	if !ok {
		c.mu.Unlock()
		c.log.Debug().Str("command", command).Msg("late or unsolicited response ignored")
		return
	}
	delete(c.pending, command)
	c.mu.Unlock()
	p.timer.Stop()

	if f.ResponseID != p.packetID {
		c.log.Warn().
			Uint16("response_id", f.ResponseID).
			Uint16("packet_id", p.packetID).
			Str("command", command).
			Msg("response id does not echo request")
	}

	res := Result{Frame: f}
	if st, ok := protocol.GetField(fields, protocol.TagStatus); ok {
		v, err := st.Uint8()
		if err != nil {
			res.Err = err
		}
		res.Status = protocol.Status(v)
	}
	if res.Err == nil {
		if da, ok := protocol.GetField(fields, protocol.TagData); ok {
			res.Fields, res.Err = da.Nested()
		}
	}
	outcome := "ok"
	if res.Err != nil {
		outcome = "decode_error"
	}
	observability.RecordHostRequest(command, outcome)
	p.done <- res
}

func (c *Correlator) handleErrorFrame(f protocol.Frame) {
	remote := RemoteError{Code: protocol.ErrCodeUnknown}
	if fields, err := f.Fields(); err == nil {
		if ec, ok := protocol.GetField(fields, protocol.TagErrorCode); ok {
			if v, err := ec.Uint8(); err == nil {
				remote.Code = protocol.ErrorCode(v)
			}
		}
		if ed, ok := protocol.GetField(fields, protocol.TagErrorDesc); ok {
			remote.Desc = ed.Text()
		}
	}

	// Error frames carry no instruction; correlate by the echoed packet id.
	c.mu.Lock()
	var match *pendingRequest
	for _, p := range c.pending {
		if p.packetID == f.ResponseID {
			match = p
			break
		}
	}
	if match == nil {
		c.mu.Unlock()
		c.log.Warn().Uint16("response_id", f.ResponseID).Str("error", remote.Error()).Msg("unmatched device error")
		return
	}
	delete(c.pending, match.command)
	c.mu.Unlock()
	match.timer.Stop()

	observability.RecordHostRequest(match.command, "device_error")
	match.done <- Result{Err: remote}
}

func (c *Correlator) expire(command string, p *pendingRequest) {
	c.mu.Lock()
	current, ok := c.pending[command]
	if !ok || current != p {
		c.mu.Unlock()
		return
	}
	delete(c.pending, command)
	c.mu.Unlock()

	c.log.Debug().Str("command", command).Msg("request timed out")
	observability.RecordHostRequest(command, "timeout")
	p.done <- Result{Err: fmt.Errorf("%w: %s", ErrRequestTimeout, command)}
}

func (c *Correlator) remove(command string, p *pendingRequest) {
	c.mu.Lock()
	if current, ok := c.pending[command]; ok && current == p {
		delete(c.pending, command)
	}
	c.mu.Unlock()
	p.timer.Stop()
}

// Close fails every pending request with ErrDisconnected. No entry may
// outlive its transport; further Sends are rejected.
func (c *Correlator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	dropped := make([]*pendingRequest, 0, len(c.pending))
	for _, p := range c.pending {
		dropped = append(dropped, p)
	}
	c.pending = make(map[string]*pendingRequest)
	c.mu.Unlock()

	for _, p := range dropped {
		p.timer.Stop()
		observability.RecordHostRequest(p.command, "disconnected")
		p.done <- Result{Err: ErrDisconnected}
	}
}
