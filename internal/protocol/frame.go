package protocol

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// headerLen is version(1) + type(1) + packetId(2) + responseId(2) +
// payloadLen(2), before escaping.
const headerLen = 8

// Frame is one decoded protocol frame. A frame is immutable once built
// and is consumed exactly once by its receiver.
type Frame struct {
	Version    uint8
	Type       PacketType
	PacketID   uint16
	ResponseID uint16
	Payload    []byte
}

// Fields parses the frame payload into its TLV fields.
func (f Frame) Fields() ([]Field, error) {
	return DecodeFields(f.Payload)
}

// Encoder assigns packet ids and builds wire frames. Each link endpoint
// owns exactly one Encoder; ids run 1..127 then wrap through 0.
type Encoder struct {
	mu      sync.Mutex
	counter uint16
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) nextPacketID() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counter = (e.counter + 1) % (MaxPacketID + 1)
	return e.counter
}

// Encode builds one complete v2 wire frame: markers around the escaped
// header+payload+crc region. It returns the wire bytes and the packet id
// assigned from the counter. responseID is 0 for request frames and the
// request's packet id for responses.
func (e *Encoder) Encode(t PacketType, fields []Field, responseID uint16) ([]byte, uint16, error) {
	payload, err := EncodeFields(fields)
	if err != nil {
		return nil, 0, err
	}
	if len(payload) > MaxPayloadLen {
		return nil, 0, ErrPayloadTooLarge
	}

	id := e.nextPacketID()

	body := make([]byte, headerLen+len(payload)+4)
	body[0] = Version
	body[1] = byte(t)
	binary.LittleEndian.PutUint16(body[2:4], id)
	binary.LittleEndian.PutUint16(body[4:6], responseID)
	binary.LittleEndian.PutUint16(body[6:8], uint16(len(payload)))
	copy(body[headerLen:], payload)

	crc := Checksum(body[:headerLen+len(payload)])
	binary.LittleEndian.PutUint32(body[headerLen+len(payload):], crc)

	escaped := Escape(body)
	wire := make([]byte, 0, len(escaped)+4)
	wire = append(wire, StartMark1, StartMark2)
	wire = append(wire, escaped...)
	wire = append(wire, EndMark1, EndMark2)
	return wire, id, nil
}

// Decode parses one complete v2 wire frame, markers included. The input
// is not mutated.
func Decode(wire []byte) (Frame, error) {
	if len(wire) < MinFrameLen {
		return Frame{}, ErrFrameTruncated
	}
	if wire[0] != StartMark1 || wire[1] != StartMark2 {
		return Frame{}, fmt.Errorf("%w: bad start marker", ErrFrameMalformed)
	}
	if wire[len(wire)-2] != EndMark1 || wire[len(wire)-1] != EndMark2 {
		return Frame{}, fmt.Errorf("%w: bad end marker", ErrFrameMalformed)
	}

	body, err := Unescape(wire[2 : len(wire)-2])
	if err != nil {
		return Frame{}, err
	}
	if len(body) < headerLen+4 {
		return Frame{}, ErrFrameTruncated
	}
	if body[0] != Version {
		return Frame{}, fmt.Errorf("%w: version 0x%02x", ErrFrameMalformed, body[0])
	}

	payloadLen := int(binary.LittleEndian.Uint16(body[6:8]))
	if len(body) != headerLen+payloadLen+4 {
		return Frame{}, fmt.Errorf("%w: declared payload length %d", ErrFrameMalformed, payloadLen)
	}

	want := binary.LittleEndian.Uint32(body[headerLen+payloadLen:])
	if got := Checksum(body[:headerLen+payloadLen]); got != want {
		return Frame{}, fmt.Errorf("%w: got 0x%08x want 0x%08x", ErrCrcMismatch, got, want)
	}

	payload := make([]byte, payloadLen)
	copy(payload, body[headerLen:headerLen+payloadLen])
	return Frame{
		Version:    body[0],
		Type:       PacketType(body[1]),
		PacketID:   binary.LittleEndian.Uint16(body[2:4]),
		ResponseID: binary.LittleEndian.Uint16(body[4:6]),
		Payload:    payload,
	}, nil
}
