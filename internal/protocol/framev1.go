package protocol

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Protocol v1 is the legacy layout spoken by the Bluetooth device
// emulator. It differs from v2 in three ways: the CRC32 sits between the
// header and the payload, its domain is type‖packetId‖responseId‖payload
// (version and payloadLen excluded), and it is the standard reflected
// zlib variant. Bodies are never escaped. Kept for compatibility testing
// against emulator firmware; new work targets v2.

const v1HeaderLen = 2 + 1 + 1 + 2 + 2 + 2 + 4 // markers + ver + type + ids + len + crc

func v1Checksum(t PacketType, packetID, responseID uint16, payload []byte) uint32 {
	buf := make([]byte, 0, 5+len(payload))
	buf = append(buf, byte(t))
	buf = binary.LittleEndian.AppendUint16(buf, packetID)
	buf = binary.LittleEndian.AppendUint16(buf, responseID)
	buf = append(buf, payload...)
	return crc32.ChecksumIEEE(buf)
}

// EncodeV1 builds one complete v1 wire frame using the encoder's shared
// packet id counter.
func (e *Encoder) EncodeV1(t PacketType, fields []Field, responseID uint16) ([]byte, uint16, error) {
	payload, err := EncodeFields(fields)
	if err != nil {
		return nil, 0, err
	}
	if len(payload) > MaxPayloadLen {
		return nil, 0, ErrPayloadTooLarge
	}

	id := e.nextPacketID()
	crc := v1Checksum(t, id, responseID, payload)

	wire := make([]byte, 0, v1HeaderLen+len(payload)+2)
	wire = append(wire, StartMark1, StartMark2, VersionV1, byte(t))
	wire = binary.LittleEndian.AppendUint16(wire, id)
	wire = binary.LittleEndian.AppendUint16(wire, responseID)
	wire = binary.LittleEndian.AppendUint16(wire, uint16(len(payload)))
	wire = binary.LittleEndian.AppendUint32(wire, crc)
	wire = append(wire, payload...)
	wire = append(wire, EndMark1, EndMark2)
	return wire, id, nil
}

// DecodeV1 parses one complete v1 wire frame, markers included.
func DecodeV1(wire []byte) (Frame, error) {
	if len(wire) < MinFrameLen {
		return Frame{}, ErrFrameTruncated
	}
	if wire[0] != StartMark1 || wire[1] != StartMark2 {
		return Frame{}, fmt.Errorf("%w: bad start marker", ErrFrameMalformed)
	}
	if wire[2] != VersionV1 {
		return Frame{}, fmt.Errorf("%w: version 0x%02x", ErrFrameMalformed, wire[2])
	}

	t := PacketType(wire[3])
	packetID := binary.LittleEndian.Uint16(wire[4:6])
	responseID := binary.LittleEndian.Uint16(wire[6:8])
	payloadLen := int(binary.LittleEndian.Uint16(wire[8:10]))
	want := binary.LittleEndian.Uint32(wire[10:14])

	if len(wire) != v1HeaderLen+payloadLen+2 {
		return Frame{}, fmt.Errorf("%w: declared payload length %d", ErrFrameMalformed, payloadLen)
	}
	if wire[len(wire)-2] != EndMark1 || wire[len(wire)-1] != EndMark2 {
		return Frame{}, fmt.Errorf("%w: bad end marker", ErrFrameMalformed)
	}

	payload := make([]byte, payloadLen)
	copy(payload, wire[14:14+payloadLen])
	if got := v1Checksum(t, packetID, responseID, payload); got != want {
		return Frame{}, fmt.Errorf("%w: got 0x%08x want 0x%08x", ErrCrcMismatch, got, want)
	}

	return Frame{
		Version:    VersionV1,
		Type:       t,
		PacketID:   packetID,
		ResponseID: responseID,
		Payload:    payload,
	}, nil
}
