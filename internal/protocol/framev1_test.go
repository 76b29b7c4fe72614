package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"
)

func TestFrameV1RoundTrip(t *testing.T) {
	enc := NewEncoder()
	fields := []Field{
		NewFieldString(TagInstruction, CmdGetTemp),
		NewFieldUint8(TagStatus, uint8(StatusOK)),
		NewFieldNested(TagData, []Field{NewFieldFloat32(TagTemperature, 25.0)}),
	}
	wire, id, err := enc.EncodeV1(DeviceResponse, fields, 3)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	frame, err := DecodeV1(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Version != VersionV1 || frame.Type != DeviceResponse {
		t.Fatalf("header: %+v", frame)
	}
	if frame.PacketID != id || frame.ResponseID != 3 {
		t.Fatalf("ids: %+v", frame)
	}
	want, _ := EncodeFields(fields)
	if !bytes.Equal(frame.Payload, want) {
		t.Fatalf("payload mismatch")
	}
}

func TestFrameV1Layout(t *testing.T) {
	enc := NewEncoder()
	wire, _, err := enc.EncodeV1(HostRequest, pingFields(), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// CRC sits at bytes 10..13, before the payload, and is the standard
	// reflected variant over type‖packetId‖responseId‖payload.
	payload := wire[14 : len(wire)-2]
	domain := append([]byte{0x00, 0x01, 0x00, 0x00, 0x00}, payload...)
	want := crc32.ChecksumIEEE(domain)
	got := binary.LittleEndian.Uint32(wire[10:14])
	if got != want {
		t.Fatalf("crc: got %08x want %08x", got, want)
	}
	if wire[2] != VersionV1 {
		t.Fatalf("version byte: %02x", wire[2])
	}
}

func TestFrameV1CorruptPayload(t *testing.T) {
	enc := NewEncoder()
	wire, _, err := enc.EncodeV1(HostRequest, pingFields(), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	wire[15] ^= 0xFF
	if _, err := DecodeV1(wire); !errors.Is(err, ErrCrcMismatch) {
		t.Fatalf("expected ErrCrcMismatch, got %v", err)
	}
}

func TestFrameV1LengthMismatch(t *testing.T) {
	enc := NewEncoder()
	wire, _, err := enc.EncodeV1(HostRequest, pingFields(), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	wire[8] = 0xFF
	if _, err := DecodeV1(wire); !errors.Is(err, ErrFrameMalformed) {
		t.Fatalf("expected ErrFrameMalformed, got %v", err)
	}
}

func TestChecksumVariantsDiffer(t *testing.T) {
	// The v2 hardware variant must not be the zlib variant or the CRC
	// would pass against the wrong firmware.
	data := []byte("thermolink")
	if Checksum(data) == crc32.ChecksumIEEE(data) {
		t.Fatalf("v2 checksum unexpectedly matches the reflected variant")
	}
}
