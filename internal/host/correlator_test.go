package host

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/thermolink/internal/protocol"
	"github.com/danmuck/thermolink/internal/testutil/testlog"
)

func lastSentFrame(t *testing.T, buf *bytes.Buffer) protocol.Frame {
	t.Helper()
	f, err := protocol.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode sent frame: %v", err)
	}
	return f
}

func deviceResponse(t *testing.T, command string, st protocol.Status, da []protocol.Field, responseID uint16) protocol.Frame {
	t.Helper()
	fields := []protocol.Field{
		protocol.NewFieldString(protocol.TagInstruction, command),
		protocol.NewFieldUint8(protocol.TagStatus, uint8(st)),
		protocol.NewFieldNested(protocol.TagData, da),
	}
	wire, _, err := protocol.NewEncoder().Encode(protocol.DeviceResponse, fields, responseID)
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	f, err := protocol.Decode(wire)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return f
}

func TestSendAndResolve(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	c := NewCorrelator(&buf)

	ch, err := c.Send(protocol.CmdGetTemp, nil, time.Second)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !c.InFlight(protocol.CmdGetTemp) {
		t.Fatal("request not tracked")
	}

	req := lastSentFrame(t, &buf)
	if req.Type != protocol.HostRequest {
		t.Fatalf("sent type 0x%02x", uint8(req.Type))
	}

	da := []protocol.Field{protocol.NewFieldFloat32(protocol.TagTemperature, 21.5)}
	c.HandleFrame(deviceResponse(t, protocol.CmdGetTemp, protocol.StatusOK, da, req.PacketID))

	select {
	case res := <-ch:
		if res.Err != nil {
			t.Fatalf("result error: %v", res.Err)
		}
		if res.Status != protocol.StatusOK {
			t.Fatalf("status 0x%02x", uint8(res.Status))
		}
		f, ok := protocol.GetField(res.Fields, protocol.TagTemperature)
		if !ok {
			t.Fatal("missing temperature field")
		}
		if v, err := f.Float32(); err != nil || v != 21.5 {
			t.Fatalf("temperature %v err %v", v, err)
		}
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
	if c.InFlight(protocol.CmdGetTemp) {
		t.Fatal("resolved request still pending")
	}
}

func TestDuplicateInFlightRejected(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	c := NewCorrelator(&buf)

	if _, err := c.Send(protocol.CmdPing, nil, time.Second); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := c.Send(protocol.CmdPing, nil, time.Second); !errors.Is(err, ErrRequestAlreadyInFlight) {
		t.Fatalf("expected ErrRequestAlreadyInFlight, got %v", err)
	}
	// A different command is an independent slot.
	if _, err := c.Send(protocol.CmdGetTemp, nil, time.Second); err != nil {
		t.Fatalf("second command: %v", err)
	}
}

func TestRequestTimeout(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	c := NewCorrelator(&buf)

	ch, err := c.Send(protocol.CmdPing, nil, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	req := lastSentFrame(t, &buf)

	select {
	case res := <-ch:
		if !errors.Is(res.Err, ErrRequestTimeout) {
			t.Fatalf("expected ErrRequestTimeout, got %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout never delivered")
	}

	// The late response must be ignored, not delivered as a second result.
	c.HandleFrame(deviceResponse(t, protocol.CmdPing, protocol.StatusOK, nil, req.PacketID))
	select {
	case res := <-ch:
		t.Fatalf("second result delivered: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeviceErrorCorrelatedByPacketID(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	c := NewCorrelator(&buf)

	ch, err := c.Send(protocol.CmdGetTemp, nil, time.Second)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	req := lastSentFrame(t, &buf)

	fields := []protocol.Field{
		protocol.NewFieldUint8(protocol.TagErrorCode, uint8(protocol.ErrCodeCorrupt)),
		protocol.NewFieldString(protocol.TagErrorDesc, "crc mismatch"),
	}
	wire, _, err := protocol.NewEncoder().Encode(protocol.DeviceError, fields, req.PacketID)
	if err != nil {
		t.Fatalf("encode error frame: %v", err)
	}
	f, err := protocol.Decode(wire)
	if err != nil {
		t.Fatalf("decode error frame: %v", err)
	}
	c.HandleFrame(f)

	select {
	case res := <-ch:
		var remote RemoteError
		if !errors.As(res.Err, &remote) {
			t.Fatalf("expected RemoteError, got %v", res.Err)
		}
		if remote.Code != protocol.ErrCodeCorrupt || remote.Desc != "crc mismatch" {
			t.Fatalf("got %+v", remote)
		}
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
}

func TestCloseFailsAllPending(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	c := NewCorrelator(&buf)

	ch1, err := c.Send(protocol.CmdPing, nil, time.Minute)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	ch2, err := c.Send(protocol.CmdGetTemp, nil, time.Minute)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	c.Close()

	for _, ch := range []<-chan Result{ch1, ch2} {
		select {
		case res := <-ch:
			if !errors.Is(res.Err, ErrDisconnected) {
				t.Fatalf("expected ErrDisconnected, got %v", res.Err)
			}
		case <-time.After(time.Second):
			t.Fatal("pending request not failed")
		}
	}

	if _, err := c.Send(protocol.CmdPing, nil, time.Second); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("send after close: %v", err)
	}
}

func TestUnsolicitedResponseIgnored(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	c := NewCorrelator(&buf)

	// No pending request; must not panic or block.
	c.HandleFrame(deviceResponse(t, protocol.CmdPing, protocol.StatusOK, nil, 9))
}
