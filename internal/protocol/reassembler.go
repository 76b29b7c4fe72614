package protocol

import (
	"bytes"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/thermolink/internal/observability"
)

// DefaultBufferCap bounds the reassembly buffer. A stream that never
// produces an end marker is dropped wholesale once it exceeds this.
const DefaultBufferCap = 4096

// FrameHandler receives each extracted frame, or the decode error for a
// CRC-failed frame. Exactly one of the two is set.
type FrameHandler func(Frame, error)

// Reassembler turns an arbitrary byte stream into discrete validated
// frames. It is owned by a single flow of control: Feed runs the whole
// extraction loop synchronously and never blocks.
type Reassembler struct {
	buf     []byte
	cap     int
	handler FrameHandler
	log     zerolog.Logger
}

func NewReassembler(handler FrameHandler) *Reassembler {
	return &Reassembler{
		buf:     make([]byte, 0, 256),
		cap:     DefaultBufferCap,
		handler: handler,
		log:     log.With().Str("component", "reassembler").Logger(),
	}
}

// Buffered reports how many bytes are waiting for more data.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset drops any partial frame, e.g. after a transport reconnect.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}

var startMarker = []byte{StartMark1, StartMark2}

// Feed appends p and extracts every complete frame it can. Incomplete
// trailing data stays buffered; corruption costs at most one frame.
func (r *Reassembler) Feed(p []byte) {
	r.buf = append(r.buf, p...)

	for {
		start := bytes.Index(r.buf, startMarker)
		if start < 0 {
			// No start marker anywhere. Drop the garbage, but keep a
			// trailing 0xAA: it may be the first half of a marker split
			// across chunks.
			keep := 0
			if len(r.buf) > 0 && r.buf[len(r.buf)-1] == StartMark1 {
				keep = 1
			}
			if dropped := len(r.buf) - keep; dropped > 0 {
				observability.RecordBytesDiscarded(dropped)
			}
			r.buf = r.buf[len(r.buf)-keep:]
			return
		}
		if start > 0 {
			observability.RecordBytesDiscarded(start)
			r.buf = r.buf[start:]
		}
		if len(r.buf) < MinFrameLen {
			return
		}

		end, malformed := findFrameEnd(r.buf)
		if malformed {
			// An interior start marker means we latched onto a corrupted
			// boundary. Drop one byte and rescan so at most one frame is
			// lost.
			observability.RecordResync()
			observability.RecordBytesDiscarded(1)
			r.buf = r.buf[1:]
			continue
		}
		if end < 0 {
			// Need more data. A stream that never closes the frame is
			// dropped wholesale once it exceeds the cap.
			if len(r.buf) > r.cap {
				r.log.Warn().Int("dropped", len(r.buf)).Msg("reassembly buffer overflow")
				observability.RecordBytesDiscarded(len(r.buf))
				r.buf = r.buf[:0]
			}
			return
		}

		wire := r.buf[:end+2]
		frame, err := Decode(wire)
		switch {
		case err == nil:
			observability.RecordFrameDecoded()
			r.buf = r.buf[end+2:]
			r.handler(frame, nil)
		case errors.Is(err, ErrCrcMismatch):
			// The frame was well aligned but corrupted in transit. Drop
			// it whole; nothing inside it can be salvaged.
			observability.RecordDecodeError("crc")
			observability.RecordBytesDiscarded(len(wire))
			r.log.Debug().Err(err).Int("len", len(wire)).Msg("dropping corrupted frame")
			r.buf = r.buf[end+2:]
			r.handler(Frame{}, err)
		default:
			observability.RecordDecodeError("malformed")
			observability.RecordResync()
			observability.RecordBytesDiscarded(1)
			r.log.Debug().Err(err).Msg("resync after malformed frame")
			r.buf = r.buf[1:]
			r.handler(Frame{}, err)
		}
	}
}

// findFrameEnd scans past the start marker for the end marker, honoring
// escape sequences. It returns the end marker offset, or -1 when more
// data is needed, or malformed=true when an unescaped interior start
// marker shows the current alignment is wrong.
func findFrameEnd(buf []byte) (end int, malformed bool) {
	for i := 2; i < len(buf); i++ {
		b := buf[i]
		if b != StartMark1 && b != StartMark2 {
			continue
		}
		if i+1 >= len(buf) {
			return -1, false // cannot classify the marker byte yet
		}
		next := buf[i+1]
		if next == EscapeByte {
			i++ // stuffed data byte
			continue
		}
		if b == EndMark1 && next == EndMark2 {
			return i, false
		}
		if b == StartMark1 && next == StartMark2 {
			return -1, true
		}
	}
	return -1, false
}
