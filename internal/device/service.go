package device

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/thermolink/internal/protocol"
)

// Service pumps one transport link: bytes in through the reassembler,
// reply frames out through the dispatcher. Run blocks until the
// transport fails or is closed.
type Service struct {
	rw    io.ReadWriteCloser
	disp  *Dispatcher
	reasm *protocol.Reassembler
	log   zerolog.Logger
}

func NewService(rw io.ReadWriteCloser, state *State) *Service {
	s := &Service{
		rw:   rw,
		disp: NewDispatcher(state),
		log:  log.With().Str("component", "device_service").Logger(),
	}
	s.reasm = protocol.NewReassembler(s.onFrame)
	return s
}

func (s *Service) onFrame(f protocol.Frame, err error) {
	var wire []byte
	if err != nil {
		// A CRC-failed frame still gets an answer so the host can stop
		// waiting and retry.
		if !errors.Is(err, protocol.ErrCrcMismatch) {
			return
		}
		wire, err = s.disp.CorruptReply("crc mismatch")
	} else {
		wire, err = s.disp.HandleFrame(f)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("reply encode failed")
		return
	}
	if _, err := s.rw.Write(wire); err != nil {
		s.log.Warn().Err(err).Msg("reply write failed")
	}
}

// Run reads the transport until it closes. It returns nil on a clean
// peer close.
func (s *Service) Run() error {
	buf := make([]byte, 512)
	for {
		n, err := s.rw.Read(buf)
		if n > 0 {
			s.reasm.Feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
	}
}

// Close tears down the transport, unblocking Run.
func (s *Service) Close() error {
	return s.rw.Close()
}
