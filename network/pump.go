package network

import (
	"time"

	"github.com/automoto/truckrace-mp/shared/protocol"
)

// FrameSource hands over frames received since the last call.
type FrameSource interface {
	DrainFrames() []protocol.Frame
}

// FrameError pairs a frame with the error applying it produced.
type FrameError struct {
	Type protocol.MsgType
	Err  error
}

// Pump applies every pending frame from src at now, in arrival order. Errors
// never stop the pump; they are returned so the caller can log them.
func (s *Session) Pump(src FrameSource, now time.Time) []FrameError {
	var errs []FrameError
	for _, f := range src.DrainFrames() {
		if err := s.HandleFrame(f, now); err != nil {
			errs = append(errs, FrameError{Type: f.Type, Err: err})
		}
	}
	return errs
}
