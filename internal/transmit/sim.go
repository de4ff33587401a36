package transmit

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/ledbridge/internal/pulse"
)

// Sim discards waveforms while keeping counters, useful for headless runs
// and tests.
type Sim struct {
	mu     sync.Mutex
	log    zerolog.Logger
	frames int
	last   pulse.Waveform
}

// NewSim returns a sink that records instead of transmitting.
func NewSim(log zerolog.Logger) *Sim {
	return &Sim{log: log}
}

func (s *Sim) Transmit(wf pulse.Waveform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	s.last = wf
	s.log.Debug().
		Int("frame", s.frames).
		Int("pairs", wf.Pairs()).
		Dur("wire_time", wf.Duration()).
		Msg("sim transmit")
	return nil
}

// Frames returns the number of transmissions seen.
func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last returns the most recent waveform.
func (s *Sim) Last() pulse.Waveform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Sim) Close() error {
	return nil
}
