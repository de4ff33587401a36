package transmit

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/example/ledbridge/internal/pulse"
)

// DefaultLatch is the quiet-low tail appended after each frame so the strip
// latches. The datasheet minimum is 50us; 300us is safe across variants.
const DefaultLatch = 300 * time.Microsecond

// SPI drives a strip through an SPI port clocked fast enough that one SPI
// bit approximates one waveform tick. The port's MOSI line is the data pin.
type SPI struct {
	mu    sync.Mutex
	port  spi.Port
	conn  spi.Conn
	clock physic.Frequency
	latch []byte
}

// NewSPI connects p at the given clock. latch is the low period appended
// after every frame; zero selects DefaultLatch.
func NewSPI(p spi.Port, clock physic.Frequency, latch time.Duration) (*SPI, error) {
	if clock <= 0 {
		return nil, fmt.Errorf("spi clock %s: must be positive", clock)
	}
	conn, err := p.Connect(clock, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi connect: %w", err)
	}
	if latch <= 0 {
		latch = DefaultLatch
	}
	// The line idles low between frames, so the latch is a run of zero bytes.
	bits := int(latch / clock.Period())
	return &SPI{
		port:  p,
		conn:  conn,
		clock: clock,
		latch: make([]byte, bits/8+1),
	}, nil
}

// Clock returns the transmitter clock, the resolution encoders must match.
func (s *SPI) Clock() physic.Frequency {
	return s.clock
}

// Transmit rasterizes wf at the port clock and blocks on the bus write.
func (s *SPI) Transmit(wf pulse.Waveform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("spi sink closed")
	}
	if len(wf) == 0 {
		return nil
	}
	data, err := Rasterize(wf, s.clock)
	if err != nil {
		return err
	}
	if err := s.conn.Tx(append(data, s.latch...), nil); err != nil {
		return fmt.Errorf("spi write: %w", err)
	}
	return nil
}

// Close releases the port when it owns one that can be closed.
func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = nil
	if pc, ok := s.port.(spi.PortCloser); ok {
		return pc.Close()
	}
	return nil
}

// Rasterize expands a waveform into an MSB-first bitstream at the given
// clock, one bit per clock period, rounding each pulse to the nearest tick.
// A pulse that rounds below one tick cannot be realized at this resolution.
func Rasterize(wf pulse.Waveform, clock physic.Frequency) ([]byte, error) {
	period := clock.Period()
	if period <= 0 {
		return nil, fmt.Errorf("clock %s: no usable period", clock)
	}

	var out []byte
	nbits := 0
	for _, p := range wf {
		ticks := int((p.Width + period/2) / period)
		if ticks < 1 {
			return nil, fmt.Errorf("pulse %s at clock %s: %w", p.Width, clock, pulse.ErrClockResolution)
		}
		for t := 0; t < ticks; t++ {
			if nbits%8 == 0 {
				out = append(out, 0)
			}
			if bool(p.Level) {
				out[len(out)-1] |= 1 << uint(7-nbits%8)
			}
			nbits++
		}
	}
	return out, nil
}
