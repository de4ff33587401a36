// Package transmit sends encoded waveforms to the output hardware.
package transmit

import (
	"github.com/example/ledbridge/internal/pulse"
)

// Sink is the transmit end of one output channel. Transmit blocks until the
// waveform is fully on the wire: the chip latches on the quiet period after
// a frame, so overlapping transmissions on one channel corrupt the strip.
type Sink interface {
	Transmit(wf pulse.Waveform) error
	Close() error
}
