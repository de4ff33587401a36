// Package pulse turns pixel colors into the one-wire pulse waveform the
// WS2812 family expects. Encoding is pure data transformation; transmission
// belongs to internal/transmit.
package pulse

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/example/ledbridge/internal/color"
)

// ErrClockResolution is returned when a timing profile cannot be realized at
// the transmitter's clock resolution.
var ErrClockResolution = errors.New("pulse width below clock resolution")

// Profile holds the four pulse widths of one chip variant: the high/low
// segments encoding a 0 bit and a 1 bit.
type Profile struct {
	T0H, T0L, T1H, T1L time.Duration
}

// Datasheet timings for the two chip variants the bridge drives. The
// onboard indicator and the external strip tolerate slightly different
// widths, so each channel carries its own profile.
var (
	WS2812  = Profile{T0H: 350 * time.Nanosecond, T0L: 800 * time.Nanosecond, T1H: 700 * time.Nanosecond, T1L: 600 * time.Nanosecond}
	WS2812B = Profile{T0H: 400 * time.Nanosecond, T0L: 800 * time.Nanosecond, T1H: 850 * time.Nanosecond, T1L: 450 * time.Nanosecond}
)

// Pulse is a single timed level segment on the data line.
type Pulse struct {
	Level gpio.Level
	Width time.Duration
}

// Waveform is the ordered pulse sequence for one render pass. Every bit
// contributes one high pulse followed by one low pulse, so a K-pixel frame
// is always exactly 24*K pulse pairs.
type Waveform []Pulse

// Pairs returns the number of (high, low) pulse pairs.
func (w Waveform) Pairs() int {
	return len(w) / 2
}

// Duration returns the total on-wire time of the waveform.
func (w Waveform) Duration() time.Duration {
	var d time.Duration
	for _, p := range w {
		d += p.Width
	}
	return d
}

// Encoder encodes frames for one transmitter, validating profiles against
// that transmitter's clock resolution.
type Encoder struct {
	period time.Duration
}

// NewEncoder returns an Encoder for a transmitter running at clock.
func NewEncoder(clock physic.Frequency) (*Encoder, error) {
	if clock <= 0 {
		return nil, fmt.Errorf("encoder clock %s: must be positive", clock)
	}
	return &Encoder{period: clock.Period()}, nil
}

// Encode produces the waveform for px in pixel order. Each pixel is packed
// to its 24-bit wire value and emitted MSB first. Empty input yields an
// empty waveform, which is a legal no-op transmission.
func (e *Encoder) Encode(px []color.Color, p Profile) (Waveform, error) {
	if err := e.checkProfile(p); err != nil {
		return nil, err
	}
	wf := make(Waveform, 0, len(px)*48)
	for _, c := range px {
		v := c.Packed()
		for i := 23; i >= 0; i-- {
			if v&(1<<uint(i)) != 0 {
				wf = append(wf, Pulse{gpio.High, p.T1H}, Pulse{gpio.Low, p.T1L})
			} else {
				wf = append(wf, Pulse{gpio.High, p.T0H}, Pulse{gpio.Low, p.T0L})
			}
		}
	}
	return wf, nil
}

func (e *Encoder) checkProfile(p Profile) error {
	for _, w := range []struct {
		name string
		d    time.Duration
	}{
		{"t0h", p.T0H}, {"t0l", p.T0L}, {"t1h", p.T1H}, {"t1l", p.T1L},
	} {
		if w.d < e.period {
			return fmt.Errorf("%s=%s shorter than clock period %s: %w", w.name, w.d, e.period, ErrClockResolution)
		}
	}
	return nil
}
