// Package render drives the output channels from their frame buffers.
package render

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/ledbridge/internal/color"
	"github.com/example/ledbridge/internal/frame"
	"github.com/example/ledbridge/internal/pulse"
	"github.com/example/ledbridge/internal/transmit"
)

// DefaultInterval matches the original firmware's idle refresh cadence.
const DefaultInterval = 50 * time.Millisecond

// Channel binds one output: its shared buffer, chip timing, encoder and
// transmit sink. The encoder is per channel because each sink has its own
// clock resolution.
type Channel struct {
	Name    string
	Buf     *frame.Buffer
	Profile pulse.Profile
	Enc     *pulse.Encoder
	Sink    transmit.Sink
}

// Loop renders every channel on a fixed cadence and immediately after a
// buffer mutation (Kick). There is exactly one Loop per device; it never
// locks more than one channel buffer at a time.
type Loop struct {
	channels []*Channel
	interval time.Duration
	kick     chan struct{}
	frames   atomic.Uint64
	onFrame  func(channel string, px []color.Color)
	log      zerolog.Logger
}

// New builds a Loop. interval <= 0 selects DefaultInterval. onFrame, when
// non-nil, receives each channel's snapshot after transmission (preview tee).
func New(channels []*Channel, interval time.Duration, onFrame func(string, []color.Color), log zerolog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		channels: channels,
		interval: interval,
		kick:     make(chan struct{}, 1),
		onFrame:  onFrame,
		log:      log,
	}
}

// Kick requests a render pass as soon as the loop is free. Pending kicks
// coalesce; callers must not hold a buffer lock.
func (l *Loop) Kick() {
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// Frames returns the number of completed render passes.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Run renders until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-l.kick:
		}
		l.RenderOnce()
	}
}

// RenderOnce snapshots each channel, encodes it with the channel's timing
// profile and blocks on the sink. A failing channel is logged and skipped
// for this cycle; the strip keeps its last valid frame and the next cycle
// retries.
func (l *Loop) RenderOnce() {
	for _, ch := range l.channels {
		px := ch.Buf.Snapshot()
		wf, err := ch.Enc.Encode(px, ch.Profile)
		if err != nil {
			l.log.Error().Err(err).Str("channel", ch.Name).Msg("encode failed")
			continue
		}
		if err := ch.Sink.Transmit(wf); err != nil {
			l.log.Error().Err(err).Str("channel", ch.Name).Msg("transmit failed")
			continue
		}
		if l.onFrame != nil {
			l.onFrame(ch.Name, px)
		}
	}
	l.frames.Add(1)
}
