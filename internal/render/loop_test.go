package render_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/physic"

	"github.com/example/ledbridge/internal/color"
	"github.com/example/ledbridge/internal/frame"
	"github.com/example/ledbridge/internal/pulse"
	"github.com/example/ledbridge/internal/render"
	"github.com/example/ledbridge/internal/transmit"
)

func newChannel(t *testing.T, name string, capacity int) (*render.Channel, *transmit.Sim) {
	t.Helper()
	enc, err := pulse.NewEncoder(80 * physic.MegaHertz)
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	sink := transmit.NewSim(zerolog.Nop())
	return &render.Channel{
		Name:    name,
		Buf:     frame.New(capacity, color.RGB(2, 4, 8)),
		Profile: pulse.WS2812B,
		Enc:     enc,
		Sink:    sink,
	}, sink
}

func TestRenderOnceEncodesEveryChannel(t *testing.T) {
	chA, sinkA := newChannel(t, "onboard", 1)
	chB, sinkB := newChannel(t, "strip", 50)

	l := render.New([]*render.Channel{chA, chB}, 0, nil, zerolog.Nop())
	l.RenderOnce()

	assert.Equal(t, 1, sinkA.Frames())
	assert.Equal(t, 1, sinkB.Frames())
	assert.Equal(t, 24*1, sinkA.Last().Pairs())
	assert.Equal(t, 24*50, sinkB.Last().Pairs())
	assert.Equal(t, uint64(1), l.Frames())
}

func TestRenderOnceSkipsFailingChannelAndContinues(t *testing.T) {
	bad, _ := newChannel(t, "bad", 1)
	// A coarse clock makes the profile unrealizable, so encode fails.
	enc, err := pulse.NewEncoder(1 * physic.MegaHertz)
	assert.NoError(t, err)
	bad.Enc = enc

	good, sink := newChannel(t, "good", 2)
	l := render.New([]*render.Channel{bad, good}, 0, nil, zerolog.Nop())
	l.RenderOnce()

	assert.Equal(t, 1, sink.Frames(), "healthy channel still renders")
}

func TestRenderObservesLatestBufferState(t *testing.T) {
	ch, sink := newChannel(t, "strip", 2)
	var seen []color.Color
	l := render.New([]*render.Channel{ch}, 0, func(name string, px []color.Color) {
		seen = px
	}, zerolog.Nop())

	ch.Buf.Update([]color.Color{color.RGB(255, 0, 0)})
	l.RenderOnce()

	assert.Equal(t, color.RGB(255, 0, 0), seen[0])
	assert.Equal(t, color.RGB(2, 4, 8), seen[1], "untouched pixel keeps its default")
	assert.Equal(t, 24*2, sink.Last().Pairs())
}

func TestKickTriggersRender(t *testing.T) {
	ch, sink := newChannel(t, "strip", 1)
	// Long cadence so only the kick can plausibly fire within the test.
	l := render.New([]*render.Channel{ch}, time.Hour, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	l.Kick()
	deadline := time.After(2 * time.Second)
	for sink.Frames() == 0 {
		select {
		case <-deadline:
			t.Fatal("kick did not trigger a render pass")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestKicksCoalesce(t *testing.T) {
	ch, _ := newChannel(t, "strip", 1)
	l := render.New([]*render.Channel{ch}, time.Hour, nil, zerolog.Nop())
	// Kick is non-blocking regardless of how often it is called.
	for i := 0; i < 100; i++ {
		l.Kick()
	}
}
