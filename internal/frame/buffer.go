// Package frame holds the per-channel pixel state shared between the
// network ingestion paths and the render loop.
package frame

import (
	"sync"

	"github.com/example/ledbridge/internal/color"
)

// Buffer is a fixed-capacity pixel sequence guarded by a reader/writer lock.
// The render loop snapshots it; ingestion handlers mutate it. Its length
// never exceeds the capacity chosen at channel init.
type Buffer struct {
	mu       sync.RWMutex
	pixels   []color.Color
	capacity int
}

// New returns a Buffer pre-sized to capacity with every pixel set to def,
// so partial updates can never expose undefined state.
func New(capacity int, def color.Color) *Buffer {
	px := make([]color.Color, capacity)
	for i := range px {
		px[i] = def
	}
	return &Buffer{pixels: px, capacity: capacity}
}

// Cap returns the physical LED count of the channel.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Len returns the number of pixels currently rendered.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pixels)
}

// Update overwrites the prefix of the buffer with px, leaving the remaining
// indices at their previous value. Data beyond the current length is
// discarded per the best-effort overflow policy; the dropped count is
// returned so the caller can report it.
func (b *Buffer) Update(px []color.Color) (written, dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	written = copy(b.pixels, px)
	return written, len(px) - written
}

// Replace swaps the whole contents for px, truncating at capacity. A shorter
// px shrinks the rendered length; the backing store keeps its capacity.
func (b *Buffer) Replace(px []color.Color) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(px)
	if n > b.capacity {
		dropped = n - b.capacity
		n = b.capacity
	}
	b.pixels = b.pixels[:n]
	copy(b.pixels, px[:n])
	return dropped
}

// Snapshot returns a copy of the current pixels taken under the read lock.
// Callers own the returned slice.
func (b *Buffer) Snapshot() []color.Color {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]color.Color, len(b.pixels))
	copy(out, b.pixels)
	return out
}
