// Package e131 ingests the sACN-profile UDP lighting protocol: fixed-offset
// header fields, property values consumed as consecutive RGB triples. The
// layout is treated as a fixed binary schema, not a versioned parser.
package e131

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/example/ledbridge/internal/color"
)

// DefaultPort is the well-known sACN port.
const DefaultPort = 5568

const (
	// headerSize is the fixed header length; property values follow it.
	headerSize = 125

	// MinPacketSize..MaxPacketSize is the accepted inclusive total size:
	// the fixed header plus up to 513 property-value bytes.
	MinPacketSize = headerSize
	MaxPacketSize = headerSize + 513

	universeOffset = 113
	countOffset    = 123
)

// ErrMalformedPacket is returned for payloads failing the size or
// field-consistency checks. Such packets are logged and dropped.
var ErrMalformedPacket = errors.New("malformed packet")

// Frame is the subset of a data packet the bridge consumes. Universe is
// informational only; Values aliases the input buffer.
type Frame struct {
	Universe uint16
	Values   []byte
}

// Parse validates buf and extracts the consumed fields. Checks run in
// order and the first failure wins: total size range, then the declared
// property-value count against the actual size.
func Parse(buf []byte) (Frame, error) {
	if len(buf) < MinPacketSize || len(buf) > MaxPacketSize {
		return Frame{}, fmt.Errorf("packet size %d outside %d..%d: %w",
			len(buf), MinPacketSize, MaxPacketSize, ErrMalformedPacket)
	}
	universe := binary.BigEndian.Uint16(buf[universeOffset : universeOffset+2])
	count := binary.BigEndian.Uint16(buf[countOffset : countOffset+2])
	if len(buf) < headerSize+int(count) {
		return Frame{}, fmt.Errorf("packet size %d too small for %d property values: %w",
			len(buf), count, ErrMalformedPacket)
	}
	return Frame{
		Universe: universe,
		Values:   buf[headerSize : headerSize+int(count)],
	}, nil
}

// Pixels groups the property values into RGB triples in order; triple i maps
// to LED index i. A trailing partial triple carries no complete pixel and is
// dropped.
func (f Frame) Pixels() []color.Color {
	px := make([]color.Color, 0, len(f.Values)/3)
	for i := 0; i+3 <= len(f.Values); i += 3 {
		px = append(px, color.RGB(f.Values[i], f.Values[i+1], f.Values[i+2]))
	}
	return px
}
