package e131

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/example/ledbridge/internal/frame"
)

// Server receives lighting frames over UDP and writes them into a channel's
// frame buffer. Processing is stateless per packet; malformed input is
// logged and dropped while the loop keeps listening.
type Server struct {
	conn   *net.UDPConn
	buf    *frame.Buffer
	notify func()
	log    zerolog.Logger
}

// NewServer binds addr and targets buf. notify is called after each buffer
// update, once the write lock has been released; pass nil for a purely
// polled renderer.
func NewServer(addr string, buf *frame.Buffer, notify func(), log zerolog.Logger) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	log.Info().Str("addr", conn.LocalAddr().String()).Msg("UDP server listening")
	return &Server{conn: conn, buf: buf, notify: notify, log: log}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Run receives packets until the socket is closed. It returns the read
// error that ended the loop.
func (s *Server) Run() error {
	buf := make([]byte, MaxPacketSize+1)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return fmt.Errorf("udp receive: %w", err)
		}

		f, err := Parse(buf[:n])
		if err != nil {
			s.log.Warn().Err(err).Stringer("from", addr).Msg("dropping packet")
			continue
		}

		px := f.Pixels()
		written, dropped := s.buf.Update(px)
		if dropped > 0 {
			s.log.Warn().
				Int("written", written).
				Int("dropped", dropped).
				Uint16("universe", f.Universe).
				Msg("got data for more pixels than the strip holds")
		}
		s.log.Debug().
			Uint16("universe", f.Universe).
			Stringer("from", addr).
			Int("pixels", written).
			Msg("updated strip state")

		if s.notify != nil {
			s.notify()
		}
	}
}

// Close shuts the socket down, ending Run.
func (s *Server) Close() error {
	return s.conn.Close()
}
