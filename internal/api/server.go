// Package api exposes the HTTP control endpoint for setting strip colors.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/ledbridge/internal/color"
	"github.com/example/ledbridge/internal/frame"
	"github.com/example/ledbridge/internal/preview"
)

// DefaultMaxBody caps the accepted request body. JSON parsing works on a
// fully buffered body, so the cap bounds allocation from untrusted input.
const DefaultMaxBody = 768

// rainbowHues is the pixel count of a full-spectrum replacement frame, one
// pixel per integer hue step.
const rainbowHues = 360

type controlRequest struct {
	Rainbow   bool       `json:"rainbow"`
	LedStates [][3]uint8 `json:"ledstates"`
}

// Server handles control requests against one strip buffer.
type Server struct {
	buf     *frame.Buffer
	notify  func()
	hub     *preview.Hub
	maxBody int64
	frames  func() uint64
	start   time.Time
	log     zerolog.Logger
}

// NewServer targets buf. notify is invoked after each mutation, outside the
// buffer lock. hub and frames are optional (preview route, /health counter).
func NewServer(buf *frame.Buffer, notify func(), hub *preview.Hub, maxBody int64, frames func() uint64, log zerolog.Logger) *Server {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	return &Server{
		buf:     buf,
		notify:  notify,
		hub:     hub,
		maxBody: maxBody,
		frames:  frames,
		start:   time.Now(),
		log:     log,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/post", s.handlePost)
	mux.HandleFunc("/health", s.handleHealth)
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.Handle)
	}
	return mux
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Oversized bodies are rejected before any parsing; no buffer mutation
	// happens. The declared length catches well-behaved clients early, the
	// capped reader catches the rest.
	if r.ContentLength > s.maxBody {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	var req controlRequest
	if err := json.Unmarshal(body, &req); err != nil {
		// Kept from the observed device behavior: parse failures answer 200
		// with a diagnostic body, and the strip keeps its last valid frame.
		s.log.Warn().Err(err).Msg("control request with bad JSON")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "JSON error")
		return
	}

	var px []color.Color
	if req.Rainbow {
		px = rainbowPixels()
	} else {
		px = make([]color.Color, 0, len(req.LedStates))
		for _, t := range req.LedStates {
			px = append(px, color.RGB(t[0], t[1], t[2]))
		}
	}

	if dropped := s.buf.Replace(px); dropped > 0 {
		s.log.Warn().
			Int("dropped", dropped).
			Int("capacity", s.buf.Cap()).
			Msg("control frame larger than strip")
	}
	if s.notify != nil {
		s.notify()
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"uptime_s": time.Since(s.start).Seconds(),
		"pixels":   s.buf.Len(),
		"capacity": s.buf.Cap(),
	}
	if s.frames != nil {
		resp["frames"] = s.frames()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// rainbowPixels builds the full-brightness spectrum frame, one pixel per hue
// step 0..359 at full saturation and value.
func rainbowPixels() []color.Color {
	px := make([]color.Color, 0, rainbowHues)
	for h := 0; h < rainbowHues; h++ {
		c, _ := color.FromHSV(h, 100, 100)
		px = append(px, c)
	}
	return px
}
