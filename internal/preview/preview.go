// Package preview streams rendered frames to websocket clients so the strip
// can be watched without hardware attached.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/example/ledbridge/internal/color"
)

// Hub fans rendered frames out to connected clients. Slow clients are
// dropped by the per-message write deadline rather than backpressuring the
// render loop.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: map[*websocket.Conn]bool{},
		log:     log,
	}
}

// Handle upgrades the request and keeps the connection registered until the
// peer goes away. Inbound messages are drained and ignored.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type wireFrame struct {
	T       int64  `json:"t"`
	Channel string `json:"channel"`
	RGB     []byte `json:"rgb"`
}

// Broadcast sends one channel's rendered pixels to every client.
func (h *Hub) Broadcast(channel string, px []color.Color) {
	rgb := make([]byte, 0, len(px)*3)
	for _, c := range px {
		rgb = append(rgb, c.R, c.G, c.B)
	}
	b, _ := json.Marshal(wireFrame{T: time.Now().UnixNano(), Channel: channel, RGB: rgb})

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Debug().Err(err).Msg("write preview frame")
		}
	}
}
