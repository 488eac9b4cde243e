package presenter

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// HubConfig holds websocket tuning for renderer connections.
type HubConfig struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultHubConfig returns the settings used in production. The overlay
// page connects from a local browser source, so all origins are allowed.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Hub pushes presentation commands to every connected renderer over
// websocket. A renderer that connects mid-show immediately receives the
// last command sent for each op, so it renders current state instead of a
// blank overlay.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	conns    map[*rendererConn]bool
	lastByOp map[Op][]byte

	// onAction receives inbound operator control messages, raw JSON.
	onAction func(data []byte)
}

// rendererConn's send channel is never closed: a broadcast may race a
// disconnect, and a send on a closed channel panics. The write pump exits
// via done instead.
type rendererConn struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	hub  *Hub
}

func NewHub(config HubConfig) *Hub {
	return &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		conns:    make(map[*rendererConn]bool),
		lastByOp: make(map[Op][]byte),
	}
}

// OnAction registers the callback invoked with each inbound control
// message. Must be set before the hub starts accepting connections.
func (h *Hub) OnAction(fn func(data []byte)) {
	h.onAction = fn
}

// HandleWS upgrades an HTTP request into a renderer connection.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade renderer connection")
		return
	}

	rc := &rendererConn{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
		hub:  h,
	}
	h.register(rc)

	go rc.writePump()
	go rc.readPump()

	log.Info().Str("connection_id", rc.id).Str("remote", r.RemoteAddr).Msg("renderer connected")
}

func (h *Hub) register(rc *rendererConn) {
	h.mu.Lock()
	h.conns[rc] = true
	replay := make([][]byte, 0, len(h.lastByOp))
	for _, data := range h.lastByOp {
		replay = append(replay, data)
	}
	h.mu.Unlock()

	// State replay for late joiners.
	for _, data := range replay {
		select {
		case rc.send <- data:
		default:
		}
	}
}

func (h *Hub) unregister(rc *rendererConn) {
	h.mu.Lock()
	if h.conns[rc] {
		delete(h.conns, rc)
		close(rc.done)
	}
	h.mu.Unlock()
}

// Render broadcasts a command to every renderer. Slow consumers are
// dropped rather than allowed to stall the control timeline.
func (h *Hub) Render(cmd Command) {
	data, err := json.Marshal(cmd)
	if err != nil {
		log.Error().Err(err).Str("op", string(cmd.Op)).Msg("failed to marshal render command")
		return
	}

	h.mu.Lock()
	h.lastByOp[cmd.Op] = data
	targets := make([]*rendererConn, 0, len(h.conns))
	for rc := range h.conns {
		targets = append(targets, rc)
	}
	h.mu.Unlock()

	for _, rc := range targets {
		select {
		case rc.send <- data:
		default:
			log.Warn().Str("connection_id", rc.id).Msg("renderer send buffer full; dropping connection")
			go h.closeConn(rc)
		}
	}
}

// ConnectionCount reports the number of attached renderers.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) closeConn(rc *rendererConn) {
	h.unregister(rc)
	rc.conn.Close()
}

func (rc *rendererConn) writePump() {
	ticker := time.NewTicker(rc.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		rc.conn.Close()
	}()

	for {
		select {
		case data := <-rc.send:
			rc.conn.SetWriteDeadline(time.Now().Add(rc.hub.config.WriteTimeout))
			if err := rc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("connection_id", rc.id).Msg("renderer write failed")
				return
			}
		case <-rc.done:
			rc.conn.SetWriteDeadline(time.Now().Add(rc.hub.config.WriteTimeout))
			rc.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			rc.conn.SetWriteDeadline(time.Now().Add(rc.hub.config.WriteTimeout))
			if err := rc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (rc *rendererConn) readPump() {
	defer func() {
		rc.hub.unregister(rc)
		rc.conn.Close()
		log.Info().Str("connection_id", rc.id).Msg("renderer disconnected")
	}()

	rc.conn.SetReadLimit(rc.hub.config.MaxMessageSize)
	rc.conn.SetReadDeadline(time.Now().Add(rc.hub.config.PongTimeout))
	rc.conn.SetPongHandler(func(string) error {
		rc.conn.SetReadDeadline(time.Now().Add(rc.hub.config.PongTimeout))
		return nil
	})

	for {
		_, data, err := rc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("connection_id", rc.id).Msg("renderer read error")
			}
			return
		}
		if rc.hub.onAction != nil {
			rc.hub.onAction(data)
		}
	}
}
