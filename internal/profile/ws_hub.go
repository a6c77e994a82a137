package profile

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atmx/portfolio-engine/internal/chain"
	"github.com/atmx/portfolio-engine/internal/metrics"
	"github.com/atmx/portfolio-engine/internal/model"
	"github.com/atmx/portfolio-engine/internal/watch"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// ClientMessage is a JSON message received from a WebSocket client.
//
//	{"type":"watch","address":"0x…"}  switch the watched address ("" resets)
//	{"type":"refresh"}                 re-run the cycle for the current address
type ClientMessage struct {
	Type    string `json:"type"`
	Address string `json:"address,omitempty"`
}

// WSMessage is a JSON message sent to WebSocket clients.
type WSMessage struct {
	Type       string          `json:"type"`
	Generation uint64          `json:"generation,omitempty"`
	CycleID    string          `json:"cycle_id,omitempty"`
	Address    string          `json:"address,omitempty"`
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
	Snapshot   *model.Snapshot `json:"snapshot,omitempty"`
}

func stateMessage(s watch.State) WSMessage {
	snap := s.Snapshot
	msg := WSMessage{
		Type:       "state",
		Generation: s.Generation,
		CycleID:    s.CycleID,
		Address:    s.Address,
		Loading:    s.Loading,
		Snapshot:   &snap,
	}
	if s.Err != nil {
		msg.Error = errFetchMessage
	}
	return msg
}

// WSHub tracks connected sessions. Every session owns its own Tracker, so
// each client watches one address independently of the others.
type WSHub struct {
	fetcher    watch.Fetcher
	sessions   map[*session]bool
	register   chan *session
	unregister chan *session
	mu         sync.RWMutex
}

// NewWSHub creates a new WebSocket hub backed by f.
func NewWSHub(f watch.Fetcher) *WSHub {
	return &WSHub{
		fetcher:    f,
		sessions:   make(map[*session]bool),
		register:   make(chan *session),
		unregister: make(chan *session),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *WSHub) Run() {
	for {
		select {
		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = true
			total := len(h.sessions)
			h.mu.Unlock()
			metrics.WebSocketSessions.Inc()
			slog.Info("ws session opened", "session", s.id, "total", total)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				metrics.WebSocketSessions.Dec()
			}
			h.mu.Unlock()
			s.close()
		}
	}
}

// Sessions returns the number of connected sessions.
func (h *WSHub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	s := newSession(conn)
	s.tracker = watch.NewTracker(h.fetcher, s.pushState)
	h.register <- s

	go s.writePump()
	go func() {
		defer func() { h.unregister <- s }()
		s.readPump()
	}()
}

// session is one WebSocket connection. The write pump is the only goroutine
// that writes to conn.
type session struct {
	id      string
	conn    *websocket.Conn
	tracker *watch.Tracker

	mu      sync.Mutex
	outbox  []WSMessage
	pending *WSMessage // latest state, replaced rather than queued
	lastGen uint64
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		id:   conn.RemoteAddr().String(),
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// pushState is the tracker callback. States from an older generation than
// the last one queued are dropped, since callbacks may race each other.
func (s *session) pushState(st watch.State) {
	s.mu.Lock()
	if st.Generation < s.lastGen {
		s.mu.Unlock()
		return
	}
	s.lastGen = st.Generation
	msg := stateMessage(st)
	s.pending = &msg
	s.mu.Unlock()
	s.notify()
}

func (s *session) send(msg WSMessage) {
	s.mu.Lock()
	s.outbox = append(s.outbox, msg)
	s.mu.Unlock()
	s.notify()
}

func (s *session) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) drain() []WSMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.outbox
	s.outbox = nil
	if s.pending != nil {
		out = append(out, *s.pending)
		s.pending = nil
	}
	return out
}

func (s *session) readPump() {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read failed", "session", s.id, "err", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.send(WSMessage{Type: "error", Error: "invalid message"})
			continue
		}
		s.handle(msg)
	}
}

func (s *session) handle(msg ClientMessage) {
	switch msg.Type {
	case "watch":
		addr := msg.Address
		if addr != "" {
			parsed, err := chain.ParseAddress(addr)
			if err != nil {
				s.send(WSMessage{Type: "error", Address: addr, Error: err.Error()})
				return
			}
			addr = parsed
		}
		s.tracker.Watch(addr)
	case "refresh":
		s.tracker.Refresh()
	default:
		s.send(WSMessage{Type: "error", Error: "unknown message type " + msg.Type})
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			for _, msg := range s.drain() {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := s.conn.WriteJSON(msg); err != nil {
					if !errors.Is(err, websocket.ErrCloseSent) {
						slog.Warn("ws write failed", "session", s.id, "err", err)
					}
					s.conn.Close()
					return
				}
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				return
			}
		}
	}
}

// close stops the tracker (discarding any in-flight cycle) and the pumps.
func (s *session) close() {
	s.once.Do(func() {
		s.tracker.Close()
		close(s.done)
		s.conn.Close()
		slog.Info("ws session closed", "session", s.id)
	})
}
