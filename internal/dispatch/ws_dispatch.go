package dispatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/gator-taxi/internal/models"
)

const writeWait = 5 * time.Second

// WSSession represents a connected dispatcher console.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(ride models.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(ride)
}

// WSRegistry holds the sessions subscribed to the dispatch feed.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
	logger   *slog.Logger
}

// NewWSRegistry returns an empty registry. logger may be nil.
func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSRegistry{sessions: make(map[string]*WSSession), logger: logger}
}

func (r *WSRegistry) Add(id string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[id]; ok {
		_ = old.conn.Close()
	}
	r.sessions[id] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		_ = s.conn.Close()
		delete(r.sessions, id)
	}
}

func (r *WSRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast sends ride to every session and drops the ones that fail.
// It returns the number of sessions reached.
func (r *WSRegistry) Broadcast(ride models.Ride) int {
	r.mu.RLock()
	snapshot := make(map[string]*WSSession, len(r.sessions))
	for id, s := range r.sessions {
		snapshot[id] = s
	}
	r.mu.RUnlock()

	sent := 0
	for id, s := range snapshot {
		if err := s.Send(ride); err != nil {
			r.logger.Warn("dispatch feed send failed, dropping session", "session", id, "ride", ride.RideNumber, "err", err)
			r.Remove(id)
			continue
		}
		sent++
	}
	return sent
}
