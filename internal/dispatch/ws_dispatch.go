package dispatch

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

var ErrNoSession = errors.New("no ws session")

// WSSession wraps a connected user socket; writes are serialized.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// WSRegistry holds the websocket sessions of connected riders and drivers.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession), logger: logger}
}

func (r *WSRegistry) Add(username string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[username]; ok {
		_ = old.conn.Close()
	}
	r.sessions[username] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, username)
}

// Send pushes an event to a connected user, reporting ErrNoSession when the
// user has no open socket so callers can fall back to another transport.
func (r *WSRegistry) Send(username, event string, payload map[string]any) error {
	r.mu.RLock()
	s, ok := r.sessions[username]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	msg := map[string]any{"event": event, "data": payload}
	if err := s.send(msg); err != nil {
		r.logger.Warn("ws send failed", "user", username, "event", event, "error", err)
		return err
	}
	return nil
}

// Notify implements Notifier; ws delivery is best-effort.
func (r *WSRegistry) Notify(username, event string, payload map[string]any) {
	_ = r.Send(username, event, payload)
}
