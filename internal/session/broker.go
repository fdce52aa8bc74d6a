package session

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/engine"
)

// outboxSize bounds how far a slow reader can fall behind before we treat
// the connection as dead and prune it.
const outboxSize = 32

// Client is the send side of one websocket connection. The ws handler runs
// a writer goroutine draining Outbox; the broker only ever enqueues.
type Client struct {
	Role engine.Role

	outbox    chan []byte
	closeOnce sync.Once
}

func NewClient(role engine.Role) *Client {
	return &Client{Role: role, outbox: make(chan []byte, outboxSize)}
}

func (c *Client) Outbox() <-chan []byte { return c.outbox }

// Close ends the writer goroutine. Safe to call from both the broker (prune)
// and the ws handler (teardown).
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.outbox) })
}

// enqueue offers a frame without blocking. A full outbox means the reader is
// gone or hopelessly behind; either way the connection gets pruned.
func (c *Client) enqueue(p []byte) (ok bool) {
	defer func() {
		// Losing a race with Close is the same as a full outbox.
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.outbox <- p:
		return true
	default:
		return false
	}
}

// Broadcast sends one event to every live connection of the session, pruning
// connections that cannot accept it. The session lock is held only while
// snapshotting and pruning the connection map, never while enqueueing.
func (s *Session) Broadcast(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("marshal broadcast", zap.Uint("draft_id", s.DraftID), zap.Error(err))
		return
	}

	s.mu.Lock()
	targets := make(map[engine.Role]*Client, len(s.conns))
	for role, c := range s.conns {
		targets[role] = c
	}
	s.mu.Unlock()

	var dead []engine.Role
	for role, c := range targets {
		if !c.enqueue(payload) {
			dead = append(dead, role)
		}
	}
	if len(dead) == 0 {
		return
	}
	s.mu.Lock()
	for _, role := range dead {
		if s.conns[role] == targets[role] {
			delete(s.conns, role)
			targets[role].Close()
		}
	}
	s.mu.Unlock()
}

// SendTo delivers one event to a single role, if connected.
func (s *Session) SendTo(role engine.Role, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("marshal send", zap.Uint("draft_id", s.DraftID), zap.Error(err))
		return
	}

	s.mu.Lock()
	c := s.conns[role]
	s.mu.Unlock()
	if c == nil {
		return
	}
	if !c.enqueue(payload) {
		s.mu.Lock()
		if s.conns[role] == c {
			delete(s.conns, role)
			c.Close()
		}
		s.mu.Unlock()
	}
}
