package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/engine"
)

// Registry is the process-wide map from draft id to live session. The coarse
// lock covers only creation and eviction; per-session work always happens
// under the session's own lock so unrelated drafts never serialize.
type Registry struct {
	mu       sync.Mutex
	sessions map[uint]*Session
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{sessions: make(map[uint]*Session), log: log}
}

// GetOrCreate returns the draft's session, constructing an empty one on
// first connect. At-most-once per draft id under concurrent first connects.
func (r *Registry) GetOrCreate(draftID uint) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[draftID]
	if !ok {
		s = newSession(draftID, r.log)
		r.sessions[draftID] = s
	}
	return s
}

// Connect installs the client as the role's connection. A prior connection
// for the role is superseded, not closed: its own read loop will notice and
// its stale disconnect will be ignored by the pointer guard in Disconnect.
func (r *Registry) Connect(draftID uint, role engine.Role, c *Client) *Session {
	s := r.GetOrCreate(draftID)
	s.mu.Lock()
	s.attach(role, c)
	s.mu.Unlock()
	return s
}

// Disconnect removes the connection if it is still current and evicts the
// session once its connection set is empty. Eviction is safe because every
// durability-critical field is mirrored in storage and rebuilt on the next
// connect. Reports whether the connection was actually removed.
func (r *Registry) Disconnect(s *Session, role engine.Role, c *Client) bool {
	s.mu.Lock()
	removed, empty := s.detach(role, c)
	s.mu.Unlock()
	if !empty {
		return removed
	}

	// Registry lock first, then re-check under the session lock: a new
	// connect may have raced in between.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.DraftID] != s {
		return removed
	}
	s.mu.Lock()
	stillEmpty := len(s.conns) == 0
	s.mu.Unlock()
	if stillEmpty {
		delete(r.sessions, s.DraftID)
		r.log.Debug("session evicted", zap.Uint("draft_id", s.DraftID))
	}
	return removed
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
