// Package session holds the per-draft in-memory coordination state: the two
// live connections, cached turn/pick/constraint state, and the registry that
// owns session lifetimes. Everything here is a scratch mirror of durable
// rows; a session can be dropped and rebuilt from storage at any time.
package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/engine"
	"github.com/hoopdraft/hoopdraft/internal/roller"
)

// PickView is one committed pick shaped for snapshots and broadcasts, a
// read-through cache of the durable pick log.
type PickView struct {
	PickNumber     int    `json:"pick_number"`
	Role           string `json:"role"`
	PlayerID       uint   `json:"player_id"`
	PlayerName     string `json:"player_name"`
	PlayerImageURL string `json:"player_image_url,omitempty"`
	ConstraintTeam string `json:"constraint_team,omitempty"`
	ConstraintYear string `json:"constraint_year,omitempty"`
}

// Preview is a role's not-yet-committed selection. Cosmetic only; never
// persisted.
type Preview struct {
	PlayerID   uint   `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// Session is the aggregate root for one active draft. One mutex serializes
// every read and write of its mutable fields; callers take Lock around any
// compound check-then-act sequence, exactly as the command handlers do.
type Session struct {
	DraftID  uint
	PublicID string

	mu    sync.Mutex
	conns map[engine.Role]*Client

	// Guarded by mu.
	Turn           engine.TurnState
	Picks          []PickView
	Constraint     *roller.Constraint
	ConstraintRole engine.Role
	Previews       map[engine.Role]*Preview

	// Host-controlled settings, lazily seeded from durable state on
	// rehydration. OnlyEligible nil = not yet seeded.
	OnlyEligible   *bool
	Name           string
	PicksPerPlayer int

	// Rule set decoded at rehydration; nil until the first connect finishes.
	Rules *roller.RuleSet

	log *zap.Logger
}

func newSession(draftID uint, log *zap.Logger) *Session {
	return &Session{
		DraftID:  draftID,
		conns:    make(map[engine.Role]*Client),
		Previews: make(map[engine.Role]*Preview),
		log:      log,
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// attach installs c as the role's connection, superseding (without closing)
// any prior one. Caller holds the lock via Registry.Connect.
func (s *Session) attach(role engine.Role, c *Client) {
	s.conns[role] = c
}

// detach removes the role's connection only if it is still the recorded one,
// so a stale disconnect cannot evict a newer reconnect. Reports whether the
// connection set is now empty.
func (s *Session) detach(role engine.Role, c *Client) (removed, empty bool) {
	if s.conns[role] == c {
		delete(s.conns, role)
		removed = true
	}
	return removed, len(s.conns) == 0
}

// ConnectedRoles lists roles with a live connection, host first.
func (s *Session) ConnectedRoles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ConnectedRolesLocked()
}

// ConnectedRolesLocked is ConnectedRoles for callers already holding the
// session lock.
func (s *Session) ConnectedRolesLocked() []string {
	var roles []string
	for _, r := range []engine.Role{engine.RoleHost, engine.RoleGuest} {
		if _, ok := s.conns[r]; ok {
			roles = append(roles, string(r))
		}
	}
	return roles
}

// PickedPlayerIDs returns the ids already drafted, for eligibility filters.
// Caller holds the lock.
func (s *Session) PickedPlayerIDs() []uint {
	ids := make([]uint, 0, len(s.Picks))
	for _, p := range s.Picks {
		ids = append(ids, p.PlayerID)
	}
	return ids
}
