package engine

import (
	"errors"
	"math/rand/v2"
)

var ErrNotStarted = errors.New("draft not started")
var ErrAlreadyStarted = errors.New("draft already started")
var ErrWrongTurn = errors.New("not your turn")
var ErrNothingToUndo = errors.New("nothing to undo")

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

func (r Role) Valid() bool { return r == RoleHost || r == RoleGuest }

func Other(r Role) Role {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

func ParseRole(s string) (Role, bool) {
	switch s {
	case "host":
		return RoleHost, true
	case "guest":
		return RoleGuest, true
	default:
		return "", false
	}
}

// TurnState is the pure turn-order state machine for a two-player snake
// draft. It is a value: transitions return a new state and never touch
// storage, so callers can commit the transition only after their durable
// write succeeds.
type TurnState struct {
	Started    bool
	FirstTurn  Role
	PickNumber int // count of committed picks
	Current    Role
}

// ExpectedRole returns which role owns the given 1-based pick number.
// Round 1: first, other. Round 2: other, first. Round 3: first, other. ...
func ExpectedRole(first Role, pickNumber int) Role {
	other := Other(first)
	round := (pickNumber - 1) / 2
	within := (pickNumber - 1) % 2
	if round%2 == 0 {
		if within == 0 {
			return first
		}
		return other
	}
	if within == 0 {
		return other
	}
	return first
}

// Start picks the first mover uniformly at random. Idempotent: starting a
// started state returns it unchanged.
func (s TurnState) Start() TurnState {
	if s.Started {
		return s
	}
	first := RoleHost
	if rand.IntN(2) == 1 {
		first = RoleGuest
	}
	return TurnState{Started: true, FirstTurn: first, PickNumber: 0, Current: first}
}

// StartAs is Start with a caller-chosen first mover, used when rehydrating a
// draft whose first turn was already persisted.
func (s TurnState) StartAs(first Role) TurnState {
	if s.Started {
		return s
	}
	return TurnState{Started: true, FirstTurn: first, PickNumber: 0, Current: first}
}

// Advance commits one pick by acting and returns the new state, the number
// of the pick just committed, and whose turn is next.
func (s TurnState) Advance(acting Role) (TurnState, int, Role, error) {
	if !s.Started || s.FirstTurn == "" {
		return s, 0, "", ErrNotStarted
	}
	if s.Current != acting {
		return s, 0, "", ErrWrongTurn
	}
	next := s
	next.PickNumber++
	next.Current = ExpectedRole(next.FirstTurn, next.PickNumber+1)
	return next, next.PickNumber, next.Current, nil
}

// Rewind undoes the most recent committed pick and returns the new state
// plus the role that owns the reopened turn.
func (s TurnState) Rewind() (TurnState, Role, error) {
	if !s.Started || s.FirstTurn == "" {
		return s, "", ErrNotStarted
	}
	if s.PickNumber == 0 {
		return s, "", ErrNothingToUndo
	}
	next := s
	next.PickNumber--
	next.Current = ExpectedRole(next.FirstTurn, next.PickNumber+1)
	return next, next.Current, nil
}

// Rehydrated rebuilds turn state from persisted facts: whether the draft
// left the lobby, the persisted first mover, and the committed pick count.
func Rehydrated(started bool, first Role, pickCount int) TurnState {
	if !started || !first.Valid() {
		return TurnState{}
	}
	return TurnState{
		Started:    true,
		FirstTurn:  first,
		PickNumber: pickCount,
		Current:    ExpectedRole(first, pickCount+1),
	}
}
