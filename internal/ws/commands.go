package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/engine"
	"github.com/hoopdraft/hoopdraft/internal/models"
	"github.com/hoopdraft/hoopdraft/internal/roller"
	"github.com/hoopdraft/hoopdraft/internal/session"
	"github.com/hoopdraft/hoopdraft/internal/store"
)

// Command handlers answer protocol and conflict errors themselves (one error
// event to the sender, no state change) and return nil. A non-nil return is
// an infrastructure failure: the dispatcher logs it, sends a generic error,
// and tears the connection down.

// handleStart begins the draft. Host only. Idempotent: if the draft already
// started (in memory or durably), the persisted first mover wins and the
// command just rebroadcasts the snapshot.
func (h *Handler) handleStart(ctx context.Context, s *session.Session, role engine.Role, _ ClientMessage) error {
	if role != engine.RoleHost {
		s.SendTo(role, errEvent("only the host can start the draft"))
		return nil
	}

	s.Lock()
	candidate := s.Turn.Start()
	s.Unlock()

	first, err := h.store.MarkStarted(ctx, s.DraftID, candidate.FirstTurn)
	if err != nil {
		return fmt.Errorf("start draft: %w", err)
	}

	s.Lock()
	s.Turn = s.Turn.StartAs(first)
	s.Unlock()

	snap, err := h.buildSnapshot(ctx, s)
	if err != nil {
		return fmt.Errorf("start snapshot: %w", err)
	}
	s.Broadcast(snap)
	return nil
}

func (h *Handler) handleRoll(ctx context.Context, s *session.Session, role engine.Role, _ ClientMessage) error {
	return h.roll(ctx, s, role, false)
}

// handleForceReroll rerolls the current turn's constraint for whichever role
// is on the clock, without spending anyone's budget. Host only.
func (h *Handler) handleForceReroll(ctx context.Context, s *session.Session, role engine.Role, _ ClientMessage) error {
	if role != engine.RoleHost {
		s.SendTo(role, errEvent("only the host can force a reroll"))
		return nil
	}
	return h.roll(ctx, s, role, true)
}

// rollPublisher relays roller stage events to both connections.
type rollPublisher struct {
	s      *session.Session
	byRole engine.Role
}

func (p rollPublisher) StageStarted(stage string) {
	p.s.Broadcast(rollStartedEvent{
		Type:    "roll_started",
		DraftID: p.s.DraftID,
		Stage:   stage,
		ByRole:  string(p.byRole),
	})
}

func (p rollPublisher) StageResolved(stage string, partial *roller.Constraint) {
	p.s.Broadcast(rollStageResultEvent{
		Type:       "roll_stage_result",
		DraftID:    p.s.DraftID,
		Stage:      stage,
		ByRole:     string(p.byRole),
		Constraint: partial,
	})
}

func (h *Handler) roll(ctx context.Context, s *session.Session, role engine.Role, force bool) error {
	s.Lock()
	if !s.Turn.Started {
		s.Unlock()
		s.SendTo(role, errEvent("draft not started"))
		return nil
	}
	target := s.Turn.Current
	if !force && role != target {
		s.Unlock()
		s.SendTo(role, errEvent("not your turn"))
		return nil
	}
	pickAt := s.Turn.PickNumber
	isReroll := s.Constraint != nil
	rules := *s.Rules
	exclude := s.PickedPlayerIDs()
	s.Unlock()

	// The first roll of a turn is free. A reroll spends the acting role's
	// budget, except when the host forces it. An exhausted budget is a
	// silent no-op: no broadcast, no error.
	if isReroll && !force {
		_, ok, err := h.store.SpendReroll(ctx, s.DraftID, target, rules.MaxRerolls)
		if err != nil {
			return fmt.Errorf("spend reroll: %w", err)
		}
		if !ok {
			return nil
		}
	}

	constraint, err := h.roller.Roll(ctx, rules, exclude, rollPublisher{s: s, byRole: target})
	if err != nil {
		var rollErr *roller.RollError
		if errors.As(err, &rollErr) {
			// Abort broadcast; the previously committed constraint, if any,
			// stays in place.
			s.Broadcast(rollErrorEvent{
				Type:    "roll_error",
				DraftID: s.DraftID,
				Stage:   rollErr.Stage,
				Message: rollErr.Message,
			})
			return nil
		}
		return fmt.Errorf("roll: %w", err)
	}

	payload, err := json.Marshal(constraint)
	if err != nil {
		return fmt.Errorf("encode constraint: %w", err)
	}

	// The staged roll ran unlocked; a pick or undo may have moved the turn in
	// the meantime. Re-validate and persist under the same critical section,
	// so a roll for a spent turn is discarded without touching storage.
	s.Lock()
	if !s.Turn.Started || s.Turn.PickNumber != pickAt || s.Turn.Current != target {
		s.Unlock()
		h.log.Info("discarding stale roll",
			zap.Uint("draft_id", s.DraftID),
			zap.String("role", string(target)))
		return nil
	}
	if err := h.store.SaveConstraint(ctx, s.DraftID, payload, target); err != nil {
		s.Unlock()
		return fmt.Errorf("persist constraint: %w", err)
	}
	s.Constraint = constraint
	s.ConstraintRole = target
	s.Unlock()

	s.Broadcast(rollResultEvent{
		Type:       "roll_result",
		DraftID:    s.DraftID,
		ByRole:     string(target),
		Forced:     force,
		Constraint: constraint,
	})
	return nil
}

// handleSelectPreview updates the sender's ephemeral preview. Never
// persisted; cleared when that role commits a pick. player_id 0 clears.
func (h *Handler) handleSelectPreview(ctx context.Context, s *session.Session, role engine.Role, msg ClientMessage) error {
	var preview *session.Preview
	if msg.PlayerID != 0 {
		player, err := h.store.PlayerByID(ctx, msg.PlayerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.SendTo(role, errEvent("player not found"))
				return nil
			}
			return fmt.Errorf("load preview player: %w", err)
		}
		preview = &session.Preview{PlayerID: player.ID, PlayerName: player.Name}
	}

	s.Lock()
	if preview == nil {
		delete(s.Previews, role)
	} else {
		s.Previews[role] = preview
	}
	s.Unlock()

	s.Broadcast(previewUpdatedEvent{
		Type:    "preview_updated",
		DraftID: s.DraftID,
		Role:    string(role),
		Preview: preview,
	})
	return nil
}

func (h *Handler) handleMakePick(ctx context.Context, s *session.Session, role engine.Role, msg ClientMessage) error {
	if msg.PlayerID == 0 {
		s.SendTo(role, errEvent("player_id required"))
		return nil
	}

	// Turn ownership is checked before anything touches storage, but the
	// advanced turn state is committed to the session only after the durable
	// insert succeeds, so a rejected pick leaves the turn unspent.
	s.Lock()
	advanced, pickNumber, nextTurn, err := s.Turn.Advance(role)
	if err != nil {
		s.Unlock()
		s.SendTo(role, errEvent(err.Error()))
		return nil
	}
	team, year := msg.ConstraintTeam, msg.ConstraintYear
	if team == "" && year == "" && s.Constraint != nil && len(s.Constraint.Options) == 1 {
		// Single-option rolls carry their labels onto the pick row even when
		// the client omits them.
		opt := s.Constraint.Options[0]
		if opt.Team != nil {
			team = opt.Team.Name
		}
		year = opt.EraLabel
	}
	picksPerPlayer := s.PicksPerPlayer
	s.Unlock()

	player, err := h.store.PlayerByID(ctx, msg.PlayerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.SendTo(role, errEvent("player not found"))
			return nil
		}
		return fmt.Errorf("load player: %w", err)
	}

	row := &models.DraftPick{
		DraftID:        s.DraftID,
		PlayerID:       player.ID,
		PickNumber:     pickNumber,
		Role:           string(role),
		ConstraintTeam: team,
		ConstraintYear: year,
	}
	if err := h.store.InsertPick(ctx, row); err != nil {
		if errors.Is(err, store.ErrAlreadyDrafted) {
			s.SendTo(role, errEvent("player already drafted"))
			return nil
		}
		return fmt.Errorf("insert pick: %w", err)
	}
	completed, err := h.store.CompleteIfDone(ctx, s.DraftID, picksPerPlayer)
	if err != nil {
		// The pick is committed; rehydrate re-runs the check on the next
		// connect. Log and keep going.
		h.log.Error("completion check",
			zap.Uint("draft_id", s.DraftID), zap.Error(err))
	}

	view := session.PickView{
		PickNumber:     pickNumber,
		Role:           string(role),
		PlayerID:       player.ID,
		PlayerName:     player.Name,
		PlayerImageURL: player.ImageURL,
		ConstraintTeam: team,
		ConstraintYear: year,
	}

	// The durable clear and the cache commit share one critical section, so
	// an in-flight roll re-validating the turn can never persist its result
	// between them. A rehydrate racing the insert may already have cached the
	// new pick row; the tail check keeps the pick log duplicate-free.
	s.Lock()
	if err := h.store.ClearConstraint(ctx, s.DraftID); err != nil {
		h.log.Error("clear constraint",
			zap.Uint("draft_id", s.DraftID), zap.Error(err))
	}
	s.Turn = advanced
	if n := len(s.Picks); n == 0 || s.Picks[n-1].PickNumber < pickNumber {
		s.Picks = append(s.Picks, view)
	}
	s.Constraint = nil
	s.ConstraintRole = ""
	delete(s.Previews, role)
	s.Unlock()

	s.Broadcast(pickCommittedEvent{
		Type:      "pick_committed",
		DraftID:   s.DraftID,
		Pick:      view,
		NextTurn:  string(nextTurn),
		Completed: completed,
	})
	return nil
}

// handleSetSetting flips a host-controlled lobby setting. Only only_eligible
// exists today.
func (h *Handler) handleSetSetting(ctx context.Context, s *session.Session, role engine.Role, msg ClientMessage) error {
	if role != engine.RoleHost {
		s.SendTo(role, errEvent("only the host can change settings"))
		return nil
	}
	if msg.Setting != "only_eligible" {
		s.SendTo(role, errEvent("unknown setting"))
		return nil
	}
	if msg.Value == nil {
		s.SendTo(role, errEvent("value must be a boolean"))
		return nil
	}
	value := *msg.Value

	if err := h.store.SetOnlyEligible(ctx, s.DraftID, value); err != nil {
		return fmt.Errorf("persist setting: %w", err)
	}

	s.Lock()
	s.OnlyEligible = &value
	s.Unlock()

	s.Broadcast(settingUpdatedEvent{
		Type:    "setting_updated",
		DraftID: s.DraftID,
		Setting: "only_eligible",
		Value:   value,
	})
	return nil
}

// handleUndoLastPick is the commissioner escape hatch: remove the most
// recent pick across both roles, rewind the turn, and reopen a completed
// draft. Host only.
func (h *Handler) handleUndoLastPick(ctx context.Context, s *session.Session, role engine.Role, _ ClientMessage) error {
	if role != engine.RoleHost {
		s.SendTo(role, errEvent("only the host can undo a pick"))
		return nil
	}

	s.Lock()
	rewound, _, err := s.Turn.Rewind()
	s.Unlock()
	if err != nil {
		s.SendTo(role, errEvent(err.Error()))
		return nil
	}

	removed, err := h.store.DeleteLatestPick(ctx, s.DraftID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.SendTo(role, errEvent("nothing to undo"))
			return nil
		}
		return fmt.Errorf("undo pick: %w", err)
	}
	if err := h.store.Reopen(ctx, s.DraftID); err != nil {
		h.log.Error("reopen draft", zap.Uint("draft_id", s.DraftID), zap.Error(err))
	}
	if err := h.store.ClearConstraint(ctx, s.DraftID); err != nil {
		h.log.Error("clear constraint", zap.Uint("draft_id", s.DraftID), zap.Error(err))
	}

	s.Lock()
	s.Turn = rewound
	if n := len(s.Picks); n > 0 && s.Picks[n-1].PickNumber == removed.PickNumber {
		s.Picks = s.Picks[:n-1]
	}
	s.Constraint = nil
	s.ConstraintRole = ""
	s.Unlock()

	snap, err := h.buildSnapshot(ctx, s)
	if err != nil {
		return fmt.Errorf("undo snapshot: %w", err)
	}
	s.Broadcast(snap)
	return nil
}

func (h *Handler) handleRename(ctx context.Context, s *session.Session, role engine.Role, msg ClientMessage) error {
	if role != engine.RoleHost {
		s.SendTo(role, errEvent("only the host can rename the draft"))
		return nil
	}
	name := strings.TrimSpace(msg.Name)
	if name == "" || len(name) > 120 {
		s.SendTo(role, errEvent("name must be 1-120 characters"))
		return nil
	}

	if err := h.store.RenameDraft(ctx, s.DraftID, name); err != nil {
		return fmt.Errorf("rename draft: %w", err)
	}

	s.Lock()
	s.Name = name
	s.Unlock()

	s.Broadcast(settingUpdatedEvent{
		Type:    "setting_updated",
		DraftID: s.DraftID,
		Setting: "name",
		Value:   name,
	})
	return nil
}
