package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/engine"
	"github.com/hoopdraft/hoopdraft/internal/models"
	"github.com/hoopdraft/hoopdraft/internal/roller"
	"github.com/hoopdraft/hoopdraft/internal/session"
)

// rehydrate rebuilds the session cache from durable state. It runs on every
// connect, not just the first, so it must be idempotent: already-cached
// host-controlled settings are kept so a second connecting role cannot
// clobber what the first role already sees.
func (h *Handler) rehydrate(ctx context.Context, s *session.Session, draftID uint) error {
	draft, err := h.store.DraftByID(ctx, draftID)
	if err != nil {
		return err
	}

	// The completion check after the final pick can fail transiently; it is
	// idempotent, so re-run it whenever a drafting session rehydrates.
	if draft.Status == models.StatusDrafting {
		done, err := h.store.CompleteIfDone(ctx, draftID, draft.PicksPerPlayer)
		if err != nil {
			h.log.Error("completion check",
				zap.Uint("draft_id", draftID), zap.Error(err))
		} else if done {
			draft.Status = models.StatusCompleted
		}
	}

	raw, err := h.store.RulesForDraft(ctx, draftID)
	if err != nil {
		return err
	}
	rules, err := roller.DecodeRules(raw)
	if err != nil {
		return err
	}
	rows, err := h.store.PicksForDraft(ctx, draftID)
	if err != nil {
		return err
	}

	picks := make([]session.PickView, 0, len(rows))
	for _, row := range rows {
		picks = append(picks, pickView(row))
	}

	started := draft.Status != models.StatusLobby
	first, ok := engine.ParseRole(draft.FirstTurn)
	if !ok && started && len(picks) > 0 {
		// Drafts started before the first mover was persisted: the earliest
		// pick's role is the first mover by definition.
		first, _ = engine.ParseRole(picks[0].Role)
	}

	var constraint *roller.Constraint
	constraintRole := engine.Role("")
	if len(draft.CurrentConstraint) > 0 {
		var c roller.Constraint
		if err := json.Unmarshal(draft.CurrentConstraint, &c); err != nil {
			// A constraint we can no longer decode is dropped, not fatal: the
			// turn owner simply rolls again.
			h.log.Warn("discarding undecodable persisted constraint",
				zap.Uint("draft_id", draftID), zap.Error(err))
		} else {
			constraint = &c
			constraintRole, _ = engine.ParseRole(draft.CurrentConstraintRole)
		}
	}

	s.Lock()
	defer s.Unlock()

	s.PublicID = draft.PublicID.String()
	s.Turn = engine.Rehydrated(started, first, len(picks))
	s.Picks = picks
	s.Constraint = constraint
	s.ConstraintRole = constraintRole
	s.Rules = &rules
	s.PicksPerPlayer = draft.PicksPerPlayer

	if s.OnlyEligible == nil {
		v := rules.Suggest
		if draft.OnlyEligible != nil {
			v = *draft.OnlyEligible
		}
		s.OnlyEligible = &v
	}
	if s.Name == "" {
		s.Name = draft.Name
	}
	return nil
}

func pickView(row models.DraftPick) session.PickView {
	return session.PickView{
		PickNumber:     row.PickNumber,
		Role:           row.Role,
		PlayerID:       row.PlayerID,
		PlayerName:     row.Player.Name,
		PlayerImageURL: row.Player.ImageURL,
		ConstraintTeam: row.ConstraintTeam,
		ConstraintYear: row.ConstraintYear,
	}
}
