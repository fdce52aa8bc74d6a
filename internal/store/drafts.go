package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hoopdraft/hoopdraft/internal/engine"
	"github.com/hoopdraft/hoopdraft/internal/models"
)

// DraftByRef resolves either a numeric internal id or a public uuid, so
// websocket URLs and API routes accept both forms.
func (s *Store) DraftByRef(ctx context.Context, ref string) (*models.Draft, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return s.DraftByID(ctx, uint(id))
	}
	pub, err := uuid.Parse(ref)
	if err != nil {
		return nil, ErrNotFound
	}
	var d models.Draft
	if err := s.db.WithContext(ctx).Where("public_id = ?", pub).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Store) DraftByID(ctx context.Context, id uint) (*models.Draft, error) {
	var d models.Draft
	if err := s.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Store) CreateDraft(ctx context.Context, d *models.Draft) error {
	if d.PublicID == uuid.Nil {
		d.PublicID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(d).Error
}

// JoinDraft installs the guest exactly once; a second distinct guest gets
// ErrAlreadyDrafted-style conflict semantics via the returned bool.
func (s *Store) JoinDraft(ctx context.Context, draftID uint, guestName string) (joined bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Draft
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, draftID).Error; err != nil {
			return notFound(err)
		}
		if d.GuestName != "" && d.GuestName != guestName {
			joined = false
			return nil
		}
		joined = true
		if d.GuestName == "" {
			return tx.Model(&d).Update("guest_name", guestName).Error
		}
		return nil
	})
	return joined, err
}

func (s *Store) RulesForDraft(ctx context.Context, draftID uint) (json.RawMessage, error) {
	var d models.Draft
	if err := s.db.WithContext(ctx).Preload("DraftType").First(&d, draftID).Error; err != nil {
		return nil, notFound(err)
	}
	return d.DraftType.Rules, nil
}

// MarkStarted persists the first mover and flips status to drafting. If a
// concurrent start (or an earlier run) already did so, the persisted first
// mover wins and is returned unchanged.
func (s *Store) MarkStarted(ctx context.Context, draftID uint, first engine.Role) (engine.Role, error) {
	persisted := first
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Draft
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, draftID).Error; err != nil {
			return notFound(err)
		}
		if prior, ok := engine.ParseRole(d.FirstTurn); ok && d.Status != models.StatusLobby {
			persisted = prior
			return nil
		}
		return tx.Model(&d).Updates(map[string]any{
			"first_turn": string(first),
			"status":     models.StatusDrafting,
		}).Error
	})
	return persisted, err
}

func (s *Store) SaveConstraint(ctx context.Context, draftID uint, c json.RawMessage, role engine.Role) error {
	return s.db.WithContext(ctx).Model(&models.Draft{}).Where("id = ?", draftID).
		Updates(map[string]any{
			"current_constraint":      c,
			"current_constraint_role": string(role),
		}).Error
}

func (s *Store) ClearConstraint(ctx context.Context, draftID uint) error {
	return s.db.WithContext(ctx).Model(&models.Draft{}).Where("id = ?", draftID).
		Updates(map[string]any{
			"current_constraint":      nil,
			"current_constraint_role": "",
		}).Error
}

func (s *Store) SetOnlyEligible(ctx context.Context, draftID uint, v bool) error {
	return s.db.WithContext(ctx).Model(&models.Draft{}).Where("id = ?", draftID).
		Update("only_eligible", v).Error
}

func (s *Store) RenameDraft(ctx context.Context, draftID uint, name string) error {
	return s.db.WithContext(ctx).Model(&models.Draft{}).Where("id = ?", draftID).
		Update("name", name).Error
}

// SpendReroll atomically checks and decrements the acting role's reroll
// counter under a row lock. An untouched counter is seeded from the rule
// set's budget inside the same transaction, so two tabs racing the first
// reroll cannot double-seed or double-spend. Returns ok=false (and no write)
// when the budget is exhausted.
func (s *Store) SpendReroll(ctx context.Context, draftID uint, role engine.Role, budget int) (remaining int, ok bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Draft
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, draftID).Error; err != nil {
			return notFound(err)
		}
		counter := d.HostRerolls
		column := "host_rerolls"
		if role == engine.RoleGuest {
			counter = d.GuestRerolls
			column = "guest_rerolls"
		}
		left := budget
		if counter != nil {
			left = *counter
		}
		if left <= 0 {
			ok = false
			remaining = 0
			return nil
		}
		left--
		ok = true
		remaining = left
		return tx.Model(&d).Update(column, left).Error
	})
	return remaining, ok, err
}

// CompleteIfDone flips status to completed once both roles hold a full
// roster. Idempotent: an already-completed draft is left alone, including
// its completion timestamp.
func (s *Store) CompleteIfDone(ctx context.Context, draftID uint, picksPerPlayer int) (completed bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Draft
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, draftID).Error; err != nil {
			return notFound(err)
		}
		if d.Status == models.StatusCompleted {
			return nil
		}
		var counts []struct {
			Role string
			N    int64
		}
		if err := tx.Model(&models.DraftPick{}).
			Select("role, count(*) as n").
			Where("draft_id = ?", draftID).
			Group("role").
			Scan(&counts).Error; err != nil {
			return err
		}
		done := map[string]bool{}
		for _, c := range counts {
			done[c.Role] = c.N >= int64(picksPerPlayer)
		}
		if !done[string(engine.RoleHost)] || !done[string(engine.RoleGuest)] {
			return nil
		}
		now := time.Now().UTC()
		completed = true
		return tx.Model(&d).Updates(map[string]any{
			"status":       models.StatusCompleted,
			"completed_at": now,
		}).Error
	})
	return completed, err
}

// Reopen returns a completed draft to drafting after an undo.
func (s *Store) Reopen(ctx context.Context, draftID uint) error {
	return s.db.WithContext(ctx).Model(&models.Draft{}).
		Where("id = ? AND status = ?", draftID, models.StatusCompleted).
		Updates(map[string]any{
			"status":       models.StatusDrafting,
			"completed_at": nil,
		}).Error
}
