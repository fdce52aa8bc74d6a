package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hoopdraft/hoopdraft/internal/models"
)

// PicksForDraft returns the full pick log in pick-number order with player
// rows attached, ready for rehydration.
func (s *Store) PicksForDraft(ctx context.Context, draftID uint) ([]models.DraftPick, error) {
	var picks []models.DraftPick
	err := s.db.WithContext(ctx).
		Preload("Player").
		Where("draft_id = ?", draftID).
		Order("pick_number asc").
		Find(&picks).Error
	return picks, err
}

// InsertPick writes one pick row. The (draft, player) and (draft, pick
// number) unique indexes are the last line of defense against two tabs
// racing the same commit; violations come back as typed errors, not crashes.
func (s *Store) InsertPick(ctx context.Context, pick *models.DraftPick) error {
	err := s.db.WithContext(ctx).Create(pick).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyDrafted
	}
	return err
}

// DeleteLatestPick removes the highest-numbered pick and returns it, with
// the player row attached for the broadcast.
func (s *Store) DeleteLatestPick(ctx context.Context, draftID uint) (*models.DraftPick, error) {
	var pick models.DraftPick
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Player").
			Where("draft_id = ?", draftID).
			Order("pick_number desc").
			First(&pick).Error; err != nil {
			return notFound(err)
		}
		return tx.Delete(&models.DraftPick{}, pick.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &pick, nil
}

func (s *Store) PlayerByID(ctx context.Context, id uint) (*models.Player, error) {
	var p models.Player
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
