package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DraftStatus string

const (
	StatusLobby     DraftStatus = "lobby"
	StatusDrafting  DraftStatus = "drafting"
	StatusCompleted DraftStatus = "completed"
)

type Draft struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	PublicID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"public_id"`
	Name     string    `gorm:"size:120" json:"name"`

	DraftTypeID uint      `gorm:"not null;index" json:"draft_type_id"`
	DraftType   DraftType `gorm:"foreignKey:DraftTypeID" json:"-"`

	HostName  string `gorm:"size:80;not null" json:"host_name"`
	GuestName string `gorm:"size:80" json:"guest_name"`

	PicksPerPlayer int `gorm:"not null;default:10" json:"picks_per_player"`

	// Host-controlled lobby toggle; nil means "never set", in which case the
	// rule set's suggest default applies at rehydration.
	OnlyEligible *bool       `json:"only_eligible"`
	Status       DraftStatus `gorm:"size:30;not null;default:lobby;index" json:"status"`
	FirstTurn    string      `gorm:"size:10" json:"first_turn"`

	// Reroll counters are nullable so a draft that has never spent one can be
	// seeded from its rule set inside the same row-locked transaction that
	// spends the first reroll.
	HostRerolls  *int `json:"host_rerolls"`
	GuestRerolls *int `json:"guest_rerolls"`

	// In-flight rolled constraint, mirrored here so a mid-turn reconnect does
	// not lose the roll.
	CurrentConstraint     json.RawMessage `gorm:"type:jsonb" json:"current_constraint"`
	CurrentConstraintRole string          `gorm:"size:10" json:"current_constraint_role"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Picks []DraftPick `gorm:"foreignKey:DraftID" json:"picks,omitempty"`
}

type DraftPick struct {
	ID uint `gorm:"primaryKey" json:"id"`

	DraftID  uint   `gorm:"not null;index;uniqueIndex:uq_draft_player;uniqueIndex:uq_draft_pick_number" json:"draft_id"`
	PlayerID uint   `gorm:"not null;uniqueIndex:uq_draft_player" json:"player_id"`
	Player   Player `gorm:"foreignKey:PlayerID" json:"-"`

	PickNumber int    `gorm:"not null;uniqueIndex:uq_draft_pick_number" json:"pick_number"`
	Role       string `gorm:"size:10;not null;default:host;index" json:"role"`

	// Constraint snapshot kept as plain labels so rule sets can evolve
	// without breaking old pick rows.
	ConstraintTeam string `gorm:"size:120" json:"constraint_team"`
	ConstraintYear string `gorm:"size:40" json:"constraint_year"`

	PickedAt time.Time `gorm:"autoCreateTime" json:"picked_at"`
}

type DraftType struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:120;not null;index" json:"name"`
	Description string          `gorm:"size:500" json:"description"`
	Rules       json.RawMessage `gorm:"type:jsonb;not null" json:"rules"`
	CreatedAt   time.Time       `json:"created_at"`
}
