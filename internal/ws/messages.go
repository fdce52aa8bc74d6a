package ws

import (
	"github.com/hoopdraft/hoopdraft/internal/roller"
	"github.com/hoopdraft/hoopdraft/internal/session"
)

// Command names form a closed set; dispatch goes through the handler table
// in handler.go so an unsupported command is a single, exhaustive case.
const (
	cmdStart         = "start"
	cmdRoll          = "roll"
	cmdForceReroll   = "force_reroll"
	cmdSelectPreview = "select_preview"
	cmdMakePick      = "make_pick"
	cmdSetSetting    = "set_setting"
	cmdUndoLastPick  = "undo_last_pick"
	cmdRename        = "rename"
)

type ClientMessage struct {
	Type string `json:"type"`

	// make_pick / select_preview
	PlayerID       uint   `json:"player_id,omitempty"`
	ConstraintTeam string `json:"constraint_team,omitempty"`
	ConstraintYear string `json:"constraint_year,omitempty"`

	// set_setting
	Setting string `json:"setting,omitempty"`
	Value   *bool  `json:"value,omitempty"`

	// rename
	Name string `json:"name,omitempty"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errEvent(message string) errorEvent {
	return errorEvent{Type: "error", Message: message}
}

type snapshotEvent struct {
	Type           string                      `json:"type"`
	DraftID        uint                        `json:"draft_id"`
	DraftPublicID  string                      `json:"draft_public_id"`
	Name           string                      `json:"name,omitempty"`
	Connected      []string                    `json:"connected"`
	Started        bool                        `json:"started"`
	FirstTurn      string                      `json:"first_turn,omitempty"`
	CurrentTurn    string                      `json:"current_turn,omitempty"`
	PickNumber     int                         `json:"pick_number"`
	PicksPerPlayer int                         `json:"picks_per_player"`
	Completed      bool                        `json:"completed"`
	Picks          []session.PickView          `json:"picks"`
	Constraint     *roller.Constraint          `json:"constraint,omitempty"`
	ConstraintRole string                      `json:"constraint_role,omitempty"`
	OnlyEligible   bool                        `json:"only_eligible"`
	Previews       map[string]*session.Preview `json:"previews,omitempty"`
	Rerolls        map[string]int              `json:"rerolls"`
}

type rollStartedEvent struct {
	Type    string `json:"type"`
	DraftID uint   `json:"draft_id"`
	Stage   string `json:"stage"`
	ByRole  string `json:"by_role"`
}

type rollStageResultEvent struct {
	Type       string             `json:"type"`
	DraftID    uint               `json:"draft_id"`
	Stage      string             `json:"stage"`
	ByRole     string             `json:"by_role"`
	Constraint *roller.Constraint `json:"constraint"`
}

type rollResultEvent struct {
	Type       string             `json:"type"`
	DraftID    uint               `json:"draft_id"`
	ByRole     string             `json:"by_role"`
	Forced     bool               `json:"forced,omitempty"`
	Constraint *roller.Constraint `json:"constraint"`
}

type rollErrorEvent struct {
	Type    string `json:"type"`
	DraftID uint   `json:"draft_id"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

type pickCommittedEvent struct {
	Type      string           `json:"type"`
	DraftID   uint             `json:"draft_id"`
	Pick      session.PickView `json:"pick"`
	NextTurn  string           `json:"next_turn"`
	Completed bool             `json:"completed"`
}

type previewUpdatedEvent struct {
	Type    string           `json:"type"`
	DraftID uint             `json:"draft_id"`
	Role    string           `json:"role"`
	Preview *session.Preview `json:"preview"`
}

type settingUpdatedEvent struct {
	Type    string `json:"type"`
	DraftID uint   `json:"draft_id"`
	Setting string `json:"setting"`
	Value   any    `json:"value"`
}

type connectionUpdateEvent struct {
	Type      string   `json:"type"`
	DraftID   uint     `json:"draft_id"`
	Connected []string `json:"connected"`
}
