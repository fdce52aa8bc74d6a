package roller

// Stage names, in the fixed order they roll.
const (
	StageEra       = "era"
	StageFranchise = "franchise"
	StageLetter    = "letter"
	StagePlayer    = "player"
)

// TeamRef is the franchise slice of a constraint, shaped for the wire.
type TeamRef struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	LogoURL      string `json:"logo_url,omitempty"`
}

// PlayerRef is a concrete-player draw within a constraint option.
type PlayerRef struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// Option is one candidate constraint. Dimensions the rule set holds static
// stay at their zero value, which downstream filtering reads as "no
// constraint" for that dimension.
type Option struct {
	EraLabel string `json:"era_label,omitempty"`
	EraStart int    `json:"era_start,omitempty"`
	EraEnd   int    `json:"era_end,omitempty"`

	Team *TeamRef `json:"team,omitempty"`

	Letter     string `json:"letter,omitempty"`
	LetterPart string `json:"letter_part,omitempty"`

	Player *PlayerRef `json:"player,omitempty"`
}

// Constraint is a completed (or in-progress) roll: roll_count parallel
// options plus how far the staging has gotten.
type Constraint struct {
	Options []Option `json:"options"`
	// Stage is the last stage whose values are present in Options.
	Stage string `json:"stage"`
}

func (c *Constraint) clone() *Constraint {
	cp := &Constraint{Stage: c.Stage, Options: make([]Option, len(c.Options))}
	copy(cp.Options, c.Options)
	return cp
}

// RollError is a typed pool-exhaustion failure: the stage that ran dry and a
// message both clients can show.
type RollError struct {
	Stage   string
	Message string
}

func (e *RollError) Error() string { return e.Stage + ": " + e.Message }
