package models

// Catalog rows are owned by the ingestion tooling; the draft core only reads
// them through the catalog query service.

type Player struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:140;not null;index" json:"name"`

	Position        string `gorm:"size:30;index" json:"position"`
	CareerStartYear *int   `gorm:"index" json:"career_start_year"`
	RetirementYear  *int   `gorm:"index" json:"retirement_year"`
	HallOfFame      bool   `gorm:"not null;default:false;index" json:"hall_of_fame"`
	ImageURL        string `gorm:"size:500" json:"image_url"`

	Stints []PlayerTeamStint `gorm:"foreignKey:PlayerID" json:"stints,omitempty"`
}

// Active reports whether the player has no recorded retirement year.
func (p Player) Active() bool { return p.RetirementYear == nil }

type Team struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:120;not null;index" json:"name"`
	City         string `gorm:"size:80" json:"city"`
	Abbreviation string `gorm:"size:10;uniqueIndex" json:"abbreviation"`

	Conference string `gorm:"size:20;index" json:"conference"`
	Division   string `gorm:"size:30;index" json:"division"`

	FoundedYear   *int `json:"founded_year"`
	DissolvedYear *int `json:"dissolved_year"`

	// Relocation/renaming lineage: the current identity points back at its
	// predecessor. Chains may be arbitrarily deep and, with bad data, cyclic;
	// walkers must carry a visited set.
	PreviousTeamID *uint `gorm:"index" json:"previous_team_id"`

	LogoURL string `gorm:"size:500" json:"logo_url"`
}

// ActiveIn reports whether the franchise existed during any part of the
// inclusive [start, end] year window. Unknown bounds count as open.
func (t Team) ActiveIn(start, end int) bool {
	if t.FoundedYear != nil && *t.FoundedYear > end {
		return false
	}
	if t.DissolvedYear != nil && *t.DissolvedYear < start {
		return false
	}
	return true
}

// PlayerTeamStint records one affiliation span. Years are season start years;
// a nil EndYear means the stint is ongoing.
type PlayerTeamStint struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	PlayerID uint `gorm:"not null;index;uniqueIndex:uq_stint_player_team_start" json:"player_id"`
	TeamID   uint `gorm:"not null;index;uniqueIndex:uq_stint_player_team_start" json:"team_id"`

	StartYear int  `gorm:"not null;index;uniqueIndex:uq_stint_player_team_start" json:"start_year"`
	EndYear   *int `gorm:"index" json:"end_year"`
}

// Overlaps reports whether the stint touches the inclusive [start, end]
// window, treating an open end as "through the current year".
func (s PlayerTeamStint) Overlaps(start, end, currentYear int) bool {
	stintEnd := currentYear
	if s.EndYear != nil {
		stintEnd = *s.EndYear
	}
	return s.StartYear <= end && stintEnd >= start
}
