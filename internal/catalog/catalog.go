// Package catalog answers eligibility queries for the constraint roller:
// which franchises existed in a window, which players satisfy a composed
// constraint, and a uniform sample among them. Catalog rows are read-only
// here; ingestion lives elsewhere.
package catalog

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hoopdraft/hoopdraft/internal/models"
)

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// TeamFilter narrows the franchise pool for a roll.
type TeamFilter struct {
	StartYear   int
	EndYear     int
	Conferences []string
	Divisions   []string
	Abbrevs     []string
}

// TeamsIn returns franchises active during the window, narrowed by the
// optional enumerated filters.
func (s *Service) TeamsIn(ctx context.Context, f TeamFilter) ([]models.Team, error) {
	q := s.db.WithContext(ctx).Model(&models.Team{}).
		Where("(founded_year IS NULL OR founded_year <= ?)", f.EndYear).
		Where("(dissolved_year IS NULL OR dissolved_year >= ?)", f.StartYear)
	if len(f.Conferences) > 0 {
		q = q.Where("conference IN ?", f.Conferences)
	}
	if len(f.Divisions) > 0 {
		q = q.Where("division IN ?", f.Divisions)
	}
	if len(f.Abbrevs) > 0 {
		q = q.Where("abbreviation IN ?", f.Abbrevs)
	}
	var teams []models.Team
	err := q.Find(&teams).Error
	return teams, err
}

// AllTeams loads the full franchise table, used for lineage resolution.
func (s *Service) AllTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.WithContext(ctx).Find(&teams).Error
	return teams, err
}

// PlayerFilter composes every eligibility dimension of a rolled constraint.
// Zero values mean "no constraint" for their dimension.
type PlayerFilter struct {
	StartYear int
	EndYear   int

	// TeamIDs is the full lineage of the rolled franchise; a stint with any
	// of these identities counts, provided it overlaps the window.
	TeamIDs []uint

	Letters  []string // single uppercase letters
	NamePart string   // "first", "last", or "either"

	ExcludeIDs []uint // already-picked players

	ActiveOnly    bool
	MinFranchises int // 0 = no bound
	MaxFranchises int // 0 = no bound
}

// Eligible returns every player passing the composed filter. The cheap
// dimensions run in SQL; lineage coalescing and franchise counting need the
// stint rows anyway, so they run here.
func (s *Service) Eligible(ctx context.Context, f PlayerFilter) ([]models.Player, error) {
	currentYear := time.Now().UTC().Year()

	q := s.db.WithContext(ctx).Model(&models.Player{}).Preload("Stints")
	if len(f.TeamIDs) > 0 || f.StartYear != 0 || f.EndYear != 0 {
		sub := s.db.Model(&models.PlayerTeamStint{}).
			Select("1").
			Where("player_team_stints.player_id = players.id")
		if len(f.TeamIDs) > 0 {
			sub = sub.Where("player_team_stints.team_id IN ?", f.TeamIDs)
		}
		if f.StartYear != 0 || f.EndYear != 0 {
			sub = sub.Where("player_team_stints.start_year <= ?", f.EndYear).
				Where("COALESCE(player_team_stints.end_year, ?) >= ?", currentYear, f.StartYear)
		}
		q = q.Where("EXISTS (?)", sub)
	}
	if len(f.ExcludeIDs) > 0 {
		q = q.Where("players.id NOT IN ?", f.ExcludeIDs)
	}
	if f.ActiveOnly {
		q = q.Where("players.retirement_year IS NULL")
	}

	var candidates []models.Player
	if err := q.Find(&candidates).Error; err != nil {
		return nil, err
	}

	var roots map[uint]uint
	if f.MinFranchises > 0 || f.MaxFranchises > 0 {
		teams, err := s.AllTeams(ctx)
		if err != nil {
			return nil, err
		}
		roots = LineageRoots(teams)
	}

	out := candidates[:0]
	for _, p := range candidates {
		if !matchesLetters(p.Name, f.Letters, f.NamePart) {
			continue
		}
		if roots != nil {
			n := FranchiseCount(p.Stints, roots)
			if f.MinFranchises > 0 && n < f.MinFranchises {
				continue
			}
			if f.MaxFranchises > 0 && n > f.MaxFranchises {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// Count reports the pool size without materializing a choice.
func (s *Service) Count(ctx context.Context, f PlayerFilter) (int, error) {
	players, err := s.Eligible(ctx, f)
	return len(players), err
}

// Sample draws n distinct players uniformly from the eligible pool. Fewer
// than n eligible players is a short (possibly empty) result, not an error;
// the roller owns the empty-pool policy.
func (s *Service) Sample(ctx context.Context, f PlayerFilter, n int) ([]models.Player, error) {
	players, err := s.Eligible(ctx, f)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})
	if len(players) > n {
		players = players[:n]
	}
	return players, nil
}

// matchesLetters checks the name-letter dimension. First name is the first
// word, last name the second; "either" accepts a hit on both.
func matchesLetters(name string, letters []string, part string) bool {
	if len(letters) == 0 {
		return true
	}
	words := strings.Fields(name)
	first, last := "", ""
	if len(words) > 0 {
		first = strings.ToUpper(words[0][:1])
	}
	if len(words) > 1 {
		last = strings.ToUpper(words[1][:1])
	}
	hit := func(l string) bool {
		for _, want := range letters {
			if l == want {
				return true
			}
		}
		return false
	}
	switch part {
	case "last":
		return hit(last)
	case "either":
		return hit(first) || hit(last)
	default:
		return hit(first)
	}
}
