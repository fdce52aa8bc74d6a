// Package roller computes the server-authoritative randomized constraint for
// a turn. A roll runs its active dimensions in a fixed order (era, franchise,
// letter, player), resolving all parallel options for a dimension before
// publishing a partial result and pausing for the client animation. Any
// dimension whose candidate pool is empty aborts the remaining stages with a
// typed RollError; the previously committed constraint is never touched by a
// failed attempt.
package roller

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/hoopdraft/hoopdraft/internal/catalog"
	"github.com/hoopdraft/hoopdraft/internal/models"
)

// Catalog is the eligibility query surface the roller needs. The production
// implementation is catalog.Service; tests swap in a fixture.
type Catalog interface {
	TeamsIn(ctx context.Context, f catalog.TeamFilter) ([]models.Team, error)
	AllTeams(ctx context.Context) ([]models.Team, error)
	Sample(ctx context.Context, f catalog.PlayerFilter, n int) ([]models.Player, error)
}

// Publisher receives stage lifecycle events: a start notice as each stage
// begins and the accumulated constraint-so-far once it resolves.
type Publisher interface {
	StageStarted(stage string)
	StageResolved(stage string, partial *Constraint)
}

type Roller struct {
	catalog Catalog
	log     *zap.Logger

	// sleep is swapped out in tests; the default honors ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(c Catalog, log *zap.Logger) *Roller {
	return &Roller{
		catalog: c,
		log:     log,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// Roll executes the active stages and returns the completed constraint.
// exclude lists player ids already drafted in this draft; publish is invoked
// once per completed stage with a snapshot of the builder.
func (r *Roller) Roll(ctx context.Context, rules RuleSet, exclude []uint, publish Publisher) (*Constraint, error) {
	c := &Constraint{Options: make([]Option, rules.RollCount)}

	type stage struct {
		name   string
		active bool
		run    func(ctx context.Context, c *Constraint) error
	}
	stages := []stage{
		{StageEra, rules.Era.Type == "decade", func(ctx context.Context, c *Constraint) error {
			return r.rollEra(c, rules)
		}},
		{StageFranchise, rules.Franchise.Type != "none", func(ctx context.Context, c *Constraint) error {
			return r.rollFranchise(ctx, c, rules)
		}},
		{StageLetter, rules.Letter.Type == "letters", func(ctx context.Context, c *Constraint) error {
			return r.rollLetter(c, rules)
		}},
		{StagePlayer, rules.Player.Type == "uniform", func(ctx context.Context, c *Constraint) error {
			return r.rollPlayer(ctx, c, rules, exclude)
		}},
	}

	var pending []stage
	for _, st := range stages {
		if st.active {
			pending = append(pending, st)
		}
	}
	for i, st := range pending {
		if publish != nil {
			publish.StageStarted(st.name)
		}
		if err := st.run(ctx, c); err != nil {
			r.log.Info("roll aborted",
				zap.String("stage", st.name),
				zap.Error(err))
			return nil, err
		}
		c.Stage = st.name
		if publish != nil {
			publish.StageResolved(st.name, c.clone())
		}
		if i < len(pending)-1 {
			if err := r.sleep(ctx, rules.StageDelay); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (r *Roller) rollEra(c *Constraint, rules RuleSet) error {
	for i := range c.Options {
		label := rules.Era.Options[rand.IntN(len(rules.Era.Options))]
		start, end, ok := ParseDecade(label)
		if !ok {
			return &RollError{Stage: StageEra, Message: "invalid decade option " + label}
		}
		c.Options[i].EraLabel = label
		c.Options[i].EraStart = start
		c.Options[i].EraEnd = end
	}
	return nil
}

func (r *Roller) rollFranchise(ctx context.Context, c *Constraint, rules RuleSet) error {
	all, err := r.catalog.AllTeams(ctx)
	if err != nil {
		return err
	}
	roots := catalog.LineageRoots(all)

	for i := range c.Options {
		opt := &c.Options[i]
		filter := teamFilterFor(opt, rules)
		teams, err := r.catalog.TeamsIn(ctx, filter)
		if err != nil {
			return err
		}
		if len(teams) == 0 {
			return &RollError{Stage: StageFranchise, Message: "no franchises available for " + opt.EraLabel}
		}

		// Pick uniformly among lineages, not identities, so a franchise with
		// several historical names is not over-weighted; then show whichever
		// identity was active in the window.
		byRoot := map[uint][]models.Team{}
		var order []uint
		for _, t := range teams {
			root, ok := roots[t.ID]
			if !ok {
				root = t.ID
			}
			if _, seen := byRoot[root]; !seen {
				order = append(order, root)
			}
			byRoot[root] = append(byRoot[root], t)
		}
		members := byRoot[order[rand.IntN(len(order))]]
		team := members[rand.IntN(len(members))]
		opt.Team = &TeamRef{
			ID:           team.ID,
			Name:         team.Name,
			Abbreviation: team.Abbreviation,
			LogoURL:      team.LogoURL,
		}
	}
	return nil
}

func (r *Roller) rollLetter(c *Constraint, rules RuleSet) error {
	for i := range c.Options {
		c.Options[i].Letter = rules.Letter.Options[rand.IntN(len(rules.Letter.Options))]
		c.Options[i].LetterPart = rules.Letter.Part
	}
	return nil
}

func (r *Roller) rollPlayer(ctx context.Context, c *Constraint, rules RuleSet, exclude []uint) error {
	// Options must be mutually exclusive: each draw excludes players already
	// drafted and players taken by an earlier option of this same roll.
	taken := append([]uint(nil), exclude...)
	for i := range c.Options {
		opt := &c.Options[i]
		filter, err := r.PlayerFilter(ctx, *opt, rules, taken)
		if err != nil {
			return err
		}
		players, err := r.catalog.Sample(ctx, filter, 1)
		if err != nil {
			return err
		}
		if len(players) == 0 {
			return &RollError{Stage: StagePlayer, Message: "no eligible players left for this constraint"}
		}
		p := players[0]
		opt.Player = &PlayerRef{ID: p.ID, Name: p.Name, ImageURL: p.ImageURL}
		taken = append(taken, p.ID)
	}
	return nil
}

// PlayerFilter expands one constraint option into the composed eligibility
// filter, including the full lineage of the rolled franchise. It is also
// used outside the roller to validate eligible-only picks.
func (r *Roller) PlayerFilter(ctx context.Context, opt Option, rules RuleSet, exclude []uint) (catalog.PlayerFilter, error) {
	f := catalog.PlayerFilter{
		StartYear:     opt.EraStart,
		EndYear:       opt.EraEnd,
		ExcludeIDs:    exclude,
		ActiveOnly:    rules.Player.ActiveOnly,
		MinFranchises: rules.Player.MinFranchises,
		MaxFranchises: rules.Player.MaxFranchises,
	}
	if opt.Letter != "" {
		f.Letters = []string{opt.Letter}
		f.NamePart = opt.LetterPart
	}
	if opt.Team != nil {
		all, err := r.catalog.AllTeams(ctx)
		if err != nil {
			return f, err
		}
		f.TeamIDs = catalog.Lineage(all, opt.Team.ID)
	}
	return f, nil
}

func teamFilterFor(opt *Option, rules RuleSet) catalog.TeamFilter {
	f := catalog.TeamFilter{StartYear: opt.EraStart, EndYear: opt.EraEnd}
	if f.EndYear == 0 {
		// Era dimension inactive: resolve to an unbounded window.
		f.StartYear = 0
		f.EndYear = time.Now().UTC().Year()
	}
	switch rules.Franchise.Type {
	case "conference":
		f.Conferences = rules.Franchise.Options
	case "division":
		f.Divisions = rules.Franchise.Options
	case "specific":
		f.Abbrevs = rules.Franchise.Options
	}
	return f
}
