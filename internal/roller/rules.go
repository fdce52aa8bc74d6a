package roller

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rule documents are stored per draft type and decoded once per roll. Each
// dimension is a closed tagged variant; an unknown tag is a decode error so
// a typo in a rule set fails loudly instead of silently rolling everything.

const (
	maxRollCount      = 4
	defaultStageDelay = 900 * time.Millisecond
	defaultMaxRerolls = 3
)

var defaultDecades = []string{
	"1950-1959", "1960-1969", "1970-1979", "1980-1989",
	"1990-1999", "2000-2009", "2010-2019", "2020-2029",
}

type EraRule struct {
	Type    string   `json:"type"` // "none" | "decade"
	Options []string `json:"options"`
}

type FranchiseRule struct {
	Type    string   `json:"type"` // "none" | "conference" | "division" | "specific"
	Options []string `json:"options"`
}

type LetterRule struct {
	Type    string   `json:"type"` // "none" | "letters"
	Part    string   `json:"part"` // "first" | "last" | "either"
	Options []string `json:"options"`
}

type PlayerRule struct {
	Type          string `json:"type"` // "none" | "uniform"
	ActiveOnly    bool   `json:"active_only"`
	MinFranchises int    `json:"min_franchises"`
	MaxFranchises int    `json:"max_franchises"`
}

type RuleSet struct {
	RollCount  int           `json:"roll_count"`
	StageDelay time.Duration `json:"-"`
	MaxRerolls int           `json:"max_rerolls"`
	Suggest    bool          `json:"suggest"`

	Era       EraRule       `json:"era"`
	Franchise FranchiseRule `json:"franchise"`
	Letter    LetterRule    `json:"letter"`
	Player    PlayerRule    `json:"player"`
}

type rawRuleSet struct {
	RollCount    int           `json:"roll_count"`
	StageDelayMs int           `json:"stage_delay_ms"`
	MaxRerolls   *int          `json:"max_rerolls"`
	Suggest      *bool         `json:"suggest"`
	Era          EraRule       `json:"era"`
	Franchise    FranchiseRule `json:"franchise"`
	Letter       LetterRule    `json:"letter"`
	Player       PlayerRule    `json:"player"`
}

// DecodeRules parses a rule document, applying defaults for omitted fields.
// A nil or empty document yields the classic ruleset: single-option
// decade+franchise roll, suggestions on.
func DecodeRules(raw json.RawMessage) (RuleSet, error) {
	var r rawRuleSet
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &r); err != nil {
			return RuleSet{}, fmt.Errorf("decode rules: %w", err)
		}
	}

	rs := RuleSet{
		RollCount:  r.RollCount,
		StageDelay: defaultStageDelay,
		MaxRerolls: defaultMaxRerolls,
		Suggest:    true,
		Era:        r.Era,
		Franchise:  r.Franchise,
		Letter:     r.Letter,
		Player:     r.Player,
	}
	if rs.RollCount < 1 {
		rs.RollCount = 1
	}
	if rs.RollCount > maxRollCount {
		rs.RollCount = maxRollCount
	}
	if r.StageDelayMs > 0 {
		rs.StageDelay = time.Duration(r.StageDelayMs) * time.Millisecond
	}
	if r.MaxRerolls != nil && *r.MaxRerolls >= 0 {
		rs.MaxRerolls = *r.MaxRerolls
	}
	if r.Suggest != nil {
		rs.Suggest = *r.Suggest
	}

	if rs.Era.Type == "" {
		rs.Era.Type = "decade"
	}
	switch rs.Era.Type {
	case "none":
	case "decade":
		if len(rs.Era.Options) == 0 {
			rs.Era.Options = defaultDecades
		}
		for _, opt := range rs.Era.Options {
			if _, _, ok := ParseDecade(opt); !ok {
				return RuleSet{}, fmt.Errorf("invalid decade option %q", opt)
			}
		}
	default:
		return RuleSet{}, fmt.Errorf("unknown era rule type %q", rs.Era.Type)
	}

	if rs.Franchise.Type == "" {
		rs.Franchise.Type = "specific"
	}
	switch rs.Franchise.Type {
	case "none", "conference", "division", "specific":
	default:
		return RuleSet{}, fmt.Errorf("unknown franchise rule type %q", rs.Franchise.Type)
	}

	if rs.Letter.Type == "" {
		rs.Letter.Type = "none"
	}
	switch rs.Letter.Type {
	case "none":
	case "letters":
		if rs.Letter.Part == "" {
			rs.Letter.Part = "first"
		}
		switch rs.Letter.Part {
		case "first", "last", "either":
		default:
			return RuleSet{}, fmt.Errorf("unknown letter part %q", rs.Letter.Part)
		}
		var letters []string
		for _, opt := range rs.Letter.Options {
			l := strings.ToUpper(strings.TrimSpace(opt))
			if len(l) != 1 || l[0] < 'A' || l[0] > 'Z' {
				return RuleSet{}, fmt.Errorf("invalid letter option %q", opt)
			}
			letters = append(letters, l)
		}
		if len(letters) == 0 {
			for c := byte('A'); c <= 'Z'; c++ {
				letters = append(letters, string(c))
			}
		}
		rs.Letter.Options = letters
	default:
		return RuleSet{}, fmt.Errorf("unknown letter rule type %q", rs.Letter.Type)
	}

	if rs.Player.Type == "" {
		rs.Player.Type = "uniform"
	}
	switch rs.Player.Type {
	case "none", "uniform":
	default:
		return RuleSet{}, fmt.Errorf("unknown player rule type %q", rs.Player.Type)
	}

	return rs, nil
}

// ParseDecade splits a "1990-1999" label into its inclusive year bounds.
func ParseDecade(label string) (start, end int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(label), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if start < 1800 || end < start {
		return 0, 0, false
	}
	return start, end, true
}
