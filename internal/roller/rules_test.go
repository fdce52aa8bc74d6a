package roller

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeRulesDefaults(t *testing.T) {
	rs, err := DecodeRules(nil)
	require.NoError(t, err)

	require.Equal(t, 1, rs.RollCount)
	require.Equal(t, 900*time.Millisecond, rs.StageDelay)
	require.Equal(t, 3, rs.MaxRerolls)
	require.True(t, rs.Suggest)
	require.Equal(t, "decade", rs.Era.Type)
	require.Len(t, rs.Era.Options, 8)
	require.Equal(t, "specific", rs.Franchise.Type)
	require.Empty(t, rs.Franchise.Options) // no enumerated filter: all franchises
	require.Equal(t, "none", rs.Letter.Type)
	require.Equal(t, "uniform", rs.Player.Type)
}

func TestDecodeRulesFull(t *testing.T) {
	raw := json.RawMessage(`{
		"roll_count": 3,
		"stage_delay_ms": 50,
		"max_rerolls": 1,
		"suggest": false,
		"era": {"type": "decade", "options": ["1990-1999", "2000-2009"]},
		"franchise": {"type": "conference", "options": ["East"]},
		"letter": {"type": "letters", "part": "last", "options": ["k", "M"]},
		"player": {"type": "uniform", "active_only": true, "max_franchises": 1}
	}`)
	rs, err := DecodeRules(raw)
	require.NoError(t, err)

	require.Equal(t, 3, rs.RollCount)
	require.Equal(t, 50*time.Millisecond, rs.StageDelay)
	require.Equal(t, 1, rs.MaxRerolls)
	require.False(t, rs.Suggest)
	require.Equal(t, []string{"East"}, rs.Franchise.Options)
	require.Equal(t, []string{"K", "M"}, rs.Letter.Options) // normalized upper
	require.Equal(t, "last", rs.Letter.Part)
	require.True(t, rs.Player.ActiveOnly)
	require.Equal(t, 1, rs.Player.MaxFranchises)
}

func TestDecodeRulesRejectsUnknownVariants(t *testing.T) {
	cases := []string{
		`{"era": {"type": "century"}}`,
		`{"franchise": {"type": "galaxy"}}`,
		`{"letter": {"type": "letters", "part": "middle"}}`,
		`{"letter": {"type": "letters", "options": ["AB"]}}`,
		`{"player": {"type": "weighted"}}`,
		`{"era": {"type": "decade", "options": ["nineties"]}}`,
	}
	for _, raw := range cases {
		if _, err := DecodeRules(json.RawMessage(raw)); err == nil {
			t.Fatalf("expected decode error for %s", raw)
		}
	}
}

func TestDecodeRulesClampsRollCount(t *testing.T) {
	rs, err := DecodeRules(json.RawMessage(`{"roll_count": 99}`))
	require.NoError(t, err)
	require.Equal(t, maxRollCount, rs.RollCount)

	rs, err = DecodeRules(json.RawMessage(`{"roll_count": -2}`))
	require.NoError(t, err)
	require.Equal(t, 1, rs.RollCount)
}

func TestParseDecade(t *testing.T) {
	cases := []struct {
		label string
		start int
		end   int
		ok    bool
	}{
		{"1990-1999", 1990, 1999, true},
		{" 2000-2009 ", 2000, 2009, true},
		{"1999-1990", 0, 0, false},
		{"1700-1709", 0, 0, false},
		{"nineties", 0, 0, false},
		{"1990", 0, 0, false},
	}
	for _, tc := range cases {
		start, end, ok := ParseDecade(tc.label)
		if ok != tc.ok || start != tc.start || end != tc.end {
			t.Fatalf("%q: got (%d,%d,%v), want (%d,%d,%v)", tc.label, start, end, ok, tc.start, tc.end, tc.ok)
		}
	}
}
