package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoopdraft/hoopdraft/internal/models"
)

func ptr[T any](v T) *T { return &v }

// Franchise A founded 1967, relocated and renamed to B in 2008, B still
// active. B points back at A.
func relocatedFranchise() []models.Team {
	return []models.Team{
		{ID: 1, Name: "Seattle SuperSonics", FoundedYear: ptr(1967), DissolvedYear: ptr(2008)},
		{ID: 2, Name: "Oklahoma City Thunder", FoundedYear: ptr(2008), PreviousTeamID: ptr(uint(1))},
	}
}

func TestLineageRootsCoalesceChain(t *testing.T) {
	roots := LineageRoots(relocatedFranchise())
	require.Equal(t, uint(1), roots[1])
	require.Equal(t, uint(1), roots[2])
}

func TestLineageExpandsBothDirections(t *testing.T) {
	teams := relocatedFranchise()
	require.Equal(t, []uint{1, 2}, Lineage(teams, 1))
	require.Equal(t, []uint{1, 2}, Lineage(teams, 2))
}

func TestLineageTerminatesOnCycle(t *testing.T) {
	teams := []models.Team{
		{ID: 1, PreviousTeamID: ptr(uint(2))},
		{ID: 2, PreviousTeamID: ptr(uint(3))},
		{ID: 3, PreviousTeamID: ptr(uint(1))},
	}
	roots := LineageRoots(teams)
	// Every member of the cycle must resolve to a stable root, whatever it is.
	require.Len(t, roots, 3)
	require.Equal(t, roots[1], roots[roots[1]])
}

func TestActiveInWindows(t *testing.T) {
	teams := relocatedFranchise()
	a, b := teams[0], teams[1]

	require.True(t, a.ActiveIn(1990, 1999))
	require.False(t, b.ActiveIn(1990, 1999))
	require.False(t, a.ActiveIn(2010, 2019))
	require.True(t, b.ActiveIn(2010, 2019))
}

func TestFranchiseCountCoalescesConsecutiveLineage(t *testing.T) {
	roots := LineageRoots(relocatedFranchise())

	// Stayed through the relocation: one franchise.
	stayed := []models.PlayerTeamStint{
		{TeamID: 1, StartYear: 2005, EndYear: ptr(2008)},
		{TeamID: 2, StartYear: 2008, EndYear: ptr(2012)},
	}
	require.Equal(t, 1, FranchiseCount(stayed, roots))

	// Left for an unrelated team and came back: three units.
	journeyman := []models.PlayerTeamStint{
		{TeamID: 1, StartYear: 2005, EndYear: ptr(2008)},
		{TeamID: 9, StartYear: 2008, EndYear: ptr(2010)},
		{TeamID: 2, StartYear: 2010, EndYear: ptr(2014)},
	}
	require.Equal(t, 3, FranchiseCount(journeyman, roots))

	require.Equal(t, 0, FranchiseCount(nil, roots))
}

func TestMatchesLetters(t *testing.T) {
	cases := []struct {
		name    string
		letters []string
		part    string
		want    bool
	}{
		{"Kevin Durant", []string{"K"}, "first", true},
		{"Kevin Durant", []string{"D"}, "first", false},
		{"Kevin Durant", []string{"D"}, "last", true},
		{"Kevin Durant", []string{"K", "Z"}, "either", true},
		{"Kevin Durant", nil, "first", true},
		{"Nene", []string{"X"}, "last", false},
	}
	for _, tc := range cases {
		if got := matchesLetters(tc.name, tc.letters, tc.part); got != tc.want {
			t.Fatalf("%s %v %s: got %v, want %v", tc.name, tc.letters, tc.part, got, tc.want)
		}
	}
}
