package catalog

import (
	"sort"

	"github.com/hoopdraft/hoopdraft/internal/models"
)

// rootOf walks the previous-identity chain from id to its oldest ancestor.
// The walk is iterative and bounded by a visited set: franchise data is
// scraped, and a bad row can easily make the chain cyclic.
func rootOf(byID map[uint]models.Team, id uint) uint {
	visited := map[uint]bool{}
	cur := id
	for {
		if visited[cur] {
			return cur
		}
		visited[cur] = true
		t, ok := byID[cur]
		if !ok || t.PreviousTeamID == nil {
			return cur
		}
		cur = *t.PreviousTeamID
	}
}

// LineageRoots maps every team id to the root id of its renaming/relocation
// chain, so chained identities coalesce into one franchise.
func LineageRoots(teams []models.Team) map[uint]uint {
	byID := make(map[uint]models.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	roots := make(map[uint]uint, len(teams))
	for id := range byID {
		roots[id] = rootOf(byID, id)
	}
	return roots
}

// Lineage returns every team id sharing a root with id, including id itself.
// A roll constrained to one franchise identity accepts stints with any
// identity in its lineage.
func Lineage(teams []models.Team, id uint) []uint {
	roots := LineageRoots(teams)
	want, ok := roots[id]
	if !ok {
		return []uint{id}
	}
	var out []uint
	for tid, root := range roots {
		if root == want {
			out = append(out, tid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FranchiseCount counts distinct franchises across a player's stints,
// treating consecutive stints within the same lineage as a single unit: a
// player who stayed put through a relocation did not change franchise.
func FranchiseCount(stints []models.PlayerTeamStint, roots map[uint]uint) int {
	if len(stints) == 0 {
		return 0
	}
	ordered := make([]models.PlayerTeamStint, len(stints))
	copy(ordered, stints)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StartYear < ordered[j].StartYear })

	count := 0
	var prevRoot uint
	for i, st := range ordered {
		root, ok := roots[st.TeamID]
		if !ok {
			root = st.TeamID
		}
		if i == 0 || root != prevRoot {
			count++
		}
		prevRoot = root
	}
	return count
}
