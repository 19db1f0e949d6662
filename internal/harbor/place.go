// Package harbor places harbors on territory coasts and finds trade routes
// between harbors that share an ocean.
package harbor

import (
	"math/rand"

	"github.com/talgya/tradewinds/internal/world"
)

// PickSites chooses at most one harbor tile per ocean that the territory
// touches. Candidates are coastal, non-mountain members grouped by their
// ocean id; one tile is drawn uniformly from each group. Groups are visited
// in the order their first tile appears in members.
func PickSites(members []*world.Tile, rng *rand.Rand) []*world.Tile {
	groups := make(map[int][]*world.Tile)
	var order []int
	for _, t := range members {
		if !t.IsCoast || t.IsMountain || t.OceanID == world.NoOcean {
			continue
		}
		if _, ok := groups[t.OceanID]; !ok {
			order = append(order, t.OceanID)
		}
		groups[t.OceanID] = append(groups[t.OceanID], t)
	}

	sites := make([]*world.Tile, 0, len(order))
	for _, ocean := range order {
		g := groups[ocean]
		sites = append(sites, g[rng.Intn(len(g))])
	}
	return sites
}
