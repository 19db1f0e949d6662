// Package region extracts connected components of the tile graph: landmasses
// and oceans.
package region

import (
	"github.com/talgya/tradewinds/internal/world"
)

// Components returns the maximal connected groups of tiles among candidates.
// Components are discovered in candidate order and each is listed in BFS
// order, so the output is stable for a fixed candidate order.
func Components(candidates []*world.Tile) [][]*world.Tile {
	member := make(map[world.TileID]bool, len(candidates))
	for _, t := range candidates {
		member[t.ID] = true
	}
	visited := make(map[world.TileID]bool, len(candidates))

	var regions [][]*world.Tile
	for _, start := range candidates {
		if visited[start.ID] {
			continue
		}
		visited[start.ID] = true
		var current []*world.Tile
		queue := []*world.Tile{start}
		for len(queue) > 0 {
			t := queue[0]
			queue = queue[1:]
			current = append(current, t)
			for _, adj := range t.Adjacent {
				if member[adj.ID] && !visited[adj.ID] {
					visited[adj.ID] = true
					queue = append(queue, adj)
				}
			}
		}
		regions = append(regions, current)
	}
	return regions
}

// Select returns the tiles matching keep, in id order.
func Select(tiles []*world.Tile, keep func(*world.Tile) bool) []*world.Tile {
	var out []*world.Tile
	for _, t := range tiles {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Landmasses groups all land tiles into contiguous landmasses.
func Landmasses(tiles []*world.Tile) [][]*world.Tile {
	return Components(Select(tiles, func(t *world.Tile) bool { return t.IsLand }))
}

// IndexOceans assigns a sequential ocean id to every connected body of water
// and returns the water tiles of each ocean by id.
func IndexOceans(tiles []*world.Tile) map[int][]world.TileID {
	oceans := make(map[int][]world.TileID)
	water := Select(tiles, func(t *world.Tile) bool { return !t.IsLand })
	for id, comp := range Components(water) {
		ids := make([]world.TileID, len(comp))
		for i, t := range comp {
			t.OceanID = id
			ids[i] = t.ID
		}
		oceans[id] = ids
	}
	return oceans
}

// AssignCoasts gives every coastal land tile the highest ocean id among its
// water neighbors, or world.NoOcean if none has one.
func AssignCoasts(tiles []*world.Tile) {
	for _, t := range tiles {
		if !t.IsCoast {
			continue
		}
		t.OceanID = world.NoOcean
		for _, adj := range t.Adjacent {
			if !adj.IsLand && adj.OceanID > t.OceanID {
				t.OceanID = adj.OceanID
			}
		}
	}
}
