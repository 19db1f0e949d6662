package territory

import (
	"math"
	"math/rand"

	"github.com/talgya/tradewinds/internal/world"
)

// Eligible reports whether a resource of type rt may spawn on t. Every type
// requires an interior land tile away from the coast.
func Eligible(rt world.ResourceType, t *world.Tile) bool {
	if !t.IsLand || t.IsCoast || !t.IsInterior() {
		return false
	}
	switch rt {
	case world.ResourceWood, world.ResourcePine:
		return !t.IsMountain
	case world.ResourceStone:
		return true
	case world.ResourceIron, world.ResourceAmber:
		return t.IsMountain
	default:
		return false
	}
}

// spawnPool tracks the member tiles of a territory not yet used by a
// resource or harbor.
type spawnPool struct {
	tiles []*world.Tile
}

func newSpawnPool(tiles []*world.Tile) *spawnPool {
	return &spawnPool{tiles: append([]*world.Tile(nil), tiles...)}
}

func (p *spawnPool) take(t *world.Tile) {
	for i, u := range p.tiles {
		if u == t {
			p.tiles = append(p.tiles[:i], p.tiles[i+1:]...)
			return
		}
	}
}

// SpawnCount is floor(sqrt(eligible*rate + u)) for u uniform in [0, 1).
func SpawnCount(eligible int, rate, u float64) int {
	return int(math.Sqrt(float64(eligible)*rate + u))
}

// spawnResources places resources type by type, drawing each type's tiles
// without replacement from the shared pool.
func spawnResources(pool *spawnPool, rates map[world.ResourceType]float64, rng *rand.Rand) []world.Resource {
	var out []world.Resource
	for _, rt := range world.ResourceTypes {
		var eligible []*world.Tile
		for _, t := range pool.tiles {
			if Eligible(rt, t) {
				eligible = append(eligible, t)
			}
		}
		n := SpawnCount(len(eligible), rates[rt], rng.Float64())
		if n <= 0 || len(eligible) == 0 {
			continue
		}
		if n > len(eligible) {
			n = len(eligible)
		}
		for _, t := range sample(eligible, n, rng) {
			t.Resource = &rt
			out = append(out, world.Resource{Tile: t.ID, Type: rt})
			pool.take(t)
		}
	}
	return out
}

// sample draws n distinct tiles with a partial Fisher-Yates shuffle.
func sample(tiles []*world.Tile, n int, rng *rand.Rand) []*world.Tile {
	s := append([]*world.Tile(nil), tiles...)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(s)-i)
		s[i], s[j] = s[j], s[i]
	}
	return s[:n]
}
