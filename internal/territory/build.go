// Package territory partitions landmasses into bounded-size territories and
// populates them with boundaries, resources and harbors.
package territory

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"

	"github.com/talgya/tradewinds/internal/harbor"
	"github.com/talgya/tradewinds/internal/world"
)

// Options controls territory creation.
type Options struct {
	TerritorySize int
	MaxIterations int
	SpawnRates    map[world.ResourceType]float64
}

// ClusterCount is ceil(n/size) clamped to [1, n].
func ClusterCount(n, size int) int {
	k := int(math.Ceil(float64(n) / float64(size)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// Build clusters every landmass into territories and stores them, their
// harbors and the per-landmass territory groups on w. Territory and harbor
// ids are assigned sequentially in landmass order. Empty clusters are
// skipped.
func Build(w *world.World, landmasses [][]*world.Tile, opts Options, rng *rand.Rand) {
	w.Territories = nil
	w.Harbors = nil
	w.Landmasses = nil

	for _, region := range landmasses {
		if len(region) == 0 {
			continue
		}
		k := ClusterCount(len(region), opts.TerritorySize)
		points := make([]orb.Point, len(region))
		for i, t := range region {
			points[i] = t.Center
		}
		kmRng := rand.New(rand.NewSource(rng.Int63()))
		labels := KMeans(points, k, opts.MaxIterations, kmRng)

		clusters := make([][]*world.Tile, k)
		for i, t := range region {
			clusters[labels[i]] = append(clusters[labels[i]], t)
		}

		var group []int
		for _, members := range clusters {
			if len(members) == 0 {
				continue
			}
			terr := newTerritory(w, len(w.Territories), members, opts, rng)
			w.Territories = append(w.Territories, terr)
			group = append(group, terr.ID)
		}
		if len(group) > 0 {
			w.Landmasses = append(w.Landmasses, group)
		}
	}
}

func newTerritory(w *world.World, id int, members []*world.Tile, opts Options, rng *rand.Rand) *world.Territory {
	terr := &world.Territory{
		ID:          id,
		Centroid:    centroid(members),
		FillColor:   randomColor(rng, 0),
		BorderColor: randomColor(rng, 2),
		Tiles:       make([]world.TileID, len(members)),
	}
	for i, t := range members {
		t.TerritoryID = id
		terr.Tiles[i] = t.ID
	}
	terr.Exteriors, terr.Interiors, terr.Shape = Outline(members)

	pool := newSpawnPool(members)
	terr.Resources = spawnResources(pool, opts.SpawnRates, rng)

	for _, site := range harbor.PickSites(members, rng) {
		h := world.NewHarbor(world.HarborID(len(w.Harbors)), site.ID, id)
		w.Harbors = append(w.Harbors, h)
		terr.Harbors = append(terr.Harbors, h)
		pool.take(site)
	}
	return terr
}

func centroid(tiles []*world.Tile) orb.Point {
	var c orb.Point
	for _, t := range tiles {
		c[0] += t.Center[0]
		c[1] += t.Center[1]
	}
	n := float64(len(tiles))
	return orb.Point{c[0] / n, c[1] / n}
}

// randomColor returns a color dominated by the given channel.
func randomColor(rng *rand.Rand, dominant int) world.RGB {
	var c world.RGB
	for i := range c {
		if i == dominant {
			c[i] = uint8(150 + rng.Intn(106))
		} else {
			c[i] = uint8(rng.Intn(100))
		}
	}
	return c
}
