package territory

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/talgya/tradewinds/internal/world"
)

// precision is the vertex snapping grid used to match shared hex corners.
const precision = 1e6

type vertexKey [2]int64

func keyOf(p orb.Point) vertexKey {
	return vertexKey{int64(math.Round(p[0] * precision)), int64(math.Round(p[1] * precision))}
}

type edge struct {
	from, to vertexKey
}

// Outline returns the boundary of the union of the tiles' polygons: the
// exterior rings, the interior (hole) rings, and the assembled multipolygon.
//
// Every tile polygon contributes its directed edges. An edge shared by two
// member tiles appears once in each direction and cancels out; what remains
// is the boundary. In a hex grid every corner joins three cells, so each
// boundary vertex has exactly one outgoing boundary edge and the remaining
// edges chain into simple closed rings. Rings wound like the tiles are
// exteriors, rings wound the other way are holes.
func Outline(tiles []*world.Tile) (exteriors, interiors []orb.Ring, shape orb.MultiPolygon) {
	if len(tiles) == 0 {
		return nil, nil, nil
	}

	points := make(map[vertexKey]orb.Point)
	present := make(map[edge]bool)
	var order []edge
	for _, t := range tiles {
		ring := t.Polygon
		for i := 0; i+1 < len(ring); i++ {
			a, b := keyOf(ring[i]), keyOf(ring[i+1])
			points[a], points[b] = ring[i], ring[i+1]
			rev := edge{b, a}
			if present[rev] {
				delete(present, rev)
				continue
			}
			e := edge{a, b}
			present[e] = true
			order = append(order, e)
		}
	}

	next := make(map[vertexKey]vertexKey, len(present))
	for e := range present {
		next[e.from] = e.to
	}

	tileWinding := signedArea(tiles[0].Polygon) > 0
	used := make(map[vertexKey]bool, len(next))
	for _, e := range order {
		if !present[e] || used[e.from] {
			continue
		}
		var ring orb.Ring
		for v := e.from; !used[v]; v = next[v] {
			used[v] = true
			ring = append(ring, points[v])
			if _, ok := next[v]; !ok {
				break
			}
		}
		if len(ring) < 3 {
			continue
		}
		ring = append(ring, ring[0])
		if (signedArea(ring) > 0) == tileWinding {
			exteriors = append(exteriors, ring)
		} else {
			interiors = append(interiors, ring)
		}
	}

	shape = assemble(exteriors, interiors)
	return exteriors, interiors, shape
}

// assemble attaches each hole to the smallest exterior containing it.
func assemble(exteriors, interiors []orb.Ring) orb.MultiPolygon {
	if len(exteriors) == 0 {
		return nil
	}
	mp := make(orb.MultiPolygon, len(exteriors))
	areas := make([]float64, len(exteriors))
	for i, ext := range exteriors {
		mp[i] = orb.Polygon{ext}
		areas[i] = math.Abs(signedArea(ext))
	}
	for _, hole := range interiors {
		owner := -1
		for i, ext := range exteriors {
			if planar.RingContains(ext, hole[0]) && (owner < 0 || areas[i] < areas[owner]) {
				owner = i
			}
		}
		if owner >= 0 {
			mp[owner] = append(mp[owner], hole)
		}
	}
	return mp
}

// signedArea is the shoelace area; its sign gives the ring's winding.
func signedArea(r orb.Ring) float64 {
	sum := 0.0
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}
