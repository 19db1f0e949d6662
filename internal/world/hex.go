// Package world provides the hex tile grid and the generated world aggregate.
// Tiles use an offset-column layout: odd columns are shifted half a row down,
// so a tile's six neighbors depend on the parity of its column.
package world

import (
	"math"

	"github.com/paulmach/orb"
)

// TileID is the dense, 0-based index of a tile. It is stable for the lifetime
// of a generated world and doubles as the index into World.Tiles.
type TileID int

// NoOcean marks a tile that is not connected to any ocean.
const NoOcean = -1

// NoTerritory marks a tile that has not been assigned to a territory.
const NoTerritory = -1

// GridCoord is a tile position in offset grid coordinates.
type GridCoord struct {
	X int `json:"gx"`
	Y int `json:"gy"`
}

// RGB is a display color.
type RGB [3]uint8

// Tile represents a single hex cell on the world map.
type Tile struct {
	ID     TileID    `json:"id"`
	Grid   GridCoord `json:"grid"`
	Center orb.Point `json:"center"`

	// Polygon is the closed six-vertex outline of the tile (first vertex repeated).
	Polygon orb.Ring `json:"-"`

	// Scalar fields, each in [0, 1].
	WaterLevel     float64 `json:"water_level"`
	ElevationNoise float64 `json:"elevation_noise"`
	MoistureNoise  float64 `json:"moisture_noise"`

	IsLand     bool `json:"is_land"`
	IsMountain bool `json:"is_mountain"`
	IsCoast    bool `json:"is_coast"`

	OceanID     int `json:"ocean_id"`
	TerritoryID int `json:"territory_id"`

	Color      RGB `json:"color"`
	CloudColor RGB `json:"cloud_color"`

	// Resource is set when a resource has been spawned on this tile.
	Resource *ResourceType `json:"resource,omitempty"`

	// Adjacent holds the existing neighbors (at most six). Filled by Link.
	Adjacent []*Tile `json:"-"`
}

// neighborOffsets are the six candidate neighbor offsets, indexed by column parity.
var neighborOffsets = [2][6]GridCoord{
	{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {-1, -1}, {1, -1}},
	{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {-1, 1}, {1, 1}},
}

// Neighbors returns the six candidate neighbor coordinates. Some may lie
// outside the grid.
func (c GridCoord) Neighbors() [6]GridCoord {
	var result [6]GridCoord
	for i, off := range neighborOffsets[c.X&1] {
		result[i] = GridCoord{X: c.X + off.X, Y: c.Y + off.Y}
	}
	return result
}

// IsAdjacentTo reports whether other is one of t's neighbors.
func (t *Tile) IsAdjacentTo(other *Tile) bool {
	for _, adj := range t.Adjacent {
		if adj == other {
			return true
		}
	}
	return false
}

// IsInterior reports whether the tile has all six neighbors.
func (t *Tile) IsInterior() bool {
	return len(t.Adjacent) == 6
}

// polygonCache holds unit offsets of a flat-top hexagon per cell size.
type polygonCache map[float64][6]orb.Point

func (pc polygonCache) offsets(size float64) [6]orb.Point {
	if off, ok := pc[size]; ok {
		return off
	}
	var off [6]orb.Point
	for i := 0; i < 6; i++ {
		angle := math.Pi / 3 * float64(i)
		off[i] = orb.Point{size * math.Cos(angle), size * math.Sin(angle)}
	}
	pc[size] = off
	return off
}

// hexPolygon builds the closed ring for a hexagon centered on c.
func hexPolygon(c orb.Point, off [6]orb.Point) orb.Ring {
	ring := make(orb.Ring, 7)
	for i, o := range off {
		ring[i] = orb.Point{c[0] + o[0], c[1] + o[1]}
	}
	ring[6] = ring[0]
	return ring
}
