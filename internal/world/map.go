package world

import (
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// World is the generated map: tiles, territories with their harbors, and
// the ocean and landmass indices. Tiles, territories and harbors are stored
// densely so that their ids are also their slice indices.
type World struct {
	Seed   int64  `json:"seed"`
	Layout Layout `json:"layout"`
	Cols   int    `json:"cols"`
	Rows   int    `json:"rows"`

	Tiles       []*Tile      `json:"-"`
	Territories []*Territory `json:"-"`
	Harbors     []*Harbor    `json:"-"`

	// Oceans maps an ocean id to its water tiles.
	Oceans map[int][]TileID `json:"-"`

	// Landmasses groups territory ids by contiguous landmass, in draw order.
	Landmasses [][]int `json:"landmasses"`

	byCoord   map[GridCoord]*Tile
	indexOnce sync.Once
	buckets   *spatialIndex
}

// NewWorld wraps an allocated grid.
func NewWorld(seed int64, g *Grid) *World {
	return &World{
		Seed:    seed,
		Layout:  g.Layout,
		Cols:    g.Cols,
		Rows:    g.Rows,
		Tiles:   g.Tiles,
		Oceans:  make(map[int][]TileID),
		byCoord: g.byCoord,
	}
}

// Tile returns the tile with the given id, or nil.
func (w *World) Tile(id TileID) *Tile {
	if id < 0 || int(id) >= len(w.Tiles) {
		return nil
	}
	return w.Tiles[id]
}

// TileAtGrid returns the tile at grid coordinate c, or nil.
func (w *World) TileAtGrid(c GridCoord) *Tile {
	return w.byCoord[c]
}

// Territory returns the territory with the given id, or nil.
func (w *World) Territory(id int) *Territory {
	if id < 0 || id >= len(w.Territories) {
		return nil
	}
	return w.Territories[id]
}

// Harbor returns the harbor with the given id, or nil.
func (w *World) Harbor(id HarborID) *Harbor {
	if id < 0 || int(id) >= len(w.Harbors) {
		return nil
	}
	return w.Harbors[id]
}

// LandTiles returns all land tiles in id order.
func (w *World) LandTiles() []*Tile {
	return w.filter(func(t *Tile) bool { return t.IsLand })
}

// WaterTiles returns all water tiles in id order.
func (w *World) WaterTiles() []*Tile {
	return w.filter(func(t *Tile) bool { return !t.IsLand })
}

// CoastalTiles returns all coastal land tiles in id order.
func (w *World) CoastalTiles() []*Tile {
	return w.filter(func(t *Tile) bool { return t.IsCoast })
}

func (w *World) filter(keep func(*Tile) bool) []*Tile {
	var out []*Tile
	for _, t := range w.Tiles {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// BuildSpatialIndex precomputes the bucket grid used by TileAt. Only the
// first call builds; tiles must not be added afterwards.
func (w *World) BuildSpatialIndex() {
	w.indexOnce.Do(func() {
		w.buckets = newSpatialIndex(w.Layout, w.Tiles)
	})
}

// TileAt returns the tile whose polygon contains the pixel point (x, y). It
// builds the spatial index on first use and is safe for concurrent callers.
func (w *World) TileAt(x, y float64) (TileID, bool) {
	w.BuildSpatialIndex()
	p := orb.Point{x, y}
	best := TileID(-1)
	bestDist := math.Inf(1)
	for _, id := range w.buckets.candidates(p) {
		t := w.Tiles[id]
		if !planar.RingContains(t.Polygon, p) {
			continue
		}
		// Points on a shared edge belong to the nearer center.
		if d := planar.DistanceSquared(t.Center, p); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, best >= 0
}

// String returns a summary of the world.
func (w *World) String() string {
	return fmt.Sprintf("World(seed=%d, tiles=%d, territories=%d, harbors=%d, oceans=%d)",
		w.Seed, len(w.Tiles), len(w.Territories), len(w.Harbors), len(w.Oceans))
}

// spatialIndex buckets tiles by the cells their bounding boxes overlap.
type spatialIndex struct {
	origin       orb.Point
	cellW, cellH float64
	cols, rows   int
	cells        [][]TileID
}

func newSpatialIndex(l Layout, tiles []*Tile) *spatialIndex {
	si := &spatialIndex{
		cellW: l.HorizontalSpacing(),
		cellH: l.VerticalSpacing(),
	}
	if len(tiles) == 0 {
		return si
	}
	bound := tiles[0].Polygon.Bound()
	for _, t := range tiles[1:] {
		bound = bound.Union(t.Polygon.Bound())
	}
	si.origin = bound.Min
	si.cols = int((bound.Max[0]-bound.Min[0])/si.cellW) + 1
	si.rows = int((bound.Max[1]-bound.Min[1])/si.cellH) + 1
	si.cells = make([][]TileID, si.cols*si.rows)
	for _, t := range tiles {
		b := t.Polygon.Bound()
		x0, y0 := si.cell(b.Min)
		x1, y1 := si.cell(b.Max)
		for cx := x0; cx <= x1; cx++ {
			for cy := y0; cy <= y1; cy++ {
				if i, ok := si.index(cx, cy); ok {
					si.cells[i] = append(si.cells[i], t.ID)
				}
			}
		}
	}
	return si
}

func (si *spatialIndex) cell(p orb.Point) (int, int) {
	return int(math.Floor((p[0] - si.origin[0]) / si.cellW)), int(math.Floor((p[1] - si.origin[1]) / si.cellH))
}

func (si *spatialIndex) index(cx, cy int) (int, bool) {
	if cx < 0 || cy < 0 || cx >= si.cols || cy >= si.rows {
		return 0, false
	}
	return cy*si.cols + cx, true
}

func (si *spatialIndex) candidates(p orb.Point) []TileID {
	if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
		return nil
	}
	i, ok := si.index(si.cell(p))
	if !ok {
		return nil
	}
	return si.cells[i]
}
