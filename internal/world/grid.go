package world

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Layout describes the pixel geometry of a hex grid.
type Layout struct {
	Width    float64 // target map width in pixels
	Height   float64 // target map height in pixels
	TileSize float64 // hex circumradius in pixels
}

// HorizontalSpacing is the x distance between adjacent column centers.
func (l Layout) HorizontalSpacing() float64 {
	return 1.5 * l.TileSize
}

// VerticalSpacing is the y distance between adjacent row centers.
func (l Layout) VerticalSpacing() float64 {
	return math.Sqrt(3) * l.TileSize
}

// GridSize returns the number of columns and rows needed to cover the map.
func (l Layout) GridSize() (cols, rows int) {
	cols = int(l.Width/l.HorizontalSpacing()) + 1
	rows = int(l.Height/l.VerticalSpacing()) + 2
	return cols, rows
}

// CenterOf returns the pixel center of the tile at c.
func (l Layout) CenterOf(c GridCoord) orb.Point {
	x := l.HorizontalSpacing()*float64(c.X) + l.TileSize*0.5
	y := l.VerticalSpacing()*float64(c.Y) - l.TileSize*0.5
	if c.X&1 == 1 {
		y += l.VerticalSpacing() / 2
	}
	return orb.Point{x, y}
}

// Grid is the allocated set of tiles plus the coordinate index.
type Grid struct {
	Layout  Layout
	Cols    int
	Rows    int
	Tiles   []*Tile
	byCoord map[GridCoord]*Tile
	cache   polygonCache
}

// NewGrid allocates every tile of the layout, column by column, with dense
// ids and cached polygon geometry. Adjacency is not resolved; call Link once
// all tiles exist.
func NewGrid(l Layout) (*Grid, error) {
	if l.TileSize <= 0 || l.Width <= 0 || l.Height <= 0 {
		return nil, fmt.Errorf("invalid layout %vx%v size %v", l.Width, l.Height, l.TileSize)
	}
	cols, rows := l.GridSize()
	return allocate(l, cols, rows), nil
}

// NewGridSized allocates a grid with exactly cols x rows tiles. The pixel
// dimensions are derived from the tile size.
func NewGridSized(cols, rows int, tileSize float64) *Grid {
	l := Layout{TileSize: tileSize}
	l.Width = l.HorizontalSpacing() * float64(cols)
	l.Height = l.VerticalSpacing() * float64(rows)
	return allocate(l, cols, rows)
}

// NewEmptyGrid returns a grid with no tiles and room for n of them. Tiles are
// added in id order with AddTile.
func NewEmptyGrid(l Layout, cols, rows, n int) *Grid {
	return &Grid{
		Layout:  l,
		Cols:    cols,
		Rows:    rows,
		Tiles:   make([]*Tile, 0, n),
		byCoord: make(map[GridCoord]*Tile, n),
		cache:   polygonCache{},
	}
}

func allocate(l Layout, cols, rows int) *Grid {
	g := NewEmptyGrid(l, cols, rows, cols*rows)
	for x := 0; x < cols; x++ {
		for y := 0; y < rows; y++ {
			g.AddTile(GridCoord{X: x, Y: y})
		}
	}
	return g
}

// AddTile appends a tile at c with the next dense id.
func (g *Grid) AddTile(c GridCoord) *Tile {
	center := g.Layout.CenterOf(c)
	t := &Tile{
		ID:          TileID(len(g.Tiles)),
		Grid:        c,
		Center:      center,
		Polygon:     hexPolygon(center, g.cache.offsets(g.Layout.TileSize)),
		OceanID:     NoOcean,
		TerritoryID: NoTerritory,
	}
	g.Tiles = append(g.Tiles, t)
	g.byCoord[c] = t
	return t
}

// At returns the tile at grid coordinate c, or nil.
func (g *Grid) At(c GridCoord) *Tile {
	return g.byCoord[c]
}

// Link resolves every tile's candidate neighbor coordinates against the
// coordinate index, keeping only neighbors that exist.
func (g *Grid) Link() {
	Link(g.Tiles)
}

// Link rebuilds adjacency for tiles from their grid coordinates.
func Link(tiles []*Tile) {
	index := make(map[GridCoord]*Tile, len(tiles))
	for _, t := range tiles {
		index[t.Grid] = t
	}
	for _, t := range tiles {
		t.Adjacent = t.Adjacent[:0]
		for _, nc := range t.Grid.Neighbors() {
			if n, ok := index[nc]; ok && n != t {
				t.Adjacent = append(t.Adjacent, n)
			}
		}
	}
}
