package world

import (
	"math"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutGridSize(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		cols   int
		rows   int
	}{
		{"small", Layout{Width: 100, Height: 100, TileSize: 10}, 7, 7},
		{"default map", Layout{Width: 2400, Height: 1350, TileSize: 12}, 134, 66},
		{"smaller than a tile", Layout{Width: 1, Height: 1, TileSize: 10}, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, rows := tt.layout.GridSize()
			assert.Equal(t, tt.cols, cols)
			assert.Equal(t, tt.rows, rows)
		})
	}
}

func TestNewGridRejectsBadLayout(t *testing.T) {
	for _, l := range []Layout{
		{Width: 0, Height: 100, TileSize: 10},
		{Width: 100, Height: -1, TileSize: 10},
		{Width: 100, Height: 100, TileSize: 0},
	} {
		_, err := NewGrid(l)
		assert.Error(t, err)
	}
}

func TestNewGridAllocatesDenseIDs(t *testing.T) {
	g, err := NewGrid(Layout{Width: 100, Height: 100, TileSize: 10})
	require.NoError(t, err)
	require.Len(t, g.Tiles, g.Cols*g.Rows)

	for i, tile := range g.Tiles {
		assert.Equal(t, TileID(i), tile.ID)
		assert.Same(t, tile, g.At(tile.Grid))
		assert.Equal(t, NoOcean, tile.OceanID)
		assert.Equal(t, NoTerritory, tile.TerritoryID)
	}
	assert.Nil(t, g.At(GridCoord{X: -1, Y: 0}))
}

func TestNeighborsDependOnColumnParity(t *testing.T) {
	even := GridCoord{X: 2, Y: 2}.Neighbors()
	assert.ElementsMatch(t, []GridCoord{
		{3, 2}, {1, 2}, {2, 3}, {2, 1}, {1, 1}, {3, 1},
	}, even[:])

	odd := GridCoord{X: 3, Y: 2}.Neighbors()
	assert.ElementsMatch(t, []GridCoord{
		{4, 2}, {2, 2}, {3, 3}, {3, 1}, {2, 3}, {4, 3},
	}, odd[:])
}

func TestLinkIsSymmetric(t *testing.T) {
	g := NewGridSized(6, 5, 10)
	g.Link()

	for _, tile := range g.Tiles {
		assert.LessOrEqual(t, len(tile.Adjacent), 6)
		for _, adj := range tile.Adjacent {
			assert.NotSame(t, tile, adj)
			assert.True(t, adj.IsAdjacentTo(tile), "tile %d lists %d but not the reverse", tile.ID, adj.ID)
		}
	}
	assert.True(t, g.At(GridCoord{2, 2}).IsInterior())
	assert.False(t, g.At(GridCoord{0, 0}).IsInterior())
}

func TestAdjacentCentersAreOneRowApart(t *testing.T) {
	g := NewGridSized(5, 5, 10)
	g.Link()
	want := g.Layout.VerticalSpacing()

	for _, tile := range g.Tiles {
		for _, adj := range tile.Adjacent {
			assert.InDelta(t, want, planar.Distance(tile.Center, adj.Center), 1e-9)
		}
	}
}

func TestTilePolygon(t *testing.T) {
	g := NewGridSized(2, 2, 10)
	for _, tile := range g.Tiles {
		require.Len(t, tile.Polygon, 7)
		assert.Equal(t, tile.Polygon[0], tile.Polygon[6])
		for _, p := range tile.Polygon[:6] {
			assert.InDelta(t, 10, planar.Distance(tile.Center, p), 1e-9)
		}
	}
}

func TestLinkRebuildsFromCoordinates(t *testing.T) {
	g := NewEmptyGrid(Layout{TileSize: 10}, 3, 1, 3)
	a := g.AddTile(GridCoord{0, 0})
	b := g.AddTile(GridCoord{1, 0})
	c := g.AddTile(GridCoord{2, 0})
	Link(g.Tiles)

	assert.True(t, a.IsAdjacentTo(b))
	assert.True(t, b.IsAdjacentTo(c))
	assert.False(t, a.IsAdjacentTo(c))

	// Linking twice does not duplicate neighbors.
	Link(g.Tiles)
	assert.Len(t, b.Adjacent, 2)
}

func TestTileAt(t *testing.T) {
	g := NewGridSized(8, 6, 10)
	g.Link()
	w := NewWorld(1, g)
	w.BuildSpatialIndex()

	for _, tile := range w.Tiles {
		id, ok := w.TileAt(tile.Center[0], tile.Center[1])
		require.True(t, ok)
		assert.Equal(t, tile.ID, id)

		// A point just inside a vertex still resolves to the same tile.
		v := tile.Polygon[1]
		p := orb.Point{tile.Center[0] + 0.9*(v[0]-tile.Center[0]), tile.Center[1] + 0.9*(v[1]-tile.Center[1])}
		id, ok = w.TileAt(p[0], p[1])
		require.True(t, ok)
		assert.Equal(t, tile.ID, id)
	}

	_, ok := w.TileAt(-100, -100)
	assert.False(t, ok)
	_, ok = w.TileAt(math.Inf(1), 0)
	assert.False(t, ok)
}

func TestWorldAccessors(t *testing.T) {
	g := NewGridSized(3, 3, 10)
	g.Link()
	w := NewWorld(7, g)
	w.Tiles[0].IsLand = true
	w.Tiles[0].IsCoast = true
	w.Tiles[4].IsLand = true

	assert.Len(t, w.LandTiles(), 2)
	assert.Len(t, w.WaterTiles(), 7)
	assert.Len(t, w.CoastalTiles(), 1)
	assert.Nil(t, w.Tile(-1))
	assert.Nil(t, w.Tile(9))
	assert.Nil(t, w.Territory(0))
	assert.Nil(t, w.Harbor(0))
	assert.Same(t, w.Tiles[3], w.TileAtGrid(GridCoord{1, 0}))
	assert.Contains(t, w.String(), "tiles=9")
}

func TestCenterParityMatchesNeighbors(t *testing.T) {
	l := Layout{TileSize: 10}
	odd := l.CenterOf(GridCoord{1, 0})
	neg := l.CenterOf(GridCoord{-1, 0})
	assert.InDelta(t, odd[1], neg[1], 1e-9, "negative odd columns shift like positive ones")
	assert.Equal(t, GridCoord{1, 0}.Neighbors()[4].Y, GridCoord{-1, 0}.Neighbors()[4].Y)
}

func TestTileAtConcurrentFirstUse(t *testing.T) {
	g := NewGridSized(12, 8, 10)
	g.Link()
	w := NewWorld(1, g)

	var wg sync.WaitGroup
	results := make([]TileID, 16)
	target := w.Tiles[37]
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, ok := w.TileAt(target.Center[0], target.Center[1])
			if ok {
				results[i] = id
			} else {
				results[i] = -1
			}
		}()
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, target.ID, id)
	}
}
