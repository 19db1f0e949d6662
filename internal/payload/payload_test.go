package payload

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tradewinds/internal/harbor"
	"github.com/talgya/tradewinds/internal/region"
	"github.com/talgya/tradewinds/internal/territory"
	"github.com/talgya/tradewinds/internal/world"
)

// twoIslands builds a world with two square islands in one sea, one
// territory each, and a route between their harbors.
func twoIslands(t *testing.T) *world.World {
	t.Helper()
	g := world.NewGridSized(16, 8, 10)
	g.Link()
	w := world.NewWorld(77, g)
	for _, tile := range w.Tiles {
		x, y := tile.Grid.X, tile.Grid.Y
		tile.IsLand = y >= 2 && y <= 5 && ((x >= 2 && x <= 5) || (x >= 10 && x <= 13))
		tile.IsMountain = tile.IsLand && x == 4
		tile.WaterLevel = float64(tile.ID%10) / 10
		tile.Color = world.RGB{uint8(tile.ID), 1, 2}
	}
	for _, tile := range w.Tiles {
		for _, adj := range tile.Adjacent {
			if tile.IsLand && !adj.IsLand {
				tile.IsCoast = true
			}
		}
	}
	land := region.Landmasses(w.Tiles)
	w.Oceans = region.IndexOceans(w.Tiles)
	region.AssignCoasts(w.Tiles)
	territory.Build(w, land, territory.Options{
		TerritorySize: 100,
		MaxIterations: 50,
		SpawnRates:    map[world.ResourceType]float64{world.ResourceStone: 1},
	}, rand.New(rand.NewSource(3)))
	harbor.NewSearcher().Connect(w)
	w.BuildSpatialIndex()

	require.Len(t, w.Territories, 2)
	require.Len(t, w.Harbors, 2)
	require.NotEmpty(t, w.Harbors[0].Routes)
	return w
}

func TestRoundTrip(t *testing.T) {
	orig := twoIslands(t)

	data, err := Marshal(Encode(orig))
	require.NoError(t, err)
	p, err := Unmarshal(data)
	require.NoError(t, err)
	got, err := Decode(p)
	require.NoError(t, err)

	assert.Equal(t, orig.Seed, got.Seed)
	assert.Equal(t, orig.Layout, got.Layout)
	require.Len(t, got.Tiles, len(orig.Tiles))
	for i, want := range orig.Tiles {
		tile := got.Tiles[i]
		assert.Equal(t, want.ID, tile.ID)
		assert.Equal(t, want.Grid, tile.Grid)
		assert.Equal(t, want.Center, tile.Center)
		assert.Equal(t, want.IsLand, tile.IsLand)
		assert.Equal(t, want.IsMountain, tile.IsMountain)
		assert.Equal(t, want.IsCoast, tile.IsCoast)
		assert.Equal(t, want.OceanID, tile.OceanID)
		assert.Equal(t, want.TerritoryID, tile.TerritoryID)
		assert.Equal(t, want.WaterLevel, tile.WaterLevel)
		assert.Equal(t, want.Color, tile.Color)
		assert.Equal(t, want.Resource, tile.Resource)
		assert.Equal(t, adjacentIDs(want), adjacentIDs(tile))
	}

	require.Len(t, got.Territories, len(orig.Territories))
	for i, want := range orig.Territories {
		terr := got.Territories[i]
		assert.Equal(t, want.ID, terr.ID)
		assert.Equal(t, want.Tiles, terr.Tiles)
		assert.Equal(t, want.Centroid, terr.Centroid)
		assert.Equal(t, want.FillColor, terr.FillColor)
		assert.Equal(t, want.BorderColor, terr.BorderColor)
		assert.Equal(t, want.Exteriors, terr.Exteriors)
		assert.Equal(t, want.Shape, terr.Shape)
		assert.Equal(t, want.Resources, terr.Resources)
		assert.Equal(t, want.HarborIDs(), terr.HarborIDs())
	}

	require.Len(t, got.Harbors, len(orig.Harbors))
	for i, want := range orig.Harbors {
		h := got.Harbors[i]
		assert.Equal(t, want.Tile, h.Tile)
		assert.Equal(t, want.Territory, h.Territory)
		require.Len(t, h.Routes, len(want.Routes))
		for target, r := range want.Routes {
			require.Contains(t, h.Routes, target)
			assert.Equal(t, r.Path, h.Routes[target].Path)
			assert.Equal(t, r.Points, h.Routes[target].Points)
		}
	}

	assert.Equal(t, orig.Landmasses, got.Landmasses)
	require.Len(t, got.Oceans, len(orig.Oceans))
	for id, tiles := range orig.Oceans {
		assert.ElementsMatch(t, tiles, got.Oceans[id])
	}

	for _, tile := range orig.Tiles {
		id, ok := got.TileAt(tile.Center[0], tile.Center[1])
		require.True(t, ok)
		assert.Equal(t, tile.ID, id)
	}
}

func adjacentIDs(t *world.Tile) []world.TileID {
	ids := make([]world.TileID, len(t.Adjacent))
	for i, a := range t.Adjacent {
		ids[i] = a.ID
	}
	return ids
}

func TestEncodeIsFlat(t *testing.T) {
	w := twoIslands(t)

	p := Encode(w)

	assert.Equal(t, Version, p.Version)
	assert.Equal(t, len(w.Tiles), p.Tiles.Len())
	assert.Len(t, p.Tiles.IsLand, len(w.Tiles))
	assert.Equal(t, 2, p.Territories.Len())
	assert.NotEmpty(t, p.Territories.WKB[0])
	assert.Equal(t, 2, p.Harbors.Len())

	s := p.Stats()
	assert.Equal(t, len(w.Tiles), s.Tiles)
	assert.Equal(t, 32, s.Land)
	assert.Equal(t, 2, s.Routes)
}

func TestUnmarshalDetectsCorruption(t *testing.T) {
	data, err := Marshal(Encode(twoIslands(t)))
	require.NoError(t, err)

	corrupt := append([]byte(nil), data...)
	corrupt[len(corrupt)-1] ^= 0xff
	_, err = Unmarshal(corrupt)
	assert.ErrorIs(t, err, ErrChecksum)

	badMagic := append([]byte(nil), data...)
	badMagic[0] = 'X'
	_, err = Unmarshal(badMagic)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Unmarshal(data[:10])
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeDropsDanglingReferences(t *testing.T) {
	p := Encode(twoIslands(t))
	n := p.Tiles.Len()
	p.Territories.HarborIDs[0] = append(p.Territories.HarborIDs[0], 99)
	p.Territories.TileIDs[1] = append(p.Territories.TileIDs[1], n+5)
	p.Territories.Resources[0] = append(p.Territories.Resources[0], world.Resource{Tile: world.TileID(n + 1), Type: world.ResourceIron})
	p.Harbors.Routes[0][42] = []int{1, 2}
	p.Harbors.Routes[1][0] = []int{n + 100}
	p.Landmasses = append(p.Landmasses, []int{7})

	w, err := Decode(p)
	require.NoError(t, err)

	assert.Len(t, w.Territories[0].Harbors, 1)
	assert.NotContains(t, w.Territories[1].Tiles, world.TileID(n+5))
	for _, r := range w.Territories[0].Resources {
		assert.NotEqual(t, world.TileID(n+1), r.Tile)
	}
	assert.NotContains(t, w.Harbors[0].Routes, world.HarborID(42))
	assert.Contains(t, w.Harbors[0].Routes, world.HarborID(1))
	assert.NotContains(t, w.Harbors[1].Routes, world.HarborID(0))
	assert.Len(t, w.Landmasses, 2)
}

func TestDecodeRejectsMalformedArrays(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Payload)
	}{
		{"short tile column", func(p *Payload) { p.Tiles.IsLand = p.Tiles.IsLand[1:] }},
		{"sparse tile ids", func(p *Payload) { p.Tiles.ID[3] = 99 }},
		{"short territory column", func(p *Payload) { p.Territories.WKB = nil }},
		{"sparse harbor ids", func(p *Payload) { p.Harbors.ID[0] = 5 }},
		{"short harbor column", func(p *Payload) { p.Harbors.Usable = nil }},
		{"zero tile size", func(p *Payload) { p.TileSize = 0 }},
		{"infinite tile size", func(p *Payload) { p.TileSize = math.Inf(1) }},
		{"negative cols", func(p *Payload) { p.Cols = -1 }},
		{"negative rows", func(p *Payload) { p.Rows = -3 }},
		{"negative grid x", func(p *Payload) { p.Tiles.GX[0] = -1 }},
		{"grid x past cols", func(p *Payload) { p.Tiles.GX[0] = p.Cols }},
		{"grid y past rows", func(p *Payload) { p.Tiles.GY[2] = p.Rows + 4 }},
		{"repeated cell", func(p *Payload) {
			p.Tiles.GX[1], p.Tiles.GY[1] = p.Tiles.GX[0], p.Tiles.GY[0]
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Encode(twoIslands(t))
			tt.mutate(p)
			_, err := Decode(p)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeWithoutWKBRebuildsShape(t *testing.T) {
	w := twoIslands(t)
	p := Encode(w)
	p.Territories.WKB = make([][]byte, p.Territories.Len())

	got, err := Decode(p)
	require.NoError(t, err)
	for i, terr := range got.Territories {
		assert.Equal(t, w.Territories[i].Shape, terr.Shape)
	}
}

func TestDecodeDisablesHarborOnUnknownTile(t *testing.T) {
	p := Encode(twoIslands(t))
	p.Harbors.TileID[0] = p.Tiles.Len() + 10

	w, err := Decode(p)
	require.NoError(t, err)

	require.Len(t, w.Harbors, 2)
	h := w.Harbors[0]
	assert.False(t, h.Usable)
	assert.Empty(t, h.Routes)
	assert.NotContains(t, w.Harbors[1].Routes, h.ID)
	assert.True(t, w.Harbors[1].Usable)
	assert.Equal(t, world.HarborID(1), w.Harbors[1].ID)
}

func TestUnmarshalRejectsOversizedBody(t *testing.T) {
	data, err := Marshal(Encode(twoIslands(t)))
	require.NoError(t, err)

	old := maxBodySize
	maxBodySize = 64
	t.Cleanup(func() { maxBodySize = old })

	_, err = Unmarshal(data)
	assert.ErrorIs(t, err, ErrMalformed)

	maxBodySize = old
	_, err = Unmarshal(data)
	assert.NoError(t, err)
}
