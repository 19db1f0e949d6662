package terrain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tradewinds/internal/world"
)

func linkedGrid(cols, rows int) []*world.Tile {
	g := world.NewGridSized(cols, rows, 10)
	g.Link()
	return g.Tiles
}

type flatNoise struct{}

func (flatNoise) Eval2(x, y float64) float64 { return 0 }

func TestSeedIsDeterministic(t *testing.T) {
	a, b := linkedGrid(5, 5), linkedGrid(5, 5)
	Seed(a, rand.New(rand.NewSource(3)))
	Seed(b, rand.New(rand.NewSource(3)))

	for i := range a {
		assert.Equal(t, a[i].WaterLevel, b[i].WaterLevel)
		assert.Equal(t, a[i].ElevationNoise, b[i].ElevationNoise)
		assert.Equal(t, a[i].MoistureNoise, b[i].MoistureNoise)
		assert.GreaterOrEqual(t, a[i].WaterLevel, 0.0)
		assert.Less(t, a[i].WaterLevel, 1.0)
	}
}

func TestRelaxMovesHalfwayToNeighborMean(t *testing.T) {
	g := world.NewEmptyGrid(world.Layout{TileSize: 10}, 2, 1, 2)
	a := g.AddTile(world.GridCoord{X: 0, Y: 0})
	b := g.AddTile(world.GridCoord{X: 1, Y: 0})
	g.Link()
	a.WaterLevel, b.WaterLevel = 0, 1
	a.ElevationNoise, b.ElevationNoise = 0.2, 0.6

	Relax(g.Tiles, 1)

	assert.InDelta(t, 0.5, a.WaterLevel, 1e-12)
	assert.InDelta(t, 0.5, b.WaterLevel, 1e-12)
	assert.InDelta(t, 0.4, a.ElevationNoise, 1e-12)
	assert.InDelta(t, 0.4, b.ElevationNoise, 1e-12)
}

func TestRelaxSmoothsAndStaysInRange(t *testing.T) {
	tiles := linkedGrid(10, 10)
	Seed(tiles, rand.New(rand.NewSource(11)))
	before := spread(tiles)

	Relax(tiles, DefaultCycles)

	assert.Less(t, spread(tiles), before)
	for _, tile := range tiles {
		assert.GreaterOrEqual(t, tile.WaterLevel, 0.0)
		assert.LessOrEqual(t, tile.WaterLevel, 1.0)
	}
}

func spread(tiles []*world.Tile) float64 {
	lo, hi := 1.0, 0.0
	for _, t := range tiles {
		lo = min(lo, t.WaterLevel)
		hi = max(hi, t.WaterLevel)
	}
	return hi - lo
}

func TestRelaxWithZeroCyclesIsIdentity(t *testing.T) {
	tiles := linkedGrid(3, 3)
	Seed(tiles, rand.New(rand.NewSource(1)))
	want := tiles[4].WaterLevel
	Relax(tiles, 0)
	assert.Equal(t, want, tiles[4].WaterLevel)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		water     float64
		elevation float64
		land      bool
		mountain  bool
	}{
		{"deep water", 0.2, 0.9, false, false},
		{"just below threshold", 0.504, 0.9, false, false},
		{"at threshold", 0.505, 0.1, true, false},
		{"lowland", 0.6, 0.5, true, false},
		{"mountain", 0.6, 0.5125, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tile := &world.Tile{WaterLevel: tt.water, ElevationNoise: tt.elevation}
			Classify([]*world.Tile{tile}, 0.505, 0.5125)
			assert.Equal(t, tt.land, tile.IsLand)
			assert.Equal(t, tt.mountain, tile.IsMountain)
		})
	}
}

func TestThresholdAboveOneMakesAllWater(t *testing.T) {
	tiles := linkedGrid(4, 4)
	for _, tile := range tiles {
		tile.WaterLevel = 1
		tile.ElevationNoise = 1
	}
	Classify(tiles, 1.1, 0.5)
	for _, tile := range tiles {
		assert.False(t, tile.IsLand)
		assert.False(t, tile.IsMountain)
	}
}

func TestMarkCoasts(t *testing.T) {
	tiles := linkedGrid(5, 5)
	for _, tile := range tiles {
		tile.IsLand = true
	}
	g := map[world.GridCoord]*world.Tile{}
	for _, tile := range tiles {
		g[tile.Grid] = tile
	}
	sea := g[world.GridCoord{X: 2, Y: 2}]
	sea.IsLand = false

	MarkCoasts(tiles)

	assert.False(t, sea.IsCoast)
	for _, tile := range tiles {
		if tile == sea {
			continue
		}
		assert.Equal(t, sea.IsAdjacentTo(tile), tile.IsCoast, "tile %v", tile.Grid)
	}
}

func TestGradient(t *testing.T) {
	stops := []world.RGB{{0, 0, 0}, {100, 200, 50}}
	assert.Equal(t, world.RGB{0, 0, 0}, Gradient(stops, 0))
	assert.Equal(t, world.RGB{100, 200, 50}, Gradient(stops, 1))
	assert.Equal(t, world.RGB{50, 100, 25}, Gradient(stops, 0.5))
	assert.Equal(t, world.RGB{0, 0, 0}, Gradient(stops, -3))
	assert.Equal(t, world.RGB{100, 200, 50}, Gradient(stops, 7))

	three := []world.RGB{{0, 0, 0}, {10, 10, 10}, {30, 30, 30}}
	assert.Equal(t, world.RGB{10, 10, 10}, Gradient(three, 0.5))
	assert.Equal(t, world.RGB{20, 20, 20}, Gradient(three, 0.75))

	assert.Equal(t, world.RGB{}, Gradient(nil, 0.5))
	assert.Equal(t, world.RGB{1, 2, 3}, Gradient([]world.RGB{{1, 2, 3}}, 0.9))
}

func TestCurvesSpanUnitInterval(t *testing.T) {
	assert.InDelta(t, 0, waterCurve(0), 1e-12)
	assert.InDelta(t, 1, waterCurve(1), 1e-12)
	assert.InDelta(t, 0, easeCurve(0), 1e-12)
	assert.InDelta(t, 1, easeCurve(1), 1e-12)
}

func TestColorizeUsesClassPalette(t *testing.T) {
	tiles := linkedGrid(3, 1)
	tiles[0].WaterLevel = 0.3
	tiles[1].WaterLevel, tiles[1].ElevationNoise = 0.7, 0.2
	tiles[2].WaterLevel, tiles[2].ElevationNoise = 0.7, 0.9
	Classify(tiles, 0.505, 0.5125)

	p := Palette{
		Water:    []world.RGB{{0, 0, 255}},
		Land:     []world.RGB{{0, 255, 0}},
		Mountain: []world.RGB{{255, 0, 0}},
		Cloud:    []world.RGB{{9, 9, 9}},
	}
	Colorize(tiles, 0.505, 0.5125, p, flatNoise{})

	assert.Equal(t, world.RGB{0, 0, 255}, tiles[0].Color)
	assert.Equal(t, world.RGB{0, 255, 0}, tiles[1].Color)
	assert.Equal(t, world.RGB{255, 0, 0}, tiles[2].Color)
	for _, tile := range tiles {
		assert.Equal(t, world.RGB{9, 9, 9}, tile.CloudColor)
	}
}

func TestColorizeWaterDarkensWithDepth(t *testing.T) {
	tiles := linkedGrid(2, 1)
	tiles[0].WaterLevel = 0.1
	tiles[1].WaterLevel = 0.5
	Classify(tiles, 0.505, 0.5125)

	Colorize(tiles, 0.505, 0.5125, DefaultPalette, flatNoise{})

	assert.Equal(t, DefaultPalette.Water[0], tiles[0].Color)
	assert.Greater(t, int(tiles[1].Color[2]), int(tiles[0].Color[2]))
}

func TestNewNoise(t *testing.T) {
	for _, kind := range []string{"", NoiseSimplex, NoisePerlin} {
		n, err := NewNoise(kind, 42)
		require.NoError(t, err, kind)
		for i := 0; i < 200; i++ {
			v := n.Eval2(float64(i)*0.37, float64(i)*0.11)
			assert.GreaterOrEqual(t, v, -1.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	_, err := NewNoise("value", 1)
	assert.Error(t, err)
}

func TestNoiseIsSeeded(t *testing.T) {
	a, _ := NewNoise(NoiseSimplex, 5)
	b, _ := NewNoise(NoiseSimplex, 5)
	assert.Equal(t, a.Eval2(1.5, 2.5), b.Eval2(1.5, 2.5))
}
