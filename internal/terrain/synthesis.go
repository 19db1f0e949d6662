// Package terrain assigns and relaxes the per-tile scalar fields, then
// classifies and colors tiles.
package terrain

import (
	"math/rand"

	"github.com/talgya/tradewinds/internal/world"
)

// DefaultCycles is the number of relaxation cycles run during generation.
const DefaultCycles = 50

// Seed gives every tile independent uniform values for water, elevation and
// moisture. Tiles are visited in id order so the result depends only on rng.
func Seed(tiles []*world.Tile, rng *rand.Rand) {
	for _, t := range tiles {
		t.WaterLevel = rng.Float64()
		t.ElevationNoise = rng.Float64()
		t.MoistureNoise = rng.Float64()
	}
}

// Relax runs the given number of diffusion cycles. Each cycle moves every
// field half-way toward the mean of the tile's neighbors, computed from the
// values at the start of the cycle.
func Relax(tiles []*world.Tile, cycles int) {
	means := make([][3]float64, len(tiles))
	for c := 0; c < cycles; c++ {
		for i, t := range tiles {
			if len(t.Adjacent) == 0 {
				means[i] = [3]float64{t.WaterLevel, t.ElevationNoise, t.MoistureNoise}
				continue
			}
			var sum [3]float64
			for _, adj := range t.Adjacent {
				sum[0] += adj.WaterLevel
				sum[1] += adj.ElevationNoise
				sum[2] += adj.MoistureNoise
			}
			n := float64(len(t.Adjacent))
			means[i] = [3]float64{sum[0] / n, sum[1] / n, sum[2] / n}
		}
		for i, t := range tiles {
			t.WaterLevel = relaxToward(t.WaterLevel, means[i][0])
			t.ElevationNoise = relaxToward(t.ElevationNoise, means[i][1])
			t.MoistureNoise = relaxToward(t.MoistureNoise, means[i][2])
		}
	}
}

func relaxToward(cur, mean float64) float64 {
	return clamp(cur+(mean-cur)/2, 0, 1)
}

// Classify sets the land and mountain flags from the thresholds.
func Classify(tiles []*world.Tile, waterThreshold, mountainThreshold float64) {
	for _, t := range tiles {
		t.IsLand = t.WaterLevel >= waterThreshold
		t.IsMountain = t.IsLand && t.ElevationNoise >= mountainThreshold
	}
}

// MarkCoasts flags land tiles that have at least one water neighbor.
func MarkCoasts(tiles []*world.Tile) {
	for _, t := range tiles {
		t.IsCoast = false
		if !t.IsLand {
			continue
		}
		for _, adj := range t.Adjacent {
			if !adj.IsLand {
				t.IsCoast = true
				break
			}
		}
	}
}
