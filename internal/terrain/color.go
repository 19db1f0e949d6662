package terrain

import (
	"math"

	"github.com/talgya/tradewinds/internal/world"
)

// Palette holds the gradient stops for each tile class.
type Palette struct {
	Water    []world.RGB
	Land     []world.RGB
	Mountain []world.RGB
	Cloud    []world.RGB
}

// DefaultPalette is the standard map palette.
var DefaultPalette = Palette{
	Water:    []world.RGB{{59, 95, 111}, {73, 120, 122}, {86, 142, 143}, {148, 182, 180}},
	Land:     []world.RGB{{95, 115, 84}, {54, 64, 57}},
	Mountain: []world.RGB{{83, 78, 90}, {42, 40, 52}},
	Cloud:    []world.RGB{{105, 116, 140}, {124, 134, 156}, {176, 185, 205}},
}

// Jitter amplitudes per class.
const (
	waterJitter    = 0.0035
	landJitter     = 0.004
	mountainJitter = 0.007
	cloudJitter    = 0.008
)

// jitterScale maps pixel coordinates into noise space; high enough that
// neighboring tiles get unrelated samples.
const jitterScale = 0.37

type bounds struct{ lo, hi float64 }

func (b bounds) normalize(v float64) float64 {
	if b.hi <= b.lo {
		return 0.5
	}
	return clamp((v-b.lo)/(b.hi-b.lo), 0, 1)
}

func measure(vals []float64) bounds {
	if len(vals) == 0 {
		return bounds{0, 1}
	}
	b := bounds{math.Inf(1), math.Inf(-1)}
	for _, v := range vals {
		b.lo = math.Min(b.lo, v)
		b.hi = math.Max(b.hi, v)
	}
	return b
}

// Response curves per class.
func waterCurve(x float64) float64 {
	return x*x/2 + math.Pow(1-(1-x)*(1-x), 10)/2
}

func easeCurve(x float64) float64 {
	return (1 - math.Pow(2, -3*x)) * 8 / 7
}

// Colorize computes Color and CloudColor for every tile. Values are
// normalized against the min/max of their class after classification, so
// Classify must run first.
func Colorize(tiles []*world.Tile, waterThreshold, mountainThreshold float64, p Palette, jitter Noise) {
	var water, land, mountain, cloud []float64
	for _, t := range tiles {
		switch {
		case !t.IsLand:
			water = append(water, t.WaterLevel)
		case t.IsMountain:
			mountain = append(mountain, t.ElevationNoise)
		default:
			land = append(land, t.WaterLevel)
		}
		cloud = append(cloud, t.MoistureNoise)
	}
	wb, lb, mb, cb := measure(water), measure(land), measure(mountain), measure(cloud)
	if len(water) > 0 {
		wb.hi = waterThreshold
	}
	if len(land) > 0 {
		lb.lo = waterThreshold
	}
	if len(mountain) > 0 {
		mb.lo = mountainThreshold
	}

	for _, t := range tiles {
		x, y := t.Center[0]*jitterScale, t.Center[1]*jitterScale

		n := cb.normalize(t.MoistureNoise + cloudJitter*jitter.Eval2(x, y+1000))
		t.CloudColor = Gradient(p.Cloud, easeCurve(n))

		switch {
		case !t.IsLand:
			n := wb.normalize(t.WaterLevel + waterJitter*jitter.Eval2(x, y))
			t.Color = Gradient(p.Water, waterCurve(n))
		case t.IsMountain:
			n := mb.normalize(t.ElevationNoise + mountainJitter*jitter.Eval2(x+1000, y))
			t.Color = Gradient(p.Mountain, n)
		default:
			n := lb.normalize(t.WaterLevel + landJitter*jitter.Eval2(x+2000, y))
			t.Color = Gradient(p.Land, easeCurve(n))
		}
	}
}

// Gradient samples a multi-stop linear gradient at t in [0, 1].
func Gradient(stops []world.RGB, t float64) world.RGB {
	switch len(stops) {
	case 0:
		return world.RGB{}
	case 1:
		return stops[0]
	}
	t = clamp(t, 0, 1)
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	f := pos - float64(i)
	a, b := stops[i], stops[i+1]
	var out world.RGB
	for c := 0; c < 3; c++ {
		out[c] = uint8(math.Round(float64(a[c]) + (float64(b[c])-float64(a[c]))*f))
	}
	return out
}
