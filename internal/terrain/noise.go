package terrain

import (
	"fmt"

	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Noise kinds accepted by NewNoise.
const (
	NoiseSimplex = "simplex"
	NoisePerlin  = "perlin"
)

// Noise is a seeded 2D noise field returning values in [-1, 1].
type Noise interface {
	Eval2(x, y float64) float64
}

// NewNoise returns the noise field of the given kind.
func NewNoise(kind string, seed int64) (Noise, error) {
	switch kind {
	case "", NoiseSimplex:
		return opensimplex.New(seed), nil
	case NoisePerlin:
		// alpha=2, beta=2, n=3 give smooth terrain-like output.
		return perlinNoise{perlin.NewPerlin(2, 2, 3, seed)}, nil
	default:
		return nil, fmt.Errorf("unknown noise kind %q", kind)
	}
}

type perlinNoise struct {
	p *perlin.Perlin
}

func (n perlinNoise) Eval2(x, y float64) float64 {
	// Perlin output is roughly within [-0.7, 0.7]; stretch it toward [-1, 1].
	return clamp(n.p.Noise2D(x, y)*1.4, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
