package harbor

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/talgya/tradewinds/internal/world"
)

// Smoothing parameters.
const (
	// CollinearTolerance is the largest direction change, in radians, at which
	// a waypoint still counts as lying on a straight stretch.
	CollinearTolerance = math.Pi / 180
	// SplineSamples is the number of interpolated points per spline segment.
	SplineSamples = 20
)

// Prune drops interior points whose incoming and outgoing directions are
// nearly the same. Decisions are made against the original neighbors of each
// point, so removing one point never changes whether another is removed.
func Prune(points []orb.Point) []orb.Point {
	if len(points) < 3 {
		return append([]orb.Point(nil), points...)
	}
	out := []orb.Point{points[0]}
	for i := 1; i+1 < len(points); i++ {
		in := heading(points[i-1], points[i])
		outDir := heading(points[i], points[i+1])
		if math.Abs(angleDiff(in, outDir)) < CollinearTolerance {
			continue
		}
		out = append(out, points[i])
	}
	return append(out, points[len(points)-1])
}

func heading(a, b orb.Point) float64 {
	return math.Atan2(b[1]-a[1], b[0]-a[0])
}

// angleDiff returns b-a wrapped into (-π, π].
func angleDiff(a, b float64) float64 {
	d := math.Mod(b-a, 2*math.Pi)
	if d <= -math.Pi {
		d += 2 * math.Pi
	} else if d > math.Pi {
		d -= 2 * math.Pi
	}
	return d
}

// CatmullRom interpolates a centripetal Catmull-Rom spline through points,
// with samples points per segment. The curve passes through every input
// point; the end segments use mirrored phantom control points.
func CatmullRom(points []orb.Point, samples int) []orb.Point {
	if len(points) < 2 || samples < 1 {
		return append([]orb.Point(nil), points...)
	}
	n := len(points)
	ctrl := make([]orb.Point, 0, n+2)
	ctrl = append(ctrl, mirror(points[1], points[0]))
	ctrl = append(ctrl, points...)
	ctrl = append(ctrl, mirror(points[n-2], points[n-1]))

	out := make([]orb.Point, 0, (n-1)*samples+1)
	for i := 1; i+2 < len(ctrl); i++ {
		p0, p1, p2, p3 := ctrl[i-1], ctrl[i], ctrl[i+1], ctrl[i+2]
		for s := 0; s < samples; s++ {
			out = append(out, centripetal(p0, p1, p2, p3, float64(s)/float64(samples)))
		}
	}
	return append(out, points[n-1])
}

// mirror reflects p across pivot.
func mirror(p, pivot orb.Point) orb.Point {
	return orb.Point{2*pivot[0] - p[0], 2*pivot[1] - p[1]}
}

// centripetal evaluates the segment p1→p2 at u in [0, 1) using the
// Barry-Goldman formulation with alpha = 0.5.
func centripetal(p0, p1, p2, p3 orb.Point, u float64) orb.Point {
	knot := func(ti float64, a, b orb.Point) float64 {
		d := math.Sqrt(math.Hypot(b[0]-a[0], b[1]-a[1]))
		if d < 1e-9 {
			d = 1e-9
		}
		return ti + d
	}
	t0 := 0.0
	t1 := knot(t0, p0, p1)
	t2 := knot(t1, p1, p2)
	t3 := knot(t2, p2, p3)
	t := t1 + (t2-t1)*u

	lerp := func(a, b orb.Point, ta, tb float64) orb.Point {
		wa, wb := (tb-t)/(tb-ta), (t-ta)/(tb-ta)
		return orb.Point{wa*a[0] + wb*b[0], wa*a[1] + wb*b[1]}
	}
	a1 := lerp(p0, p1, t0, t1)
	a2 := lerp(p1, p2, t1, t2)
	a3 := lerp(p2, p3, t2, t3)
	b1 := lerp(a1, a2, t0, t2)
	b2 := lerp(a2, a3, t1, t3)
	return lerp(b1, b2, t1, t2)
}

// Curve builds the renderable polyline for a route: the tile centers of the
// path, pruned, bracketed by both harbor centers, spline-smoothed, keeping
// every other point.
func Curve(w *world.World, from, to *world.Harbor, path []world.TileID) ([]orb.Point, bool) {
	ft, tt := w.Tile(from.Tile), w.Tile(to.Tile)
	if ft == nil || tt == nil {
		return nil, false
	}
	centers := make([]orb.Point, 0, len(path))
	for _, id := range path {
		t := w.Tile(id)
		if t == nil {
			return nil, false
		}
		centers = append(centers, t.Center)
	}
	chain := make([]orb.Point, 0, len(centers)+2)
	chain = append(chain, ft.Center)
	chain = append(chain, Prune(centers)...)
	chain = append(chain, tt.Center)

	dense := CatmullRom(chain, SplineSamples)
	out := make([]orb.Point, 0, len(dense)/2+1)
	for i := 0; i < len(dense); i += 2 {
		out = append(out, dense[i])
	}
	return out, true
}
