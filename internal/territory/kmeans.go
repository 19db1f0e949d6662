package territory

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// KMeans partitions points into k clusters and returns the cluster label of
// each point. Centers are initialized with k-means++ using rng, then refined
// with Lloyd iterations until assignments stop changing or maxIter is
// reached. Some clusters may end up empty.
func KMeans(points []orb.Point, k, maxIter int, rng *rand.Rand) []int {
	labels := make([]int, len(points))
	if len(points) == 0 || k <= 1 {
		return labels
	}
	if k > len(points) {
		k = len(points)
	}

	centers := seedCenters(points, k, rng)
	for i := range labels {
		labels[i] = -1
	}
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(centers, p)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([]orb.Point, k)
		counts := make([]int, k)
		for i, p := range points {
			sums[labels[i]][0] += p[0]
			sums[labels[i]][1] += p[1]
			counts[labels[i]]++
		}
		for c := range centers {
			// An empty cluster keeps its previous center.
			if counts[c] > 0 {
				centers[c] = orb.Point{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
			}
		}
	}
	return labels
}

// seedCenters picks k initial centers with k-means++: each next center is
// drawn with probability proportional to its squared distance from the
// closest center chosen so far.
func seedCenters(points []orb.Point, k int, rng *rand.Rand) []orb.Point {
	centers := make([]orb.Point, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = planar.DistanceSquared(p, centers[0])
	}
	for len(centers) < k {
		total := 0.0
		for _, d := range dist {
			total += d
		}
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 {
					next = i
					break
				}
				next = i
			}
		} else {
			next = rng.Intn(len(points))
		}
		c := points[next]
		centers = append(centers, c)
		for i, p := range points {
			dist[i] = math.Min(dist[i], planar.DistanceSquared(p, c))
		}
	}
	return centers
}

func nearest(centers []orb.Point, p orb.Point) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := planar.DistanceSquared(p, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
