package harbor

import (
	"github.com/talgya/tradewinds/internal/world"
)

// Connect finds routes between every pair of harbors that share an ocean and
// builds the smoothed curve of each route. It returns the number of harbor
// pairs connected. Oceans with fewer than two harbors are skipped.
func (s *Searcher) Connect(w *world.World) int {
	byOcean := make(map[int][]*world.Harbor)
	var oceans []int
	for _, h := range w.Harbors {
		t := w.Tile(h.Tile)
		if t == nil || t.OceanID == world.NoOcean {
			continue
		}
		if _, ok := byOcean[t.OceanID]; !ok {
			oceans = append(oceans, t.OceanID)
		}
		byOcean[t.OceanID] = append(byOcean[t.OceanID], h)
	}

	found := 0
	for _, ocean := range oceans {
		harbors := byOcean[ocean]
		if len(harbors) < 2 {
			continue
		}
		water := make(map[world.TileID]bool, len(w.Oceans[ocean]))
		for _, id := range w.Oceans[ocean] {
			water[id] = true
		}
		for i, src := range harbors[:len(harbors)-1] {
			found += s.FindRoutes(w, src, harbors[i+1:], water)
		}
	}

	BuildCurves(w)
	return found
}

// BuildCurves fills in the rendering polyline of every route.
func BuildCurves(w *world.World) {
	for _, h := range w.Harbors {
		for target, r := range h.Routes {
			dst := w.Harbor(target)
			if dst == nil {
				continue
			}
			if pts, ok := Curve(w, h, dst, r.Path); ok {
				r.Points = pts
			}
		}
	}
}
