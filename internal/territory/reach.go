package territory

import (
	"slices"

	"github.com/talgya/tradewinds/internal/world"
)

// Connection is the shortest known route from one territory to another.
type Connection struct {
	From   world.HarborID
	To     world.HarborID
	Length int
	Route  *world.Route
}

// ReachableHarbors maps each of t's harbors to the harbors it has routes to,
// in ascending id order.
func ReachableHarbors(t *world.Territory) map[world.HarborID][]world.HarborID {
	out := make(map[world.HarborID][]world.HarborID)
	for _, h := range t.Harbors {
		var targets []world.HarborID
		for id := range h.Routes {
			targets = append(targets, id)
		}
		if len(targets) == 0 {
			continue
		}
		slices.Sort(targets)
		out[h.ID] = targets
	}
	return out
}

// ShortestRoutes returns, for every territory reachable by sea from t, the
// route with the fewest tiles. Ties keep the route found first in harbor id
// order.
func ShortestRoutes(w *world.World, t *world.Territory) map[int]Connection {
	out := make(map[int]Connection)
	reachable := ReachableHarbors(t)
	for _, h := range t.Harbors {
		for _, target := range reachable[h.ID] {
			dst := w.Harbor(target)
			if dst == nil || dst.Territory == t.ID {
				continue
			}
			r := h.Routes[target]
			best, ok := out[dst.Territory]
			if !ok || len(r.Path) < best.Length {
				out[dst.Territory] = Connection{From: h.ID, To: target, Length: len(r.Path), Route: r}
			}
		}
	}
	return out
}
