package harbor

import (
	"container/heap"
	"math"

	"github.com/talgya/tradewinds/internal/world"
)

// Search parameters.
const (
	// DefaultTurnCostFactor scales the (1 - cos θ) turn term. Negative values
	// make turning slightly cheaper than going straight.
	DefaultTurnCostFactor = -0.001
	// DefaultLongPathHops is the hop count past which branches stop expanding
	// once some route has been found.
	DefaultLongPathHops = 20

	stepCost = 1.0
)

// Searcher finds routes over the water tiles of one ocean.
type Searcher struct {
	TurnCostFactor float64
	LongPathHops   int
}

// NewSearcher returns a Searcher with the default parameters.
func NewSearcher() *Searcher {
	return &Searcher{TurnCostFactor: DefaultTurnCostFactor, LongPathHops: DefaultLongPathHops}
}

type frontierItem struct {
	cost float64
	seq  uint64
	tile *world.Tile
}

// frontier is a min-heap on cost; equal costs pop in insertion order.
type frontier []frontierItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].cost != f[j].cost {
		return f[i].cost < f[j].cost
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(frontierItem)) }
func (f *frontier) Pop() any {
	old := *f
	item := old[len(old)-1]
	*f = old[:len(old)-1]
	return item
}

// FindRoutes searches from src to every harbor in targets over the water
// tiles in ocean, in a single run. A forward route and its reverse are
// stored on both harbors as they are found. It returns the number of routes
// found. Unreachable targets get no route.
func (s *Searcher) FindRoutes(w *world.World, src *world.Harbor, targets []*world.Harbor, ocean map[world.TileID]bool) int {
	srcTile := w.Tile(src.Tile)
	if srcTile == nil {
		return 0
	}

	// Water tiles next to each pending target harbor.
	targetAt := make(map[world.TileID][]*world.Harbor)
	remaining := make(map[world.HarborID]bool)
	for _, h := range targets {
		if h.ID == src.ID {
			continue
		}
		ht := w.Tile(h.Tile)
		if ht == nil {
			continue
		}
		reachable := false
		for _, adj := range ht.Adjacent {
			if ocean[adj.ID] {
				targetAt[adj.ID] = append(targetAt[adj.ID], h)
				reachable = true
			}
		}
		if reachable {
			remaining[h.ID] = true
		}
	}
	if len(remaining) == 0 {
		return 0
	}

	var (
		seq      uint64
		open     frontier
		cost     = make(map[world.TileID]float64)
		cameFrom = make(map[world.TileID]*world.Tile)
		hops     = make(map[world.TileID]int)
		found    int
	)
	push := func(t *world.Tile, c float64) {
		heap.Push(&open, frontierItem{cost: c, seq: seq, tile: t})
		seq++
	}

	for _, adj := range srcTile.Adjacent {
		if ocean[adj.ID] {
			cost[adj.ID] = stepCost
			cameFrom[adj.ID] = srcTile
			push(adj, stepCost)
		}
	}

	for open.Len() > 0 && len(remaining) > 0 {
		item := heap.Pop(&open).(frontierItem)
		cur := item.tile
		if item.cost > cost[cur.ID] {
			continue
		}

		for _, h := range targetAt[cur.ID] {
			if !remaining[h.ID] {
				continue
			}
			path := tracePath(cur, srcTile, cameFrom)
			src.Routes[h.ID] = &world.Route{Path: path}
			h.Routes[src.ID] = &world.Route{Path: reversed(path)}
			delete(remaining, h.ID)
			found++
		}
		if len(remaining) == 0 {
			break
		}

		prev := cameFrom[cur.ID]
		for _, next := range cur.Adjacent {
			if !ocean[next.ID] {
				continue
			}
			c := item.cost + stepCost
			if prev != srcTile {
				c += s.TurnCostFactor * (1 - cosTurn(prev, cur, next))
			}
			if old, seen := cost[next.ID]; seen && c >= old {
				continue
			}
			cost[next.ID] = c
			cameFrom[next.ID] = cur
			hops[next.ID] = hops[cur.ID] + 1
			if hops[next.ID] > s.LongPathHops && found > 0 {
				continue
			}
			push(next, c)
		}
	}
	return found
}

// cosTurn is the cosine of the angle between prev→cur and cur→next.
func cosTurn(prev, cur, next *world.Tile) float64 {
	ax, ay := cur.Center[0]-prev.Center[0], cur.Center[1]-prev.Center[1]
	bx, by := next.Center[0]-cur.Center[0], next.Center[1]-cur.Center[1]
	la, lb := math.Hypot(ax, ay), math.Hypot(bx, by)
	if la == 0 || lb == 0 {
		return 1
	}
	return math.Max(-1, math.Min(1, (ax*bx+ay*by)/(la*lb)))
}

func tracePath(end, start *world.Tile, cameFrom map[world.TileID]*world.Tile) []world.TileID {
	var path []world.TileID
	for t := end; t != nil && t != start; t = cameFrom[t.ID] {
		path = append(path, t.ID)
	}
	return reversed(path)
}

func reversed(path []world.TileID) []world.TileID {
	out := make([]world.TileID, len(path))
	for i, id := range path {
		out[len(path)-1-i] = id
	}
	return out
}
