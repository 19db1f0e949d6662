package world

import "github.com/paulmach/orb"

// HarborID identifies a harbor across the whole world.
type HarborID int

// Harbor is a coastal trade structure and the endpoint of routes.
// Routes reference other harbors by id only.
type Harbor struct {
	ID        HarborID `json:"id"`
	Tile      TileID   `json:"tile_id"`
	Territory int      `json:"territory_id"`
	Usable    bool     `json:"usable"`

	Routes map[HarborID]*Route `json:"-"`
}

// Route is a water path to another harbor.
type Route struct {
	// Path is the ordered water tile sequence, excluding both harbor tiles.
	Path []TileID
	// Points is the smoothed polyline for rendering.
	Points []orb.Point
}

// NewHarbor returns a usable harbor on tile in territory.
func NewHarbor(id HarborID, tile TileID, territory int) *Harbor {
	return &Harbor{
		ID:        id,
		Tile:      tile,
		Territory: territory,
		Usable:    true,
		Routes:    make(map[HarborID]*Route),
	}
}

// RouteTo returns the route to target, if one exists.
func (h *Harbor) RouteTo(target HarborID) (*Route, bool) {
	r, ok := h.Routes[target]
	return r, ok
}
