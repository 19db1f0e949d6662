// Package payload flattens a generated world into id-indexed arrays that can
// cross a process boundary, and rebuilds a linked world from them.
package payload

import (
	"github.com/paulmach/orb"

	"github.com/talgya/tradewinds/internal/world"
)

// Version is the payload layout version.
const Version = 1

// Payload is the structure-of-arrays form of a world. Every cross reference
// is an id: tiles by tile id, territories by territory id, harbors by harbor
// id. Tile adjacency and route curves are not transmitted; Decode derives
// them locally.
type Payload struct {
	Version  int     `json:"version"`
	Seed     int64   `json:"seed"`
	Width    float64 `json:"map_width"`
	Height   float64 `json:"map_height"`
	TileSize float64 `json:"tile_size"`
	Cols     int     `json:"cols"`
	Rows     int     `json:"rows"`

	Tiles       Tiles       `json:"tiles"`
	Territories Territories `json:"territories"`
	Harbors     Harbors     `json:"harbors"`

	// Landmasses groups territory ids by contiguous landmass for draw order.
	Landmasses [][]int `json:"contiguous_territory_ids"`

	// ExecutionTimes holds the duration in seconds of each generation stage.
	ExecutionTimes map[string]float64 `json:"execution_times,omitempty"`
}

// Tiles holds one entry per tile, indexed by tile id.
type Tiles struct {
	ID             []int       `json:"tile_id"`
	GX             []int       `json:"grid_x"`
	GY             []int       `json:"grid_y"`
	X              []float64   `json:"x"`
	Y              []float64   `json:"y"`
	Color          []world.RGB `json:"col"`
	CloudColor     []world.RGB `json:"cloud_col"`
	WaterLevel     []float64   `json:"water_level"`
	ElevationNoise []float64   `json:"elevation_noise"`
	MoistureNoise  []float64   `json:"moisture_noise"`
	IsLand         []bool      `json:"is_land"`
	IsMountain     []bool      `json:"is_mountain"`
	IsCoast        []bool      `json:"is_coast"`
	OceanID        []int       `json:"ocean_id"`
	TerritoryID    []int       `json:"territory_id"`
}

// Len returns the number of tiles.
func (t Tiles) Len() int { return len(t.ID) }

// Territories holds one entry per territory, indexed by territory id.
type Territories struct {
	ID          []int              `json:"id"`
	Centroid    []orb.Point        `json:"center_pos"`
	FillColor   []world.RGB        `json:"territory_col"`
	BorderColor []world.RGB        `json:"selected_territory_col"`
	TileIDs     [][]int            `json:"tile_ids"`
	HarborIDs   [][]int            `json:"harbor_ids"`
	Exteriors   [][]orb.Ring       `json:"exteriors"`
	Interiors   [][]orb.Ring       `json:"interiors"`
	WKB         [][]byte           `json:"wkb"`
	Resources   [][]world.Resource `json:"resources"`
}

// Len returns the number of territories.
func (t Territories) Len() int { return len(t.ID) }

// Harbors holds one entry per harbor, indexed by harbor id.
type Harbors struct {
	ID          []int           `json:"id"`
	TileID      []int           `json:"tile_id"`
	TerritoryID []int           `json:"parent_id"`
	Usable      []bool          `json:"is_usable"`
	Routes      []map[int][]int `json:"trade_routes_data"`
}

// Len returns the number of harbors.
func (h Harbors) Len() int { return len(h.ID) }

// Stats summarizes a payload.
type Stats struct {
	Tiles       int
	Land        int
	Territories int
	Harbors     int
	Routes      int
}

// Stats counts tiles, territories, harbors and directed routes.
func (p *Payload) Stats() Stats {
	s := Stats{
		Tiles:       p.Tiles.Len(),
		Territories: p.Territories.Len(),
		Harbors:     p.Harbors.Len(),
	}
	for _, land := range p.Tiles.IsLand {
		if land {
			s.Land++
		}
	}
	for _, routes := range p.Harbors.Routes {
		s.Routes += len(routes)
	}
	return s
}
