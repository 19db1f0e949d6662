package world

import "github.com/paulmach/orb"

// ResourceType names a spawnable resource.
type ResourceType string

const (
	ResourceWood  ResourceType = "wood"
	ResourceStone ResourceType = "stone"
	ResourceIron  ResourceType = "iron"
	ResourcePine  ResourceType = "pine"
	ResourceAmber ResourceType = "amber"
)

// ResourceTypes lists resource types in spawn order.
var ResourceTypes = []ResourceType{ResourceWood, ResourceStone, ResourceIron, ResourcePine, ResourceAmber}

// Resource is a resource deposit on one tile of a territory.
type Resource struct {
	Tile TileID       `json:"tile_id"`
	Type ResourceType `json:"type"`
}

// Territory is a contiguous, bounded-size cluster of land tiles.
type Territory struct {
	ID          int       `json:"id"`
	Centroid    orb.Point `json:"centroid"`
	FillColor   RGB       `json:"fill_color"`
	BorderColor RGB       `json:"border_color"`

	// Tiles are the member tile ids in clustering order.
	Tiles []TileID `json:"tile_ids"`

	// Exteriors and Interiors are the boundary rings of the union of the
	// member tile polygons. A territory split in pieces has several exteriors.
	Exteriors []orb.Ring `json:"exteriors"`
	Interiors []orb.Ring `json:"interiors"`

	// Shape is the assembled boundary geometry; nil when unavailable.
	Shape orb.MultiPolygon `json:"-"`

	Resources []Resource `json:"resources"`
	Harbors   []*Harbor  `json:"-"`
}

// HarborIDs returns the ids of the territory's harbors.
func (t *Territory) HarborIDs() []HarborID {
	ids := make([]HarborID, len(t.Harbors))
	for i, h := range t.Harbors {
		ids[i] = h.ID
	}
	return ids
}
