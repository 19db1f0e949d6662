package payload

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/talgya/tradewinds/internal/harbor"
	"github.com/talgya/tradewinds/internal/territory"
	"github.com/talgya/tradewinds/internal/world"
)

// ErrMalformed is returned when a payload's arrays cannot describe a world.
var ErrMalformed = errors.New("malformed payload")

// Decode rebuilds a linked world from p. Tiles, territories and harbors are
// allocated in id order, adjacency is derived from grid coordinates, and
// route curves are smoothed locally. References to ids that do not exist are
// logged and dropped; a harbor on an unknown tile is kept unusable and
// without routes. Structural damage is reported as ErrMalformed.
func Decode(p *Payload) (*world.World, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	log := slog.With("component", "payload")

	layout := world.Layout{Width: p.Width, Height: p.Height, TileSize: p.TileSize}
	g := world.NewEmptyGrid(layout, p.Cols, p.Rows, p.Tiles.Len())
	pt := &p.Tiles
	for i := range pt.ID {
		t := g.AddTile(world.GridCoord{X: pt.GX[i], Y: pt.GY[i]})
		t.Color = pt.Color[i]
		t.CloudColor = pt.CloudColor[i]
		t.WaterLevel = pt.WaterLevel[i]
		t.ElevationNoise = pt.ElevationNoise[i]
		t.MoistureNoise = pt.MoistureNoise[i]
		t.IsLand = pt.IsLand[i]
		t.IsMountain = pt.IsMountain[i]
		t.IsCoast = pt.IsCoast[i]
		t.OceanID = pt.OceanID[i]
		t.TerritoryID = pt.TerritoryID[i]
	}
	g.Link()

	w := world.NewWorld(p.Seed, g)
	for _, t := range w.Tiles {
		if !t.IsLand && t.OceanID != world.NoOcean {
			w.Oceans[t.OceanID] = append(w.Oceans[t.OceanID], t.ID)
		}
	}

	w.Harbors = make([]*world.Harbor, p.Harbors.Len())
	for i := range p.Harbors.ID {
		tile := world.TileID(p.Harbors.TileID[i])
		h := world.NewHarbor(world.HarborID(i), tile, p.Harbors.TerritoryID[i])
		h.Usable = p.Harbors.Usable[i]
		if w.Tile(tile) == nil {
			// Keeps its id so later harbors stay dense, but carries no routes.
			log.Warn("harbor on unknown tile disabled", "harbor", i, "tile", tile)
			h.Usable = false
		}
		w.Harbors[i] = h
	}

	w.Territories = make([]*world.Territory, p.Territories.Len())
	for i := range p.Territories.ID {
		w.Territories[i] = decodeTerritory(w, p, i, log)
	}

	for i, routes := range p.Harbors.Routes {
		h := w.Harbors[i]
		if w.Tile(h.Tile) == nil {
			continue
		}
		for target, path := range routes {
			dst := w.Harbor(world.HarborID(target))
			if dst == nil || w.Tile(dst.Tile) == nil {
				log.Warn("route to unknown harbor dropped", "harbor", i, "target", target)
				continue
			}
			ids, ok := tileIDs(w, path)
			if !ok {
				log.Warn("route through unknown tile dropped", "harbor", i, "target", target)
				continue
			}
			h.Routes[world.HarborID(target)] = &world.Route{Path: ids}
		}
	}
	harbor.BuildCurves(w)

	for _, group := range p.Landmasses {
		var kept []int
		for _, id := range group {
			if w.Territory(id) == nil {
				log.Warn("landmass references unknown territory", "territory", id)
				continue
			}
			kept = append(kept, id)
		}
		if len(kept) > 0 {
			w.Landmasses = append(w.Landmasses, kept)
		}
	}

	w.BuildSpatialIndex()
	return w, nil
}

func decodeTerritory(w *world.World, p *Payload, i int, log *slog.Logger) *world.Territory {
	pt := &p.Territories
	t := &world.Territory{
		ID:          i,
		Centroid:    pt.Centroid[i],
		FillColor:   pt.FillColor[i],
		BorderColor: pt.BorderColor[i],
	}

	var members []*world.Tile
	for _, id := range pt.TileIDs[i] {
		tile := w.Tile(world.TileID(id))
		if tile == nil {
			log.Warn("territory references unknown tile", "territory", i, "tile", id)
			continue
		}
		t.Tiles = append(t.Tiles, tile.ID)
		members = append(members, tile)
	}

	for _, id := range pt.HarborIDs[i] {
		h := w.Harbor(world.HarborID(id))
		if h == nil {
			log.Warn("territory references unknown harbor", "territory", i, "harbor", id)
			continue
		}
		h.Territory = i
		t.Harbors = append(t.Harbors, h)
	}

	for _, r := range pt.Resources[i] {
		tile := w.Tile(r.Tile)
		if tile == nil {
			log.Warn("resource on unknown tile dropped", "territory", i, "tile", r.Tile)
			continue
		}
		rt := r.Type
		tile.Resource = &rt
		t.Resources = append(t.Resources, r)
	}

	t.Exteriors, t.Interiors = pt.Exteriors[i], pt.Interiors[i]
	if shape, ok := decodeShape(pt.WKB[i]); ok {
		t.Shape = shape
	} else if len(members) > 0 {
		t.Exteriors, t.Interiors, t.Shape = territory.Outline(members)
	}
	return t
}

func decodeShape(b []byte) (orb.MultiPolygon, bool) {
	if len(b) == 0 {
		return nil, false
	}
	geom, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, false
	}
	switch g := geom.(type) {
	case orb.MultiPolygon:
		return g, true
	case orb.Polygon:
		return orb.MultiPolygon{g}, true
	}
	return nil, false
}

func tileIDs(w *world.World, ids []int) ([]world.TileID, bool) {
	out := make([]world.TileID, len(ids))
	for i, id := range ids {
		if w.Tile(world.TileID(id)) == nil {
			return nil, false
		}
		out[i] = world.TileID(id)
	}
	return out, true
}

// validate checks that the arrays line up, that ids are dense and that every
// tile sits on its own cell inside the grid.
func (p *Payload) validate() error {
	if !(p.TileSize > 0) || math.IsInf(p.TileSize, 0) {
		return fmt.Errorf("%w: tile size %v", ErrMalformed, p.TileSize)
	}
	if p.Cols < 0 || p.Rows < 0 {
		return fmt.Errorf("%w: grid size %dx%d", ErrMalformed, p.Cols, p.Rows)
	}
	n := p.Tiles.Len()
	pt := &p.Tiles
	for name, l := range map[string]int{
		"grid_x": len(pt.GX), "grid_y": len(pt.GY),
		"col": len(pt.Color), "cloud_col": len(pt.CloudColor),
		"water_level": len(pt.WaterLevel), "elevation_noise": len(pt.ElevationNoise),
		"moisture_noise": len(pt.MoistureNoise), "is_land": len(pt.IsLand),
		"is_mountain": len(pt.IsMountain), "is_coast": len(pt.IsCoast),
		"ocean_id": len(pt.OceanID), "territory_id": len(pt.TerritoryID),
	} {
		if l != n {
			return fmt.Errorf("%w: tiles.%s has %d entries, want %d", ErrMalformed, name, l, n)
		}
	}
	if err := dense("tile", pt.ID); err != nil {
		return err
	}
	seen := make(map[world.GridCoord]bool, n)
	for i := range pt.ID {
		c := world.GridCoord{X: pt.GX[i], Y: pt.GY[i]}
		if c.X < 0 || c.X >= p.Cols || c.Y < 0 || c.Y >= p.Rows {
			return fmt.Errorf("%w: tile %d at (%d,%d) outside %dx%d grid", ErrMalformed, i, c.X, c.Y, p.Cols, p.Rows)
		}
		if seen[c] {
			return fmt.Errorf("%w: tile %d repeats cell (%d,%d)", ErrMalformed, i, c.X, c.Y)
		}
		seen[c] = true
	}

	n = p.Territories.Len()
	tt := &p.Territories
	for name, l := range map[string]int{
		"center_pos": len(tt.Centroid), "territory_col": len(tt.FillColor),
		"selected_territory_col": len(tt.BorderColor), "tile_ids": len(tt.TileIDs),
		"harbor_ids": len(tt.HarborIDs), "exteriors": len(tt.Exteriors),
		"interiors": len(tt.Interiors), "wkb": len(tt.WKB), "resources": len(tt.Resources),
	} {
		if l != n {
			return fmt.Errorf("%w: territories.%s has %d entries, want %d", ErrMalformed, name, l, n)
		}
	}
	if err := dense("territory", tt.ID); err != nil {
		return err
	}

	n = p.Harbors.Len()
	ph := &p.Harbors
	for name, l := range map[string]int{
		"tile_id": len(ph.TileID), "parent_id": len(ph.TerritoryID),
		"is_usable": len(ph.Usable), "trade_routes_data": len(ph.Routes),
	} {
		if l != n {
			return fmt.Errorf("%w: harbors.%s has %d entries, want %d", ErrMalformed, name, l, n)
		}
	}
	return dense("harbor", ph.ID)
}

func dense(kind string, ids []int) error {
	for i, id := range ids {
		if id != i {
			return fmt.Errorf("%w: %s at index %d has id %d", ErrMalformed, kind, i, id)
		}
	}
	return nil
}
