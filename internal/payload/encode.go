package payload

import (
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/talgya/tradewinds/internal/world"
)

// Encode flattens w into a payload. Harbor routes carry their tile paths
// only; the smoothed curves are rebuilt by the receiver.
func Encode(w *world.World) *Payload {
	p := &Payload{
		Version:    Version,
		Seed:       w.Seed,
		Width:      w.Layout.Width,
		Height:     w.Layout.Height,
		TileSize:   w.Layout.TileSize,
		Cols:       w.Cols,
		Rows:       w.Rows,
		Landmasses: w.Landmasses,
	}
	encodeTiles(&p.Tiles, w.Tiles)
	encodeTerritories(&p.Territories, w.Territories)
	encodeHarbors(&p.Harbors, w.Harbors)
	return p
}

func encodeTiles(out *Tiles, tiles []*world.Tile) {
	n := len(tiles)
	*out = Tiles{
		ID:             make([]int, n),
		GX:             make([]int, n),
		GY:             make([]int, n),
		X:              make([]float64, n),
		Y:              make([]float64, n),
		Color:          make([]world.RGB, n),
		CloudColor:     make([]world.RGB, n),
		WaterLevel:     make([]float64, n),
		ElevationNoise: make([]float64, n),
		MoistureNoise:  make([]float64, n),
		IsLand:         make([]bool, n),
		IsMountain:     make([]bool, n),
		IsCoast:        make([]bool, n),
		OceanID:        make([]int, n),
		TerritoryID:    make([]int, n),
	}
	for i, t := range tiles {
		out.ID[i] = int(t.ID)
		out.GX[i] = t.Grid.X
		out.GY[i] = t.Grid.Y
		out.X[i] = t.Center[0]
		out.Y[i] = t.Center[1]
		out.Color[i] = t.Color
		out.CloudColor[i] = t.CloudColor
		out.WaterLevel[i] = t.WaterLevel
		out.ElevationNoise[i] = t.ElevationNoise
		out.MoistureNoise[i] = t.MoistureNoise
		out.IsLand[i] = t.IsLand
		out.IsMountain[i] = t.IsMountain
		out.IsCoast[i] = t.IsCoast
		out.OceanID[i] = t.OceanID
		out.TerritoryID[i] = t.TerritoryID
	}
}

func encodeTerritories(out *Territories, territories []*world.Territory) {
	n := len(territories)
	*out = Territories{
		ID:          make([]int, n),
		Centroid:    make([]orb.Point, n),
		FillColor:   make([]world.RGB, n),
		BorderColor: make([]world.RGB, n),
		TileIDs:     make([][]int, n),
		HarborIDs:   make([][]int, n),
		Exteriors:   make([][]orb.Ring, n),
		Interiors:   make([][]orb.Ring, n),
		WKB:         make([][]byte, n),
		Resources:   make([][]world.Resource, n),
	}
	for i, t := range territories {
		out.ID[i] = t.ID
		out.Centroid[i] = t.Centroid
		out.FillColor[i] = t.FillColor
		out.BorderColor[i] = t.BorderColor
		out.TileIDs[i] = tileInts(t.Tiles)
		out.HarborIDs[i] = harborInts(t.HarborIDs())
		out.Exteriors[i] = t.Exteriors
		out.Interiors[i] = t.Interiors
		out.Resources[i] = t.Resources
		if len(t.Shape) > 0 {
			b, err := wkb.Marshal(t.Shape)
			if err != nil {
				slog.Warn("territory shape not encodable", "territory", t.ID, "error", err)
				continue
			}
			out.WKB[i] = b
		}
	}
}

func encodeHarbors(out *Harbors, harbors []*world.Harbor) {
	n := len(harbors)
	*out = Harbors{
		ID:          make([]int, n),
		TileID:      make([]int, n),
		TerritoryID: make([]int, n),
		Usable:      make([]bool, n),
		Routes:      make([]map[int][]int, n),
	}
	for i, h := range harbors {
		out.ID[i] = int(h.ID)
		out.TileID[i] = int(h.Tile)
		out.TerritoryID[i] = h.Territory
		out.Usable[i] = h.Usable
		routes := make(map[int][]int, len(h.Routes))
		for target, r := range h.Routes {
			routes[int(target)] = tileInts(r.Path)
		}
		out.Routes[i] = routes
	}
}

func tileInts(ids []world.TileID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

func harborInts(ids []world.HarborID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
