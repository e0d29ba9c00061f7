package generator

import (
	"fmt"
	"math"

	"github.com/talgya/zoneforge/internal/phi"
	"github.com/talgya/zoneforge/internal/world"
)

// Tessellate assigns every tile to exactly one zone. The first pass uses
// size-weighted squared Euclidean distance and recenters each zone on its
// centroid; the second pass swaps in the size-weighted anisotropic boundary
// metric, writes the grid coloring and recenters once more. The final centroid is the zone's
// logical center.
func Tessellate(ctx *Context) error {
	g := ctx.Grid
	zones := ctx.Zones()

	assign(g, zones, func(tile world.Position, z *Zone) float64 {
		return float64(tile.SquaredDistance(z.Center)) / float64(z.Size)
	})
	if err := recenter(g, zones); err != nil {
		return fmt.Errorf("coarse pass: %w", err)
	}

	scale := phi.ReferenceMapSize / float64(g.Size)
	assign(g, zones, func(tile world.Position, z *Zone) float64 {
		return boundaryCost(tile, z, scale)
	})
	if err := recenter(g, zones); err != nil {
		return fmt.Errorf("final pass: %w", err)
	}
	return nil
}

// boundaryCost is the second-pass cost of tile for z: the boundary metric of
// the scaled offset divided by the zone's size weight.
func boundaryCost(tile world.Position, z *Zone, scale float64) float64 {
	f := boundaryMetric(
		math.Abs(float64(tile.X-z.Center.X))*scale,
		math.Abs(float64(tile.Y-z.Center.Y))*scale,
	)
	return f / float64(z.Size)
}

// boundaryMetric is the anisotropic distance used for final zone borders.
func boundaryMetric(dx, dy float64) float64 {
	return dx*(1+dx*(phi.HorizontalQuad+dx*phi.HorizontalCubic)) +
		dy*(phi.VerticalLinear+dy*(phi.VerticalQuad+dy*phi.VerticalCubic))
}

// assign gives each tile to the zone with the smallest cost. Ties keep the
// first zone in id order.
func assign(g *world.Grid, zones []*Zone, cost func(world.Position, *Zone) float64) {
	for _, z := range zones {
		z.resetTiles()
	}
	for i := range g.Tiles {
		tile := g.PositionOf(i)
		var owner *Zone
		best := math.Inf(1)
		for _, z := range zones {
			if c := cost(tile, z); c < best {
				best = c
				owner = z
			}
		}
		owner.addTile(tile)
		g.SetZone(tile, owner.ID)
	}
}

// recenter moves each zone's center to the integer centroid of its tiles. A
// centroid outside the zone, or on its edge, snaps to the nearest interior
// tile so the center never sits on a seam; zones without interior tiles snap
// to the nearest owned tile.
func recenter(g *world.Grid, zones []*Zone) error {
	for _, z := range zones {
		tiles := z.Tiles()
		if len(tiles) == 0 {
			return fmt.Errorf("zone %d: %w", z.ID, ErrEmptyZone)
		}
		sx, sy := 0, 0
		for _, t := range tiles {
			sx += t.X
			sy += t.Y
		}
		c := world.Position{X: sx / len(tiles), Y: sy / len(tiles)}
		if !z.HasTile(c) || !interior(g, z.ID, c) {
			var inner []world.Position
			for _, t := range tiles {
				if interior(g, z.ID, t) {
					inner = append(inner, t)
				}
			}
			if len(inner) == 0 {
				inner = tiles
			}
			c = nearestTile(inner, c)
		}
		z.Center = c
	}
	return nil
}

// interior reports whether every 8-neighbor of pos lies on the grid and in
// the same zone.
func interior(g *world.Grid, id world.ZoneID, pos world.Position) bool {
	for _, d := range world.Neighbors8 {
		n := pos.Add(d)
		if !g.InBounds(n) || g.ZoneAt(n) != id {
			return false
		}
	}
	return true
}

func nearestTile(tiles []world.Position, target world.Position) world.Position {
	best := tiles[0]
	bestDist := best.SquaredDistance(target)
	for _, t := range tiles[1:] {
		if d := t.SquaredDistance(target); d < bestDist {
			best = t
			bestDist = d
		}
	}
	return best
}
