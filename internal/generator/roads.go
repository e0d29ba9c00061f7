package generator

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/zoneforge/internal/world"
)

// Road mask bits, one per direct neighbor in clockwise order from north.
const (
	RoadNorth = 1 << iota
	RoadEast
	RoadSouth
	RoadWest
)

// roadSprites maps a neighbor mask to the road spritesheet index. Index 0 is
// the isolated piece and index 1 the four-way crossing.
var roadSprites = [16]int{
	0,  // none
	6,  // N end
	7,  // E end
	10, // N-E corner
	8,  // S end
	2,  // N-S straight
	11, // E-S corner
	14, // N-E-S junction
	9,  // W end
	13, // N-W corner
	3,  // E-W straight
	15, // N-E-W junction
	12, // S-W corner
	4,  // N-S-W junction
	5,  // E-S-W junction
	1,  // crossing
}

// RoadSprite returns the sprite index for a neighbor mask.
func RoadSprite(mask int) int {
	return roadSprites[mask&0xF]
}

// RoadMask builds the neighbor mask of the road tile at pos.
func RoadMask(g *world.Grid, pos world.Position) int {
	mask := 0
	for bit, d := range world.Direct4 {
		n := pos.Add(d)
		if g.InBounds(n) && g.IsRoad(n) {
			mask |= 1 << bit
		}
	}
	return mask
}

// BuildRoads turns every recorded zone path into road tiles at the template's
// density and assigns sprites. It returns the number of road tiles.
func BuildRoads(ctx *Context) int {
	density := ctx.Template.Roads
	paved := mapset.New[world.Position]()
	var pavedOrder, gapped []world.Position

	for _, z := range ctx.Zones() {
		for _, path := range z.RoadPaths() {
			p, g := splitPath(ctx, path, density)
			for _, t := range p {
				if !paved.Has(t) {
					paved.Put(t)
					pavedOrder = append(pavedOrder, t)
				}
			}
			gapped = append(gapped, g...)
		}
	}

	for _, t := range gapped {
		if !paved.Has(t) {
			ctx.Grid.SetRoad(t, false)
		}
	}
	for _, t := range pavedOrder {
		ctx.Grid.SetRoad(t, true)
	}
	for _, t := range pavedOrder {
		ctx.Grid.SetRoadSprite(t, RoadSprite(RoadMask(ctx.Grid, t)))
	}
	return len(pavedOrder)
}

// splitPath divides a path into paved and gapped tiles. At full density every
// tile is paved. Otherwise the paved share is split into gaps+1 runs and the
// rest into gaps runs, alternating from the path's far end.
func splitPath(ctx *Context, path []world.Position, density int) (paved, gapped []world.Position) {
	if density >= 100 {
		return path, nil
	}
	if density <= 0 {
		return nil, path
	}

	n := len(path)
	gaps := n / 10
	if gaps < 1 {
		gaps = 1
	}
	pavedTotal := n * density / 100
	pavedRuns := ctx.Rand.Composition(pavedTotal, gaps+1)
	gapRuns := ctx.Rand.Composition(n-pavedTotal, gaps)

	i := 0
	for run := 0; run <= gaps; run++ {
		for k := 0; k < pavedRuns[run] && i < n; k++ {
			paved = append(paved, path[i])
			i++
		}
		if run == gaps {
			break
		}
		for k := 0; k < gapRuns[run] && i < n; k++ {
			gapped = append(gapped, path[i])
			i++
		}
	}
	return paved, gapped
}
