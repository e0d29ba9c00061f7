package generator

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/zoneforge/internal/world"
)

// Paint gives every tile its zone's terrain and a ground type. Free tiles stay
// on the zone's first ground so paths remain walkable; other tiles pick among
// the allowed grounds by noise. Blocked tiles become forest or mountain unless
// the zone is water.
func Paint(ctx *Context, noise opensimplex.Noise) {
	for _, z := range ctx.Zones() {
		terrain := z.Terrains[0]
		for _, t := range z.Tiles() {
			n := octaveNoise(noise, float64(t.X), float64(t.Y), 4, 0.08, 0.5)
			ctx.Grid.Paint(t, pickTerrain(z.Terrains, n, terrain), pickGround(ctx, z, t, n))
		}
	}
}

func pickTerrain(terrains []world.Terrain, n float64, fallback world.Terrain) world.Terrain {
	if len(terrains) <= 1 {
		return fallback
	}
	// Secondary terrains only appear in the noisiest patches.
	if n < 0.7 {
		return fallback
	}
	i := 1 + int((n-0.7)/0.3*float64(len(terrains)-1))
	if i >= len(terrains) {
		i = len(terrains) - 1
	}
	return terrains[i]
}

func pickGround(ctx *Context, z *Zone, t world.Position, n float64) world.Ground {
	grounds := z.Grounds
	if len(grounds) == 1 && grounds[0] == world.GroundWater {
		return world.GroundWater
	}

	switch ctx.Grid.State(t) {
	case world.Blocked:
		if n > 0.55 {
			return world.GroundMountain
		}
		return world.GroundForest
	case world.Free:
		if grounds[0] == world.GroundWater {
			return world.GroundPlain
		}
		return grounds[0]
	}

	i := int(n * float64(len(grounds)))
	if i >= len(grounds) {
		i = len(grounds) - 1
	}
	return grounds[i]
}
