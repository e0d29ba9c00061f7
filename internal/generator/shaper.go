package generator

import (
	"log/slog"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/zoneforge/internal/world"
)

// CreateBorder blocks every Possible foreign tile touching the zone, leaving a
// seam between neighbors until connections are carved through it. Each blocked
// tile is recorded on its owner's seam.
func CreateBorder(ctx *Context, z *Zone) {
	for _, t := range z.Tiles() {
		ctx.Grid.ForEachNeighbor(t, func(n world.Position) {
			if ctx.Grid.ZoneAt(n) != z.ID && ctx.Grid.IsPossible(n) {
				ctx.Grid.SetOccupied(n, world.Blocked)
				ctx.ZoneAt(n).seam.Put(n)
			}
		})
	}
}

// EnsureCenterFree frees the zone center and makes it the root of the free
// skeleton.
func EnsureCenterFree(ctx *Context, z *Zone) {
	ctx.Grid.SetOccupied(z.Center, world.Free)
	z.AddFreePath(z.Center)
}

// Fractalize grows the free skeleton. Seed tiles at least spacing tiles away
// from every existing free-path tile are connected to the center with
// 8-directional paths, in random order. Seeds that cannot reach the center are
// skipped.
func Fractalize(ctx *Context, z *Zone, spacing int) {
	if spacing <= 0 {
		return
	}
	minDist := spacing * spacing

	var candidates []world.Position
	for _, t := range z.Tiles() {
		if ctx.Grid.IsPossible(t) {
			candidates = append(candidates, t)
		}
	}
	ctx.Rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	connected := 0
	for _, c := range candidates {
		if !ctx.Grid.IsPossible(c) || !farFromFreePaths(z, c, minDist) {
			continue
		}
		if res := ConnectToCenter(ctx, z, c, false, false); res.OK() {
			connected++
		}
	}
	slog.Debug("free paths fractalized", "zone", z.ID, "seeds", connected, "free", len(z.FreePaths()))
}

func farFromFreePaths(z *Zone, pos world.Position, minDist int) bool {
	for _, f := range z.FreePaths() {
		if f.SquaredDistance(pos) < minDist {
			return false
		}
	}
	return true
}

// MarkPending records pos as a provisional obstacle. It stays Possible until
// CommitPending, and path searches may cross it at a higher cost when asked.
func MarkPending(ctx *Context, z *Zone, pos world.Position) bool {
	if ctx.Grid.ZoneAt(pos) != z.ID || !ctx.Grid.IsPossible(pos) || z.IsFreePath(pos) {
		return false
	}
	return z.pending.Put(pos)
}

// CommitPending turns provisional obstacles that no path claimed into Blocked
// tiles and clears the pending set.
func CommitPending(ctx *Context, z *Zone) int {
	committed := 0
	for _, p := range z.pending.Slice() {
		if ctx.Grid.IsPossible(p) {
			ctx.Grid.SetOccupied(p, world.Blocked)
			committed++
		}
	}
	z.pending.Clear()
	return committed
}

// SeedObstacles marks provisional obstacles where layered simplex noise is
// high, away from the free skeleton.
func SeedObstacles(ctx *Context, z *Zone, noise opensimplex.Noise, threshold float64) int {
	marked := 0
	for _, t := range z.Tiles() {
		if !ctx.Grid.IsPossible(t) || touchesFree(ctx, t) {
			continue
		}
		if octaveNoise(noise, float64(t.X), float64(t.Y), 3, 0.12, 0.5) < threshold {
			continue
		}
		if MarkPending(ctx, z, t) {
			marked++
		}
	}
	return marked
}

func touchesFree(ctx *Context, pos world.Position) bool {
	free := false
	ctx.Grid.ForEachNeighbor(pos, func(n world.Position) {
		if ctx.Grid.IsFree(n) {
			free = true
		}
	})
	return free
}

// Tighten smooths obstacles with a cellular automaton. Each round a Possible
// tile with more than four Blocked neighbors becomes Blocked, and one with
// more than four Free neighbors becomes Free.
func Tighten(ctx *Context, z *Zone, iterations int) {
	for i := 0; i < iterations; i++ {
		for _, t := range z.Tiles() {
			if !ctx.Grid.IsPossible(t) {
				continue
			}
			blocked, free := 0, 0
			ctx.Grid.ForEachNeighbor(t, func(n world.Position) {
				switch ctx.Grid.State(n) {
				case world.Blocked:
					blocked++
				case world.Free:
					free++
				}
			})
			switch {
			case blocked > 4:
				ctx.Grid.SetOccupied(t, world.Blocked)
			case free > 4:
				ctx.Grid.SetOccupied(t, world.Free)
			}
		}
	}
}

// UpdatePossibleTiles rebuilds the set of tiles still open for content.
func UpdatePossibleTiles(ctx *Context, z *Zone) {
	z.possible.Clear()
	for _, t := range z.Tiles() {
		if ctx.Grid.IsPossible(t) {
			z.possible.Put(t)
		}
	}
}

// octaveNoise layers several noise frequencies into one value in [0,1).
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
