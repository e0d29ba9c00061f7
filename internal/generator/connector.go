package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/zoneforge/internal/catalog"
	"github.com/talgya/zoneforge/internal/template"
	"github.com/talgya/zoneforge/internal/world"
)

// ErrNoCrossing is wrapped by ConnectionError when no border tile yields a
// path to both centers.
var ErrNoCrossing = errors.New("no reachable crossing tile")

// crossing is a candidate link: a tile in zone A and its direct neighbor in B.
type crossing struct {
	a, b world.Position
}

// ConnectZones carves one declared connection: a crossing on the A-B border,
// a straight path to each center, an optional guard, and road nodes.
func ConnectZones(ctx *Context, conn template.Connection) error {
	a := ctx.Zone(world.ZoneID(conn.From))
	b := ctx.Zone(world.ZoneID(conn.To))

	candidates := borderCandidates(ctx, a, b)
	if len(candidates) == 0 {
		return &ConnectionError{From: a.ID, To: b.ID, Err: fmt.Errorf("zones do not touch: %w", ErrNoCrossing)}
	}

	for _, c := range candidates {
		pathA := FindCrossingPath(ctx, a, b.ID, c.a)
		if !pathA.OK() {
			continue
		}
		pathB := FindCrossingPath(ctx, b, a.ID, c.b)
		if !pathB.OK() {
			continue
		}

		commitPath(ctx, a, pathA.Path)
		commitPath(ctx, b, pathB.Path)
		a.AddRoadPath(pathA.Path)
		b.AddRoadPath(pathB.Path)
		a.AddRoadNode(c.a)
		b.AddRoadNode(c.a)
		b.AddRoadNode(c.b)

		if err := placeGuard(ctx, conn, a, b, c.a); err != nil {
			return &ConnectionError{From: a.ID, To: b.ID, Err: err}
		}
		slog.Debug("zones connected", "from", a.ID, "to", b.ID, "crossing", c.a.String(),
			"path_a", len(pathA.Path), "path_b", len(pathB.Path))
		return nil
	}
	return &ConnectionError{From: a.ID, To: b.ID, Err: ErrNoCrossing}
}

// borderCandidates lists every pair of a non-used A tile and a non-used direct
// neighbor of it in B, ordered for trial: the nearest and farthest quartiles by
// Manhattan distance of the A tile to the border centroid are dropped and the
// rest shuffled. Pairs touching a third zone are avoided when the border offers
// anything else.
func borderCandidates(ctx *Context, a, b *Zone) []crossing {
	var all, clean []crossing
	for _, t := range a.Tiles() {
		if ctx.Grid.IsUsed(t) {
			continue
		}
		ctx.Grid.ForEachDirectNeighbor(t, func(n world.Position) {
			if ctx.Grid.ZoneAt(n) != b.ID || ctx.Grid.IsUsed(n) {
				return
			}
			c := crossing{a: t, b: n}
			all = append(all, c)
			if !touchesThirdZone(ctx, t, a.ID, b.ID) && !touchesThirdZone(ctx, n, a.ID, b.ID) {
				clean = append(clean, c)
			}
		})
	}
	if len(clean) > 0 {
		all = clean
	}
	if len(all) == 0 {
		return nil
	}

	sx, sy := 0, 0
	for _, c := range all {
		sx += c.a.X
		sy += c.a.Y
	}
	centroid := world.Position{X: sx / len(all), Y: sy / len(all)}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].a.Manhattan(centroid) < all[j].a.Manhattan(centroid)
	})

	quarter := len(all) / 4
	trimmed := all[quarter : len(all)-quarter]
	ctx.Rand.Shuffle(len(trimmed), func(i, j int) {
		trimmed[i], trimmed[j] = trimmed[j], trimmed[i]
	})
	return trimmed
}

func touchesThirdZone(ctx *Context, pos world.Position, a, b world.ZoneID) bool {
	third := false
	ctx.Grid.ForEachNeighbor(pos, func(n world.Position) {
		if id := ctx.Grid.ZoneAt(n); id != a && id != b {
			third = true
		}
	})
	return third
}

// guardFilter returns the units allowed to guard a crossing between zones of
// the given types.
func guardFilter(a, b template.ZoneType) catalog.GuardFilter {
	if a == template.ZoneWater && b == template.ZoneWater {
		return nil
	}
	return catalog.LandOnly
}

// CheckGuards verifies that every strength a connection's guard range can roll
// is either zero or resolvable from cat, so a range the roster cannot fill is
// rejected before generation instead of midway through it. Connections to
// undeclared zones are left to the generator.
func CheckGuards(tmpl *template.Template, cat catalog.Catalog) error {
	for _, conn := range tmpl.Connections {
		if conn.Guard.Max <= 0 {
			continue
		}
		from, ok1 := tmpl.Zone(conn.From)
		to, ok2 := tmpl.Zone(conn.To)
		if !ok1 || !ok2 {
			continue
		}
		lowest := max(conn.Guard.Min, 1)
		weakest, ok := catalog.WeakestLeader(cat, guardFilter(from.Type, to.Type))
		if !ok || lowest < weakest {
			return &ConnectionError{
				From: world.ZoneID(conn.From),
				To:   world.ZoneID(conn.To),
				Err: fmt.Errorf("guard range %d-%d below the weakest leader (%d): %w",
					conn.Guard.Min, conn.Guard.Max, weakest, catalog.ErrNoFittingUnits),
			}
		}
	}
	return nil
}

// placeGuard rolls the connection's guard strength and, unless it is zero,
// resolves it through the catalog and puts the encounter on the crossing.
func placeGuard(ctx *Context, conn template.Connection, a, b *Zone, pos world.Position) error {
	strength := ctx.Rand.IntRange(conn.Guard.Min, conn.Guard.Max)
	if strength <= 0 {
		return nil
	}
	enc, err := catalog.ResolveGuard(ctx.Catalog, ctx.Rand, strength, guardFilter(a.Type, b.Type))
	if err != nil {
		return fmt.Errorf("guard: %w", err)
	}
	ctx.PlaceObject(&Guard{
		ID:        ctx.NextObjectID(),
		Pos:       pos,
		From:      a.ID,
		To:        b.ID,
		Strength:  strength,
		Encounter: enc,
	})
	return nil
}

// ConnectAll carves every declared connection in template order.
func ConnectAll(ctx *Context) error {
	for _, conn := range ctx.Template.Connections {
		if err := ConnectZones(ctx, conn); err != nil {
			return err
		}
	}
	return nil
}
