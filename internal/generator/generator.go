// Package generator turns a map template into a playable tile grid: zones are
// placed with a force-directed solver, tessellated onto the grid, shaped into
// connected obstacle-laced regions, linked across their borders and laced with
// roads. A run is single-threaded and deterministic for a fixed seed.
package generator

import (
	"fmt"
	"log/slog"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/zoneforge/internal/catalog"
	"github.com/talgya/zoneforge/internal/template"
	"github.com/talgya/zoneforge/internal/world"
)

// Phase is a step of the generation state machine.
type Phase int

const (
	PhaseInit Phase = iota
	PhasePlaceZones
	PhaseShapeZones
	PhaseConnect
	PhaseBuildRoads
	PhaseDone
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhasePlaceZones:
		return "place_zones"
	case PhaseShapeZones:
		return "shape_zones"
	case PhaseConnect:
		return "connect"
	case PhaseBuildRoads:
		return "build_roads"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// MapGenerator sequences one generation run over a template.
type MapGenerator struct {
	Settings Settings
	Template *template.Template
	Catalog  catalog.Catalog

	// OnPhase, if set, is called as each phase begins.
	OnPhase func(phase Phase)

	phase Phase
	ctx   *Context
}

// NewMapGenerator creates a generator. A nil catalog falls back to the
// built-in roster.
func NewMapGenerator(tmpl *template.Template, cat catalog.Catalog, settings Settings) *MapGenerator {
	if cat == nil {
		cat = catalog.Default()
	}
	return &MapGenerator{Settings: settings, Template: tmpl, Catalog: cat}
}

// Phase returns the phase the generator is in, or the one it failed in.
func (g *MapGenerator) Phase() Phase { return g.phase }

// Context returns the run context of the last Generate call.
func (g *MapGenerator) Context() *Context { return g.ctx }

func (g *MapGenerator) enter(p Phase) {
	g.phase = p
	slog.Info("generation phase", "phase", p.String(), "seed", g.Settings.Seed)
	if g.OnPhase != nil {
		g.OnPhase(p)
	}
}

// Generate runs the whole pipeline. Any failure, including an out-of-bounds
// tile access or an undeclared zone id, is returned as a *GenerationError and
// no partial map is kept.
func (g *MapGenerator) Generate() (res *Result, err error) {
	start := time.Now()
	g.phase = PhaseInit
	g.ctx = nil

	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok {
				panic(r)
			}
			switch perr.(type) {
			case *world.OutOfBoundsError, *InvalidZoneError:
				res = nil
				err = &GenerationError{Phase: g.phase, Seed: g.Settings.Seed, Err: perr}
			default:
				panic(r)
			}
		}
	}()

	g.enter(PhaseInit)
	if g.Settings.Size <= 0 {
		return nil, g.fail(fmt.Errorf("invalid map size %d", g.Settings.Size))
	}
	if !g.Template.SupportsSize(g.Settings.Size) {
		return nil, g.fail(fmt.Errorf("template %q does not support size %d", g.Template.Name, g.Settings.Size))
	}
	if err := CheckGuards(g.Template, g.Catalog); err != nil {
		return nil, g.fail(err)
	}
	ctx, err := NewContext(g.Template, g.Catalog, g.Settings)
	if err != nil {
		return nil, g.fail(err)
	}
	g.ctx = ctx

	g.enter(PhasePlaceZones)
	PlaceZones(ctx)
	if err := Tessellate(ctx); err != nil {
		return nil, g.fail(err)
	}

	g.enter(PhaseShapeZones)
	g.shape(ctx)

	g.enter(PhaseConnect)
	if err := ConnectAll(ctx); err != nil {
		return nil, g.fail(err)
	}
	for _, z := range ctx.Zones() {
		CommitPending(ctx, z)
		Tighten(ctx, z, g.Settings.TightenIterations)
		UpdatePossibleTiles(ctx, z)
	}

	g.enter(PhaseBuildRoads)
	roads := BuildRoads(ctx)
	if g.Settings.Paint {
		Paint(ctx, opensimplex.NewNormalized(g.Settings.Seed+1))
	}

	g.enter(PhaseDone)
	res = newResult(ctx, roads)
	states := ctx.Grid.CountStates()
	slog.Info("map generated",
		"template", g.Template.Name,
		"size", g.Settings.Size,
		"zones", len(res.Zones),
		"free", states[world.Free],
		"blocked", states[world.Blocked],
		"roads", roads,
		"objects", len(res.Objects),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func (g *MapGenerator) shape(ctx *Context) {
	zones := ctx.Zones()
	for _, z := range zones {
		CreateBorder(ctx, z)
	}
	for _, z := range zones {
		EnsureCenterFree(ctx, z)
	}
	if g.Settings.Fractalize {
		for _, z := range zones {
			Fractalize(ctx, z, g.Settings.FreePathSpacing)
		}
	}
	if g.Settings.Obstacles {
		noise := opensimplex.NewNormalized(g.Settings.Seed)
		for _, z := range zones {
			if z.Type == template.ZoneWater {
				continue
			}
			marked := SeedObstacles(ctx, z, noise, g.Settings.ObstacleThreshold)
			slog.Debug("obstacles seeded", "zone", z.ID, "pending", marked)
		}
	}
}

func (g *MapGenerator) fail(err error) error {
	return &GenerationError{Phase: g.phase, Seed: g.Settings.Seed, Err: err}
}
