package generator

import (
	"errors"
	"testing"

	"github.com/talgya/zoneforge/internal/catalog"
	"github.com/talgya/zoneforge/internal/template"
	"github.com/talgya/zoneforge/internal/world"
)

func tessellationContext(t *testing.T, size int, centers []world.Position, sizes []int) *Context {
	t.Helper()
	tmpl := &template.Template{Name: "tess", Roads: 100}
	for i := range centers {
		tmpl.Zones = append(tmpl.Zones, template.Zone{ID: i, Type: template.ZoneTreasure, Size: sizes[i]})
	}
	settings := DefaultSettings()
	settings.Size = size
	ctx, err := NewContext(tmpl, catalog.Default(), settings)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	for i, c := range centers {
		ctx.Zone(world.ZoneID(i)).Center = c
	}
	return ctx
}

func TestTessellatePartitions(t *testing.T) {
	ctx := tessellationContext(t, 30,
		[]world.Position{{X: 5, Y: 5}, {X: 24, Y: 6}, {X: 15, Y: 24}},
		[]int{10, 10, 20})
	if err := Tessellate(ctx); err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	assertPartition(t, ctx)
	for _, z := range ctx.Zones() {
		if !z.HasTile(z.Center) || ctx.Grid.ZoneAt(z.Center) != z.ID {
			t.Errorf("zone %d center %v outside the zone", z.ID, z.Center)
		}
	}
	if big, small := ctx.Zone(2).TileCount(), ctx.Zone(0).TileCount(); big <= small {
		t.Errorf("larger zone got %d tiles, smaller %d", big, small)
	}
}

func TestTessellateEmptyZone(t *testing.T) {
	ctx := tessellationContext(t, 10,
		[]world.Position{{X: 5, Y: 5}, {X: 5, Y: 5}},
		[]int{10, 10})
	err := Tessellate(ctx)
	if !errors.Is(err, ErrEmptyZone) {
		t.Fatalf("expected ErrEmptyZone, got %v", err)
	}
}

func TestBoundaryMetricAnisotropic(t *testing.T) {
	if boundaryMetric(0, 0) != 0 {
		t.Fatal("metric at origin must be zero")
	}
	if h, v := boundaryMetric(1, 0), boundaryMetric(0, 1); v <= h {
		t.Errorf("vertical step %v should cost more than horizontal %v", v, h)
	}
	if boundaryMetric(2, 0) <= boundaryMetric(1, 0) {
		t.Error("metric must grow with distance")
	}
}

func TestBoundaryCostWeighsMetricBySize(t *testing.T) {
	// On the reference size the metric is unscaled. Along the row through both
	// centers the small zone keeps x=25 and the large one wins x=30, where the
	// metric ratio (about 2.8) is below the size ratio of 4.
	ctx := tessellationContext(t, 96,
		[]world.Position{{X: 10, Y: 50}, {X: 60, Y: 50}},
		[]int{10, 40})
	assign(ctx.Grid, ctx.Zones(), func(tile world.Position, z *Zone) float64 {
		return boundaryCost(tile, z, 1)
	})
	if got := ctx.Grid.ZoneAt(world.Position{X: 25, Y: 50}); got != 0 {
		t.Errorf("tile (25,50) owned by %d, want 0", got)
	}
	if got := ctx.Grid.ZoneAt(world.Position{X: 30, Y: 50}); got != 1 {
		t.Errorf("tile (30,50) owned by %d, want 1", got)
	}
	small := ctx.Zone(0)
	if c := boundaryCost(world.Position{X: 20, Y: 50}, small, 1); c != boundaryMetric(10, 0)/10 {
		t.Errorf("cost = %v", c)
	}
}

func TestNearestTileSnap(t *testing.T) {
	tiles := []world.Position{{X: 0, Y: 0}, {X: 9, Y: 9}, {X: 4, Y: 6}}
	if got := nearestTile(tiles, world.Position{X: 5, Y: 5}); got != (world.Position{X: 4, Y: 6}) {
		t.Errorf("nearestTile = %v", got)
	}
}
