package world

import (
	"errors"
	"math"
	"testing"
)

func TestGridIndexing(t *testing.T) {
	g := NewGrid(8)
	tests := []struct {
		pos  Position
		want int
	}{
		{Position{0, 0}, 0},
		{Position{7, 0}, 7},
		{Position{0, 1}, 8},
		{Position{3, 5}, 43},
		{Position{7, 7}, 63},
	}
	for _, tt := range tests {
		if got := g.Index(tt.pos); got != tt.want {
			t.Errorf("Index(%v) = %d, want %d", tt.pos, got, tt.want)
		}
		if back := g.PositionOf(tt.want); back != tt.pos {
			t.Errorf("PositionOf(%d) = %v, want %v", tt.want, back, tt.pos)
		}
	}
}

func TestNewGridDefaults(t *testing.T) {
	g := NewGrid(4)
	for i, tile := range g.Tiles {
		if tile.State != Possible {
			t.Fatalf("tile %d state = %v, want possible", i, tile.State)
		}
		if !math.IsInf(tile.NearestObject, 1) {
			t.Fatalf("tile %d nearest object = %v, want +Inf", i, tile.NearestObject)
		}
		if g.ZoneColoring[i] != NoZone {
			t.Fatalf("tile %d already colored", i)
		}
	}
}

func TestOccupancyMutators(t *testing.T) {
	g := NewGrid(5)
	p := Position{2, 3}

	g.SetOccupied(p, Blocked)
	if !g.IsBlocked(p) || g.IsFree(p) || g.IsPossible(p) || g.IsUsed(p) {
		t.Fatalf("state after SetOccupied(Blocked) = %v", g.State(p))
	}
	g.SetOccupied(p, Used)
	if !g.IsUsed(p) {
		t.Fatal("expected used")
	}

	g.SetRoad(p, true)
	g.SetRoadSprite(p, 7)
	if !g.IsRoad(p) || g.Tile(p).RoadSprite != 7 {
		t.Fatal("road flag or sprite not stored")
	}
	g.SetRoad(p, false)
	if g.IsRoad(p) || g.Tile(p).RoadSprite != 0 {
		t.Fatal("clearing road should reset sprite")
	}

	g.SetOccupied(Position{0, 0}, Free)
	g.SetOccupied(Position{1, 0}, Free)
	counts := g.CountStates()
	if counts[Free] != 2 || counts[Used] != 1 || counts[Possible] != 22 || counts[Blocked] != 0 {
		t.Errorf("CountStates = %v", counts)
	}
}

func TestOutOfBoundsPanics(t *testing.T) {
	g := NewGrid(3)
	calls := map[string]func(){
		"IsFree":      func() { g.IsFree(Position{3, 0}) },
		"IsRoad":      func() { g.IsRoad(Position{-1, 0}) },
		"SetOccupied": func() { g.SetOccupied(Position{0, 3}, Free) },
		"ZoneAt":      func() { g.ZoneAt(Position{0, -1}) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok {
					t.Fatalf("expected error panic, got %v", r)
				}
				var oob *OutOfBoundsError
				if !errors.As(err, &oob) {
					t.Fatalf("expected OutOfBoundsError, got %T", err)
				}
			}()
			call()
		})
	}
}

func TestNeighborIteration(t *testing.T) {
	g := NewGrid(3)
	center := Position{1, 1}

	var all []Position
	g.ForEachNeighbor(center, func(p Position) { all = append(all, p) })
	if len(all) != 8 {
		t.Fatalf("center has %d neighbors, want 8", len(all))
	}
	if all[0] != (Position{1, 0}) || all[2] != (Position{2, 1}) {
		t.Errorf("neighbors not clockwise from north: %v", all)
	}

	var direct []Position
	g.ForEachDirectNeighbor(center, func(p Position) { direct = append(direct, p) })
	want := []Position{{1, 0}, {2, 1}, {1, 2}, {0, 1}}
	for i := range want {
		if direct[i] != want[i] {
			t.Fatalf("direct neighbors = %v, want %v", direct, want)
		}
	}

	corner := 0
	g.ForEachNeighbor(Position{0, 0}, func(Position) { corner++ })
	if corner != 3 {
		t.Errorf("corner has %d neighbors, want 3", corner)
	}
	diag := 0
	g.ForEachDiagonalNeighbor(Position{0, 0}, func(Position) { diag++ })
	if diag != 1 {
		t.Errorf("corner has %d diagonal neighbors, want 1", diag)
	}
}

func TestUpdateDistancesMonotonic(t *testing.T) {
	g := NewGrid(6)
	g.UpdateDistances(Position{0, 0})
	if d := g.NearestObjectDistance(Position{3, 4}); d != 25 {
		t.Fatalf("distance = %v, want 25", d)
	}
	g.UpdateDistances(Position{5, 5})
	if d := g.NearestObjectDistance(Position{3, 4}); d != 5 {
		t.Fatalf("distance = %v, want 5", d)
	}
	g.UpdateDistances(Position{0, 0})
	if d := g.NearestObjectDistance(Position{3, 4}); d != 5 {
		t.Fatalf("distance increased to %v", d)
	}
}

func TestVPositionWrapAndToGrid(t *testing.T) {
	tests := []struct {
		in   VPosition
		want VPosition
	}{
		{VPosition{0.25, 0.5}, VPosition{0.25, 0.5}},
		{VPosition{1.25, -0.25}, VPosition{0.25, 0.75}},
		{VPosition{-2.5, 3}, VPosition{0.5, 0}},
	}
	for _, tt := range tests {
		got := tt.in.Wrap()
		if math.Abs(got.X-tt.want.X) > 1e-12 || math.Abs(got.Y-tt.want.Y) > 1e-12 {
			t.Errorf("Wrap(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got.X < 0 || got.X >= 1 || got.Y < 0 || got.Y >= 1 {
			t.Errorf("Wrap(%v) left the unit square: %v", tt.in, got)
		}
	}

	if p := (VPosition{0.999, 0}).ToGrid(10); p != (Position{9, 0}) {
		t.Errorf("ToGrid = %v", p)
	}
	if p := (VPosition{1.5, -0.1}).ToGrid(10); p != (Position{9, 0}) {
		t.Errorf("ToGrid should clamp, got %v", p)
	}
}

func TestPositionDistances(t *testing.T) {
	a := Position{1, 2}
	b := Position{4, 6}
	if a.Manhattan(b) != 7 {
		t.Errorf("Manhattan = %d", a.Manhattan(b))
	}
	if a.SquaredDistance(b) != 25 || a.Distance(b) != 5 {
		t.Errorf("Distance = %v", a.Distance(b))
	}
	if a.Add(b) != (Position{5, 8}) {
		t.Errorf("Add = %v", a.Add(b))
	}
}

func TestParseNames(t *testing.T) {
	for tr := TerrainNeutral; tr <= TerrainElf; tr++ {
		got, ok := ParseTerrain(TerrainName(tr))
		if !ok || got != tr {
			t.Errorf("terrain %d did not round trip", tr)
		}
	}
	if _, ok := ParseGround("lava"); ok {
		t.Error("unknown ground accepted")
	}
}
