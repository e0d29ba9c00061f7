package world

import (
	"fmt"
	"math"
)

// ZoneID identifies a template zone.
type ZoneID int

// NoZone marks a tile that tessellation has not assigned yet.
const NoZone ZoneID = -1

// OutOfBoundsError is raised (as a panic value) when generation code touches a
// tile outside the grid. It always indicates a bug in the pipeline.
type OutOfBoundsError struct {
	Pos  Position
	Size int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("tile %s out of bounds for %dx%d grid", e.Pos, e.Size, e.Size)
}

// Grid holds the tile array and the parallel zone coloring of a square map.
// Both slices are indexed by x + size*y and are never reallocated.
type Grid struct {
	Size         int      `json:"size"`
	Tiles        []Tile   `json:"tiles"`
	ZoneColoring []ZoneID `json:"zone_coloring"`
}

// NewGrid creates a size×size grid of Possible tiles with no zone assigned.
func NewGrid(size int) *Grid {
	g := &Grid{
		Size:         size,
		Tiles:        make([]Tile, size*size),
		ZoneColoring: make([]ZoneID, size*size),
	}
	for i := range g.Tiles {
		g.Tiles[i] = newTile()
		g.ZoneColoring[i] = NoZone
	}
	return g
}

// Index maps a position to its slot in Tiles and ZoneColoring.
func (g *Grid) Index(pos Position) int {
	return pos.X + g.Size*pos.Y
}

// PositionOf is the inverse of Index.
func (g *Grid) PositionOf(index int) Position {
	return Position{X: index % g.Size, Y: index / g.Size}
}

// InBounds returns true if pos lies on the grid.
func (g *Grid) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < g.Size && pos.Y >= 0 && pos.Y < g.Size
}

func (g *Grid) mustIndex(pos Position) int {
	if !g.InBounds(pos) {
		panic(&OutOfBoundsError{Pos: pos, Size: g.Size})
	}
	return g.Index(pos)
}

// Tile returns a copy of the tile at pos.
func (g *Grid) Tile(pos Position) Tile {
	return g.Tiles[g.mustIndex(pos)]
}

// State returns the occupancy state at pos.
func (g *Grid) State(pos Position) TileState {
	return g.Tiles[g.mustIndex(pos)].State
}

func (g *Grid) IsFree(pos Position) bool     { return g.State(pos) == Free }
func (g *Grid) IsPossible(pos Position) bool { return g.State(pos) == Possible }
func (g *Grid) IsBlocked(pos Position) bool  { return g.State(pos) == Blocked }
func (g *Grid) IsUsed(pos Position) bool     { return g.State(pos) == Used }

// IsRoad returns true if pos carries a road.
func (g *Grid) IsRoad(pos Position) bool {
	return g.Tiles[g.mustIndex(pos)].Road
}

// SetOccupied is the only way tile state changes.
func (g *Grid) SetOccupied(pos Position, state TileState) {
	g.Tiles[g.mustIndex(pos)].State = state
}

// SetRoad sets or clears the road flag at pos.
func (g *Grid) SetRoad(pos Position, road bool) {
	i := g.mustIndex(pos)
	g.Tiles[i].Road = road
	if !road {
		g.Tiles[i].RoadSprite = 0
	}
}

// SetRoadSprite records the sprite index chosen for the road at pos.
func (g *Grid) SetRoadSprite(pos Position, sprite int) {
	g.Tiles[g.mustIndex(pos)].RoadSprite = sprite
}

// Paint sets the terrain and ground at pos.
func (g *Grid) Paint(pos Position, terrain Terrain, ground Ground) {
	i := g.mustIndex(pos)
	g.Tiles[i].Terrain = terrain
	g.Tiles[i].Ground = ground
}

// ZoneAt returns the zone that owns pos.
func (g *Grid) ZoneAt(pos Position) ZoneID {
	return g.ZoneColoring[g.mustIndex(pos)]
}

// SetZone assigns pos to zone id.
func (g *Grid) SetZone(pos Position, id ZoneID) {
	g.ZoneColoring[g.mustIndex(pos)] = id
}

// ForEachNeighbor calls visit for every in-bounds 8-neighbor of pos,
// clockwise from north.
func (g *Grid) ForEachNeighbor(pos Position, visit func(Position)) {
	for _, d := range Neighbors8 {
		if n := pos.Add(d); g.InBounds(n) {
			visit(n)
		}
	}
}

// ForEachDirectNeighbor calls visit for every in-bounds N, E, S, W neighbor.
func (g *Grid) ForEachDirectNeighbor(pos Position, visit func(Position)) {
	for _, d := range Direct4 {
		if n := pos.Add(d); g.InBounds(n) {
			visit(n)
		}
	}
}

// ForEachDiagonalNeighbor calls visit for every in-bounds diagonal neighbor.
func (g *Grid) ForEachDiagonalNeighbor(pos Position, visit func(Position)) {
	for _, d := range Diagonal4 {
		if n := pos.Add(d); g.InBounds(n) {
			visit(n)
		}
	}
}

// NearestObjectDistance returns the squared distance from pos to the nearest
// placed object, or +Inf when nothing has been placed.
func (g *Grid) NearestObjectDistance(pos Position) float64 {
	return g.Tiles[g.mustIndex(pos)].NearestObject
}

// UpdateDistances lowers every tile's nearest-object distance to account for
// an object placed at pos. Distances only ever decrease.
func (g *Grid) UpdateDistances(pos Position) {
	g.mustIndex(pos)
	for i := range g.Tiles {
		d := float64(g.PositionOf(i).SquaredDistance(pos))
		g.Tiles[i].NearestObject = math.Min(g.Tiles[i].NearestObject, d)
	}
}

// CountStates tallies tiles per occupancy state.
func (g *Grid) CountStates() map[TileState]int {
	counts := make(map[TileState]int)
	for _, t := range g.Tiles {
		counts[t.State]++
	}
	return counts
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(size=%d, tiles=%d)", g.Size, len(g.Tiles))
}
