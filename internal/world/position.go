// Package world provides the tile grid, positions and occupancy state shared
// by every stage of map generation.
package world

import (
	"fmt"
	"math"
)

// Position is an integer grid coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p offset by o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p minus o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Manhattan returns the taxicab distance between p and o.
func (p Position) Manhattan(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

// SquaredDistance returns the squared Euclidean distance between p and o.
func (p Position) SquaredDistance(o Position) int {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return dx*dx + dy*dy
}

// Distance returns the Euclidean distance between p and o.
func (p Position) Distance(o Position) float64 {
	return math.Sqrt(float64(p.SquaredDistance(o)))
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Neighbor offsets, clockwise from north. Road sprite selection depends on
// Direct4 being exactly N, E, S, W.
var (
	North     = Position{X: 0, Y: -1}
	NorthEast = Position{X: 1, Y: -1}
	East      = Position{X: 1, Y: 0}
	SouthEast = Position{X: 1, Y: 1}
	South     = Position{X: 0, Y: 1}
	SouthWest = Position{X: -1, Y: 1}
	West      = Position{X: -1, Y: 0}
	NorthWest = Position{X: -1, Y: -1}
)

// Neighbors8 lists all eight neighbor offsets clockwise from north.
var Neighbors8 = [8]Position{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

// Direct4 lists the four direct neighbor offsets clockwise from north.
var Direct4 = [4]Position{North, East, South, West}

// Diagonal4 lists the four diagonal neighbor offsets clockwise from north-east.
var Diagonal4 = [4]Position{NorthEast, SouthEast, SouthWest, NorthWest}

// VPosition is a point in the continuous unit square [0,1)×[0,1) used while
// zones are being placed. It never reaches the grid directly.
type VPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Wrap folds v back into [0,1)×[0,1).
func (v VPosition) Wrap() VPosition {
	return VPosition{X: wrapUnit(v.X), Y: wrapUnit(v.Y)}
}

// Add returns v + o without wrapping.
func (v VPosition) Add(o VPosition) VPosition {
	return VPosition{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v VPosition) Sub(o VPosition) VPosition {
	return VPosition{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v multiplied by k.
func (v VPosition) Scale(k float64) VPosition {
	return VPosition{X: v.X * k, Y: v.Y * k}
}

// Length returns the Euclidean norm of v.
func (v VPosition) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Distance returns the Euclidean distance between v and o.
func (v VPosition) Distance(o VPosition) float64 {
	return v.Sub(o).Length()
}

// SquaredDistance returns the squared Euclidean distance between v and o.
func (v VPosition) SquaredDistance(o VPosition) float64 {
	d := v.Sub(o)
	return d.X*d.X + d.Y*d.Y
}

// Unit returns v scaled to length 1, or the zero vector if v is zero.
func (v VPosition) Unit() VPosition {
	l := v.Length()
	if l == 0 {
		return VPosition{}
	}
	return v.Scale(1 / l)
}

// ToGrid converts v to the tile it falls on in a size×size grid, clamped so the
// result is always in bounds.
func (v VPosition) ToGrid(size int) Position {
	return Position{X: clamp(int(math.Floor(v.X*float64(size))), 0, size-1),
		Y: clamp(int(math.Floor(v.Y*float64(size))), 0, size-1)}
}

func wrapUnit(x float64) float64 {
	x = math.Mod(x, 1)
	if x < 0 {
		x += 1
	}
	// -1e-18 + 1 rounds to exactly 1.
	if x >= 1 {
		x = 0
	}
	return x
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
