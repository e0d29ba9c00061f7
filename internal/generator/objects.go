package generator

import (
	"github.com/talgya/zoneforge/internal/catalog"
	"github.com/talgya/zoneforge/internal/world"
)

// ObjectID identifies an object inserted into the map. Ids are allocated
// sequentially per run and never reused.
type ObjectID int

// Identifiable is anything that carries a stable object id.
type Identifiable interface {
	ObjectID() ObjectID
}

// Placeable is an identifiable object occupying a square footprint whose
// top-left tile is Position.
type Placeable interface {
	Identifiable
	Position() world.Position
	Footprint() int
	Kind() string
}

// Guard is a neutral encounter standing on a zone crossing.
type Guard struct {
	ID        ObjectID          `json:"id"`
	Pos       world.Position    `json:"position"`
	From      world.ZoneID      `json:"from"`
	To        world.ZoneID      `json:"to"`
	Strength  int               `json:"strength"`
	Encounter catalog.Encounter `json:"encounter"`
}

func (g *Guard) ObjectID() ObjectID       { return g.ID }
func (g *Guard) Position() world.Position { return g.Pos }
func (g *Guard) Footprint() int           { return 1 }
func (g *Guard) Kind() string             { return "guard" }
