// Package catalog exposes the game records the generator consults. The
// engine core only needs units, to turn a guard strength into a concrete
// encounter at a zone crossing.
package catalog

import "sort"

// Unit is a recruitable or neutral unit record.
type Unit struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Level  int    `db:"level" json:"level"`
	Value  int    `db:"value" json:"value"`   // Experience value used as strength
	Leader bool   `db:"leader" json:"leader"` // Can lead a stack
	Big    bool   `db:"big" json:"big"`       // Occupies two slots
	Water  bool   `db:"water" json:"water"`   // Only placeable on water
}

// Slots returns how many group slots the unit occupies.
func (u Unit) Slots() int {
	if u.Big {
		return 2
	}
	return 1
}

// Catalog supplies unit records.
type Catalog interface {
	Units() []Unit
}

// Memory is a catalog held entirely in memory.
type Memory struct {
	units []Unit
}

// NewMemory creates a catalog from units, ordered by id so lookups and
// random picks are reproducible regardless of input order.
func NewMemory(units []Unit) *Memory {
	sorted := make([]Unit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Memory{units: sorted}
}

// Units returns all units ordered by id.
func (m *Memory) Units() []Unit {
	return m.units
}

// Unit looks a unit up by id.
func (m *Memory) Unit(id string) (Unit, bool) {
	i := sort.Search(len(m.units), func(i int) bool { return m.units[i].ID >= id })
	if i < len(m.units) && m.units[i].ID == id {
		return m.units[i], true
	}
	return Unit{}, false
}

// Default returns a small built-in neutral roster, enough to guard crossings
// when no catalog database is configured.
func Default() *Memory {
	return NewMemory([]Unit{
		{ID: "g000uu0151", Name: "Goblin", Level: 1, Value: 20},
		{ID: "g000uu0152", Name: "Goblin Archer", Level: 1, Value: 25},
		{ID: "g000uu0153", Name: "Goblin Elder", Level: 2, Value: 40, Leader: true},
		{ID: "g000uu0154", Name: "Orc", Level: 2, Value: 45},
		{ID: "g000uu0155", Name: "Orc King", Level: 3, Value: 90, Leader: true},
		{ID: "g000uu0160", Name: "Wolf", Level: 1, Value: 30},
		{ID: "g000uu0161", Name: "Werewolf", Level: 3, Value: 75, Leader: true},
		{ID: "g000uu0170", Name: "Ogre", Level: 3, Value: 110, Big: true},
		{ID: "g000uu0171", Name: "Troll", Level: 4, Value: 160, Big: true, Leader: true},
		{ID: "g000uu0180", Name: "Bandit", Level: 1, Value: 15},
		{ID: "g000uu0181", Name: "Rogue", Level: 2, Value: 35, Leader: true},
		{ID: "g000uu0190", Name: "Young Dragon", Level: 5, Value: 300, Big: true, Leader: true},
		{ID: "g000uu0200", Name: "Sea Serpent", Level: 4, Value: 200, Big: true, Leader: true, Water: true},
		{ID: "g000uu0201", Name: "Merman", Level: 2, Value: 40, Water: true},
	})
}
