package catalog

import (
	"errors"
	"fmt"

	"github.com/talgya/zoneforge/internal/entropy"
)

// GroupSlots is the number of unit slots in a stack.
const GroupSlots = 6

// ErrNoFittingUnits is returned when no leader fits the requested strength.
var ErrNoFittingUnits = errors.New("no units fit guard strength")

// Encounter is a concrete guard stack.
type Encounter struct {
	Leader Unit   `json:"leader"`
	Units  []Unit `json:"units"`
	Value  int    `json:"value"`
}

// Size returns the number of units in the encounter, leader included.
func (e Encounter) Size() int {
	return 1 + len(e.Units)
}

// GuardFilter restricts which units may appear in a guard.
type GuardFilter func(Unit) bool

// LandOnly rejects water units.
func LandOnly(u Unit) bool { return !u.Water }

// WeakestLeader returns the lowest value of a leader passing filter, or false
// when the catalog has none. Any guard strength below it cannot be resolved.
func WeakestLeader(c Catalog, filter GuardFilter) (int, bool) {
	weakest, found := 0, false
	for _, u := range c.Units() {
		if !u.Leader || u.Value <= 0 || (filter != nil && !filter(u)) {
			continue
		}
		if !found || u.Value < weakest {
			weakest, found = u.Value, true
		}
	}
	return weakest, found
}

// ResolveGuard builds an encounter whose total value does not exceed strength.
// A leader is drawn first among the fitting leaders, then soldiers are added
// at random while the value and slot budget allow.
func ResolveGuard(c Catalog, rng *entropy.Stream, strength int, filter GuardFilter) (Encounter, error) {
	if strength <= 0 {
		return Encounter{}, fmt.Errorf("guard strength %d: %w", strength, ErrNoFittingUnits)
	}

	var leaders, soldiers []Unit
	for _, u := range c.Units() {
		if filter != nil && !filter(u) {
			continue
		}
		if u.Value <= 0 || u.Value > strength {
			continue
		}
		if u.Leader {
			leaders = append(leaders, u)
		} else {
			soldiers = append(soldiers, u)
		}
	}
	if len(leaders) == 0 {
		return Encounter{}, fmt.Errorf("guard strength %d: %w", strength, ErrNoFittingUnits)
	}

	leader := leaders[rng.Intn(len(leaders))]
	enc := Encounter{Leader: leader, Value: leader.Value}
	slots := GroupSlots - leader.Slots()
	remaining := strength - leader.Value

	for slots > 0 && remaining > 0 {
		var fitting []Unit
		for _, u := range soldiers {
			if u.Value <= remaining && u.Slots() <= slots {
				fitting = append(fitting, u)
			}
		}
		if len(fitting) == 0 {
			break
		}
		u := fitting[rng.Intn(len(fitting))]
		enc.Units = append(enc.Units, u)
		enc.Value += u.Value
		remaining -= u.Value
		slots -= u.Slots()
	}

	return enc, nil
}
