// Package template holds the declarative description a map is generated
// from: zones with their size, terrain and content quotas, and the
// connections between them. Templates arrive as JSON or as Lua scripts and
// are validated against one JSON Schema before they reach the generator.
package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talgya/zoneforge/internal/world"
)

// ZoneType classifies a template zone.
type ZoneType string

const (
	ZoneStart    ZoneType = "start"    // Human player starting zone
	ZoneAIStart  ZoneType = "ai-start" // Computer player starting zone
	ZoneTreasure ZoneType = "treasure" // Neutral zone with content
	ZoneJunction ZoneType = "junction" // Neutral crossroads zone
	ZoneWater    ZoneType = "water"    // Open water
)

// ValueRange is an inclusive integer range.
type ValueRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// IsZero reports whether both bounds are zero.
func (r ValueRange) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

// Stacks is the neutral-stack quota of a zone.
type Stacks struct {
	Count int        `json:"count"`
	Value ValueRange `json:"value"`
}

// Zone is one template zone declaration.
type Zone struct {
	ID      int      `json:"id"`
	Type    ZoneType `json:"type"`
	Size    int      `json:"size"`
	Terrain []string `json:"terrain,omitempty"`
	Ground  []string `json:"ground,omitempty"`

	// Content quotas consumed by content placement.
	Mines     map[string]int `json:"mines,omitempty"`
	Stacks    Stacks         `json:"stacks"`
	Treasure  ValueRange     `json:"treasure"`
	Merchants int            `json:"merchants,omitempty"`
	Ruins     int            `json:"ruins,omitempty"`
}

// Terrains resolves the zone's terrain constraint names. An empty set means
// any terrain and resolves to neutral.
func (z Zone) Terrains() ([]world.Terrain, error) {
	if len(z.Terrain) == 0 {
		return []world.Terrain{world.TerrainNeutral}, nil
	}
	out := make([]world.Terrain, 0, len(z.Terrain))
	for _, name := range z.Terrain {
		t, ok := world.ParseTerrain(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("zone %d: unknown terrain %q", z.ID, name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Grounds resolves the zone's ground constraint names. Water zones always
// resolve to water; an empty set means plain and forest.
func (z Zone) Grounds() ([]world.Ground, error) {
	if z.Type == ZoneWater {
		return []world.Ground{world.GroundWater}, nil
	}
	if len(z.Ground) == 0 {
		return []world.Ground{world.GroundPlain, world.GroundForest}, nil
	}
	out := make([]world.Ground, 0, len(z.Ground))
	for _, name := range z.Ground {
		g, ok := world.ParseGround(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("zone %d: unknown ground %q", z.ID, name)
		}
		out = append(out, g)
	}
	return out, nil
}

// Connection links two zones; Guard is the strength range of the encounter
// placed on the crossing.
type Connection struct {
	From  int        `json:"from"`
	To    int        `json:"to"`
	Guard ValueRange `json:"guard"`
}

// Template is a fully resolved, immutable map template.
type Template struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	MinSize     int          `json:"minSize,omitempty"`
	MaxSize     int          `json:"maxSize,omitempty"`
	Roads       int          `json:"roads"` // Road density, percent
	Zones       []Zone       `json:"zones"`
	Connections []Connection `json:"connections"`
}

// Zone returns the declaration with the given id.
func (t *Template) Zone(id int) (Zone, bool) {
	for _, z := range t.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return Zone{}, false
}

// ConnectionsOf returns the ids of every zone connected to id, without
// duplicates, in ascending order.
func (t *Template) ConnectionsOf(id int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, c := range t.Connections {
		other := -1
		switch id {
		case c.From:
			other = c.To
		case c.To:
			other = c.From
		}
		if other >= 0 && other != id && !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	sort.Ints(out)
	return out
}

// SupportsSize reports whether the template may be generated at size.
func (t *Template) SupportsSize(size int) bool {
	if t.MinSize > 0 && size < t.MinSize {
		return false
	}
	if t.MaxSize > 0 && size > t.MaxSize {
		return false
	}
	return true
}

// ValidationError lists every semantic problem found in a template.
type ValidationError struct {
	Template string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template %q invalid: %s", e.Template, strings.Join(e.Problems, "; "))
}

// Validate checks the rules the schema cannot express.
func (t *Template) Validate() error {
	var problems []string

	ids := make(map[int]bool)
	for _, z := range t.Zones {
		if ids[z.ID] {
			problems = append(problems, fmt.Sprintf("duplicate zone id %d", z.ID))
		}
		ids[z.ID] = true
		if z.Size <= 0 {
			problems = append(problems, fmt.Sprintf("zone %d has non-positive size", z.ID))
		}
		if _, err := z.Terrains(); err != nil {
			problems = append(problems, err.Error())
		}
		if _, err := z.Grounds(); err != nil {
			problems = append(problems, err.Error())
		}
		if z.Stacks.Value.Min > z.Stacks.Value.Max {
			problems = append(problems, fmt.Sprintf("zone %d stack value min > max", z.ID))
		}
		if z.Treasure.Min > z.Treasure.Max {
			problems = append(problems, fmt.Sprintf("zone %d treasure min > max", z.ID))
		}
	}
	if len(t.Zones) == 0 {
		problems = append(problems, "no zones declared")
	}

	for i, c := range t.Connections {
		if !ids[c.From] || !ids[c.To] {
			problems = append(problems, fmt.Sprintf("connection %d refers to undeclared zone (%d-%d)", i, c.From, c.To))
		}
		if c.From == c.To {
			problems = append(problems, fmt.Sprintf("connection %d links zone %d to itself", i, c.From))
		}
		if c.Guard.Min > c.Guard.Max {
			problems = append(problems, fmt.Sprintf("connection %d guard min > max", i))
		}
	}

	if t.Roads < 0 || t.Roads > 100 {
		problems = append(problems, fmt.Sprintf("road density %d outside 0..100", t.Roads))
	}
	if t.MinSize > 0 && t.MaxSize > 0 && t.MinSize > t.MaxSize {
		problems = append(problems, "minSize > maxSize")
	}

	if len(problems) > 0 {
		return &ValidationError{Template: t.Name, Problems: problems}
	}
	return nil
}
