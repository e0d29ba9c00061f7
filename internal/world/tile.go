package world

import "math"

// TileState is the occupancy lifecycle of a tile.
type TileState uint8

const (
	Possible TileState = iota // Candidate for either an obstacle or a free path
	Free                      // Guaranteed traversable
	Blocked                   // Terrain obstacle
	Used                      // Permanently occupied by a placed object
)

// String returns a human-readable name for a tile state.
func (s TileState) String() string {
	switch s {
	case Free:
		return "free"
	case Possible:
		return "possible"
	case Blocked:
		return "blocked"
	case Used:
		return "used"
	default:
		return "unknown"
	}
}

// Terrain is the race terrain a tile is painted with.
type Terrain uint8

const (
	TerrainNeutral Terrain = iota
	TerrainHuman
	TerrainDwarf
	TerrainHeretic
	TerrainUndead
	TerrainElf
)

// Ground is the ground type a tile is painted with.
type Ground uint8

const (
	GroundPlain Ground = iota
	GroundForest
	GroundWater
	GroundMountain
)

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainNeutral:
		return "neutral"
	case TerrainHuman:
		return "human"
	case TerrainDwarf:
		return "dwarf"
	case TerrainHeretic:
		return "heretic"
	case TerrainUndead:
		return "undead"
	case TerrainElf:
		return "elf"
	default:
		return "unknown"
	}
}

// ParseTerrain maps a terrain name back to its value.
func ParseTerrain(name string) (Terrain, bool) {
	for t := TerrainNeutral; t <= TerrainElf; t++ {
		if TerrainName(t) == name {
			return t, true
		}
	}
	return TerrainNeutral, false
}

// GroundName returns a human-readable name for a ground type.
func GroundName(g Ground) string {
	switch g {
	case GroundPlain:
		return "plain"
	case GroundForest:
		return "forest"
	case GroundWater:
		return "water"
	case GroundMountain:
		return "mountain"
	default:
		return "unknown"
	}
}

// ParseGround maps a ground name back to its value.
func ParseGround(name string) (Ground, bool) {
	for g := GroundPlain; g <= GroundMountain; g++ {
		if GroundName(g) == name {
			return g, true
		}
	}
	return GroundPlain, false
}

// Tile is a single cell of the generated map.
type Tile struct {
	State      TileState `json:"state"`
	Road       bool      `json:"road"`
	RoadSprite int       `json:"road_sprite"`

	// Squared distance to the nearest placed object; +Inf until one is placed.
	NearestObject float64 `json:"-"`

	Terrain Terrain `json:"terrain"`
	Ground  Ground  `json:"ground"`
}

func newTile() Tile {
	return Tile{State: Possible, NearestObject: math.Inf(1)}
}

// Traversable reports whether new placement paths may cross the tile.
func (t Tile) Traversable() bool {
	return t.State == Free || t.State == Possible
}
