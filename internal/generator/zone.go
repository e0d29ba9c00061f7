package generator

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/zoneforge/internal/template"
	"github.com/talgya/zoneforge/internal/world"
)

// tileSet is a set of positions that remembers insertion order, so every walk
// over it is reproducible for a fixed seed.
type tileSet struct {
	members mapset.Set[world.Position]
	order   []world.Position
}

func newTileSet() *tileSet {
	return &tileSet{members: mapset.New[world.Position]()}
}

// Put adds pos and reports whether it was new.
func (s *tileSet) Put(pos world.Position) bool {
	if s.members.Has(pos) {
		return false
	}
	s.members.Put(pos)
	s.order = append(s.order, pos)
	return true
}

func (s *tileSet) Has(pos world.Position) bool { return s.members.Has(pos) }
func (s *tileSet) Len() int                    { return len(s.order) }

// Slice returns the members in insertion order. The caller must not modify it.
func (s *tileSet) Slice() []world.Position { return s.order }

func (s *tileSet) Clear() {
	s.members = mapset.New[world.Position]()
	s.order = nil
}

// Zone is a template zone materialized on the grid.
type Zone struct {
	ID          world.ZoneID
	Type        template.ZoneType
	Size        int // Declared size weight
	Terrains    []world.Terrain
	Grounds     []world.Ground
	Connections []world.ZoneID

	// Center is the logical anchor every intra-zone path ends at. It is valid
	// once tessellation has run.
	Center world.Position

	// Placement scratch state.
	vcenter    world.VPosition
	scaledSize float64

	tiles     *tileSet
	possible  *tileSet
	freePaths *tileSet
	roadNodes *tileSet
	pending   *tileSet
	seam      *tileSet
	roadPaths [][]world.Position
}

// NewZone builds a zone from its template declaration.
func NewZone(decl template.Zone, connections []int) (*Zone, error) {
	terrains, err := decl.Terrains()
	if err != nil {
		return nil, err
	}
	grounds, err := decl.Grounds()
	if err != nil {
		return nil, err
	}
	z := &Zone{
		ID:        world.ZoneID(decl.ID),
		Type:      decl.Type,
		Size:      decl.Size,
		Terrains:  terrains,
		Grounds:   grounds,
		tiles:     newTileSet(),
		possible:  newTileSet(),
		freePaths: newTileSet(),
		roadNodes: newTileSet(),
		pending:   newTileSet(),
		seam:      newTileSet(),
	}
	for _, c := range connections {
		z.Connections = append(z.Connections, world.ZoneID(c))
	}
	return z, nil
}

// Tiles returns the zone's tiles in raster order.
func (z *Zone) Tiles() []world.Position { return z.tiles.Slice() }

// HasTile reports whether pos belongs to the zone.
func (z *Zone) HasTile(pos world.Position) bool { return z.tiles.Has(pos) }

// TileCount returns the number of tiles the zone owns.
func (z *Zone) TileCount() int { return z.tiles.Len() }

// PossibleTiles returns the tiles still open for content placement.
func (z *Zone) PossibleTiles() []world.Position { return z.possible.Slice() }

// FreePaths returns the free skeleton, starting with the center.
func (z *Zone) FreePaths() []world.Position { return z.freePaths.Slice() }

// IsFreePath reports whether pos is part of the free skeleton.
func (z *Zone) IsFreePath(pos world.Position) bool { return z.freePaths.Has(pos) }

// AddFreePath records pos as part of the free skeleton.
func (z *Zone) AddFreePath(pos world.Position) { z.freePaths.Put(pos) }

// RoadNodes returns the zone's road nodes in registration order.
func (z *Zone) RoadNodes() []world.Position { return z.roadNodes.Slice() }

// AddRoadNode registers pos as part of the road network.
func (z *Zone) AddRoadNode(pos world.Position) { z.roadNodes.Put(pos) }

// RoadPaths returns the recorded paths, each ordered from its far end to the
// zone center.
func (z *Zone) RoadPaths() [][]world.Position { return z.roadPaths }

// AddRoadPath records a path for the road builder.
func (z *Zone) AddRoadPath(path []world.Position) {
	if len(path) == 0 {
		return
	}
	cp := make([]world.Position, len(path))
	copy(cp, path)
	z.roadPaths = append(z.roadPaths, cp)
}

// IsPending reports whether pos is a provisional obstacle.
func (z *Zone) IsPending(pos world.Position) bool { return z.pending.Has(pos) }

// PendingCount returns the number of provisional obstacles.
func (z *Zone) PendingCount() int { return z.pending.Len() }

// IsSeam reports whether pos was blocked as part of a border seam.
func (z *Zone) IsSeam(pos world.Position) bool { return z.seam.Has(pos) }

// ConnectedTo reports whether the template links the zone to other.
func (z *Zone) ConnectedTo(other world.ZoneID) bool {
	for _, c := range z.Connections {
		if c == other {
			return true
		}
	}
	return false
}

func (z *Zone) resetTiles() {
	z.tiles.Clear()
}

func (z *Zone) addTile(pos world.Position) {
	z.tiles.Put(pos)
}

// ZoneSummary is the serializable view of a zone.
type ZoneSummary struct {
	ID          world.ZoneID      `json:"id"`
	Type        template.ZoneType `json:"type"`
	Size        int               `json:"size"`
	Center      world.Position    `json:"center"`
	Tiles       int               `json:"tiles"`
	Possible    int               `json:"possible"`
	FreePaths   int               `json:"free_paths"`
	Connections []world.ZoneID    `json:"connections"`
	RoadNodes   []world.Position  `json:"road_nodes"`
}

// Summary returns the serializable view of the zone.
func (z *Zone) Summary() ZoneSummary {
	return ZoneSummary{
		ID:          z.ID,
		Type:        z.Type,
		Size:        z.Size,
		Center:      z.Center,
		Tiles:       z.tiles.Len(),
		Possible:    z.possible.Len(),
		FreePaths:   z.freePaths.Len(),
		Connections: z.Connections,
		RoadNodes:   z.roadNodes.Slice(),
	}
}
