package generator

import (
	"container/heap"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/zoneforge/internal/world"
)

// Step costs for the connect-to-center search.
const (
	costFree     = 1
	costPossible = 2
	costPending  = 3
)

// PathResult is the outcome of a path search. Path runs from the start tile to
// the zone center inclusive. Err is ErrUnreachable when no path exists.
type PathResult struct {
	Path []world.Position
	Cost int
	Err  error
}

// OK reports whether a path was found.
func (r PathResult) OK() bool { return r.Err == nil }

type pathNode struct {
	pos   world.Position
	g     int
	f     int
	order int // Insertion counter, keeps pops deterministic among equal f
	index int
}

type openSet []*pathNode

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].order < s[j].order
}
func (s openSet) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].index = i
	s[j].index = j
}
func (s *openSet) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*s)
	*s = append(*s, n)
}
func (s *openSet) Pop() any {
	old := *s
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*s = old[:len(old)-1]
	return n
}

// search configures a path search.
type search struct {
	straight     bool
	allowPending bool

	// partner, unless NoZone, lets the search cross border seam tiles of the
	// zone that touch no zone other than partner.
	partner world.ZoneID
}

// stepCost returns the cost of entering pos, or false if pos may not be
// entered. Only tiles colored with the zone's id are considered.
func stepCost(ctx *Context, z *Zone, pos world.Position, s search) (int, bool) {
	if ctx.Grid.ZoneAt(pos) != z.ID {
		return 0, false
	}
	if z.IsPending(pos) {
		if !s.allowPending {
			return 0, false
		}
		return costPending, true
	}
	switch ctx.Grid.State(pos) {
	case world.Free:
		return costFree, true
	case world.Possible:
		return costPossible, true
	case world.Blocked:
		if s.partner != world.NoZone && z.IsSeam(pos) && bordersOnly(ctx, pos, z.ID, s.partner) {
			return costPending, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// bordersOnly reports whether every 8-neighbor of pos belongs to zone a or b.
func bordersOnly(ctx *Context, pos world.Position, a, b world.ZoneID) bool {
	ok := true
	ctx.Grid.ForEachNeighbor(pos, func(n world.Position) {
		if id := ctx.Grid.ZoneAt(n); id != a && id != b {
			ok = false
		}
	})
	return ok
}

func heuristic(a, b world.Position, straight bool) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if straight {
		return dx + dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// FindPathToCenter searches a path from start to the zone center using direct
// steps only (straight) or the full 8-neighborhood. The start tile is always
// admitted whatever its state; every other tile must belong to the zone and be
// Free, Possible or, when allowPending is set, a provisional obstacle.
func FindPathToCenter(ctx *Context, z *Zone, start world.Position, straight, allowPending bool) PathResult {
	return findPath(ctx, z, start, search{straight: straight, allowPending: allowPending, partner: world.NoZone})
}

// FindCrossingPath searches the straight path a connection to partner carves
// from its crossing tile to the zone center. Besides what FindPathToCenter
// admits it crosses provisional obstacles and the zone's side of the border
// seam where that seam faces partner alone, both at the pending cost.
func FindCrossingPath(ctx *Context, z *Zone, partner world.ZoneID, start world.Position) PathResult {
	return findPath(ctx, z, start, search{straight: true, allowPending: true, partner: partner})
}

func findPath(ctx *Context, z *Zone, start world.Position, s search) PathResult {
	goal := z.Center
	if start == goal {
		return PathResult{Path: []world.Position{start}}
	}
	straight := s.straight

	visit := ctx.Grid.ForEachNeighbor
	if straight {
		visit = ctx.Grid.ForEachDirectNeighbor
	}

	closed := mapset.New[world.Position]()
	cameFrom := make(map[world.Position]world.Position)
	best := map[world.Position]int{start: 0}
	open := &openSet{}
	order := 0
	heap.Push(open, &pathNode{pos: start, f: heuristic(start, goal, straight)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if closed.Has(cur.pos) {
			continue
		}
		if cur.pos == goal {
			return PathResult{Path: reconstruct(cameFrom, start, goal), Cost: cur.g}
		}
		closed.Put(cur.pos)

		visit(cur.pos, func(next world.Position) {
			if closed.Has(next) {
				return
			}
			cost, ok := stepCost(ctx, z, next, s)
			if !ok {
				return
			}
			g := cur.g + cost
			if old, seen := best[next]; seen && old <= g {
				return
			}
			best[next] = g
			cameFrom[next] = cur.pos
			order++
			heap.Push(open, &pathNode{pos: next, g: g, f: g + heuristic(next, goal, straight), order: order})
		})
	}
	return PathResult{Err: ErrUnreachable}
}

func reconstruct(cameFrom map[world.Position]world.Position, start, goal world.Position) []world.Position {
	var rev []world.Position
	for p := goal; p != start; p = cameFrom[p] {
		rev = append(rev, p)
	}
	rev = append(rev, start)
	path := make([]world.Position, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}

// ConnectToCenter finds a path from start to the center and forces every tile
// on it Free, adding it to the zone's free skeleton. Tiles holding objects keep
// their Used state.
func ConnectToCenter(ctx *Context, z *Zone, start world.Position, straight, allowPending bool) PathResult {
	res := FindPathToCenter(ctx, z, start, straight, allowPending)
	if !res.OK() {
		return res
	}
	commitPath(ctx, z, res.Path)
	return res
}

func commitPath(ctx *Context, z *Zone, path []world.Position) {
	for _, p := range path {
		if !ctx.Grid.IsUsed(p) {
			ctx.Grid.SetOccupied(p, world.Free)
		}
		if ctx.Grid.ZoneAt(p) == z.ID {
			z.AddFreePath(p)
		}
	}
}
