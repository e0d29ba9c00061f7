package generator

import (
	"log/slog"
	"math"

	"github.com/talgya/zoneforge/internal/world"
)

// minForceDistance keeps the inverse-square forces finite when two centers
// coincide.
const minForceDistance = 1e-6

// placer positions zones in the unit square with a force-directed solver.
type placer struct {
	zones     []*Zone
	links     [][]int // Indices of connected zones
	mapSize   float64
	gravity   float64
	stiffness float64

	forces    []world.VPosition
	distances []float64
	overlaps  []float64
}

func newPlacer(zones []*Zone, mapSize, gravity, stiffness float64) *placer {
	p := &placer{
		zones:     zones,
		mapSize:   mapSize,
		gravity:   gravity,
		stiffness: stiffness,
	}
	index := make(map[world.ZoneID]int, len(zones))
	for i, z := range zones {
		index[z.ID] = i
	}
	p.links = make([][]int, len(zones))
	for i, z := range zones {
		for _, other := range z.Connections {
			if j, ok := index[other]; ok {
				p.links[i] = append(p.links[i], j)
			}
		}
	}
	n := len(zones)
	p.forces = make([]world.VPosition, n)
	p.distances = make([]float64, n)
	p.overlaps = make([]float64, n)
	return p
}

// PlaceZones runs the placement solver and commits each zone's discrete
// center. Tessellation is a separate step.
func PlaceZones(ctx *Context) {
	p := newPlacer(ctx.Zones(), float64(ctx.Settings.Size), ctx.Settings.Gravity, ctx.Settings.Stiffness)
	p.seed(ctx)
	best := p.run(ctx.Settings.PlacementIterations)
	for i, z := range p.zones {
		z.vcenter = best[i]
		z.Center = best[i].ToGrid(ctx.Settings.Size)
	}
}

// seed scatters zones on a circle around the middle of the square and
// prescales their sizes so the total disc area matches the map area.
func (p *placer) seed(ctx *Context) {
	radius := ctx.Settings.SeedRadius
	totalSize := 0.0
	for _, z := range p.zones {
		angle := ctx.Rand.FloatRange(0, 2*math.Pi)
		z.vcenter = world.VPosition{
			X: 0.5 + math.Sin(angle)*radius,
			Y: 0.5 + math.Cos(angle)*radius,
		}.Wrap()
		totalSize += float64(z.Size * z.Size)
	}

	prescaler := math.Sqrt(p.mapSize * p.mapSize / (totalSize * math.Pi))
	for _, z := range p.zones {
		z.scaledSize = float64(z.Size) * prescaler
	}
	slog.Debug("zones seeded", "zones", len(p.zones), "prescaler", prescaler)
}

// run iterates the solver and returns the best configuration seen.
func (p *placer) run(iterations int) []world.VPosition {
	best := p.snapshot()
	bestFitness := math.Inf(1)

	totalForces := make([]world.VPosition, len(p.zones))
	for i := 0; i < iterations; i++ {
		for j := range totalForces {
			totalForces[j] = world.VPosition{}
		}

		p.attract()
		p.apply(totalForces)
		p.separate()
		p.apply(totalForces)
		p.moveOneZone(totalForces)

		distance, overlap := p.measure()
		fitness := distance * overlap
		if distance == 0 || overlap == 0 {
			fitness = distance + overlap
		}
		if fitness < bestFitness {
			bestFitness = fitness
			best = p.snapshot()
			slog.Debug("placement improved", "iteration", i, "distance", distance, "overlap", overlap)
		}
	}
	return best
}

func (p *placer) snapshot() []world.VPosition {
	out := make([]world.VPosition, len(p.zones))
	for i, z := range p.zones {
		out[i] = z.vcenter
	}
	return out
}

// apply moves every zone by its pending force and adds it to totals.
func (p *placer) apply(totals []world.VPosition) {
	for i, z := range p.zones {
		z.vcenter = z.vcenter.Add(p.forces[i]).Wrap()
		totals[i] = totals[i].Add(p.forces[i])
	}
}

func (p *placer) minDistance(a, b int) float64 {
	return (p.zones[a].scaledSize + p.zones[b].scaledSize) / p.mapSize
}

func forceDistance(d float64) float64 {
	if d*d < minForceDistance {
		return minForceDistance
	}
	return d * d
}

// attract pulls each zone toward connected zones that are further away than
// touching distance.
func (p *placer) attract() {
	for i, z := range p.zones {
		force := world.VPosition{}
		total := 0.0
		for _, j := range p.links[i] {
			other := p.zones[j].vcenter
			dist := z.vcenter.Distance(other)
			minDist := p.minDistance(i, j)
			if dist > minDist {
				pull := other.Sub(z.vcenter).Scale(minDist / dist / forceDistance(dist) * p.gravity)
				force = force.Add(pull)
				total += dist - minDist
			}
		}
		p.forces[i] = force
		p.distances[i] = total
	}
}

// separate pushes overlapping zones apart and zones away from map edges.
func (p *placer) separate() {
	for i, z := range p.zones {
		force := world.VPosition{}
		total := 0.0
		pos := z.vcenter

		for j, o := range p.zones {
			if i == j {
				continue
			}
			dist := pos.Distance(o.vcenter)
			minDist := p.minDistance(i, j)
			if dist < minDist {
				d := dist
				if d < minForceDistance {
					d = minForceDistance
				}
				push := o.vcenter.Sub(pos).Scale(minDist / d / forceDistance(dist) * p.stiffness)
				force = force.Sub(push)
				total += minDist - dist
			}
		}

		size := z.scaledSize / p.mapSize
		pushFrom := func(boundary world.VPosition) {
			dist := pos.Distance(boundary)
			if dist >= size {
				return
			}
			total += size - dist
			force = force.Sub(boundary.Sub(pos).Scale((size - dist) / forceDistance(dist) * p.stiffness))
		}
		if pos.X < size {
			pushFrom(world.VPosition{X: 0, Y: pos.Y})
		}
		if pos.X > 1-size {
			pushFrom(world.VPosition{X: 1, Y: pos.Y})
		}
		if pos.Y < size {
			pushFrom(world.VPosition{X: pos.X, Y: 0})
		}
		if pos.Y > 1-size {
			pushFrom(world.VPosition{X: pos.X, Y: 1})
		}

		p.forces[i] = force
		p.overlaps[i] = total
	}
}

// moveOneZone teleports the zone whose misplacement is worst relative to how
// far it actually moved this round.
func (p *placer) moveOneZone(totalForces []world.VPosition) {
	threshold := float64(len(p.zones) * len(p.zones))
	misplaced := -1
	maxRatio := 0.0
	totalDistance, totalOverlap := 0.0, 0.0

	for i := range p.zones {
		totalDistance += p.distances[i]
		totalOverlap += p.overlaps[i]
		moved := totalForces[i].Length()
		if moved < minForceDistance {
			moved = minForceDistance
		}
		ratio := (p.distances[i] + p.overlaps[i]) / moved
		if ratio > maxRatio {
			maxRatio = ratio
			misplaced = i
		}
	}
	if misplaced < 0 || maxRatio <= threshold {
		return
	}

	z := p.zones[misplaced]
	if totalDistance > totalOverlap {
		// Jump next to the most distant connected zone.
		target := -1
		maxDist := 0.0
		for _, j := range p.links[misplaced] {
			if d := z.vcenter.Distance(p.zones[j].vcenter); d > maxDist {
				maxDist = d
				target = j
			}
		}
		if target < 0 {
			return
		}
		other := p.zones[target].vcenter
		dir := other.Sub(z.vcenter).Unit()
		z.vcenter = other.Sub(dir.Scale(p.minDistance(misplaced, target))).Wrap()
		slog.Debug("zone moved toward neighbor", "zone", z.ID, "target", p.zones[target].ID)
		return
	}

	// Step out of the most overlapping zone.
	target := -1
	maxOverlap := 0.0
	for j, o := range p.zones {
		if j == misplaced {
			continue
		}
		overlap := p.minDistance(misplaced, j) - z.vcenter.Distance(o.vcenter)
		if overlap > maxOverlap {
			maxOverlap = overlap
			target = j
		}
	}
	if target < 0 {
		return
	}
	other := p.zones[target].vcenter
	dir := z.vcenter.Sub(other).Unit()
	z.vcenter = other.Add(dir.Scale(p.minDistance(misplaced, target))).Wrap()
	slog.Debug("zone moved away from overlap", "zone", z.ID, "target", p.zones[target].ID)
}

// measure evaluates the current configuration without moving anything.
func (p *placer) measure() (distance, overlap float64) {
	p.attract()
	p.separate()
	for i := range p.zones {
		distance += p.distances[i]
		overlap += p.overlaps[i]
	}
	return distance, overlap
}
