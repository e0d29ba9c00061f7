package generator

import (
	"strings"

	"github.com/talgya/zoneforge/internal/world"
)

// Result is a finished map handed to downstream consumers.
type Result struct {
	Template string        `json:"template"`
	Seed     int64         `json:"seed"`
	Size     int           `json:"size"`
	Grid     *world.Grid   `json:"grid"`
	Zones    []ZoneSummary `json:"zones"`
	Objects  []Placeable   `json:"objects"`
	Roads    int           `json:"roads"`

	zones []*Zone
}

func newResult(ctx *Context, roads int) *Result {
	r := &Result{
		Template: ctx.Template.Name,
		Seed:     ctx.Settings.Seed,
		Size:     ctx.Settings.Size,
		Grid:     ctx.Grid,
		Objects:  ctx.Objects(),
		Roads:    roads,
		zones:    ctx.Zones(),
	}
	for _, z := range r.zones {
		r.Zones = append(r.Zones, z.Summary())
	}
	return r
}

// ZoneDetails returns the full zones of the run, with tile sets and paths.
// They are only available on results produced in this process.
func (r *Result) ZoneDetails() []*Zone { return r.zones }

// ASCII renders the map one character per tile:
//
//	C zone center   G guard      # road
//	. free          , possible   ^ blocked   ~ blocked water
func (r *Result) ASCII() string {
	centers := make(map[world.Position]bool, len(r.Zones))
	for _, z := range r.Zones {
		centers[z.Center] = true
	}
	guards := make(map[world.Position]bool, len(r.Objects))
	for _, o := range r.Objects {
		guards[o.Position()] = true
	}

	var b strings.Builder
	b.Grow((r.Size + 1) * r.Size)
	for y := 0; y < r.Size; y++ {
		for x := 0; x < r.Size; x++ {
			pos := world.Position{X: x, Y: y}
			tile := r.Grid.Tile(pos)
			switch {
			case centers[pos]:
				b.WriteByte('C')
			case guards[pos]:
				b.WriteByte('G')
			case tile.Road:
				b.WriteByte('#')
			case tile.State == world.Free:
				b.WriteByte('.')
			case tile.State == world.Possible:
				b.WriteByte(',')
			case tile.State == world.Used:
				b.WriteByte('o')
			case tile.Ground == world.GroundWater:
				b.WriteByte('~')
			default:
				b.WriteByte('^')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Coloring renders the zone coloring, one base-36 digit per tile.
func (r *Result) Coloring() string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	for y := 0; y < r.Size; y++ {
		for x := 0; x < r.Size; x++ {
			id := int(r.Grid.ZoneAt(world.Position{X: x, Y: y}))
			if id >= 0 {
				b.WriteByte(digits[id%len(digits)])
			} else {
				b.WriteByte('?')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
