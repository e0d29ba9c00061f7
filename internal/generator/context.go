package generator

import (
	"sort"

	"github.com/talgya/zoneforge/internal/catalog"
	"github.com/talgya/zoneforge/internal/entropy"
	"github.com/talgya/zoneforge/internal/template"
	"github.com/talgya/zoneforge/internal/world"
)

// Context is the state of one generation run. It is built before placement,
// passed explicitly to every component, and handed to the result afterwards.
// Nothing in it is safe for concurrent use.
type Context struct {
	Settings Settings
	Template *template.Template
	Catalog  catalog.Catalog
	Grid     *world.Grid
	Rand     *entropy.Stream

	zones     []*Zone // Ordered by id
	zoneIndex map[world.ZoneID]*Zone
	objects   []Placeable
	nextID    ObjectID
}

// NewContext creates the zones declared by tmpl and an empty grid.
func NewContext(tmpl *template.Template, cat catalog.Catalog, settings Settings) (*Context, error) {
	ctx := &Context{
		Settings:  settings,
		Template:  tmpl,
		Catalog:   cat,
		Grid:      world.NewGrid(settings.Size),
		Rand:      entropy.NewStream(settings.Seed),
		zoneIndex: make(map[world.ZoneID]*Zone, len(tmpl.Zones)),
		nextID:    1,
	}
	for _, decl := range tmpl.Zones {
		z, err := NewZone(decl, tmpl.ConnectionsOf(decl.ID))
		if err != nil {
			return nil, err
		}
		ctx.zones = append(ctx.zones, z)
		ctx.zoneIndex[z.ID] = z
	}
	sort.Slice(ctx.zones, func(i, j int) bool { return ctx.zones[i].ID < ctx.zones[j].ID })
	return ctx, nil
}

// Zones returns every zone ordered by id.
func (c *Context) Zones() []*Zone { return c.zones }

// Zone returns the zone with the given id. Unknown ids panic with
// *InvalidZoneError.
func (c *Context) Zone(id world.ZoneID) *Zone {
	z, ok := c.zoneIndex[id]
	if !ok {
		panic(&InvalidZoneError{ID: id})
	}
	return z
}

// ZoneAt returns the zone owning pos.
func (c *Context) ZoneAt(pos world.Position) *Zone {
	return c.Zone(c.Grid.ZoneAt(pos))
}

// NextObjectID allocates a fresh object id.
func (c *Context) NextObjectID() ObjectID {
	id := c.nextID
	c.nextID++
	return id
}

// PlaceObject marks the object's footprint Used and lowers the nearest-object
// distances around it.
func (c *Context) PlaceObject(obj Placeable) {
	origin := obj.Position()
	for dy := 0; dy < obj.Footprint(); dy++ {
		for dx := 0; dx < obj.Footprint(); dx++ {
			pos := origin.Add(world.Position{X: dx, Y: dy})
			c.Grid.SetOccupied(pos, world.Used)
			c.Grid.UpdateDistances(pos)
		}
	}
	c.objects = append(c.objects, obj)
}

// Objects returns every placed object in placement order.
func (c *Context) Objects() []Placeable { return c.objects }

// NearestObjectDistance returns the squared distance to the closest object.
func (c *Context) NearestObjectDistance(pos world.Position) float64 {
	return c.Grid.NearestObjectDistance(pos)
}
