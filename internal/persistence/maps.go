package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/zoneforge/internal/generator"
	"github.com/talgya/zoneforge/internal/world"
)

// bytesPerTile is the packed width of one tile: state and road flag, terrain,
// ground and road sprite.
const bytesPerTile = 4

// MapSummary is a row of the archive listing.
type MapSummary struct {
	ID        string `db:"id" json:"id"`
	Template  string `db:"template" json:"template"`
	Seed      int64  `db:"seed" json:"seed"`
	Size      int    `db:"size" json:"size"`
	Roads     int    `db:"roads" json:"roads"`
	Guards    int    `db:"guards" json:"guards"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// Created returns the archive time.
func (m MapSummary) Created() time.Time {
	return time.Unix(m.CreatedAt, 0)
}

// MapRecord is an archived map with its packed grid.
type MapRecord struct {
	MapSummary
	Preview     string `db:"preview" json:"preview"`
	Tiles       []byte `db:"tiles" json:"-"`
	Coloring    []byte `db:"coloring" json:"-"`
	ZonesJSON   string `db:"zones_json" json:"-"`
	ObjectsJSON string `db:"objects_json" json:"-"`
}

// Zones decodes the archived zone summaries.
func (m *MapRecord) Zones() ([]generator.ZoneSummary, error) {
	var zones []generator.ZoneSummary
	if err := json.Unmarshal([]byte(m.ZonesJSON), &zones); err != nil {
		return nil, fmt.Errorf("decode zones: %w", err)
	}
	return zones, nil
}

// Objects returns the archived objects as raw JSON.
func (m *MapRecord) Objects() json.RawMessage {
	return json.RawMessage(m.ObjectsJSON)
}

// Grid rebuilds the tile grid from the packed columns.
func (m *MapRecord) Grid() (*world.Grid, error) {
	return UnpackGrid(m.Size, m.Tiles, m.Coloring)
}

// PackGrid encodes a grid into the tile and coloring blobs stored per map.
// Zone ids are stored offset by one so that NoZone packs to zero.
func PackGrid(g *world.Grid) (tiles, coloring []byte, err error) {
	tiles = make([]byte, 0, len(g.Tiles)*bytesPerTile)
	for _, t := range g.Tiles {
		flags := byte(t.State) & 0x3
		if t.Road {
			flags |= 0x4
		}
		tiles = append(tiles, flags, byte(t.Terrain), byte(t.Ground), byte(t.RoadSprite))
	}
	coloring = make([]byte, len(g.ZoneColoring))
	for i, id := range g.ZoneColoring {
		if id < world.NoZone || id > 254 {
			return nil, nil, fmt.Errorf("zone id %d cannot be packed", id)
		}
		coloring[i] = byte(id + 1)
	}
	return tiles, coloring, nil
}

// UnpackGrid is the inverse of PackGrid.
func UnpackGrid(size int, tiles, coloring []byte) (*world.Grid, error) {
	if len(tiles) != size*size*bytesPerTile || len(coloring) != size*size {
		return nil, fmt.Errorf("packed grid does not match size %d", size)
	}
	g := world.NewGrid(size)
	for i := range g.Tiles {
		b := tiles[i*bytesPerTile : (i+1)*bytesPerTile]
		t := &g.Tiles[i]
		t.State = world.TileState(b[0] & 0x3)
		t.Road = b[0]&0x4 != 0
		t.Terrain = world.Terrain(b[1])
		t.Ground = world.Ground(b[2])
		t.RoadSprite = int(b[3])
		g.ZoneColoring[i] = world.ZoneID(coloring[i]) - 1
	}
	return g, nil
}

// SaveMap archives a finished map under id.
func (db *DB) SaveMap(id string, res *generator.Result) error {
	tiles, coloring, err := PackGrid(res.Grid)
	if err != nil {
		return fmt.Errorf("pack map %s: %w", id, err)
	}
	zonesJSON, err := json.Marshal(res.Zones)
	if err != nil {
		return fmt.Errorf("encode zones: %w", err)
	}
	objectsJSON, err := json.Marshal(res.Objects)
	if err != nil {
		return fmt.Errorf("encode objects: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO maps
		(id, template, seed, size, roads, guards, created_at,
		 preview, tiles, coloring, zones_json, objects_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, res.Template, res.Seed, res.Size, res.Roads, len(res.Objects),
		time.Now().Unix(), res.ASCII(), tiles, coloring,
		string(zonesJSON), string(objectsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert map %s: %w", id, err)
	}
	if err := incrementMeta(tx, "maps_archived", 1); err != nil {
		return fmt.Errorf("count map: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("map archived", "id", id, "template", res.Template, "seed", res.Seed, "size", res.Size)
	return nil
}

// GetMap loads an archived map.
func (db *DB) GetMap(id string) (*MapRecord, error) {
	var rec MapRecord
	err := db.conn.Get(&rec, `SELECT id, template, seed, size, roads, guards, created_at,
		preview, tiles, coloring, zones_json, objects_json
		FROM maps WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("map %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get map %s: %w", id, err)
	}
	return &rec, nil
}

// ListMaps returns the most recent archived maps, newest first. A non-empty
// template restricts the listing to maps generated from it.
func (db *DB) ListMaps(template string, limit int) ([]MapSummary, error) {
	maps := []MapSummary{}
	query := `SELECT id, template, seed, size, roads, guards, created_at FROM maps`
	args := []any{}
	if template != "" {
		query += ` WHERE template = ?`
		args = append(args, template)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)
	if err := db.conn.Select(&maps, query, args...); err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	return maps, nil
}

// DeleteMap removes an archived map.
func (db *DB) DeleteMap(id string) error {
	res, err := db.conn.Exec("DELETE FROM maps WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete map %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("map %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountMaps returns the number of archived maps.
func (db *DB) CountMaps() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM maps")
	return n, err
}
