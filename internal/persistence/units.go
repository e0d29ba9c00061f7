package persistence

import (
	"fmt"
	"log/slog"

	"github.com/talgya/zoneforge/internal/catalog"
)

// SaveUnits writes the unit catalog to the database (full replace).
func (db *DB) SaveUnits(units []catalog.Unit) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM units"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO units
		(id, name, level, value, leader, big, water)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range units {
		_, err := stmt.Exec(u.ID, u.Name, u.Level, u.Value,
			boolInt(u.Leader), boolInt(u.Big), boolInt(u.Water))
		if err != nil {
			return fmt.Errorf("insert unit %s: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// LoadCatalog reads the unit table into an in-memory catalog. An empty table
// is seeded with the built-in roster first.
func (db *DB) LoadCatalog() (*catalog.Memory, error) {
	var units []catalog.Unit
	if err := db.conn.Select(&units,
		"SELECT id, name, level, value, leader, big, water FROM units ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	if len(units) == 0 {
		units = catalog.Default().Units()
		if err := db.SaveUnits(units); err != nil {
			return nil, fmt.Errorf("seed units: %w", err)
		}
		slog.Info("unit catalog seeded", "units", len(units))
	}
	return catalog.NewMemory(units), nil
}
