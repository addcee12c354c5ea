package store

import (
	"context"

	"github.com/starford/laguz/internal/models"
)

const markerColumns = `id, name, short_name, unit, min_ref, max_ref, display_min, display_max, category, description`

// ReplaceCatalog swaps the markers table for the given catalog in one
// transaction. Catalog order is kept in the position column. Measurements
// of markers that disappear stay in place; the engine ignores them.
func (db *DB) ReplaceCatalog(ctx context.Context, markers []models.Marker) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM markers`); err != nil {
		return wrap("clear markers", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO markers (position, `+markerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return wrap("prepare marker insert", err)
	}
	defer stmt.Close()
	for i, m := range markers {
		if _, err := stmt.ExecContext(ctx, i, m.ID, m.Name, m.ShortName, m.Unit, m.MinRef, m.MaxRef,
			m.DisplayMin, m.DisplayMax, m.Category, m.Description); err != nil {
			return wrap("insert marker "+m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap("commit catalog", err)
	}
	return nil
}

// ListMarkers returns the catalog in catalog order.
func (db *DB) ListMarkers(ctx context.Context) ([]models.Marker, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+markerColumns+` FROM markers ORDER BY position, id`)
	if err != nil {
		return nil, wrap("list markers", err)
	}
	defer rows.Close()

	out := []models.Marker{}
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, wrap("scan marker", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMarker returns one catalog entry.
func (db *DB) GetMarker(ctx context.Context, id string) (models.Marker, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+markerColumns+` FROM markers WHERE id = ?`, id)
	m, err := scanMarker(row)
	if err != nil {
		return models.Marker{}, wrap("get marker", err)
	}
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMarker(s scanner) (models.Marker, error) {
	var m models.Marker
	err := s.Scan(&m.ID, &m.Name, &m.ShortName, &m.Unit, &m.MinRef, &m.MaxRef,
		&m.DisplayMin, &m.DisplayMax, &m.Category, &m.Description)
	return m, err
}
