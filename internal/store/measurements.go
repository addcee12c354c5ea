package store

import (
	"context"

	"github.com/starford/laguz/internal/models"
)

// ListMeasurements returns every measurement. Order is not significant;
// the engine sorts.
func (db *DB) ListMeasurements(ctx context.Context) ([]models.Measurement, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, marker_id, value, date, note, created_at FROM measurements`)
	if err != nil {
		return nil, wrap("list measurements", err)
	}
	defer rows.Close()

	out := []models.Measurement{}
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, wrap("scan measurement", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMeasurement returns one measurement.
func (db *DB) GetMeasurement(ctx context.Context, id string) (models.Measurement, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, marker_id, value, date, note, created_at FROM measurements WHERE id = ?`, id)
	m, err := scanMeasurement(row)
	if err != nil {
		return models.Measurement{}, wrap("get measurement", err)
	}
	return m, nil
}

// InsertMeasurement stores a new measurement.
func (db *DB) InsertMeasurement(ctx context.Context, m models.Measurement) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO measurements (id, marker_id, value, date, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.MarkerID, m.Value, m.Date.UTC(), m.Note, m.CreatedAt.UTC())
	if err != nil {
		return wrap("insert measurement", err)
	}
	return nil
}

// UpdateMeasurement rewrites value, date and note. Marker and creation
// time are immutable.
func (db *DB) UpdateMeasurement(ctx context.Context, m models.Measurement) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE measurements SET value = ?, date = ?, note = ? WHERE id = ?`,
		m.Value, m.Date.UTC(), m.Note, m.ID)
	if err != nil {
		return wrap("update measurement", err)
	}
	return mustAffect("update measurement", res)
}

// DeleteMeasurement removes one measurement.
func (db *DB) DeleteMeasurement(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM measurements WHERE id = ?`, id)
	if err != nil {
		return wrap("delete measurement", err)
	}
	return mustAffect("delete measurement", res)
}

func scanMeasurement(s scanner) (models.Measurement, error) {
	var m models.Measurement
	if err := s.Scan(&m.ID, &m.MarkerID, &m.Value, &m.Date, &m.Note, &m.CreatedAt); err != nil {
		return m, err
	}
	m.Date = m.Date.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

// ListMarkerNotes returns every marker note.
func (db *DB) ListMarkerNotes(ctx context.Context) ([]models.MarkerNote, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, marker_id, body, created_at FROM marker_notes`)
	if err != nil {
		return nil, wrap("list notes", err)
	}
	defer rows.Close()

	out := []models.MarkerNote{}
	for rows.Next() {
		var n models.MarkerNote
		if err := rows.Scan(&n.ID, &n.MarkerID, &n.Body, &n.CreatedAt); err != nil {
			return nil, wrap("scan note", err)
		}
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

// InsertMarkerNote stores a new note.
func (db *DB) InsertMarkerNote(ctx context.Context, n models.MarkerNote) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO marker_notes (id, marker_id, body, created_at) VALUES (?, ?, ?, ?)`,
		n.ID, n.MarkerID, n.Body, n.CreatedAt.UTC())
	if err != nil {
		return wrap("insert note", err)
	}
	return nil
}

// DeleteMarkerNote removes one note.
func (db *DB) DeleteMarkerNote(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM marker_notes WHERE id = ?`, id)
	if err != nil {
		return wrap("delete note", err)
	}
	return mustAffect("delete note", res)
}
