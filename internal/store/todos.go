package store

import (
	"context"
	"database/sql"

	"github.com/starford/laguz/internal/models"
)

// ListTodos returns every todo with its marker tags.
func (db *DB) ListTodos(ctx context.Context) ([]models.Todo, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, done, due_date, plan_id, created_at FROM todos ORDER BY created_at, id`)
	if err != nil {
		return nil, wrap("list todos", err)
	}
	defer rows.Close()

	out := []models.Todo{}
	index := make(map[string]int)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, wrap("scan todo", err)
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list todos", err)
	}

	tags, err := db.conn.QueryContext(ctx, `SELECT todo_id, marker_id FROM todo_markers ORDER BY todo_id, position`)
	if err != nil {
		return nil, wrap("list todo markers", err)
	}
	defer tags.Close()
	for tags.Next() {
		var todoID, markerID string
		if err := tags.Scan(&todoID, &markerID); err != nil {
			return nil, wrap("scan todo marker", err)
		}
		if i, ok := index[todoID]; ok {
			out[i].MarkerIDs = append(out[i].MarkerIDs, markerID)
		}
	}
	return out, tags.Err()
}

// GetTodo returns one todo.
func (db *DB) GetTodo(ctx context.Context, id string) (models.Todo, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, title, done, due_date, plan_id, created_at FROM todos WHERE id = ?`, id)
	t, err := scanTodo(row)
	if err != nil {
		return models.Todo{}, wrap("get todo", err)
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT marker_id FROM todo_markers WHERE todo_id = ? ORDER BY position`, id)
	if err != nil {
		return models.Todo{}, wrap("get todo markers", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return models.Todo{}, wrap("scan todo marker", err)
		}
		t.MarkerIDs = append(t.MarkerIDs, m)
	}
	return t, rows.Err()
}

// InsertTodo stores a new todo and its marker tags.
func (db *DB) InsertTodo(ctx context.Context, t models.Todo) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO todos (id, title, done, due_date, plan_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Done, dueValue(t), t.PlanID, t.CreatedAt.UTC())
	if err != nil {
		return wrap("insert todo", err)
	}
	if err := replaceTodoMarkers(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateTodo rewrites a todo and its marker tags.
func (db *DB) UpdateTodo(ctx context.Context, t models.Todo) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE todos SET title = ?, done = ?, due_date = ?, plan_id = ? WHERE id = ?`,
		t.Title, t.Done, dueValue(t), t.PlanID, t.ID)
	if err != nil {
		return wrap("update todo", err)
	}
	if err := mustAffect("update todo", res); err != nil {
		return err
	}
	if err := replaceTodoMarkers(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteTodo removes a todo; its marker tags cascade.
func (db *DB) DeleteTodo(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return wrap("delete todo", err)
	}
	return mustAffect("delete todo", res)
}

func replaceTodoMarkers(ctx context.Context, tx *sql.Tx, t models.Todo) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM todo_markers WHERE todo_id = ?`, t.ID); err != nil {
		return wrap("clear todo markers", err)
	}
	for i, m := range t.MarkerIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO todo_markers (todo_id, marker_id, position) VALUES (?, ?, ?)`,
			t.ID, m, i); err != nil {
			return wrap("insert todo marker", err)
		}
	}
	return nil
}

func dueValue(t models.Todo) any {
	if t.DueDate == nil {
		return nil
	}
	return t.DueDate.UTC()
}

func scanTodo(s scanner) (models.Todo, error) {
	var (
		t   models.Todo
		due sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Done, &due, &t.PlanID, &t.CreatedAt); err != nil {
		return t, err
	}
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.MarkerIDs = []string{}
	return t, nil
}
