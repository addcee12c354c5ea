package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/starford/laguz/internal/models"
)

// UpsertPlan inserts or replaces a plan with its marker links, goals and
// search entry, all in one transaction.
func (db *DB) UpsertPlan(ctx context.Context, p models.Plan) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO plans (path, title, body, checksum, start_date, target_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			body        = excluded.body,
			checksum    = excluded.checksum,
			start_date  = excluded.start_date,
			target_date = excluded.target_date,
			updated_at  = excluded.updated_at
	`, p.ID, p.Title, p.Body, p.Checksum, dateValue(p.StartDate), dateValue(p.TargetDate), p.UpdatedAt.UTC())
	if err != nil {
		return wrap("upsert plan", err)
	}

	if err := ftsUpsert(tx, p.ID, p.Title, p.Body); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_markers WHERE plan_path = ?`, p.ID); err != nil {
		return wrap("clear plan markers", err)
	}
	for i, m := range p.MarkerIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO plan_markers (plan_path, marker_id, position) VALUES (?, ?, ?)`,
			p.ID, m, i); err != nil {
			return wrap("insert plan marker", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE plan_path = ?`, p.ID); err != nil {
		return wrap("clear goals", err)
	}
	if len(p.Goals) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO goals (id, plan_path, position, marker_id, direction, target_value, target_value_upper)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return wrap("prepare goal insert", err)
		}
		defer stmt.Close()
		for i, g := range p.Goals {
			var upper any
			if g.TargetValueUpper != nil {
				upper = *g.TargetValueUpper
			}
			if _, err := stmt.ExecContext(ctx, g.ID, p.ID, i, g.MarkerID, string(g.Direction), g.TargetValue, upper); err != nil {
				return wrap("insert goal", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("commit plan", err)
	}
	return nil
}

// DeletePlan removes a plan; markers and goals cascade.
func (db *DB) DeletePlan(ctx context.Context, path string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	res, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE path = ?`, path)
	if err != nil {
		return wrap("delete plan", err)
	}
	if err := mustAffect("delete plan", res); err != nil {
		return err
	}
	return tx.Commit()
}

// PlanChecksums maps every indexed plan path to its content checksum.
func (db *DB) PlanChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum FROM plans`)
	if err != nil {
		return nil, wrap("plan checksums", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, wrap("scan checksum", err)
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetPlan returns one plan with body, markers and goals.
func (db *DB) GetPlan(ctx context.Context, path string) (models.Plan, error) {
	plans, err := db.queryPlans(ctx, `WHERE path = ?`, path)
	if err != nil {
		return models.Plan{}, err
	}
	if len(plans) == 0 {
		return models.Plan{}, wrap("get plan", sql.ErrNoRows)
	}
	return plans[0], nil
}

// ListPlans returns every plan, most recently updated first.
func (db *DB) ListPlans(ctx context.Context) ([]models.Plan, error) {
	return db.queryPlans(ctx, `ORDER BY updated_at DESC, path`)
}

func (db *DB) queryPlans(ctx context.Context, tail string, args ...any) ([]models.Plan, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT path, title, body, checksum, start_date, target_date, updated_at FROM plans `+tail, args...)
	if err != nil {
		return nil, wrap("list plans", err)
	}
	defer rows.Close()

	out := []models.Plan{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			p             models.Plan
			start, target sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.Checksum, &start, &target, &p.UpdatedAt); err != nil {
			return nil, wrap("scan plan", err)
		}
		p.StartDate = timePtr(start)
		p.TargetDate = timePtr(target)
		p.UpdatedAt = p.UpdatedAt.UTC()
		p.MarkerIDs = []string{}
		p.Goals = []models.Goal{}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list plans", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	if err := db.attachPlanMarkers(ctx, out, index); err != nil {
		return nil, err
	}
	if err := db.attachGoals(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB) attachPlanMarkers(ctx context.Context, plans []models.Plan, index map[string]int) error {
	rows, err := db.conn.QueryContext(ctx, `SELECT plan_path, marker_id FROM plan_markers ORDER BY plan_path, position`)
	if err != nil {
		return wrap("list plan markers", err)
	}
	defer rows.Close()
	for rows.Next() {
		var path, marker string
		if err := rows.Scan(&path, &marker); err != nil {
			return wrap("scan plan marker", err)
		}
		if i, ok := index[path]; ok {
			plans[i].MarkerIDs = append(plans[i].MarkerIDs, marker)
		}
	}
	return rows.Err()
}

func (db *DB) attachGoals(ctx context.Context, plans []models.Plan, index map[string]int) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, plan_path, marker_id, direction, target_value, target_value_upper
		FROM goals ORDER BY plan_path, position
	`)
	if err != nil {
		return wrap("list goals", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			g     models.Goal
			dir   string
			upper sql.NullFloat64
		)
		if err := rows.Scan(&g.ID, &g.PlanID, &g.MarkerID, &dir, &g.TargetValue, &upper); err != nil {
			return wrap("scan goal", err)
		}
		g.Direction = models.GoalDirection(dir)
		if upper.Valid {
			u := upper.Float64
			g.TargetValueUpper = &u
		}
		if i, ok := index[g.PlanID]; ok {
			plans[i].Goals = append(plans[i].Goals, g)
		}
	}
	return rows.Err()
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
