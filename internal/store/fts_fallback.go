//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"strings"
)

// Without FTS5 the plans table itself is searched with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// SearchPlans matches query as a substring of plan titles and bodies.
func (db *DB) SearchPlans(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT path, title, substr(body, 1, 200)
		FROM plans
		WHERE title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, wrap("search plans", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, wrap("scan search result", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
