//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS plans_fts USING fts5(
			path UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, body string) error {
	_, _ = tx.Exec(`DELETE FROM plans_fts WHERE path = ?`, path)
	if _, err := tx.Exec(`INSERT INTO plans_fts (path, title, body) VALUES (?, ?, ?)`, path, title, body); err != nil {
		return wrap("upsert fts", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM plans_fts WHERE path = ?`, path)
}

// SearchPlans runs an FTS5 query and returns ranked hits with snippets.
func (db *DB) SearchPlans(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT path,
		       title,
		       snippet(plans_fts, 2, '<b>', '</b>', '...', 64)
		FROM plans_fts
		WHERE plans_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
