//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over people and relationships.
	return nil
}

func ftsClear(_ *sql.Tx) error { return nil }

func ftsInsert(_ *sql.Tx, _ string, _ []string) error { return nil }

// Search matches the query as a case-insensitive substring of a person's name
// or of any relationship type they hold (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.Query(`
		SELECT p.name
		FROM people p
		WHERE p.name LIKE ? ESCAPE '\'
		   OR EXISTS (SELECT 1 FROM relationships r WHERE r.owner = p.name AND r.type LIKE ? ESCAPE '\')
		ORDER BY p.position
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	names, err := scanNames(rows)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return db.results(names)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
