package index

import "database/sql"

func scanNames(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// results decorates matched names with their edge counts and types.
func (db *DB) results(names []string) ([]SearchResult, error) {
	out := make([]SearchResult, 0, len(names))
	for _, n := range names {
		types, err := db.relationshipTypes(n)
		if err != nil {
			return nil, err
		}
		var count int
		if err := db.conn.QueryRow(`SELECT COUNT(*) FROM relationships WHERE owner = ?`, n).Scan(&count); err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Name: n, Relationships: count, Types: types})
	}
	return out, nil
}
