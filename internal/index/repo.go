package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/kinship/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Name          string   `json:"name"`
	Relationships int      `json:"relationships"`
	Types         []string `json:"types"`
}

// Relative is an incoming edge: Owner holds an edge of Type pointing at the
// person that was looked up.
type Relative struct {
	Owner string `json:"owner"`
	Type  string `json:"type"`
}

// GraphNode is one person in the exported graph.
type GraphNode struct {
	ID            string `json:"id"`
	Relationships int    `json:"relationships"`
}

// GraphLink is one edge in the exported graph.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Replace rewrites the whole mirror from people in one transaction and
// records sum as the state digest it reflects.
func (db *DB) Replace(people []models.Person, sum string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := ftsClear(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM relationships`); err != nil {
		return fmt.Errorf("index: clear relationships: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM people`); err != nil {
		return fmt.Errorf("index: clear people: %w", err)
	}

	personStmt, err := tx.Prepare(`INSERT INTO people (name, position) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare person insert: %w", err)
	}
	defer personStmt.Close()
	relStmt, err := tx.Prepare(`INSERT INTO relationships (owner, type, target, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare relationship insert: %w", err)
	}
	defer relStmt.Close()

	for i, p := range people {
		if _, err := personStmt.Exec(p.Name, i); err != nil {
			return fmt.Errorf("index: insert person %q: %w", p.Name, err)
		}
		types := make([]string, 0, len(p.Relationships))
		for j, rel := range p.Relationships {
			if _, err := relStmt.Exec(p.Name, rel.Type, rel.Target, j); err != nil {
				return fmt.Errorf("index: insert relationship: %w", err)
			}
			types = append(types, rel.Type)
		}
		if err := ftsInsert(tx, p.Name, types); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaChecksum, sum); err != nil {
		return fmt.Errorf("index: store checksum: %w", err)
	}

	return tx.Commit()
}

// Checksum returns the state digest the mirror was last built from,
// or an empty string if it was never built.
func (db *DB) Checksum() (string, error) {
	var sum string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaChecksum).Scan(&sum)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return sum, nil
}

// Relatives returns every edge that points at name from another person,
// in person then edge order. Self-referential edges are left out.
func (db *DB) Relatives(name string) ([]Relative, error) {
	rows, err := db.conn.Query(`
		SELECT r.owner, r.type
		FROM relationships r
		JOIN people p ON p.name = r.owner
		WHERE r.target = ? AND r.owner <> r.target
		ORDER BY p.position, r.position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("index: relatives: %w", err)
	}
	defer rows.Close()

	var out []Relative
	for rows.Next() {
		var r Relative
		if err := rows.Scan(&r.Owner, &r.Type); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Graph returns all persons and edges in insertion order.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	nodeRows, err := db.conn.Query(`
		SELECT p.name, COUNT(r.owner)
		FROM people p
		LEFT JOIN relationships r ON r.owner = p.name
		GROUP BY p.name, p.position
		ORDER BY p.position
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer nodeRows.Close()

	nodes := []GraphNode{}
	for nodeRows.Next() {
		var n GraphNode
		if err := nodeRows.Scan(&n.ID, &n.Relationships); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	linkRows, err := db.conn.Query(`
		SELECT r.owner, r.target, r.type
		FROM relationships r
		JOIN people p ON p.name = r.owner
		ORDER BY p.position, r.position
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer linkRows.Close()

	links := []GraphLink{}
	for linkRows.Next() {
		var l GraphLink
		if err := linkRows.Scan(&l.Source, &l.Target, &l.Type); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}

// relationshipTypes returns the distinct edge types held by name, in first
// appearance order.
func (db *DB) relationshipTypes(name string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT type FROM relationships WHERE owner = ? GROUP BY type ORDER BY MIN(position)
	`, name)
	if err != nil {
		return nil, fmt.Errorf("index: relationship types: %w", err)
	}
	defer rows.Close()

	types := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
