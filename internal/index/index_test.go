package index

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/kinship/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "kinship-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func family() []models.Person {
	return []models.Person{
		{Name: "Bob", Relationships: []models.Relationship{
			{Type: "father", Target: "Al"},
			{Type: "son", Target: "Cy"},
			{Type: "son", Target: "Bob"},
		}},
		{Name: "Al", Relationships: []models.Relationship{
			{Type: "wife", Target: "Di"},
			{Type: "son", Target: "Bob"},
		}},
		{Name: "Cy"},
		{Name: "Di"},
	}
}

type snapshot []models.Person

func (s snapshot) People() []models.Person { return s }

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"people", "relationships", "meta"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestReplaceAndChecksum(t *testing.T) {
	db := testDB(t)

	sum, err := db.Checksum()
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	if sum != "" {
		t.Errorf("fresh index checksum = %q, want empty", sum)
	}

	if err := db.Replace(family(), "abc123"); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	sum, _ = db.Checksum()
	if sum != "abc123" {
		t.Errorf("checksum = %q, want abc123", sum)
	}

	// A second replace drops everything from the first.
	if err := db.Replace([]models.Person{{Name: "Solo"}}, "def456"); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "Solo" || len(links) != 0 {
		t.Errorf("graph after replace = %+v %+v", nodes, links)
	}
}

func TestRelatives(t *testing.T) {
	db := testDB(t)
	_ = db.Replace(family(), "x")

	rel, err := db.Relatives("Bob")
	if err != nil {
		t.Fatalf("Relatives: %v", err)
	}
	if len(rel) != 1 || rel[0] != (Relative{Owner: "Al", Type: "son"}) {
		t.Errorf("relatives of Bob = %+v, want only Al/son (self edge excluded)", rel)
	}

	rel, _ = db.Relatives("Nobody")
	if len(rel) != 0 {
		t.Errorf("expected no relatives, got %+v", rel)
	}
}

func TestGraphOrder(t *testing.T) {
	db := testDB(t)
	_ = db.Replace(family(), "x")

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	wantNodes := []GraphNode{{"Bob", 3}, {"Al", 2}, {"Cy", 0}, {"Di", 0}}
	if len(nodes) != len(wantNodes) {
		t.Fatalf("nodes = %+v", nodes)
	}
	for i := range wantNodes {
		if nodes[i] != wantNodes[i] {
			t.Errorf("node %d = %+v, want %+v", i, nodes[i], wantNodes[i])
		}
	}
	if len(links) != 5 {
		t.Fatalf("links = %+v", links)
	}
	if links[0] != (GraphLink{Source: "Bob", Target: "Al", Type: "father"}) {
		t.Errorf("first link = %+v", links[0])
	}
	if links[4] != (GraphLink{Source: "Al", Target: "Bob", Type: "son"}) {
		t.Errorf("last link = %+v", links[4])
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.Replace(family(), "x")

	results, err := db.Search("bo", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Bob" {
		t.Fatalf("search results = %+v, want 1 hit for Bob", results)
	}
	if results[0].Relationships != 3 {
		t.Errorf("relationships = %d, want 3", results[0].Relationships)
	}
	if len(results[0].Types) != 2 || results[0].Types[0] != "father" || results[0].Types[1] != "son" {
		t.Errorf("types = %v", results[0].Types)
	}
}

func TestSearch_ByRelationshipType(t *testing.T) {
	db := testDB(t)
	_ = db.Replace(family(), "x")

	results, err := db.Search("wife", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Al" {
		t.Errorf("search results = %+v, want Al", results)
	}
}

func TestSync_RebuildsOnStateChange(t *testing.T) {
	db := testDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := Sync(db, snapshot(family()), logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	sum, _ := db.Checksum()
	if sum != StateDigest(family()) {
		t.Errorf("stored digest = %q", sum)
	}

	// A person without edges changes the state but not the family file.
	grown := append(family(), models.Person{Name: "Dee"})
	if err := Sync(db, snapshot(grown), logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	nodes, _, _ := db.Graph()
	if len(nodes) != 5 || nodes[4].ID != "Dee" {
		t.Errorf("nodes = %+v, want Dee appended", nodes)
	}
	results, _ := db.Search("dee", 10)
	if len(results) != 1 {
		t.Errorf("search dee = %+v, want 1 hit", results)
	}
}

func TestStateDigest(t *testing.T) {
	a := StateDigest([]models.Person{{Name: "Al"}, {Name: "Bob"}})
	if a != StateDigest([]models.Person{{Name: "Al", Relationships: []models.Relationship{}}, {Name: "Bob"}}) {
		t.Error("nil and empty edge lists must hash alike")
	}
	if a == StateDigest([]models.Person{{Name: "Bob"}, {Name: "Al"}}) {
		t.Error("order must change the digest")
	}
	if a == StateDigest([]models.Person{{Name: "AlBob"}}) {
		t.Error("name boundaries must change the digest")
	}
}
