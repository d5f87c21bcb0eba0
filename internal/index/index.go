package index

import "github.com/starford/kinship/internal/models"

// PeopleIndex defines the interface for the family index.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PeopleIndex interface {
	Replace(people []models.Person, sum string) error
	Checksum() (string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Relatives(name string) ([]Relative, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Close() error
}

// Verify *DB satisfies PeopleIndex at compile time.
var _ PeopleIndex = (*DB)(nil)
