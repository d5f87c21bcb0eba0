// Package familyservice is the entry point for front ends that can issue
// calls from several goroutines (HTTP handlers, MCP tools). It serialises
// every call onto the single family tree, keeps the SQLite mirror in step
// after each mutation, and reports changes through an event callback.
package familyservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/kinship/internal/apperr"
	"github.com/starford/kinship/internal/familytree"
	"github.com/starford/kinship/internal/index"
	"github.com/starford/kinship/internal/models"
)

// Event kinds passed to the EventCallback.
const (
	EventPersonAdded       = "person.added"
	EventRelationshipAdded = "relationship.added"
	EventTreeReloaded      = "tree.reloaded"
)

// EventCallback is called after a successful mutation or reload. For
// relationship events name is the owner of the new edge.
type EventCallback func(kind, name string)

// PersonDetail is the full representation of a person.
type PersonDetail struct {
	Name          string                `json:"name"`
	Relationships []models.Relationship `json:"relationships"`
	Relatives     []index.Relative      `json:"relatives"`
}

// PersonListItem is a lightweight item in a list response.
type PersonListItem struct {
	Name          string `json:"name"`
	Relationships int    `json:"relationships"`
}

// Service coordinates the tree and the index.
type Service struct {
	mu     sync.Mutex
	tree   *familytree.Tree
	db     index.PeopleIndex // nil when the index is disabled
	logger *slog.Logger
	events EventCallback
}

// NewService creates a new family service. db may be nil.
func NewService(tree *familytree.Tree, db index.PeopleIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tree: tree, db: db, logger: logger}
}

// OnEvent registers the change callback. It must be set before the service
// is shared between goroutines.
func (s *Service) OnEvent(cb EventCallback) {
	s.events = cb
}

// AddPerson creates a person.
func (s *Service) AddPerson(_ context.Context, name string) error {
	if err := requireName("name", name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tree.AddPerson(name); err != nil {
		return err
	}
	s.afterMutation(EventPersonAdded, name)
	return nil
}

// AddRelationship records a self-referential relationship label on a person.
func (s *Service) AddRelationship(_ context.Context, name, relType string) error {
	if err := requireName("type", relType); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tree.AddRelationship(name, relType); err != nil {
		return err
	}
	s.afterMutation(EventRelationshipAdded, name)
	return nil
}

// Connect records name1 as the relationship of name2.
func (s *Service) Connect(_ context.Context, name1, relationship, name2 string) error {
	if err := requireName("relationship", relationship); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tree.Connect(name1, relationship, name2); err != nil {
		return err
	}
	s.afterMutation(EventRelationshipAdded, name2)
	return nil
}

// CountRelationships counts the person's edges of exactly relType.
func (s *Service) CountRelationships(_ context.Context, name, relType string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.CountRelationships(name, relType)
}

// FatherOf returns the name of the person's first father.
func (s *Service) FatherOf(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.FatherOf(name)
}

// GetPerson returns a person with their outgoing edges and, when the index is
// enabled, the people holding edges that point at them.
func (s *Service) GetPerson(_ context.Context, name string) (*PersonDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.tree.Person(name)
	if !ok {
		return nil, fmt.Errorf("familyservice: person %q: %w", name, apperr.ErrNotFound)
	}
	detail := &PersonDetail{
		Name:          p.Name,
		Relationships: nonNilSlice(p.Relationships),
		Relatives:     []index.Relative{},
	}
	if s.db != nil {
		rel, err := s.db.Relatives(name)
		if err != nil {
			return nil, err
		}
		detail.Relatives = nonNilSlice(rel)
	}
	return detail, nil
}

// Relatives returns the incoming edges of a person. It needs the index.
func (s *Service) Relatives(_ context.Context, name string) ([]index.Relative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tree.Has(name) {
		return nil, fmt.Errorf("familyservice: person %q: %w", name, apperr.ErrNotFound)
	}
	if s.db == nil {
		return nil, errIndexDisabled
	}
	rel, err := s.db.Relatives(name)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(rel), nil
}

// ListPeople returns every person in insertion order.
func (s *Service) ListPeople(_ context.Context) []PersonListItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	people := s.tree.People()
	items := make([]PersonListItem, len(people))
	for i, p := range people {
		items[i] = PersonListItem{Name: p.Name, Relationships: len(p.Relationships)}
	}
	return items
}

// Search delegates people search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.db == nil {
		return nil, errIndexDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// Graph returns all persons and edges. Without the index it is computed from
// the tree directly.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Graph()
	}
	nodes := []index.GraphNode{}
	links := []index.GraphLink{}
	for _, p := range s.tree.People() {
		nodes = append(nodes, index.GraphNode{ID: p.Name, Relationships: len(p.Relationships)})
		for _, rel := range p.Relationships {
			links = append(links, index.GraphLink{Source: p.Name, Target: rel.Target, Type: rel.Type})
		}
	}
	return nodes, links, nil
}

// SyncIndex rebuilds the mirror if it is behind the tree.
func (s *Service) SyncIndex(_ context.Context) error {
	if s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return index.Sync(s.db, s.tree, s.logger)
}

// ReloadIfChanged re-reads the family file after an external edit. Changes
// written by this process are recognised by checksum and ignored.
func (s *Service) ReloadIfChanged(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.tree.Reload()
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	s.afterMutation(EventTreeReloaded, "")
	return nil
}

// afterMutation mirrors the tree into the index and emits an event. Index
// failures are logged; the family file stays the source of truth.
func (s *Service) afterMutation(kind, name string) {
	if s.db != nil {
		if err := index.Sync(s.db, s.tree, s.logger); err != nil {
			s.logger.Warn("index sync failed", slog.String("error", err.Error()))
		}
	}
	s.logger.Debug("tree changed", slog.String("event", kind), slog.String("name", name))
	if s.events != nil {
		s.events(kind, name)
	}
}

var errIndexDisabled = fmt.Errorf("familyservice: index disabled: %w", errors.ErrUnsupported)

// IsIndexDisabled reports whether err comes from a call that needs the index
// while it is turned off.
func IsIndexDisabled(err error) bool {
	return errors.Is(err, errors.ErrUnsupported)
}

func requireName(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("familyservice: %s is required: %w", field, apperr.ErrInvalidInput)
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
