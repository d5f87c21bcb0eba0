// Package familytree implements the relationship graph: persons keyed by name,
// each holding an ordered list of typed edges, persisted to a single family
// file that is rewritten after every mutation.
//
// A Tree is not safe for concurrent use. Front ends that serve several
// callers go through familyservice, which serialises access.
package familytree

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/kinship/internal/apperr"
	"github.com/starford/kinship/internal/models"
	"github.com/starford/kinship/internal/parser"
	"github.com/starford/kinship/internal/storage"
)

// Well-known relationship types used by the convenience queries.
const (
	TypeSon      = "son"
	TypeDaughter = "daughter"
	TypeWife     = "wife"
	TypeFather   = "father"
)

// ErrNoFather is returned by FatherOf when the person has no father edge.
var ErrNoFather = errors.New("no father found")

// Tree is the in-memory relationship graph bound to one family file.
type Tree struct {
	people *orderedmap.OrderedMap[string, *models.Person]
	store  storage.Provider
	file   string
	logger *slog.Logger

	// sum is the digest of the file content last read or written by this tree.
	sum string
}

// New creates an empty tree backed by file inside store. Call Load to read the
// persisted state.
func New(store storage.Provider, file string, logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tree{
		people: orderedmap.New[string, *models.Person](),
		store:  store,
		file:   file,
		logger: logger,
		sum:    emptyDigest,
	}
}

// File returns the family file name relative to the storage root.
func (t *Tree) File() string {
	return t.file
}

// Checksum returns the digest of the content last loaded from or saved to the
// family file.
func (t *Tree) Checksum() string {
	return t.sum
}

// Len returns the number of persons.
func (t *Tree) Len() int {
	return t.people.Len()
}

// Has reports whether a person with the exact name exists.
func (t *Tree) Has(name string) bool {
	_, ok := t.people.Get(name)
	return ok
}

// Person returns a copy of the named person.
func (t *Tree) Person(name string) (models.Person, bool) {
	p, ok := t.people.Get(name)
	if !ok {
		return models.Person{}, false
	}
	return p.Clone(), true
}

// People returns copies of all persons in insertion order.
func (t *Tree) People() []models.Person {
	out := make([]models.Person, 0, t.people.Len())
	for pair := t.people.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.Clone())
	}
	return out
}

// Rows returns every edge as an (owner, type, target) triple, persons in
// insertion order and each person's edges in insertion order. This is the
// order the family file is written in.
func (t *Tree) Rows() []models.Row {
	var out []models.Row
	for pair := t.people.Oldest(); pair != nil; pair = pair.Next() {
		for _, rel := range pair.Value.Relationships {
			out = append(out, models.Row{Owner: pair.Key, Type: rel.Type, Target: rel.Target})
		}
	}
	return out
}

// AddPerson creates a person with no relationships and persists the tree.
// It returns apperr.ErrAlreadyExists, without writing, if the name is taken.
func (t *Tree) AddPerson(name string) error {
	if t.Has(name) {
		return fmt.Errorf("familytree: person %q: %w", name, apperr.ErrAlreadyExists)
	}
	t.people.Set(name, &models.Person{Name: name})
	if err := t.Save(); err != nil {
		t.people.Delete(name)
		return err
	}
	return nil
}

// AddRelationship records a relationship label on a person without naming the
// other party: the edge points back at the person itself. This mirrors what
// older family files contain and is most likely unintended, but it is kept so
// those files keep their meaning.
func (t *Tree) AddRelationship(name, relType string) error {
	p, ok := t.people.Get(name)
	if !ok {
		return notFound(name)
	}
	return t.appendEdge(p, models.Relationship{Type: relType, Target: name})
}

// Connect records that name1 is the relationship of name2: the edge is
// appended to name2's list and points at name1. Both persons must exist;
// otherwise nothing is changed or written.
func (t *Tree) Connect(name1, relationship, name2 string) error {
	if !t.Has(name1) {
		return notFound(name1)
	}
	owner, ok := t.people.Get(name2)
	if !ok {
		return notFound(name2)
	}
	return t.appendEdge(owner, models.Relationship{Type: relationship, Target: name1})
}

// CountRelationships returns how many edges of exactly relType the person
// holds. A missing person yields 0 and apperr.ErrNotFound.
func (t *Tree) CountRelationships(name, relType string) (int, error) {
	p, ok := t.people.Get(name)
	if !ok {
		return 0, notFound(name)
	}
	return p.Count(relType), nil
}

// CountSons counts "son" edges.
func (t *Tree) CountSons(name string) (int, error) {
	return t.CountRelationships(name, TypeSon)
}

// CountDaughters counts "daughter" edges.
func (t *Tree) CountDaughters(name string) (int, error) {
	return t.CountRelationships(name, TypeDaughter)
}

// CountWives counts "wife" edges.
func (t *Tree) CountWives(name string) (int, error) {
	return t.CountRelationships(name, TypeWife)
}

// FatherOf returns the target of the person's first "father" edge.
func (t *Tree) FatherOf(name string) (string, error) {
	p, ok := t.people.Get(name)
	if !ok {
		return "", notFound(name)
	}
	rel, ok := p.First(TypeFather)
	if !ok {
		return "", fmt.Errorf("familytree: %q: %w", name, ErrNoFather)
	}
	return rel.Target, nil
}

// appendEdge adds rel to p and persists, undoing the append if the write fails.
func (t *Tree) appendEdge(p *models.Person, rel models.Relationship) error {
	p.Relationships = append(p.Relationships, rel)
	if err := t.Save(); err != nil {
		p.Relationships = p.Relationships[:len(p.Relationships)-1]
		return err
	}
	return nil
}

// Save rewrites the whole family file from the in-memory graph.
func (t *Tree) Save() error {
	data, err := parser.Format(t.Rows())
	if err != nil {
		return fmt.Errorf("familytree: encode: %w", err)
	}
	if err := t.store.Write(t.file, data); err != nil {
		return fmt.Errorf("familytree: save %s: %w", t.file, err)
	}
	t.sum = digest(data)
	t.logger.Debug("family file saved",
		slog.String("file", t.file),
		slog.Int("people", t.people.Len()),
		slog.Int("bytes", len(data)))
	return nil
}

// Load reads the family file into the tree. A missing or unreadable file is
// logged and leaves the tree empty; it is never an error. Malformed records
// are skipped.
func (t *Tree) Load() {
	t.people = orderedmap.New[string, *models.Person]()
	t.sum = emptyDigest

	data, err := t.store.Read(t.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.logger.Info("family file not found, starting with an empty tree", slog.String("file", t.file))
		} else {
			t.logger.Warn("family file unreadable, starting with an empty tree",
				slog.String("file", t.file),
				slog.String("error", err.Error()))
		}
		return
	}

	people, err := build(data, t.logger)
	if err != nil {
		t.logger.Warn("family file could not be parsed, starting with an empty tree",
			slog.String("file", t.file),
			slog.String("error", err.Error()))
		return
	}
	t.people = people
	t.sum = digest(data)
	t.logger.Info("family file loaded",
		slog.String("file", t.file),
		slog.Int("people", t.people.Len()))
}

// Reload replaces the in-memory graph with the current file content. Unlike
// Load it reports failures and keeps the existing graph when the file cannot
// be read or parsed. It returns false when the file is unchanged.
func (t *Tree) Reload() (bool, error) {
	data, err := t.store.Read(t.file)
	if err != nil {
		return false, fmt.Errorf("familytree: reload %s: %w", t.file, err)
	}
	sum := digest(data)
	if sum == t.sum {
		return false, nil
	}
	people, err := build(data, t.logger)
	if err != nil {
		return false, fmt.Errorf("familytree: reload %s: %w", t.file, err)
	}
	t.people = people
	t.sum = sum
	t.logger.Info("family file reloaded",
		slog.String("file", t.file),
		slog.Int("people", t.people.Len()))
	return true, nil
}

// build turns file content into a person map without persisting anything.
// Each record creates both persons if needed and then applies the connect
// rule with the record's target as name1 and its owner as name2, so the edge
// lands back on the owner it was saved from.
func build(data []byte, logger *slog.Logger) (*orderedmap.OrderedMap[string, *models.Person], error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	for _, s := range res.Skipped {
		logger.Warn("skipping malformed record",
			slog.Int("line", s.Line),
			slog.String("reason", s.Reason))
	}

	people := orderedmap.New[string, *models.Person]()
	ensure := func(name string) *models.Person {
		if p, ok := people.Get(name); ok {
			return p
		}
		p := &models.Person{Name: name}
		people.Set(name, p)
		return p
	}
	for _, row := range res.Rows {
		owner := ensure(row.Owner)
		ensure(row.Target)
		owner.Relationships = append(owner.Relationships, models.Relationship{Type: row.Type, Target: row.Target})
	}
	return people, nil
}

func notFound(name string) error {
	return fmt.Errorf("familytree: person %q: %w", name, apperr.ErrNotFound)
}

// digest fingerprints file content so Reload can tell external edits from
// the tree's own writes.
func digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

var emptyDigest = digest(nil)
