// Package models defines the domain types for Kinship.
package models

// Person is a named node in the family graph. Name is the lookup key and is
// case-sensitive.
type Person struct {
	Name          string         `json:"name"`
	Relationships []Relationship `json:"relationships"`
}

// Relationship is a typed edge owned by the person whose list holds it.
// An edge of type "father" on A pointing at B means B is A's father.
type Relationship struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Row is one persisted edge: the owner, the edge type and the target.
type Row struct {
	Owner  string `json:"owner"`
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Count returns the number of relationships of exactly the given type.
func (p *Person) Count(relType string) int {
	n := 0
	for _, r := range p.Relationships {
		if r.Type == relType {
			n++
		}
	}
	return n
}

// First returns the first relationship of the given type in insertion order.
func (p *Person) First(relType string) (Relationship, bool) {
	for _, r := range p.Relationships {
		if r.Type == relType {
			return r, true
		}
	}
	return Relationship{}, false
}

// Clone returns a deep copy so callers cannot mutate graph state.
func (p *Person) Clone() Person {
	out := Person{Name: p.Name, Relationships: make([]Relationship, len(p.Relationships))}
	copy(out.Relationships, p.Relationships)
	return out
}
