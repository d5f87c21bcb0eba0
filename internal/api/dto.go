package api

import (
	"github.com/starford/kinship/internal/familyservice"
	"github.com/starford/kinship/internal/index"
)

// AddPersonRequest is the request body for creating a person.
type AddPersonRequest struct {
	Name string `json:"name" example:"Bob" validate:"required"`
}

// AddRelationshipRequest is the request body for labelling a person with a
// relationship type.
type AddRelationshipRequest struct {
	Type string `json:"type" example:"son" validate:"required"`
}

// ConnectRequest is the request body for connecting two persons:
// Name1 becomes the Relationship of Name2.
type ConnectRequest struct {
	Name1        string `json:"name1" example:"Al" validate:"required"`
	Relationship string `json:"relationship" example:"father" validate:"required"`
	Name2        string `json:"name2" example:"Bob" validate:"required"`
}

// PersonDetail is the full person response type (aliased from the domain layer).
type PersonDetail = familyservice.PersonDetail

// PersonListItem is a lightweight item in a list response (aliased from the domain layer).
type PersonListItem = familyservice.PersonListItem

// PersonListResponse wraps person listings.
type PersonListResponse struct {
	People []PersonListItem `json:"people" validate:"required"`
	Total  int              `json:"total" example:"42" validate:"required"`
}

// CountResponse is returned by the relationship count endpoint.
type CountResponse struct {
	Name  string `json:"name" example:"Bob" validate:"required"`
	Type  string `json:"type" example:"son" validate:"required"`
	Count int    `json:"count" example:"2"`
}

// FatherResponse is returned by the father lookup endpoint.
type FatherResponse struct {
	Name   string `json:"name" example:"Bob" validate:"required"`
	Father string `json:"father" example:"Al" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the family graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Links []index.GraphLink `json:"links" validate:"required"`
}
