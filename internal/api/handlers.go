package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kinship/internal/familyservice"
)

const maxBody = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *familyservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *familyservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pathParam returns a decoded URL parameter. Names may arrive percent-encoded
// (e.g. "Smith%2C%20John").
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListPeople handles GET /api/people.
//
//	@Summary		List people in insertion order
//	@Tags			people
//	@Produce		json
//	@Success		200		{object}	PersonListResponse
//	@Security		BearerAuth
//	@Router			/people [get]
func (h *Handler) ListPeople(w http.ResponseWriter, r *http.Request) {
	items := h.svc.ListPeople(r.Context())
	writeJSON(w, http.StatusOK, PersonListResponse{People: items, Total: len(items)})
}

// AddPerson handles POST /api/people.
//
//	@Summary		Add a person
//	@Tags			people
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddPersonRequest	true	"Person to add"
//	@Success		201		{object}	PersonDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/people [post]
func (h *Handler) AddPerson(w http.ResponseWriter, r *http.Request) {
	var req AddPersonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.AddPerson(r.Context(), req.Name); err != nil {
		writeError(w, "add person", err)
		return
	}
	h.writePerson(w, r, http.StatusCreated, req.Name)
}

// GetPerson handles GET /api/people/{name}.
//
//	@Summary		Get a person with outgoing and incoming relationships
//	@Tags			people
//	@Produce		json
//	@Param			name	path		string	true	"Person name"
//	@Success		200		{object}	PersonDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/people/{name} [get]
func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	h.writePerson(w, r, http.StatusOK, pathParam(r, "name"))
}

// AddRelationship handles POST /api/people/{name}/relationships.
//
//	@Summary		Label a person with a relationship type
//	@Tags			relationships
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string					true	"Person name"
//	@Param			body	body		AddRelationshipRequest	true	"Relationship type"
//	@Success		201		{object}	PersonDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/people/{name}/relationships [post]
func (h *Handler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req AddRelationshipRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.AddRelationship(r.Context(), name, req.Type); err != nil {
		writeError(w, "add relationship", err)
		return
	}
	h.writePerson(w, r, http.StatusCreated, name)
}

// Connect handles POST /api/connections.
//
//	@Summary		Connect name1 as the relationship of name2
//	@Tags			relationships
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConnectRequest	true	"Connection"
//	@Success		201		{object}	PersonDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/connections [post]
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Connect(r.Context(), req.Name1, req.Relationship, req.Name2); err != nil {
		writeError(w, "connect", err)
		return
	}
	h.writePerson(w, r, http.StatusCreated, req.Name2)
}

// CountRelationships handles GET /api/people/{name}/counts/{type}.
//
//	@Summary		Count a person's relationships of one type
//	@Tags			relationships
//	@Produce		json
//	@Param			name	path		string	true	"Person name"
//	@Param			type	path		string	true	"Relationship type"	example(son)
//	@Success		200		{object}	CountResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/people/{name}/counts/{type} [get]
func (h *Handler) CountRelationships(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	relType := pathParam(r, "type")
	n, err := h.svc.CountRelationships(r.Context(), name, relType)
	if err != nil {
		writeError(w, "count relationships", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Name: name, Type: relType, Count: n})
}

// FatherOf handles GET /api/people/{name}/father.
//
//	@Summary		Get a person's father
//	@Tags			relationships
//	@Produce		json
//	@Param			name	path		string	true	"Person name"
//	@Success		200		{object}	FatherResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/people/{name}/father [get]
func (h *Handler) FatherOf(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	father, err := h.svc.FatherOf(r.Context(), name)
	if err != nil {
		writeError(w, "father of", err)
		return
	}
	writeJSON(w, http.StatusOK, FatherResponse{Name: name, Father: father})
}

// Search handles GET /api/search.
//
//	@Summary		Search people by name or relationship type
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'limit' must be a positive integer"))
			return
		}
		limit = n
	}
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the family graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

func (h *Handler) writePerson(w http.ResponseWriter, r *http.Request, status int, name string) {
	p, err := h.svc.GetPerson(r.Context(), name)
	if err != nil {
		writeError(w, "get person", err)
		return
	}
	writeJSON(w, status, p)
}
