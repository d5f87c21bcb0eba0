package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kinship/internal/familyservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *familyservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// People.
	r.Get("/people", h.ListPeople)
	r.Post("/people", h.AddPerson)
	r.Get("/people/{name}", h.GetPerson)
	r.Post("/people/{name}/relationships", h.AddRelationship)
	r.Get("/people/{name}/counts/{type}", h.CountRelationships)
	r.Get("/people/{name}/father", h.FatherOf)

	// Connections.
	r.Post("/connections", h.Connect)

	// Search and graph.
	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
