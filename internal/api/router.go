package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/ehwaz/internal/mutate"
	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, is mounted at GET /events inside the auth group and
// receives tag-surface events from the handlers.
func NewRouter(svc *noteservice.Service, eng *mutate.Engine, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, eng, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Vault surface: read, create, replace, delete, and the directive-
	// driven mutation dispatch.
	r.Get("/vault", h.ListVault)
	r.Get("/vault/*", h.GetVaultEntry)
	r.Post("/vault/*", h.CreateVaultEntry)
	r.Put("/vault/*", h.UpdateNote)
	r.Delete("/vault/*", h.DeleteVaultEntry)
	r.Patch("/vault/*", h.PatchVault)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Patch("/tags/{tag}", h.RenameTag)

	// Search and graph.
	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
