package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/notebookservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// workspaceRoot is used to resolve the assets directory.
func NewRouter(svc *notebookservice.Service, authEnabled bool, token string, sseHandler http.Handler, workspaceRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAssetHandler(workspaceRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notebook CRUD.
	r.Get("/notebooks", h.ListNotebooks)
	r.Post("/notebooks", h.CreateNotebook)
	r.Get("/notebooks/*", h.GetNotebook)
	r.Put("/notebooks/*", h.UpdateNotebook)
	r.Delete("/notebooks/*", h.DeleteNotebook)

	// Structural edits.
	r.Post("/edit/*", h.EditNotebook)

	// Search over cell sources.
	r.Get("/search", h.Search)

	// Assets referenced by notebook cells.
	r.Post("/assets", ah.Upload)
	r.Get("/assets/{filename}", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
