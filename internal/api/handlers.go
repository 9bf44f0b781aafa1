package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/nbformat"
	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/notebookservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *notebookservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *notebookservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notebookPath extracts the notebook path from the URL wildcard. Supports
// encoded slashes from generated clients (e.g. analysis%2Freport.ipynb).
func notebookPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeServiceError maps domain errors onto HTTP statuses. Decode failures
// are 422: the request was well-formed but the document was not.
func writeServiceError(w http.ResponseWriter, path string, err error) {
	var schemaErr *nbformat.SchemaError
	var versionErr *nbformat.UnsupportedVersionError
	var indexErr *notebook.IndexError

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("notebook already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, nbformat.ErrMalformedInput),
		errors.As(err, &schemaErr),
		errors.As(err, &versionErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.As(err, &indexErr):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotebooks handles GET /api/notebooks.
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list notebooks failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NotebookListResponse{Notebooks: items, Total: total})
}

// GetNotebook handles GET /api/notebooks/*. With ?raw=1 the on-disk document
// is returned verbatim with an ETag; otherwise a structured summary.
func (h *Handler) GetNotebook(w http.ResponseWriter, r *http.Request) {
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	if r.URL.Query().Get("raw") != "" {
		data, sum, err := h.svc.Raw(r.Context(), path)
		if err != nil {
			writeServiceError(w, path, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-ipynb+json")
		w.Header().Set("ETag", checksum.ETag(sum))
		_, _ = w.Write(data)
		return
	}

	detail, err := h.svc.Get(r.Context(), path)
	if err != nil {
		writeServiceError(w, path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(detail.Checksum))
	writeJSON(w, http.StatusOK, detail)
}

// CreateNotebook handles POST /api/notebooks.
func (h *Handler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	detail, err := h.svc.Create(r.Context(), req.Path, req.Kernel)
	if err != nil {
		writeServiceError(w, req.Path, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// UpdateNotebook handles PUT /api/notebooks/*. The body is the full document
// in interchange JSON; If-Match carries the expected checksum.
func (h *Handler) UpdateNotebook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("body is required"))
		return
	}

	ifMatch := checksum.Trim(r.Header.Get("If-Match"))

	detail, err := h.svc.Update(r.Context(), path, body, ifMatch)
	if err != nil {
		writeServiceError(w, path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(detail.Checksum))
	writeJSON(w, http.StatusOK, detail)
}

// DeleteNotebook handles DELETE /api/notebooks/*.
func (h *Handler) DeleteNotebook(w http.ResponseWriter, r *http.Request) {
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), path); err != nil {
		writeServiceError(w, path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditNotebook handles POST /api/edit/*: one structural edit per request,
// applied read-modify-write under If-Match.
func (h *Handler) EditNotebook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ifMatch := checksum.Trim(r.Header.Get("If-Match"))

	switch req.Op {
	case OpClearOutputs:
		detail, err := h.svc.ClearOutputs(r.Context(), path, ifMatch)
		if err != nil {
			writeServiceError(w, path, err)
			return
		}
		w.Header().Set("ETag", checksum.ETag(detail.Checksum))
		writeJSON(w, http.StatusOK, detail)

	case OpRunAll:
		n, err := h.svc.RequestRun(r.Context(), path)
		if err != nil {
			writeServiceError(w, path, err)
			return
		}
		writeJSON(w, http.StatusAccepted, RunResponse{Path: path, CodeCells: n})

	default:
		detail, err := h.svc.Edit(r.Context(), path, ifMatch, req.apply)
		if err != nil {
			writeServiceError(w, path, err)
			return
		}
		w.Header().Set("ETag", checksum.ETag(detail.Checksum))
		writeJSON(w, http.StatusOK, detail)
	}
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{
			Path:     hit.Path,
			Position: hit.Position,
			CellType: hit.CellType,
			Snippet:  hit.Snippet,
		}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
