package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/mutate"
	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/sse"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	eng    *mutate.Engine
	events *sse.Broker // may be nil
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, eng *mutate.Engine, events *sse.Broker) *Handler {
	return &Handler{svc: svc, eng: eng, events: events}
}

// vaultPath extracts the vault path from the URL (everything after
// /api/vault/). A trailing slash is significant — it addresses a
// container — so only the leading slash is trimmed. Encoded slashes from
// OpenAPI clients (topics%2Fnote.md) are supported.
func vaultPath(r *http.Request) string {
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

// ListVault handles GET /api/vault with optional pagination and filtering.
func (h *Handler) ListVault(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	tag := q.Get("tag")
	sort := q.Get("sort")

	items, total, err := h.svc.ListNotes(r.Context(), limit, offset, tag, sort)
	if err != nil {
		slog.Error("list vault failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notes": items,
		"total": total,
	})
}

// GetVaultEntry handles GET /api/vault/*: a document path returns the
// note detail, a container path (trailing slash) returns its children.
func (h *Handler) GetVaultEntry(w http.ResponseWriter, r *http.Request) {
	path := vaultPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	if strings.HasSuffix(path, "/") {
		entries, err := h.svc.ListDir(r.Context(), strings.TrimSuffix(path, "/"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		if entries == nil {
			entries = []models.DirEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"path": path, "children": entries})
		return
	}

	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found: "+path))
		} else {
			slog.Error("get note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateVaultEntry handles POST /api/vault/*: a container path (trailing
// slash) creates a directory, a document path creates a note from the
// JSON body.
func (h *Handler) CreateVaultEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := vaultPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	if strings.HasSuffix(path, "/") {
		if err := h.eng.CreateDirectory(path); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"path": path, "created": true})
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), path, []byte(req.Content))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("note already exists: "+path))
		} else {
			slog.Error("create note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/vault/* with optimistic concurrency via
// the If-Match checksum header.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := vaultPath(r)
	if path == "" || strings.HasSuffix(path, "/") {
		writeJSON(w, http.StatusBadRequest, errorBody("a document path is required"))
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.UpdateNote(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found: "+path))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		default:
			slog.Error("update note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteVaultEntry handles DELETE /api/vault/*: a document path deletes a
// note, a container path deletes the directory subtree. ?permanent=true
// bypasses the trash for directories.
func (h *Handler) DeleteVaultEntry(w http.ResponseWriter, r *http.Request) {
	path := vaultPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	permanent := r.URL.Query().Get("permanent") == "true"
	if strings.HasSuffix(path, "/") {
		result, err := h.eng.DeleteDirectory(path, permanent)
		if err != nil {
			if errors.Is(err, apperr.ErrPartialFailure) {
				writeJSON(w, http.StatusMultiStatus, map[string]any{"result": result, "error": err.Error()})
				return
			}
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if err := h.svc.DeleteNote(r.Context(), path, permanent); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found: "+path))
			return
		}
		slog.Error("delete note failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		slog.Error("list tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Graph handles GET /api/graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}
