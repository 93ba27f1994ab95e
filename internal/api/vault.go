package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ehwaz/internal/mutate"
)

// PatchVault handles PATCH /api/vault/*: the directive-driven mutation
// dispatch. The Operation, Target-Type, and Target headers are classified
// into exactly one mutation variant; the body carries the payload (new
// name or path as plain text, or a JSON tag batch).
func (h *Handler) PatchVault(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := vaultPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	inst := mutate.Classify(
		r.Header.Get("Operation"),
		r.Header.Get("Target-Type"),
		r.Header.Get("Target"),
		path,
	)

	switch inst.Kind {
	case mutate.KindRenameFile:
		newName, ok := h.textBody(w, r, "new file name")
		if !ok {
			return
		}
		result, err := h.eng.RenameFile(inst.Path, newName)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case mutate.KindMoveFile:
		newPath, ok := h.textBody(w, r, "new file path")
		if !ok {
			return
		}
		result, err := h.eng.MoveFile(inst.Path, newPath)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case mutate.KindMoveDirectory:
		newPath, ok := h.textBody(w, r, "new directory path")
		if !ok {
			return
		}
		result, err := h.eng.MoveDirectory(inst.Path, newPath)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case mutate.KindTagBatch:
		h.applyTagBatch(w, r, inst)

	case mutate.KindGenericPatch:
		writeJSON(w, http.StatusNotImplemented, errorBody("generic content patches are not supported"))

	default:
		writeJSON(w, http.StatusBadRequest, errorBody(inst.Reason))
	}
}

// applyTagBatch decodes the batch payload and runs the tag handler. The
// body is a JSON object {"tags": [...], "location": "..."}; the legacy
// single-tag form carries the tag name in the Target directive and no
// body, and behaves exactly like a one-element batch.
func (h *Handler) applyTagBatch(w http.ResponseWriter, r *http.Request, inst mutate.Instruction) {
	var req TagBatchRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}

	tags := req.Tags
	if len(tags) == 0 && inst.LegacyTag != "" {
		tags = []string{inst.LegacyTag}
	}
	if len(tags) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("no tags supplied: provide a JSON tags list or a Target directive"))
		return
	}

	result, err := h.eng.ApplyTagBatch(inst.Path, inst.TagOp, tags, mutate.TagLocation(req.Location))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if h.events != nil && result.Modified {
		for _, outcome := range result.Outcomes {
			if outcome.Result == mutate.OutcomeSucceeded {
				h.events.PublishTagEvent(outcome.Tag)
			}
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// RenameTag handles PATCH /api/tags/{tag}: the vault-wide rename.
// Requires Operation: rename; the body is the new tag name as plain text.
func (h *Handler) RenameTag(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	op := strings.ToLower(strings.TrimSpace(r.Header.Get("Operation")))
	if op != "rename" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag rename requires Operation: rename"))
		return
	}
	oldTag := chi.URLParam(r, "tag")
	newTag, ok := h.textBody(w, r, "new tag name")
	if !ok {
		return
	}

	result, err := h.eng.RenameTag(oldTag, newTag)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if h.events != nil && len(result.Modified) > 0 {
		h.events.PublishTagEvent(newTag)
	}
	if len(result.Failures) > 0 {
		writeJSON(w, http.StatusMultiStatus, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// textBody reads a plain-text payload, rejecting an empty body with a
// message naming the missing value.
func (h *Handler) textBody(w http.ResponseWriter, r *http.Request, what string) (string, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("body too large"))
			return "", false
		}
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return "", false
	}
	value := strings.TrimSpace(string(body))
	if value == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(what+" is required in the request body"))
		return "", false
	}
	return value, true
}
