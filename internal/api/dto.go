package api

import (
	"github.com/starford/ehwaz/internal/mutate"
	"github.com/starford/ehwaz/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note. The path
// comes from the URL, not the body.
type CreateNoteRequest struct {
	Content string `json:"content" example:"# Hello\nWorld" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// TagBatchRequest is the JSON body for a tag add/remove mutation. An
// empty Location defaults to both frontmatter and inline placement.
type TagBatchRequest struct {
	Tags     []string `json:"tags" example:"project,project/alpha" validate:"required"`
	Location string   `json:"location,omitempty" example:"frontmatter"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// MoveResponse describes a completed rename or move.
type MoveResponse = mutate.MoveResult

// DirectoryMoveResponse describes a completed subtree move.
type DirectoryMoveResponse = mutate.DirectoryMoveResult

// TagBatchResponse reports per-tag outcomes for a batch mutation.
type TagBatchResponse = mutate.TagBatchResult

// TagRenameResponse reports a vault-wide tag rename, including any
// documents that could not be rewritten.
type TagRenameResponse = mutate.TagRenameResult
