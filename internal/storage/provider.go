// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/ehwaz/internal/models"

// Info holds the facts the mutation engine needs about a vault path.
type Info struct {
	IsDir   bool
	Size    int64
	ModTime int64 // unix seconds
}

// Provider is the store adapter for vault file operations. All paths are
// slash-separated and relative to the vault root.
//
// RenameOrMove is the only primitive that preserves references: it
// relocates a document and rewrites wikilinks in every document that
// points at it. Rename is the raw filesystem rename; the mutation engine
// uses it only where references must not change (trash relocation).
type Provider interface {
	// Exists reports whether a document or folder occupies path.
	Exists(path string) bool
	// Stat returns facts about path, or apperr.ErrNotFound.
	Stat(path string) (Info, error)
	// List returns metadata for every Markdown document under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Docs returns the relative path of every Markdown document under
	// dir, sorted, skipping the trash directory.
	Docs(dir string) ([]string, error)
	// ListChildren returns the immediate files and folders of dir.
	ListChildren(dir string) ([]models.DirEntry, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
	// CreateFolder creates dir and any missing ancestors.
	CreateFolder(dir string) error
	// RemoveFolder removes dir if it is empty.
	RemoveFolder(dir string) error
	// Rename relocates a document without touching referencing documents.
	Rename(oldPath, newPath string) error
	// RenameOrMove relocates a document and rewrites wikilinks to it.
	RenameOrMove(oldPath, newPath string) error
	// Trash relocates a document under the trash directory, preserving
	// its vault-relative path so the move is reversible by hand.
	Trash(path string) error
}
