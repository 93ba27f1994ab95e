package mutate

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/ehwaz/internal/apperr"
)

// MoveResult reports a completed single-document relocation.
type MoveResult struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

// RenameFile renames a document within its directory. The relocation goes
// through the store's link-preserving primitive so documents referencing
// the old name are rewritten.
func (e *Engine) RenameFile(docPath, newName string) (*MoveResult, error) {
	if err := e.requireDocument(docPath); err != nil {
		return nil, err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("%w: new name is empty", apperr.ErrInvalidTarget)
	}
	if strings.HasSuffix(newName, "/") || strings.Contains(newName, "/") {
		return nil, fmt.Errorf("%w: new name %q must be a plain file name", apperr.ErrInvalidTarget, newName)
	}

	newPath := newName
	if dir := path.Dir(docPath); dir != "." {
		newPath = dir + "/" + newName
	}
	return e.relocate(docPath, newPath)
}

// MoveFile relocates a document to a new vault path, creating any missing
// destination parents.
func (e *Engine) MoveFile(docPath, newPath string) (*MoveResult, error) {
	if err := e.requireDocument(docPath); err != nil {
		return nil, err
	}
	newPath = strings.TrimSpace(newPath)
	if newPath == "" {
		return nil, fmt.Errorf("%w: new path is empty", apperr.ErrInvalidTarget)
	}
	if strings.HasSuffix(newPath, "/") {
		return nil, fmt.Errorf("%w: new path %q denotes a directory", apperr.ErrInvalidTarget, newPath)
	}
	return e.relocate(docPath, newPath)
}

// relocate performs the checked, link-preserving move shared by rename
// and move. Reference updates in other documents are the store's
// responsibility; no other document is touched here.
func (e *Engine) relocate(oldPath, newPath string) (*MoveResult, error) {
	if newPath == oldPath {
		return nil, fmt.Errorf("%w: source and destination are the same: %s", apperr.ErrInvalidTarget, oldPath)
	}
	if e.store.Exists(newPath) {
		return nil, fmt.Errorf("%w: destination already exists: %s", apperr.ErrConflict, newPath)
	}
	if err := e.store.RenameOrMove(oldPath, newPath); err != nil {
		return nil, fmt.Errorf("relocate %s: %w", oldPath, err)
	}
	if err := e.idx.RenamePath(oldPath, newPath); err != nil {
		e.logger.Warn("index rename failed", slog.String("old", oldPath), slog.String("new", newPath), slog.String("error", err.Error()))
	}
	e.logger.Info("document moved", slog.String("old", oldPath), slog.String("new", newPath))
	return &MoveResult{OldPath: oldPath, NewPath: newPath}, nil
}

// requireDocument fails when docPath is absent or resolves to a container.
func (e *Engine) requireDocument(docPath string) error {
	info, err := e.store.Stat(docPath)
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, docPath)
	}
	if info.IsDir {
		return fmt.Errorf("%w: %s refers to a directory, not a document", apperr.ErrInvalidTarget, docPath)
	}
	return nil
}
