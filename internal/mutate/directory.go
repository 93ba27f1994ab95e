package mutate

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ehwaz/internal/apperr"
)

// DirectoryMoveResult reports a completed subtree move.
type DirectoryMoveResult struct {
	OldPath    string `json:"old_path"`
	NewPath    string `json:"new_path"`
	FilesMoved int    `json:"files_moved"`
}

// DirectoryDeleteResult reports a completed directory delete.
type DirectoryDeleteResult struct {
	Path      string `json:"path"`
	Removed   int    `json:"removed"`
	Permanent bool   `json:"permanent"`
}

// movePair is one committed relocation inside a directory move.
type movePair struct {
	oldPath string
	newPath string
}

// moveTransaction is the handler-local log of a directory move: the
// documents discovered under the source root at start time, and the
// relocations committed so far, in order. On mid-sequence failure the
// committed list is replayed in reverse for best-effort compensation.
// The underlying store has no multi-document transaction primitive, so
// this is explicitly not an atomic rollback.
type moveTransaction struct {
	src       string
	dst       string
	docs      []string
	committed []movePair
}

func (tx *moveTransaction) commit(oldPath, newPath string) {
	tx.committed = append(tx.committed, movePair{oldPath: oldPath, newPath: newPath})
}

// MoveDirectory relocates every document under dirPath to newPath as one
// logical unit. Each document moves through the link-preserving store
// primitive, sequentially, so the transaction log reflects an ordered
// history that can be reversed deterministically. Zero documents is a
// legal move (the empty container is recreated at the destination).
func (e *Engine) MoveDirectory(dirPath, newPath string) (*DirectoryMoveResult, error) {
	dirPath = strings.TrimSuffix(strings.TrimSpace(dirPath), "/")
	newPath = strings.TrimSuffix(strings.TrimSpace(newPath), "/")

	if err := e.requireDirectory(dirPath); err != nil {
		return nil, err
	}
	if newPath == "" {
		return nil, fmt.Errorf("%w: new path is empty", apperr.ErrInvalidTarget)
	}
	if newPath == dirPath || strings.HasPrefix(newPath+"/", dirPath+"/") {
		return nil, fmt.Errorf("%w: destination %s is inside the source directory", apperr.ErrInvalidTarget, newPath)
	}
	if e.store.Exists(newPath) {
		return nil, fmt.Errorf("%w: destination already exists: %s", apperr.ErrConflict, newPath)
	}

	docs, err := e.store.Docs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", dirPath, err)
	}

	if err := e.store.CreateFolder(newPath); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", newPath, err)
	}

	tx := &moveTransaction{src: dirPath, dst: newPath, docs: docs}
	for _, doc := range docs {
		rel := strings.TrimPrefix(doc, dirPath+"/")
		dest := newPath + "/" + rel
		if moveErr := e.store.RenameOrMove(doc, dest); moveErr != nil {
			e.compensate(tx)
			return nil, fmt.Errorf("move %s: %w", doc, moveErr)
		}
		tx.commit(doc, dest)
		if idxErr := e.idx.RenamePath(doc, dest); idxErr != nil {
			e.logger.Warn("index rename failed", slog.String("old", doc), slog.String("new", dest), slog.String("error", idxErr.Error()))
		}
	}

	// Pure cleanup: drop the now-empty containers under the old root.
	// Skipped on any error without failing the move.
	e.removeEmptyFolders(dirPath)

	e.logger.Info("directory moved",
		slog.String("old", dirPath),
		slog.String("new", newPath),
		slog.Int("files_moved", len(tx.committed)))
	return &DirectoryMoveResult{OldPath: dirPath, NewPath: newPath, FilesMoved: len(tx.committed)}, nil
}

// compensate replays the committed relocations in reverse order, moving
// every document back to its original path. Compensation failures are
// logged and never mask the original error.
func (e *Engine) compensate(tx *moveTransaction) {
	for i := len(tx.committed) - 1; i >= 0; i-- {
		pair := tx.committed[i]
		if err := e.store.RenameOrMove(pair.newPath, pair.oldPath); err != nil {
			e.logger.Error("compensating move failed",
				slog.String("path", pair.newPath),
				slog.String("original", pair.oldPath),
				slog.String("error", err.Error()))
			continue
		}
		if err := e.idx.RenamePath(pair.newPath, pair.oldPath); err != nil {
			e.logger.Warn("index rename failed during compensation",
				slog.String("path", pair.oldPath), slog.String("error", err.Error()))
		}
	}
}

// CreateDirectory creates a new container at dirPath, including missing
// ancestors.
func (e *Engine) CreateDirectory(dirPath string) error {
	dirPath = strings.TrimSuffix(strings.TrimSpace(dirPath), "/")
	if dirPath == "" {
		return fmt.Errorf("%w: directory path is empty", apperr.ErrInvalidTarget)
	}
	if e.store.Exists(dirPath) {
		return fmt.Errorf("%w: %s already exists", apperr.ErrConflict, dirPath)
	}
	if err := e.store.CreateFolder(dirPath); err != nil {
		return fmt.Errorf("create directory %s: %w", dirPath, err)
	}
	e.logger.Info("directory created", slog.String("path", dirPath))
	return nil
}

// DeleteDirectory removes every document under dirPath. permanent removes
// irreversibly; otherwise documents move to the trash directory. Every
// contained document is visited exactly once; per-document failures are
// logged and counted but do not abort the sweep.
func (e *Engine) DeleteDirectory(dirPath string, permanent bool) (*DirectoryDeleteResult, error) {
	dirPath = strings.TrimSuffix(strings.TrimSpace(dirPath), "/")
	if err := e.requireDirectory(dirPath); err != nil {
		return nil, err
	}

	docs, err := e.store.Docs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", dirPath, err)
	}

	removed := 0
	failed := 0
	for _, doc := range docs {
		var opErr error
		if permanent {
			opErr = e.store.Delete(doc)
		} else {
			opErr = e.store.Trash(doc)
		}
		if opErr != nil {
			failed++
			e.logger.Warn("delete failed", slog.String("path", doc), slog.Bool("permanent", permanent), slog.String("error", opErr.Error()))
			continue
		}
		removed++
		if idxErr := e.idx.DeleteNote(doc); idxErr != nil {
			e.logger.Warn("index delete failed", slog.String("path", doc), slog.String("error", idxErr.Error()))
		}
	}

	// Drop the emptied containers, the root included. Best-effort; a
	// leftover non-Markdown file keeps its folder in place.
	e.removeEmptyFolders(dirPath)
	_ = e.store.RemoveFolder(dirPath)

	result := &DirectoryDeleteResult{Path: dirPath, Removed: removed, Permanent: permanent}
	if failed > 0 {
		return result, fmt.Errorf("%w: %d of %d documents could not be removed", apperr.ErrPartialFailure, failed, len(docs))
	}
	e.logger.Info("directory deleted", slog.String("path", dirPath), slog.Int("removed", removed), slog.Bool("permanent", permanent))
	return result, nil
}

// removeEmptyFolders removes empty containers bottom-up under dir.
// Any error skips the folder without failing the caller.
func (e *Engine) removeEmptyFolders(dir string) {
	children, err := e.store.ListChildren(dir)
	if err != nil {
		return
	}
	for _, child := range children {
		if child.IsDir {
			e.removeEmptyFolders(dir + "/" + child.Name)
		}
	}
	// Re-list: the recursion above may have emptied it.
	children, err = e.store.ListChildren(dir)
	if err == nil && len(children) == 0 {
		_ = e.store.RemoveFolder(dir)
	}
}

// requireDirectory fails when dirPath is absent or resolves to a document.
func (e *Engine) requireDirectory(dirPath string) error {
	info, err := e.store.Stat(dirPath)
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, dirPath)
	}
	if !info.IsDir {
		return fmt.Errorf("%w: %s refers to a document, not a directory", apperr.ErrInvalidTarget, dirPath)
	}
	return nil
}
