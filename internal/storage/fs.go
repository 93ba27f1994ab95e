package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/models"
)

// DefaultTrashDir is where non-permanent deletes land.
const DefaultTrashDir = ".trash"

// FS implements Provider backed by the local file system.
type FS struct {
	root     string // absolute path to vault directory
	trashDir string // vault-relative trash directory name
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist. trashDir names the vault-relative
// folder used for reversible deletes; empty means DefaultTrashDir.
func NewFS(root, trashDir string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if trashDir == "" {
		trashDir = DefaultTrashDir
	}
	return &FS{root: abs, trashDir: trashDir}, nil
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// skipDir reports whether a directory name is excluded from vault walks
// (the trash directory and dot-directories such as .git).
func (f *FS) skipDir(name string) bool {
	return name == f.trashDir || strings.HasPrefix(name, ".")
}

// Exists reports whether a document or folder occupies path.
func (f *FS) Exists(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Stat returns facts about a vault path.
func (f *FS) Stat(path string) (Info, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return Info{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, apperr.ErrNotFound
		}
		return Info{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return Info{
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime().Unix(),
	}, nil
}

// List walks dir (relative to root) and returns metadata for every .md file.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != base && f.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.NoteMetadata{
			Path:      filepath.ToSlash(rel),
			Checksum:  checksum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Docs returns the relative path of every .md document under dir, sorted.
func (f *FS) Docs(dir string) ([]string, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != base && f.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return relErr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: docs: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// ListChildren returns the immediate files and folders of dir.
func (f *FS) ListChildren(dir string) ([]models.DirEntry, error) {
	abs, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("storage: list children %s: %w", dir, err)
	}
	var out []models.DirEntry
	for _, e := range entries {
		if e.IsDir() && f.skipDir(e.Name()) {
			continue
		}
		out = append(out, models.DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ehwaz-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// CreateFolder creates dir and any missing ancestors.
func (f *FS) CreateFolder(dir string) error {
	abs, err := f.safePath(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: create folder %s: %w", dir, err)
	}
	return nil
}

// RemoveFolder removes dir; it must be empty.
func (f *FS) RemoveFolder(dir string) error {
	abs, err := f.safePath(dir)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: refusing to remove vault root")
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: remove folder %s: %w", dir, err)
	}
	return nil
}

// Rename relocates a file within the vault without touching other documents.
func (f *FS) Rename(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absNew)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

// RenameOrMove relocates a document and rewrites wikilinks pointing at it
// in every other document of the vault. Wikilink targets are filename
// stems without the .md extension, so the rewrite matches both the full
// relative path form and any alias variant.
func (f *FS) RenameOrMove(oldPath, newPath string) error {
	if err := f.Rename(oldPath, newPath); err != nil {
		return err
	}

	oldTarget := strings.TrimSuffix(oldPath, ".md")
	newTarget := strings.TrimSuffix(newPath, ".md")
	if oldTarget == newTarget {
		return nil
	}

	docs, err := f.Docs("")
	if err != nil {
		return fmt.Errorf("storage: enumerate for link rewrite: %w", err)
	}
	for _, doc := range docs {
		if doc == newPath {
			continue
		}
		data, readErr := f.Read(doc)
		if readErr != nil {
			return fmt.Errorf("storage: link rewrite read %s: %w", doc, readErr)
		}
		updated := rewriteWikilinks(string(data), oldTarget, newTarget)
		if updated == string(data) {
			continue
		}
		if writeErr := f.Write(doc, []byte(updated)); writeErr != nil {
			return fmt.Errorf("storage: link rewrite write %s: %w", doc, writeErr)
		}
	}
	return nil
}

// Trash relocates a document under the trash directory, preserving its
// vault-relative path.
func (f *FS) Trash(path string) error {
	return f.Rename(path, f.trashDir+"/"+path)
}

// rewriteWikilinks replaces [[old]], [[old|alias]], and [[old#section]]
// references with the new target.
func rewriteWikilinks(content, oldTarget, newTarget string) string {
	content = strings.ReplaceAll(content, "[["+oldTarget+"]]", "[["+newTarget+"]]")
	content = strings.ReplaceAll(content, "[["+oldTarget+"|", "[["+newTarget+"|")
	content = strings.ReplaceAll(content, "[["+oldTarget+"#", "[["+newTarget+"#")
	return content
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
