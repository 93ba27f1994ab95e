// Package testutil provides shared test helpers for setting up vaults and
// databases, plus in-memory fakes for exercising the mutation engine.
package testutil

import (
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/index"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ehwaz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir, "")
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// FakeStore is an in-memory storage.Provider. Every operation counts its
// calls per path, and any operation can be made to fail for a chosen
// path, so tests can assert read/write counts and compensation order.
type FakeStore struct {
	Files    map[string][]byte
	Dirs     map[string]bool
	TrashDir string

	Reads   map[string]int
	Writes  map[string]int
	Moves   []MoveCall // RenameOrMove calls in order, including compensations
	Renames []MoveCall // plain Rename calls (trash relocation)
	Deleted []string
	Trashed []string

	FailRead         map[string]error // keyed by path
	FailWrite        map[string]error
	FailRenameOrMove map[string]error // keyed by old path
	FailDelete       map[string]error
}

// MoveCall records one relocation.
type MoveCall struct {
	From, To string
}

// NewFakeStore returns an empty fake vault.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		Files:            map[string][]byte{},
		Dirs:             map[string]bool{},
		TrashDir:         storage.DefaultTrashDir,
		Reads:            map[string]int{},
		Writes:           map[string]int{},
		FailRead:         map[string]error{},
		FailWrite:        map[string]error{},
		FailRenameOrMove: map[string]error{},
		FailDelete:       map[string]error{},
	}
}

// AddDoc seeds a document and its parent folders.
func (f *FakeStore) AddDoc(path, content string) {
	f.Files[path] = []byte(content)
	dir := parentDir(path)
	for dir != "" {
		f.Dirs[dir] = true
		dir = parentDir(dir)
	}
}

func parentDir(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

func (f *FakeStore) Exists(path string) bool {
	if _, ok := f.Files[path]; ok {
		return true
	}
	return f.Dirs[path]
}

func (f *FakeStore) Stat(path string) (storage.Info, error) {
	if data, ok := f.Files[path]; ok {
		return storage.Info{Size: int64(len(data))}, nil
	}
	if f.Dirs[path] {
		return storage.Info{IsDir: true}, nil
	}
	return storage.Info{}, apperr.ErrNotFound
}

func (f *FakeStore) List(dir string) ([]models.NoteMetadata, error) {
	var out []models.NoteMetadata
	for _, p := range f.docsUnder(dir) {
		out = append(out, models.NoteMetadata{Path: p})
	}
	return out, nil
}

func (f *FakeStore) Docs(dir string) ([]string, error) {
	return f.docsUnder(dir), nil
}

func (f *FakeStore) docsUnder(dir string) []string {
	var out []string
	for p := range f.Files {
		if strings.HasPrefix(p, f.TrashDir+"/") {
			continue
		}
		if dir != "" && p != dir && !strings.HasPrefix(p, dir+"/") {
			continue
		}
		if strings.HasSuffix(p, ".md") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (f *FakeStore) ListChildren(dir string) ([]models.DirEntry, error) {
	if dir != "" && !f.Dirs[dir] {
		return nil, apperr.ErrNotFound
	}
	seen := map[string]bool{}
	var out []models.DirEntry
	add := func(name string, isDir bool) {
		if !seen[name] {
			seen[name] = true
			out = append(out, models.DirEntry{Name: name, IsDir: isDir})
		}
	}
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	for p := range f.Files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			add(rest[:i], true)
		} else {
			add(rest, false)
		}
	}
	for d := range f.Dirs {
		if !strings.HasPrefix(d, prefix) || d == dir {
			continue
		}
		rest := strings.TrimPrefix(d, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			add(rest[:i], true)
		} else {
			add(rest, true)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *FakeStore) Read(path string) ([]byte, error) {
	f.Reads[path]++
	if err := f.FailRead[path]; err != nil {
		return nil, err
	}
	data, ok := f.Files[path]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (f *FakeStore) Write(path string, content []byte) error {
	f.Writes[path]++
	if err := f.FailWrite[path]; err != nil {
		return err
	}
	f.Files[path] = append([]byte(nil), content...)
	return nil
}

func (f *FakeStore) Delete(path string) error {
	if err := f.FailDelete[path]; err != nil {
		return err
	}
	if _, ok := f.Files[path]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.Files, path)
	f.Deleted = append(f.Deleted, path)
	return nil
}

func (f *FakeStore) CreateFolder(dir string) error {
	for dir != "" {
		f.Dirs[dir] = true
		dir = parentDir(dir)
	}
	return nil
}

func (f *FakeStore) RemoveFolder(dir string) error {
	for p := range f.Files {
		if strings.HasPrefix(p, dir+"/") {
			return apperr.ErrConflict
		}
	}
	for d := range f.Dirs {
		if strings.HasPrefix(d, dir+"/") {
			return apperr.ErrConflict
		}
	}
	delete(f.Dirs, dir)
	return nil
}

func (f *FakeStore) Rename(oldPath, newPath string) error {
	data, ok := f.Files[oldPath]
	if !ok {
		return apperr.ErrNotFound
	}
	delete(f.Files, oldPath)
	f.AddDoc(newPath, string(data))
	f.Renames = append(f.Renames, MoveCall{From: oldPath, To: newPath})
	return nil
}

func (f *FakeStore) RenameOrMove(oldPath, newPath string) error {
	if err := f.FailRenameOrMove[oldPath]; err != nil {
		return err
	}
	data, ok := f.Files[oldPath]
	if !ok {
		return apperr.ErrNotFound
	}
	delete(f.Files, oldPath)
	f.AddDoc(newPath, string(data))
	f.Moves = append(f.Moves, MoveCall{From: oldPath, To: newPath})
	return nil
}

func (f *FakeStore) Trash(path string) error {
	f.Trashed = append(f.Trashed, path)
	return f.Rename(path, f.TrashDir+"/"+path)
}

var _ storage.Provider = (*FakeStore)(nil)

// FakeIndex is an in-memory mutate.Index with call counters.
type FakeIndex struct {
	TagsByPath map[string][]string

	TagsCalls         map[string]int
	PathsWithTagCalls int
	Renamed           []MoveCall
	Dropped           []string

	FailRenamePath error
}

// NewFakeIndex returns an empty fake index.
func NewFakeIndex() *FakeIndex {
	return &FakeIndex{
		TagsByPath: map[string][]string{},
		TagsCalls:  map[string]int{},
	}
}

func (f *FakeIndex) Tags(path string) ([]string, error) {
	f.TagsCalls[path]++
	return f.TagsByPath[path], nil
}

func (f *FakeIndex) PathsWithTag(tag string) ([]string, error) {
	f.PathsWithTagCalls++
	var out []string
	for p, tags := range f.TagsByPath {
		for _, t := range tags {
			if t == tag || strings.HasPrefix(t, tag+"/") {
				out = append(out, p)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FakeIndex) RenamePath(oldPath, newPath string) error {
	if f.FailRenamePath != nil {
		return f.FailRenamePath
	}
	if tags, ok := f.TagsByPath[oldPath]; ok {
		delete(f.TagsByPath, oldPath)
		f.TagsByPath[newPath] = tags
	}
	f.Renamed = append(f.Renamed, MoveCall{From: oldPath, To: newPath})
	return nil
}

func (f *FakeIndex) DeleteNote(path string) error {
	delete(f.TagsByPath, path)
	f.Dropped = append(f.Dropped, path)
	return nil
}
