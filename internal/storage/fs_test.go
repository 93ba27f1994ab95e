package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, "")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestRename(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.md", []byte("data"))
	_ = s.Write("ref.md", []byte("see [[old]]"))
	if err := s.Rename("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err := s.Read("sub/new.md")
	if err != nil {
		t.Fatalf("Read after rename: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.md"); err == nil {
		t.Error("old path should not exist")
	}
	ref, _ := s.Read("ref.md")
	if string(ref) != "see [[old]]" {
		t.Errorf("plain rename must not rewrite references: %q", ref)
	}
}

func TestRenameOrMoveRewritesWikilinks(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("topics/go.md", []byte("# Go\n"))
	_ = s.Write("a.md", []byte("plain [[topics/go]] here\n"))
	_ = s.Write("b.md", []byte("alias [[topics/go|The Go note]]\n"))
	_ = s.Write("c.md", []byte("section [[topics/go#Setup]]\n"))
	_ = s.Write("d.md", []byte("other [[topics/golang]] untouched\n"))

	if err := s.RenameOrMove("topics/go.md", "lang/go.md"); err != nil {
		t.Fatalf("RenameOrMove: %v", err)
	}

	want := map[string]string{
		"a.md": "plain [[lang/go]] here\n",
		"b.md": "alias [[lang/go|The Go note]]\n",
		"c.md": "section [[lang/go#Setup]]\n",
		"d.md": "other [[topics/golang]] untouched\n",
	}
	for path, expected := range want {
		got, err := s.Read(path)
		if err != nil {
			t.Fatalf("Read %s: %v", path, err)
		}
		if string(got) != expected {
			t.Errorf("%s = %q, want %q", path, got, expected)
		}
	}
	if _, err := s.Read("lang/go.md"); err != nil {
		t.Errorf("moved document unreadable: %v", err)
	}
}

func TestTrash(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("projects/task.md", []byte("todo"))
	_ = s.Write("ref.md", []byte("see [[projects/task]]"))

	if err := s.Trash("projects/task.md"); err != nil {
		t.Fatalf("Trash: %v", err)
	}
	got, err := s.Read(DefaultTrashDir + "/projects/task.md")
	if err != nil {
		t.Fatalf("Read from trash: %v", err)
	}
	if string(got) != "todo" {
		t.Errorf("content = %q", got)
	}
	ref, _ := s.Read("ref.md")
	if string(ref) != "see [[projects/task]]" {
		t.Errorf("trash must not rewrite references: %q", ref)
	}
}

func TestDocsSkipsTrashAndDotDirs(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = s.Write(DefaultTrashDir+"/gone.md", []byte("trashed"))
	_ = s.Write(".obsidian/config.md", []byte("hidden"))

	docs, err := s.Docs("")
	if err != nil {
		t.Fatalf("Docs: %v", err)
	}
	if len(docs) != 2 || docs[0] != "a.md" || docs[1] != "sub/b.md" {
		t.Errorf("docs = %v", docs)
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestListChildren(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write(DefaultTrashDir+"/gone.md", []byte("trashed"))

	entries, err := s.ListChildren("")
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = e.IsDir
	}
	if isDir, ok := names["sub"]; !ok || !isDir {
		t.Errorf("sub missing or not a dir: %v", entries)
	}
	if isDir, ok := names["a.md"]; !ok || isDir {
		t.Errorf("a.md missing or marked dir: %v", entries)
	}

	if _, err := s.ListChildren("nope"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestStat(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("sub/a.md", []byte("abc"))

	info, err := s.Stat("sub/a.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.IsDir || info.Size != 3 {
		t.Errorf("info = %+v", info)
	}
	info, err = s.Stat("sub")
	if err != nil {
		t.Fatalf("Stat dir: %v", err)
	}
	if !info.IsDir {
		t.Error("sub should be a directory")
	}
	if _, err := s.Stat("missing.md"); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestRemoveFolder(t *testing.T) {
	s := tempVault(t)
	if err := s.CreateFolder("empty"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := s.RemoveFolder("empty"); err != nil {
		t.Fatalf("RemoveFolder: %v", err)
	}
	if s.Exists("empty") {
		t.Error("folder still exists")
	}
	if err := s.RemoveFolder(""); err == nil {
		t.Error("removing the vault root must fail")
	}
	_ = s.Write("full/a.md", []byte("a"))
	if err := s.RemoveFolder("full"); err == nil {
		t.Error("removing a non-empty folder must fail")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("atomic.md", []byte("content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".ehwaz-tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	if got, _ := s.Read("atomic.md"); string(got) != "content" {
		t.Errorf("content = %q", got)
	}
}

func TestCustomTrashDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir, ".deleted")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	_ = s.Write("a.md", []byte("a"))
	if err := s.Trash("a.md"); err != nil {
		t.Fatalf("Trash: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".deleted", "a.md")); err != nil {
		t.Errorf("trashed file missing: %v", err)
	}
}
