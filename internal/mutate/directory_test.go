package mutate_test

import (
	"errors"
	"testing"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/testutil"
)

func TestMoveDirectory(t *testing.T) {
	eng, store, idx := newEngine(t)
	store.AddDoc("projects/alpha/a.md", "a\n")
	store.AddDoc("projects/alpha/b.md", "b\n")
	store.AddDoc("projects/alpha/sub/c.md", "c\n")

	result, err := eng.MoveDirectory("projects/alpha/", "archive/alpha")
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesMoved != 3 {
		t.Errorf("files moved = %d, want 3", result.FilesMoved)
	}
	for _, p := range []string{"archive/alpha/a.md", "archive/alpha/b.md", "archive/alpha/sub/c.md"} {
		if _, ok := store.Files[p]; !ok {
			t.Errorf("missing %s after move", p)
		}
	}
	if store.Dirs["projects/alpha"] {
		t.Error("source directory left behind")
	}
	if len(idx.Renamed) != 3 {
		t.Errorf("index renames = %d, want 3", len(idx.Renamed))
	}
}

func TestMoveDirectoryEmpty(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.Dirs["empty"] = true

	result, err := eng.MoveDirectory("empty", "renamed")
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesMoved != 0 {
		t.Errorf("files moved = %d, want 0", result.FilesMoved)
	}
	if !store.Dirs["renamed"] {
		t.Error("destination not created")
	}
}

func TestMoveDirectoryIntoItself(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("projects/alpha/a.md", "a\n")

	for _, dest := range []string{"projects/alpha", "projects/alpha/nested"} {
		if _, err := eng.MoveDirectory("projects/alpha", dest); !errors.Is(err, apperr.ErrInvalidTarget) {
			t.Errorf("dest %s: err = %v, want ErrInvalidTarget", dest, err)
		}
	}
}

func TestMoveDirectoryDestinationExists(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("projects/alpha/a.md", "a\n")
	store.Dirs["archive"] = true

	_, err := eng.MoveDirectory("projects/alpha", "archive")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestMoveDirectoryOnDocument(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("a.md", "a\n")

	_, err := eng.MoveDirectory("a.md", "b")
	if !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Fatalf("err = %v, want ErrInvalidTarget", err)
	}
}

func TestMoveDirectoryMissing(t *testing.T) {
	eng, _, _ := newEngine(t)
	_, err := eng.MoveDirectory("gone", "dest")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// A failure halfway through the sequence must move every already-moved
// document back, in reverse commit order, and surface the original error.
func TestMoveDirectoryCompensation(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("src/a.md", "a\n")
	store.AddDoc("src/b.md", "b\n")
	store.AddDoc("src/c.md", "c\n")
	store.AddDoc("src/d.md", "d\n")
	store.FailRenameOrMove["src/c.md"] = errors.New("disk full")

	_, err := eng.MoveDirectory("src", "dst")
	if err == nil || !errors.Is(err, store.FailRenameOrMove["src/c.md"]) {
		t.Fatalf("err = %v, want wrapped disk full", err)
	}

	// Docs enumerate sorted: a, b fail-free, c fails, d never attempted.
	// Two forward moves, then two compensations in reverse order.
	want := []testutil.MoveCall{
		{From: "src/a.md", To: "dst/a.md"},
		{From: "src/b.md", To: "dst/b.md"},
		{From: "dst/b.md", To: "src/b.md"},
		{From: "dst/a.md", To: "src/a.md"},
	}
	if len(store.Moves) != len(want) {
		t.Fatalf("moves = %v", store.Moves)
	}
	for i, call := range want {
		if store.Moves[i] != call {
			t.Errorf("move[%d] = %v, want %v", i, store.Moves[i], call)
		}
	}
	for _, p := range []string{"src/a.md", "src/b.md", "src/c.md", "src/d.md"} {
		if _, ok := store.Files[p]; !ok {
			t.Errorf("%s not restored", p)
		}
	}
}

// Compensation itself failing must not mask the original error, and the
// remaining committed moves must still be attempted.
func TestMoveDirectoryCompensationFailure(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("src/a.md", "a\n")
	store.AddDoc("src/b.md", "b\n")
	store.AddDoc("src/c.md", "c\n")
	origErr := errors.New("disk full")
	store.FailRenameOrMove["src/c.md"] = origErr
	store.FailRenameOrMove["dst/b.md"] = errors.New("also stuck")

	_, err := eng.MoveDirectory("src", "dst")
	if !errors.Is(err, origErr) {
		t.Fatalf("err = %v, want original disk full", err)
	}
	if _, ok := store.Files["src/a.md"]; !ok {
		t.Error("a.md not restored despite b.md compensation failure")
	}
	if _, ok := store.Files["dst/b.md"]; !ok {
		t.Error("b.md should remain stranded at destination")
	}
}

func TestCreateDirectory(t *testing.T) {
	eng, store, _ := newEngine(t)

	if err := eng.CreateDirectory("projects/beta/"); err != nil {
		t.Fatal(err)
	}
	if !store.Dirs["projects/beta"] || !store.Dirs["projects"] {
		t.Error("directory or ancestor not created")
	}

	if err := eng.CreateDirectory("projects/beta"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("recreate err = %v, want ErrConflict", err)
	}
}

func TestDeleteDirectoryTrash(t *testing.T) {
	eng, store, idx := newEngine(t)
	store.AddDoc("old/a.md", "a\n")
	store.AddDoc("old/sub/b.md", "b\n")
	idx.TagsByPath["old/a.md"] = []string{"x"}

	result, err := eng.DeleteDirectory("old/", false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Removed != 2 || result.Permanent {
		t.Errorf("result = %+v", result)
	}
	for _, p := range []string{".trash/old/a.md", ".trash/old/sub/b.md"} {
		if _, ok := store.Files[p]; !ok {
			t.Errorf("missing %s", p)
		}
	}
	if len(store.Moves) != 0 {
		t.Errorf("trash must not rewrite links, got moves %v", store.Moves)
	}
	if len(idx.Dropped) != 2 {
		t.Errorf("index drops = %v", idx.Dropped)
	}
}

func TestDeleteDirectoryPermanent(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("old/a.md", "a\n")

	result, err := eng.DeleteDirectory("old", true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Removed != 1 || !result.Permanent {
		t.Errorf("result = %+v", result)
	}
	if len(store.Trashed) != 0 {
		t.Errorf("permanent delete went through trash: %v", store.Trashed)
	}
	if len(store.Deleted) != 1 {
		t.Errorf("deleted = %v", store.Deleted)
	}
}

func TestDeleteDirectoryPartialFailure(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("old/a.md", "a\n")
	store.AddDoc("old/b.md", "b\n")
	store.AddDoc("old/c.md", "c\n")
	store.FailDelete["old/b.md"] = errors.New("permission denied")

	result, err := eng.DeleteDirectory("old", true)
	if !errors.Is(err, apperr.ErrPartialFailure) {
		t.Fatalf("err = %v, want ErrPartialFailure", err)
	}
	if result == nil || result.Removed != 2 {
		t.Fatalf("result = %+v, want 2 removed", result)
	}
	if _, ok := store.Files["old/b.md"]; !ok {
		t.Error("failed document should survive")
	}
}
