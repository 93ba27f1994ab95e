package mutate_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/mutate"
	"github.com/starford/ehwaz/internal/parser"
)

func TestValidateTagName(t *testing.T) {
	valid := []string{"project", "project/alpha", "a", "tag-1", "under_score", "A1/b2/c3"}
	for _, tag := range valid {
		if err := mutate.ValidateTagName(tag); err != nil {
			t.Errorf("ValidateTagName(%q) = %v, want nil", tag, err)
		}
	}
	invalid := []string{"", "#tag", "has space", "trailing/", "/leading", "double//slash", "-lead", strings.Repeat("x", 101)}
	for _, tag := range invalid {
		if err := mutate.ValidateTagName(tag); err == nil {
			t.Errorf("ValidateTagName(%q) = nil, want error", tag)
		}
	}
}

// parsedTags re-reads the stored document and returns its tag surfaces.
func parsedTags(t *testing.T, content []byte) (fm, inline []string) {
	t.Helper()
	res, err := parser.Parse(content)
	if err != nil {
		t.Fatal(err)
	}
	return res.FrontmatterTags, res.InlineTags
}

func TestApplyTagBatchAdd(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "# A\n\nBody text.\n")

	result, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{"project", "project/alpha"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Modified || result.Succeeded != 2 {
		t.Fatalf("result = %+v", result)
	}
	if store.Reads["notes/a.md"] != 1 {
		t.Errorf("reads = %d, want exactly 1", store.Reads["notes/a.md"])
	}
	if store.Writes["notes/a.md"] != 1 {
		t.Errorf("writes = %d, want exactly 1", store.Writes["notes/a.md"])
	}
	fm, _ := parsedTags(t, store.Files["notes/a.md"])
	for _, want := range []string{"project", "project/alpha"} {
		if !contains(fm, want) {
			t.Errorf("frontmatter tags = %v, missing %q", fm, want)
		}
	}
	if !strings.Contains(string(store.Files["notes/a.md"]), "Body text.") {
		t.Error("body lost during frontmatter splice")
	}
}

func TestApplyTagBatchAddSkipsPresent(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "---\ntags:\n  - project\n---\n\n# A\n")

	result, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{"project", "fresh"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 || result.Skipped != 1 {
		t.Fatalf("result = %+v", result)
	}
	if store.Reads["notes/a.md"] != 1 || store.Writes["notes/a.md"] != 1 {
		t.Errorf("reads/writes = %d/%d, want 1/1", store.Reads["notes/a.md"], store.Writes["notes/a.md"])
	}
}

func TestApplyTagBatchAllSkippedWritesNothing(t *testing.T) {
	eng, store, _ := newEngine(t)
	original := "---\ntags:\n  - project\n---\n\n# A\n#inline-tag\n"
	store.AddDoc("notes/a.md", original)

	result, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{"project", "inline-tag"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Modified || result.Skipped != 2 {
		t.Fatalf("result = %+v", result)
	}
	if store.Writes["notes/a.md"] != 0 {
		t.Errorf("writes = %d, want 0", store.Writes["notes/a.md"])
	}
	if string(store.Files["notes/a.md"]) != original {
		t.Error("content changed on a fully skipped batch")
	}
}

func TestApplyTagBatchRemoveConsumesSeparator(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "Work on #project today.\n#standalone\nMore text.\n")

	if _, err := eng.ApplyTagBatch("notes/a.md", mutate.TagRemove, []string{"project", "standalone"}, mutate.LocationInline); err != nil {
		t.Fatal(err)
	}
	got := string(store.Files["notes/a.md"])
	if strings.Contains(got, "  ") {
		t.Errorf("double space left behind: %q", got)
	}
	if !strings.Contains(got, "Work on today.") {
		t.Errorf("mid-sentence removal = %q, want %q", got, "Work on today.")
	}
	if strings.Contains(got, "\n\n") {
		t.Errorf("empty line left behind: %q", got)
	}
}

func TestApplyTagBatchDigitLeadingTagRoundTrip(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "# A\n")

	if _, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{"2024"}, mutate.LocationInline); err != nil {
		t.Fatal(err)
	}

	// A repeated add must see the tag as already present.
	result, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{"2024"}, mutate.LocationInline)
	if err != nil {
		t.Fatal(err)
	}
	if result.Modified || result.Skipped != 1 {
		t.Fatalf("repeated add = %+v, want skipped", result)
	}
	if store.Writes["notes/a.md"] != 1 {
		t.Errorf("writes = %d, want 1", store.Writes["notes/a.md"])
	}
	if n := strings.Count(string(store.Files["notes/a.md"]), "#2024"); n != 1 {
		t.Fatalf("token count = %d, want 1: %q", n, store.Files["notes/a.md"])
	}

	result, err = eng.ApplyTagBatch("notes/a.md", mutate.TagRemove, []string{"2024"}, mutate.LocationInline)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Modified || result.Succeeded != 1 {
		t.Fatalf("remove = %+v, want succeeded", result)
	}
	if strings.Contains(string(store.Files["notes/a.md"]), "#2024") {
		t.Errorf("token survived the remove: %q", store.Files["notes/a.md"])
	}
}

func TestApplyTagBatchMixedValidity(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "# A\n")

	result, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{"good", "#bad", "also good"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 || result.Failed != 2 {
		t.Fatalf("result = %+v", result)
	}
	fm, _ := parsedTags(t, store.Files["notes/a.md"])
	if !contains(fm, "good") {
		t.Errorf("frontmatter tags = %v", fm)
	}
}

func TestApplyTagBatchAllInvalid(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "# A\n")

	_, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{"#bad", "also bad"}, "")
	if !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Fatalf("err = %v, want ErrInvalidTarget", err)
	}
	if store.Reads["notes/a.md"] != 0 {
		t.Error("document read despite fully invalid batch")
	}
}

func TestApplyTagBatchEmpty(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "# A\n")

	if _, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{" ", ""}, ""); !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Fatalf("err = %v, want ErrInvalidTarget", err)
	}
}

func TestApplyTagBatchMissingDocument(t *testing.T) {
	eng, _, _ := newEngine(t)
	if _, err := eng.ApplyTagBatch("gone.md", mutate.TagAdd, []string{"x"}, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestApplyTagBatchAddInline(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "# A\n")

	if _, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{"status/done"}, mutate.LocationInline); err != nil {
		t.Fatal(err)
	}
	content := string(store.Files["notes/a.md"])
	if !strings.Contains(content, "#status/done") {
		t.Errorf("content = %q, missing inline token", content)
	}
	if strings.Contains(content, "---") {
		t.Error("inline add should not create frontmatter")
	}
}

func TestApplyTagBatchRemoveBothSurfaces(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "---\ntags:\n  - project\n  - keep\n---\n\n# A\n\nWork on #project today.\n")

	result, err := eng.ApplyTagBatch("notes/a.md", mutate.TagRemove, []string{"project"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Modified {
		t.Fatalf("result = %+v", result)
	}
	fm, inline := parsedTags(t, store.Files["notes/a.md"])
	if contains(fm, "project") || contains(inline, "project") {
		t.Errorf("tag survives: fm=%v inline=%v", fm, inline)
	}
	if !contains(fm, "keep") {
		t.Errorf("unrelated tag lost: fm=%v", fm)
	}
}

func TestApplyTagBatchRemoveFrontmatterOnly(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "---\ntags:\n  - project\n---\n\nStill #project inline.\n")

	if _, err := eng.ApplyTagBatch("notes/a.md", mutate.TagRemove, []string{"project"}, mutate.LocationFrontmatter); err != nil {
		t.Fatal(err)
	}
	fm, inline := parsedTags(t, store.Files["notes/a.md"])
	if contains(fm, "project") {
		t.Errorf("frontmatter tag survives: %v", fm)
	}
	if !contains(inline, "project") {
		t.Errorf("inline tag should survive a frontmatter-scoped remove: %v", inline)
	}
}

func TestApplyTagBatchRemovePreservesChildTags(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "#project and #project/alpha\n")

	if _, err := eng.ApplyTagBatch("notes/a.md", mutate.TagRemove, []string{"project"}, mutate.LocationInline); err != nil {
		t.Fatal(err)
	}
	_, inline := parsedTags(t, store.Files["notes/a.md"])
	if contains(inline, "project") {
		t.Errorf("exact tag survives: %v", inline)
	}
	if !contains(inline, "project/alpha") {
		t.Errorf("child tag is distinct and must survive a remove: %v", inline)
	}
}

func TestApplyTagBatchInvalidLocation(t *testing.T) {
	eng, store, _ := newEngine(t)
	store.AddDoc("notes/a.md", "# A\n")

	if _, err := eng.ApplyTagBatch("notes/a.md", mutate.TagAdd, []string{"x"}, "sideways"); !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Fatalf("err = %v, want ErrInvalidTarget", err)
	}
}

func TestRenameTag(t *testing.T) {
	eng, store, idx := newEngine(t)
	store.AddDoc("a.md", "---\ntags:\n  - project\n---\n\nWork on #project.\n")
	store.AddDoc("b.md", "#project/alpha details\n")
	store.AddDoc("c.md", "Unrelated #other note.\n")
	store.AddDoc("d.md", "No tags at all.\n")
	idx.TagsByPath["a.md"] = []string{"project"}
	idx.TagsByPath["b.md"] = []string{"project/alpha"}
	idx.TagsByPath["c.md"] = []string{"other"}
	idx.TagsByPath["d.md"] = nil

	result, err := eng.RenameTag("project", "initiative")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("failures = %v", result.Failures)
	}
	if len(result.Modified) != 2 {
		t.Fatalf("modified = %v, want a.md and b.md", result.Modified)
	}

	// The index pre-filter bounds reads to matching documents only.
	if idx.PathsWithTagCalls != 1 {
		t.Errorf("PathsWithTag calls = %d, want 1", idx.PathsWithTagCalls)
	}
	for _, untouched := range []string{"c.md", "d.md"} {
		if store.Reads[untouched] != 0 {
			t.Errorf("%s read despite not carrying the tag", untouched)
		}
	}

	fm, inline := parsedTags(t, store.Files["a.md"])
	if !contains(fm, "initiative") || contains(fm, "project") {
		t.Errorf("a.md frontmatter = %v", fm)
	}
	if !contains(inline, "initiative") {
		t.Errorf("a.md inline = %v", inline)
	}
	_, inline = parsedTags(t, store.Files["b.md"])
	if !contains(inline, "initiative/alpha") {
		t.Errorf("b.md inline = %v, want hierarchical child renamed", inline)
	}
}

func TestRenameTagAccumulatesFailures(t *testing.T) {
	eng, store, idx := newEngine(t)
	store.AddDoc("a.md", "#project\n")
	store.AddDoc("b.md", "#project\n")
	store.AddDoc("c.md", "#project\n")
	idx.TagsByPath["a.md"] = []string{"project"}
	idx.TagsByPath["b.md"] = []string{"project"}
	idx.TagsByPath["c.md"] = []string{"project"}
	store.FailWrite["b.md"] = errors.New("read-only file system")

	result, err := eng.RenameTag("project", "initiative")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Modified) != 2 {
		t.Errorf("modified = %v, want the two writable documents", result.Modified)
	}
	if len(result.Failures) != 1 || result.Failures[0].Path != "b.md" {
		t.Errorf("failures = %v", result.Failures)
	}
}

func TestRenameTagStaleIndexEntry(t *testing.T) {
	eng, store, idx := newEngine(t)
	store.AddDoc("a.md", "No such tag here.\n")
	idx.TagsByPath["a.md"] = []string{"project"}

	result, err := eng.RenameTag("project", "initiative")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Modified) != 0 || len(result.Failures) != 0 {
		t.Errorf("result = %+v, want no-op for stale index entry", result)
	}
	if store.Writes["a.md"] != 0 {
		t.Error("stale candidate written")
	}
}

func TestRenameTagValidation(t *testing.T) {
	eng, _, _ := newEngine(t)
	cases := []struct{ old, new string }{
		{"", "new"},
		{"old", "#bad"},
		{"same", "same"},
	}
	for _, c := range cases {
		if _, err := eng.RenameTag(c.old, c.new); !errors.Is(err, apperr.ErrInvalidTarget) {
			t.Errorf("RenameTag(%q, %q) err = %v, want ErrInvalidTarget", c.old, c.new, err)
		}
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
