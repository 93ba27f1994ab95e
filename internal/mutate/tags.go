package mutate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/parser"
)

// Tag grammar: slash-separated segments of letters, digits, underscore,
// and hyphen. The leading # is never part of the name.
var tagNameRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*(?:/[A-Za-z0-9_][A-Za-z0-9_-]*)*$`)

// inlineTagTokenRe matches one inline #tag token; the capture is the name.
var inlineTagTokenRe = regexp.MustCompile(`#([A-Za-z0-9_][A-Za-z0-9_/-]*)`)

// ValidateTagName checks a single tag name against the grammar.
func ValidateTagName(tag string) error {
	return validation.Validate(tag,
		validation.Required.Error("tag name is empty"),
		validation.Length(1, 100).Error("tag name must be 1-100 characters"),
		validation.Match(tagNameRe).Error("tag may contain letters, digits, underscore, hyphen, and slash-separated segments, without a leading #"),
	)
}

// Per-tag outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// TagOutcome reports what happened to one tag of a batch.
type TagOutcome struct {
	Tag     string `json:"tag"`
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// TagBatchResult reports a completed single-document tag batch.
type TagBatchResult struct {
	Path      string       `json:"path"`
	Op        TagOp        `json:"operation"`
	Modified  bool         `json:"modified"`
	Outcomes  []TagOutcome `json:"outcomes"`
	Succeeded int          `json:"succeeded"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
}

// TagRenameFailure is one document the vault-wide rename could not rewrite.
type TagRenameFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// TagRenameResult accumulates a vault-wide rename. Every candidate
// document is visited exactly once; the operation never aborts early.
type TagRenameResult struct {
	OldTag   string             `json:"old_tag"`
	NewTag   string             `json:"new_tag"`
	Modified []string           `json:"modified"`
	Failures []TagRenameFailure `json:"failures,omitempty"`
}

// ApplyTagBatch applies one add-or-remove edit for each tag in the batch
// to a single document.
//
// The defining correctness property: the document is read from the store
// exactly once at the start and, if any tag actually changes the content,
// written exactly once at the end. Every per-tag edit operates on the
// in-memory content; an N-tag batch never costs N reads or N writes.
//
// Tag names are validated independently: an invalid name yields a failed
// outcome for that tag, and the request as a whole fails only when every
// tag is invalid. Already-present adds and already-absent removes are
// skipped outcomes, not errors.
func (e *Engine) ApplyTagBatch(docPath string, op TagOp, tags []string, location TagLocation) (*TagBatchResult, error) {
	if location == "" {
		location = LocationBoth
	}
	switch location {
	case LocationFrontmatter, LocationInline, LocationBoth:
	default:
		return nil, fmt.Errorf("%w: invalid tag location %q", apperr.ErrInvalidTarget, location)
	}

	cleaned := dedupTags(tags)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: no tags supplied", apperr.ErrInvalidTarget)
	}

	result := &TagBatchResult{Path: docPath, Op: op}
	var valid []string
	for _, tag := range cleaned {
		if err := ValidateTagName(tag); err != nil {
			result.Outcomes = append(result.Outcomes, TagOutcome{Tag: tag, Result: OutcomeFailed, Message: err.Error()})
			result.Failed++
			continue
		}
		valid = append(valid, tag)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: every tag name is invalid", apperr.ErrInvalidTarget)
	}

	if err := e.requireDocument(docPath); err != nil {
		return nil, err
	}

	// The single store read.
	data, err := e.store.Read(docPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", docPath, err)
	}
	original := string(data)
	content := original

	for _, tag := range valid {
		var changed bool
		var editErr error
		switch op {
		case TagAdd:
			content, changed, editErr = addTag(content, tag, location)
		case TagRemove:
			content, changed, editErr = removeTag(content, tag, location)
		default:
			return nil, fmt.Errorf("%w: unknown tag operation %q", apperr.ErrInvalidTarget, op)
		}
		switch {
		case editErr != nil:
			result.Outcomes = append(result.Outcomes, TagOutcome{Tag: tag, Result: OutcomeFailed, Message: editErr.Error()})
			result.Failed++
		case changed:
			result.Outcomes = append(result.Outcomes, TagOutcome{Tag: tag, Result: OutcomeSucceeded})
			result.Succeeded++
		default:
			result.Outcomes = append(result.Outcomes, TagOutcome{Tag: tag, Result: OutcomeSkipped})
			result.Skipped++
		}
	}

	// The single store write, skipped when no tag changed anything.
	if content != original {
		if err := e.store.Write(docPath, []byte(content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", docPath, err)
		}
		result.Modified = true
		e.reindexDoc(docPath, []byte(content))
		e.logger.Info("tags updated",
			slog.String("path", docPath),
			slog.String("op", string(op)),
			slog.Int("succeeded", result.Succeeded),
			slog.Int("skipped", result.Skipped))
	}
	return result, nil
}

// RenameTag renames oldTag to newTag across the whole vault, including
// hierarchical children (oldTag/x becomes newTag/x).
//
// The metadata index pre-filter is mandatory: only documents whose cached
// tag set contains the tag (or a child) get a content read, so renaming a
// tag that occurs in M of T documents reads M documents, never T.
func (e *Engine) RenameTag(oldTag, newTag string) (*TagRenameResult, error) {
	oldTag = strings.TrimSpace(oldTag)
	newTag = strings.TrimSpace(newTag)
	if oldTag == "" {
		return nil, fmt.Errorf("%w: old tag name is empty", apperr.ErrInvalidTarget)
	}
	if err := ValidateTagName(newTag); err != nil {
		return nil, fmt.Errorf("%w: new tag %q: %s", apperr.ErrInvalidTarget, newTag, err.Error())
	}
	if oldTag == newTag {
		return nil, fmt.Errorf("%w: old and new tag are the same", apperr.ErrInvalidTarget)
	}

	candidates, err := e.idx.PathsWithTag(oldTag)
	if err != nil {
		return nil, fmt.Errorf("tag lookup %s: %w", oldTag, err)
	}

	result := &TagRenameResult{OldTag: oldTag, NewTag: newTag}
	for _, docPath := range candidates {
		data, readErr := e.store.Read(docPath)
		if readErr != nil {
			result.Failures = append(result.Failures, TagRenameFailure{Path: docPath, Error: readErr.Error()})
			continue
		}
		content := string(data)
		updated, editErr := renameTagInContent(content, oldTag, newTag)
		if editErr != nil {
			result.Failures = append(result.Failures, TagRenameFailure{Path: docPath, Error: editErr.Error()})
			continue
		}
		if updated == content {
			// Index said the tag was here but the content disagrees
			// (stale cache); nothing to write.
			continue
		}
		if writeErr := e.store.Write(docPath, []byte(updated)); writeErr != nil {
			result.Failures = append(result.Failures, TagRenameFailure{Path: docPath, Error: writeErr.Error()})
			continue
		}
		result.Modified = append(result.Modified, docPath)
		e.reindexDoc(docPath, []byte(updated))
	}

	e.logger.Info("tag renamed",
		slog.String("old", oldTag),
		slog.String("new", newTag),
		slog.Int("modified", len(result.Modified)),
		slog.Int("failed", len(result.Failures)))
	return result, nil
}

// dedupTags trims, discards blanks, and deduplicates preserving order.
func dedupTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// addTag adds one tag to the in-memory content. With LocationBoth the
// frontmatter is the canonical home for new tags; the add is skipped when
// the tag is already present on any surface the location covers.
func addTag(content, tag string, location TagLocation) (string, bool, error) {
	res, err := parser.Parse([]byte(content))
	if err != nil {
		return content, false, err
	}
	inFM := containsTag(res.FrontmatterTags, tag)
	inline := containsTag(res.InlineTags, tag)

	switch location {
	case LocationInline:
		if inline {
			return content, false, nil
		}
		return appendInlineTag(content, tag), true, nil
	case LocationFrontmatter:
		if inFM {
			return content, false, nil
		}
	case LocationBoth:
		if inFM || inline {
			return content, false, nil
		}
	}

	updated, err := addFrontmatterTag(content, res.Frontmatter, tag)
	if err != nil {
		return content, false, err
	}
	return updated, true, nil
}

// removeTag removes one tag from the in-memory content on every surface
// the location covers.
func removeTag(content, tag string, location TagLocation) (string, bool, error) {
	res, err := parser.Parse([]byte(content))
	if err != nil {
		return content, false, err
	}
	inFM := containsTag(res.FrontmatterTags, tag)
	inline := containsTag(res.InlineTags, tag)

	changed := false
	if inFM && location != LocationInline {
		updated, err := removeFrontmatterTag(content, res.Frontmatter, tag)
		if err != nil {
			return content, false, err
		}
		content = updated
		changed = true
	}
	if inline && location != LocationFrontmatter {
		content = removeInlineTag(content, tag)
		changed = true
	}
	return content, changed, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// appendInlineTag appends the tag token on its own line at the end of the
// document.
func appendInlineTag(content, tag string) string {
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "#" + tag + "\n"
}

// inlineTagLeadRe matches one inline #tag token together with at most one
// preceding whitespace character, so removals take the separator with the
// token instead of leaving a double space or an empty line behind.
var inlineTagLeadRe = regexp.MustCompile(`(?:^|[ \t\n])?#([A-Za-z0-9_][A-Za-z0-9_/-]*)`)

// removeInlineTag strips every exact occurrence of the inline token.
// Hierarchical children are distinct tags and are left alone.
func removeInlineTag(content, tag string) string {
	return inlineTagLeadRe.ReplaceAllStringFunc(content, func(m string) string {
		token := m
		if c := m[0]; c == ' ' || c == '\t' || c == '\n' {
			token = m[1:]
		}
		if token == "#"+tag {
			return ""
		}
		return m
	})
}

// addFrontmatterTag inserts the tag into the frontmatter tags list,
// creating the frontmatter block or the list as needed.
func addFrontmatterTag(content string, fm map[string]interface{}, tag string) (string, error) {
	if fm == nil {
		fm = map[string]interface{}{}
	}
	var tags []interface{}
	if raw, ok := fm["tags"].([]interface{}); ok {
		tags = raw
	}
	fm["tags"] = append(tags, tag)
	return spliceFrontmatter(content, fm)
}

// removeFrontmatterTag drops the tag from the frontmatter tags list; the
// list itself is dropped when it empties.
func removeFrontmatterTag(content string, fm map[string]interface{}, tag string) (string, error) {
	raw, ok := fm["tags"].([]interface{})
	if !ok {
		return content, nil
	}
	var kept []interface{}
	for _, item := range raw {
		if s, isStr := item.(string); isStr && strings.TrimPrefix(strings.TrimSpace(s), "#") == tag {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		delete(fm, "tags")
	} else {
		fm["tags"] = kept
	}
	return spliceFrontmatter(content, fm)
}

// renameTagInContent rewrites oldTag and its hierarchical children on
// both surfaces.
func renameTagInContent(content, oldTag, newTag string) (string, error) {
	// Inline tokens.
	content = inlineTagTokenRe.ReplaceAllStringFunc(content, func(token string) string {
		name := token[1:]
		switch {
		case name == oldTag:
			return "#" + newTag
		case strings.HasPrefix(name, oldTag+"/"):
			return "#" + newTag + name[len(oldTag):]
		default:
			return token
		}
	})

	// Frontmatter list entries.
	fm, _ := parser.SplitFrontmatter([]byte(content))
	raw, ok := fm["tags"].([]interface{})
	if !ok {
		return content, nil
	}
	changed := false
	for i, item := range raw {
		s, isStr := item.(string)
		if !isStr {
			continue
		}
		name := strings.TrimPrefix(strings.TrimSpace(s), "#")
		switch {
		case name == oldTag:
			raw[i] = newTag
			changed = true
		case strings.HasPrefix(name, oldTag+"/"):
			raw[i] = newTag + name[len(oldTag):]
			changed = true
		}
	}
	if !changed {
		return content, nil
	}
	fm["tags"] = raw
	return spliceFrontmatter(content, fm)
}

// spliceFrontmatter re-serializes the frontmatter map back into content,
// replacing the existing block or creating one. yaml.Marshal orders map
// keys alphabetically; the body is never touched.
func spliceFrontmatter(content string, fm map[string]interface{}) (string, error) {
	out, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	start, end, ok := parser.FrontmatterBounds([]byte(content))
	if !ok {
		return "---\n" + string(out) + "---\n\n" + content, nil
	}
	if len(fm) == 0 {
		// Last key removed: drop the whole block.
		rest := content[end+1:]
		if i := strings.Index(rest, "\n"); i >= 0 {
			return strings.TrimLeft(rest[i+1:], "\n\r"), nil
		}
		return "", nil
	}
	return content[:start] + "\n" + string(out) + content[end+1:], nil
}
