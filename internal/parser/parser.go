// Package parser extracts frontmatter, wikilinks, and tags from Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	// The name class must stay in lockstep with the tag grammar the
	// mutation handlers enforce: digit- and underscore-leading names
	// are valid tags and must round-trip through parsing.
	tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_][A-Za-z0-9_/-]*)`)
)

// Result holds the output of parsing a Markdown file.
//
// InlineTags and FrontmatterTags are reported separately because the tag
// mutation handlers edit each surface independently; Tags is the
// deduplicated union in first-seen order (frontmatter first).
type Result struct {
	Frontmatter     map[string]interface{}
	Body            string
	Links           []string
	Tags            []string
	InlineTags      []string
	FrontmatterTags []string
	Title           string
}

// Parse extracts frontmatter, body, wikilinks, and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body := SplitFrontmatter(data)

	fmTags := frontmatterTags(fm)
	inline := inlineTags(body)

	seen := make(map[string]struct{}, len(fmTags)+len(inline))
	var tags []string
	for _, t := range fmTags {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	for _, t := range inline {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}

	return &Result{
		Frontmatter:     fm,
		Body:            body,
		Links:           extractLinks(body),
		Tags:            tags,
		InlineTags:      inline,
		FrontmatterTags: fmTags,
		Title:           deriveTitle(fm, body),
	}, nil
}

// SplitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the Markdown body. If no frontmatter is found, or the
// YAML is invalid, the entire content is body and the map is nil.
func SplitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter; treat everything as body.
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// FrontmatterBounds locates the raw frontmatter block inside data.
// It returns the byte offsets of the YAML payload (excluding both ---
// lines) and ok=false when data carries no well-formed frontmatter.
// The tag handlers use this to splice an edited block back into the
// original content without disturbing the body.
func FrontmatterBounds(data []byte) (start, end int, ok bool) {
	const delim = "---"
	lead := len(data) - len(bytes.TrimLeft(data, "\n\r"))
	trimmed := data[lead:]
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return 0, 0, false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return 0, 0, false
	}
	start = lead + len(delim)
	end = start + idx
	return start, end, true
}

// extractLinks returns deduplicated wikilink targets, normalising aliases.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		raw := m[1]
		// Handle aliases: [[Target|Alias]] → Target.
		target := raw
		if i := strings.Index(raw, "|"); i >= 0 {
			target = raw[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// frontmatterTags collects string entries from the frontmatter "tags" list.
func frontmatterTags(fm map[string]interface{}) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm["tags"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(list))
	var out []string
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(strings.TrimPrefix(s, "#"))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// inlineTags collects #tags from the body, deduplicated in order.
func inlineTags(body string) []string {
	matches := tagRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		t := m[1]
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
