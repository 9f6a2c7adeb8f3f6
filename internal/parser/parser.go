// Package parser extracts frontmatter, wikilinks, and tags from campaign
// content files.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Result holds the output of parsing a content file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Links       []string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, wikilinks, and tags from raw bytes.
//
// A file without a frontmatter block parses to a nil Frontmatter with the
// whole content as body. A file that opens a frontmatter fence but never
// closes it, or fences an unparseable block, is an error: silently treating
// broken metadata as prose would hide exactly the mistakes the validator
// exists to catch.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	links := extractLinks(body)
	tags := extractTags(body, fm)
	title := deriveTitle(fm, body)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       links,
		Tags:        tags,
		Title:       title,
	}, nil
}

// splitFrontmatter separates the frontmatter block from the Markdown body.
// YAML blocks sit between --- fences, TOML blocks between +++ fences.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")

	var delim, format string
	var decode func([]byte, interface{}) error
	switch {
	case fenceLine(trimmed, "---"):
		delim, format, decode = "---", "yaml", yaml.Unmarshal
	case fenceLine(trimmed, "+++"):
		delim, format, decode = "+++", "toml", toml.Unmarshal
	default:
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := closingFence(rest, delim)
	if idx < 0 {
		return nil, "", fmt.Errorf("frontmatter opened with %s but never closed", delim)
	}

	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(after), "\n\r")

	var fm map[string]interface{}
	if err := decode(block, &fm); err != nil {
		return nil, "", fmt.Errorf("invalid %s frontmatter: %w", format, err)
	}
	return fm, body, nil
}

// fenceLine reports whether data starts with delim on a line of its own.
func fenceLine(data []byte, delim string) bool {
	if !bytes.HasPrefix(data, []byte(delim)) {
		return false
	}
	rest := data[len(delim):]
	return len(rest) == 0 || rest[0] == '\n' || rest[0] == '\r'
}

// closingFence returns the offset of the newline preceding the closing fence
// line, or -1 when the fence is never closed. Lines that merely start with
// the delimiter (e.g. "---foo") do not close the block.
func closingFence(data []byte, delim string) int {
	start := 0
	for {
		idx := bytes.Index(data[start:], []byte("\n"+delim))
		if idx < 0 {
			return -1
		}
		abs := start + idx
		tail := data[abs+1+len(delim):]
		if len(tail) == 0 || tail[0] == '\n' || tail[0] == '\r' {
			return abs
		}
		start = abs + 1
	}
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

// extractTags collects #tags from the body and the frontmatter "tags" list.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if fm != nil {
		if raw, ok := fm["tags"]; ok {
			if list, ok := raw.([]interface{}); ok {
				for _, item := range list {
					if s, ok := item.(string); ok {
						add(s)
					}
				}
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
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
