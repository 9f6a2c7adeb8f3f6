// Package scaffold generates skeleton entry files with pre-filled
// frontmatter and the standard body sections.
package scaffold

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lorehold/biblioplex/internal/schema"
)

// Options describe the entry to scaffold. Type and Title are required;
// Slug defaults to a slugified Title, everything else to draft defaults.
type Options struct {
	Type    string
	Title   string
	Author  string
	College string
	Era     string
	Slug    string
	Level   string
	Players string
	Tags    []string

	// Now anchors lastUpdated and the filename stamp; zero means time.Now().
	Now time.Time
}

// File is a generated entry ready to be written to the vault.
type File struct {
	Name    string
	Content string
}

// frontmatter mirrors the canonical field order; yaml.v3 emits struct
// fields in declaration order.
type frontmatter struct {
	Title           string   `yaml:"title"`
	Author          string   `yaml:"author"`
	Version         string   `yaml:"version"`
	Type            string   `yaml:"type"`
	College         string   `yaml:"college,omitempty"`
	Era             string   `yaml:"era"`
	LevelRange      string   `yaml:"levelRange"`
	Players         string   `yaml:"players"`
	Canon           bool     `yaml:"canon"`
	Tags            []string `yaml:"tags"`
	ContentWarnings []string `yaml:"contentWarnings"`
	Slug            string   `yaml:"slug"`
	Dependencies    []string `yaml:"dependencies"`
	PlaytestStatus  string   `yaml:"playtestStatus"`
	LastUpdated     string   `yaml:"lastUpdated"`
}

const initialVersion = "0.1.0"

// Generate builds the filename and content for a new draft entry.
func Generate(opts Options) (*File, error) {
	if opts.Type == "" {
		return nil, fmt.Errorf("scaffold: type is required")
	}
	if !slices.Contains(schema.Types, opts.Type) {
		return nil, fmt.Errorf("scaffold: unknown type %q (one of %s)", opts.Type, strings.Join(schema.Types, ", "))
	}
	if opts.College != "" && !slices.Contains(schema.Colleges, opts.College) {
		return nil, fmt.Errorf("scaffold: unknown college %q (one of %s)", opts.College, strings.Join(schema.Colleges, ", "))
	}
	if opts.Title == "" {
		return nil, fmt.Errorf("scaffold: title is required")
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	slug := opts.Slug
	if slug == "" {
		slug = Slugify(opts.Title)
	}
	level := opts.Level
	if level == "" {
		level = "1-4"
	}
	players := opts.Players
	if players == "" {
		players = "3-5"
	}
	tags := opts.Tags
	if tags == nil {
		tags = []string{}
	}

	fm := frontmatter{
		Title:           opts.Title,
		Author:          opts.Author,
		Version:         initialVersion,
		Type:            opts.Type,
		College:         opts.College,
		Era:             opts.Era,
		LevelRange:      level,
		Players:         players,
		Canon:           false,
		Tags:            tags,
		ContentWarnings: []string{},
		Slug:            slug,
		Dependencies:    []string{},
		PlaytestStatus:  "draft",
		LastUpdated:     now.UTC().Format("2006-01-02"),
	}

	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("scaffold: marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	b.WriteString("# " + opts.Title + "\n\n")
	b.WriteString("## Overview\n\n")
	b.WriteString("_What is this content and when should a table reach for it?_\n\n")
	b.WriteString("## Hooks\n\n")
	b.WriteString("- \n\n")
	b.WriteString("## Changelog\n\n")
	b.WriteString("| version | date | notes |\n")
	b.WriteString("|---------|------|-------|\n")
	b.WriteString(fmt.Sprintf("| %s | %s | initial draft |\n", initialVersion, fm.LastUpdated))

	return &File{
		Name:    Filename(opts.Type, opts.College, slug, opts.Author, now),
		Content: b.String(),
	}, nil
}

// Filename renders the type-college-slug-author-YYYYMM.md naming
// convention. The college segment is omitted for college-agnostic
// content, the author segment when no author is known.
func Filename(entryType, college, slug, author string, now time.Time) string {
	segments := []string{Slugify(entryType)}
	if college != "" {
		segments = append(segments, Slugify(college))
	}
	segments = append(segments, slug)
	if author != "" {
		segments = append(segments, Slugify(author))
	}
	segments = append(segments, now.UTC().Format("200601"))
	return strings.Join(segments, "-") + ".md"
}

// Slugify lowercases s and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // trim leading hyphens
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
