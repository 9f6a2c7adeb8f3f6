package validate

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lorehold/biblioplex/internal/models"
	"github.com/lorehold/biblioplex/internal/parser"
	"github.com/lorehold/biblioplex/internal/storage"
)

// DefaultSensitiveTags is the built-in set of tags that make a missing
// contentWarnings field an advisory finding.
var DefaultSensitiveTags = []string{
	"violence", "gore", "horror", "mind-control", "abduction", "betrayal", "self-harm",
}

// Runner drives a full validation pass over a vault.
type Runner struct {
	store       storage.Provider
	dirs        []string
	sensitive   map[string]struct{}
	now         func() time.Time
	parallelism int
}

// Option configures a Runner.
type Option func(*Runner)

// WithContentDirs restricts scanning to the given vault subdirectories
// instead of the whole tree.
func WithContentDirs(dirs []string) Option {
	return func(r *Runner) { r.dirs = dirs }
}

// WithSensitiveTags replaces the default sensitive tag set.
func WithSensitiveTags(tags []string) Option {
	return func(r *Runner) { r.sensitive = tagSet(tags) }
}

// WithClock overrides the reference time used by the lastUpdated check.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithParallelism caps the number of concurrent per-entry checks.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// NewRunner returns a Runner reading entries from store.
func NewRunner(store storage.Provider, opts ...Option) *Runner {
	r := &Runner{
		store:       store,
		sensitive:   tagSet(DefaultSensitiveTags),
		now:         time.Now,
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scans the vault, checks every entry and the dependency graph, and
// returns the aggregated report. The only failure is being unable to list
// the content tree; unreadable or unparseable files are reported as data.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	entries, parseErrors, err := r.scan()
	if err != nil {
		return nil, err
	}

	checker := &EntryChecker{Now: r.now(), Sensitive: r.sensitive}

	// Per-entry checks are independent; results are merged back in entry
	// order so the report stays deterministic.
	perEntry := make([][]Violation, len(entries))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i := range entries {
		g.Go(func() error {
			perEntry[i] = checker.Check(entries[i].Path, entries[i].Frontmatter)
			return nil
		})
	}
	_ = g.Wait()

	violations := make([]Violation, 0)
	for _, vs := range perEntry {
		violations = append(violations, vs...)
	}
	violations = append(violations, CheckGraph(entries)...)

	return &Report{
		TotalEntries: len(entries),
		Violations:   violations,
		ParseErrors:  parseErrors,
	}, nil
}

// scan enumerates and parses every Markdown file under the configured
// content dirs, sorted by path.
func (r *Runner) scan() ([]models.Entry, []ParseError, error) {
	dirs := r.dirs
	if len(dirs) == 0 {
		dirs = []string{""}
	}

	var paths []string
	for _, dir := range dirs {
		ps, err := r.store.Paths(dir)
		if err != nil {
			name := dir
			if name == "" {
				name = "."
			}
			return nil, nil, fmt.Errorf("validate: scan %s: %w", name, err)
		}
		paths = append(paths, ps...)
	}
	// Walk order is not lexical across directory boundaries.
	sort.Strings(paths)
	paths = dedupeSorted(paths)

	entries := make([]models.Entry, 0, len(paths))
	parseErrors := make([]ParseError, 0)
	for _, p := range paths {
		data, err := r.store.Read(p)
		if err != nil {
			parseErrors = append(parseErrors, ParseError{Path: p, Message: fmt.Sprintf("read failed: %v", err)})
			continue
		}
		res, err := parser.Parse(data)
		if err != nil {
			parseErrors = append(parseErrors, ParseError{Path: p, Message: err.Error()})
			continue
		}
		entries = append(entries, models.Entry{
			Path:        p,
			Frontmatter: res.Frontmatter,
			Body:        res.Body,
			Title:       res.Title,
			Links:       res.Links,
			Tags:        res.Tags,
		})
	}
	return entries, parseErrors, nil
}

// dedupeSorted drops duplicates from a sorted slice, which appear when
// configured content dirs overlap.
func dedupeSorted(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if len(out) == 0 || out[len(out)-1] != p {
			out = append(out, p)
		}
	}
	return out
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}
