package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lorehold/biblioplex/internal/storage"
)

func writeVaultFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// validDoc renders a complete, schema-clean entry document.
func validDoc(title, slug string, deps ...string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", title)
	b.WriteString("author: mavis\n")
	b.WriteString("version: 1.0.0\n")
	b.WriteString("type: quest\n")
	b.WriteString("college: Quandrix\n")
	b.WriteString("canon: true\n")
	b.WriteString("playtestStatus: draft\n")
	b.WriteString("lastUpdated: \"2020-01-10\"\n")
	if slug != "" {
		fmt.Fprintf(&b, "slug: %s\n", slug)
	}
	if len(deps) > 0 {
		b.WriteString("dependencies:\n")
		for _, d := range deps {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	b.WriteString("---\n\n# ")
	b.WriteString(title)
	b.WriteString("\n")
	return b.String()
}

func newTestRunner(t *testing.T, root string, opts ...Option) *Runner {
	t.Helper()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return NewRunner(store, opts...)
}

func TestRunCleanVault(t *testing.T) {
	root := t.TempDir()
	writeVaultFile(t, root, "quests/intro.md", validDoc("Intro", "intro"))
	writeVaultFile(t, root, "quests/finale.md", validDoc("Finale", "finale", "intro"))

	rep, err := newTestRunner(t, root).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", rep.TotalEntries)
	}
	if len(rep.Violations) != 0 {
		t.Errorf("violations: %+v", rep.Violations)
	}
	if len(rep.ParseErrors) != 0 {
		t.Errorf("parse errors: %+v", rep.ParseErrors)
	}
	if !rep.Clean(false) {
		t.Error("Clean = false, want true")
	}
}

func TestRunReportIsDeterministic(t *testing.T) {
	root := t.TempDir()
	// foo-bar.md sorts before foo/baz.md lexically but after it in walk
	// order, so this catches any reliance on directory traversal order.
	writeVaultFile(t, root, "foo/baz.md", "---\ntitle: Baz\n---\nbody\n")
	writeVaultFile(t, root, "foo-bar.md", "---\ntitle: FooBar\n---\nbody\n")
	writeVaultFile(t, root, "zz.md", validDoc("Last", "last", "nowhere"))

	r := newTestRunner(t, root)
	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("reports differ across runs:\n%s\n%s", a, b)
	}

	var last string
	for _, v := range first.Violations {
		if v.Kind == KindCyclicDependency {
			continue
		}
		if v.Path < last {
			t.Fatalf("violations not ordered by path: %s after %s", v.Path, last)
		}
		last = v.Path
	}
	if first.Violations[0].Path != "foo-bar.md" {
		t.Errorf("first violation path = %s, want foo-bar.md", first.Violations[0].Path)
	}
}

func TestRunParseErrorDoesNotAbort(t *testing.T) {
	root := t.TempDir()
	writeVaultFile(t, root, "ok.md", validDoc("Fine", "fine"))
	writeVaultFile(t, root, "broken.md", "---\ntitle: Broken\nno closing fence\n")

	rep, err := newTestRunner(t, root).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.TotalEntries != 1 {
		t.Errorf("TotalEntries = %d, want 1", rep.TotalEntries)
	}
	if len(rep.ParseErrors) != 1 || rep.ParseErrors[0].Path != "broken.md" {
		t.Fatalf("parse errors: %+v", rep.ParseErrors)
	}
	if rep.Clean(false) {
		t.Error("report with parse errors counted clean")
	}
}

func TestRunMissingFrontmatterIsNotParseError(t *testing.T) {
	root := t.TempDir()
	writeVaultFile(t, root, "bare.md", "# Just a heading\n\nSome prose.\n")

	rep, err := newTestRunner(t, root).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.TotalEntries != 1 || len(rep.ParseErrors) != 0 {
		t.Fatalf("bare file misclassified: %+v", rep)
	}
	// Required fields are all missing.
	if len(rep.Violations) == 0 || rep.Violations[0].Kind != KindMissingField {
		t.Fatalf("violations: %+v", rep.Violations)
	}
}

func TestRunContentDirsRestrictScan(t *testing.T) {
	root := t.TempDir()
	writeVaultFile(t, root, "quests/intro.md", validDoc("Intro", "intro"))
	writeVaultFile(t, root, "scratch/wip.md", "no frontmatter at all")

	rep, err := newTestRunner(t, root, WithContentDirs([]string{"quests"})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.TotalEntries != 1 {
		t.Errorf("TotalEntries = %d, want 1", rep.TotalEntries)
	}
	if len(rep.Violations) != 0 {
		t.Errorf("violations leaked from excluded dir: %+v", rep.Violations)
	}
}

func TestRunOverlappingContentDirsDoNotDuplicate(t *testing.T) {
	root := t.TempDir()
	writeVaultFile(t, root, "quests/intro.md", validDoc("Intro", "intro"))

	rep, err := newTestRunner(t, root, WithContentDirs([]string{"", "quests"})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.TotalEntries != 1 {
		t.Errorf("TotalEntries = %d, want 1", rep.TotalEntries)
	}
}

func TestRunMissingContentDirFails(t *testing.T) {
	root := t.TempDir()
	if _, err := newTestRunner(t, root, WithContentDirs([]string{"nope"})).Run(context.Background()); err == nil {
		t.Fatal("Run over a missing content dir should fail")
	}
}

func TestRunCrossFileChecks(t *testing.T) {
	root := t.TempDir()
	writeVaultFile(t, root, "x.md", validDoc("X", "x-quest", "y.md"))
	writeVaultFile(t, root, "y.md", validDoc("Y", "y-quest", "x-quest"))

	rep, err := newTestRunner(t, root).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var cycles int
	for _, v := range rep.Violations {
		if v.Kind == KindCyclicDependency {
			cycles++
			if v.Cycle[0] != "x.md" {
				t.Errorf("cycle = %v, want x.md first", v.Cycle)
			}
		}
	}
	if cycles != 1 {
		t.Fatalf("got %d cycle violations, want 1: %+v", cycles, rep.Violations)
	}
}

func TestRunClockOverride(t *testing.T) {
	root := t.TempDir()
	doc := strings.Replace(validDoc("Dated", "dated"), "\"2020-01-10\"", "\"2031-06-01\"", 1)
	writeVaultFile(t, root, "dated.md", doc)

	frozen := func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	rep, err := newTestRunner(t, root, WithClock(frozen)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Violations) != 1 || rep.Violations[0].Kind != KindInvalidRange {
		t.Fatalf("violations: %+v", rep.Violations)
	}
}

func TestRunReportJSONShape(t *testing.T) {
	root := t.TempDir()
	writeVaultFile(t, root, "only.md", validDoc("Only", "only"))

	rep, err := newTestRunner(t, root).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Empty collections serialize as [] so consumers never see null.
	if !strings.Contains(string(data), `"violations":[]`) || !strings.Contains(string(data), `"parse_errors":[]`) {
		t.Fatalf("unexpected JSON: %s", data)
	}
}

func TestRunAdvisoryDemotion(t *testing.T) {
	root := t.TempDir()
	doc := strings.Replace(validDoc("Grim", "grim"), "type: quest\n", "type: quest\ntags:\n  - horror\n", 1)
	writeVaultFile(t, root, "grim.md", doc)

	rep, err := newTestRunner(t, root).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.AdvisoryCount() != 1 || rep.ErrorCount() != 0 {
		t.Fatalf("advisory=%d errors=%d, want 1/0: %+v", rep.AdvisoryCount(), rep.ErrorCount(), rep.Violations)
	}
	if rep.Clean(false) {
		t.Error("advisory finding should fail a strict run")
	}
	if !rep.Clean(true) {
		t.Error("advisory finding should pass a demoted run")
	}
}

func TestRunParallelismMatchesSerial(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeVaultFile(t, root, fmt.Sprintf("e%02d.md", i), "---\ntitle: T\n---\nbody\n")
	}

	serial, err := newTestRunner(t, root, WithParallelism(1)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	parallel, err := newTestRunner(t, root, WithParallelism(8)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	a, _ := json.Marshal(serial)
	b, _ := json.Marshal(parallel)
	if string(a) != string(b) {
		t.Fatalf("parallel report differs from serial:\n%s\n%s", a, b)
	}
}
