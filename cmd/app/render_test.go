package main

import (
	"strings"
	"testing"

	"github.com/lorehold/biblioplex/internal/catalog"
	"github.com/lorehold/biblioplex/internal/models"
	"github.com/lorehold/biblioplex/internal/validate"
)

func TestRenderSummary(t *testing.T) {
	advisoryOnly := &validate.Report{
		TotalEntries: 1,
		Violations: []validate.Violation{
			{Path: "a.md", Field: "contentWarnings", Kind: validate.KindMissingField, Message: "missing", Advisory: true},
		},
	}

	tests := []struct {
		name         string
		report       *validate.Report
		warnAdvisory bool
		want         string
	}{
		{
			name:   "clean",
			report: &validate.Report{TotalEntries: 3},
			want:   "checked 3 entries: vault is clean",
		},
		{
			name:         "advisory demoted",
			report:       advisoryOnly,
			warnAdvisory: true,
			want:         "checked 1 entries: vault is clean (1 advisory warnings)",
		},
		{
			name:   "advisory strict",
			report: advisoryOnly,
			want:   "checked 1 entries: 1 violations (1 advisory), 0 parse errors",
		},
		{
			name: "parse errors fail",
			report: &validate.Report{
				TotalEntries: 2,
				ParseErrors:  []validate.ParseError{{Path: "bad.md", Message: "no frontmatter"}},
			},
			want: "checked 2 entries: 0 violations (0 advisory), 1 parse errors",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderSummary(tt.report, tt.warnAdvisory, false)
			if got != tt.want {
				t.Errorf("renderSummary = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderReport(t *testing.T) {
	rep := &validate.Report{
		TotalEntries: 2,
		Violations: []validate.Violation{
			{Path: "a.md", Field: "version", Kind: validate.KindInvalidFormat, Message: "not semver"},
			{Path: "b.md", Kind: validate.KindCyclicDependency, Message: "dependency cycle", Cycle: []string{"b.md", "c.md", "b.md"}},
		},
		ParseErrors: []validate.ParseError{{Path: "bad.md", Message: "unclosed frontmatter"}},
	}

	out := renderReport(rep, false, false)
	for _, want := range []string{
		"invalid_format",
		"not semver",
		"b.md -> c.md -> b.md",
		"parse errors:",
		"bad.md: unclosed frontmatter",
		"checked 2 entries",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("renderReport missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderList(t *testing.T) {
	out := renderList([]catalog.EntryRow{
		{Path: "quests/heist.md", Type: "quest", College: "lorehold", Status: "tested", Version: "1.2.0", Title: "The Relic Heist"},
	}, 7)
	for _, want := range []string{"quests/heist.md", "lorehold", "The Relic Heist", "1 of 7 entries"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderList missing %q in:\n%s", want, out)
		}
	}

	if got := renderList(nil, 0); got != "0 of 0 entries\n" {
		t.Errorf("empty renderList = %q", got)
	}
}

func TestRenderSearch(t *testing.T) {
	results := []catalog.SearchResult{
		{Path: "a.md", Title: "Alpha", Snippet: "the <b>relic</b> hums"},
	}

	plain := renderSearch(results, false)
	if !strings.Contains(plain, "the relic hums") {
		t.Errorf("markers not stripped:\n%s", plain)
	}
	if strings.Contains(plain, "<b>") {
		t.Errorf("marker left in plain output:\n%s", plain)
	}

	colored := renderSearch(results, true)
	if !strings.Contains(colored, ansiBold+"relic"+ansiReset) {
		t.Errorf("markers not bolded:\n%s", colored)
	}

	if got := renderSearch(nil, false); got != "no matches\n" {
		t.Errorf("empty renderSearch = %q", got)
	}
}

func TestRenderGraphDOT(t *testing.T) {
	nodes := []catalog.GraphNode{
		{ID: "a.md", Title: "Alpha", Type: "quest"},
		{ID: "b.md"},
	}
	links := []catalog.GraphLink{
		{Source: "a.md", Target: "b.md", Kind: models.RefFrontmatter},
		{Source: "b.md", Target: "a.md", Kind: models.RefInline},
	}

	out := renderGraphDOT(nodes, links)
	if !strings.HasPrefix(out, "digraph biblioplex {\n") || !strings.HasSuffix(out, "}\n") {
		t.Fatalf("malformed DOT:\n%s", out)
	}
	for _, want := range []string{
		`"a.md" [label="Alpha"];`,
		`"b.md" [label="b.md"];`,
		`"a.md" -> "b.md";`,
		`"b.md" -> "a.md" [style=dashed];`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("renderGraphDOT missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B", "C"}, [][]string{{"only"}}, nil)
	if !strings.Contains(out, "only") {
		t.Errorf("row value missing:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("output not newline terminated: %q", out)
	}
}
