package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/lorehold/biblioplex/internal/catalog"
	"github.com/lorehold/biblioplex/internal/models"
	"github.com/lorehold/biblioplex/internal/validate"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(s, color string, enabled bool) string {
	if !enabled {
		return s
	}
	return color + s + ansiReset
}

// renderReport formats a validation run for the terminal: a violations
// table, parse errors, then a one-line summary.
func renderReport(rep *validate.Report, warnAdvisory, color bool) string {
	var b strings.Builder

	if len(rep.Violations) > 0 {
		rows := make([][]string, 0, len(rep.Violations))
		for _, v := range rep.Violations {
			severity := paint("error", ansiRed, color)
			if v.Advisory {
				severity = paint("advisory", ansiYellow, color)
			}
			msg := v.Message
			if len(v.Cycle) > 0 {
				msg = fmt.Sprintf("%s (%s)", msg, strings.Join(v.Cycle, " -> "))
			}
			rows = append(rows, []string{v.Path, v.Field, string(v.Kind), severity, msg})
		}
		b.WriteString(renderTable([]string{"PATH", "FIELD", "KIND", "SEVERITY", "MESSAGE"}, rows, nil))
	}

	if len(rep.ParseErrors) > 0 {
		b.WriteString("parse errors:\n")
		for _, pe := range rep.ParseErrors {
			fmt.Fprintf(&b, "  %s: %s\n", pe.Path, pe.Message)
		}
	}

	b.WriteString(renderSummary(rep, warnAdvisory, color))
	b.WriteString("\n")
	return b.String()
}

func renderSummary(rep *validate.Report, warnAdvisory, color bool) string {
	if rep.Clean(warnAdvisory) {
		line := fmt.Sprintf("checked %d entries: vault is clean", rep.TotalEntries)
		if n := rep.AdvisoryCount(); n > 0 {
			line += fmt.Sprintf(" (%d advisory warnings)", n)
		}
		return paint(line, ansiGreen, color)
	}
	line := fmt.Sprintf("checked %d entries: %d violations (%d advisory), %d parse errors",
		rep.TotalEntries, len(rep.Violations), rep.AdvisoryCount(), len(rep.ParseErrors))
	return paint(line, ansiRed, color)
}

// renderList formats catalog rows as a table with a paging footer.
func renderList(rows []catalog.EntryRow, total int) string {
	var b strings.Builder
	if len(rows) > 0 {
		out := make([][]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, []string{r.Path, r.Type, r.College, r.Status, r.Version, r.Title})
		}
		b.WriteString(renderTable([]string{"PATH", "TYPE", "COLLEGE", "STATUS", "VERSION", "TITLE"}, out, nil))
	}
	fmt.Fprintf(&b, "%d of %d entries\n", len(rows), total)
	return b.String()
}

// renderSearch formats search hits, translating the catalog's <b> match
// markers into terminal bold (or stripping them when color is off).
func renderSearch(results []catalog.SearchResult, color bool) string {
	if len(results) == 0 {
		return "no matches\n"
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Path, r.Title, formatSnippet(r.Snippet, color)})
	}
	return renderTable([]string{"PATH", "TITLE", "SNIPPET"}, rows, nil)
}

func formatSnippet(s string, color bool) string {
	if color {
		s = strings.ReplaceAll(s, "<b>", ansiBold)
		return strings.ReplaceAll(s, "</b>", ansiReset)
	}
	s = strings.ReplaceAll(s, "<b>", "")
	return strings.ReplaceAll(s, "</b>", "")
}

// renderGraphDOT emits the reference graph in Graphviz DOT form.
// Frontmatter dependencies are solid edges, inline wikilinks dashed.
func renderGraphDOT(nodes []catalog.GraphNode, links []catalog.GraphLink) string {
	var b strings.Builder
	b.WriteString("digraph biblioplex {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")
	for _, n := range nodes {
		label := n.Title
		if label == "" {
			label = n.ID
		}
		fmt.Fprintf(&b, "  %q [label=%q];\n", n.ID, label)
	}
	for _, l := range links {
		attr := ""
		if l.Kind == models.RefInline {
			attr = " [style=dashed]"
		}
		fmt.Fprintf(&b, "  %q -> %q%s;\n", l.Source, l.Target, attr)
	}
	b.WriteString("}\n")
	return b.String()
}
