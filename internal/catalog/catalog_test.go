package catalog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lorehold/biblioplex/internal/apperr"
	"github.com/lorehold/biblioplex/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRow(path, slug, title string) EntryRow {
	return EntryRow{
		Path:      path,
		Slug:      slug,
		Title:     title,
		Type:      "quest",
		College:   "Lorehold",
		Era:       "founding",
		Canon:     true,
		Status:    "draft",
		Version:   "1.0.0",
		Author:    "mavis",
		Tags:      []string{"heist"},
		Checksum:  "cs-" + path,
		UpdatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestUpsertAndGetEntry(t *testing.T) {
	db := testDB(t)
	row := sampleRow("quests/heist.md", "heist", "The Heist")
	if err := db.UpsertEntry(row, "break into the stacks", nil); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	got, err := db.GetEntry("quests/heist.md")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Title != "The Heist" || got.Slug != "heist" || got.Type != "quest" {
		t.Errorf("row = %+v", got)
	}
	if !got.Canon {
		t.Error("canon not round-tripped")
	}
	if len(got.Tags) != 1 || got.Tags[0] != "heist" {
		t.Errorf("tags = %v", got.Tags)
	}

	row.Title = "The Great Heist"
	row.Checksum = "cs-2"
	if err := db.UpsertEntry(row, "body", nil); err != nil {
		t.Fatalf("UpsertEntry update: %v", err)
	}
	got, err = db.GetEntry("quests/heist.md")
	if err != nil {
		t.Fatalf("GetEntry after update: %v", err)
	}
	if got.Title != "The Great Heist" || got.Checksum != "cs-2" {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestGetEntryMissing(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetEntry("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetEntry missing = %v, want ErrNotFound", err)
	}
}

func TestGetChecksumMissing(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nope.md")
	if err != nil || cs != "" {
		t.Fatalf("GetChecksum missing = %q, %v", cs, err)
	}
}

func TestDeleteEntry(t *testing.T) {
	db := testDB(t)
	refs := []models.Ref{{Source: "a.md", Target: "b.md", Kind: models.RefFrontmatter}}
	if err := db.UpsertEntry(sampleRow("a.md", "a", "A"), "body", refs); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if err := db.DeleteEntry("a.md"); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := db.GetEntry("a.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("entry still present after delete")
	}
	back, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(back) != 0 {
		t.Errorf("refs survived delete: %v", back)
	}
}

func TestListEntriesFilters(t *testing.T) {
	db := testDB(t)
	rows := []EntryRow{
		sampleRow("npcs/dean.md", "dean", "The Dean"),
		sampleRow("quests/heist.md", "heist", "The Heist"),
		sampleRow("quests/finals.md", "finals", "Finals Week"),
	}
	rows[0].Type = "npc"
	rows[0].College = "Silverquill"
	rows[0].Canon = false
	rows[0].Tags = []string{"faculty"}
	rows[2].Status = "approved"
	for _, r := range rows {
		if err := db.UpsertEntry(r, "body", nil); err != nil {
			t.Fatalf("UpsertEntry %s: %v", r.Path, err)
		}
	}

	got, total, err := db.ListEntries(ListFilter{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if total != 3 || len(got) != 3 {
		t.Fatalf("unfiltered: total=%d len=%d", total, len(got))
	}
	if got[0].Path != "npcs/dean.md" {
		t.Errorf("default order wrong: %s first", got[0].Path)
	}

	got, total, err = db.ListEntries(ListFilter{Type: "quest"})
	if err != nil || total != 2 {
		t.Fatalf("type filter: total=%d err=%v", total, err)
	}

	got, total, err = db.ListEntries(ListFilter{College: "Silverquill"})
	if err != nil || total != 1 || got[0].Path != "npcs/dean.md" {
		t.Fatalf("college filter: %v total=%d", err, total)
	}

	got, total, err = db.ListEntries(ListFilter{Status: "approved"})
	if err != nil || total != 1 || got[0].Path != "quests/finals.md" {
		t.Fatalf("status filter: %v total=%d", err, total)
	}

	got, total, err = db.ListEntries(ListFilter{Tag: "faculty"})
	if err != nil || total != 1 || got[0].Path != "npcs/dean.md" {
		t.Fatalf("tag filter: %v total=%d", err, total)
	}

	canon := false
	got, total, err = db.ListEntries(ListFilter{Canon: &canon})
	if err != nil || total != 1 || got[0].Path != "npcs/dean.md" {
		t.Fatalf("canon filter: %v total=%d", err, total)
	}

	got, total, err = db.ListEntries(ListFilter{Limit: 2})
	if err != nil || total != 3 || len(got) != 2 {
		t.Fatalf("paging: total=%d len=%d err=%v", total, len(got), err)
	}
	got, _, err = db.ListEntries(ListFilter{Limit: 2, Offset: 2})
	if err != nil || len(got) != 1 || got[0].Path != "quests/heist.md" {
		t.Fatalf("offset page: %v", got)
	}

	got, _, err = db.ListEntries(ListFilter{Sort: "title"})
	if err != nil || got[0].Title != "Finals Week" {
		t.Fatalf("title sort: %v", err)
	}
}

func TestBacklinksMatchAllIdentifierForms(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertEntry(sampleRow("npcs/dean.md", "the-dean", "The Dean"), "body", nil); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	referrers := []struct {
		path   string
		target string
		kind   string
	}{
		{"a.md", "npcs/dean.md", models.RefFrontmatter},
		{"b.md", "npcs/dean", models.RefInline},
		{"c.md", "the-dean", models.RefInline},
	}
	for _, r := range referrers {
		row := sampleRow(r.path, "", r.path)
		refs := []models.Ref{{Source: r.path, Target: r.target, Kind: r.kind}}
		if err := db.UpsertEntry(row, "body", refs); err != nil {
			t.Fatalf("UpsertEntry %s: %v", r.path, err)
		}
	}

	back, err := db.Backlinks("npcs/dean.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	want := []string{"a.md", "b.md", "c.md"}
	if len(back) != len(want) {
		t.Fatalf("Backlinks = %v, want %v", back, want)
	}
	for i := range want {
		if back[i] != want[i] {
			t.Errorf("Backlinks[%d] = %s, want %s", i, back[i], want[i])
		}
	}
}

func TestGraph(t *testing.T) {
	db := testDB(t)
	refs := []models.Ref{
		{Source: "b.md", Target: "a.md", Kind: models.RefFrontmatter},
		{Source: "b.md", Target: "a", Kind: models.RefInline},
	}
	if err := db.UpsertEntry(sampleRow("b.md", "b", "B"), "body", refs); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if err := db.UpsertEntry(sampleRow("a.md", "a", "A"), "body", nil); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 || nodes[0].ID != "a.md" || nodes[1].ID != "b.md" {
		t.Errorf("nodes = %+v", nodes)
	}
	if len(links) != 2 {
		t.Fatalf("links = %+v", links)
	}
	if links[0].Target != "a" || links[0].Kind != models.RefInline {
		t.Errorf("links not ordered: %+v", links)
	}
	if links[1].Kind != models.RefFrontmatter {
		t.Errorf("frontmatter link missing: %+v", links)
	}
}

func TestSearchFindsBodyText(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertEntry(sampleRow("lore/vault.md", "vault", "The Vault"), "the snarling mascot guards the stacks", nil); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if err := db.UpsertEntry(sampleRow("lore/other.md", "other", "Other"), "nothing relevant", nil); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	hits, err := db.Search("mascot", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "lore/vault.md" || hits[0].Title != "The Vault" {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestAllPathsAndChecksums(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"a.md", "b.md"} {
		if err := db.UpsertEntry(sampleRow(p, "", p), "body", nil); err != nil {
			t.Fatalf("UpsertEntry: %v", err)
		}
	}
	paths, err := db.AllPaths()
	if err != nil || len(paths) != 2 {
		t.Fatalf("AllPaths = %v, %v", paths, err)
	}
	sums, err := db.AllChecksums()
	if err != nil || sums["a.md"] != "cs-a.md" {
		t.Fatalf("AllChecksums = %v, %v", sums, err)
	}
}
