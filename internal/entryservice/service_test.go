package entryservice

import (
	"context"
	"errors"
	"testing"

	"github.com/lorehold/biblioplex/internal/apperr"
	"github.com/lorehold/biblioplex/internal/catalog"
	"github.com/lorehold/biblioplex/internal/testutil"
	"github.com/lorehold/biblioplex/internal/validate"
)

const sampleEntry = `---
title: The Heist
author: mavis
version: 1.0.0
type: quest
college: Lorehold
canon: true
slug: heist
playtestStatus: draft
lastUpdated: "2020-01-10"
---

# The Heist
`

func newTestService(t *testing.T) *Service {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	runner := validate.NewRunner(store)
	return NewService(store, db, runner)
}

func TestCreateAndGetEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	detail, err := svc.CreateEntry(ctx, "quests/heist.md", sampleEntry)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if detail.Title != "The Heist" || detail.Content != sampleEntry {
		t.Errorf("detail = %+v", detail)
	}
	if detail.Checksum == "" {
		t.Error("checksum empty")
	}
	if detail.Frontmatter["slug"] != "heist" {
		t.Errorf("frontmatter = %v", detail.Frontmatter)
	}

	got, err := svc.GetEntry(ctx, "quests/heist.md")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Checksum != detail.Checksum {
		t.Error("checksums differ between create and get")
	}

	// The catalog row is visible immediately, without a separate sync.
	rows, total, err := svc.ListEntries(ctx, catalog.ListFilter{Type: "quest"})
	if err != nil || total != 1 || rows[0].Slug != "heist" {
		t.Fatalf("ListEntries after create: rows=%+v total=%d err=%v", rows, total, err)
	}
}

func TestCreateEntryGuards(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateEntry(ctx, "notes.txt", sampleEntry); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("non-markdown path = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.CreateEntry(ctx, "bad.md", "---\ntitle: x\nnever closed\n"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("unparseable content = %v, want ErrInvalidInput", err)
	}

	if _, err := svc.CreateEntry(ctx, "quests/heist.md", sampleEntry); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if _, err := svc.CreateEntry(ctx, "quests/heist.md", sampleEntry); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateEntryChecksumGate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateEntry(ctx, "a.md", sampleEntry)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	if _, err := svc.UpdateEntry(ctx, "a.md", sampleEntry+"\nmore\n", "stale-checksum"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale update = %v, want ErrConflict", err)
	}

	updated, err := svc.UpdateEntry(ctx, "a.md", sampleEntry+"\nmore\n", created.Checksum)
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if updated.Checksum == created.Checksum {
		t.Error("checksum unchanged after update")
	}

	if _, err := svc.UpdateEntry(ctx, "missing.md", sampleEntry, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}
}

func TestDeleteEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateEntry(ctx, "a.md", sampleEntry); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if err := svc.DeleteEntry(ctx, "a.md"); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := svc.GetEntry(ctx, "a.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetEntry after delete = %v, want ErrNotFound", err)
	}
	if _, total, err := svc.ListEntries(ctx, catalog.ListFilter{}); err != nil || total != 0 {
		t.Fatalf("catalog row survived delete: total=%d err=%v", total, err)
	}
}

func TestBacklinksAcrossEntries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateEntry(ctx, "npcs/dean.md", sampleEntry); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	referrer := `---
title: Office Hours
author: mavis
version: 1.0.0
type: scene
canon: false
playtestStatus: draft
lastUpdated: "2020-01-10"
dependencies:
  - npcs/dean.md
---

Visit the [[npcs/dean]] after class.
`
	if _, err := svc.CreateEntry(ctx, "scenes/office-hours.md", referrer); err != nil {
		t.Fatalf("CreateEntry referrer: %v", err)
	}

	back, err := svc.Backlinks(ctx, "npcs/dean.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(back) != 1 || back[0] != "scenes/office-hours.md" {
		t.Fatalf("Backlinks = %v", back)
	}

	detail, err := svc.GetEntry(ctx, "npcs/dean.md")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if len(detail.Backlinks) != 1 {
		t.Errorf("detail backlinks = %v", detail.Backlinks)
	}
}

func TestGetEntryServesBrokenFiles(t *testing.T) {
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	svc := NewService(store, db, validate.NewRunner(store))

	broken := "---\ntitle: Broken\nnever closed\n"
	if err := store.Write("broken.md", []byte(broken)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	detail, err := svc.GetEntry(context.Background(), "broken.md")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if detail.Content != broken || detail.Title != "" {
		t.Errorf("detail = %+v", detail)
	}
}

func TestReportSeesVault(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateEntry(ctx, "good.md", sampleEntry); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	incomplete := "---\ntitle: Incomplete\n---\n\nbody\n"
	if _, err := svc.CreateEntry(ctx, "incomplete.md", incomplete); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	rep, err := svc.Report(ctx)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if rep.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", rep.TotalEntries)
	}
	if rep.ErrorCount() == 0 {
		t.Error("missing required fields not reported")
	}
	for _, v := range rep.Violations {
		if v.Path != "incomplete.md" {
			t.Errorf("violation against wrong file: %+v", v)
		}
	}
}

func TestSearchPassthrough(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc := sampleEntry + "\nThe word glimmerwing appears only here.\n"
	if _, err := svc.CreateEntry(ctx, "lore/fauna.md", doc); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	hits, err := svc.Search(ctx, "glimmerwing", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "lore/fauna.md" {
		t.Fatalf("hits = %+v", hits)
	}
}
