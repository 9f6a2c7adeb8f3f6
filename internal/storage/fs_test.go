package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lorehold/biblioplex/internal/apperr"
)

func newTestFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestNewFSRejectsMissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("NewFS accepted a missing root")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := newTestFS(t)
	want := []byte("---\ntitle: Orientation\n---\n\n# Orientation\n")
	if err := fs.Write("lore/orientation.md", want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := fs.Read("lore/orientation.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Read = %q, want %q", got, want)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Write("a.md", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	dirents, err := os.ReadDir(fs.Root())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, d := range dirents {
		if d.Name() != "a.md" {
			t.Errorf("unexpected leftover file %s", d.Name())
		}
	}
}

func TestReadMissing(t *testing.T) {
	fs := newTestFS(t)
	if _, err := fs.Read("missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Read missing = %v, want ErrNotFound", err)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	fs := newTestFS(t)
	for _, p := range []string{"../escape.md", "a/../../escape.md", ".."} {
		if _, err := fs.Read(p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Read(%q) = %v, want ErrInvalidPath", p, err)
		}
		if err := fs.Write(p, []byte("x")); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Write(%q) = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestDelete(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Write("gone.md", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fs.Delete("gone.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := fs.Delete("gone.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestMove(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Write("old.md", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fs.Move("old.md", "quests/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := fs.Read("quests/new.md"); err != nil {
		t.Fatalf("Read after Move: %v", err)
	}
	if _, err := fs.Read("old.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("old path still readable after Move")
	}

	if err := fs.Write("other.md", []byte("y")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fs.Move("other.md", "quests/new.md"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("Move onto existing = %v, want ErrAlreadyExists", err)
	}
}

func TestListAndPaths(t *testing.T) {
	fs := newTestFS(t)
	files := map[string]string{
		"npcs/dean.md":     "# Dean",
		"quests/intro.md":  "# Intro",
		"notes.txt":        "not markdown",
		".obsidian/cfg.md": "hidden dir",
	}
	for p, body := range files {
		if err := fs.Write(p, []byte(body)); err != nil {
			t.Fatalf("Write %s: %v", p, err)
		}
	}

	metas, err := fs.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List returned %d entries, want 2: %+v", len(metas), metas)
	}
	for _, m := range metas {
		if m.Checksum == "" {
			t.Errorf("List entry %s has empty checksum", m.Path)
		}
	}

	paths, err := fs.Paths("quests")
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if len(paths) != 1 || paths[0] != "quests/intro.md" {
		t.Fatalf("Paths(quests) = %v", paths)
	}

	if _, err := fs.Paths("ungrounded"); err == nil {
		t.Fatal("Paths on a missing dir should fail")
	}
}
