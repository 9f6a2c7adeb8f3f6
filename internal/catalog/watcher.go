package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lorehold/biblioplex/internal/storage"
)

// renameSettle is how long a renamed path may wait for its create pair
// before the old path is treated as deleted.
const renameSettle = 200 * time.Millisecond

// EventCallback receives catalog change notifications. Event is one of
// "created", "updated", or "deleted"; path is vault-relative.
type EventCallback func(event string, path string)

// Watch follows filesystem events under the vault root and keeps the
// catalog current until ctx is cancelled. New directories are watched as
// they appear; renames settle briefly so a move inside the vault indexes
// as delete plus create rather than a spurious delete.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, onEvent EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, store.Root()); err != nil {
		return err
	}

	notify := func(event, rel string) {
		if onEvent != nil {
			onEvent(event, rel)
		}
	}

	pendingRenames := make(map[string]time.Time)
	settle := time.NewTicker(renameSettle)
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(store.Root(), ev.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}

			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addDirsRecursive(w, ev.Name); err != nil {
						logger.Warn("watch new directory failed", "path", rel, "error", err)
					}
					continue
				}
			}
			if !strings.HasSuffix(rel, ".md") {
				continue
			}

			switch {
			case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
				data, err := store.Read(rel)
				if err != nil {
					continue
				}
				existing, err := db.GetChecksum(rel)
				if err != nil {
					logger.Warn("watcher checksum lookup failed", "path", rel, "error", err)
					continue
				}
				if err := IndexEntry(db, rel, data); err != nil {
					logger.Warn("watcher index failed", "path", rel, "error", err)
					continue
				}
				delete(pendingRenames, rel)
				if existing == "" {
					notify("created", rel)
				} else {
					notify("updated", rel)
				}

			case ev.Op.Has(fsnotify.Rename):
				// The follow-up create lands under the new name; remember
				// the old one until the settle window passes.
				pendingRenames[rel] = time.Now()

			case ev.Op.Has(fsnotify.Remove):
				if err := db.DeleteEntry(rel); err != nil {
					logger.Warn("watcher delete failed", "path", rel, "error", err)
					continue
				}
				delete(pendingRenames, rel)
				notify("deleted", rel)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-settle.C:
			now := time.Now()
			for rel, at := range pendingRenames {
				if now.Sub(at) < renameSettle {
					continue
				}
				delete(pendingRenames, rel)
				if _, err := store.Read(rel); err == nil {
					continue
				}
				if err := db.DeleteEntry(rel); err != nil {
					logger.Warn("watcher delete failed", "path", rel, "error", err)
					continue
				}
				notify("deleted", rel)
			}
		}
	}
}

// addDirsRecursive registers root and every non-hidden directory below it.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
