package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lorehold/biblioplex/internal/apperr"
	"github.com/lorehold/biblioplex/internal/checksum"
	"github.com/lorehold/biblioplex/internal/models"
)

// FS serves a vault from a directory on disk.
type FS struct {
	root string
}

// NewFS returns an FS rooted at root. The root must already exist and be a
// directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root %s is not a directory", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault root.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves rel against the root and rejects traversal outside it.
func (f *FS) safePath(rel string) (string, error) {
	if strings.Contains(rel, "..") {
		return "", apperr.ErrInvalidPath
	}
	abs := filepath.Join(f.root, filepath.FromSlash(rel))
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(filepath.Separator)) {
		return "", apperr.ErrInvalidPath
	}
	return abs, nil
}

// Read returns the bytes of the entry at path.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces the entry at path, creating parent directories
// as needed. The data lands in a temp file which is fsynced and renamed
// into place.
func (f *FS) Write(path string, data []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".biblioplex-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename into place: %w", err)
	}
	return nil
}

// Delete removes the entry at path.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Move renames an entry. The destination must not already exist.
func (f *FS) Move(oldPath, newPath string) error {
	src, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	dst, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("storage: stat %s: %w", oldPath, err)
	}
	if _, err := os.Stat(dst); err == nil {
		return apperr.ErrAlreadyExists
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("storage: create dir for %s: %w", newPath, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("storage: move %s to %s: %w", oldPath, newPath, err)
	}
	return nil
}

// List walks dir and returns metadata for every Markdown file. Hidden
// directories are skipped.
func (f *FS) List(dir string) ([]models.EntryMeta, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var metas []models.EntryMeta
	err = f.walkMarkdown(base, func(abs, rel string, d fs.DirEntry) error {
		data, err := os.ReadFile(abs)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		metas = append(metas, models.EntryMeta{
			Path:      rel,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	return metas, nil
}

// Paths walks dir and returns the relative path of every Markdown file
// without touching file contents.
func (f *FS) Paths(dir string) ([]string, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	err = f.walkMarkdown(base, func(abs, rel string, d fs.DirEntry) error {
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: walk %s: %w", dir, err)
	}
	return paths, nil
}

func (f *FS) walkMarkdown(base string, visit func(abs, rel string, d fs.DirEntry) error) error {
	return filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		return visit(path, filepath.ToSlash(rel), d)
	})
}
