// Package storage abstracts access to the vault's Markdown files.
package storage

import "github.com/lorehold/biblioplex/internal/models"

// Provider is the filesystem contract the catalog, validator, and services
// are written against. Paths are relative to the vault root and always use
// forward slashes.
type Provider interface {
	// Read returns the raw bytes of the entry at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the entry at path.
	Write(path string, data []byte) error
	// Delete removes the entry at path.
	Delete(path string) error
	// Move renames an entry.
	Move(oldPath, newPath string) error
	// List walks dir (or the whole vault when dir is empty) and returns
	// metadata for every Markdown file found.
	List(dir string) ([]models.EntryMeta, error)
	// Paths walks dir like List but without reading file contents, so a
	// single unreadable file cannot fail the walk.
	Paths(dir string) ([]string, error)
	// Root returns the absolute path of the vault root.
	Root() string
}
