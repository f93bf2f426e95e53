// Package backup manages the two per-mod backup partitions: displaced
// originals, and mod files that had no original ("unique" files).
package backup

import (
	"fmt"
	"path/filepath"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
)

// Store holds the roots of both partitions
type Store struct {
	fs         fsops.FS
	originals  string
	uniqueRoot string
}

// New creates a store over the given partition roots
func New(fs fsops.FS, originalsRoot, uniqueRoot string) *Store {
	return &Store{fs: fs, originals: originalsRoot, uniqueRoot: uniqueRoot}
}

// OriginalsPath returns <backup_root>/<mod>
func (s *Store) OriginalsPath(mod string) string {
	return filepath.Join(s.originals, mod)
}

// UniquePath returns <unique_backup_root>/<mod>
func (s *Store) UniquePath(mod string) string {
	return filepath.Join(s.uniqueRoot, mod)
}

// Ensure creates both partitions of a mod
func (s *Store) Ensure(mod string) error {
	for _, dir := range []string{s.OriginalsPath(mod), s.UniquePath(mod)} {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return domain.FilesystemError("mkdir", dir, err)
		}
	}
	return nil
}

// HasOriginals reports whether the originals partition of mod exists
func (s *Store) HasOriginals(mod string) (bool, error) {
	ok, err := s.fs.Exists(s.OriginalsPath(mod))
	if err != nil {
		return false, domain.FilesystemError("stat", s.OriginalsPath(mod), err)
	}
	return ok, nil
}

// Files lists both partitions of mod as sorted relative paths
func (s *Store) Files(mod string) (originals, unique []string, err error) {
	originals, err = s.fs.WalkFiles(s.OriginalsPath(mod))
	if err != nil {
		return nil, nil, fmt.Errorf("listing originals of %s: %w", mod, err)
	}
	unique, err = s.fs.WalkFiles(s.UniquePath(mod))
	if err != nil {
		return nil, nil, fmt.Errorf("listing unique files of %s: %w", mod, err)
	}
	return originals, unique, nil
}

// Remove deletes both partitions of mod
func (s *Store) Remove(mod string) error {
	for _, dir := range []string{s.OriginalsPath(mod), s.UniquePath(mod)} {
		if err := s.fs.RemoveAll(dir); err != nil {
			return domain.FilesystemError("remove", dir, err)
		}
	}
	return nil
}
