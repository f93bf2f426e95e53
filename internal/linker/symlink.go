package linker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
)

// SymlinkLinker deploys mod files as symbolic links into the mod folder
type SymlinkLinker struct {
	fs fsops.FS
}

// NewSymlink creates a new symlink linker
func NewSymlink(fs fsops.FS) *SymlinkLinker {
	return &SymlinkLinker{fs: fs}
}

// Deploy creates a symlink at dst pointing to the absolute path of src
func (l *SymlinkLinker) Deploy(src, dst string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("resolving source: %w", err)
	}
	if err := l.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating destination dir: %w", err)
	}
	if err := l.fs.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing existing file: %w", err)
	}
	if err := os.Symlink(abs, dst); err != nil {
		return fmt.Errorf("creating symlink: %w", err)
	}
	return nil
}

// Method returns the link method
func (l *SymlinkLinker) Method() domain.LinkMethod {
	return domain.LinkSymlink
}
