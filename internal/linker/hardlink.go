package linker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
)

// HardlinkLinker deploys mod files as hard links to the mod folder.
// Links across devices are not possible, so those files are copied instead.
type HardlinkLinker struct {
	fs fsops.FS
}

// NewHardlink creates a new hardlink linker
func NewHardlink(fs fsops.FS) *HardlinkLinker {
	return &HardlinkLinker{fs: fs}
}

// Deploy creates a hard link from src to dst
func (l *HardlinkLinker) Deploy(src, dst string) error {
	if err := l.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating destination dir: %w", err)
	}
	if err := l.fs.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing existing file: %w", err)
	}

	err := os.Link(src, dst)
	if errors.Is(err, syscall.EXDEV) {
		return l.fs.CopyFile(src, dst)
	}
	if err != nil {
		return fmt.Errorf("creating hardlink: %w", err)
	}
	return nil
}

// Method returns the link method
func (l *HardlinkLinker) Method() domain.LinkMethod {
	return domain.LinkHardlink
}
