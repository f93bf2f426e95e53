package linker

import (
	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
)

// CopyLinker deploys mod files as independent copies
type CopyLinker struct {
	fs fsops.FS
}

// NewCopy creates a new copy linker
func NewCopy(fs fsops.FS) *CopyLinker {
	return &CopyLinker{fs: fs}
}

// Deploy copies src to dst
func (l *CopyLinker) Deploy(src, dst string) error {
	return l.fs.CopyFile(src, dst)
}

// Method returns the link method
func (l *CopyLinker) Method() domain.LinkMethod {
	return domain.LinkCopy
}
