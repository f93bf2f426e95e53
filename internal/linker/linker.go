// Package linker places mod files into the install tree.
package linker

import (
	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
)

// Linker deploys one mod file to its install-tree destination, replacing
// whatever is there.
type Linker interface {
	Deploy(src, dst string) error
	Method() domain.LinkMethod
}

// New creates a linker for the given method
func New(method domain.LinkMethod, fs fsops.FS) Linker {
	switch method {
	case domain.LinkHardlink:
		return NewHardlink(fs)
	case domain.LinkSymlink:
		return NewSymlink(fs)
	default:
		return NewCopy(fs)
	}
}
