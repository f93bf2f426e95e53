package domain

import (
	"errors"
	"fmt"
)

var (
	ErrModNotFound     = errors.New("mod not found")
	ErrInstallNotFound = errors.New("install not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidMod      = errors.New("invalid mod folder")
	ErrCancelled       = errors.New("cancelled")
	ErrConflictOrder   = errors.New("conflicting mods must be deactivated in reverse order")
	ErrBackupMissing   = errors.New("backup missing")
	ErrFilesystem      = errors.New("filesystem error")
	ErrAlreadyActive   = errors.New("mod already active")
	ErrNotActive       = errors.New("mod not active")
	ErrModActive       = errors.New("mod is active")
	ErrModExists       = errors.New("mod already exists")
)

// FilesystemError wraps an OS error from a copy/move/remove/mkdir so that it
// matches ErrFilesystem and still unwraps to the underlying error.
func FilesystemError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrFilesystem, op, path, err)
}
