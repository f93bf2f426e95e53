// Package registry persists the activation state of an install as plain-text
// line files next to the mods.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
)

const (
	ActiveModsFile    = "ActiveMods.txt"
	ConflictModsFile  = "ConflictMods.txt"
	ModifiedFilesFile = "ModifiedFiles.txt"
)

// Registry reads and writes the three registry files of one install
type Registry struct {
	fs  fsops.FS
	dir string
}

// New returns a registry rooted at dir (normally the mods root)
func New(fs fsops.FS, dir string) *Registry {
	return &Registry{fs: fs, dir: dir}
}

// Path returns the absolute path of a registry file
func (r *Registry) Path(file string) string {
	return filepath.Join(r.dir, file)
}

// ReadLines returns the non-empty lines of file, or nil if it does not exist.
func (r *Registry) ReadLines(file string) ([]string, error) {
	data, err := r.fs.ReadFile(r.Path(file))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// WriteLines replaces file with one entry per line.
func (r *Registry) WriteLines(file string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := r.fs.AtomicWrite(r.Path(file), []byte(b.String()), 0644); err != nil {
		return domain.FilesystemError("write", r.Path(file), err)
	}
	return nil
}

// AppendEntry adds entry to the end of file unless it is already present.
func (r *Registry) AppendEntry(file, entry string) error {
	lines, err := r.ReadLines(file)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line == entry {
			return nil
		}
	}
	return r.WriteLines(file, append(lines, entry))
}

// RemoveEntry deletes every occurrence of entry from file.
func (r *Registry) RemoveEntry(file, entry string) error {
	lines, err := r.ReadLines(file)
	if err != nil {
		return err
	}
	kept := lines[:0]
	for _, line := range lines {
		if line != entry {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(lines) {
		return nil
	}
	return r.WriteLines(file, kept)
}

// ActiveMods returns the active mods in activation order
func (r *Registry) ActiveMods() ([]string, error) {
	return r.ReadLines(ActiveModsFile)
}

// SetActiveMods replaces the active list
func (r *Registry) SetActiveMods(mods []string) error {
	return r.WriteLines(ActiveModsFile, mods)
}

// IsActive reports whether mod is in the active list
func (r *Registry) IsActive(mod string) (bool, error) {
	mods, err := r.ActiveMods()
	if err != nil {
		return false, err
	}
	for _, m := range mods {
		if m == mod {
			return true, nil
		}
	}
	return false, nil
}

// ConflictMods returns the conflict stack, bottom first
func (r *Registry) ConflictMods() ([]string, error) {
	return r.ReadLines(ConflictModsFile)
}

// SetConflictMods replaces the conflict stack
func (r *Registry) SetConflictMods(mods []string) error {
	return r.WriteLines(ConflictModsFile, mods)
}

// ModifiedFiles returns every modified-file record. Malformed lines fail the
// read rather than being silently dropped.
func (r *Registry) ModifiedFiles() ([]domain.ModifiedFile, error) {
	lines, err := r.ReadLines(ModifiedFilesFile)
	if err != nil {
		return nil, err
	}
	records := make([]domain.ModifiedFile, 0, len(lines))
	for _, line := range lines {
		rec, err := domain.ParseModifiedFile(line)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", ModifiedFilesFile, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// SetModifiedFiles replaces the modified-file records
func (r *Registry) SetModifiedFiles(records []domain.ModifiedFile) error {
	lines := make([]string, len(records))
	for i, rec := range records {
		lines[i] = rec.String()
	}
	return r.WriteLines(ModifiedFilesFile, lines)
}
