// Package library manages the extracted mod folders of one install.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"

	"github.com/pelletier/go-toml/v2"
)

// Library is the mods root of an install
type Library struct {
	fs   fsops.FS
	root string
}

// New creates a library rooted at root
func New(fs fsops.FS, root string) *Library {
	return &Library{fs: fs, root: root}
}

// Root returns the mods root
func (l *Library) Root() string {
	return l.root
}

// Path returns where a mod folder lives
func (l *Library) Path(name string) string {
	return filepath.Join(l.root, name)
}

// List returns the names of every folder under the mods root, sorted.
// Hidden folders are skipped.
func (l *Library) List() ([]string, error) {
	entries, err := l.fs.ReadDir(l.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing mods: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists checks if a mod folder is present
func (l *Library) Exists(name string) bool {
	if l.fs.ValidateIdentifier(name) != nil {
		return false
	}
	info, err := l.fs.Stat(l.Path(name))
	return err == nil && info.IsDir()
}

// Resolve validates a mod folder and works out its source root. A folder is
// valid if it has a dvdroot_ps4 directory or at least one game data folder.
func (l *Library) Resolve(name string) (domain.ModFolder, error) {
	if err := l.fs.ValidateIdentifier(name); err != nil {
		return domain.ModFolder{}, fmt.Errorf("%w: %v", domain.ErrInvalidMod, err)
	}
	if !l.Exists(name) {
		return domain.ModFolder{}, fmt.Errorf("%w: %s", domain.ErrModNotFound, name)
	}

	folder := domain.ModFolder{Name: name, Path: l.Path(name)}
	if info, err := l.fs.Stat(filepath.Join(folder.Path, domain.DvdRoot)); err == nil && info.IsDir() {
		folder.SourceRoot = filepath.Join(folder.Path, domain.DvdRoot)
		folder.HasDvdRoot = true
	} else {
		entries, err := l.fs.ReadDir(folder.Path)
		if err != nil {
			return domain.ModFolder{}, fmt.Errorf("reading mod folder: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() && domain.IsGameDataFolder(e.Name()) {
				folder.SourceRoot = folder.Path
				break
			}
		}
		if folder.SourceRoot == "" {
			return domain.ModFolder{}, fmt.Errorf("%w: %s has no %s folder and no game data folders",
				domain.ErrInvalidMod, name, domain.DvdRoot)
		}
	}

	// A broken manifest never blocks activation
	folder.Manifest, _ = l.Manifest(name)
	return folder, nil
}

// ListFiles returns every file under the folder's source root as sorted,
// slash-separated relative paths. The manifest is not part of the overlay.
func (l *Library) ListFiles(folder domain.ModFolder) ([]string, error) {
	files, err := l.fs.WalkFiles(folder.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("listing mod files: %w", err)
	}
	if folder.HasDvdRoot {
		return files, nil
	}

	kept := files[:0]
	for _, f := range files {
		if f != domain.ManifestFile {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// Size returns the total size of a mod's overlay files
func (l *Library) Size(folder domain.ModFolder) (int64, error) {
	files, err := l.ListFiles(folder)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, f := range files {
		info, err := l.fs.Stat(filepath.Join(folder.SourceRoot, filepath.FromSlash(f)))
		if err != nil {
			return 0, fmt.Errorf("calculating mod size: %w", err)
		}
		total += info.Size()
	}
	return total, nil
}

// Delete removes a mod folder
func (l *Library) Delete(name string) error {
	if err := l.fs.ValidateIdentifier(name); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidMod, err)
	}
	if !l.Exists(name) {
		return fmt.Errorf("%w: %s", domain.ErrModNotFound, name)
	}
	if err := l.fs.RemoveAll(l.Path(name)); err != nil {
		return domain.FilesystemError("remove", l.Path(name), err)
	}
	return nil
}

// Manifest reads the mod's modinfo.toml. Returns nil without error when the
// mod has none.
func (l *Library) Manifest(name string) (*domain.ModManifest, error) {
	data, err := l.fs.ReadFile(filepath.Join(l.Path(name), domain.ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m domain.ModManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", domain.ManifestFile, err)
	}
	return &m, nil
}
