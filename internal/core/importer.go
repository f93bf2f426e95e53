package core

import (
	"context"
	"fmt"
	"path/filepath"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
	"bblaunch/internal/storage/db"
	"bblaunch/internal/storage/library"
	"bblaunch/internal/storage/registry"

	"github.com/google/uuid"
)

// ImportOptions configures the import operation
type ImportOptions struct {
	Name    string // Explicit mod name (empty = detect from the archive)
	Replace bool   // Overwrite an existing inactive mod of the same name
}

// ImportResult contains the outcome of importing a mod
type ImportResult struct {
	Mod      domain.ModFolder
	Version  string // Parsed from the archive name, may be empty
	Files    int
	Replaced bool
}

// Importer brings mod archives and loose folders into the mods root
type Importer struct {
	fs        fsops.FS
	library   *library.Library
	registry  *registry.Registry
	extractor *Extractor
}

// NewImporter creates an Importer for one install's mods root
func NewImporter(fs fsops.FS, lib *library.Library, reg *registry.Registry) *Importer {
	return &Importer{
		fs:        fs,
		library:   lib,
		registry:  reg,
		extractor: NewExtractor(),
	}
}

// Import unpacks src (an archive or a directory) into the mods root. The
// content is staged in a hidden folder and validated before it is moved into
// place, so an invalid mod leaves nothing behind.
func (i *Importer) Import(ctx context.Context, src string, opts ImportOptions) (result *ImportResult, err error) {
	info, err := i.fs.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("import source not found: %w", err)
	}
	if !info.IsDir() && !i.extractor.CanExtract(src) {
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Base(src))
	}

	staging := filepath.Join(i.library.Root(), ".staging-"+uuid.NewString())
	defer func() {
		if rerr := i.fs.RemoveAll(staging); err == nil && rerr != nil {
			err = fmt.Errorf("removing staging directory: %w", rerr)
		}
	}()

	extracted := filepath.Join(staging, "extracted")
	if info.IsDir() {
		if err := copyTree(i.fs, src, extracted); err != nil {
			return nil, err
		}
	} else if err := i.extractor.Extract(ctx, src, extracted); err != nil {
		return nil, fmt.Errorf("extracting archive: %w", err)
	}

	parsed := ParseArchiveFilename(src)
	name := opts.Name
	if name == "" {
		if info.IsDir() {
			name = filepath.Base(filepath.Clean(src))
		} else {
			name = DetectModName(extracted, src)
		}
	}
	if err := i.fs.ValidateIdentifier(name); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMod, err)
	}

	content := extracted
	if dir, ok := wrapperDir(extracted); ok {
		content = filepath.Join(extracted, dir)
	}

	// Validate in place before touching the mods root
	stage := library.New(i.fs, staging)
	stagedName := "mod"
	if err := i.fs.Move(content, stage.Path(stagedName)); err != nil {
		return nil, fmt.Errorf("staging mod: %w", err)
	}
	if _, err := stage.Resolve(stagedName); err != nil {
		return nil, err
	}

	replaced, err := i.clearTarget(name, opts.Replace)
	if err != nil {
		return nil, err
	}
	if err := i.fs.Move(stage.Path(stagedName), i.library.Path(name)); err != nil {
		return nil, domain.FilesystemError("move", i.library.Path(name), err)
	}

	folder, err := i.library.Resolve(name)
	if err != nil {
		return nil, err
	}
	files, err := i.library.ListFiles(folder)
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		Mod:      folder,
		Version:  parsed.Version,
		Files:    len(files),
		Replaced: replaced,
	}, nil
}

// clearTarget makes room for name in the mods root
func (i *Importer) clearTarget(name string, replace bool) (bool, error) {
	if !i.library.Exists(name) {
		return false, nil
	}
	if !replace {
		return false, fmt.Errorf("%w: %s", domain.ErrModExists, name)
	}
	active, err := i.registry.IsActive(name)
	if err != nil {
		return false, err
	}
	if active {
		return false, fmt.Errorf("%w: deactivate %s before replacing it", domain.ErrModActive, name)
	}
	if err := i.library.Delete(name); err != nil {
		return false, err
	}
	return true, nil
}

// Import brings a mod into the install's mods root and records the outcome
func (e *Engine) Import(ctx context.Context, src string, opts ImportOptions) (*ImportResult, error) {
	opID := uuid.NewString()
	log := e.log.With().Str("op", opID).Str("source", src).Logger()

	result, err := NewImporter(e.fs, e.library, e.registry).Import(ctx, src, opts)
	name := opts.Name
	if result != nil {
		name = result.Mod.Name
	}
	e.record(db.HistoryEvent{Mod: name, Action: db.ActionImport, OpID: opID}, err)
	if err != nil {
		return nil, err
	}

	log.Info().Str("mod", name).Int("files", result.Files).Bool("replaced", result.Replaced).Msg("Mod imported")
	return result, nil
}

// RemoveMod deletes an inactive mod folder from the mods root
func (e *Engine) RemoveMod(name string) (err error) {
	defer func() {
		e.record(db.HistoryEvent{Mod: name, Action: db.ActionRemove}, err)
	}()

	if err := e.fs.ValidateIdentifier(name); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidMod, err)
	}
	active, err := e.registry.IsActive(name)
	if err != nil {
		return err
	}
	if active {
		return fmt.Errorf("%w: %s", domain.ErrModActive, name)
	}
	if err := e.library.Delete(name); err != nil {
		return err
	}
	e.log.Info().Str("mod", name).Msg("Mod removed")
	return nil
}
