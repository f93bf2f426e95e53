package core

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
	"bblaunch/internal/linker"
	"bblaunch/internal/logging"
	"bblaunch/internal/storage/backup"
	"bblaunch/internal/storage/db"
	"bblaunch/internal/storage/library"
	"bblaunch/internal/storage/registry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EngineOptions configures optional collaborators of an Engine
type EngineOptions struct {
	FS    fsops.FS    // Defaults to the real filesystem
	DB    *db.DB      // Optional: nil disables checksums and history
	Hooks *HookRunner // Optional: nil disables hook scripts
}

// Engine activates and deactivates mods for a single install. It is not safe
// for concurrent use; callers serialize operations per install.
type Engine struct {
	install  *domain.Install
	fs       fsops.FS
	registry *registry.Registry
	library  *library.Library
	backups  *backup.Store
	linker   linker.Linker
	resolver *ConflictResolver
	db       *db.DB
	hooks    *HookRunner
	log      zerolog.Logger
}

// NewEngine creates an engine for an install whose paths are fully resolved
func NewEngine(inst *domain.Install, opts EngineOptions) *Engine {
	fs := opts.FS
	if fs == nil {
		fs = fsops.NewRealFS()
	}
	return &Engine{
		install:  inst,
		fs:       fs,
		registry: registry.New(fs, inst.ModsPath),
		library:  library.New(fs, inst.ModsPath),
		backups:  backup.New(fs, inst.BackupPath, inst.UniqueBackupPath),
		linker:   linker.New(inst.LinkMethod, fs),
		resolver: NewConflictResolver(inst.ConflictMatch),
		db:       opts.DB,
		hooks:    opts.Hooks,
		log:      logging.GetLogger("engine").With().Str("install", inst.ID).Logger(),
	}
}

// Install returns the install this engine manages
func (e *Engine) Install() *domain.Install { return e.install }

// Registry returns the install's registry files
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Library returns the install's mods root
func (e *Engine) Library() *library.Library { return e.library }

// Backups returns the install's backup partitions
func (e *Engine) Backups() *backup.Store { return e.backups }

// Resolver returns the conflict resolver in use
func (e *Engine) Resolver() *ConflictResolver { return e.resolver }

// ActivateOptions controls a single activation
type ActivateOptions struct {
	Confirm  ConfirmFunc // Nil declines any conflict
	Progress domain.ProgressFunc
}

// ActivateResult summarizes a completed activation
type ActivateResult struct {
	OpID        string `json:"op_id"`
	Mod         string `json:"mod"`
	Files       int    `json:"files"`
	Originals   int    `json:"originals"` // Files that displaced an original
	Unique      int    `json:"unique"`    // Files with no original
	Conflicting bool   `json:"conflicting"`
}

// DeactivateResult summarizes a completed deactivation
type DeactivateResult struct {
	OpID     string `json:"op_id"`
	Mod      string `json:"mod"`
	Deleted  int    `json:"deleted"`
	Restored int    `json:"restored"`
	Pruned   int    `json:"pruned"`
}

// Activate overlays a mod's files onto the install tree, backing up every
// file it displaces. Validation, cancellation and hook failures leave the
// install untouched. A filesystem failure aborts the current phase without
// rollback.
func (e *Engine) Activate(ctx context.Context, name string, opts ActivateOptions) (*ActivateResult, error) {
	opID := uuid.NewString()
	log := e.log.With().Str("op", opID).Str("mod", name).Logger()
	done := logging.LogOperationStart(log, "activate")
	defer done()

	result, err := e.activate(ctx, name, opID, opts, log)
	e.record(db.HistoryEvent{Mod: name, Action: db.ActionActivate, OpID: opID}, err)
	if err != nil {
		return nil, err
	}

	log.Info().Int("files", result.Files).Bool("conflict", result.Conflicting).Msg("Mod activated")
	e.runHook(ctx, HookActivateAfter, e.install.Hooks.Activate.After, name, opID, log)
	return result, nil
}

func (e *Engine) activate(ctx context.Context, name, opID string, opts ActivateOptions, log zerolog.Logger) (*ActivateResult, error) {
	folder, err := e.library.Resolve(name)
	if err != nil {
		return nil, err
	}

	active, err := e.registry.IsActive(name)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyActive, name)
	}

	files, err := e.library.ListFiles(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMod, err)
	}

	records, err := e.registry.ModifiedFiles()
	if err != nil {
		return nil, err
	}
	// Records left by an interrupted activation of this mod are replaced
	records = withoutMod(records, name)

	hasConflict := false
	for _, f := range files {
		c, ok := e.resolver.Find(records, f)
		if !ok {
			continue
		}
		log.Debug().Str("path", c.Path).Str("owner", c.Owner).Msg("Conflict found")
		if opts.Confirm == nil || !opts.Confirm(c) {
			return nil, fmt.Errorf("activating %s: %w", name, domain.ErrCancelled)
		}
		hasConflict = true
		break
	}

	if err := e.runBeforeHook(ctx, HookActivateBefore, e.install.Hooks.Activate.Before, name, opID); err != nil {
		return nil, err
	}

	for _, f := range files {
		records = append(records, domain.ModifiedFile{Path: f, Mod: name})
	}
	if err := e.registry.SetModifiedFiles(records); err != nil {
		return nil, err
	}

	result := &ActivateResult{OpID: opID, Mod: name, Files: len(files), Conflicting: hasConflict}
	dvdRoot := e.install.DvdRootPath()

	if err := e.backups.Ensure(name); err != nil {
		return nil, err
	}

	log.Debug().Int("files", len(files)).Msg("Backup phase")
	journal := make([]db.ModFile, 0, len(files))
	for i, f := range files {
		rel := filepath.FromSlash(f)
		installed := filepath.Join(dvdRoot, rel)
		src := filepath.Join(folder.SourceRoot, rel)

		unique, err := e.backupFile(name, rel, installed, src)
		if err != nil {
			return nil, err
		}
		if unique {
			result.Unique++
		} else {
			result.Originals++
		}
		journal = append(journal, db.ModFile{Mod: name, RelativePath: f, Unique: unique})
		report(opts.Progress, domain.PhaseBackup, name, i+1, len(files))
	}

	log.Debug().Int("files", len(files)).Str("method", e.linker.Method().String()).Msg("Copy phase")
	for i, f := range files {
		rel := filepath.FromSlash(f)
		src := filepath.Join(folder.SourceRoot, rel)
		dst := filepath.Join(dvdRoot, rel)
		if err := e.linker.Deploy(src, dst); err != nil {
			return nil, domain.FilesystemError("copy", dst, err)
		}
		report(opts.Progress, domain.PhaseCopy, name, i+1, len(files))
	}

	if err := e.registry.AppendEntry(registry.ActiveModsFile, name); err != nil {
		return nil, err
	}
	if hasConflict {
		if err := e.registry.AppendEntry(registry.ConflictModsFile, name); err != nil {
			return nil, err
		}
	}

	if e.db != nil {
		for i := range journal {
			sum, err := Checksum(filepath.Join(folder.SourceRoot, filepath.FromSlash(journal[i].RelativePath)))
			if err != nil {
				log.Warn().Err(err).Str("path", journal[i].RelativePath).Msg("Failed to checksum mod file")
				continue
			}
			journal[i].Checksum = sum
		}
		if err := e.db.SaveModFiles(e.install.ID, name, journal); err != nil {
			log.Warn().Err(err).Msg("Failed to record file checksums")
		}
	}

	return result, nil
}

// backupFile saves what the mod file at src is about to displace at
// installed and reports whether the file is unique to the mod. A backup left
// by an interrupted activation is never overwritten: the install tree may
// already hold the mod's own file.
func (e *Engine) backupFile(name, rel, installed, src string) (bool, error) {
	original := filepath.Join(e.backups.OriginalsPath(name), rel)
	unique := filepath.Join(e.backups.UniquePath(name), rel)

	for _, b := range []struct {
		path   string
		unique bool
	}{{original, false}, {unique, true}} {
		ok, err := e.fs.Exists(b.path)
		if err != nil {
			return false, domain.FilesystemError("stat", b.path, err)
		}
		if ok {
			return b.unique, nil
		}
	}

	exists, err := e.fs.Exists(installed)
	if err != nil {
		return false, domain.FilesystemError("stat", installed, err)
	}
	if exists {
		if err := e.fs.CopyFile(installed, original); err != nil {
			return false, domain.FilesystemError("backup", installed, err)
		}
		return false, nil
	}
	if err := e.fs.CopyFile(src, unique); err != nil {
		return false, domain.FilesystemError("backup", src, err)
	}
	return true, nil
}

// Deactivate removes a mod's files from the install tree and restores the
// originals it displaced. Conflict-acknowledged mods must be deactivated in
// reverse activation order. A mod whose activation failed partway is not
// active but still has backups, and deactivating it restores those.
func (e *Engine) Deactivate(ctx context.Context, name string, progress domain.ProgressFunc) (*DeactivateResult, error) {
	opID := uuid.NewString()
	log := e.log.With().Str("op", opID).Str("mod", name).Logger()
	done := logging.LogOperationStart(log, "deactivate")
	defer done()

	result, err := e.deactivate(ctx, name, opID, progress, log)
	e.record(db.HistoryEvent{Mod: name, Action: db.ActionDeactivate, OpID: opID}, err)
	if err != nil {
		return nil, err
	}

	log.Info().Int("deleted", result.Deleted).Int("restored", result.Restored).Msg("Mod deactivated")
	e.runHook(ctx, HookDeactivateAfter, e.install.Hooks.Deactivate.After, name, opID, log)
	return result, nil
}

func (e *Engine) deactivate(ctx context.Context, name, opID string, progress domain.ProgressFunc, log zerolog.Logger) (*DeactivateResult, error) {
	if err := e.fs.ValidateIdentifier(name); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMod, err)
	}

	active, err := e.registry.IsActive(name)
	if err != nil {
		return nil, err
	}
	hasOriginals, err := e.backups.HasOriginals(name)
	if err != nil {
		return nil, err
	}
	if !active && !hasOriginals {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotActive, name)
	}
	if !hasOriginals {
		e.forget(name, log)
		return nil, fmt.Errorf("%w: %s", domain.ErrBackupMissing, e.backups.OriginalsPath(name))
	}

	originals, unique, err := e.backups.Files(name)
	if err != nil {
		return nil, domain.FilesystemError("list", e.backups.OriginalsPath(name), err)
	}

	stack, err := e.registry.ConflictMods()
	if err != nil {
		return nil, err
	}
	onTop := len(stack) > 0 && stack[len(stack)-1] == name
	if active {
		if len(stack) > 0 && !onTop {
			return nil, fmt.Errorf("%w: deactivate %s first", domain.ErrConflictOrder, stack[len(stack)-1])
		}
	} else {
		log.Warn().Msg("Mod not active, undoing an interrupted activation")
		if err := e.checkOverlaid(name, append(append([]string{}, originals...), unique...)); err != nil {
			return nil, err
		}
	}

	if err := e.runBeforeHook(ctx, HookDeactivateBefore, e.install.Hooks.Deactivate.Before, name, opID); err != nil {
		return nil, err
	}

	if onTop {
		if err := e.registry.SetConflictMods(stack[:len(stack)-1]); err != nil {
			return nil, err
		}
	}

	result := &DeactivateResult{OpID: opID, Mod: name}
	dvdRoot := e.install.DvdRootPath()

	toDelete := append(append([]string{}, unique...), originals...)
	log.Debug().Int("files", len(toDelete)).Msg("Delete phase")
	for i, f := range toDelete {
		path := filepath.Join(dvdRoot, filepath.FromSlash(f))
		if err := e.fs.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, domain.FilesystemError("delete", path, err)
			}
			log.Debug().Str("path", f).Msg("Already absent")
		} else {
			result.Deleted++
		}
		report(progress, domain.PhaseDelete, name, i+1, len(toDelete))
	}

	pruned, err := e.pruneEmptyDirs(dvdRoot)
	if err != nil {
		return nil, err
	}
	result.Pruned = pruned

	log.Debug().Int("files", len(originals)).Msg("Restore phase")
	for i, f := range originals {
		rel := filepath.FromSlash(f)
		src := filepath.Join(e.backups.OriginalsPath(name), rel)
		dst := filepath.Join(dvdRoot, rel)
		if err := e.fs.Move(src, dst); err != nil {
			return nil, domain.FilesystemError("restore", dst, err)
		}
		result.Restored++
		report(progress, domain.PhaseRestore, name, i+1, len(originals))
	}

	if err := e.backups.Remove(name); err != nil {
		return nil, err
	}
	if err := e.registry.RemoveEntry(registry.ActiveModsFile, name); err != nil {
		return nil, err
	}
	if err := e.RebuildModifiedFiles(); err != nil {
		return nil, err
	}

	if e.db != nil {
		if err := e.db.DeleteModFiles(e.install.ID, name); err != nil {
			log.Warn().Err(err).Msg("Failed to clear file checksums")
		}
	}

	return result, nil
}

// checkOverlaid fails when an active mod has since claimed one of paths, so
// undoing name would pull files out from under it.
func (e *Engine) checkOverlaid(name string, paths []string) error {
	records, err := e.registry.ModifiedFiles()
	if err != nil {
		return err
	}
	active, err := e.registry.ActiveMods()
	if err != nil {
		return err
	}

	claimed := make(map[string]bool, len(paths))
	for _, p := range paths {
		claimed[p] = true
	}
	for i := len(active) - 1; i >= 0; i-- {
		if active[i] == name {
			continue
		}
		for _, rec := range records {
			if rec.Mod == active[i] && claimed[rec.Path] {
				return fmt.Errorf("%w: deactivate %s first", domain.ErrConflictOrder, active[i])
			}
		}
	}
	return nil
}

// RebuildModifiedFiles regenerates the modified-file records from the backup
// partitions of every active mod, in activation order.
func (e *Engine) RebuildModifiedFiles() error {
	mods, err := e.registry.ActiveMods()
	if err != nil {
		return err
	}

	var records []domain.ModifiedFile
	for _, mod := range mods {
		originals, unique, err := e.backups.Files(mod)
		if err != nil {
			return domain.FilesystemError("list", e.backups.OriginalsPath(mod), err)
		}
		paths := append(append([]string{}, originals...), unique...)
		sort.Strings(paths)
		for _, p := range paths {
			records = append(records, domain.ModifiedFile{Path: p, Mod: mod})
		}
	}
	return e.registry.SetModifiedFiles(records)
}

// forget drops every registry trace of a mod whose backups are gone. Each
// step is best effort so one failure does not block the others. The mod is
// also taken off the conflict stack wherever it sits; the entries above and
// below it keep their order.
func (e *Engine) forget(name string, log zerolog.Logger) {
	log.Warn().Msg("Backup missing, dropping mod from registry")

	if err := e.registry.RemoveEntry(registry.ActiveModsFile, name); err != nil {
		log.Warn().Err(err).Msg("Failed to update active mods")
	}
	if err := e.registry.RemoveEntry(registry.ConflictModsFile, name); err != nil {
		log.Warn().Err(err).Msg("Failed to update conflict mods")
	}
	if records, err := e.registry.ModifiedFiles(); err == nil {
		kept := records[:0]
		for _, r := range records {
			if r.Mod != name {
				kept = append(kept, r)
			}
		}
		if err := e.registry.SetModifiedFiles(kept); err != nil {
			log.Warn().Err(err).Msg("Failed to update modified files")
		}
	}
	if e.db != nil {
		if err := e.db.DeleteModFiles(e.install.ID, name); err != nil {
			log.Warn().Err(err).Msg("Failed to clear file checksums")
		}
	}
}

// pruneEmptyDirs removes empty directories under root, deepest first. The
// root itself is kept. Directories are collected before any removal.
func (e *Engine) pruneEmptyDirs(root string) (int, error) {
	dirs, err := e.fs.WalkDirs(root)
	if err != nil {
		return 0, domain.FilesystemError("walk", root, err)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], "/"), strings.Count(dirs[j], "/")
		if di != dj {
			return di > dj
		}
		return dirs[i] > dirs[j]
	})

	pruned := 0
	for _, d := range dirs {
		path := filepath.Join(root, filepath.FromSlash(d))
		empty, err := e.fs.IsEmptyDir(path)
		if err != nil {
			return pruned, domain.FilesystemError("read", path, err)
		}
		if !empty {
			continue
		}
		if err := e.fs.Remove(path); err != nil {
			return pruned, domain.FilesystemError("prune", path, err)
		}
		pruned++
	}
	return pruned, nil
}

func (e *Engine) runBeforeHook(ctx context.Context, hookName, script, mod, opID string) error {
	if e.hooks == nil || script == "" {
		return nil
	}
	if _, err := e.hooks.Run(ctx, script, e.hookContext(hookName, mod, opID)); err != nil {
		return fmt.Errorf("%s hook: %w", hookName, err)
	}
	return nil
}

func (e *Engine) runHook(ctx context.Context, hookName, script, mod, opID string, log zerolog.Logger) {
	if e.hooks == nil || script == "" {
		return
	}
	if _, err := e.hooks.Run(ctx, script, e.hookContext(hookName, mod, opID)); err != nil {
		log.Warn().Err(err).Str("hook", hookName).Msg("Hook failed")
	}
}

func (e *Engine) hookContext(hookName, mod, opID string) HookContext {
	return HookContext{
		InstallID:   e.install.ID,
		InstallPath: e.install.InstallPath,
		DvdRoot:     e.install.DvdRootPath(),
		ModsPath:    e.install.ModsPath,
		ModName:     mod,
		OpID:        opID,
		HookName:    hookName,
	}
}

func (e *Engine) record(event db.HistoryEvent, err error) {
	if e.db == nil {
		return
	}
	event.InstallID = e.install.ID
	event.Outcome = db.OutcomeOK
	if err != nil {
		event.Outcome = db.OutcomeFailed
		event.Detail = err.Error()
	}
	if dbErr := e.db.RecordEvent(event); dbErr != nil {
		e.log.Warn().Err(dbErr).Msg("Failed to record history")
	}
}

func report(fn domain.ProgressFunc, phase domain.Phase, mod string, processed, total int) {
	if fn != nil {
		fn(domain.Progress{Phase: phase, Mod: mod, Processed: processed, Total: total})
	}
}

// Checksum returns the sha256 digest of a file as "sha256:<hex>"
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}
