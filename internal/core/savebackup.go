package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
	"bblaunch/internal/logging"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// snapshotLayout names snapshots so that lexical order is creation order
const snapshotLayout = "20060102-150405"

const snapshotArchiveExt = ".tar.lz4"

// Snapshot is one saved copy of an install's save data
type Snapshot struct {
	Name       string
	Path       string
	Created    time.Time
	Size       int64
	Compressed bool
}

// SaveBackup snapshots an emulator save-data directory. It shares no state
// with the Engine and may run on its own goroutine.
type SaveBackup struct {
	cfg       domain.SaveConfig
	fs        fsops.FS
	extractor *Extractor
	log       zerolog.Logger
	now       func() time.Time
}

// NewSaveBackup creates a save backup worker for one install
func NewSaveBackup(installID string, cfg domain.SaveConfig, fs fsops.FS) *SaveBackup {
	if fs == nil {
		fs = fsops.NewRealFS()
	}
	return &SaveBackup{
		cfg:       cfg,
		fs:        fs,
		extractor: NewExtractor(),
		log:       logging.GetLogger("saves").With().Str("install", installID).Logger(),
		now:       time.Now,
	}
}

// Config returns the save backup settings in use
func (s *SaveBackup) Config() domain.SaveConfig {
	return s.cfg
}

// Snapshot copies the save-data directory into a new timestamped snapshot
func (s *SaveBackup) Snapshot() (Snapshot, error) {
	if s.cfg.IsEmpty() {
		return Snapshot{}, fmt.Errorf("%w: save path not configured", domain.ErrInvalidConfig)
	}
	info, err := s.fs.Stat(s.cfg.Path)
	if err != nil {
		return Snapshot{}, domain.FilesystemError("stat", s.cfg.Path, err)
	}
	if !info.IsDir() {
		return Snapshot{}, fmt.Errorf("%w: save path %s is not a directory", domain.ErrInvalidConfig, s.cfg.Path)
	}
	if err := s.fs.MkdirAll(s.cfg.BackupPath, 0755); err != nil {
		return Snapshot{}, domain.FilesystemError("mkdir", s.cfg.BackupPath, err)
	}

	name, err := s.nextName()
	if err != nil {
		return Snapshot{}, err
	}

	dst := filepath.Join(s.cfg.BackupPath, name)
	if s.cfg.Compress {
		dst += snapshotArchiveExt
		if err := PackTarLZ4(s.cfg.Path, dst); err != nil {
			return Snapshot{}, err
		}
	} else if err := copyTree(s.fs, s.cfg.Path, dst); err != nil {
		s.fs.RemoveAll(dst)
		return Snapshot{}, err
	}

	snap, err := s.describe(filepath.Base(dst))
	if err != nil {
		return Snapshot{}, err
	}
	s.log.Info().Str("snapshot", snap.Name).Int64("bytes", snap.Size).Msg("Save data backed up")
	return snap, nil
}

// nextName returns a timestamp name not yet taken by a snapshot
func (s *SaveBackup) nextName() (string, error) {
	base := s.now().Format(snapshotLayout)
	for n := 1; ; n++ {
		name := base
		if n > 1 {
			name = base + "-" + strconv.Itoa(n)
		}
		taken := false
		for _, candidate := range []string{name, name + snapshotArchiveExt} {
			exists, err := s.fs.Exists(filepath.Join(s.cfg.BackupPath, candidate))
			if err != nil {
				return "", domain.FilesystemError("stat", candidate, err)
			}
			taken = taken || exists
		}
		if !taken {
			return name, nil
		}
	}
}

// List returns every snapshot, oldest first
func (s *SaveBackup) List() ([]Snapshot, error) {
	entries, err := s.fs.ReadDir(s.cfg.BackupPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		if _, ok := parseSnapshotTime(e.Name()); !ok {
			continue
		}
		snap, err := s.describe(e.Name())
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].Created.Equal(snaps[j].Created) {
			return snaps[i].Created.Before(snaps[j].Created)
		}
		return snapshotSeq(snaps[i].Name) < snapshotSeq(snaps[j].Name)
	})
	return snaps, nil
}

// Prune removes the oldest snapshots so that at most keep remain. keep <= 0
// keeps everything. Returns the names removed.
func (s *SaveBackup) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	snaps, err := s.List()
	if err != nil {
		return nil, err
	}

	var removed []string
	for len(snaps) > keep {
		if err := s.fs.RemoveAll(snaps[0].Path); err != nil {
			return removed, domain.FilesystemError("remove", snaps[0].Path, err)
		}
		removed = append(removed, snaps[0].Name)
		snaps = snaps[1:]
	}
	if len(removed) > 0 {
		s.log.Debug().Strs("snapshots", removed).Msg("Pruned save snapshots")
	}
	return removed, nil
}

// Restore replaces dst (the save path when empty) with a snapshot's contents.
// The snapshot is unpacked next to dst first, so a failed restore leaves the
// current save data in place.
func (s *SaveBackup) Restore(ctx context.Context, name, dst string) error {
	if err := s.fs.ValidateIdentifier(name); err != nil {
		return fmt.Errorf("invalid snapshot name: %w", err)
	}
	if dst == "" {
		dst = s.cfg.Path
	}
	if dst == "" {
		return fmt.Errorf("%w: save path not configured", domain.ErrInvalidConfig)
	}

	snap, err := s.describe(name)
	if err != nil {
		return err
	}

	parent := filepath.Dir(dst)
	if err := s.fs.MkdirAll(parent, 0755); err != nil {
		return domain.FilesystemError("mkdir", parent, err)
	}
	tag := uuid.NewString()[:8]
	staging := filepath.Join(parent, "."+filepath.Base(dst)+".restore-"+tag)
	defer s.fs.RemoveAll(staging)

	if snap.Compressed {
		if err := s.extractor.Extract(ctx, snap.Path, staging); err != nil {
			return fmt.Errorf("restoring %s: %w", name, err)
		}
	} else if err := copyTree(s.fs, snap.Path, staging); err != nil {
		return fmt.Errorf("restoring %s: %w", name, err)
	}

	if err := s.swap(staging, dst, tag); err != nil {
		return err
	}
	s.log.Info().Str("snapshot", name).Str("dest", dst).Msg("Save data restored")
	return nil
}

// swap moves staging into place at dst. The previous dst is kept aside until
// the move succeeds and put back if it fails.
func (s *SaveBackup) swap(staging, dst, tag string) error {
	exists, err := s.fs.Exists(dst)
	if err != nil {
		return domain.FilesystemError("stat", dst, err)
	}
	if !exists {
		if err := s.fs.Move(staging, dst); err != nil {
			return domain.FilesystemError("move", dst, err)
		}
		return nil
	}

	aside := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".replaced-"+tag)
	if err := s.fs.Move(dst, aside); err != nil {
		return domain.FilesystemError("move", dst, err)
	}
	if err := s.fs.Move(staging, dst); err != nil {
		if rerr := s.fs.Move(aside, dst); rerr != nil {
			s.log.Error().Err(rerr).Str("kept", aside).Msg("Could not put previous save data back")
		}
		return domain.FilesystemError("move", dst, err)
	}
	if err := s.fs.RemoveAll(aside); err != nil {
		s.log.Warn().Err(err).Str("path", aside).Msg("Failed to remove replaced save data")
	}
	return nil
}

// Run snapshots on every interval tick until ctx is done. Failures are
// logged and the worker keeps going.
func (s *SaveBackup) Run(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("%w: save backup interval must be positive", domain.ErrInvalidConfig)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.cfg.Interval).Msg("Save backup worker started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Save backup worker stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Snapshot(); err != nil {
				s.log.Error().Err(err).Msg("Save snapshot failed")
				continue
			}
			if _, err := s.Prune(s.cfg.Keep); err != nil {
				s.log.Error().Err(err).Msg("Pruning save snapshots failed")
			}
		}
	}
}

func (s *SaveBackup) describe(name string) (Snapshot, error) {
	created, ok := parseSnapshotTime(name)
	if !ok {
		return Snapshot{}, fmt.Errorf("not a snapshot: %s", name)
	}
	path := filepath.Join(s.cfg.BackupPath, name)
	info, err := s.fs.Stat(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", name, err)
	}

	snap := Snapshot{
		Name:       name,
		Path:       path,
		Created:    created,
		Compressed: !info.IsDir(),
		Size:       info.Size(),
	}
	if info.IsDir() {
		snap.Size = 0
		files, err := s.fs.WalkFiles(path)
		if err != nil {
			return Snapshot{}, domain.FilesystemError("walk", path, err)
		}
		for _, f := range files {
			if fi, err := s.fs.Stat(filepath.Join(path, filepath.FromSlash(f))); err == nil {
				snap.Size += fi.Size()
			}
		}
	}
	return snap, nil
}

func parseSnapshotTime(name string) (time.Time, bool) {
	name = strings.TrimSuffix(name, snapshotArchiveExt)
	if len(name) < len(snapshotLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(snapshotLayout, name[:len(snapshotLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	if rest := name[len(snapshotLayout):]; rest != "" && snapshotSeq(name) == 0 {
		return time.Time{}, false
	}
	return t, true
}

// snapshotSeq is the collision suffix of a snapshot name, 1 when absent
func snapshotSeq(name string) int {
	name = strings.TrimSuffix(name, snapshotArchiveExt)
	rest := name[len(snapshotLayout):]
	if rest == "" {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimPrefix(rest, "-"))
	if err != nil || !strings.HasPrefix(rest, "-") || n < 2 {
		return 0
	}
	return n
}

// copyTree copies every file and directory under src into dst
func copyTree(fs fsops.FS, src, dst string) error {
	files, err := fs.WalkFiles(src)
	if err != nil {
		return domain.FilesystemError("walk", src, err)
	}
	dirs, err := fs.WalkDirs(src)
	if err != nil {
		return domain.FilesystemError("walk", src, err)
	}
	for _, d := range append([]string{"."}, dirs...) {
		path := filepath.Join(dst, filepath.FromSlash(d))
		if err := fs.MkdirAll(path, 0755); err != nil {
			return domain.FilesystemError("mkdir", path, err)
		}
	}
	for _, f := range files {
		from := filepath.Join(src, filepath.FromSlash(f))
		if err := fs.CopyFile(from, filepath.Join(dst, filepath.FromSlash(f))); err != nil {
			return domain.FilesystemError("copy", from, err)
		}
	}
	return nil
}
