package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
	"bblaunch/internal/logging"
	"bblaunch/internal/storage/config"
	"bblaunch/internal/storage/db"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir string // Directory for configuration files
	DataDir   string // Overrides data_path from config.yaml when set
	NoHooks   bool   // Skip every hook script
}

// Service is the main orchestrator: it owns the configuration, the journal
// database and one Engine per install.
type Service struct {
	config   *config.Config
	db       *db.DB
	fs       fsops.FS
	hooks    *HookRunner
	installs map[string]*domain.Install

	mu      sync.Mutex
	engines map[string]*Engine

	configDir string
	dataDir   string
	log       zerolog.Logger
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	appConfig, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = appConfig.DataPath
	}
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	database, err := db.New(config.DefaultDBPath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	installs, err := config.LoadInstalls(cfg.ConfigDir)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("loading installs: %w", err)
	}
	for _, inst := range installs {
		config.ApplyDefaults(inst, dataDir, appConfig.DefaultLinkMethod)
	}

	var hooks *HookRunner
	if !cfg.NoHooks {
		hooks = NewHookRunner(appConfig.HookTimeout)
	}

	return &Service{
		config:    appConfig,
		db:        database,
		fs:        fsops.NewRealFS(),
		hooks:     hooks,
		installs:  installs,
		engines:   make(map[string]*Engine),
		configDir: cfg.ConfigDir,
		dataDir:   dataDir,
		log:       logging.GetLogger("service"),
	}, nil
}

// Close releases resources held by the service
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Config returns the loaded global configuration
func (s *Service) Config() *config.Config {
	return s.config
}

// ConfigDir returns the configuration directory
func (s *Service) ConfigDir() string {
	return s.configDir
}

// DataDir returns the resolved data directory
func (s *Service) DataDir() string {
	return s.dataDir
}

// DB returns the database
func (s *Service) DB() *db.DB {
	return s.db
}

// GetInstall retrieves an install by ID
func (s *Service) GetInstall(id string) (*domain.Install, error) {
	inst, ok := s.installs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInstallNotFound, id)
	}
	return inst, nil
}

// ListInstalls returns all configured installs sorted by ID
func (s *Service) ListInstalls() []*domain.Install {
	out := make([]*domain.Install, 0, len(s.installs))
	for _, inst := range s.installs {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddInstall saves a new or updated install. Unset paths are filled with
// defaults under the data directory but not written to installs.yaml.
func (s *Service) AddInstall(inst *domain.Install) error {
	if err := s.fs.ValidateIdentifier(inst.ID); err != nil {
		return fmt.Errorf("%w: install id: %v", domain.ErrInvalidConfig, err)
	}
	if inst.InstallPath == "" {
		return fmt.Errorf("%w: install_path is required", domain.ErrInvalidConfig)
	}
	if err := config.SaveInstall(s.configDir, inst); err != nil {
		return err
	}
	config.ApplyDefaults(inst, s.dataDir, s.config.DefaultLinkMethod)

	s.mu.Lock()
	delete(s.engines, inst.ID)
	s.mu.Unlock()
	s.installs[inst.ID] = inst
	return nil
}

// InstallSettings are the per-install options that can change after the
// install is added
type InstallSettings struct {
	ConflictMatch domain.ConflictMatch
	SavesKeep     int
	SavesInterval time.Duration
}

// UpdateInstallSettings rewrites an install's conflict matching and save
// snapshot options in installs.yaml. Paths that were defaulted stay out of the
// file. Save options are ignored when save backups are not configured.
func (s *Service) UpdateInstallSettings(id string, set InstallSettings) error {
	inst, err := s.GetInstall(id)
	if err != nil {
		return err
	}
	stored, err := config.LoadInstalls(s.configDir)
	if err != nil {
		return err
	}
	raw, ok := stored[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrInstallNotFound, id)
	}

	raw.ConflictMatch = set.ConflictMatch
	if !raw.Saves.IsEmpty() {
		raw.Saves.Keep = set.SavesKeep
		raw.Saves.Interval = set.SavesInterval
	}
	if err := config.SaveInstall(s.configDir, raw); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	inst.ConflictMatch = raw.ConflictMatch
	inst.Saves.Keep = raw.Saves.Keep
	inst.Saves.Interval = raw.Saves.Interval
	delete(s.engines, id)

	s.log.Info().Str("install", id).Str("conflict_match", inst.ConflictMatch.String()).Msg("Install settings updated")
	return nil
}

// RemoveInstall forgets an install. Refuses while any of its mods is active,
// since the originals would be stranded in the backup store.
func (s *Service) RemoveInstall(id string) error {
	engine, err := s.Engine(id)
	if err != nil {
		return err
	}
	active, err := engine.Registry().ActiveMods()
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return fmt.Errorf("%w: %d mods still active on %s, purge first", domain.ErrModActive, len(active), id)
	}
	if err := config.DeleteInstall(s.configDir, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.engines, id)
	s.mu.Unlock()
	delete(s.installs, id)

	if s.config.DefaultInstall == id {
		s.config.DefaultInstall = ""
		return s.config.Save(s.configDir)
	}
	return nil
}

// SetDefaultInstall records id as the install used when none is given
func (s *Service) SetDefaultInstall(id string) error {
	if _, err := s.GetInstall(id); err != nil {
		return err
	}
	s.config.DefaultInstall = id
	return s.config.Save(s.configDir)
}

// ResolveInstallID picks the install to act on: the explicit flag, then the
// configured default, then the only install if there is exactly one.
func (s *Service) ResolveInstallID(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if s.config.DefaultInstall != "" {
		return s.config.DefaultInstall, nil
	}
	if len(s.installs) == 1 {
		for id := range s.installs {
			return id, nil
		}
	}
	if len(s.installs) == 0 {
		return "", fmt.Errorf("%w: no installs configured (use 'bblaunch install add')", domain.ErrInstallNotFound)
	}
	return "", fmt.Errorf("no install specified (use --install or set a default with 'bblaunch install set-default')")
}

// Engine returns the engine of an install, creating it on first use
func (s *Service) Engine(id string) (*Engine, error) {
	inst, err := s.GetInstall(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[id]; ok {
		return e, nil
	}
	e := NewEngine(inst, EngineOptions{FS: s.fs, DB: s.db, Hooks: s.hooks})
	s.engines[id] = e
	return e, nil
}

// ListMods returns every folder in the install's mods root with its state.
// Invalid folders are listed with Valid false rather than failing the call.
func (s *Service) ListMods(id string) ([]domain.ModStatus, error) {
	engine, err := s.Engine(id)
	if err != nil {
		return nil, err
	}
	names, err := engine.Library().List()
	if err != nil {
		return nil, err
	}
	active, err := engine.Registry().ActiveMods()
	if err != nil {
		return nil, err
	}
	conflicts, err := engine.Registry().ConflictMods()
	if err != nil {
		return nil, err
	}

	order := make(map[string]int, len(active))
	for i, m := range active {
		order[m] = i + 1
	}
	onStack := make(map[string]bool, len(conflicts))
	for _, m := range conflicts {
		onStack[m] = true
	}

	statuses := make([]domain.ModStatus, 0, len(names))
	for _, name := range names {
		st := domain.ModStatus{
			Folder:      domain.ModFolder{Name: name, Path: engine.Library().Path(name)},
			Active:      order[name] > 0,
			Conflicting: onStack[name],
			Order:       order[name],
		}
		folder, err := engine.Library().Resolve(name)
		if err != nil {
			st.Invalid = err
		} else {
			st.Folder = folder
			st.Valid = true
			if size, err := engine.Library().Size(folder); err == nil {
				st.Size = size
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// Conflicts returns every path claimed by more than one active mod
func (s *Service) Conflicts(id string) ([]ContestedPath, error) {
	engine, err := s.Engine(id)
	if err != nil {
		return nil, err
	}
	records, err := engine.Registry().ModifiedFiles()
	if err != nil {
		return nil, err
	}
	return ContestedPaths(records), nil
}

// PendingConflicts returns the conflicts activating mod would cause, so a UI
// can ask before calling Activate.
func (s *Service) PendingConflicts(id, mod string) ([]Conflict, error) {
	engine, err := s.Engine(id)
	if err != nil {
		return nil, err
	}
	folder, err := engine.Library().Resolve(mod)
	if err != nil {
		return nil, err
	}
	files, err := engine.Library().ListFiles(folder)
	if err != nil {
		return nil, err
	}
	records, err := engine.Registry().ModifiedFiles()
	if err != nil {
		return nil, err
	}
	return engine.Resolver().Scan(withoutMod(records, mod), files), nil
}

// VerifyState is the outcome of checking one deployed file
type VerifyState string

const (
	VerifyOK        VerifyState = "ok"
	VerifyMissing   VerifyState = "missing"
	VerifyModified  VerifyState = "modified"
	VerifyUntracked VerifyState = "untracked" // No checksum recorded for the owner
)

// VerifyEntry is the verification result of one deployed path
type VerifyEntry struct {
	Path  string
	Mod   string
	State VerifyState
}

// Verify compares every deployed file against the checksum recorded when its
// owning mod was activated.
func (s *Service) Verify(id string) ([]VerifyEntry, error) {
	engine, err := s.Engine(id)
	if err != nil {
		return nil, err
	}
	records, err := engine.Registry().ModifiedFiles()
	if err != nil {
		return nil, err
	}
	stored, err := s.db.GetInstallFiles(id)
	if err != nil {
		return nil, err
	}

	type key struct{ mod, path string }
	sums := make(map[key]string, len(stored))
	for _, f := range stored {
		sums[key{f.Mod, f.RelativePath}] = f.Checksum
	}

	// The last record of a path is the mod whose file is deployed
	owners := make(map[string]string)
	var paths []string
	for _, r := range records {
		if _, seen := owners[r.Path]; !seen {
			paths = append(paths, r.Path)
		}
		owners[r.Path] = r.Mod
	}
	sort.Strings(paths)

	root := engine.Install().DvdRootPath()
	entries := make([]VerifyEntry, 0, len(paths))
	for _, p := range paths {
		entry := VerifyEntry{Path: p, Mod: owners[p]}
		want, tracked := sums[key{entry.Mod, p}]
		got, err := Checksum(filepath.Join(root, filepath.FromSlash(p)))
		switch {
		case errors.Is(err, os.ErrNotExist):
			entry.State = VerifyMissing
		case err != nil:
			return nil, domain.FilesystemError("read", p, err)
		case !tracked:
			entry.State = VerifyUntracked
		case got != want:
			entry.State = VerifyModified
		default:
			entry.State = VerifyOK
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Purge deactivates every active mod. Conflicting mods come off the top of
// the conflict stack first, then the rest in reverse activation order.
// Returns the mods deactivated before any failure.
func (s *Service) Purge(ctx context.Context, id string, progress domain.ProgressFunc) ([]string, error) {
	engine, err := s.Engine(id)
	if err != nil {
		return nil, err
	}

	var done []string
	for {
		active, err := engine.Registry().ActiveMods()
		if err != nil {
			return done, err
		}
		if len(active) == 0 {
			return done, nil
		}
		stack, err := engine.Registry().ConflictMods()
		if err != nil {
			return done, err
		}

		next := active[len(active)-1]
		if len(stack) > 0 {
			next = stack[len(stack)-1]
		}
		for _, d := range done {
			if d == next {
				return done, fmt.Errorf("%s is still active after deactivation", next)
			}
		}
		if _, err := engine.Deactivate(ctx, next, progress); err != nil {
			if errors.Is(err, domain.ErrBackupMissing) {
				// Already dropped from the registry, keep going
				s.log.Warn().Str("mod", next).Msg("Backup missing during purge")
				done = append(done, next)
				continue
			}
			return done, fmt.Errorf("deactivating %s: %w", next, err)
		}
		done = append(done, next)
	}
}

// History returns the newest journal events of an install
func (s *Service) History(id string, limit int) ([]db.HistoryEvent, error) {
	if _, err := s.GetInstall(id); err != nil {
		return nil, err
	}
	return s.db.GetHistory(id, limit)
}

// SaveBackup returns the save-data snapshot worker of an install
func (s *Service) SaveBackup(id string) (*SaveBackup, error) {
	inst, err := s.GetInstall(id)
	if err != nil {
		return nil, err
	}
	if inst.Saves.IsEmpty() {
		return nil, fmt.Errorf("%w: install %s has no saves.path configured", domain.ErrInvalidConfig, id)
	}
	return NewSaveBackup(id, inst.Saves, s.fs), nil
}
