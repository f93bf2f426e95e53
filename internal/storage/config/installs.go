package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bblaunch/internal/domain"

	"gopkg.in/yaml.v3"
)

// InstallConfig is the YAML representation of an install
type InstallConfig struct {
	Name             string              `yaml:"name"`
	InstallPath      string              `yaml:"install_path"`
	ModsPath         string              `yaml:"mods_path,omitempty"`
	BackupPath       string              `yaml:"backup_path,omitempty"`
	UniqueBackupPath string              `yaml:"unique_backup_path,omitempty"`
	LinkMethod       string              `yaml:"link_method,omitempty"`
	ConflictMatch    string              `yaml:"conflict_match,omitempty"`
	Hooks            domain.InstallHooks `yaml:"hooks,omitempty"`
	Saves            *SavesConfig        `yaml:"saves,omitempty"`
}

// SavesConfig is the YAML representation of save-data snapshots
type SavesConfig struct {
	Path       string        `yaml:"path"`
	BackupPath string        `yaml:"backup_path,omitempty"`
	Keep       int           `yaml:"keep,omitempty"`
	Interval   time.Duration `yaml:"interval,omitempty"`
	Compress   bool          `yaml:"compress,omitempty"`
}

// InstallsFile is the top-level installs.yaml structure
type InstallsFile struct {
	Installs map[string]InstallConfig `yaml:"installs"`
}

// LoadInstalls reads all install configurations from the config directory
func LoadInstalls(configDir string) (map[string]*domain.Install, error) {
	path := filepath.Join(configDir, "installs.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]*domain.Install), nil
		}
		return nil, fmt.Errorf("reading installs.yaml: %w", err)
	}

	var file InstallsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing installs.yaml: %v", domain.ErrInvalidConfig, err)
	}

	installs := make(map[string]*domain.Install)
	for id, cfg := range file.Installs {
		if cfg.InstallPath == "" {
			return nil, fmt.Errorf("%w: install %q has no install_path", domain.ErrInvalidConfig, id)
		}
		inst := &domain.Install{
			ID:                 id,
			Name:               cfg.Name,
			InstallPath:        ExpandPath(cfg.InstallPath),
			ModsPath:           ExpandPath(cfg.ModsPath),
			BackupPath:         ExpandPath(cfg.BackupPath),
			UniqueBackupPath:   ExpandPath(cfg.UniqueBackupPath),
			LinkMethod:         domain.ParseLinkMethod(cfg.LinkMethod),
			LinkMethodExplicit: cfg.LinkMethod != "",
			ConflictMatch:      domain.ParseConflictMatch(cfg.ConflictMatch),
			Hooks: domain.InstallHooks{
				Activate: domain.HookConfig{
					Before: ExpandPath(cfg.Hooks.Activate.Before),
					After:  ExpandPath(cfg.Hooks.Activate.After),
				},
				Deactivate: domain.HookConfig{
					Before: ExpandPath(cfg.Hooks.Deactivate.Before),
					After:  ExpandPath(cfg.Hooks.Deactivate.After),
				},
			},
		}
		if cfg.Saves != nil {
			inst.Saves = domain.SaveConfig{
				Path:       ExpandPath(cfg.Saves.Path),
				BackupPath: ExpandPath(cfg.Saves.BackupPath),
				Keep:       cfg.Saves.Keep,
				Interval:   cfg.Saves.Interval,
				Compress:   cfg.Saves.Compress,
			}
		}
		installs[id] = inst
	}

	return installs, nil
}

// SaveInstall adds or updates an install in installs.yaml
func SaveInstall(configDir string, inst *domain.Install) error {
	installs, err := LoadInstalls(configDir)
	if err != nil {
		return err
	}

	installs[inst.ID] = inst

	return saveInstalls(configDir, installs)
}

// DeleteInstall removes an install from installs.yaml
func DeleteInstall(configDir string, id string) error {
	installs, err := LoadInstalls(configDir)
	if err != nil {
		return err
	}

	if _, exists := installs[id]; !exists {
		return domain.ErrInstallNotFound
	}

	delete(installs, id)
	return saveInstalls(configDir, installs)
}

// ApplyDefaults fills unset per-install paths with locations under
// <dataDir>/<install id>/.
func ApplyDefaults(inst *domain.Install, dataDir string, defaultLink domain.LinkMethod) {
	base := filepath.Join(dataDir, inst.ID)
	if inst.ModsPath == "" {
		inst.ModsPath = filepath.Join(base, "mods")
	}
	if inst.BackupPath == "" {
		inst.BackupPath = filepath.Join(base, "backup")
	}
	if inst.UniqueBackupPath == "" {
		inst.UniqueBackupPath = filepath.Join(base, "unique-backup")
	}
	if !inst.LinkMethodExplicit {
		inst.LinkMethod = defaultLink
	}
	if !inst.Saves.IsEmpty() && inst.Saves.BackupPath == "" {
		inst.Saves.BackupPath = filepath.Join(base, "saves")
	}
}

func saveInstalls(configDir string, installs map[string]*domain.Install) error {
	file := InstallsFile{Installs: make(map[string]InstallConfig)}

	for id, inst := range installs {
		cfg := InstallConfig{
			Name:             inst.Name,
			InstallPath:      inst.InstallPath,
			ModsPath:         inst.ModsPath,
			BackupPath:       inst.BackupPath,
			UniqueBackupPath: inst.UniqueBackupPath,
			Hooks:            inst.Hooks,
		}
		if inst.LinkMethodExplicit {
			cfg.LinkMethod = inst.LinkMethod.String()
		}
		if inst.ConflictMatch != domain.MatchExact {
			cfg.ConflictMatch = inst.ConflictMatch.String()
		}
		if !inst.Saves.IsEmpty() {
			cfg.Saves = &SavesConfig{
				Path:       inst.Saves.Path,
				BackupPath: inst.Saves.BackupPath,
				Keep:       inst.Saves.Keep,
				Interval:   inst.Saves.Interval,
				Compress:   inst.Saves.Compress,
			}
		}
		file.Installs[id] = cfg
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshaling installs: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	path := filepath.Join(configDir, "installs.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing installs.yaml: %w", err)
	}

	return nil
}
