package domain

import (
	"fmt"
	"strings"
)

// DvdRoot is the directory inside a game install (and optionally inside a mod
// folder) that mirrors the game's data layout.
const DvdRoot = "dvdroot_ps4"

// ManifestFile is the optional metadata file at the root of a mod folder.
const ManifestFile = "modinfo.toml"

// GameDataFolders are the top-level folders of dvdroot_ps4. A mod folder
// without a dvdroot_ps4 subdirectory must contain at least one of these.
var GameDataFolders = []string{
	"action", "chr", "event", "facegen", "map", "menu", "movie", "msg",
	"mtd", "obj", "other", "param", "paramdef", "parts", "remo", "script",
	"sfx", "shader", "sound",
}

// IsGameDataFolder reports whether name is one of GameDataFolders.
func IsGameDataFolder(name string) bool {
	for _, f := range GameDataFolders {
		if f == name {
			return true
		}
	}
	return false
}

// ModManifest is the optional modinfo.toml shipped with a mod
type ModManifest struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Author      string `toml:"author"`
	Description string `toml:"description"`
}

// ModFolder is a mod extracted into the mods root
type ModFolder struct {
	Name       string       // Folder name, used as the mod's identity
	Path       string       // Absolute path of the folder
	SourceRoot string       // Directory whose contents overlay dvdroot_ps4
	HasDvdRoot bool         // True if SourceRoot is Path/dvdroot_ps4
	Manifest   *ModManifest // Nil when no modinfo.toml is present
}

// ModifiedFile records that a mod displaced (or introduced) a file in the
// install tree. Path is relative to dvdroot_ps4 and uses forward slashes.
type ModifiedFile struct {
	Path string
	Mod  string
}

// String renders the record in its registry line form.
func (f ModifiedFile) String() string {
	return f.Path + ", " + f.Mod
}

// ParseModifiedFile parses a "<relative_path>, <mod_name>" registry line.
// The split happens on the last ", " so paths containing commas survive.
func ParseModifiedFile(line string) (ModifiedFile, error) {
	idx := strings.LastIndex(line, ", ")
	if idx <= 0 || idx+2 >= len(line) {
		return ModifiedFile{}, fmt.Errorf("malformed modified-file entry: %q", line)
	}
	return ModifiedFile{Path: line[:idx], Mod: line[idx+2:]}, nil
}

// ModStatus is a mod folder together with its activation state
type ModStatus struct {
	Folder      ModFolder
	Active      bool
	Conflicting bool  // On the conflict stack
	Order       int   // 1-based activation order, 0 if inactive
	Size        int64 // Bytes under the source root
	Valid       bool
	Invalid     error // Why the folder failed validation
}

// Phase names a step of an activation or deactivation
type Phase string

const (
	PhaseBackup  Phase = "backup"
	PhaseCopy    Phase = "copy"
	PhaseDelete  Phase = "delete"
	PhaseRestore Phase = "restore"
)

// Progress is reported once per file processed in a phase
type Progress struct {
	Phase     Phase
	Mod       string
	Processed int // 1-based count of files processed in this phase
	Total     int // Files in this phase, known before the phase starts
}

// ProgressFunc receives per-file progress. It runs synchronously on the
// caller's goroutine.
type ProgressFunc func(Progress)
