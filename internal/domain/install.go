package domain

import (
	"path/filepath"
	"time"
)

// LinkMethod determines how mod files are placed into the install tree
type LinkMethod int

const (
	LinkCopy     LinkMethod = iota // Default: real copy (what the game expects)
	LinkHardlink                   // Hardlink (no extra space, same filesystem only)
	LinkSymlink                    // Symlink (debugging layouts)
)

func (m LinkMethod) String() string {
	switch m {
	case LinkCopy:
		return "copy"
	case LinkHardlink:
		return "hardlink"
	case LinkSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// ParseLinkMethod converts a string to LinkMethod
func ParseLinkMethod(s string) LinkMethod {
	switch s {
	case "hardlink":
		return LinkHardlink
	case "symlink":
		return LinkSymlink
	default:
		return LinkCopy
	}
}

// ConflictMatch selects how a candidate path is compared against recorded
// modified-file paths.
type ConflictMatch int

const (
	MatchExact     ConflictMatch = iota // Relative paths must be equal
	MatchSubstring                      // Recorded path contains the candidate (legacy)
)

func (m ConflictMatch) String() string {
	if m == MatchSubstring {
		return "substring"
	}
	return "exact"
}

// ParseConflictMatch converts a string to ConflictMatch
func ParseConflictMatch(s string) ConflictMatch {
	if s == "substring" {
		return MatchSubstring
	}
	return MatchExact
}

// SaveConfig controls periodic snapshots of an install's save data
type SaveConfig struct {
	Path       string        // Save-data directory of the emulator
	BackupPath string        // Where snapshots are written
	Keep       int           // Snapshots retained by Prune, 0 keeps all
	Interval   time.Duration // Ticker interval for the watch worker
	Compress   bool          // Write .tar.lz4 archives instead of plain copies
}

// IsEmpty returns true if save backups are not configured
func (s SaveConfig) IsEmpty() bool {
	return s.Path == ""
}

// Install is one game installation the launcher manages
type Install struct {
	ID                 string // Unique slug, e.g., "bloodborne-us"
	Name               string // Display name
	InstallPath        string // Game directory containing dvdroot_ps4
	ModsPath           string // Mods root; also holds the registry files
	BackupPath         string // Originals partition root
	UniqueBackupPath   string // Unique partition root
	LinkMethod         LinkMethod
	LinkMethodExplicit bool // True if LinkMethod was explicitly set in config
	ConflictMatch      ConflictMatch
	Hooks              InstallHooks
	Saves              SaveConfig
}

// DvdRootPath returns the install tree root
func (i *Install) DvdRootPath() string {
	return filepath.Join(i.InstallPath, DvdRoot)
}
