package core

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"bblaunch/internal/domain"
)

// ParsedFilename is what can be learned about a mod from its archive name
type ParsedFilename struct {
	Name    string // Mod name with ID and version removed
	ModID   string // NexusMods mod ID, empty when absent
	Version string // Normalized version, empty when absent
}

// nexusPattern matches NexusMods downloads: Name-ModID-Version
// Example: Bloodborne Enhanced-123-1-2 -> Bloodborne Enhanced, 123, 1-2
// The ID has 2+ digits to tell it apart from version components.
var nexusPattern = regexp.MustCompile(`^(.+?)-(\d{2,})-(\d[^.]*)$`)

// versionPattern matches a trailing version: "Name v1.2", "Name_1.2.3", "Name-2a"
var versionPattern = regexp.MustCompile(`^(.+?)[ _-]+[vV]?(\d+(?:[._-]\d+)*[a-zA-Z]?)$`)

// timestampSuffix matches the upload timestamp NexusMods appends to versions
var timestampSuffix = regexp.MustCompile(`-\d{10,}$`)

// ParseArchiveFilename splits an archive filename such as
// "Cool Mod-4521-1-2-1703618069.zip" or "Cool Mod v1.2.7z" into name, ID and
// version. Unknown shapes yield the bare name.
func ParseArchiveFilename(filename string) ParsedFilename {
	base := stripArchiveExt(filename)

	if m := nexusPattern.FindStringSubmatch(base); m != nil {
		version := timestampSuffix.ReplaceAllString(m[3], "")
		return ParsedFilename{
			Name:    m[1],
			ModID:   m[2],
			Version: strings.ReplaceAll(version, "-", "."),
		}
	}

	if m := versionPattern.FindStringSubmatch(base); m != nil {
		version := strings.NewReplacer("-", ".", "_", ".").Replace(m[2])
		return ParsedFilename{Name: m[1], Version: version}
	}

	return ParsedFilename{Name: base}
}

// DetectModName picks the mods-root folder name for an imported mod.
// A single top-level directory in the extracted content names the mod unless
// it is itself dvdroot_ps4 or a game-data folder; otherwise the archive
// filename does, minus its ID and version.
func DetectModName(extractedPath, archiveFilename string) string {
	if dir, ok := wrapperDir(extractedPath); ok {
		return dir
	}
	return ParseArchiveFilename(archiveFilename).Name
}

// wrapperDir reports the single top-level directory of path when that
// directory wraps the mod rather than being part of its layout.
func wrapperDir(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	entries, err := os.ReadDir(path)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return "", false
	}
	name := entries[0].Name()
	if name == domain.DvdRoot || domain.IsGameDataFolder(name) {
		return "", false
	}
	return name, true
}

// stripArchiveExt removes the path and a (possibly double) archive extension
func stripArchiveExt(filename string) string {
	filename = filepath.Base(filename)
	if lower := strings.ToLower(filename); strings.HasSuffix(lower, ".tar.lz4") {
		return filename[:len(filename)-len(".tar.lz4")]
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
