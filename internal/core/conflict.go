package core

import (
	"sort"
	"strings"

	"bblaunch/internal/domain"
)

// Conflict is a mod file whose path is already claimed by an active mod
type Conflict struct {
	Path  string
	Owner string
}

// ConfirmFunc is asked once, on the first conflict found during activation.
// Returning false cancels the activation.
type ConfirmFunc func(Conflict) bool

// ConflictResolver matches candidate paths against modified-file records
type ConflictResolver struct {
	match domain.ConflictMatch
}

// NewConflictResolver creates a resolver for the given match mode
func NewConflictResolver(match domain.ConflictMatch) *ConflictResolver {
	return &ConflictResolver{match: match}
}

// Matches reports whether a recorded path collides with candidate
func (r *ConflictResolver) Matches(recorded, candidate string) bool {
	if r.match == domain.MatchSubstring {
		return strings.Contains(recorded, candidate)
	}
	return recorded == candidate
}

// Find returns the first record colliding with candidate
func (r *ConflictResolver) Find(records []domain.ModifiedFile, candidate string) (Conflict, bool) {
	for _, rec := range records {
		if r.Matches(rec.Path, candidate) {
			return Conflict{Path: candidate, Owner: rec.Mod}, true
		}
	}
	return Conflict{}, false
}

// withoutMod returns the records not owned by mod
func withoutMod(records []domain.ModifiedFile, mod string) []domain.ModifiedFile {
	kept := make([]domain.ModifiedFile, 0, len(records))
	for _, rec := range records {
		if rec.Mod != mod {
			kept = append(kept, rec)
		}
	}
	return kept
}

// Scan returns every conflict between files and records, in file order
func (r *ConflictResolver) Scan(records []domain.ModifiedFile, files []string) []Conflict {
	var conflicts []Conflict
	for _, f := range files {
		if c, ok := r.Find(records, f); ok {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts
}

// ContestedPath is a path claimed by more than one active mod. Mods are in
// claim order; the last one's file is what the install tree holds.
type ContestedPath struct {
	Path string
	Mods []string
}

// Owner returns the mod whose file is currently deployed
func (c ContestedPath) Owner() string {
	return c.Mods[len(c.Mods)-1]
}

// ContestedPaths groups records by path and keeps those claimed more than once
func ContestedPaths(records []domain.ModifiedFile) []ContestedPath {
	byPath := make(map[string][]string)
	var order []string
	for _, rec := range records {
		if _, seen := byPath[rec.Path]; !seen {
			order = append(order, rec.Path)
		}
		byPath[rec.Path] = append(byPath[rec.Path], rec.Mod)
	}

	var out []ContestedPath
	for _, p := range order {
		if len(byPath[p]) > 1 {
			out = append(out, ContestedPath{Path: p, Mods: byPath[p]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
