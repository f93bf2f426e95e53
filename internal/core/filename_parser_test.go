package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"bblaunch/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArchiveFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     core.ParsedFilename
	}{
		{
			name:     "nexusmods pattern",
			filename: "Cainhurst Recolor-4521-1-2.zip",
			want:     core.ParsedFilename{Name: "Cainhurst Recolor", ModID: "4521", Version: "1.2"},
		},
		{
			name:     "nexusmods pattern with timestamp suffix",
			filename: "FPS Unlock-30379-2-2-6-1703618069.7z",
			want:     core.ParsedFilename{Name: "FPS Unlock", ModID: "30379", Version: "2.2.6"},
		},
		{
			name:     "nexusmods pattern with dashed name",
			filename: "Old-Hunters-Armor-266-4-3-0a.zip",
			want:     core.ParsedFilename{Name: "Old-Hunters-Armor", ModID: "266", Version: "4.3.0a"},
		},
		{
			name:     "v-prefixed version",
			filename: "Lantern Glow v1.2.rar",
			want:     core.ParsedFilename{Name: "Lantern Glow", Version: "1.2"},
		},
		{
			name:     "underscore version",
			filename: "/downloads/HUD_Tweaks_3_0_1.zip",
			want:     core.ParsedFilename{Name: "HUD_Tweaks", Version: "3.0.1"},
		},
		{
			name:     "no version",
			filename: "my-cool-mod.zip",
			want:     core.ParsedFilename{Name: "my-cool-mod"},
		},
		{
			name:     "digits without separator stay in the name",
			filename: "Chalice2.zip",
			want:     core.ParsedFilename{Name: "Chalice2"},
		},
		{
			name:     "double extension",
			filename: "Doll Outfit-1.0.tar.lz4",
			want:     core.ParsedFilename{Name: "Doll Outfit", Version: "1.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.ParseArchiveFilename(tt.filename))
		})
	}
}

func TestDetectModName(t *testing.T) {
	t.Run("empty path uses archive name", func(t *testing.T) {
		assert.Equal(t, "MyMod", core.DetectModName("", "MyMod-123-1-0.zip"))
	})

	t.Run("single wrapper directory names the mod", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "Better Blood", "dvdroot_ps4"), 0755))

		assert.Equal(t, "Better Blood", core.DetectModName(dir, "archive-12345-1-0.zip"))
	})

	t.Run("single dvdroot directory is not a wrapper", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "dvdroot_ps4", "parts"), 0755))

		assert.Equal(t, "Hunter Set", core.DetectModName(dir, "Hunter Set v2.zip"))
	})

	t.Run("single game data directory is not a wrapper", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "sfx"), 0755))

		assert.Equal(t, "Particles", core.DetectModName(dir, "Particles.zip"))
	})

	t.Run("multiple entries fall back to archive name", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "parts"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("test"), 0644))

		assert.Equal(t, "CoolMod", core.DetectModName(dir, "CoolMod-99999-2-0.zip"))
	})

	t.Run("non-existent path falls back to archive name", func(t *testing.T) {
		assert.Equal(t, "SomeMod", core.DetectModName("/nonexistent/path", "SomeMod-22222-1-0.zip"))
	})
}
