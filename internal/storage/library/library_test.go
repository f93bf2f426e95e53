package library_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bblaunch/internal/domain"
	"bblaunch/internal/fsops"
	"bblaunch/internal/storage/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newLibrary(t *testing.T) (*library.Library, string) {
	t.Helper()
	root := t.TempDir()
	return library.New(fsops.NewRealFS(), root), root
}

func TestList_SkipsFilesAndHiddenDirs(t *testing.T) {
	lib, root := newLibrary(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Zeta"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Alpha"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".staging"), 0755))
	writeFile(t, filepath.Join(root, "ActiveMods.txt"), "Alpha\n")

	names, err := lib.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Zeta"}, names)
}

func TestList_MissingRoot(t *testing.T) {
	lib := library.New(fsops.NewRealFS(), filepath.Join(t.TempDir(), "missing"))

	names, err := lib.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestResolve_WithDvdRoot(t *testing.T) {
	lib, root := newLibrary(t)
	writeFile(t, filepath.Join(root, "A", "dvdroot_ps4", "parts", "a.dcx"), "a")

	folder, err := lib.Resolve("A")
	require.NoError(t, err)
	assert.True(t, folder.HasDvdRoot)
	assert.Equal(t, filepath.Join(root, "A", "dvdroot_ps4"), folder.SourceRoot)
}

func TestResolve_WithGameDataFolder(t *testing.T) {
	lib, root := newLibrary(t)
	writeFile(t, filepath.Join(root, "B", "chr", "c0000.chrbnd.dcx"), "b")

	folder, err := lib.Resolve("B")
	require.NoError(t, err)
	assert.False(t, folder.HasDvdRoot)
	assert.Equal(t, filepath.Join(root, "B"), folder.SourceRoot)
}

func TestResolve_Invalid(t *testing.T) {
	lib, root := newLibrary(t)
	writeFile(t, filepath.Join(root, "Textures", "readme.txt"), "nothing useful")
	writeFile(t, filepath.Join(root, "Textures", "images", "a.png"), "png")

	_, err := lib.Resolve("Textures")
	assert.ErrorIs(t, err, domain.ErrInvalidMod)
}

func TestResolve_NotFound(t *testing.T) {
	lib, _ := newLibrary(t)

	_, err := lib.Resolve("Missing")
	assert.ErrorIs(t, err, domain.ErrModNotFound)

	_, err = lib.Resolve("../escape")
	assert.ErrorIs(t, err, domain.ErrInvalidMod)
}

func TestListFiles_SkipsManifestAtSourceRoot(t *testing.T) {
	lib, root := newLibrary(t)
	writeFile(t, filepath.Join(root, "B", "modinfo.toml"), `name = "B"`)
	writeFile(t, filepath.Join(root, "B", "parts", "z.dcx"), "z")
	writeFile(t, filepath.Join(root, "B", "parts", "a.dcx"), "a")

	folder, err := lib.Resolve("B")
	require.NoError(t, err)

	files, err := lib.ListFiles(folder)
	require.NoError(t, err)
	assert.Equal(t, []string{"parts/a.dcx", "parts/z.dcx"}, files)

	size, err := lib.Size(folder)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)
}

func TestManifest(t *testing.T) {
	lib, root := newLibrary(t)
	writeFile(t, filepath.Join(root, "A", "modinfo.toml"), `
name = "Better Armor"
version = "1.2.0"
author = "someone"
description = "Retextured hunter armor"
`)
	writeFile(t, filepath.Join(root, "A", "parts", "a.dcx"), "a")

	m, err := lib.Manifest("A")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Better Armor", m.Name)
	assert.Equal(t, "1.2.0", m.Version)

	folder, err := lib.Resolve("A")
	require.NoError(t, err)
	require.NotNil(t, folder.Manifest)
	assert.Equal(t, "someone", folder.Manifest.Author)
}

func TestManifest_Absent(t *testing.T) {
	lib, root := newLibrary(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "A"), 0755))

	m, err := lib.Manifest("A")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestManifest_Malformed(t *testing.T) {
	lib, root := newLibrary(t)
	writeFile(t, filepath.Join(root, "A", "modinfo.toml"), "name = ")
	writeFile(t, filepath.Join(root, "A", "parts", "a.dcx"), "a")

	_, err := lib.Manifest("A")
	assert.Error(t, err)

	folder, err := lib.Resolve("A")
	require.NoError(t, err)
	assert.Nil(t, folder.Manifest)
}

func TestDelete(t *testing.T) {
	lib, root := newLibrary(t)
	writeFile(t, filepath.Join(root, "A", "parts", "a.dcx"), "a")

	require.NoError(t, lib.Delete("A"))
	assert.False(t, lib.Exists("A"))

	assert.ErrorIs(t, lib.Delete("A"), domain.ErrModNotFound)
}

// readDirFailFS fails every directory listing
type readDirFailFS struct {
	fsops.FS
	err error
}

func (f *readDirFailFS) ReadDir(string) ([]os.DirEntry, error) {
	return nil, f.err
}

func TestListAndResolve_UseInjectedFS(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "B", "chr", "c0000.chrbnd.dcx"), "b")
	injected := errors.New("disk gone")
	lib := library.New(&readDirFailFS{FS: fsops.NewRealFS(), err: injected}, root)

	_, err := lib.List()
	assert.ErrorIs(t, err, injected)

	_, err = lib.Resolve("B")
	assert.ErrorIs(t, err, injected)
	assert.NotErrorIs(t, err, domain.ErrInvalidMod)
}
