package core_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bblaunch/internal/core"
	"bblaunch/internal/domain"
	"bblaunch/internal/storage/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc  *core.Service
	inst *domain.Install
}

// newService creates a service with one install "bb" whose paths default
// under the data directory.
func newService(t *testing.T) *serviceFixture {
	t.Helper()
	root := t.TempDir()
	svc, err := core.NewService(core.ServiceConfig{
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
		NoHooks:   true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	inst := &domain.Install{ID: "bb", Name: "Bloodborne", InstallPath: filepath.Join(root, "game")}
	require.NoError(t, os.MkdirAll(inst.DvdRootPath(), 0755))
	require.NoError(t, svc.AddInstall(inst))
	return &serviceFixture{svc: svc, inst: inst}
}

func (f *serviceFixture) mod(t *testing.T, name, rel, content string) {
	writeFile(t, filepath.Join(f.inst.ModsPath, name, domain.DvdRoot, rel), content)
}

func (f *serviceFixture) game(t *testing.T, rel, content string) {
	writeFile(t, filepath.Join(f.inst.DvdRootPath(), rel), content)
}

func (f *serviceFixture) activate(t *testing.T, name string) {
	t.Helper()
	engine, err := f.svc.Engine("bb")
	require.NoError(t, err)
	_, err = engine.Activate(context.Background(), name, core.ActivateOptions{Confirm: accept})
	require.NoError(t, err)
}

func TestNewService(t *testing.T) {
	f := newService(t)

	assert.NotNil(t, f.svc.DB())
	assert.FileExists(t, filepath.Join(f.svc.DataDir(), "bblaunch.db"))
	assert.Equal(t, filepath.Join(f.svc.DataDir(), "bb", "mods"), f.inst.ModsPath)
	assert.Equal(t, filepath.Join(f.svc.DataDir(), "bb", "backup"), f.inst.BackupPath)
	assert.Equal(t, filepath.Join(f.svc.DataDir(), "bb", "unique-backup"), f.inst.UniqueBackupPath)
}

func TestService_InstallsPersist(t *testing.T) {
	f := newService(t)
	require.NoError(t, f.svc.SetDefaultInstall("bb"))

	reopened, err := core.NewService(core.ServiceConfig{ConfigDir: f.svc.ConfigDir(), DataDir: f.svc.DataDir()})
	require.NoError(t, err)
	defer reopened.Close()

	inst, err := reopened.GetInstall("bb")
	require.NoError(t, err)
	assert.Equal(t, "Bloodborne", inst.Name)
	assert.Equal(t, f.inst.ModsPath, inst.ModsPath)
	assert.Equal(t, "bb", reopened.Config().DefaultInstall)

	_, err = reopened.GetInstall("ds")
	assert.ErrorIs(t, err, domain.ErrInstallNotFound)
}

func TestService_ResolveInstallID(t *testing.T) {
	f := newService(t)

	id, err := f.svc.ResolveInstallID("")
	require.NoError(t, err)
	assert.Equal(t, "bb", id, "single install is picked")

	id, err = f.svc.ResolveInstallID("other")
	require.NoError(t, err)
	assert.Equal(t, "other", id, "flag wins")

	require.NoError(t, f.svc.AddInstall(&domain.Install{ID: "bb-eu", InstallPath: t.TempDir()}))
	_, err = f.svc.ResolveInstallID("")
	assert.Error(t, err, "ambiguous without a default")

	require.NoError(t, f.svc.SetDefaultInstall("bb-eu"))
	id, err = f.svc.ResolveInstallID("")
	require.NoError(t, err)
	assert.Equal(t, "bb-eu", id)
}

func TestService_AddInstallValidates(t *testing.T) {
	f := newService(t)

	assert.ErrorIs(t, f.svc.AddInstall(&domain.Install{ID: "../x", InstallPath: "/g"}), domain.ErrInvalidConfig)
	assert.ErrorIs(t, f.svc.AddInstall(&domain.Install{ID: "x"}), domain.ErrInvalidConfig)
}

func TestService_RemoveInstall(t *testing.T) {
	f := newService(t)
	f.mod(t, "A", "parts/a.dcx", "a")
	f.activate(t, "A")
	require.NoError(t, f.svc.SetDefaultInstall("bb"))

	require.ErrorIs(t, f.svc.RemoveInstall("bb"), domain.ErrModActive)

	_, err := f.svc.Purge(context.Background(), "bb", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveInstall("bb"))

	assert.Empty(t, f.svc.ListInstalls())
	assert.Empty(t, f.svc.Config().DefaultInstall)
	assert.ErrorIs(t, f.svc.RemoveInstall("bb"), domain.ErrInstallNotFound)
}

func TestService_ListMods(t *testing.T) {
	f := newService(t)
	f.mod(t, "A", "parts/a.dcx", "aaaa")
	f.mod(t, "B", "parts/a.dcx", "bb")
	require.NoError(t, os.MkdirAll(filepath.Join(f.inst.ModsPath, "Broken", "notes"), 0755))
	f.activate(t, "A")
	f.activate(t, "B")

	mods, err := f.svc.ListMods("bb")
	require.NoError(t, err)
	require.Len(t, mods, 3)

	assert.Equal(t, "A", mods[0].Folder.Name)
	assert.True(t, mods[0].Active)
	assert.Equal(t, 1, mods[0].Order)
	assert.False(t, mods[0].Conflicting)
	assert.Equal(t, int64(4), mods[0].Size)

	assert.Equal(t, "B", mods[1].Folder.Name)
	assert.Equal(t, 2, mods[1].Order)
	assert.True(t, mods[1].Conflicting)

	assert.Equal(t, "Broken", mods[2].Folder.Name)
	assert.False(t, mods[2].Valid)
	assert.ErrorIs(t, mods[2].Invalid, domain.ErrInvalidMod)
	assert.False(t, mods[2].Active)
}

func TestService_ConflictsAndPending(t *testing.T) {
	f := newService(t)
	f.mod(t, "A", "parts/a.dcx", "a")
	f.mod(t, "A", "chr/c.dcx", "a")
	f.mod(t, "B", "parts/a.dcx", "b")
	f.mod(t, "C", "map/m.dcx", "c")
	f.activate(t, "A")

	pending, err := f.svc.PendingConflicts("bb", "B")
	require.NoError(t, err)
	assert.Equal(t, []core.Conflict{{Path: "parts/a.dcx", Owner: "A"}}, pending)

	pending, err = f.svc.PendingConflicts("bb", "C")
	require.NoError(t, err)
	assert.Empty(t, pending)

	f.activate(t, "B")
	contested, err := f.svc.Conflicts("bb")
	require.NoError(t, err)
	require.Len(t, contested, 1)
	assert.Equal(t, "parts/a.dcx", contested[0].Path)
	assert.Equal(t, []string{"A", "B"}, contested[0].Mods)
	assert.Equal(t, "B", contested[0].Owner())
}

func TestService_Verify(t *testing.T) {
	f := newService(t)
	f.game(t, "parts/a.dcx", "orig")
	f.mod(t, "A", "parts/a.dcx", "a")
	f.mod(t, "A", "chr/c.dcx", "c")
	f.mod(t, "A", "map/m.dcx", "m")
	f.activate(t, "A")

	require.NoError(t, os.WriteFile(filepath.Join(f.inst.DvdRootPath(), "chr", "c.dcx"), []byte("tampered"), 0644))
	require.NoError(t, os.Remove(filepath.Join(f.inst.DvdRootPath(), "map", "m.dcx")))

	entries, err := f.svc.Verify("bb")
	require.NoError(t, err)
	assert.Equal(t, []core.VerifyEntry{
		{Path: "chr/c.dcx", Mod: "A", State: core.VerifyModified},
		{Path: "map/m.dcx", Mod: "A", State: core.VerifyMissing},
		{Path: "parts/a.dcx", Mod: "A", State: core.VerifyOK},
	}, entries)
}

func TestService_VerifyUntracked(t *testing.T) {
	f := newService(t)
	f.mod(t, "A", "parts/a.dcx", "a")
	f.activate(t, "A")
	require.NoError(t, f.svc.DB().DeleteModFiles("bb", "A"))

	entries, err := f.svc.Verify("bb")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.VerifyUntracked, entries[0].State)
}

func TestService_PurgeUnwindsConflictStack(t *testing.T) {
	f := newService(t)
	f.game(t, "parts/a.dcx", "orig")
	f.mod(t, "A", "parts/a.dcx", "a")
	f.mod(t, "B", "parts/a.dcx", "b")
	f.mod(t, "C", "map/m.dcx", "c")
	f.activate(t, "A")
	f.activate(t, "B")
	f.activate(t, "C")

	done, err := f.svc.Purge(context.Background(), "bb", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, done)

	data, err := os.ReadFile(filepath.Join(f.inst.DvdRootPath(), "parts", "a.dcx"))
	require.NoError(t, err)
	assert.Equal(t, "orig", string(data))
	assert.NoFileExists(t, filepath.Join(f.inst.DvdRootPath(), "map", "m.dcx"))

	mods, err := f.svc.ListMods("bb")
	require.NoError(t, err)
	for _, m := range mods {
		assert.False(t, m.Active, m.Folder.Name)
	}
}

func TestService_PurgeSkipsMissingBackups(t *testing.T) {
	f := newService(t)
	f.game(t, "parts/a.dcx", "orig")
	f.mod(t, "A", "parts/a.dcx", "a")
	f.activate(t, "A")
	require.NoError(t, os.RemoveAll(filepath.Join(f.inst.BackupPath, "A")))

	done, err := f.svc.Purge(context.Background(), "bb", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, done)
}

func TestService_History(t *testing.T) {
	f := newService(t)
	f.mod(t, "A", "parts/a.dcx", "a")
	f.activate(t, "A")

	engine, err := f.svc.Engine("bb")
	require.NoError(t, err)
	_, err = engine.Deactivate(context.Background(), "A", nil)
	require.NoError(t, err)

	events, err := f.svc.History("bb", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, db.ActionDeactivate, events[0].Action)
	assert.Equal(t, db.ActionActivate, events[1].Action)
	assert.Equal(t, db.OutcomeOK, events[1].Outcome)

	_, err = f.svc.History("nope", 0)
	assert.ErrorIs(t, err, domain.ErrInstallNotFound)
}

func TestService_SaveBackup(t *testing.T) {
	f := newService(t)
	_, err := f.svc.SaveBackup("bb")
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	saves := t.TempDir()
	writeFile(t, filepath.Join(saves, "slot0", "userdata0000"), "save")
	f.inst.Saves = domain.SaveConfig{Path: saves}
	require.NoError(t, f.svc.AddInstall(f.inst))

	sb, err := f.svc.SaveBackup("bb")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.svc.DataDir(), "bb", "saves"), sb.Config().BackupPath)

	snap, err := sb.Snapshot()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(snap.Path, "slot0", "userdata0000"))
}

func TestService_UpdateInstallSettings(t *testing.T) {
	f := newService(t)
	f.mod(t, "A", "parts/x.dcx.bak", "a")
	f.mod(t, "B", "parts/x.dcx", "b")
	f.activate(t, "A")

	f.inst.Saves = domain.SaveConfig{Path: t.TempDir(), Keep: 3}
	require.NoError(t, f.svc.AddInstall(f.inst))
	inst, err := f.svc.GetInstall("bb")
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateInstallSettings("bb", core.InstallSettings{
		ConflictMatch: domain.MatchSubstring,
		SavesKeep:     10,
		SavesInterval: 30 * time.Minute,
	}))

	assert.Equal(t, domain.MatchSubstring, inst.ConflictMatch)
	assert.Equal(t, 10, inst.Saves.Keep)
	assert.Equal(t, 30*time.Minute, inst.Saves.Interval)

	// The cached engine is rebuilt with the new matching mode
	pending, err := f.svc.PendingConflicts("bb", "B")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	reopened, err := core.NewService(core.ServiceConfig{ConfigDir: f.svc.ConfigDir(), DataDir: f.svc.DataDir()})
	require.NoError(t, err)
	defer reopened.Close()
	stored, err := reopened.GetInstall("bb")
	require.NoError(t, err)
	assert.Equal(t, domain.MatchSubstring, stored.ConflictMatch)
	assert.Equal(t, 10, stored.Saves.Keep)
	assert.Equal(t, 30*time.Minute, stored.Saves.Interval)

	assert.ErrorIs(t, f.svc.UpdateInstallSettings("nope", core.InstallSettings{}), domain.ErrInstallNotFound)
}
