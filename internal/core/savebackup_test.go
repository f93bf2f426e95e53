package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bblaunch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSaveBackup(t *testing.T, compress bool) (*SaveBackup, *time.Time) {
	t.Helper()
	root := t.TempDir()
	cfg := domain.SaveConfig{
		Path:       filepath.Join(root, "savedata"),
		BackupPath: filepath.Join(root, "snapshots"),
		Compress:   compress,
	}
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Path, "CUSA00900", "slot0"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Path, "CUSA00900", "slot0", "userdata0000"), []byte("insight 20"), 0644))

	clock := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	sb := NewSaveBackup("bb", cfg, nil)
	sb.now = func() time.Time { return clock }
	return sb, &clock
}

func TestSaveBackup_SnapshotPlain(t *testing.T) {
	sb, _ := newTestSaveBackup(t, false)

	snap, err := sb.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, "20260314-093000", snap.Name)
	assert.False(t, snap.Compressed)
	assert.Equal(t, int64(len("insight 20")), snap.Size)
	data, err := os.ReadFile(filepath.Join(snap.Path, "CUSA00900", "slot0", "userdata0000"))
	require.NoError(t, err)
	assert.Equal(t, "insight 20", string(data))
}

func TestSaveBackup_SnapshotNameCollision(t *testing.T) {
	sb, _ := newTestSaveBackup(t, false)

	first, err := sb.Snapshot()
	require.NoError(t, err)
	second, err := sb.Snapshot()
	require.NoError(t, err)
	third, err := sb.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, "20260314-093000", first.Name)
	assert.Equal(t, "20260314-093000-2", second.Name)
	assert.Equal(t, "20260314-093000-3", third.Name)

	snaps, err := sb.List()
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, first.Name, snaps[0].Name)
	assert.Equal(t, third.Name, snaps[2].Name)
}

func TestSaveBackup_CompressedRoundTrip(t *testing.T) {
	sb, _ := newTestSaveBackup(t, true)

	snap, err := sb.Snapshot()
	require.NoError(t, err)
	assert.True(t, snap.Compressed)
	assert.Equal(t, "20260314-093000.tar.lz4", snap.Name)
	assert.FileExists(t, snap.Path)

	// Progress made after the snapshot is rolled back by a restore
	save := filepath.Join(sb.cfg.Path, "CUSA00900", "slot0", "userdata0000")
	require.NoError(t, os.WriteFile(save, []byte("insight 0"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sb.cfg.Path, "stray"), []byte("x"), 0644))

	require.NoError(t, sb.Restore(context.Background(), snap.Name, ""))

	data, err := os.ReadFile(save)
	require.NoError(t, err)
	assert.Equal(t, "insight 20", string(data))
	assert.NoFileExists(t, filepath.Join(sb.cfg.Path, "stray"))
}

func TestSaveBackup_RestorePlainToOtherDir(t *testing.T) {
	sb, _ := newTestSaveBackup(t, false)
	snap, err := sb.Snapshot()
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "restored")
	require.NoError(t, sb.Restore(context.Background(), snap.Name, dst))

	data, err := os.ReadFile(filepath.Join(dst, "CUSA00900", "slot0", "userdata0000"))
	require.NoError(t, err)
	assert.Equal(t, "insight 20", string(data))
}

func TestSaveBackup_FailedRestoreKeepsSaveData(t *testing.T) {
	sb, _ := newTestSaveBackup(t, true)
	snap, err := sb.Snapshot()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(snap.Path, []byte("not an lz4 stream"), 0644))

	save := filepath.Join(sb.cfg.Path, "CUSA00900", "slot0", "userdata0000")
	require.NoError(t, os.WriteFile(save, []byte("insight 40"), 0644))

	err = sb.Restore(context.Background(), snap.Name, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), snap.Name)

	data, err := os.ReadFile(save)
	require.NoError(t, err)
	assert.Equal(t, "insight 40", string(data))

	// No staging or set-aside directories are left next to the save path
	entries, err := os.ReadDir(filepath.Dir(sb.cfg.Path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "leftover %s", e.Name())
	}
}

func TestSaveBackup_RestoreLeavesNoStaging(t *testing.T) {
	sb, _ := newTestSaveBackup(t, false)
	snap, err := sb.Snapshot()
	require.NoError(t, err)

	require.NoError(t, sb.Restore(context.Background(), snap.Name, ""))

	entries, err := os.ReadDir(filepath.Dir(sb.cfg.Path))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"savedata", "snapshots"}, names)
}

func TestSaveBackup_RestoreRejectsBadNames(t *testing.T) {
	sb, _ := newTestSaveBackup(t, false)

	assert.Error(t, sb.Restore(context.Background(), "../etc", ""))
	assert.Error(t, sb.Restore(context.Background(), "not-a-snapshot", ""))
	assert.Error(t, sb.Restore(context.Background(), "20260314-093000", ""))

	// Nothing was cleared
	assert.FileExists(t, filepath.Join(sb.cfg.Path, "CUSA00900", "slot0", "userdata0000"))
}

func TestSaveBackup_Prune(t *testing.T) {
	sb, clock := newTestSaveBackup(t, false)
	for i := 0; i < 4; i++ {
		_, err := sb.Snapshot()
		require.NoError(t, err)
		*clock = clock.Add(time.Hour)
	}
	// Unrelated entries in the backup dir are ignored
	require.NoError(t, os.WriteFile(filepath.Join(sb.cfg.BackupPath, "notes.txt"), []byte("x"), 0644))

	removed, err := sb.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260314-093000", "20260314-103000"}, removed)

	snaps, err := sb.List()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "20260314-113000", snaps[0].Name)
	assert.Equal(t, "20260314-123000", snaps[1].Name)

	removed, err = sb.Prune(0)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestSaveBackup_ListMissingDir(t *testing.T) {
	sb, _ := newTestSaveBackup(t, false)

	snaps, err := sb.List()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSaveBackup_SnapshotErrors(t *testing.T) {
	sb := NewSaveBackup("bb", domain.SaveConfig{}, nil)
	_, err := sb.Snapshot()
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	sb = NewSaveBackup("bb", domain.SaveConfig{Path: filepath.Join(t.TempDir(), "missing"), BackupPath: t.TempDir()}, nil)
	_, err = sb.Snapshot()
	require.ErrorIs(t, err, domain.ErrFilesystem)
}

func TestSaveBackup_Run(t *testing.T) {
	sb, _ := newTestSaveBackup(t, false)
	sb.cfg.Interval = 10 * time.Millisecond
	sb.cfg.Keep = 1

	var tick time.Time
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	sb.now = func() time.Time {
		tick = tick.Add(time.Second)
		return base.Add(tick.Sub(time.Time{}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sb.Run(ctx) }()

	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(sb.cfg.BackupPath)
		return err == nil && len(entries) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	snaps, err := sb.List()
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestSaveBackup_RunNeedsInterval(t *testing.T) {
	sb, _ := newTestSaveBackup(t, false)
	require.ErrorIs(t, sb.Run(context.Background()), domain.ErrInvalidConfig)
}
