package views_test

import (
	"errors"
	"testing"

	"bblaunch/internal/domain"
	"bblaunch/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMods() []domain.ModStatus {
	return []domain.ModStatus{
		{
			Folder: domain.ModFolder{Name: "Hunter Set", Manifest: &domain.ModManifest{Version: "1.2", Author: "Gehrman"}},
			Active: true, Order: 1, Valid: true, Size: 2048,
		},
		{Folder: domain.ModFolder{Name: "Lamps"}, Valid: true, Size: 10},
		{Folder: domain.ModFolder{Name: "Broken"}, Invalid: errors.New("no dvdroot_ps4")},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMods_View(t *testing.T) {
	inst := &domain.Install{ID: "bb", Name: "Bloodborne", InstallPath: "/games/bb"}
	model := views.NewMods(inst, testMods())

	view := model.View()
	assert.Contains(t, view, "3 mods, 1 active")
	assert.Contains(t, view, "[1] Hunter Set")
	assert.Contains(t, view, "Lamps")
	assert.Contains(t, view, "[!] Broken")
	assert.Contains(t, view, "2.0 kB")
	assert.Contains(t, view, "Gehrman")
}

func TestMods_Empty(t *testing.T) {
	model := views.NewMods(nil, nil)

	assert.Contains(t, model.View(), "No mods")
	_, cmd := model.Update(key(" "))
	assert.Nil(t, cmd)
}

func TestMods_Toggle(t *testing.T) {
	model := views.NewMods(nil, testMods())

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := newModel.Update(key(" "))
	require.NotNil(t, cmd)

	msg, ok := cmd().(views.ToggleModMsg)
	require.True(t, ok)
	assert.Equal(t, "Lamps", msg.Mod.Folder.Name)
}

func TestMods_ToggleIgnoresInvalid(t *testing.T) {
	model := views.NewMods(nil, testMods())

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnd})
	assert.Equal(t, 2, newModel.(views.Mods).Selected())

	_, cmd := newModel.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestMods_RemoveOnlyInactive(t *testing.T) {
	model := views.NewMods(nil, testMods())

	del := tea.KeyMsg{Type: tea.KeyDelete}
	_, cmd := model.Update(del)
	assert.Nil(t, cmd, "active mods cannot be removed")

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd = newModel.Update(del)
	require.NotNil(t, cmd)
	msg, ok := cmd().(views.RemoveModMsg)
	require.True(t, ok)
	assert.Equal(t, "Lamps", msg.Mod.Folder.Name)
}

func TestMods_ConflictPrompt(t *testing.T) {
	model := views.NewMods(nil, testMods()).
		AskConflict("Lamps", []string{"parts/a.dcx", "sfx/b.dcx"}, "Hunter Set")
	require.True(t, model.Prompting())
	assert.Contains(t, model.View(), "overwrites 2 file(s) already modified by Hunter Set")

	// Navigation is blocked while prompting
	newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, newModel.(views.Mods).Selected())

	newModel, cmd = newModel.Update(key("y"))
	require.NotNil(t, cmd)
	answer, ok := cmd().(views.ConflictAnswerMsg)
	require.True(t, ok)
	assert.Equal(t, views.ConflictAnswerMsg{Mod: "Lamps", Accept: true}, answer)
	assert.False(t, newModel.(views.Mods).Prompting())
}

func TestMods_ConflictPromptDecline(t *testing.T) {
	model := views.NewMods(nil, testMods()).AskConflict("Lamps", []string{"parts/a.dcx"}, "Hunter Set")

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, views.ConflictAnswerMsg{Mod: "Lamps", Accept: false}, cmd())
}

func TestMods_Progress(t *testing.T) {
	model := views.NewMods(nil, testMods()).Start("Activating Lamps")
	assert.True(t, model.Busy())

	model = model.SetProgress(domain.Progress{Phase: domain.PhaseCopy, Mod: "Lamps", Processed: 3, Total: 4})
	assert.Contains(t, model.View(), "copy 3/4")

	// Keys are ignored while busy
	_, cmd := model.Update(key(" "))
	assert.Nil(t, cmd)

	model = model.Finish("Activated Lamps")
	assert.False(t, model.Busy())
	assert.Contains(t, model.View(), "Activated Lamps")
}

func TestMods_SetModsClampsCursor(t *testing.T) {
	model := views.NewMods(nil, testMods())
	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnd})

	updated := newModel.(views.Mods).SetMods(testMods()[:1])
	assert.Equal(t, 0, updated.Selected())
	assert.Equal(t, 1, updated.ModCount())
}
