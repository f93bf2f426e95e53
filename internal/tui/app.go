package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bblaunch/internal/core"
	"bblaunch/internal/domain"
	"bblaunch/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ViewType represents different screens in the TUI
type ViewType int

const (
	ViewInstallSelect ViewType = iota
	ViewMods
	ViewSettings
)

// NavigateMsg is sent to change views
type NavigateMsg struct {
	View ViewType
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// modsLoadedMsg carries a fresh mod list for the current install
type modsLoadedMsg struct {
	mods []domain.ModStatus
}

// conflictsFoundMsg is the pre-activation conflict check result
type conflictsFoundMsg struct {
	mod       string
	conflicts []core.Conflict
}

// opProgressMsg relays engine progress from the worker goroutine
type opProgressMsg struct {
	progress domain.Progress
	events   <-chan tea.Msg
}

// opDoneMsg ends an activate, deactivate or remove
type opDoneMsg struct {
	status string
	err    error
}

// App is the main TUI application model
type App struct {
	service     *core.Service
	keys        *KeyMap
	currentView ViewType
	width       int
	height      int
	err         error
	showHelp    bool

	install *domain.Install

	installSelect views.InstallSelect
	mods          views.Mods
	settings      views.Settings
}

// NewApp creates a new TUI application. With a single install (or a
// default) it opens straight on the mod list.
func NewApp(service *core.Service) App {
	a := App{
		service:     service,
		keys:        NewKeyMap("vim"),
		currentView: ViewInstallSelect,
		width:       80,
		height:      24,
		mods:        views.NewMods(nil, nil),
	}

	settings := views.SettingsData{LinkMethod: domain.LinkCopy, Keybindings: "vim", HookTimeout: time.Minute}
	var installs []*domain.Install
	if service != nil {
		cfg := service.Config()
		a.keys = NewKeyMap(cfg.Keybindings)
		settings = views.SettingsData{
			LinkMethod:  cfg.DefaultLinkMethod,
			Keybindings: cfg.Keybindings,
			HookTimeout: cfg.HookTimeout,
		}
		installs = service.ListInstalls()
		if id, err := service.ResolveInstallID(""); err == nil {
			if inst, err := service.GetInstall(id); err == nil {
				a.install = inst
				a.currentView = ViewMods
				a.mods = views.NewMods(inst, nil)
			}
		}
	}
	a.installSelect = views.NewInstallSelect(installs)
	a.settings = views.NewSettings(settings, installSettings(a.install))
	return a
}

func installSettings(inst *domain.Install) *views.InstallSettingsData {
	if inst == nil {
		return nil
	}
	return &views.InstallSettingsData{
		InstallID:     inst.ID,
		InstallName:   inst.Name,
		ConflictMatch: inst.ConflictMatch,
		HasSaves:      !inst.Saves.IsEmpty(),
		SavesKeep:     inst.Saves.Keep,
		SavesInterval: inst.Saves.Interval,
	}
}

// CurrentView returns the current view type
func (a App) CurrentView() ViewType {
	return a.currentView
}

// Install returns the install being managed, nil before one is selected
func (a App) Install() *domain.Install {
	return a.install
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	if a.install != nil {
		return a.loadMods()
	}
	return nil
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a.updateCurrentView(msg)

	case NavigateMsg:
		a.currentView = msg.View
		return a, nil

	case ErrorMsg:
		a.err = msg.Err
		return a, nil

	case views.InstallSelectedMsg:
		a.install = msg.Install
		a.mods = views.NewMods(msg.Install, nil)
		a.settings = a.settings.WithInstall(installSettings(msg.Install))
		a.currentView = ViewMods
		return a, a.loadMods()

	case modsLoadedMsg:
		a.mods = a.mods.SetMods(msg.mods)
		return a, nil

	case views.ToggleModMsg:
		a.err = nil
		if msg.Mod.Active {
			return a.runDeactivate(msg.Mod.Folder.Name)
		}
		return a, a.checkConflicts(msg.Mod.Folder.Name)

	case conflictsFoundMsg:
		if len(msg.conflicts) == 0 {
			return a.runActivate(msg.mod)
		}
		paths := make([]string, len(msg.conflicts))
		for i, c := range msg.conflicts {
			paths[i] = c.Path
		}
		a.mods = a.mods.AskConflict(msg.mod, paths, msg.conflicts[0].Owner)
		return a, nil

	case views.ConflictAnswerMsg:
		if !msg.Accept {
			a.mods = a.mods.Finish(fmt.Sprintf("Activation of %s cancelled", msg.Mod))
			return a, nil
		}
		return a.runActivate(msg.Mod)

	case views.RemoveModMsg:
		a.err = nil
		return a.runRemove(msg.Mod.Folder.Name)

	case opProgressMsg:
		a.mods = a.mods.SetProgress(msg.progress)
		return a, waitForEvent(msg.events)

	case opDoneMsg:
		if msg.err != nil {
			a.mods = a.mods.Finish("")
			a.err = msg.err
		} else {
			a.mods = a.mods.Finish(msg.status)
		}
		return a, a.loadMods()

	case views.SettingsChangedMsg:
		a.keys = NewKeyMap(msg.Settings.Keybindings)
		return a, a.saveSettings(msg.Settings)

	case views.InstallSettingsChangedMsg:
		return a, a.saveInstallSettings(msg.Install)
	}

	return a.updateCurrentView(msg)
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The conflict prompt owns the keyboard until answered
	if a.currentView == ViewMods && a.mods.Prompting() {
		return a.updateCurrentView(msg)
	}

	switch {
	case msg.Type == tea.KeyCtrlC:
		return a, tea.Quit
	case a.keys.IsQuit(msg):
		if a.mods.Busy() {
			return a, nil
		}
		return a, tea.Quit
	case a.keys.IsHelp(msg):
		a.showHelp = !a.showHelp
		return a, nil
	case a.keys.IsCancel(msg):
		a.err = nil
		a.showHelp = false
		return a, nil
	}

	switch msg.String() {
	case "1":
		a.currentView = ViewInstallSelect
		return a, nil
	case "2":
		if a.install != nil {
			a.currentView = ViewMods
		}
		return a, nil
	case "3":
		a.currentView = ViewSettings
		return a, nil
	}

	return a.updateCurrentView(a.keys.Normalize(msg))
}

func (a App) updateCurrentView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var model tea.Model
	var cmd tea.Cmd

	switch a.currentView {
	case ViewInstallSelect:
		model, cmd = a.installSelect.Update(msg)
		a.installSelect = model.(views.InstallSelect)
	case ViewMods:
		model, cmd = a.mods.Update(msg)
		a.mods = model.(views.Mods)
	case ViewSettings:
		model, cmd = a.settings.Update(msg)
		a.settings = model.(views.Settings)
	}

	return a, cmd
}

func (a App) loadMods() tea.Cmd {
	service, install := a.service, a.install
	if service == nil || install == nil {
		return nil
	}
	return func() tea.Msg {
		mods, err := service.ListMods(install.ID)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return modsLoadedMsg{mods: mods}
	}
}

func (a App) checkConflicts(mod string) tea.Cmd {
	service, install := a.service, a.install
	if service == nil || install == nil {
		return nil
	}
	return func() tea.Msg {
		conflicts, err := service.PendingConflicts(install.ID, mod)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return conflictsFoundMsg{mod: mod, conflicts: conflicts}
	}
}

// runActivate activates mod. The user has already seen and accepted any
// conflicts, so the engine's prompt is answered yes.
func (a App) runActivate(mod string) (tea.Model, tea.Cmd) {
	a.mods = a.mods.Start("Activating " + mod)
	return a, a.runEngineOp(func(e *core.Engine, progress domain.ProgressFunc) (string, error) {
		res, err := e.Activate(context.Background(), mod, core.ActivateOptions{
			Confirm:  func(core.Conflict) bool { return true },
			Progress: progress,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Activated %s (%d files)", mod, res.Files), nil
	})
}

func (a App) runDeactivate(mod string) (tea.Model, tea.Cmd) {
	a.mods = a.mods.Start("Deactivating " + mod)
	return a, a.runEngineOp(func(e *core.Engine, progress domain.ProgressFunc) (string, error) {
		res, err := e.Deactivate(context.Background(), mod, progress)
		if errors.Is(err, domain.ErrConflictOrder) {
			return "", fmt.Errorf("%w: deactivate the newest conflicting mod first", err)
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Deactivated %s (%d files restored)", mod, res.Restored), nil
	})
}

func (a App) runRemove(mod string) (tea.Model, tea.Cmd) {
	a.mods = a.mods.Start("Removing " + mod)
	return a, a.runEngineOp(func(e *core.Engine, _ domain.ProgressFunc) (string, error) {
		if err := e.RemoveMod(mod); err != nil {
			return "", err
		}
		return "Removed " + mod, nil
	})
}

// runEngineOp runs op on a goroutine and streams its progress back as
// messages over a channel.
func (a App) runEngineOp(op func(*core.Engine, domain.ProgressFunc) (string, error)) tea.Cmd {
	service, install := a.service, a.install
	if service == nil || install == nil {
		return nil
	}

	events := make(chan tea.Msg, 64)
	go func() {
		defer close(events)
		engine, err := service.Engine(install.ID)
		if err != nil {
			events <- opDoneMsg{err: err}
			return
		}
		status, err := op(engine, func(p domain.Progress) {
			events <- opProgressMsg{progress: p, events: events}
		})
		events <- opDoneMsg{status: status, err: err}
	}()
	return waitForEvent(events)
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func (a App) saveSettings(s views.SettingsData) tea.Cmd {
	if a.service == nil {
		return nil
	}
	cfg := a.service.Config()
	cfg.DefaultLinkMethod = s.LinkMethod
	cfg.Keybindings = s.Keybindings
	cfg.HookTimeout = s.HookTimeout
	dir := a.service.ConfigDir()
	return func() tea.Msg {
		if err := cfg.Save(dir); err != nil {
			return ErrorMsg{Err: fmt.Errorf("saving settings: %w", err)}
		}
		return nil
	}
}

func (a App) saveInstallSettings(s views.InstallSettingsData) tea.Cmd {
	service := a.service
	if service == nil {
		return nil
	}
	if a.mods.Busy() {
		return func() tea.Msg {
			return ErrorMsg{Err: fmt.Errorf("install settings not saved: an operation is running")}
		}
	}
	return func() tea.Msg {
		err := service.UpdateInstallSettings(s.InstallID, core.InstallSettings{
			ConflictMatch: s.ConflictMatch,
			SavesKeep:     s.SavesKeep,
			SavesInterval: s.SavesInterval,
		})
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("saving install settings: %w", err)}
		}
		return nil
	}
}

// View implements tea.Model
func (a App) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	tabStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	activeTabStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	header := titleStyle.Render("bblaunch - mod manager")

	tabs := []string{"[1]Installs", "[2]Mods", "[3]Settings"}
	tabBar := ""
	for i, tab := range tabs {
		if ViewType(i) == a.currentView {
			tabBar += activeTabStyle.Render(tab) + "  "
		} else {
			tabBar += tabStyle.Render(tab) + "  "
		}
	}

	content := a.renderCurrentView()
	if a.showHelp {
		content = a.keys.FullHelp()
	}

	if a.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		content += "\n\n" + errStyle.Render(fmt.Sprintf("Error: %v", a.err))
	}

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	footer := footerStyle.Render("q: quit  ?: help  " + a.keys.NavigationHelp())

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", header, tabBar, content, footer)
}

func (a App) renderCurrentView() string {
	switch a.currentView {
	case ViewInstallSelect:
		return a.installSelect.View()
	case ViewMods:
		if a.install == nil {
			return "Mods\n\nSelect an install first."
		}
		return a.mods.View()
	case ViewSettings:
		return a.settings.View()
	default:
		return "Unknown view"
	}
}

// Run starts the TUI application, opening on installID's mods when given
func Run(service *core.Service, installID string) error {
	app := NewApp(service)
	if installID != "" {
		inst, err := service.GetInstall(installID)
		if err != nil {
			return err
		}
		app.install = inst
		app.currentView = ViewMods
		app.mods = views.NewMods(inst, nil)
	}
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
