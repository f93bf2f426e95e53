package views

import (
	"fmt"
	"strings"

	"bblaunch/internal/domain"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// ToggleModMsg asks the app to activate an inactive mod or deactivate an
// active one
type ToggleModMsg struct {
	Mod domain.ModStatus
}

// RemoveModMsg asks the app to delete an inactive mod folder
type RemoveModMsg struct {
	Mod domain.ModStatus
}

// ConflictAnswerMsg carries the user's answer to a conflict prompt
type ConflictAnswerMsg struct {
	Mod    string
	Accept bool
}

// Mods is the mod list of one install
type Mods struct {
	install  *domain.Install
	mods     []domain.ModStatus
	selected int
	width    int
	height   int

	// Conflict prompt, shown while prompt is non-empty
	prompt      string
	promptMod   string
	promptPaths []string

	// Operation in flight
	busy     bool
	progress domain.Progress
	bar      progress.Model
	status   string
}

// NewMods creates a mod list view
func NewMods(install *domain.Install, mods []domain.ModStatus) Mods {
	return Mods{
		install: install,
		mods:    mods,
		width:   80,
		height:  24,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Selected returns the currently selected index
func (m Mods) Selected() int {
	return m.selected
}

// ModCount returns the number of listed mods
func (m Mods) ModCount() int {
	return len(m.mods)
}

// SelectedMod returns the currently selected mod
func (m Mods) SelectedMod() *domain.ModStatus {
	if len(m.mods) == 0 || m.selected >= len(m.mods) {
		return nil
	}
	return &m.mods[m.selected]
}

// Prompting reports whether a conflict prompt is open
func (m Mods) Prompting() bool {
	return m.prompt != ""
}

// Busy reports whether an operation is in flight
func (m Mods) Busy() bool {
	return m.busy
}

// SetMods replaces the listed mods, keeping the cursor in range
func (m Mods) SetMods(mods []domain.ModStatus) Mods {
	m.mods = mods
	if m.selected >= len(mods) {
		m.selected = max(len(mods)-1, 0)
	}
	return m
}

// AskConflict opens a y/n prompt for activating mod over conflicts
func (m Mods) AskConflict(mod string, paths []string, owner string) Mods {
	m.promptMod = mod
	m.promptPaths = paths
	m.prompt = fmt.Sprintf("%s overwrites %d file(s) already modified by %s. Activate anyway? (y/n)",
		mod, len(paths), owner)
	return m
}

// Start marks an operation as running
func (m Mods) Start(status string) Mods {
	m.busy = true
	m.status = status
	m.progress = domain.Progress{}
	return m
}

// SetProgress records the latest progress report
func (m Mods) SetProgress(p domain.Progress) Mods {
	m.progress = p
	return m
}

// Finish ends the running operation with a status line
func (m Mods) Finish(status string) Mods {
	m.busy = false
	m.status = status
	return m
}

// Init implements tea.Model
func (m Mods) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Mods) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Prompting() {
			return m.handlePrompt(msg)
		}
		if m.busy {
			return m, nil
		}
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-20, 10), 60)
		return m, nil
	}

	return m, nil
}

func (m Mods) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var accept bool
	switch msg.String() {
	case "y", "Y":
		accept = true
	case "n", "N", "esc":
		accept = false
	default:
		return m, nil
	}

	mod := m.promptMod
	m.prompt, m.promptMod, m.promptPaths = "", "", nil
	return m, func() tea.Msg {
		return ConflictAnswerMsg{Mod: mod, Accept: accept}
	}
}

func (m Mods) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.mods) == 0 {
		return m, nil
	}

	switch msg.String() {
	case "up":
		m.selected--
		if m.selected < 0 {
			m.selected = len(m.mods) - 1
		}
	case "down":
		m.selected++
		if m.selected >= len(m.mods) {
			m.selected = 0
		}
	case " ", "enter":
		if mod := m.SelectedMod(); mod != nil && mod.Valid {
			st := *mod
			return m, func() tea.Msg { return ToggleModMsg{Mod: st} }
		}
	case "delete":
		if mod := m.SelectedMod(); mod != nil && !mod.Active {
			st := *mod
			return m, func() tea.Msg { return RemoveModMsg{Mod: st} }
		}
	case "home":
		m.selected = 0
	case "end":
		m.selected = len(m.mods) - 1
	}

	return m, nil
}

// View implements tea.Model
func (m Mods) View() string {
	activeStyle := lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("82"))
	invalidStyle := lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("241"))
	conflictStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	promptStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	output := titleStyle.Render("Mods") + "\n"
	if m.install != nil {
		output += mutedStyle.Render(fmt.Sprintf("Install: %s  (%s)", m.install.Name, m.install.DvdRootPath())) + "\n\n"
	}

	if len(m.mods) == 0 {
		output += itemStyle.Render("No mods in the mods folder.") + "\n\n"
		output += mutedStyle.Render("Import one with 'bblaunch import <archive>'") + "\n"
		return output
	}

	active := 0
	for _, mod := range m.mods {
		if mod.Active {
			active++
		}
	}
	output += mutedStyle.Render(fmt.Sprintf("%d mods, %d active:", len(m.mods), active)) + "\n\n"

	for i, mod := range m.mods {
		cursor := "  "
		style := itemStyle
		switch {
		case i == m.selected:
			cursor = "▸ "
			style = selectedStyle
		case !mod.Valid:
			style = invalidStyle
		case mod.Active:
			style = activeStyle
		}

		marker := "[ ]"
		switch {
		case !mod.Valid:
			marker = "[!]"
		case mod.Active:
			marker = fmt.Sprintf("[%d]", mod.Order)
		}

		line := fmt.Sprintf("%s%s %s", cursor, marker, mod.Folder.Name)
		if mod.Conflicting {
			line += " " + conflictStyle.Render("⚠ conflict")
		}
		output += style.Render(line) + "\n"

		if i == m.selected {
			output += m.renderDetails(mod)
		}
	}

	if m.Prompting() {
		output += "\n" + promptStyle.Render(m.prompt) + "\n"
		for _, p := range m.promptPaths[:min(len(m.promptPaths), 5)] {
			output += detailStyle.Render(p) + "\n"
		}
		if len(m.promptPaths) > 5 {
			output += detailStyle.Render(fmt.Sprintf("… and %d more", len(m.promptPaths)-5)) + "\n"
		}
	}

	if m.busy {
		output += "\n" + m.renderProgress() + "\n"
	} else if m.status != "" {
		output += "\n" + mutedStyle.Render(m.status) + "\n"
	}

	output += helpStyle.Render("↑/↓: navigate  space: activate/deactivate  d: remove")
	return output
}

func (m Mods) renderDetails(mod domain.ModStatus) string {
	var lines []string
	if !mod.Valid {
		if mod.Invalid != nil {
			lines = append(lines, mod.Invalid.Error())
		}
	} else {
		lines = append(lines, fmt.Sprintf("Size: %s", humanize.Bytes(uint64(mod.Size))))
		if man := mod.Folder.Manifest; man != nil {
			if man.Version != "" {
				lines = append(lines, "Version: "+man.Version)
			}
			if man.Author != "" {
				lines = append(lines, "by "+man.Author)
			}
			if man.Description != "" {
				lines = append(lines, man.Description)
			}
		}
	}

	out := ""
	for _, l := range lines {
		out += detailStyle.Render(l) + "\n"
	}
	return out + "\n"
}

func (m Mods) renderProgress() string {
	p := m.progress
	if p.Total == 0 {
		return mutedStyle.Render(m.status)
	}
	label := fmt.Sprintf("%s %s %d/%d", m.status, strings.ToLower(string(p.Phase)), p.Processed, p.Total)
	return mutedStyle.Render(label) + "\n" + m.bar.ViewAs(float64(p.Processed)/float64(p.Total))
}
