package views

import (
	"fmt"

	"bblaunch/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InstallSelectedMsg is sent when an install is selected
type InstallSelectedMsg struct {
	Install *domain.Install
}

// InstallSelect is the install selection view model
type InstallSelect struct {
	installs []*domain.Install
	selected int
	width    int
	height   int
}

// NewInstallSelect creates a new install selection view
func NewInstallSelect(installs []*domain.Install) InstallSelect {
	return InstallSelect{
		installs: installs,
		width:    80,
		height:   24,
	}
}

// Selected returns the currently selected index
func (v InstallSelect) Selected() int {
	return v.selected
}

// SelectedInstall returns the currently selected install
func (v InstallSelect) SelectedInstall() *domain.Install {
	if len(v.installs) == 0 || v.selected >= len(v.installs) {
		return nil
	}
	return v.installs[v.selected]
}

// Init implements tea.Model
func (v InstallSelect) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (v InstallSelect) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil
	}

	return v, nil
}

func (v InstallSelect) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(v.installs) == 0 {
		return v, nil
	}

	switch msg.String() {
	case "up":
		v.selected--
		if v.selected < 0 {
			v.selected = len(v.installs) - 1
		}
	case "down":
		v.selected++
		if v.selected >= len(v.installs) {
			v.selected = 0
		}
	case "enter", " ":
		if inst := v.SelectedInstall(); inst != nil {
			return v, func() tea.Msg {
				return InstallSelectedMsg{Install: inst}
			}
		}
	case "home":
		v.selected = 0
	case "end":
		v.selected = len(v.installs) - 1
	}

	return v, nil
}

// View implements tea.Model
func (v InstallSelect) View() string {
	if len(v.installs) == 0 {
		return mutedStyle.Render(`No installs configured.

Add one with:
  bblaunch install add <id> --path /path/to/game --name "Bloodborne"

The path is the game folder that contains dvdroot_ps4.
`)
	}

	output := titleStyle.Render("Select an Install") + "\n\n"

	for i, inst := range v.installs {
		cursor := "  "
		style := itemStyle
		if i == v.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		name := inst.Name
		if name == "" {
			name = inst.ID
		}
		output += style.Render(cursor+name) + "\n"

		if i == v.selected {
			output += detailStyle.Render(fmt.Sprintf("ID: %s", inst.ID)) + "\n"
			output += detailStyle.Render(fmt.Sprintf("Game: %s", inst.InstallPath)) + "\n"
			output += detailStyle.Render(fmt.Sprintf("Mods: %s", inst.ModsPath)) + "\n"
			output += detailStyle.Render(fmt.Sprintf("Deploy: %s", inst.LinkMethod)) + "\n"
			output += "\n"
		}
	}

	output += helpStyle.Render("↑/↓: navigate  enter: select")
	return output
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69")).
			MarginBottom(1)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color("205")).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(4)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)
