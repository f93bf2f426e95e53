package views

import (
	"fmt"
	"sort"
	"time"

	"bblaunch/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SettingsData holds the launcher-wide settings kept in config.yaml
type SettingsData struct {
	LinkMethod  domain.LinkMethod
	Keybindings string
	HookTimeout time.Duration
}

// InstallSettingsData holds the editable options of one install
type InstallSettingsData struct {
	InstallID     string
	InstallName   string
	ConflictMatch domain.ConflictMatch
	HasSaves      bool // Save backups configured; keep and interval apply
	SavesKeep     int
	SavesInterval time.Duration
}

// SettingsChangedMsg is sent when a launcher-wide setting changes
type SettingsChangedMsg struct {
	Settings SettingsData
}

// InstallSettingsChangedMsg is sent when an option of the current install
// changes
type InstallSettingsChangedMsg struct {
	Install InstallSettingsData
}

type settingKey int

const (
	keyLinkMethod settingKey = iota
	keyKeybindings
	keyHookTimeout
	keyConflictMatch
	keySavesKeep
	keySavesInterval
)

type option struct {
	label string
	value any
}

type choice struct {
	key     settingKey
	label   string
	help    string
	options []option
	at      int
}

func (c *choice) step(delta int) {
	c.at = (c.at + delta + len(c.options)) % len(c.options)
}

var (
	hookTimeoutPresets   = []time.Duration{15 * time.Second, 30 * time.Second, time.Minute, 2 * time.Minute, 5 * time.Minute}
	savesIntervalPresets = []time.Duration{5 * time.Minute, 10 * time.Minute, 15 * time.Minute, 30 * time.Minute, time.Hour}
	savesKeepPresets     = []int{0, 3, 5, 10, 20}
)

// Settings edits the launcher-wide options and, once an install is chosen,
// that install's conflict matching and save snapshot schedule.
type Settings struct {
	global  SettingsData
	install *InstallSettingsData
	choices []choice
	cursor  int
}

// NewSettings creates the settings view. install may be nil.
func NewSettings(global SettingsData, install *InstallSettingsData) Settings {
	s := Settings{global: global}
	return s.WithInstall(install)
}

// WithInstall switches the install-specific rows to another install
func (s Settings) WithInstall(install *InstallSettingsData) Settings {
	s.install = nil
	if install != nil {
		cp := *install
		s.install = &cp
	}
	s.choices = s.buildChoices()
	if s.cursor >= len(s.choices) {
		s.cursor = len(s.choices) - 1
	}
	return s
}

// Selected returns the index of the highlighted row
func (s Settings) Selected() int {
	return s.cursor
}

// CurrentSettings returns the launcher-wide values
func (s Settings) CurrentSettings() SettingsData {
	return s.global
}

// InstallSettings returns the current install's values, nil without one
func (s Settings) InstallSettings() *InstallSettingsData {
	if s.install == nil {
		return nil
	}
	cp := *s.install
	return &cp
}

func (s Settings) buildChoices() []choice {
	kb := 0
	if s.global.Keybindings == "standard" {
		kb = 1
	}
	choices := []choice{
		{
			key:     keyLinkMethod,
			label:   "Link method",
			help:    "How mod files reach dvdroot_ps4 for installs that set none",
			options: []option{{"copy", domain.LinkCopy}, {"hardlink", domain.LinkHardlink}, {"symlink", domain.LinkSymlink}},
			at:      int(s.global.LinkMethod),
		},
		{
			key:     keyKeybindings,
			label:   "Keybindings",
			help:    "vim uses hjkl, standard uses the arrow keys",
			options: []option{{"vim", "vim"}, {"standard", "standard"}},
			at:      kb,
		},
		durationChoice(keyHookTimeout, "Hook timeout",
			"Longest a hook script may run, from the next start", hookTimeoutPresets, s.global.HookTimeout),
	}
	if s.install == nil {
		return choices
	}

	choices = append(choices, choice{
		key:     keyConflictMatch,
		label:   "Conflict matching",
		help:    "exact compares whole paths, substring also flags paths that contain the new one",
		options: []option{{"exact", domain.MatchExact}, {"substring", domain.MatchSubstring}},
		at:      int(s.install.ConflictMatch),
	})
	if s.install.HasSaves {
		choices = append(choices,
			keepChoice(s.install.SavesKeep),
			durationChoice(keySavesInterval, "Snapshot interval",
				"How often 'saves watch' copies the save data", savesIntervalPresets, s.install.SavesInterval),
		)
	}
	return choices
}

// durationChoice offers presets plus the current value when it is not one
func durationChoice(key settingKey, label, help string, presets []time.Duration, current time.Duration) choice {
	values := append([]time.Duration{}, presets...)
	found := false
	for _, d := range values {
		found = found || d == current
	}
	if !found {
		values = append(values, current)
		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	}

	c := choice{key: key, label: label, help: help}
	for i, d := range values {
		c.options = append(c.options, option{formatDuration(d), d})
		if d == current {
			c.at = i
		}
	}
	return c
}

func keepChoice(current int) choice {
	values := append([]int{}, savesKeepPresets...)
	found := false
	for _, n := range values {
		found = found || n == current
	}
	if !found {
		values = append(values, current)
		sort.Ints(values)
	}

	c := choice{key: keySavesKeep, label: "Snapshots kept", help: "Older snapshots are pruned after each new one"}
	for i, n := range values {
		label := fmt.Sprintf("%d", n)
		if n == 0 {
			label = "all"
		}
		c.options = append(c.options, option{label, n})
		if n == current {
			c.at = i
		}
	}
	return c
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "unset"
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	}
	return d.String()
}

// Init implements tea.Model
func (s Settings) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s Settings) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch key.String() {
	case "up":
		s.cursor = (s.cursor - 1 + len(s.choices)) % len(s.choices)
	case "down":
		s.cursor = (s.cursor + 1) % len(s.choices)
	case "right", "enter", " ":
		return s.change(1)
	case "left":
		return s.change(-1)
	}
	return s, nil
}

func (s Settings) change(delta int) (tea.Model, tea.Cmd) {
	s.choices = append([]choice{}, s.choices...)
	c := &s.choices[s.cursor]
	c.step(delta)
	value := c.options[c.at].value

	switch c.key {
	case keyLinkMethod:
		s.global.LinkMethod = value.(domain.LinkMethod)
	case keyKeybindings:
		s.global.Keybindings = value.(string)
	case keyHookTimeout:
		s.global.HookTimeout = value.(time.Duration)
	default:
		inst := *s.install
		switch c.key {
		case keyConflictMatch:
			inst.ConflictMatch = value.(domain.ConflictMatch)
		case keySavesKeep:
			inst.SavesKeep = value.(int)
		case keySavesInterval:
			inst.SavesInterval = value.(time.Duration)
		}
		s.install = &inst
		return s, func() tea.Msg { return InstallSettingsChangedMsg{Install: inst} }
	}

	global := s.global
	return s, func() tea.Msg { return SettingsChangedMsg{Settings: global} }
}

// View implements tea.Model
func (s Settings) View() string {
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))

	output := titleStyle.Render("Settings") + "\n\n"
	output += sectionStyle.Render("Launcher") + mutedStyle.Render("  (config.yaml)") + "\n"

	for i, c := range s.choices {
		if c.key == keyConflictMatch {
			name := s.install.InstallName
			if name == "" {
				name = s.install.InstallID
			}
			output += "\n" + sectionStyle.Render("Install "+name) + mutedStyle.Render("  (installs.yaml)") + "\n"
		}

		cursor, style := "  ", itemStyle
		value := c.options[c.at].label
		if i == s.cursor {
			cursor, style = "▸ ", selectedStyle
			value = "‹ " + value + " ›"
		}
		output += style.Render(fmt.Sprintf("%s%-20s %s", cursor, c.label, valueStyle.Render(value))) + "\n"
		if i == s.cursor {
			output += detailStyle.Render(c.help) + "\n"
		}
	}

	if s.install == nil {
		output += "\n" + mutedStyle.Render("Select an install to edit its conflict and save options.") + "\n"
	} else if !s.install.HasSaves {
		output += "\n" + mutedStyle.Render("Save backups are off for this install (install add --saves).") + "\n"
	}

	output += "\n" + helpStyle.Render("↑/↓: choose  ←/→ or enter: change")
	return output
}
