package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"bblaunch/internal/core"
	"bblaunch/internal/domain"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgBlue, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// printSuccess prints a success line with a checkmark
func printSuccess(w io.Writer, format string, a ...any) {
	_, _ = successColor.Fprintf(w, "✓ "+format+"\n", a...)
}

// printWarning prints a warning line
func printWarning(w io.Writer, format string, a ...any) {
	_, _ = warningColor.Fprintf(w, "⚠ "+format+"\n", a...)
}

// printHeader prints a section header followed by a blank line
func printHeader(w io.Writer, title string) {
	_, _ = headerColor.Fprintf(w, "▸ %s\n\n", title)
}

// writeJSON encodes v indented to the command's stdout
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// confirm asks a yes/no question on the command's stdin. Anything but
// y/yes counts as no.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

// printConflicts lists conflicting paths grouped under their current owner
func printConflicts(w io.Writer, conflicts []core.Conflict) {
	const maxShow = 5

	var owners []string
	byOwner := make(map[string][]string)
	for _, c := range conflicts {
		if _, ok := byOwner[c.Owner]; !ok {
			owners = append(owners, c.Owner)
		}
		byOwner[c.Owner] = append(byOwner[c.Owner], c.Path)
	}

	for _, owner := range owners {
		paths := byOwner[owner]
		fmt.Fprintf(w, "  Modified by %s:\n", owner)
		for i, p := range paths {
			if i >= maxShow {
				fmt.Fprintf(w, "    ... and %d more\n", len(paths)-maxShow)
				break
			}
			fmt.Fprintf(w, "    - %s\n", p)
		}
	}
}

// progressBars renders engine progress as one pterm bar per phase
type progressBars struct {
	w     io.Writer
	bar   *pterm.ProgressbarPrinter
	phase domain.Phase
}

func newProgressBars(w io.Writer) *progressBars {
	return &progressBars{w: w}
}

// Report is a domain.ProgressFunc
func (p *progressBars) Report(pr domain.Progress) {
	if p.bar == nil || pr.Phase != p.phase {
		p.Stop()
		title := fmt.Sprintf("%-8s %s", pr.Phase, pr.Mod)
		bar, err := pterm.DefaultProgressbar.
			WithWriter(p.w).
			WithTotal(pr.Total).
			WithTitle(title).
			WithRemoveWhenDone(false).
			Start()
		if err != nil {
			return
		}
		p.bar, p.phase = bar, pr.Phase
	}
	p.bar.Increment()
}

// Stop finishes the current bar, if any
func (p *progressBars) Stop() {
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
}

// progressFor returns a progress reporter, or nil unless stdout is a terminal
func progressFor(cmd *cobra.Command) (domain.ProgressFunc, func()) {
	if jsonOutput || !isTerminal(cmd.OutOrStdout()) {
		return nil, func() {}
	}
	bars := newProgressBars(cmd.OutOrStdout())
	return bars.Report, bars.Stop
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// truncate shortens s to n runes with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
