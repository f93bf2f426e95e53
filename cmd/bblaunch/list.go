package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type listJSONOutput struct {
	InstallID string        `json:"install_id"`
	Mods      []modJSONItem `json:"mods"`
}

type modJSONItem struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Active      bool   `json:"active"`
	Order       int    `json:"order,omitempty"`
	Conflicting bool   `json:"conflicting"`
	Size        int64  `json:"size"`
	Valid       bool   `json:"valid"`
	Error       string `json:"error,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List mods in the mods folder",
	Long: `List every mod folder of an install with its activation state.

Active mods show their activation order. Mods on the conflict stack are
flagged; they must be deactivated newest first.

Examples:
  bblaunch list
  bblaunch list --install bb --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}

	mods, err := svc.ListMods(inst.ID)
	if err != nil {
		return fmt.Errorf("listing mods: %w", err)
	}

	if jsonOutput {
		out := listJSONOutput{InstallID: inst.ID, Mods: make([]modJSONItem, 0, len(mods))}
		for _, m := range mods {
			item := modJSONItem{
				Name:        m.Folder.Name,
				Active:      m.Active,
				Order:       m.Order,
				Conflicting: m.Conflicting,
				Size:        m.Size,
				Valid:       m.Valid,
			}
			if m.Folder.Manifest != nil {
				item.Version = m.Folder.Manifest.Version
			}
			if m.Invalid != nil {
				item.Error = m.Invalid.Error()
			}
			out.Mods = append(out.Mods, item)
		}
		return writeJSON(cmd, out)
	}

	out := cmd.OutOrStdout()
	if verbosity > 0 {
		fmt.Fprintf(out, "Mods for %s (%s)\n", inst.Name, inst.ModsPath)
		fmt.Fprintln(out)
	}

	if len(mods) == 0 {
		fmt.Fprintln(out, "No mods in the mods folder.")
		fmt.Fprintf(out, "\nImport one with 'bblaunch import <archive>' or copy a folder into %s\n", inst.ModsPath)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tNAME\tVERSION\tSIZE\tSTATE")
	fmt.Fprintln(w, "-----\t----\t-------\t----\t-----")

	var active int
	for _, m := range mods {
		order := "-"
		if m.Active {
			order = fmt.Sprintf("%d", m.Order)
			active++
		}
		version := ""
		if m.Folder.Manifest != nil {
			version = m.Folder.Manifest.Version
		}
		state := "inactive"
		switch {
		case !m.Valid:
			state = errorColor.Sprint("invalid")
		case m.Conflicting:
			state = warningColor.Sprint("active (conflict)")
		case m.Active:
			state = successColor.Sprint("active")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			order,
			truncate(m.Folder.Name, 40),
			version,
			humanize.Bytes(uint64(m.Size)),
			state,
		)
	}
	w.Flush()

	if verbosity > 0 {
		fmt.Fprintf(out, "\nTotal: %d mod(s), %d active\n", len(mods), active)
		for _, m := range mods {
			if m.Invalid != nil {
				fmt.Fprintf(out, "  %s: %v\n", m.Folder.Name, m.Invalid)
			}
		}
	}

	return nil
}
