package main

import (
	"fmt"
	"text/tabwriter"

	"bblaunch/internal/core"
	"bblaunch/internal/domain"

	"github.com/spf13/cobra"
)

type statusJSONOutput struct {
	Default  string              `json:"default_install,omitempty"`
	Installs []installStatusJSON `json:"installs"`
}

type installStatusJSON struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	DvdRoot       string   `json:"dvdroot"`
	ModsPath      string   `json:"mods_path"`
	LinkMethod    string   `json:"link_method"`
	Mods          int      `json:"mods"`
	Active        []string `json:"active"`
	Stack         []string `json:"conflict_stack"`
	ModifiedFiles int      `json:"modified_files"`
	Error         string   `json:"error,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured installs and their active mods",
	Long: `Show the configured installs with their active mods, the conflict stack
and how many install files are currently modified.

With --install, shows only that install.

Examples:
  bblaunch status
  bblaunch status --install bb`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	installs := svc.ListInstalls()
	if installID != "" {
		inst, err := svc.GetInstall(installID)
		if err != nil {
			return err
		}
		installs = []*domain.Install{inst}
	}

	statuses := make([]installStatusJSON, 0, len(installs))
	for _, inst := range installs {
		statuses = append(statuses, installStatus(svc, inst))
	}

	if jsonOutput {
		return writeJSON(cmd, statusJSONOutput{Default: svc.Config().DefaultInstall, Installs: statuses})
	}

	out := cmd.OutOrStdout()
	if len(statuses) == 0 {
		fmt.Fprintln(out, "No installs configured.")
		fmt.Fprintln(out, "\nUse 'bblaunch install add <id> <path>' to add one.")
		return nil
	}

	if len(statuses) > 1 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INSTALL\tMODS\tACTIVE\tCONFLICTS\tFILES")
		fmt.Fprintln(w, "-------\t----\t------\t---------\t-----")
		for _, s := range statuses {
			id := s.ID
			if id == svc.Config().DefaultInstall {
				id += " (default)"
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", id, s.Mods, len(s.Active), len(s.Stack), s.ModifiedFiles)
		}
		w.Flush()
		return nil
	}

	s := statuses[0]
	printHeader(out, fmt.Sprintf("%s (%s)", s.Name, s.ID))
	fmt.Fprintf(out, "  dvdroot:  %s\n", s.DvdRoot)
	fmt.Fprintf(out, "  Mods:     %s\n", s.ModsPath)
	fmt.Fprintf(out, "  Link:     %s\n", s.LinkMethod)
	if s.Error != "" {
		fmt.Fprintln(out)
		printWarning(out, "%s", s.Error)
		return nil
	}
	fmt.Fprintf(out, "  Modified: %d file(s)\n\n", s.ModifiedFiles)
	if len(s.Active) == 0 {
		fmt.Fprintf(out, "No active mods (%d available).\n", s.Mods)
		return nil
	}
	fmt.Fprintf(out, "Active mods (%d of %d):\n", len(s.Active), s.Mods)
	onStack := make(map[string]bool, len(s.Stack))
	for _, m := range s.Stack {
		onStack[m] = true
	}
	for i, m := range s.Active {
		line := fmt.Sprintf("  %d. %s", i+1, m)
		if onStack[m] {
			line += " " + warningColor.Sprint("(conflict)")
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func installStatus(svc *core.Service, inst *domain.Install) installStatusJSON {
	s := installStatusJSON{
		ID:         inst.ID,
		Name:       inst.Name,
		DvdRoot:    inst.DvdRootPath(),
		ModsPath:   inst.ModsPath,
		LinkMethod: inst.LinkMethod.String(),
		Active:     []string{},
		Stack:      []string{},
	}

	engine, err := svc.Engine(inst.ID)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	if mods, err := svc.ListMods(inst.ID); err == nil {
		s.Mods = len(mods)
	} else {
		s.Error = err.Error()
	}
	if active, err := engine.Registry().ActiveMods(); err == nil && active != nil {
		s.Active = active
	}
	if stack, err := engine.Registry().ConflictMods(); err == nil && stack != nil {
		s.Stack = stack
	}
	if records, err := engine.Registry().ModifiedFiles(); err == nil {
		s.ModifiedFiles = len(records)
	}
	return s
}
