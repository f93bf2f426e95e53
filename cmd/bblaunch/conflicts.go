package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type conflictsJSONOutput struct {
	InstallID string         `json:"install_id"`
	Stack     []string       `json:"stack"`
	Conflicts []conflictJSON `json:"conflicts"`
}

type conflictJSON struct {
	Path  string   `json:"path"`
	Owner string   `json:"owner"`
	Mods  []string `json:"mods"`
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts [mod]",
	Short: "Show files claimed by more than one mod",
	Long: `Display every install file modified by more than one active mod, and the
conflict stack that fixes the order they must be deactivated in.

The mod listed as "owner" is the one whose file is currently deployed.
With a mod name, shows the files that mod would overwrite if activated.

Examples:
  bblaunch conflicts
  bblaunch conflicts "Faster Hunter"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConflicts,
}

func init() {
	rootCmd.AddCommand(conflictsCmd)
}

func runConflicts(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		pending, err := svc.PendingConflicts(inst.ID, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			items := make([]conflictJSON, len(pending))
			for i, c := range pending {
				items[i] = conflictJSON{Path: c.Path, Owner: c.Owner, Mods: []string{c.Owner}}
			}
			return writeJSON(cmd, conflictsJSONOutput{InstallID: inst.ID, Stack: []string{}, Conflicts: items})
		}
		if len(pending) == 0 {
			fmt.Fprintf(out, "%s does not conflict with any active mod.\n", args[0])
			return nil
		}
		printWarning(out, "%s would overwrite %d file(s):", args[0], len(pending))
		printConflicts(out, pending)
		return nil
	}

	engine, err := svc.Engine(inst.ID)
	if err != nil {
		return err
	}
	stack, err := engine.Registry().ConflictMods()
	if err != nil {
		return err
	}
	contested, err := svc.Conflicts(inst.ID)
	if err != nil {
		return err
	}

	if jsonOutput {
		result := conflictsJSONOutput{InstallID: inst.ID, Stack: stack, Conflicts: make([]conflictJSON, len(contested))}
		if result.Stack == nil {
			result.Stack = []string{}
		}
		for i, c := range contested {
			result.Conflicts[i] = conflictJSON{Path: c.Path, Owner: c.Owner(), Mods: c.Mods}
		}
		return writeJSON(cmd, result)
	}

	if len(contested) == 0 && len(stack) == 0 {
		fmt.Fprintln(out, "No conflicts found.")
		return nil
	}

	if len(stack) > 0 {
		printHeader(out, "Conflict stack (deactivate from the top)")
		for i := len(stack) - 1; i >= 0; i-- {
			fmt.Fprintf(out, "  %d. %s\n", i+1, stack[i])
		}
		fmt.Fprintln(out)
	}

	if len(contested) > 0 {
		printHeader(out, fmt.Sprintf("%d conflicting file(s)", len(contested)))
		for _, c := range contested {
			fmt.Fprintf(out, "  %s\n", c.Path)
			fmt.Fprintf(out, "    Owner: %s\n", c.Owner())
			if len(c.Mods) > 1 {
				fmt.Fprintf(out, "    %s\n", dimColor.Sprintf("Under it: %v", c.Mods[:len(c.Mods)-1]))
			}
		}
	}
	return nil
}
