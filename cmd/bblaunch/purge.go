package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Deactivate every active mod",
	Long: `Deactivate every mod on the install, returning dvdroot_ps4 to its
pre-modded state. Conflicting mods are unwound from the top of the conflict
stack, then the rest in reverse activation order.

Mods whose backups have gone missing are dropped from the registry and
reported; their files stay in place.

Examples:
  bblaunch purge
  bblaunch purge --install bb --yes`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "skip confirmation prompt")

	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}
	engine, err := svc.Engine(inst.ID)
	if err != nil {
		return err
	}
	active, err := engine.Registry().ActiveMods()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(active) == 0 {
		if jsonOutput {
			return writeJSON(cmd, map[string][]string{"deactivated": {}})
		}
		fmt.Fprintf(out, "No active mods on %s\n", inst.Name)
		return nil
	}

	if !purgeYes && !jsonOutput {
		fmt.Fprintf(out, "This will deactivate %d mod(s) on %s\n\n", len(active), inst.Name)
		if !confirm(cmd, "Continue?") {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	progress, stop := progressFor(cmd)
	done, err := svc.Purge(context.Background(), inst.ID, progress)
	stop()

	if jsonOutput {
		if done == nil {
			done = []string{}
		}
		if jerr := writeJSON(cmd, map[string][]string{"deactivated": done}); jerr != nil {
			return jerr
		}
		return err
	}

	for _, name := range done {
		printSuccess(out, "%s", name)
	}
	if err != nil {
		return fmt.Errorf("purge stopped after %d mod(s): %w", len(done), err)
	}
	fmt.Fprintf(out, "\nPurged: %d mod(s)\n", len(done))
	return nil
}
