package main

import (
	"context"
	"errors"
	"fmt"

	"bblaunch/internal/core"
	"bblaunch/internal/domain"

	"github.com/spf13/cobra"
)

var activateYes bool

var activateCmd = &cobra.Command{
	Use:   "activate <mod>...",
	Short: "Activate mods on the install",
	Long: `Copy a mod's files over the install's dvdroot_ps4 tree.

Every game file the mod replaces is backed up first. Files the mod adds are
remembered so deactivation can delete them. If the mod touches files another
active mod already modified, you are asked before anything changes; the mod
then joins the conflict stack and must be deactivated before the mods under it.

Examples:
  bblaunch activate "Faster Hunter"
  bblaunch activate ModA ModB --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runActivate,
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <mod>...",
	Short: "Deactivate mods and restore the game files",
	Long: `Remove a mod's files from the install and restore the originals it
displaced. Directories left empty are pruned.

Conflicting mods must be deactivated newest first.

Examples:
  bblaunch deactivate "Faster Hunter"
  bblaunch deactivate ModB ModA`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeactivate,
}

func init() {
	activateCmd.Flags().BoolVarP(&activateYes, "yes", "y", false, "accept conflicts without prompting")

	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(deactivateCmd)
}

func runActivate(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}
	return activateMods(cmd, svc, inst, args)
}

// activateMods activates names in order, stopping at the first failure
func activateMods(cmd *cobra.Command, svc *core.Service, inst *domain.Install, names []string) error {
	engine, err := svc.Engine(inst.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx := context.Background()
	for _, name := range names {
		pending, err := svc.PendingConflicts(inst.ID, name)
		if err != nil {
			return err
		}

		progress, stop := progressFor(cmd)
		res, err := engine.Activate(ctx, name, core.ActivateOptions{
			Confirm: func(c core.Conflict) bool {
				if activateYes {
					return true
				}
				if len(pending) == 0 {
					pending = []core.Conflict{c}
				}
				printWarning(out, "%s overwrites %d file(s) already modified by other mods:", name, len(pending))
				printConflicts(out, pending)
				return confirm(cmd, "Activate anyway?")
			},
			Progress: progress,
		})
		stop()
		if err != nil {
			if errors.Is(err, domain.ErrCancelled) && !jsonOutput {
				fmt.Fprintln(out, "Aborted.")
			}
			return err
		}

		if jsonOutput {
			if err := writeJSON(cmd, res); err != nil {
				return err
			}
			continue
		}
		printSuccess(out, "Activated %s (%d files: %d replaced, %d added)", name, res.Files, res.Originals, res.Unique)
		if res.Conflicting {
			fmt.Fprintln(out, dimColor.Sprintf("  %s is on the conflict stack; deactivate it before the mods it overrides", name))
		}
	}
	return nil
}

func runDeactivate(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	for _, name := range args {
		progress, stop := progressFor(cmd)
		res, err := engine.Deactivate(context.Background(), name, progress)
		stop()
		if err != nil {
			return err
		}

		if jsonOutput {
			if err := writeJSON(cmd, res); err != nil {
				return err
			}
			continue
		}
		printSuccess(out, "Deactivated %s (%d deleted, %d restored, %d empty dirs pruned)", name, res.Deleted, res.Restored, res.Pruned)
	}
	return nil
}
