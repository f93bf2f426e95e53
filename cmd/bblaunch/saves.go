package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	savesKeep      int
	savesRestoreTo string
	savesYes       bool
)

type snapshotJSON struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Created    string `json:"created"`
	Size       int64  `json:"size"`
	Compressed bool   `json:"compressed"`
}

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Save-data snapshot commands",
	Long: `Snapshot and restore the emulator's save data for an install.

Configure the save folder with 'bblaunch install add ... --saves <dir>'.`,
}

var savesBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Take a snapshot of the save data now",
	Args:  cobra.NoArgs,
	RunE:  runSavesBackup,
}

var savesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List save-data snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSavesList,
}

var savesRestoreCmd = &cobra.Command{
	Use:   "restore <snapshot>",
	Short: "Replace the save data with a snapshot",
	Long: `Replace the save folder with the contents of a snapshot. The current save
data is deleted first, so take a backup if you may want it back.

Examples:
  bblaunch saves restore 20260102-150405
  bblaunch saves restore 20260102-150405 --to /tmp/inspect`,
	Args: cobra.ExactArgs(1),
	RunE: runSavesRestore,
}

var savesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSavesPrune,
}

var savesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Snapshot the save data periodically until interrupted",
	Long: `Take a snapshot every saves interval and prune down to the configured
number of snapshots. Runs until interrupted with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runSavesWatch,
}

func init() {
	savesRestoreCmd.Flags().StringVar(&savesRestoreTo, "to", "", "restore into this folder instead of the save folder")
	savesRestoreCmd.Flags().BoolVarP(&savesYes, "yes", "y", false, "skip confirmation prompt")
	savesPruneCmd.Flags().IntVar(&savesKeep, "keep", 0, "snapshots to keep (default: configured keep)")

	savesCmd.AddCommand(savesBackupCmd)
	savesCmd.AddCommand(savesListCmd)
	savesCmd.AddCommand(savesRestoreCmd)
	savesCmd.AddCommand(savesPruneCmd)
	savesCmd.AddCommand(savesWatchCmd)
	rootCmd.AddCommand(savesCmd)
}

func runSavesBackup(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}
	sb, err := svc.SaveBackup(inst.ID)
	if err != nil {
		return err
	}

	snap, err := sb.Snapshot()
	if err != nil {
		return err
	}
	pruned, err := sb.Prune(sb.Config().Keep)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd, snapshotJSON{
			Name:       snap.Name,
			Path:       snap.Path,
			Created:    snap.Created.UTC().Format("2006-01-02T15:04:05Z"),
			Size:       snap.Size,
			Compressed: snap.Compressed,
		})
	}
	out := cmd.OutOrStdout()
	printSuccess(out, "Snapshot %s (%s)", snap.Name, humanize.Bytes(uint64(snap.Size)))
	if len(pruned) > 0 {
		fmt.Fprintf(out, "  Pruned %d old snapshot(s)\n", len(pruned))
	}
	return nil
}

func runSavesList(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}
	sb, err := svc.SaveBackup(inst.ID)
	if err != nil {
		return err
	}
	snaps, err := sb.List()
	if err != nil {
		return err
	}

	if jsonOutput {
		items := make([]snapshotJSON, len(snaps))
		for i, s := range snaps {
			items[i] = snapshotJSON{
				Name:       s.Name,
				Path:       s.Path,
				Created:    s.Created.UTC().Format("2006-01-02T15:04:05Z"),
				Size:       s.Size,
				Compressed: s.Compressed,
			}
		}
		return writeJSON(cmd, items)
	}

	out := cmd.OutOrStdout()
	if len(snaps) == 0 {
		fmt.Fprintf(out, "No snapshots in %s\n", sb.Config().BackupPath)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTAKEN\tSIZE\tFORMAT")
	fmt.Fprintln(w, "----\t-----\t----\t------")
	for _, s := range snaps {
		format := "folder"
		if s.Compressed {
			format = "tar.lz4"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, humanize.Time(s.Created), humanize.Bytes(uint64(s.Size)), format)
	}
	return w.Flush()
}

func runSavesRestore(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}
	sb, err := svc.SaveBackup(inst.ID)
	if err != nil {
		return err
	}

	dst := savesRestoreTo
	if dst == "" {
		dst = sb.Config().Path
	}
	out := cmd.OutOrStdout()
	if !savesYes && !jsonOutput {
		if !confirm(cmd, fmt.Sprintf("Replace %s with snapshot %s?", dst, args[0])) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := sb.Restore(cmd.Context(), args[0], dst); err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, map[string]string{"restored": args[0], "to": dst})
	}
	printSuccess(out, "Restored %s to %s", args[0], dst)
	return nil
}

func runSavesPrune(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}
	sb, err := svc.SaveBackup(inst.ID)
	if err != nil {
		return err
	}

	keep := savesKeep
	if keep == 0 {
		keep = sb.Config().Keep
	}
	removed, err := sb.Prune(keep)
	if err != nil {
		return err
	}
	if jsonOutput {
		if removed == nil {
			removed = []string{}
		}
		return writeJSON(cmd, map[string][]string{"removed": removed})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshot(s)\n", len(removed))
	return nil
}

func runSavesWatch(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}
	sb, err := svc.SaveBackup(inst.ID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Snapshotting %s every %s (Ctrl-C to stop)\n", sb.Config().Path, sb.Config().Interval)
	return sb.Run(ctx)
}
