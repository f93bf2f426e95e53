package main

import (
	"fmt"
	"text/tabwriter"

	"bblaunch/internal/storage/db"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyLimit int

type historyJSONItem struct {
	Time    string `json:"time"`
	Mod     string `json:"mod"`
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
	OpID    string `json:"op_id,omitempty"`
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent mod operations",
	Long: `Show the journal of activations, deactivations, imports and removals
for an install, newest first. Failed operations are included.

Examples:
  bblaunch history
  bblaunch history --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of events to show")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}

	events, err := svc.History(inst.ID, historyLimit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}

	if jsonOutput {
		items := make([]historyJSONItem, len(events))
		for i, e := range events {
			items[i] = historyJSONItem{
				Time:    e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
				Mod:     e.Mod,
				Action:  e.Action,
				Outcome: e.Outcome,
				Detail:  e.Detail,
				OpID:    e.OpID,
			}
		}
		return writeJSON(cmd, items)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No history yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tACTION\tMOD\tOUTCOME")
	fmt.Fprintln(w, "----\t------\t---\t-------")
	for _, e := range events {
		outcome := successColor.Sprint(e.Outcome)
		if e.Outcome != db.OutcomeOK {
			outcome = errorColor.Sprint(e.Outcome)
			if e.Detail != "" {
				outcome += " " + dimColor.Sprint(truncate(e.Detail, 60))
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", humanize.Time(e.CreatedAt), e.Action, truncate(e.Mod, 40), outcome)
	}
	return w.Flush()
}
