package main

import (
	"bblaunch/internal/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive mod list",
	Long: `Open the terminal UI. Pick an install, then toggle mods with space;
conflicts are confirmed in place and progress is shown per file.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	return tui.Run(svc, installID)
}
