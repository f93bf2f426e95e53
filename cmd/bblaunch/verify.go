package main

import (
	"fmt"

	"bblaunch/internal/core"

	"github.com/spf13/cobra"
)

type verifyJSONOutput struct {
	InstallID string           `json:"install_id"`
	Files     []verifyFileJSON `json:"files"`
	Issues    int              `json:"issues"`
	Warnings  int              `json:"warnings"`
}

type verifyFileJSON struct {
	Path   string `json:"path"`
	Mod    string `json:"mod"`
	Status string `json:"status"` // ok, missing, modified, untracked
}

var verifyCmd = &cobra.Command{
	Use:   "verify [mod]",
	Short: "Check deployed mod files against their checksums",
	Long: `Verify every file an active mod deployed against the checksum recorded at
activation. Reports files that went missing or were changed behind bblaunch's
back. Files activated before checksums were recorded show as untracked.

Exits with an error when any file is missing or modified.

Examples:
  bblaunch verify
  bblaunch verify "Faster Hunter"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst, err := requireInstall(svc)
	if err != nil {
		return err
	}

	entries, err := svc.Verify(inst.ID)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", inst.ID, err)
	}

	var modFilter string
	if len(args) > 0 {
		modFilter = args[0]
	}

	out := cmd.OutOrStdout()
	var issues, warnings int
	files := []verifyFileJSON{}
	for _, e := range entries {
		if modFilter != "" && e.Mod != modFilter {
			continue
		}
		files = append(files, verifyFileJSON{Path: e.Path, Mod: e.Mod, Status: string(e.State)})

		switch e.State {
		case core.VerifyMissing:
			issues++
			if !jsonOutput {
				fmt.Fprintf(out, "%s %s (%s) - MISSING\n", errorColor.Sprint("X"), e.Path, e.Mod)
			}
		case core.VerifyModified:
			issues++
			if !jsonOutput {
				fmt.Fprintf(out, "%s %s (%s) - MODIFIED\n", errorColor.Sprint("X"), e.Path, e.Mod)
			}
		case core.VerifyUntracked:
			warnings++
			if !jsonOutput {
				fmt.Fprintf(out, "%s %s (%s) - NO CHECKSUM\n", warningColor.Sprint("?"), e.Path, e.Mod)
			}
		default:
			if !jsonOutput && verbosity > 0 {
				fmt.Fprintf(out, "%s %s (%s)\n", successColor.Sprint("+"), e.Path, e.Mod)
			}
		}
	}

	if jsonOutput {
		if err := writeJSON(cmd, verifyJSONOutput{InstallID: inst.ID, Files: files, Issues: issues, Warnings: warnings}); err != nil {
			return err
		}
	} else {
		if len(files) == 0 {
			fmt.Fprintln(out, "No deployed mod files to verify.")
			return nil
		}
		fmt.Fprintln(out)
		if issues == 0 {
			printSuccess(out, "Checked %d file(s), all intact", len(files))
		} else {
			fmt.Fprintf(out, "Checked %d file(s): %d issue(s)\n", len(files), issues)
			fmt.Fprintln(out, "Deactivate and reactivate the affected mods to repair them.")
		}
		if warnings > 0 {
			fmt.Fprintf(out, "%d file(s) have no recorded checksum\n", warnings)
		}
	}

	if issues > 0 {
		return fmt.Errorf("%d file(s) failed verification", issues)
	}
	return nil
}
