package main

import (
	"context"
	"fmt"
	"os"

	"bblaunch/internal/core"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	importName     string
	importReplace  bool
	importActivate bool
	removeYes      bool
)

var importCmd = &cobra.Command{
	Use:   "import <archive-or-folder>",
	Short: "Import a mod from an archive or folder",
	Long: `Import a mod into the install's mods folder from an archive (zip, 7z,
rar, tar.lz4) or a loose folder.

The mod is named after its archive unless a modinfo.toml or a single wrapper
folder says otherwise. Version suffixes such as "-v1.2" are stripped from the
name. The content must have a dvdroot_ps4 folder or game data folders (parts,
chr, map, ...) at its root.

Examples:
  bblaunch import ./faster-hunter-v1.2.zip
  bblaunch import ./MyMod --name "My Mod"
  bblaunch import ./update.7z --replace --activate`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var removeCmd = &cobra.Command{
	Use:   "remove <mod>",
	Short: "Delete an inactive mod from the mods folder",
	Long: `Delete a mod folder. Active mods must be deactivated first.

Examples:
  bblaunch remove "Faster Hunter"`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	importCmd.Flags().StringVarP(&importName, "name", "n", "", "mod name (default: detected from the archive)")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "replace an existing inactive mod of the same name")
	importCmd.Flags().BoolVarP(&importActivate, "activate", "a", false, "activate the mod after importing")
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "skip confirmation prompt")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(removeCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	src := args[0]
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("source not found: %s", src)
	}

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
	if !jsonOutput {
		fmt.Fprintf(out, "Importing: %s\n", src)
	}

	ctx := context.Background()
	result, err := engine.Import(ctx, src, core.ImportOptions{Name: importName, Replace: importReplace})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if jsonOutput {
		if err := writeJSON(cmd, map[string]any{
			"mod":      result.Mod.Name,
			"path":     result.Mod.Path,
			"version":  result.Version,
			"files":    result.Files,
			"replaced": result.Replaced,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "\nMod: %s\n", result.Mod.Name)
		if result.Version != "" {
			fmt.Fprintf(out, "  Version: %s\n", result.Version)
		}
		if m := result.Mod.Manifest; m != nil && m.Author != "" {
			fmt.Fprintf(out, "  Author: %s\n", m.Author)
		}
		fmt.Fprintf(out, "  Files: %d\n", result.Files)
		if size, err := engine.Library().Size(result.Mod); err == nil {
			fmt.Fprintf(out, "  Size: %s\n", humanize.Bytes(uint64(size)))
		}
		if result.Replaced {
			fmt.Fprintln(out, "  (replaced the previous copy)")
		}
		printSuccess(out, "Imported to %s", result.Mod.Path)
	}

	if !importActivate {
		return nil
	}
	return activateMods(cmd, svc, inst, []string{result.Mod.Name})
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

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
	if !removeYes && !jsonOutput {
		if !confirm(cmd, fmt.Sprintf("Delete %s from %s?", name, inst.ModsPath)) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := engine.RemoveMod(name); err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, map[string]string{"removed": name})
	}
	printSuccess(out, "Removed %s", name)
	return nil
}
