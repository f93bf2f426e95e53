package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"bblaunch/internal/domain"
	"bblaunch/internal/storage/config"

	"github.com/spf13/cobra"
)

var (
	addName          string
	addModsPath      string
	addBackupPath    string
	addUniquePath    string
	addLinkMethod    string
	addConflictMatch string
	addSavesPath     string
	addSavesKeep     int
	addSavesInterval time.Duration
	addSavesCompress bool
	addDefault       bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install management commands",
	Long:  `Commands for managing the game installs bblaunch knows about.`,
}

var installAddCmd = &cobra.Command{
	Use:   "add <id> <install-path>",
	Short: "Add or update an install",
	Long: `Register a game install. The install path is the game directory that
contains dvdroot_ps4.

The mods folder and both backup partitions default to directories under the
data directory.

Examples:
  bblaunch install add bb ~/games/CUSA03173 --name Bloodborne
  bblaunch install add bb ~/games/CUSA03173 --mods ~/mods/bb --default
  bblaunch install add bb ~/games/CUSA03173 --saves ~/.shadps4/user/savedata --saves-keep 10`,
	Args: cobra.ExactArgs(2),
	RunE: runInstallAdd,
}

var installListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured installs",
	Args:  cobra.NoArgs,
	RunE:  runInstallList,
}

var installRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Forget an install",
	Long: `Remove an install from installs.yaml. Refused while any of its mods is
active; run 'bblaunch purge' first. Files on disk are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstallRemove,
}

var installSetDefaultCmd = &cobra.Command{
	Use:   "set-default <id>",
	Short: "Set the default install",
	Long: `Set the default install so you don't have to pass --install to every command.

Example:
  bblaunch install set-default bb`,
	Args: cobra.ExactArgs(1),
	RunE: runInstallSetDefault,
}

func init() {
	f := installAddCmd.Flags()
	f.StringVar(&addName, "name", "", "display name (default: the id)")
	f.StringVar(&addModsPath, "mods", "", "mods folder")
	f.StringVar(&addBackupPath, "backup", "", "backup folder for displaced game files")
	f.StringVar(&addUniquePath, "unique-backup", "", "backup folder for files mods add")
	f.StringVar(&addLinkMethod, "link", "", "link method: copy, hardlink or symlink (default: config)")
	f.StringVar(&addConflictMatch, "conflict-match", "exact", "conflict matching: exact or substring")
	f.StringVar(&addSavesPath, "saves", "", "emulator save-data folder to snapshot")
	f.IntVar(&addSavesKeep, "saves-keep", 0, "snapshots to keep (0 keeps all)")
	f.DurationVar(&addSavesInterval, "saves-interval", 30*time.Minute, "snapshot interval for 'saves watch'")
	f.BoolVar(&addSavesCompress, "saves-compress", false, "write snapshots as .tar.lz4 archives")
	f.BoolVar(&addDefault, "default", false, "make this the default install")

	installCmd.AddCommand(installAddCmd)
	installCmd.AddCommand(installListCmd)
	installCmd.AddCommand(installRemoveCmd)
	installCmd.AddCommand(installSetDefaultCmd)
	rootCmd.AddCommand(installCmd)
}

func runInstallAdd(cmd *cobra.Command, args []string) error {
	id := args[0]
	installPath, err := filepath.Abs(config.ExpandPath(args[1]))
	if err != nil {
		return fmt.Errorf("install path: %w", err)
	}

	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	inst := &domain.Install{
		ID:               id,
		Name:             addName,
		InstallPath:      installPath,
		ModsPath:         config.ExpandPath(addModsPath),
		BackupPath:       config.ExpandPath(addBackupPath),
		UniqueBackupPath: config.ExpandPath(addUniquePath),
		ConflictMatch:    domain.ParseConflictMatch(addConflictMatch),
	}
	if inst.Name == "" {
		inst.Name = id
	}
	if addLinkMethod != "" {
		inst.LinkMethod = domain.ParseLinkMethod(addLinkMethod)
		inst.LinkMethodExplicit = true
	}
	if addSavesPath != "" {
		inst.Saves = domain.SaveConfig{
			Path:     config.ExpandPath(addSavesPath),
			Keep:     addSavesKeep,
			Interval: addSavesInterval,
			Compress: addSavesCompress,
		}
	}

	if err := svc.AddInstall(inst); err != nil {
		return err
	}
	if addDefault {
		if err := svc.SetDefaultInstall(id); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(inst.DvdRootPath()); err != nil {
		printWarning(out, "%s does not exist yet", inst.DvdRootPath())
	}
	printSuccess(out, "Added install %s (%s)", inst.Name, id)
	fmt.Fprintf(out, "  Mods:   %s\n", inst.ModsPath)
	fmt.Fprintf(out, "  Backup: %s\n", inst.BackupPath)
	return nil
}

func runInstallList(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	installs := svc.ListInstalls()
	if jsonOutput {
		type installJSON struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			InstallPath string `json:"install_path"`
			ModsPath    string `json:"mods_path"`
			LinkMethod  string `json:"link_method"`
			Default     bool   `json:"default"`
		}
		items := make([]installJSON, len(installs))
		for i, inst := range installs {
			items[i] = installJSON{
				ID:          inst.ID,
				Name:        inst.Name,
				InstallPath: inst.InstallPath,
				ModsPath:    inst.ModsPath,
				LinkMethod:  inst.LinkMethod.String(),
				Default:     inst.ID == svc.Config().DefaultInstall,
			}
		}
		return writeJSON(cmd, items)
	}

	out := cmd.OutOrStdout()
	if len(installs) == 0 {
		fmt.Fprintln(out, "No installs configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPATH\tLINK")
	fmt.Fprintln(w, "--\t----\t----\t----")
	for _, inst := range installs {
		id := inst.ID
		if id == svc.Config().DefaultInstall {
			id += "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, truncate(inst.Name, 30), inst.InstallPath, inst.LinkMethod)
	}
	return w.Flush()
}

func runInstallRemove(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	if err := svc.RemoveInstall(args[0]); err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), "Removed install %s", args[0])
	return nil
}

func runInstallSetDefault(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	if err := svc.SetDefaultInstall(args[0]); err != nil {
		return err
	}
	inst, err := svc.GetInstall(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Default install set to: %s (%s)\n", inst.Name, inst.ID)
	return nil
}
