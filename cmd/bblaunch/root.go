package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"bblaunch/internal/core"
	"bblaunch/internal/domain"
	"bblaunch/internal/logging"
	"bblaunch/internal/storage/config"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	version = "0.4.0"

	// Global flags
	configDir  string
	dataDir    string
	installID  string
	verbosity  int
	logFile    string
	noHooks    bool
	jsonOutput bool
	noColor    bool

	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bblaunch",
	Short: "Mod manager for a PS4 game install",
	Long: `bblaunch activates and deactivates mods on the dvdroot_ps4 tree of a
PS4 game install. Displaced game files are backed up and restored on
deactivation, and conflicting mods are unwound in reverse order.

Run 'bblaunch tui' for the interactive mod list, or use the subcommands.`,
	Version:           version,
	SilenceUsage:      true, // Runtime errors should not print usage
	SilenceErrors:     true, // We handle error output in Execute()
	PersistentPreRunE: setupOutput,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
			logCloser = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: $XDG_CONFIG_HOME/bblaunch)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: $XDG_DATA_HOME/bblaunch)")
	rootCmd.PersistentFlags().StringVarP(&installID, "install", "i", "", "install ID to operate on")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v, -vv, -vvv)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noHooks, "no-hooks", false, "disable all hooks")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format (list, status, conflicts, verify, history, saves list)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func setupOutput(cmd *cobra.Command, args []string) error {
	// fatih/color already honours NO_COLOR and non-terminal stdout
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
		pterm.DisableColor()
	}
	logCloser = logging.SetupLogger(verbosity, logFile)
	return nil
}

// Execute runs the root command. Exit codes: 0 = success, 1 = error, 2 = user cancelled.
// When --json is set and an error occurs, prints {"error":"..."} to stdout before exiting.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			os.Exit(2)
		}
		if jsonOutput {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// getServiceConfig resolves the directories from the global flags
func getServiceConfig() (core.ServiceConfig, error) {
	cfg := core.ServiceConfig{
		ConfigDir: config.DefaultConfigDir(),
		DataDir:   dataDir,
		NoHooks:   noHooks,
	}
	if configDir != "" {
		dir, err := config.ParseConfigDir(configDir)
		if err != nil {
			return core.ServiceConfig{}, fmt.Errorf("--config: %w", err)
		}
		cfg.ConfigDir = dir
	}
	if cfg.DataDir != "" {
		cfg.DataDir = config.ExpandPath(cfg.DataDir)
	}
	return cfg, nil
}

// initService creates and initializes the core service
func initService() (*core.Service, error) {
	cfg, err := getServiceConfig()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	svc, err := core.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing service: %w", err)
	}
	return svc, nil
}

// requireInstall resolves the install to act on from --install, the
// configured default, or the only install.
func requireInstall(svc *core.Service) (*domain.Install, error) {
	id, err := svc.ResolveInstallID(installID)
	if err != nil {
		return nil, err
	}
	return svc.GetInstall(id)
}

// closeService closes svc, reporting a failure as a warning
func closeService(svc *core.Service) {
	if err := svc.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing service: %v\n", err)
	}
}
