package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wrohdewald/restaround/internal/core"
	"github.com/wrohdewald/restaround/internal/schema"
	"github.com/wrohdewald/restaround/internal/storage/config"
	"github.com/wrohdewald/restaround/internal/ui"
)

var (
	version = "1.0.0"

	// Global flags
	configDir   string
	dataDir     string
	systemDir   string
	resticBin   string
	logLevel    string
	noColor     bool
	passUnknown bool
	noHistory   bool

	// Root-only flags
	dryRun   bool
	selfTest bool

	// exitCode carries the wrapped tool's (or an aborting pre script's)
	// exit status out of the command tree.
	exitCode int
)

// rootCmd runs the profile/command invocation itself; auxiliary operations
// are subcommands.
var rootCmd = &cobra.Command{
	Use:   "restaround [flags] PROFILE COMMAND [RESTIC-ARGS...]",
	Short: "Profile-driven wrapper around the restic backup tool",
	Long: `restaround makes using restic simpler with the help of profiles.

A profile is a directory of flag files under ~/.config/restaround or
/etc/restaround. Profile 'default' is always applied first; profiles can
inherit from each other. restaround composes the restic command line from
the resolved profiles and runs pre/post hook scripts around the call.`,
	Version:           version,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true, // Runtime errors should not print usage
	SilenceErrors:     true, // We handle error output in Execute()
	PersistentPreRunE: setupOutput,
	RunE:              runRoot,
}

func init() {
	// Everything after PROFILE belongs to restic, not to us.
	rootCmd.Flags().SetInterspersed(false)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configDir, "config", "", "user profile root (default: ~/.config/restaround)")
	pf.StringVar(&systemDir, "system", "", "system profile root (default: /etc/restaround)")
	pf.StringVar(&dataDir, "data", "", "data directory for the run history (default: ~/.local/share/restaround)")
	pf.StringVar(&resticBin, "bin", "", "restic binary to invoke (default: restic)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&passUnknown, "pass-unknown", false, "pass unknown flags through to restic instead of failing")
	pf.BoolVar(&noHistory, "no-history", false, "do not record this run in the history")

	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "only show the restic command to be executed")
	rootCmd.Flags().BoolVarP(&selfTest, "selftest", "s", false, "compare the builtin flag tables against the restic binary")
}

// colorEnabled returns true if colored output should be used (respects --no-color and NO_COLOR env).
// NO_COLOR: if set (any value), color is disabled per https://no-color.org
func colorEnabled() bool {
	if noColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return true
}

// setupOutput applies color and log level before any command runs.
// Precedence for the level: --log-level, then config.yaml, then info.
func setupOutput(cmd *cobra.Command, args []string) error {
	ui.SetColor(colorEnabled())

	lvl := logLevel
	if lvl == "" {
		if cfg, err := getServiceConfig(); err == nil {
			if app, err := config.Load(cfg.ConfigDir); err == nil {
				lvl = app.LogLevel
			}
		}
	}
	if lvl == "" {
		lvl = "info"
	}
	parsed, err := ui.ParseLevel(lvl)
	if err != nil {
		return err
	}
	ui.SetLevel(parsed)
	return nil
}

// Execute runs the root command. The process exits with the wrapped restic
// command's status, a failing pre script's status, or 1 on engine errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Errorf("%v", err)
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	if selfTest {
		return runSelfTest()
	}
	if len(args) == 0 {
		return cmd.Help()
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: restaround [flags] PROFILE COMMAND [RESTIC-ARGS...]")
	}

	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	exit, err := service.Run(cmd.Context(), core.Invocation{
		Profile:  args[0],
		Command:  args[1],
		ToolArgs: args[2:],
	})
	if err != nil {
		return err
	}
	exitCode = exit
	return nil
}

// runSelfTest checks the builtin schema against the restic binary.
func runSelfTest() error {
	bin := resticBin
	if bin == "" {
		cfg, err := getServiceConfig()
		if err != nil {
			return err
		}
		app, err := config.Load(cfg.ConfigDir)
		if err != nil {
			return err
		}
		bin = app.Restic
	}
	return schema.SelfTest(schema.ResticHelp(bin), os.Stdout)
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

	// First run: write the defaults so there is a config.yaml to edit.
	if _, err := os.Stat(filepath.Join(cfg.ConfigDir, "config.yaml")); os.IsNotExist(err) {
		defaults := &config.Config{Restic: "restic", LogLevel: "info"}
		if err := defaults.Save(cfg.ConfigDir); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	}

	return core.NewService(cfg)
}

// getServiceConfig returns the service configuration with defaults.
// Returns an error if UserHomeDir fails and defaults are needed.
func getServiceConfig() (core.ServiceConfig, error) {
	cfg := core.ServiceConfig{
		ConfigDir:   configDir,
		SystemDir:   systemDir,
		DataDir:     dataDir,
		Restic:      resticBin,
		DryRun:      dryRun,
		PassUnknown: passUnknown,
		NoHistory:   noHistory,
	}

	if cfg.ConfigDir == "" || cfg.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return core.ServiceConfig{}, fmt.Errorf("home directory: %w", err)
		}
		if cfg.ConfigDir == "" {
			cfg.ConfigDir = filepath.Join(homeDir, ".config", "restaround")
		}
		if cfg.DataDir == "" {
			cfg.DataDir = filepath.Join(homeDir, ".local", "share", "restaround")
		}
	}

	return cfg, nil
}
