package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wrohdewald/restaround/internal/profile"
	"github.com/wrohdewald/restaround/internal/storage/config"
	"github.com/wrohdewald/restaround/internal/ui"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List available profiles",
	Long: `List all profiles found in the user and system profile roots.

Examples:
  restaround profiles
  restaround --system /tmp/etc profiles`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := getServiceConfig()
	if err != nil {
		return err
	}
	app, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return err
	}
	system := cfg.SystemDir
	if system == "" {
		system = app.SystemRoot
	}
	if system == "" {
		system = profile.SystemRoot
	}

	infos, err := profile.NewLocator(cfg.ConfigDir, system).List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No profiles found.")
		fmt.Printf("\nCreate one with: mkdir -p %s/<name>\n", cfg.ConfigDir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, ui.Bold("PROFILE")+"\t"+ui.Bold("ROOT"))
	for _, info := range infos {
		name := info.Name
		if name == profile.DefaultProfile {
			name += " (always applied)"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, info.Root)
	}
	return w.Flush()
}
