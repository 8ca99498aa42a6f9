package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrohdewald/restaround/internal/ui"
)

var (
	historyLimit int
	historyPrune string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent restaround invocations",
	Long: `Show the recorded invocation history, newest first.

Every run records the profile, the composed restic command line and the
exit status. Recording can be disabled with --no-history or the
disable_history config setting.

Examples:
  restaround history
  restaround history --limit 50
  restaround history --prune 720h`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of entries to show, 0 for all")
	historyCmd.Flags().StringVar(&historyPrune, "prune", "", "delete entries older than this age, e.g. 720h")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	if service.DB() == nil {
		fmt.Println("History is disabled.")
		return nil
	}

	if historyPrune != "" {
		age, err := time.ParseDuration(historyPrune)
		if err != nil {
			return fmt.Errorf("parsing --prune: %w", err)
		}
		pruned, err := service.DB().PruneRuns(age)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d entries.\n", pruned)
		return nil
	}

	runs, err := service.DB().ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, ui.Bold("WHEN")+"\t"+ui.Bold("PROFILE")+"\t"+ui.Bold("COMMAND")+"\t"+ui.Bold("EXIT")+"\t"+ui.Bold("COMMAND LINE"))
	for _, r := range runs {
		exit := fmt.Sprintf("%d", r.ExitCode)
		cmdline := r.Args
		if r.DryRun {
			cmdline += " (dry run)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.FinishedAt.Local().Format(time.DateTime),
			r.Profile,
			r.Command,
			exit,
			cmdline,
		)
	}
	return w.Flush()
}
