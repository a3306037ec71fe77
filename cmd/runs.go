package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage saved scan runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved scan runs, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		runs, err := appCtx.Services.ScanService.ListRuns(commandContext(cmd))
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s No scan runs in %s\n", colorInfo("→"), appCtx.ResultsDir)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTARGET\tSTATUS\tSTARTED\tDURATION\tMATCHED\tFINDINGS")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
				run.ID(),
				run.Target(),
				run.Status(),
				run.StartedAt().Local().Format(time.DateTime),
				run.Duration().Round(time.Millisecond),
				run.MatchedCount(),
				len(run.Findings()),
			)
		}
		return w.Flush()
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a saved scan run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateRunID(args[0]); err != nil {
			return err
		}
		appCtx := getAppContext(cmd)

		if err := appCtx.Services.ScanService.DeleteRun(commandContext(cmd), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted run %s\n", colorSuccess("✓"), args[0])
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}
