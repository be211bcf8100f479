package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	jsonstore "github.com/khanhnv2901/phishcheck/internal/infrastructure/persistence/json"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved evaluation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		if err := ensureResultsRoot(appCtx); err != nil {
			return err
		}
		repo, err := jsonstore.NewResultRepository(appCtx.ResultsDir)
		if err != nil {
			return err
		}

		ids, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, colorWarn("No saved runs in"), appCtx.ResultsDir)
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the results of a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		repo, err := jsonstore.NewResultRepository(appCtx.ResultsDir)
		if err != nil {
			return err
		}

		run, err := repo.FindByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(run.Results())
		}

		meta := run.Metadata()
		fmt.Fprintf(out, "%s %s (%s)\n", colorInfo("Run:"), run.ID(), run.Status())
		if run.Operator() != "" {
			fmt.Fprintf(out, "%s %s\n", colorInfo("Operator:"), run.Operator())
		}
		fmt.Fprintf(out, "%s %d URLs, %d flagged, highest score %d\n\n", colorInfo("Summary:"), meta.TotalURLs, meta.FlaggedURLs, meta.HighestScore)
		for _, res := range run.Results() {
			printResult(out, res)
		}
		return nil
	},
}

func init() {
	runsShowCmd.Flags().Bool("json", false, "print results as JSON")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
