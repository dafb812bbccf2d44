package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"keboola.io/project-restore/internal/app"
	"keboola.io/project-restore/internal/verify"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the target project is empty",
	Long: `Lists the buckets and component configurations of the target project and
reports whether a restore would pass the empty project validation.

The command exits with a non-zero status when a check fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd.OutOrStdout(), cmd.ErrOrStderr())
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		api, err := factories.StorageAPI(env, log)
		if err != nil {
			return err
		}
		snapshot, err := verify.TakeSnapshot(cmd.Context(), api)
		if err != nil {
			return app.TranslateError(err)
		}

		self := verify.Self{ComponentID: env.ComponentID, ConfigID: env.ConfigID}
		var results []verify.CheckResult
		for _, c := range verify.EmptyProjectCheckers(self) {
			results = append(results, c.Check(cmd.Context(), snapshot))
		}

		showJSON, _ := cmd.Flags().GetBool("json")
		if showJSON {
			if err := printJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
		} else {
			printResults(cmd.OutOrStdout(), results)
		}

		// The first failure is also the error of a restore run.
		_, err = verify.RunChecks(cmd.Context(), verify.EmptyProjectCheckers(self), snapshot)
		return err
	},
}

func init() {
	checkCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(checkCmd)
}

func printJSON(w io.Writer, results []verify.CheckResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printResults(w io.Writer, results []verify.CheckResult) {
	fmt.Fprintf(w, "%-20s  %-8s  %-8s  %s\n", "Check", "Level", "Status", "Message")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	passed := 0
	for _, r := range results {
		status := "✓ Pass"
		if r.Passed {
			passed++
		} else {
			status = "✗ Fail"
		}
		fmt.Fprintf(w, "%-20s  %-8s  %-8s  %s\n", r.Name, r.Level, status, r.Message)
	}
	fmt.Fprintf(w, "\nChecks: %d/%d passed\n", passed, len(results))
}
