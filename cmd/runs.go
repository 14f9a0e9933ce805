package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect evaluation run history",
	Long:  "Commands for listing and viewing stored evaluation runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runsListCmd.RunE(cmd, args)
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evaluation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

// runDetail is the JSON shape printed by runs show.
type runDetail struct {
	*model.Run
	Outcomes []model.CompanyOutcome `json:"outcomes"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show per-company outcomes and the final report of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		outcomes, err := st.ListOutcomes(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show: outcomes")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runDetail{Run: run, Outcomes: outcomes})
	},
}

func init() {
	for _, c := range []*cobra.Command{runsCmd, runsListCmd} {
		c.Flags().String("status", "", "filter by run status (running, complete, failed)")
		c.Flags().Int("limit", 50, "max number of runs to display")
	}

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANIES\tSTATUS\tCREATED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t-------\t--------\t-----")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			truncate(strings.Join(r.Companies, ","), 30),
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
			truncate(r.Error, 40),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
