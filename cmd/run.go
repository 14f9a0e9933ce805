package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/model"
)

var (
	runCompaniesFile string
	runOutput        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the configured startups and write the final report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		companies, err := resolveCompanies(runCompaniesFile, cfg.Companies)
		if err != nil {
			return err
		}

		output := runOutput
		if output == "" {
			output = cfg.Output.Path
		}

		env, err := initPipeline(ctx, output)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Sequencer.Run(ctx, companies)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}
		result.TokenUsage = env.Tracker.Usage()

		zap.L().Info("evaluation complete",
			zap.String("run_id", result.RunID),
			zap.Int("companies", len(result.Companies)),
			zap.Int("steps", result.Steps),
			zap.Int("input_tokens", result.TokenUsage.InputTokens),
			zap.Int("output_tokens", result.TokenUsage.OutputTokens),
			zap.Float64("cost_usd", result.TokenUsage.Cost),
			zap.Any("calls", env.Tracker.Calls()),
		)

		return printRunResult(os.Stdout, &result.RunResult)
	},
}

// printRunResult writes the report location followed by a JSON summary that
// omits the full report text.
func printRunResult(w io.Writer, res *model.RunResult) error {
	if res.ReportPath != "" {
		_, _ = fmt.Fprintf(w, "report: %s\n", res.ReportPath)
	} else {
		_, _ = fmt.Fprintln(w, "report: not saved")
	}

	summary := *res
	summary.FinalReport = ""
	summary.Outcomes = make([]model.CompanyOutcome, len(res.Outcomes))
	for i, o := range res.Outcomes {
		o.Summary = ""
		summary.Outcomes[i] = o
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func init() {
	runCmd.Flags().StringVar(&runCompaniesFile, "companies", "", "YAML file listing the companies to evaluate")
	runCmd.Flags().StringVar(&runOutput, "output", "", "final report path (default output.path)")
	rootCmd.AddCommand(runCmd)
}
