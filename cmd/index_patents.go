package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/patent"
)

var indexCompaniesFile string

var indexPatentsCmd = &cobra.Command{
	Use:   "index-patents [company...]",
	Short: "Chunk, embed and store patent PDFs for semantic retrieval",
	Long:  "Reads patent.data_dir/<company>/*.pdf with pdftotext, splits the text into sentence-aligned chunks, embeds them and upserts them into the store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("index"); err != nil {
			return err
		}

		companies := args
		if len(companies) == 0 {
			var err error
			companies, err = resolveCompanies(indexCompaniesFile, cfg.Companies)
			if err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		idx, err := initPatentIndex(ctx, st)
		if err != nil {
			return err
		}

		results := make([]patent.IndexResult, 0, len(companies))
		for _, company := range companies {
			res, err := idx.IndexCompany(ctx, company)
			if err != nil {
				return eris.Wrapf(err, "index patents for %s", company)
			}
			zap.L().Info("patents indexed",
				zap.String("company", company),
				zap.Int("files", res.Files),
				zap.Int64("chunks", res.Chunks),
				zap.Int("markers", res.Markers),
			)
			results = append(results, res)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	indexPatentsCmd.Flags().StringVar(&indexCompaniesFile, "companies", "", "YAML file listing the companies to index")
	rootCmd.AddCommand(indexPatentsCmd)
}
