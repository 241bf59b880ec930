package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"biblestudy/internal/datasets"
	"biblestudy/internal/offline"
)

func newDatasetCommand(ctx *commandContext) *cobra.Command {
	datasetCmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage offline translation datasets",
	}

	var baseURL string
	fetchCmd := &cobra.Command{
		Use:   "fetch [translation...]",
		Short: "Download offline datasets (" + strings.Join(offline.AvailableTranslations(), ", ") + " by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := []datasets.Option{datasets.WithLogger(ctx.logger())}
			source := strings.TrimSpace(baseURL)
			if source == "" {
				source = cfg.BibleAPI.DatasetBaseURL
				opts = append(opts, datasets.WithSources(cfg.BibleAPI.DatasetURLs))
			}
			fetcher := datasets.NewFetcher(source, cfg.Paths.DatasetDir, cfg.BibleAPI.DownloadRetries, opts...)
			results, err := fetcher.FetchAll(cmd.Context(), args)

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{strings.ToUpper(r.Translation), strconv.Itoa(r.Books), formatBytes(r.Bytes), r.Path})
			}
			if len(rows) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Translation", "Books", "Size", "Path"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignRight}))
			}
			return err
		},
	}
	fetchCmd.Flags().StringVar(&baseURL, "from", "", "Mirror base URL serving <translation>.json (overrides bible_api.dataset_urls and dataset_base_url)")
	datasetCmd.AddCommand(fetchCmd)
	return datasetCmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
