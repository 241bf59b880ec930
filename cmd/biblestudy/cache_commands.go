package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"biblestudy/internal/app"
	"biblestudy/internal/chaptercache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the chapter cache",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached chapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				entries, err := a.Cache.Entries(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Chapter cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					state := "fresh"
					if e.Expired {
						state = "expired"
					}
					rows = append(rows, []string{
						e.Key,
						e.Reference,
						strings.ToUpper(e.Translation),
						strconv.Itoa(e.Verses),
						e.Created.Local().Format(time.DateTime),
						state,
					})
				}
				fmt.Fprintln(out, renderTable("",
					[]string{"Key", "Reference", "Translation", "Verses", "Cached", "State"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

type cacheSummary struct {
	Entries        int            `json:"entries"`
	Expired        int            `json:"expired"`
	ByTranslation  map[string]int `json:"by_translation"`
	Oldest         *time.Time     `json:"oldest,omitempty"`
	RetentionDays  int            `json:"retention_days"`
	MemoryCapacity int            `json:"memory_capacity"`
}

func summarizeEntries(entries []chaptercache.EntryInfo) cacheSummary {
	summary := cacheSummary{Entries: len(entries), ByTranslation: map[string]int{}}
	for _, e := range entries {
		if e.Expired {
			summary.Expired++
		}
		summary.ByTranslation[e.Translation]++
		if summary.Oldest == nil || e.Created.Before(*summary.Oldest) {
			created := e.Created
			summary.Oldest = &created
		}
	}
	return summary
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the persistent chapter cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				entries, err := a.Cache.Entries(cmd.Context())
				if err != nil {
					return err
				}
				summary := summarizeEntries(entries)
				summary.RetentionDays = a.Config.Cache.RetentionDays
				summary.MemoryCapacity = a.Config.Cache.MemoryCapacity
				if asJSON {
					return writeJSON(cmd, summary)
				}

				rows := [][]string{
					{"Entries", strconv.Itoa(summary.Entries)},
					{"Expired", strconv.Itoa(summary.Expired)},
					{"Retention", fmt.Sprintf("%d days", summary.RetentionDays)},
					{"Memory capacity", strconv.Itoa(summary.MemoryCapacity)},
				}
				if summary.Oldest != nil {
					rows = append(rows, []string{"Oldest", summary.Oldest.Local().Format(time.DateTime)})
				}
				translations := make([]string, 0, len(summary.ByTranslation))
				for tr := range summary.ByTranslation {
					translations = append(translations, tr)
				}
				sort.Strings(translations)
				for _, tr := range translations {
					rows = append(rows, []string{"  " + strings.ToUpper(tr), strconv.Itoa(summary.ByTranslation[tr])})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable("Chapter cache", []string{"Metric", "Value"}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached chapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				removed, err := a.Cache.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached chapters\n", removed)
				return nil
			})
		},
	}
}
