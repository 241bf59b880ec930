package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"biblestudy/internal/app"
	"biblestudy/internal/bible"
	"biblestudy/internal/chaptercache"
	"biblestudy/internal/logging"
)

func newChapterCommand(ctx *commandContext) *cobra.Command {
	var translation string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "chapter <book> <chapter>",
		Short: "Print a chapter through the tiered cache",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, number, err := parseReference(args)
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app.App) error {
				ch, tier, err := a.Cache.FetchWithTier(cmd.Context(), book, number, translation)
				if err != nil {
					return err
				}
				rememberChapter(cmd, a, book, number, ch.TranslationID)
				if asJSON {
					return writeJSON(cmd, ch)
				}
				printChapter(cmd, ch, tier)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&translation, "translation", "t", bible.DefaultTranslation, "Translation id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func printChapter(cmd *cobra.Command, ch bible.Chapter, tier chaptercache.Tier) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n\n", ch.Reference, strings.ToUpper(ch.TranslationID))
	for _, v := range ch.Verses {
		fmt.Fprintf(out, "%3d  %s\n", v.Verse, bible.CleanVerseText(v.Text))
	}
	fmt.Fprintf(out, "\n[%s]\n", tier)
}

// rememberChapter records the last viewed chapter in explorer memory. Failure
// only costs the bookmark.
func rememberChapter(cmd *cobra.Command, a *app.App, book string, number int, translation string) {
	state := a.Memory.LoadExplorer(cmd.Context())
	state.LastBook = bible.DisplayName(book)
	state.LastChapter = number
	state.LastTranslation = translation
	if err := a.Memory.SaveExplorer(cmd.Context(), state); err != nil {
		logging.WarnWithContext(a.Logger, "could not save last viewed chapter", "memory_save_failed", logging.Error(err))
	}
}

func newBooksCommand(ctx *commandContext) *cobra.Command {
	var translation string
	var alphabetical bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the books of the Bible",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app.App) error {
				books, err := a.Books(cmd.Context(), translation)
				if err != nil {
					return err
				}
				if alphabetical {
					sort.SliceStable(books, func(i, j int) bool {
						return strings.ToLower(books[i].Name) < strings.ToLower(books[j].Name)
					})
				}
				if asJSON {
					return writeJSON(cmd, books)
				}
				rows := make([][]string, 0, len(books))
				for i, b := range books {
					chapters := "-"
					if b.Chapters > 0 {
						chapters = strconv.Itoa(b.Chapters)
					}
					rows = append(rows, []string{strconv.Itoa(i + 1), b.Name, string(b.Testament), chapters})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable("",
					[]string{"#", "Book", "Testament", "Chapters"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&translation, "translation", "t", bible.DefaultTranslation, "Translation whose dataset supplies chapter counts")
	cmd.Flags().BoolVar(&alphabetical, "alpha", false, "Sort alphabetically instead of canonical order")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
