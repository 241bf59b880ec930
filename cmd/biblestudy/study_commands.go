package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"biblestudy/internal/app"
	"biblestudy/internal/bible"
	"biblestudy/internal/logging"
	"biblestudy/internal/memory"
	"biblestudy/internal/prompt"
)

func newInsightCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "insight <topic>",
		Short: "Ask for a theological insight on a topic or passage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			return ctx.withApp(func(a *app.App) error {
				insight, err := a.Dispatcher.FetchInsight(cmd.Context(), topic)
				if err != nil {
					return err
				}
				rememberInsight(cmd.Context(), a, topic, insight)
				if asJSON {
					return writeJSON(cmd, insight)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, insight.Text)
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Sources:")
				for _, s := range insight.Sources {
					fmt.Fprintf(out, "  - %s (%s)\n", s.Title, s.URI)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func rememberInsight(ctx context.Context, a *app.App, topic string, insight prompt.Insight) {
	state := a.Memory.LoadStudy(ctx)
	sources := make([]string, 0, len(insight.Sources))
	for _, s := range insight.Sources {
		sources = append(sources, s.URI)
	}
	state.LastQuery = topic
	state.LastResponse = &memory.StudyResponse{Response: insight.Text, Sources: sources, Timestamp: time.Now().UTC()}
	if err := a.Memory.SaveStudy(ctx, state); err != nil {
		logging.WarnWithContext(a.Logger, "could not save study memory", "memory_save_failed", logging.Error(err))
	}
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var translation string

	cmd := &cobra.Command{
		Use:   "summarize <book> <chapter>",
		Short: "Summarize a chapter",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, number, err := parseReference(args)
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app.App) error {
				ch, err := a.Cache.Fetch(cmd.Context(), book, number, translation)
				if err != nil {
					return err
				}
				summary, err := a.Dispatcher.SummarizeChapter(cmd.Context(), ch.AnalysisText(), ch.Reference)
				if err != nil {
					return err
				}
				rememberChapterAnalysis(cmd.Context(), a, ch, number, &memory.ChapterAnalysis{Type: "summary", Text: summary})
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", ch.Reference, summary)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&translation, "translation", "t", bible.DefaultTranslation, "Translation id")
	return cmd
}

func newCommentaryCommand(ctx *commandContext) *cobra.Command {
	var translation string
	var perspectiveFlag string
	var verses string

	cmd := &cobra.Command{
		Use:   "commentary <book> <chapter>",
		Short: "Generate commentary on a chapter or a verse range",
		Long: "Generate commentary from one of the perspectives: " + perspectiveNames() + ".\n" +
			"With --verses only the selected verses are discussed.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, number, err := parseReference(args)
			if err != nil {
				return err
			}
			perspective, err := prompt.ParsePerspective(perspectiveFlag)
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app.App) error {
				ch, err := a.Cache.Fetch(cmd.Context(), book, number, translation)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if strings.TrimSpace(verses) == "" {
					text, err := a.Dispatcher.ChapterCommentary(cmd.Context(), ch.AnalysisText(), ch.Reference, perspective)
					if err != nil {
						return err
					}
					rememberChapterAnalysis(cmd.Context(), a, ch, number, &memory.ChapterAnalysis{
						Type: "commentary", Text: text, Perspective: string(perspective),
					})
					fmt.Fprintf(out, "%s · %s\n\n%s\n", ch.Reference, perspective.Label(), text)
					return nil
				}

				start, end, err := parseVerseRange(verses)
				if err != nil {
					return err
				}
				excerpt := selectVerses(ch, start, end)
				if excerpt == "" {
					return fmt.Errorf("%s has no verses %s", ch.Reference, verses)
				}
				reference := fmt.Sprintf("%s:%s", ch.Reference, verses)
				text, err := a.Dispatcher.SelectionCommentary(cmd.Context(), excerpt, reference, perspective)
				if err != nil {
					return err
				}
				state := a.Memory.LoadExplorer(cmd.Context())
				state.SelectionAnalysis = &memory.SelectionAnalysis{
					Text:         text,
					Perspective:  string(perspective),
					SelectedText: excerpt,
					BookName:     bible.DisplayName(book),
					Chapter:      number,
				}
				saveExplorer(cmd.Context(), a, state)
				fmt.Fprintf(out, "%s · %s\n\n%s\n", reference, perspective.Label(), text)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&translation, "translation", "t", bible.DefaultTranslation, "Translation id")
	cmd.Flags().StringVarP(&perspectiveFlag, "perspective", "p", string(prompt.PerspectiveCatholic), "Commentary perspective")
	cmd.Flags().StringVar(&verses, "verses", "", "Verse or range to discuss, e.g. 16 or 3-5")
	return cmd
}

func newChatCommand(ctx *commandContext) *cobra.Command {
	var translation string
	var message string

	cmd := &cobra.Command{
		Use:   "chat <book> <chapter>",
		Short: "Chat about a chapter",
		Long: "Ask questions about a chapter. Each line read from stdin is one message; " +
			"an empty line, \"exit\" or EOF ends the session. The transcript is kept in explorer memory.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, number, err := parseReference(args)
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app.App) error {
				ch, err := a.Cache.Fetch(cmd.Context(), book, number, translation)
				if err != nil {
					return err
				}
				session := a.Dispatcher.NewChatSession(ch.Reference, ch.AnalysisText())
				if strings.TrimSpace(message) != "" {
					return chatTurn(cmd, a, session, message)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Chatting about %s. Empty line or \"exit\" to quit.\n", ch.Reference)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for {
					fmt.Fprint(out, "> ")
					if !scanner.Scan() {
						fmt.Fprintln(out)
						return scanner.Err()
					}
					line := strings.TrimSpace(scanner.Text())
					if line == "" || line == "exit" || line == "quit" {
						return nil
					}
					if err := chatTurn(cmd, a, session, line); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
				}
			})
		},
	}
	cmd.Flags().StringVarP(&translation, "translation", "t", bible.DefaultTranslation, "Translation id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send one message and exit")
	return cmd
}

// chatTurn sends one message and records both sides of the exchange.
func chatTurn(cmd *cobra.Command, a *app.App, session prompt.ChatSession, message string) error {
	reply, err := session.SendMessage(cmd.Context(), message)
	if err != nil {
		return err
	}
	for _, m := range []struct {
		role    memory.Role
		content string
	}{{memory.RoleUser, message}, {memory.RoleAssistant, reply}} {
		if _, err := a.Memory.AddChatMessage(cmd.Context(), memory.PageExplorer, m.role, m.content); err != nil {
			logging.WarnWithContext(a.Logger, "could not record chat message", "memory_save_failed", logging.Error(err))
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}

func rememberChapterAnalysis(ctx context.Context, a *app.App, ch bible.Chapter, number int, analysis *memory.ChapterAnalysis) {
	state := a.Memory.LoadExplorer(ctx)
	bookName := ch.Reference
	if len(ch.Verses) > 0 {
		bookName = ch.Verses[0].BookName
	}
	analysis.BookName = bookName
	analysis.Chapter = number
	analysis.Translation = ch.TranslationID
	state.ChapterAnalysis = analysis
	saveExplorer(ctx, a, state)
}

func saveExplorer(ctx context.Context, a *app.App, state memory.ExplorerState) {
	if err := a.Memory.SaveExplorer(ctx, state); err != nil {
		logging.WarnWithContext(a.Logger, "could not save explorer memory", "memory_save_failed", logging.Error(err))
	}
}

// selectVerses joins the cleaned text of verses start..end.
func selectVerses(ch bible.Chapter, start, end int) string {
	var parts []string
	for _, v := range ch.Verses {
		if v.Verse >= start && v.Verse <= end {
			parts = append(parts, bible.CleanVerseText(v.Text))
		}
	}
	return strings.Join(parts, " ")
}

func perspectiveNames() string {
	names := make([]string, 0, 3)
	for _, p := range prompt.Perspectives() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
