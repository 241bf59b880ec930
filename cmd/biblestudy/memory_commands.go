package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"biblestudy/internal/app"
	"biblestudy/internal/memory"
)

func newMemoryCommand(ctx *commandContext) *cobra.Command {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Show or clear saved study memory (explorer or study)",
	}
	memoryCmd.AddCommand(&cobra.Command{
		Use:       "show <explorer|study>",
		Short:     "Print the saved state for a page as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(memory.PageExplorer), string(memory.PageStudy)},
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := memory.ParsePage(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app.App) error {
				state, err := a.Memory.Load(cmd.Context(), page)
				if err != nil {
					return err
				}
				return writeJSON(cmd, state)
			})
		},
	})
	memoryCmd.AddCommand(&cobra.Command{
		Use:       "clear <explorer|study>",
		Short:     "Forget the saved state for a page",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(memory.PageExplorer), string(memory.PageStudy)},
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := memory.ParsePage(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(func(a *app.App) error {
				if err := a.Memory.Clear(cmd.Context(), page); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s memory\n", page)
				return nil
			})
		},
	})
	return memoryCmd
}
