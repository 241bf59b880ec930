package main

import (
	"github.com/spf13/cobra"

	"biblestudy/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var opts server.Options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Bind, "bind", "", "Listen address (overrides server.bind)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level (overrides logging.level)")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Include source locations in logs")
	return cmd
}
