package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"biblestudy/internal/preflight"
)

type doctorReport struct {
	Local  []preflight.Result `json:"local"`
	Remote []preflight.Result `json:"remote,omitempty"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var remote bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, datasets and, with --remote, the remote services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := doctorReport{Local: preflight.RunAll(cmd.Context(), cfg)}
			report.Local = append(report.Local, preflight.CheckGatewayURLFromConfig(cfg))
			if remote {
				report.Remote = preflight.RunRemote(cmd.Context(), cfg)
			}
			failed := len(preflight.Failed(report.Local)) + len(preflight.Failed(report.Remote))

			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderSectionHeader("Local", colorize))
				for _, r := range report.Local {
					fmt.Fprintln(out, renderCheck(r, colorize))
				}
				if remote {
					fmt.Fprintln(out, renderSectionHeader("Remote", colorize))
					for _, r := range report.Remote {
						fmt.Fprintln(out, renderCheck(r, colorize))
					}
				} else {
					fmt.Fprintln(out, renderStatusLine("Remote checks", statusInfo, "skipped (use --remote)", colorize))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Also check the chapter service and completion backend")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
