package main

import (
	"github.com/spf13/cobra"
)

func newHealthCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the daemon health report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := newAPIClient(opts).health(cmd.Context())
			if err != nil {
				return err
			}
			if err := printHealthReport(report, opts.jsonOutput); err != nil {
				return err
			}
			if report.Status != "ok" {
				return exitSilent(3)
			}
			return nil
		},
	}
}
