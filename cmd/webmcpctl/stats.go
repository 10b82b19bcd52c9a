package main

import (
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [tool]",
		Short: "Show registry-wide or per-tool execution counters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)
			if len(args) == 1 {
				resp, err := client.toolStats(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printToolStats(resp, opts.jsonOutput)
			}
			snapshot, err := client.registryStats(cmd.Context())
			if err != nil {
				return err
			}
			return printRegistryStats(snapshot, opts.jsonOutput)
		},
	}
}
