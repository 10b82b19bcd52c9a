package main

import (
	"github.com/spf13/cobra"
)

func newToolsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the master tools visible to this client",
	}
	cmd.AddCommand(
		newToolsListCmd(opts),
		newToolsShowCmd(opts),
		newToolsOpsCmd(opts),
	)
	return cmd
}

func newToolsListCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List visible master tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := newAPIClient(opts).listTools(cmd.Context())
			if err != nil {
				return err
			}
			return printToolList(resp, opts.jsonOutput)
		},
	}
}

func newToolsShowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <tool>",
		Short: "Show one master tool with its full operation table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := newAPIClient(opts).getTool(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printToolDescriptor(desc, opts.jsonOutput)
		},
	}
}

func newToolsOpsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ops <tool> [operation]",
		Short: "List a tool's operations, or show one operation's descriptor",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)
			if len(args) == 2 {
				op, err := client.getOperation(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printOperationDescriptor(op, opts.jsonOutput)
			}
			desc, err := client.getTool(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printOperations(desc, opts.jsonOutput)
		},
	}
}
