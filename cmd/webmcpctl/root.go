package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliOptions struct {
	serverURL   string
	timeout     time.Duration
	clientType  string
	projectType string
	authToken   string
	jsonOutput  bool
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		serverURL:  "http://127.0.0.1:8080",
		timeout:    30 * time.Second,
		clientType: "cli",
	}

	root := &cobra.Command{
		Use:   "webmcpctl",
		Short: "CLI client for the webmcpd HTTP facade",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			applyRootFlagBindings(cmd, &opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", opts.serverURL, "base URL of the webmcpd HTTP facade")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "request timeout")
	root.PersistentFlags().StringVar(&opts.clientType, "client-type", opts.clientType, "client type to identify as (ide, cli, web, mobile)")
	root.PersistentFlags().StringVar(&opts.projectType, "project-type", "", "project type to identify as (defaults to the server-side manifest)")
	root.PersistentFlags().StringVar(&opts.authToken, "token", "", "bearer token for operations that require authorization")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")

	root.AddCommand(
		newToolsCmd(&opts),
		newCallCmd(&opts),
		newStatsCmd(&opts),
		newHealthCmd(&opts),
		newConfigCmd(&opts),
		newVersionCmd(&opts),
	)

	return root
}

func applyRootFlagBindings(cmd *cobra.Command, opts *cliOptions) {
	flags := cmd.Flags()
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "server":
			opts.serverURL, _ = flags.GetString("server")
		case "timeout":
			opts.timeout, _ = flags.GetDuration("timeout")
		case "client-type":
			opts.clientType, _ = flags.GetString("client-type")
		case "project-type":
			opts.projectType, _ = flags.GetString("project-type")
		case "token":
			opts.authToken, _ = flags.GetString("token")
		case "json":
			opts.jsonOutput, _ = flags.GetBool("json")
		}
	})
}
