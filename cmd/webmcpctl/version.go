package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"webmcpd/internal/buildinfo"
)

func newVersionCmd(opts *cliOptions) *cobra.Command {
	var clientOnly bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show client and server versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if clientOnly {
				return printVersions(buildinfo.Version, buildinfo.Build, nil, opts.jsonOutput)
			}
			server, err := newAPIClient(opts).version(cmd.Context())
			if err != nil {
				return err
			}
			if err := printVersions(buildinfo.Version, buildinfo.Build, &server, opts.jsonOutput); err != nil {
				return err
			}
			if warning := versionSkewWarning(buildinfo.Version, server.Version); warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clientOnly, "client", false, "show only the client version, without contacting the server")
	return cmd
}

func printVersions(clientVersion, clientBuild string, server *versionResponse, jsonOutput bool) error {
	if jsonOutput {
		payload := map[string]any{
			"client": map[string]string{"version": clientVersion, "build": clientBuild},
		}
		if server != nil {
			payload["server"] = map[string]string{"version": server.Version, "build": server.Build}
		}
		return writeJSON(payload)
	}
	fmt.Printf("client=%s build=%s\n", clientVersion, clientBuild)
	if server != nil {
		fmt.Printf("server=%s build=%s\n", server.Version, server.Build)
	}
	return nil
}

// versionSkewWarning reports a major-version mismatch between client and
// server. Dev builds carry no semantic version, so they never warn.
func versionSkewWarning(clientVersion, serverVersion string) string {
	clientSemver := canonicalSemver(clientVersion)
	serverSemver := canonicalSemver(serverVersion)
	if clientSemver == "" || serverSemver == "" {
		return ""
	}
	if semver.Major(clientSemver) != semver.Major(serverSemver) {
		return fmt.Sprintf("warning: client %s and server %s differ in major version; behavior may not match",
			clientVersion, serverVersion)
	}
	return ""
}

func canonicalSemver(version string) string {
	v := strings.TrimSpace(version)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
