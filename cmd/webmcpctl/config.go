package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"webmcpd/internal/domain"
)

func newConfigCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage webmcpd configuration files",
	}
	cmd.AddCommand(newConfigInitCmd(opts))
	return cmd
}

func newConfigInitCmd(_ *cliOptions) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := yaml.Marshal(defaultConfigDocument())
			if err != nil {
				return err
			}
			if outputPath == "" {
				fmt.Print(string(data))
				return nil
			}
			if _, err := os.Stat(outputPath); err == nil {
				return fmt.Errorf("%s already exists", outputPath)
			}
			return os.WriteFile(outputPath, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "write to a file instead of stdout (refuses to overwrite)")
	return cmd
}

// defaultConfigDocument builds the annotated default config. The keys
// mirror the server loader exactly; values may reference environment
// variables as ${NAME}.
func defaultConfigDocument() *yaml.Node {
	rateLimit := mappingNode(
		keyNode("enabled", ""), valueNode(true),
		keyNode("windowSeconds", ""), valueNode(domain.DefaultRateLimitWindowSeconds),
		keyNode("maxRequests", ""), valueNode(domain.DefaultRateLimitMaxRequests),
	)
	rateLimit.FootComment = "Per-type visibility overrides replace the built-in table for that\n" +
		"type wholesale. Example:\n" +
		"filters:\n" +
		"  clients:\n" +
		"    web:\n" +
		"      enabledGroups: [documents, planning]\n" +
		"      disabledPatterns: [workflow_*]\n" +
		"      maxTools: 10"

	root := mappingNode(
		keyNode("http", "Public HTTP facade."),
		mappingNode(
			keyNode("listenAddress", ""), valueNode(domain.DefaultHTTPListenAddress),
			keyNode("shutdownGraceSeconds", ""), valueNode(domain.DefaultShutdownGraceSeconds),
			keyNode("authToken", "Bearer token required by operations that declare requires_auth.\nEmpty keeps those operations open."), valueNode(""),
		),
		keyNode("observability", "Metrics and health endpoint."),
		mappingNode(
			keyNode("listenAddress", ""), valueNode(domain.DefaultObservabilityListenAddress),
			keyNode("enableMetrics", ""), valueNode(true),
			keyNode("enableHealthz", ""), valueNode(true),
		),
		keyNode("grpc", "Optional gRPC health endpoint for infra probes."),
		mappingNode(
			keyNode("enabled", ""), valueNode(false),
			keyNode("listenAddress", ""), valueNode(domain.DefaultGRPCListenAddress),
		),
		keyNode("cache", "Result cache. backend is memory or bolt."),
		mappingNode(
			keyNode("backend", ""), valueNode(domain.DefaultCacheBackend),
			keyNode("maxEntries", ""), valueNode(domain.DefaultCacheMaxEntries),
			keyNode("boltPath", "Only used when backend is bolt."), valueNode("webmcp-cache.db"),
			keyNode("sweepSeconds", ""), valueNode(domain.DefaultCacheSweepSeconds),
		),
		keyNode("breaker", "Per-tool circuit breaker."),
		mappingNode(
			keyNode("failureThreshold", ""), valueNode(domain.DefaultBreakerFailureThreshold),
			keyNode("recoverySeconds", ""), valueNode(domain.DefaultBreakerRecoverySeconds),
		),
		keyNode("dispatch", ""),
		mappingNode(
			keyNode("coalesce", "Collapse concurrent identical cacheable calls into one execution."), valueNode(false),
		),
		keyNode("store", "SQLite entity store."),
		mappingNode(
			keyNode("path", ""), valueNode(domain.DefaultStorePath),
		),
		keyNode("vectorStore", "HTTP vector-store collaborator used by the document tool."),
		mappingNode(
			keyNode("baseURL", ""), valueNode(domain.DefaultVectorStoreBaseURL),
			keyNode("timeoutSeconds", ""), valueNode(domain.DefaultVectorStoreTimeoutSeconds),
		),
		keyNode("rateLimit", "Fixed-window request budget per client type."),
		rateLimit,
	)
	root.HeadComment = "webmcpd server configuration."
	return root
}

func mappingNode(content ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Content: content}
}

func keyNode(name, comment string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: name, HeadComment: comment}
}

func valueNode(value any) *yaml.Node {
	node := &yaml.Node{}
	_ = node.Encode(value)
	return node
}
