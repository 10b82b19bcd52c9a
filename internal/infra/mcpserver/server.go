// Package mcpserver exposes the master-tool registry over MCP stdio.
// Each master tool surfaces as one MCP tool taking {operation, arguments};
// dispatch runs through the same registry path as the HTTP façade, so
// caching, breaker, and stats behave identically on both surfaces.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/filter"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/telemetry"
)

// Options configures the stdio bridge.
type Options struct {
	Registry *registry.Registry
	Filter   *filter.Filter

	// ClientType the bridge identifies as when filtering; defaults to ide,
	// the typical home of a stdio MCP client.
	ClientType domain.ClientType

	// Name and Version go into the MCP implementation handshake.
	Name    string
	Version string

	Logger *zap.Logger
}

// Server bridges the registry onto an MCP stdio session.
type Server struct {
	registry *registry.Registry
	filter   *filter.Filter
	info     domain.ClientInfo
	name     string
	version  string
	logger   *zap.Logger

	mu         sync.Mutex
	server     *mcp.Server
	registered map[string]struct{}
}

// New builds the bridge and derives the initial tool list. Run establishes
// the transport.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := opts.Name
	if name == "" {
		name = "webmcpd"
	}
	version := opts.Version
	if version == "" {
		version = "0.0.0"
	}
	clientType := opts.ClientType
	if clientType == "" {
		clientType = domain.ClientIDE
	}
	s := &Server{
		registry: opts.Registry,
		filter:   opts.Filter,
		info: domain.ClientInfo{
			ClientType:  domain.NormalizeClientType(string(clientType)),
			ProjectType: opts.Filter.DefaultProject(),
		},
		name:       name,
		version:    version,
		logger:     logger.Named("mcpserver"),
		registered: make(map[string]struct{}),
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    s.name,
		Version: s.version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})
	s.Refresh()
	return s
}

// Run serves MCP over stdio until ctx is cancelled or the peer closes the
// stream.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp bridge starting (stdio transport)",
		zap.String(telemetry.FieldClientType, string(s.info.ClientType)))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Refresh re-derives the advertised tool list from the registry and the
// current filter policies. Tools that fell out of visibility are removed
// from the session; call it after a config reload.
func (s *Server) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	tools := s.registry.Tools()
	summaries := make([]registry.ToolSummary, 0, len(tools))
	for _, tool := range tools {
		summaries = append(summaries, tool.Summary())
	}
	s.info.ProjectType = s.filter.DefaultProject()
	visible := s.filter.Allowed(s.info, summaries)

	next := make(map[string]struct{}, len(visible))
	for _, summary := range visible {
		tool, ok := s.registry.Tool(summary.Name)
		if !ok {
			continue
		}
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name(),
			Description: toolDescription(tool),
			InputSchema: dispatchSchema(tool),
		}, s.dispatchHandler(tool.Name()))
		next[tool.Name()] = struct{}{}
	}

	var remove []string
	for name := range s.registered {
		if _, ok := next[name]; !ok {
			remove = append(remove, name)
		}
	}
	if len(remove) > 0 {
		sort.Strings(remove)
		s.server.RemoveTools(remove...)
		s.logger.Info("tools removed from mcp session", zap.Strings("tools", remove))
	}
	s.registered = next
}

type callArguments struct {
	Operation string         `json:"operation"`
	Arguments map[string]any `json:"arguments"`
}

type callPayload struct {
	RequestID       string         `json:"request_id"`
	Operation       string         `json:"operation"`
	Result          any            `json:"result,omitempty"`
	Success         bool           `json:"success"`
	ExecutionTimeMs float64        `json:"execution_time_ms"`
	Error           string         `json:"error,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

func (s *Server) dispatchHandler(toolName string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args callArguments
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Errorf("decode arguments: %w", err)), nil
			}
		}
		if args.Operation == "" {
			return errorResult(fmt.Errorf("tool %q requires an %q argument", toolName, "operation")), nil
		}

		tool, ok := s.registry.Tool(toolName)
		if !ok {
			return errorResult(fmt.Errorf("master tool %q is not registered", toolName)), nil
		}
		// Policies may have been reloaded since the tool list was
		// advertised; the call-time check is the one that counts.
		if err := s.filter.Check(s.info, tool.Name(), tool.Group()); err != nil {
			return errorResult(err), nil
		}
		if _, ok := tool.Operation(args.Operation); !ok {
			return errorResult(fmt.Errorf("operation %q not found on master tool %q", args.Operation, toolName)), nil
		}

		result := tool.Execute(ctx, &domain.OperationRequest{
			Operation: args.Operation,
			Arguments: args.Arguments,
			RequestID: telemetry.NewRequestID(),
			Timestamp: time.Now(),
		})
		payload, err := json.Marshal(callPayload{
			RequestID:       result.RequestID,
			Operation:       result.Operation,
			Result:          result.Result,
			Success:         result.Success,
			ExecutionTimeMs: float64(result.ExecutionTime) / float64(time.Millisecond),
			Error:           result.Error,
			Metadata:        result.Metadata,
		})
		if err != nil {
			return errorResult(fmt.Errorf("encode result: %w", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(payload)},
			},
			IsError: !result.Success,
		}, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %s", err.Error())},
		},
	}
}

func toolDescription(tool *registry.MasterTool) string {
	ops := tool.Operations()
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.Name)
	}
	description := tool.Description()
	if description == "" {
		description = fmt.Sprintf("Master tool %q.", tool.Name())
	}
	return fmt.Sprintf("%s Operations: %s.", description, strings.Join(names, ", "))
}

// dispatchSchema is the uniform envelope every master tool accepts. The
// per-operation argument schemas are served by the operation detail
// endpoint and embedded in the enum description instead of being inlined
// here, which keeps the advertised tool list small.
func dispatchSchema(tool *registry.MasterTool) *jsonschema.Schema {
	ops := tool.Operations()
	names := make([]any, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.Name)
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"operation": {
				Type:        "string",
				Description: "Operation to dispatch.",
				Enum:        names,
			},
			"arguments": {
				Type:        "object",
				Description: "Arguments for the chosen operation.",
			},
		},
		Required: []string{"operation"},
	}
}
