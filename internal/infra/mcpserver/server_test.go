package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/filter"
	"webmcpd/internal/infra/registry"
)

func newBridgeFixture(t *testing.T, clientType domain.ClientType) (*Server, *filter.Filter) {
	t.Helper()
	reg := registry.NewRegistry(nil, nil)

	tasks := registry.NewMasterTool(registry.MasterToolOptions{
		Name:        "tasks",
		Version:     "1.0.0",
		Description: "Task management.",
		Group:       domain.GroupTaskManagement,
		Priority:    10,
	})
	require.NoError(t, tasks.RegisterOperation(domain.Operation{
		Name:    "echo",
		Kind:    domain.OperationRead,
		Timeout: time.Second,
	}, func(_ context.Context, args map[string]any) (any, error) {
		return args, nil
	}))
	require.NoError(t, tasks.RegisterOperation(domain.Operation{
		Name:    "boom",
		Kind:    domain.OperationExecute,
		Timeout: time.Second,
	}, func(context.Context, map[string]any) (any, error) {
		return nil, domain.E(domain.CodeInvalidArgument, "tasks.boom", "bad input", nil)
	}))
	require.NoError(t, reg.RegisterTool(tasks))

	flows := registry.NewMasterTool(registry.MasterToolOptions{
		Name:     "flows",
		Version:  "1.0.0",
		Group:    domain.GroupWorkflow,
		Priority: 5,
	})
	require.NoError(t, flows.RegisterOperation(domain.Operation{
		Name:    "run_flow",
		Kind:    domain.OperationExecute,
		Timeout: time.Second,
	}, func(context.Context, map[string]any) (any, error) {
		return "done", nil
	}))
	require.NoError(t, reg.RegisterTool(flows))

	f := filter.New(filter.Options{})
	return New(Options{
		Registry:   reg,
		Filter:     f,
		ClientType: clientType,
		Version:    "1.0.0",
	}), f
}

func connectClient(t *testing.T, ctx context.Context, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ct, st := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	return session
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func decodePayload(t *testing.T, res *mcp.CallToolResult) callPayload {
	t.Helper()
	var payload callPayload
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &payload))
	return payload
}

func TestBridge_ListToolsRespectsFiltering(t *testing.T) {
	ctx := context.Background()

	t.Run("ide sees everything", func(t *testing.T) {
		s, _ := newBridgeFixture(t, domain.ClientIDE)
		session := connectClient(t, ctx, s.server)
		defer session.Close()

		res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
		require.NoError(t, err)
		require.Len(t, res.Tools, 2)

		names := []string{res.Tools[0].Name, res.Tools[1].Name}
		assert.Contains(t, names, "tasks")
		assert.Contains(t, names, "flows")
	})

	t.Run("mobile does not see workflow tools", func(t *testing.T) {
		s, _ := newBridgeFixture(t, domain.ClientMobile)
		session := connectClient(t, ctx, s.server)
		defer session.Close()

		res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
		require.NoError(t, err)
		require.Len(t, res.Tools, 1)
		assert.Equal(t, "tasks", res.Tools[0].Name)
	})
}

func TestBridge_CallTool(t *testing.T) {
	ctx := context.Background()
	s, _ := newBridgeFixture(t, domain.ClientIDE)
	session := connectClient(t, ctx, s.server)
	defer session.Close()

	t.Run("dispatches the named operation", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name: "tasks",
			Arguments: map[string]any{
				"operation": "echo",
				"arguments": map[string]any{"msg": "hi"},
			},
		})
		require.NoError(t, err)
		assert.False(t, res.IsError)

		payload := decodePayload(t, res)
		assert.True(t, payload.Success)
		assert.Equal(t, "echo", payload.Operation)
		assert.NotEmpty(t, payload.RequestID)
		result := payload.Result.(map[string]any)
		assert.Equal(t, "hi", result["msg"])
		assert.Equal(t, "tasks", payload.Metadata[domain.MetaToolName])
	})

	t.Run("dispatch failure reports the error payload", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "tasks",
			Arguments: map[string]any{"operation": "boom"},
		})
		require.NoError(t, err)
		assert.True(t, res.IsError)

		payload := decodePayload(t, res)
		assert.False(t, payload.Success)
		assert.Contains(t, payload.Error, "bad input")
		assert.Equal(t, string(domain.CodeInvalidArgument), payload.Metadata[domain.MetaErrorCode])
	})

	// The SDK may reject these against the input schema before the handler
	// runs; either layer refusing is correct.
	t.Run("missing operation argument", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "tasks",
			Arguments: map[string]any{},
		})
		if err != nil {
			return
		}
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "operation")
	})

	t.Run("unknown operation", func(t *testing.T) {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "tasks",
			Arguments: map[string]any{"operation": "nonesuch"},
		})
		if err != nil {
			return
		}
		assert.True(t, res.IsError)
	})
}

func TestBridge_RefreshTracksPolicyChanges(t *testing.T) {
	ctx := context.Background()
	s, f := newBridgeFixture(t, domain.ClientIDE)
	session := connectClient(t, ctx, s.server)
	defer session.Close()

	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 2)

	f.Apply(map[domain.ClientType]domain.ClientToolPolicy{
		domain.ClientIDE: {EnabledGroups: []domain.ToolGroup{domain.GroupTaskManagement}},
	}, nil)
	s.Refresh()

	res, err = session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, "tasks", res.Tools[0].Name)

	// Even a stale session cannot call a tool the policy now hides.
	callRes, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "flows",
		Arguments: map[string]any{"operation": "run_flow"},
	})
	if err == nil {
		assert.True(t, callRes.IsError)
	}
}

func TestDispatchSchema(t *testing.T) {
	s, _ := newBridgeFixture(t, domain.ClientIDE)
	tool, ok := s.registry.Tool("tasks")
	require.True(t, ok)

	schema := dispatchSchema(tool)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"operation"}, schema.Required)

	operation := schema.Properties["operation"]
	require.NotNil(t, operation)
	assert.ElementsMatch(t, []any{"boom", "echo"}, operation.Enum)
	require.NotNil(t, schema.Properties["arguments"])
}

func TestToolDescription(t *testing.T) {
	s, _ := newBridgeFixture(t, domain.ClientIDE)
	tool, ok := s.registry.Tool("tasks")
	require.True(t, ok)

	description := toolDescription(tool)
	assert.Contains(t, description, "Task management.")
	assert.Contains(t, description, "boom")
	assert.Contains(t, description, "echo")
}
