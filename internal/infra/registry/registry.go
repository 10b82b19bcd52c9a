package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/telemetry"
)

// Registry holds every master tool and owns the canonical dispatch
// entrypoint. Lookup is by tool name only; the operation index exists
// for introspection and collision detection, never for routing.
type Registry struct {
	mu             sync.RWMutex
	tools          map[string]*MasterTool
	operationIndex map[string]string

	logger  *zap.Logger
	metrics domain.Metrics
}

func NewRegistry(logger *zap.Logger, metrics domain.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Registry{
		tools:          make(map[string]*MasterTool),
		operationIndex: make(map[string]string),
		logger:         logger.Named("registry"),
		metrics:        metrics,
	}
}

// RegisterTool adds tool. A duplicate tool name, or an operation name
// already bound to another tool, fails registration outright; silent
// override would hide a wiring bug until dispatch time.
func (r *Registry) RegisterTool(tool *MasterTool) error {
	const errOp = "registry.RegisterTool"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name()]; exists {
		return domain.E(domain.CodeAlreadyExists, errOp,
			fmt.Sprintf("tool %q already registered", tool.Name()),
			domain.ErrDuplicateTool)
	}
	for _, op := range tool.Operations() {
		if owner, taken := r.operationIndex[op.Name]; taken {
			return domain.E(domain.CodeAlreadyExists, errOp,
				fmt.Sprintf("operation %q already provided by tool %q", op.Name, owner),
				domain.ErrDuplicateOperation)
		}
	}

	r.tools[tool.Name()] = tool
	for _, op := range tool.Operations() {
		r.operationIndex[op.Name] = tool.Name()
	}
	r.metrics.SetRegisteredTools(len(r.tools))
	r.logger.Info("tool registered",
		telemetry.EventField(telemetry.EventRegisterTool),
		telemetry.ToolField(tool.Name()),
		zap.String("version", tool.Version()),
		zap.Int("operations", len(tool.Operations())),
	)
	return nil
}

// UnregisterTool removes name and its operation index entries. It backs
// tests and shutdown symmetry; steady-state serving never calls it.
func (r *Registry) UnregisterTool(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.tools[name]
	if !ok {
		return false
	}
	delete(r.tools, name)
	for _, op := range tool.Operations() {
		if r.operationIndex[op.Name] == name {
			delete(r.operationIndex, op.Name)
		}
	}
	r.metrics.SetRegisteredTools(len(r.tools))
	return true
}

// Tool returns the master tool registered under name.
func (r *Registry) Tool(name string) (*MasterTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Tools returns all registered tools sorted by name.
func (r *Registry) Tools() []*MasterTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]*MasterTool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// OperationOwner reports which tool provides the named operation.
func (r *Registry) OperationOwner(operation string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.operationIndex[operation]
	return owner, ok
}

// ExecuteOperation is the canonical dispatch path: resolve the tool by
// name, build the request envelope, delegate. Unknown tool is the only
// error; operation-level failures come back inside the result.
func (r *Registry) ExecuteOperation(ctx context.Context, toolName, operation string, args map[string]any) (*domain.OperationResult, error) {
	tool, ok := r.Tool(toolName)
	if !ok {
		return nil, domain.E(domain.CodeNotFound, "registry.ExecuteOperation",
			fmt.Sprintf("unknown tool %q", toolName), domain.ErrToolNotFound)
	}

	requestID, _ := telemetry.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = telemetry.NewRequestID()
	}
	req := &domain.OperationRequest{
		Operation: operation,
		Arguments: args,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
	return tool.Execute(ctx, req), nil
}

// Stats aggregates execution counters across every registered tool.
func (r *Registry) Stats() domain.RegistryStatsSnapshot {
	tools := r.Tools()

	snapshot := domain.RegistryStatsSnapshot{Tools: len(tools)}
	for _, tool := range tools {
		stats := tool.Stats()
		snapshot.Operations += len(tool.Operations())
		snapshot.TotalExecutions += stats.TotalExecutions
		snapshot.SuccessfulExecutions += stats.SuccessfulExecutions
		snapshot.FailedExecutions += stats.FailedExecutions
		snapshot.CacheHits += stats.CacheHits
		snapshot.PerTool = append(snapshot.PerTool, stats)
	}
	return snapshot
}
