package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/telemetry"
)

// OperationHandler executes one operation. Handlers must honor ctx and
// report failures through the returned error; the dispatch layer turns
// both errors and panics into failed results.
type OperationHandler func(ctx context.Context, args map[string]any) (any, error)

// MasterToolOptions configures a MasterTool.
type MasterToolOptions struct {
	Name        string
	Version     string
	Description string
	Group       domain.ToolGroup
	// Priority orders tools in filtered listings; higher surfaces first.
	Priority int
	Cache    domain.ResultCache
	Breaker  domain.BreakerConfig
	// Coalesce shares one in-flight execution among concurrent callers
	// of the same cacheable operation and arguments.
	Coalesce bool
	Logger   *zap.Logger
	Metrics  domain.Metrics
	// Now is overridable for deterministic timing in tests.
	Now func() time.Time
}

// MasterTool groups the operations of one resource family behind a
// single dispatch table. Execution flows through the per-tool circuit
// breaker and result cache; counters accumulate in ToolStats.
type MasterTool struct {
	name        string
	version     string
	description string
	group       domain.ToolGroup
	priority    int

	mu         sync.RWMutex
	operations map[string]domain.Operation
	handlers   map[string]OperationHandler

	cache   domain.ResultCache
	breaker *domain.CircuitBreaker
	stats   *domain.ToolStats
	flight  *inflightGroup

	logger  *zap.Logger
	metrics domain.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

func NewMasterTool(opts MasterToolOptions) *MasterTool {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cache := opts.Cache
	if cache == nil {
		cache = domain.NewMemoryResultCache(domain.MemoryCacheOptions{})
	}

	t := &MasterTool{
		name:        opts.Name,
		version:     opts.Version,
		description: opts.Description,
		group:       opts.Group,
		priority:    opts.Priority,
		operations:  make(map[string]domain.Operation),
		handlers:    make(map[string]OperationHandler),
		cache:       cache,
		stats:       domain.NewToolStats(opts.Name),
		logger:      logger.Named("tool." + opts.Name),
		metrics:     metrics,
		tracer:      otel.Tracer("webmcpd/registry"),
		now:         now,
	}
	if opts.Coalesce {
		t.flight = newInflightGroup()
	}

	t.breaker = domain.NewCircuitBreaker(domain.BreakerOptions{
		Name:             opts.Name,
		FailureThreshold: opts.Breaker.FailureThreshold,
		RecoveryTimeout:  opts.Breaker.Recovery(),
		Now:              now,
		OnStateChange: func(name string, from, to domain.BreakerState) {
			t.logger.Warn("breaker state changed",
				telemetry.EventField(telemetry.EventBreakerTransition),
				telemetry.ToolField(name),
				zap.String("from", string(from)),
				zap.String("to", string(to)),
			)
			t.metrics.ObserveBreakerTransition(name, from, to)
			t.metrics.SetBreakerState(name, to)
		},
	})
	t.metrics.SetBreakerState(opts.Name, domain.BreakerClosed)
	return t
}

func (t *MasterTool) Name() string            { return t.name }
func (t *MasterTool) Version() string         { return t.version }
func (t *MasterTool) Description() string     { return t.description }
func (t *MasterTool) Group() domain.ToolGroup { return t.group }
func (t *MasterTool) Priority() int           { return t.priority }

// RegisterOperation adds op to the dispatch table. A duplicate name or
// an unresolvable schema is a hard registration error.
func (t *MasterTool) RegisterOperation(op domain.Operation, handler OperationHandler) error {
	const errOp = "registry.RegisterOperation"

	if err := op.Validate(); err != nil {
		return err
	}
	if handler == nil {
		return domain.E(domain.CodeInvalidArgument, errOp,
			fmt.Sprintf("operation %q: handler is nil", op.Name), nil)
	}
	if op.InputSchema != nil {
		if _, err := op.InputSchema.Resolve(nil); err != nil {
			return domain.E(domain.CodeInvalidArgument, errOp,
				fmt.Sprintf("operation %q: input schema does not resolve", op.Name), err)
		}
	}
	if op.OutputSchema != nil {
		if _, err := op.OutputSchema.Resolve(nil); err != nil {
			return domain.E(domain.CodeInvalidArgument, errOp,
				fmt.Sprintf("operation %q: output schema does not resolve", op.Name), err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.operations[op.Name]; exists {
		return domain.E(domain.CodeAlreadyExists, errOp,
			fmt.Sprintf("operation %q already registered on tool %q", op.Name, t.name),
			domain.ErrDuplicateOperation)
	}
	t.operations[op.Name] = op
	t.handlers[op.Name] = handler
	return nil
}

// Operation returns the descriptor for name.
func (t *MasterTool) Operation(name string) (domain.Operation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	op, ok := t.operations[name]
	return op, ok
}

// Operations returns all registered operations sorted by name. Callers
// must not rely on registration order.
func (t *MasterTool) Operations() []domain.Operation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ops := make([]domain.Operation, 0, len(t.operations))
	for _, op := range t.operations {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// Stats returns a snapshot of the tool's execution counters.
func (t *MasterTool) Stats() domain.ToolStatsSnapshot {
	return t.stats.Snapshot()
}

// BreakerSnapshot returns the tool's circuit breaker counters.
func (t *MasterTool) BreakerSnapshot() domain.BreakerSnapshot {
	return t.breaker.Snapshot()
}

// Execute dispatches req and never returns a Go error: every failure
// surfaces as a result with Success=false and a populated Error.
func (t *MasterTool) Execute(ctx context.Context, req *domain.OperationRequest) *domain.OperationResult {
	start := t.now()
	if req.RequestID == "" {
		if id, ok := telemetry.RequestIDFromContext(ctx); ok {
			req.RequestID = id
		} else {
			req.RequestID = telemetry.NewRequestID()
		}
	}

	ctx, span := t.tracer.Start(ctx, "dispatch "+t.name+"."+req.Operation,
		trace.WithAttributes(
			attribute.String("tool", t.name),
			attribute.String("operation", req.Operation),
		))
	defer span.End()

	t.mu.RLock()
	op, known := t.operations[req.Operation]
	t.mu.RUnlock()
	if !known {
		span.SetStatus(codes.Error, "unknown operation")
		return t.failed(req, start, domain.E(domain.CodeNotFound, "registry.Execute",
			fmt.Sprintf("tool %q has no operation %q", t.name, req.Operation),
			domain.ErrOperationNotFound))
	}

	cacheKey := ""
	if op.Cacheable() {
		key, err := domain.CacheKey(t.name, op.Name, req.Arguments)
		if err != nil {
			span.SetStatus(codes.Error, "arguments not serializable")
			t.stats.RecordExecution(t.now().Sub(start), false)
			t.metrics.ObserveDispatch(t.name, op.Name, op.Kind, t.now().Sub(start), err)
			return t.failed(req, start, err)
		}
		cacheKey = key

		if cached, ok := t.cache.Get(cacheKey); ok {
			t.stats.RecordCacheHit()
			t.metrics.ObserveCache(t.name, true)
			t.logger.Debug("served from cache",
				telemetry.EventField(telemetry.EventCacheHit),
				telemetry.OperationField(op.Name),
				zap.String(telemetry.FieldCacheKey, cacheKey),
			)
			result := &domain.OperationResult{
				RequestID:     req.RequestID,
				Operation:     op.Name,
				Result:        cached.Result,
				Success:       true,
				ExecutionTime: t.now().Sub(start),
			}
			t.stamp(result)
			result.WithMeta(domain.MetaCacheHit, true)
			return result
		}
		t.metrics.ObserveCache(t.name, false)
	}

	if t.flight != nil && cacheKey != "" {
		shared, followed, err := t.flight.do(ctx, cacheKey, func() *domain.OperationResult {
			return t.invoke(ctx, op, req, cacheKey)
		})
		if err != nil {
			span.SetStatus(codes.Error, "coalesced wait interrupted")
			return t.failed(req, start, domain.E(domain.CodeFrom(err), "registry.Execute",
				"canceled while waiting on an in-flight execution", err))
		}
		if !followed {
			return shared
		}
		t.stats.RecordCacheHit()
		result := &domain.OperationResult{
			RequestID:     req.RequestID,
			Operation:     op.Name,
			Result:        shared.Result,
			Success:       shared.Success,
			Error:         shared.Error,
			ExecutionTime: t.now().Sub(start),
		}
		t.stamp(result)
		result.WithMeta(domain.MetaCoalesced, true)
		return result
	}

	result := t.invoke(ctx, op, req, cacheKey)
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}
	return result
}

// invoke runs the handler through the breaker under the per-operation
// timeout, records stats and metrics, and caches successful results.
func (t *MasterTool) invoke(ctx context.Context, op domain.Operation, req *domain.OperationRequest, cacheKey string) *domain.OperationResult {
	t.mu.RLock()
	handler := t.handlers[op.Name]
	t.mu.RUnlock()

	opCtx, cancel := context.WithTimeout(ctx, op.Timeout)
	defer cancel()

	start := t.now()
	value, err := t.breaker.Call(opCtx, func(callCtx context.Context) (value any, err error) {
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("operation handler panicked",
					telemetry.EventField(telemetry.EventPanicRecovered),
					telemetry.OperationField(op.Name),
					zap.Any("panic", r),
				)
				err = domain.E(domain.CodeInternal, "registry.Execute",
					fmt.Sprintf("operation %s.%s panicked", t.name, op.Name), nil)
			}
		}()
		return handler(callCtx, req.Arguments)
	})
	elapsed := t.now().Sub(start)

	t.stats.RecordExecution(elapsed, err == nil)
	t.metrics.ObserveDispatch(t.name, op.Name, op.Kind, elapsed, err)

	result := &domain.OperationResult{
		RequestID:     req.RequestID,
		Operation:     op.Name,
		Success:       err == nil,
		ExecutionTime: elapsed,
	}
	t.stamp(result)
	result.WithMeta(domain.MetaCacheHit, false)

	if err != nil {
		result.Error = err.Error()
		result.WithMeta(domain.MetaErrorCode, string(domain.CodeFrom(err)))
		t.logger.Warn("operation failed",
			telemetry.EventField(telemetry.EventDispatchFailure),
			telemetry.OperationField(op.Name),
			telemetry.DurationField(elapsed),
			zap.Error(err),
		)
		return result
	}

	result.Result = value
	if cacheKey != "" {
		// Store a copy without metadata so a later hit cannot observe
		// this caller's request-scoped fields.
		stored := *result
		stored.Metadata = nil
		t.cache.Set(cacheKey, &stored, op.CacheTTL)
	}
	return result
}

// failed builds a failure result from err without touching the breaker.
func (t *MasterTool) failed(req *domain.OperationRequest, start time.Time, err error) *domain.OperationResult {
	result := &domain.OperationResult{
		RequestID:     req.RequestID,
		Operation:     req.Operation,
		Success:       false,
		Error:         err.Error(),
		ExecutionTime: t.now().Sub(start),
	}
	t.stamp(result)
	result.WithMeta(domain.MetaErrorCode, string(domain.CodeFrom(err)))
	return result
}

func (t *MasterTool) stamp(result *domain.OperationResult) {
	result.WithMeta(domain.MetaToolName, t.name)
	result.WithMeta(domain.MetaToolVersion, t.version)
}
