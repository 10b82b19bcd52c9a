package bmad

import (
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/vectorstore"
)

// Options carries the collaborators shared by the master tool
// builders. Store is required everywhere; Vector only by the document
// tool. Nil Cache, Logger, Metrics, and Now fall back to the registry
// defaults.
type Options struct {
	Store    *Store
	Vector   *vectorstore.Client
	Cache    domain.ResultCache
	Breaker  domain.BreakerConfig
	Coalesce bool
	Logger   *zap.Logger
	Metrics  domain.Metrics
	Now      func() time.Time
}

// Listing priorities, descending. The filter sorts visible tools by
// priority before truncating to a client's budget.
const (
	taskToolPriority     = 40
	planToolPriority     = 30
	documentToolPriority = 20
	workflowToolPriority = 10
)

const (
	opTimeout      = 10 * time.Second
	executeTimeout = 30 * time.Second
)

// Tools builds the whole catalog: task, plan, document, workflow.
func Tools(opts Options) ([]*registry.MasterTool, error) {
	task, err := NewTaskTool(opts)
	if err != nil {
		return nil, err
	}
	plan, err := NewPlanTool(opts)
	if err != nil {
		return nil, err
	}
	document, err := NewDocumentTool(opts)
	if err != nil {
		return nil, err
	}
	workflow, err := NewWorkflowTool(opts)
	if err != nil {
		return nil, err
	}
	return []*registry.MasterTool{task, plan, document, workflow}, nil
}

func (o Options) masterTool(name, version, description string, group domain.ToolGroup, priority int) *registry.MasterTool {
	return registry.NewMasterTool(registry.MasterToolOptions{
		Name:        name,
		Version:     version,
		Description: description,
		Group:       group,
		Priority:    priority,
		Cache:       o.Cache,
		Breaker:     o.Breaker,
		Coalesce:    o.Coalesce,
		Logger:      o.Logger,
		Metrics:     o.Metrics,
		Now:         o.Now,
	})
}

type boundOperation struct {
	op      domain.Operation
	handler registry.OperationHandler
}

func registerAll(tool *registry.MasterTool, ops []boundOperation) (*registry.MasterTool, error) {
	for _, b := range ops {
		if err := tool.RegisterOperation(b.op, b.handler); err != nil {
			return nil, err
		}
	}
	return tool, nil
}

func objectSchema(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func enumProp(description string, values ...string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Description: description, Enum: enum}
}

func intProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

func stringListProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: description,
		Items:       &jsonschema.Schema{Type: "string"},
	}
}
