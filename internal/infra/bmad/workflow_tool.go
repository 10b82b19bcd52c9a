package bmad

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
)

// NewWorkflowTool builds the workflow master tool. Definitions are the
// static built-in catalog; execute_workflow records a run and walks
// the steps synchronously.
func NewWorkflowTool(opts Options) (*registry.MasterTool, error) {
	h := workflowHandlers{store: opts.Store}
	tool := opts.masterTool("workflow", "1.0.0",
		"Workflow runs: execute, inspect, list, and validate definitions.",
		domain.GroupWorkflow, workflowToolPriority)

	stepSchema := objectSchema([]string{"name"}, map[string]*jsonschema.Schema{
		"name":       stringProp("Step name, unique within the workflow."),
		"agent":      stringProp("Agent responsible for the step."),
		"action":     stringProp("What the step does."),
		"depends_on": stringListProp("Names of earlier steps this one needs."),
	})

	return registerAll(tool, []boundOperation{
		{
			op: domain.Operation{
				Name:         "execute_workflow",
				Kind:         domain.OperationExecute,
				Description:  "Run a built-in workflow and record the run.",
				Timeout:      executeTimeout,
				RequiresAuth: true,
				InputSchema: objectSchema([]string{"workflow"}, map[string]*jsonschema.Schema{
					"workflow": stringProp("Name of a built-in workflow."),
				}),
			},
			handler: h.execute,
		},
		{
			op: domain.Operation{
				Name:        "get_workflow_status",
				Kind:        domain.OperationRead,
				Description: "Fetch one workflow run by ID.",
				Timeout:     opTimeout,
				CacheTTL:    5 * time.Second,
				InputSchema: objectSchema([]string{"run_id"}, map[string]*jsonschema.Schema{
					"run_id": stringProp("Workflow run ID."),
				}),
			},
			handler: h.status,
		},
		{
			op: domain.Operation{
				Name:        "list_workflows",
				Kind:        domain.OperationList,
				Description: "List the built-in workflow definitions.",
				Timeout:     opTimeout,
				CacheTTL:    30 * time.Second,
				InputSchema: objectSchema(nil, nil),
			},
			handler: h.list,
		},
		{
			op: domain.Operation{
				Name:        "validate_workflow",
				Kind:        domain.OperationValidate,
				Description: "Check a workflow definition's step references without running it.",
				Timeout:     opTimeout,
				InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{
					"name":  stringProp("Workflow name."),
					"steps": &jsonschema.Schema{Type: "array", Description: "Step definitions in run order.", Items: stepSchema},
				}),
			},
			handler: h.validate,
		},
	})
}

type workflowHandlers struct {
	store *Store
}

func (h workflowHandlers) execute(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.execute_workflow"

	name, err := requiredString(errOp, args, "workflow")
	if err != nil {
		return nil, err
	}
	def, ok := FindWorkflow(name)
	if !ok {
		return nil, domain.E(domain.CodeNotFound, errOp,
			fmt.Sprintf("workflow %q not found", name), domain.ErrWorkflowNotFound)
	}

	run, err := h.store.CreateWorkflowRun(ctx, def.Name)
	if err != nil {
		return nil, err
	}

	results := make([]WorkflowStepResult, 0, len(def.Steps))
	for _, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			if _, failErr := h.store.CompleteWorkflowRun(context.WithoutCancel(ctx), run.ID, RunStatusFailed, results); failErr != nil {
				return nil, failErr
			}
			return nil, err
		}
		results = append(results, WorkflowStepResult{
			Name:   step.Name,
			Agent:  step.Agent,
			Action: step.Action,
			Status: "completed",
			Output: fmt.Sprintf("completed by %s", step.Agent),
		})
	}

	return h.store.CompleteWorkflowRun(ctx, run.ID, RunStatusCompleted, results)
}

func (h workflowHandlers) status(ctx context.Context, args map[string]any) (any, error) {
	runID, err := requiredString("bmad.get_workflow_status", args, "run_id")
	if err != nil {
		return nil, err
	}
	return h.store.GetWorkflowRun(ctx, runID)
}

func (h workflowHandlers) list(ctx context.Context, args map[string]any) (any, error) {
	workflows := BuiltinWorkflows()
	return map[string]any{"workflows": workflows, "count": len(workflows)}, nil
}

func (h workflowHandlers) validate(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.validate_workflow"

	def, err := parseDefinition(errOp, args)
	if err != nil {
		return nil, err
	}
	issues := ValidateDefinition(def)
	if issues == nil {
		issues = []string{}
	}
	return map[string]any{
		"workflow": def.Name,
		"valid":    len(issues) == 0,
		"issues":   issues,
	}, nil
}

func parseDefinition(errOp string, args map[string]any) (WorkflowDefinition, error) {
	var def WorkflowDefinition

	name, _, err := optionalString(errOp, args, "name")
	if err != nil {
		return def, err
	}
	def.Name = name

	raw, ok := args["steps"]
	if !ok || raw == nil {
		return def, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return def, domain.E(domain.CodeInvalidArgument, errOp,
			`argument "steps" must be a list of step objects`, nil)
	}
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return def, domain.E(domain.CodeInvalidArgument, errOp,
				fmt.Sprintf("step %d must be an object", i+1), nil)
		}
		stepName, _, err := optionalString(errOp, entry, "name")
		if err != nil {
			return def, err
		}
		agent, _, err := optionalString(errOp, entry, "agent")
		if err != nil {
			return def, err
		}
		action, _, err := optionalString(errOp, entry, "action")
		if err != nil {
			return def, err
		}
		deps, _, err := stringSlice(errOp, entry, "depends_on")
		if err != nil {
			return def, err
		}
		def.Steps = append(def.Steps, WorkflowStep{
			Name:      stepName,
			Agent:     agent,
			Action:    action,
			DependsOn: deps,
		})
	}
	return def, nil
}
