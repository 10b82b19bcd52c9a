package bmad

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
)

var planStatuses = []string{PlanStatusDraft, PlanStatusReview, PlanStatusApproved, PlanStatusRejected}

// editablePlanStatuses are the values update_plan may set directly;
// approved and rejected are reachable only through the decision
// operations.
var editablePlanStatuses = []string{PlanStatusDraft, PlanStatusReview}

// NewPlanTool builds the plan master tool. Plans move draft -> review
// freely; approve_plan and reject_plan close them for good.
func NewPlanTool(opts Options) (*registry.MasterTool, error) {
	h := planHandlers{store: opts.Store}
	tool := opts.masterTool("plan", "1.4.0",
		"Plan lifecycle: draft, revise, and decide reviewable plans.",
		domain.GroupPlanning, planToolPriority)

	return registerAll(tool, []boundOperation{
		{
			op: domain.Operation{
				Name:        "create_plan",
				Kind:        domain.OperationCreate,
				Description: "Create a plan in draft.",
				Timeout:     opTimeout,
				InputSchema: objectSchema([]string{"title"}, map[string]*jsonschema.Schema{
					"title":     stringProp("Short plan title."),
					"objective": stringProp("What the plan is meant to achieve."),
					"steps":     stringListProp("Ordered step descriptions."),
				}),
			},
			handler: h.create,
		},
		{
			op: domain.Operation{
				Name:        "get_plan",
				Kind:        domain.OperationRead,
				Description: "Fetch one plan by ID.",
				Timeout:     opTimeout,
				CacheTTL:    30 * time.Second,
				InputSchema: objectSchema([]string{"id"}, map[string]*jsonschema.Schema{
					"id": stringProp("Plan ID."),
				}),
			},
			handler: h.get,
		},
		{
			op: domain.Operation{
				Name:        "update_plan",
				Kind:        domain.OperationUpdate,
				Description: "Edit an open plan; approved and rejected plans are immutable.",
				Timeout:     opTimeout,
				InputSchema: objectSchema([]string{"id"}, map[string]*jsonschema.Schema{
					"id":        stringProp("Plan ID."),
					"title":     stringProp("New title."),
					"objective": stringProp("New objective."),
					"status":    enumProp("Move between draft and review.", editablePlanStatuses...),
					"steps":     stringListProp("Replacement step list."),
				}),
			},
			handler: h.update,
		},
		{
			op: domain.Operation{
				Name:        "approve_plan",
				Kind:        domain.OperationApprove,
				Description: "Approve a draft or review plan.",
				Timeout:     opTimeout,
				InputSchema: objectSchema([]string{"id"}, map[string]*jsonschema.Schema{
					"id":       stringProp("Plan ID."),
					"approver": stringProp("Who approved the plan."),
				}),
			},
			handler: h.approve,
		},
		{
			op: domain.Operation{
				Name:        "reject_plan",
				Kind:        domain.OperationReject,
				Description: "Reject a draft or review plan with a reason.",
				Timeout:     opTimeout,
				InputSchema: objectSchema([]string{"id", "reason"}, map[string]*jsonschema.Schema{
					"id":       stringProp("Plan ID."),
					"reason":   stringProp("Why the plan was rejected."),
					"reviewer": stringProp("Who rejected the plan."),
				}),
			},
			handler: h.reject,
		},
		{
			op: domain.Operation{
				Name:        "list_plans",
				Kind:        domain.OperationList,
				Description: "List plans, optionally narrowed by status.",
				Timeout:     opTimeout,
				CacheTTL:    10 * time.Second,
				InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{
					"status": enumProp("Only plans in this status.", planStatuses...),
					"limit":  intProp("Maximum number of plans to return."),
				}),
			},
			handler: h.list,
		},
	})
}

type planHandlers struct {
	store *Store
}

func (h planHandlers) create(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.create_plan"

	title, err := requiredString(errOp, args, "title")
	if err != nil {
		return nil, err
	}
	objective, _, err := optionalString(errOp, args, "objective")
	if err != nil {
		return nil, err
	}
	steps, _, err := stringSlice(errOp, args, "steps")
	if err != nil {
		return nil, err
	}

	return h.store.CreatePlan(ctx, CreatePlanParams{
		Title:     title,
		Objective: objective,
		Steps:     steps,
	})
}

func (h planHandlers) get(ctx context.Context, args map[string]any) (any, error) {
	id, err := requiredString("bmad.get_plan", args, "id")
	if err != nil {
		return nil, err
	}
	return h.store.GetPlan(ctx, id)
}

func (h planHandlers) update(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.update_plan"

	id, err := requiredString(errOp, args, "id")
	if err != nil {
		return nil, err
	}

	var params UpdatePlanParams
	if params.Title, err = stringPtr(errOp, args, "title"); err != nil {
		return nil, err
	}
	if params.Objective, err = stringPtr(errOp, args, "objective"); err != nil {
		return nil, err
	}
	if status, ok, err := enumArg(errOp, args, "status", editablePlanStatuses); err != nil {
		return nil, err
	} else if ok {
		params.Status = &status
	}
	if steps, ok, err := stringSlice(errOp, args, "steps"); err != nil {
		return nil, err
	} else if ok {
		params.Steps = &steps
	}

	return h.store.UpdatePlan(ctx, id, params)
}

func (h planHandlers) approve(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.approve_plan"

	id, err := requiredString(errOp, args, "id")
	if err != nil {
		return nil, err
	}
	approver, _, err := optionalString(errOp, args, "approver")
	if err != nil {
		return nil, err
	}
	return h.store.ApprovePlan(ctx, id, approver)
}

func (h planHandlers) reject(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.reject_plan"

	id, err := requiredString(errOp, args, "id")
	if err != nil {
		return nil, err
	}
	reason, err := requiredString(errOp, args, "reason")
	if err != nil {
		return nil, err
	}
	reviewer, _, err := optionalString(errOp, args, "reviewer")
	if err != nil {
		return nil, err
	}
	return h.store.RejectPlan(ctx, id, reviewer, reason)
}

func (h planHandlers) list(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.list_plans"

	status, _, err := enumArg(errOp, args, "status", planStatuses)
	if err != nil {
		return nil, err
	}
	limit, err := limitArg(errOp, args)
	if err != nil {
		return nil, err
	}

	plans, err := h.store.ListPlans(ctx, status, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"plans": plans, "count": len(plans)}, nil
}
