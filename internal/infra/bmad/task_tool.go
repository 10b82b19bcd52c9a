package bmad

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
)

var (
	taskStatuses   = []string{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled}
	taskPriorities = []string{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical}
)

// NewTaskTool builds the task master tool: CRUD plus filtered listing
// and substring search over work items.
func NewTaskTool(opts Options) (*registry.MasterTool, error) {
	h := taskHandlers{store: opts.Store}
	tool := opts.masterTool("task", "2.1.0",
		"Work item lifecycle: create, inspect, update, list, and search tasks.",
		domain.GroupTaskManagement, taskToolPriority)

	return registerAll(tool, []boundOperation{
		{
			op: domain.Operation{
				Name:        "create_task",
				Kind:        domain.OperationCreate,
				Description: "Create a task.",
				Timeout:     opTimeout,
				InputSchema: objectSchema([]string{"title"}, map[string]*jsonschema.Schema{
					"title":       stringProp("Short task title."),
					"description": stringProp("Free-form task body."),
					"status":      enumProp("Initial status; defaults to pending.", taskStatuses...),
					"priority":    enumProp("Urgency; defaults to medium.", taskPriorities...),
					"assignee":    stringProp("Who the task is assigned to."),
				}),
			},
			handler: h.create,
		},
		{
			op: domain.Operation{
				Name:        "get_task",
				Kind:        domain.OperationRead,
				Description: "Fetch one task by ID.",
				Timeout:     opTimeout,
				CacheTTL:    30 * time.Second,
				InputSchema: objectSchema([]string{"id"}, map[string]*jsonschema.Schema{
					"id": stringProp("Task ID."),
				}),
			},
			handler: h.get,
		},
		{
			op: domain.Operation{
				Name:        "update_task",
				Kind:        domain.OperationUpdate,
				Description: "Partially update a task; omitted fields keep their value.",
				Timeout:     opTimeout,
				InputSchema: objectSchema([]string{"id"}, map[string]*jsonschema.Schema{
					"id":          stringProp("Task ID."),
					"title":       stringProp("New title."),
					"description": stringProp("New body."),
					"status":      enumProp("New status.", taskStatuses...),
					"priority":    enumProp("New priority.", taskPriorities...),
					"assignee":    stringProp("New assignee; empty string unassigns."),
				}),
			},
			handler: h.update,
		},
		{
			op: domain.Operation{
				Name:        "delete_task",
				Kind:        domain.OperationDelete,
				Description: "Delete a task.",
				Timeout:     opTimeout,
				InputSchema: objectSchema([]string{"id"}, map[string]*jsonschema.Schema{
					"id": stringProp("Task ID."),
				}),
			},
			handler: h.delete,
		},
		{
			op: domain.Operation{
				Name:        "list_tasks",
				Kind:        domain.OperationList,
				Description: "List tasks, optionally narrowed by status and assignee.",
				Timeout:     opTimeout,
				CacheTTL:    10 * time.Second,
				InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{
					"status":   enumProp("Only tasks in this status.", taskStatuses...),
					"assignee": stringProp("Only tasks assigned to this person."),
					"limit":    intProp("Maximum number of tasks to return."),
				}),
			},
			handler: h.list,
		},
		{
			op: domain.Operation{
				Name:        "search_tasks",
				Kind:        domain.OperationSearch,
				Description: "Search task titles and descriptions for a substring.",
				Timeout:     opTimeout,
				CacheTTL:    15 * time.Second,
				InputSchema: objectSchema([]string{"query"}, map[string]*jsonschema.Schema{
					"query": stringProp("Substring to search for."),
					"limit": intProp("Maximum number of tasks to return."),
				}),
			},
			handler: h.search,
		},
	})
}

type taskHandlers struct {
	store *Store
}

func (h taskHandlers) create(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.create_task"

	title, err := requiredString(errOp, args, "title")
	if err != nil {
		return nil, err
	}
	description, _, err := optionalString(errOp, args, "description")
	if err != nil {
		return nil, err
	}
	status, _, err := enumArg(errOp, args, "status", taskStatuses)
	if err != nil {
		return nil, err
	}
	priority, _, err := enumArg(errOp, args, "priority", taskPriorities)
	if err != nil {
		return nil, err
	}
	assignee, _, err := optionalString(errOp, args, "assignee")
	if err != nil {
		return nil, err
	}

	return h.store.CreateTask(ctx, CreateTaskParams{
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		Assignee:    assignee,
	})
}

func (h taskHandlers) get(ctx context.Context, args map[string]any) (any, error) {
	id, err := requiredString("bmad.get_task", args, "id")
	if err != nil {
		return nil, err
	}
	return h.store.GetTask(ctx, id)
}

func (h taskHandlers) update(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.update_task"

	id, err := requiredString(errOp, args, "id")
	if err != nil {
		return nil, err
	}

	var params UpdateTaskParams
	if params.Title, err = stringPtr(errOp, args, "title"); err != nil {
		return nil, err
	}
	if params.Description, err = stringPtr(errOp, args, "description"); err != nil {
		return nil, err
	}
	if status, ok, err := enumArg(errOp, args, "status", taskStatuses); err != nil {
		return nil, err
	} else if ok {
		params.Status = &status
	}
	if priority, ok, err := enumArg(errOp, args, "priority", taskPriorities); err != nil {
		return nil, err
	} else if ok {
		params.Priority = &priority
	}
	if params.Assignee, err = stringPtr(errOp, args, "assignee"); err != nil {
		return nil, err
	}

	return h.store.UpdateTask(ctx, id, params)
}

func (h taskHandlers) delete(ctx context.Context, args map[string]any) (any, error) {
	id, err := requiredString("bmad.delete_task", args, "id")
	if err != nil {
		return nil, err
	}
	if err := h.store.DeleteTask(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "deleted": true}, nil
}

func (h taskHandlers) list(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.list_tasks"

	status, _, err := enumArg(errOp, args, "status", taskStatuses)
	if err != nil {
		return nil, err
	}
	assignee, _, err := optionalString(errOp, args, "assignee")
	if err != nil {
		return nil, err
	}
	limit, err := limitArg(errOp, args)
	if err != nil {
		return nil, err
	}

	tasks, err := h.store.ListTasks(ctx, TaskFilter{Status: status, Assignee: assignee, Limit: limit})
	if err != nil {
		return nil, err
	}
	return map[string]any{"tasks": tasks, "count": len(tasks)}, nil
}

func (h taskHandlers) search(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.search_tasks"

	query, err := requiredString(errOp, args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := limitArg(errOp, args)
	if err != nil {
		return nil, err
	}

	tasks, err := h.store.SearchTasks(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"query": query, "tasks": tasks, "count": len(tasks)}, nil
}
