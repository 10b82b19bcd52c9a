package bmad

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcpd/internal/domain"
)

func seqIDs(prefix string) func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenStore(StoreOptions{
		Path:  filepath.Join(t.TempDir(), "bmad.db"),
		NewID: seqIDs("id"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenStore_RequiresPath(t *testing.T) {
	_, err := OpenStore(StoreOptions{Path: "   "})
	require.Error(t, err)
}

func TestStore_TaskLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreateTask(ctx, CreateTaskParams{Title: "Wire the dispatcher"})
	require.NoError(t, err)
	assert.Equal(t, "id-001", created.ID)
	assert.Equal(t, TaskStatusPending, created.Status)
	assert.Equal(t, TaskPriorityMedium, created.Priority)
	assert.Nil(t, created.Assignee)
	assert.NotEmpty(t, created.CreatedAt)
	assert.NotEmpty(t, created.UpdatedAt)

	status := TaskStatusInProgress
	assignee := "riley"
	updated, err := store.UpdateTask(ctx, created.ID, UpdateTaskParams{
		Status:   &status,
		Assignee: &assignee,
	})
	require.NoError(t, err)
	assert.Equal(t, TaskStatusInProgress, updated.Status)
	require.NotNil(t, updated.Assignee)
	assert.Equal(t, "riley", *updated.Assignee)
	// Untouched fields keep their value.
	assert.Equal(t, "Wire the dispatcher", updated.Title)

	unassign := ""
	updated, err = store.UpdateTask(ctx, created.ID, UpdateTaskParams{Assignee: &unassign})
	require.NoError(t, err)
	assert.Nil(t, updated.Assignee)

	require.NoError(t, store.DeleteTask(ctx, created.ID))

	_, err = store.GetTask(ctx, created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Equal(t, domain.CodeNotFound, domain.CodeFrom(err))

	err = store.DeleteTask(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestStore_ListTasksFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateTask(ctx, CreateTaskParams{Title: "triage bug", Status: TaskStatusInProgress, Assignee: "kim"})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, CreateTaskParams{Title: "write docs", Status: TaskStatusPending, Assignee: "kim"})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, CreateTaskParams{Title: "ship release", Status: TaskStatusInProgress, Assignee: "ana"})
	require.NoError(t, err)
	deleted, err := store.CreateTask(ctx, CreateTaskParams{Title: "old chore", Status: TaskStatusInProgress})
	require.NoError(t, err)
	require.NoError(t, store.DeleteTask(ctx, deleted.ID))

	all, err := store.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	inProgress, err := store.ListTasks(ctx, TaskFilter{Status: TaskStatusInProgress})
	require.NoError(t, err)
	assert.Len(t, inProgress, 2)

	kims, err := store.ListTasks(ctx, TaskFilter{Assignee: "kim"})
	require.NoError(t, err)
	assert.Len(t, kims, 2)

	both, err := store.ListTasks(ctx, TaskFilter{Status: TaskStatusInProgress, Assignee: "kim"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "triage bug", both[0].Title)

	capped, err := store.ListTasks(ctx, TaskFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestStore_SearchTasks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateTask(ctx, CreateTaskParams{Title: "Implement parser", Description: "tokenizer first"})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, CreateTaskParams{Title: "Release notes", Description: "mention the parser rewrite"})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, CreateTaskParams{Title: "Coverage at 100%", Description: "flaky suite"})
	require.NoError(t, err)

	matches, err := store.SearchTasks(ctx, "parser", 0)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = store.SearchTasks(ctx, "TOKENIZER", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Implement parser", matches[0].Title)

	// LIKE wildcards in the query are literals, not patterns.
	matches, err = store.SearchTasks(ctx, "100%", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Coverage at 100%", matches[0].Title)

	matches, err = store.SearchTasks(ctx, "100_", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_PlanDecisions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	plan, err := store.CreatePlan(ctx, CreatePlanParams{
		Title:     "Q3 rollout",
		Objective: "ship the new catalog",
		Steps:     []string{"freeze scope", "cut release"},
	})
	require.NoError(t, err)
	assert.Equal(t, PlanStatusDraft, plan.Status)
	assert.Equal(t, []string{"freeze scope", "cut release"}, plan.Steps)

	review := PlanStatusReview
	plan, err = store.UpdatePlan(ctx, plan.ID, UpdatePlanParams{Status: &review})
	require.NoError(t, err)
	assert.Equal(t, PlanStatusReview, plan.Status)

	plan, err = store.ApprovePlan(ctx, plan.ID, "morgan")
	require.NoError(t, err)
	assert.Equal(t, PlanStatusApproved, plan.Status)
	require.NotNil(t, plan.ReviewedBy)
	assert.Equal(t, "morgan", *plan.ReviewedBy)

	// Approved plans are closed for edits and further decisions.
	_, err = store.UpdatePlan(ctx, plan.ID, UpdatePlanParams{Title: &plan.Title})
	require.Error(t, err)
	assert.Equal(t, domain.CodeFailedPrecondition, domain.CodeFrom(err))

	_, err = store.ApprovePlan(ctx, plan.ID, "morgan")
	require.Error(t, err)
	assert.Equal(t, domain.CodeFailedPrecondition, domain.CodeFrom(err))

	_, err = store.RejectPlan(ctx, plan.ID, "morgan", "changed my mind")
	require.Error(t, err)
	assert.Equal(t, domain.CodeFailedPrecondition, domain.CodeFrom(err))
}

func TestStore_RejectPlanKeepsReason(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	plan, err := store.CreatePlan(ctx, CreatePlanParams{Title: "Big rewrite"})
	require.NoError(t, err)

	plan, err = store.RejectPlan(ctx, plan.ID, "sam", "too risky this quarter")
	require.NoError(t, err)
	assert.Equal(t, PlanStatusRejected, plan.Status)
	require.NotNil(t, plan.ReviewNote)
	assert.Equal(t, "too risky this quarter", *plan.ReviewNote)
}

func TestStore_ListPlansFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	draft, err := store.CreatePlan(ctx, CreatePlanParams{Title: "draft one"})
	require.NoError(t, err)
	_, err = store.CreatePlan(ctx, CreatePlanParams{Title: "draft two"})
	require.NoError(t, err)
	_, err = store.ApprovePlan(ctx, draft.ID, "lee")
	require.NoError(t, err)

	drafts, err := store.ListPlans(ctx, PlanStatusDraft, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "draft two", drafts[0].Title)

	approved, err := store.ListPlans(ctx, PlanStatusApproved, 0)
	require.NoError(t, err)
	assert.Len(t, approved, 1)

	all, err := store.ListPlans(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_DocumentRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doc, err := store.CreateDocument(ctx, CreateDocumentParams{
		Title: "Architecture overview",
		Tags:  []string{"architecture", "draft"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"architecture", "draft"}, doc.Tags)

	fetched, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, fetched.Title)

	require.NoError(t, store.DeleteDocument(ctx, doc.ID))

	_, err = store.GetDocument(ctx, doc.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	err = store.DeleteDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestStore_WorkflowRuns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	run, err := store.CreateWorkflowRun(ctx, "story_delivery")
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Empty(t, run.Steps)
	assert.Nil(t, run.CompletedAt)
	assert.NotEmpty(t, run.StartedAt)

	steps := []WorkflowStepResult{
		{Name: "draft_story", Agent: "sm", Action: "draft the story", Status: "completed"},
		{Name: "implement_story", Agent: "dev", Action: "implement it", Status: "completed"},
	}
	done, err := store.CompleteWorkflowRun(ctx, run.ID, RunStatusCompleted, steps)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, done.Status)
	assert.Equal(t, steps, done.Steps)
	require.NotNil(t, done.CompletedAt)

	_, err = store.GetWorkflowRun(ctx, "no-such-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

	_, err = store.CompleteWorkflowRun(ctx, "no-such-run", RunStatusFailed, nil)
	var domainErr *domain.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeNotFound, domainErr.Code)
}
