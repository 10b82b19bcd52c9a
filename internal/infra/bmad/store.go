package bmad

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"webmcpd/internal/domain"
)

// Task is one unit of work tracked by the task tool.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	Assignee    *string `json:"assignee,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Plan is a reviewable proposal. Approval and rejection are terminal;
// only draft and review plans may still change.
type Plan struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Objective  string   `json:"objective"`
	Status     string   `json:"status"`
	Steps      []string `json:"steps"`
	ReviewedBy *string  `json:"reviewed_by,omitempty"`
	ReviewNote *string  `json:"review_note,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// Document is the local metadata row for a vector-store document. The
// content itself lives in the vector store under the same ID.
type Document struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// WorkflowRun records one execution of a workflow definition.
type WorkflowRun struct {
	ID          string               `json:"id"`
	Workflow    string               `json:"workflow"`
	Status      string               `json:"status"`
	Steps       []WorkflowStepResult `json:"steps"`
	StartedAt   string               `json:"started_at"`
	CompletedAt *string              `json:"completed_at,omitempty"`
}

// WorkflowStepResult is the outcome of one step inside a run.
type WorkflowStepResult struct {
	Name   string `json:"name"`
	Agent  string `json:"agent"`
	Action string `json:"action"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
}

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"

	TaskPriorityLow      = "low"
	TaskPriorityMedium   = "medium"
	TaskPriorityHigh     = "high"
	TaskPriorityCritical = "critical"

	PlanStatusDraft    = "draft"
	PlanStatusReview   = "review"
	PlanStatusApproved = "approved"
	PlanStatusRejected = "rejected"

	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// CreateTaskParams holds the input for creating a task. Zero-value
// Status and Priority fall back to pending/medium.
type CreateTaskParams struct {
	Title       string
	Description string
	Status      string
	Priority    string
	Assignee    string
}

// UpdateTaskParams holds partial update fields; nil means keep.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Assignee    *string
}

// TaskFilter narrows ListTasks. Empty fields match everything.
type TaskFilter struct {
	Status   string
	Assignee string
	Limit    int
}

type CreatePlanParams struct {
	Title     string
	Objective string
	Steps     []string
}

type UpdatePlanParams struct {
	Title     *string
	Objective *string
	Status    *string
	Steps     *[]string
}

type CreateDocumentParams struct {
	Title string
	Tags  []string
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// StoreOptions configures a Store.
type StoreOptions struct {
	// Path is the SQLite database file. Parent directories are created.
	Path string
	// NewID is overridable for deterministic IDs in tests.
	NewID func() string
}

// Store persists tasks, plans, document metadata, and workflow runs in
// a single SQLite database. Deletes are soft; every read filters rows
// with deleted_at set.
type Store struct {
	db    *sql.DB
	newID func() string
}

// OpenStore opens the database at opts.Path, applies the connection
// pragmas, and runs migrations.
func OpenStore(opts StoreOptions) (*Store, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	s := &Store{db: db, newID: newID}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'pending',
			priority    TEXT NOT NULL DEFAULT 'medium',
			assignee    TEXT,
			created_at  TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
			deleted_at  TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_status   ON tasks(status);
		CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee);
		CREATE INDEX IF NOT EXISTS idx_tasks_updated  ON tasks(updated_at DESC);

		CREATE TABLE IF NOT EXISTS plans (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			objective   TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'draft',
			steps       TEXT NOT NULL DEFAULT '[]',
			reviewed_by TEXT,
			review_note TEXT,
			created_at  TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
			deleted_at  TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_plans_status  ON plans(status);
		CREATE INDEX IF NOT EXISTS idx_plans_updated ON plans(updated_at DESC);

		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			tags       TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			deleted_at TEXT
		);

		CREATE TABLE IF NOT EXISTS workflow_runs (
			id           TEXT PRIMARY KEY,
			workflow     TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'running',
			steps        TEXT NOT NULL DEFAULT '[]',
			started_at   TEXT NOT NULL DEFAULT (datetime('now')),
			completed_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_runs_workflow ON workflow_runs(workflow);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) CreateTask(ctx context.Context, p CreateTaskParams) (*Task, error) {
	const errOp = "bmad.CreateTask"

	status := p.Status
	if status == "" {
		status = TaskStatusPending
	}
	priority := p.Priority
	if priority == "" {
		priority = TaskPriorityMedium
	}

	id := s.newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, assignee)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.Title, p.Description, status, priority, nullableString(p.Assignee),
	)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "insert task", err)
	}
	return s.GetTask(ctx, id)
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	const errOp = "bmad.GetTask"

	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, status, priority, assignee, created_at, updated_at
		 FROM tasks WHERE id = ? AND deleted_at IS NULL`, id)

	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.Assignee, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.CodeNotFound, errOp,
			fmt.Sprintf("task %q not found", id), domain.ErrTaskNotFound)
	}
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "query task", err)
	}
	return &t, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, p UpdateTaskParams) (*Task, error) {
	const errOp = "bmad.UpdateTask"

	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	title := task.Title
	description := task.Description
	status := task.Status
	priority := task.Priority
	assignee := ""
	if task.Assignee != nil {
		assignee = *task.Assignee
	}

	if p.Title != nil {
		title = *p.Title
	}
	if p.Description != nil {
		description = *p.Description
	}
	if p.Status != nil {
		status = *p.Status
	}
	if p.Priority != nil {
		priority = *p.Priority
	}
	if p.Assignee != nil {
		assignee = *p.Assignee
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks
		 SET title = ?, description = ?, status = ?, priority = ?, assignee = ?,
		     updated_at = datetime('now')
		 WHERE id = ? AND deleted_at IS NULL`,
		title, description, status, priority, nullableString(assignee), id,
	)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "update task", err)
	}
	return s.GetTask(ctx, id)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	const errOp = "bmad.DeleteTask"

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks
		 SET deleted_at = datetime('now'), updated_at = datetime('now')
		 WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return domain.E(domain.CodeFrom(err), errOp, "delete task", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.E(domain.CodeNotFound, errOp,
			fmt.Sprintf("task %q not found", id), domain.ErrTaskNotFound)
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	const errOp = "bmad.ListTasks"

	query := `SELECT id, title, description, status, priority, assignee, created_at, updated_at
		 FROM tasks WHERE deleted_at IS NULL`
	args := []any{}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Assignee != "" {
		query += " AND assignee = ?"
		args = append(args, f.Assignee)
	}
	query += " ORDER BY updated_at DESC, id LIMIT ?"
	args = append(args, clampLimit(f.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "list tasks", err)
	}
	return collectTasks(errOp, rows)
}

// SearchTasks matches q as a case-insensitive substring of the title
// or description.
func (s *Store) SearchTasks(ctx context.Context, q string, limit int) ([]Task, error) {
	const errOp = "bmad.SearchTasks"

	pattern := "%" + escapeLike(q) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, status, priority, assignee, created_at, updated_at
		 FROM tasks
		 WHERE deleted_at IS NULL
		   AND (title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')
		 ORDER BY updated_at DESC, id LIMIT ?`,
		pattern, pattern, clampLimit(limit))
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "search tasks", err)
	}
	return collectTasks(errOp, rows)
}

func collectTasks(errOp string, rows *sql.Rows) ([]Task, error) {
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.Assignee, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, domain.E(domain.CodeFrom(err), errOp, "scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "iterate tasks", err)
	}
	return tasks, nil
}

func (s *Store) CreatePlan(ctx context.Context, p CreatePlanParams) (*Plan, error) {
	const errOp = "bmad.CreatePlan"

	steps, err := encodeStrings(p.Steps)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "encode steps", err)
	}

	id := s.newID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (id, title, objective, steps) VALUES (?, ?, ?, ?)`,
		id, p.Title, p.Objective, steps,
	)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "insert plan", err)
	}
	return s.GetPlan(ctx, id)
}

func (s *Store) GetPlan(ctx context.Context, id string) (*Plan, error) {
	const errOp = "bmad.GetPlan"

	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, objective, status, steps, reviewed_by, review_note, created_at, updated_at
		 FROM plans WHERE id = ? AND deleted_at IS NULL`, id)

	var (
		p     Plan
		steps string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Objective, &p.Status, &steps,
		&p.ReviewedBy, &p.ReviewNote, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.CodeNotFound, errOp,
			fmt.Sprintf("plan %q not found", id), domain.ErrPlanNotFound)
	}
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "query plan", err)
	}
	if p.Steps, err = decodeStrings(steps); err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "decode steps", err)
	}
	return &p, nil
}

// UpdatePlan edits a plan that is still open. Approved and rejected
// plans are immutable.
func (s *Store) UpdatePlan(ctx context.Context, id string, p UpdatePlanParams) (*Plan, error) {
	const errOp = "bmad.UpdatePlan"

	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if !planOpen(plan.Status) {
		return nil, domain.E(domain.CodeFailedPrecondition, errOp,
			fmt.Sprintf("plan %q is %s and can no longer be edited", id, plan.Status), nil)
	}

	title := plan.Title
	objective := plan.Objective
	status := plan.Status
	steps := plan.Steps

	if p.Title != nil {
		title = *p.Title
	}
	if p.Objective != nil {
		objective = *p.Objective
	}
	if p.Status != nil {
		status = *p.Status
	}
	if p.Steps != nil {
		steps = *p.Steps
	}

	encoded, err := encodeStrings(steps)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "encode steps", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE plans
		 SET title = ?, objective = ?, status = ?, steps = ?, updated_at = datetime('now')
		 WHERE id = ? AND deleted_at IS NULL`,
		title, objective, status, encoded, id,
	)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "update plan", err)
	}
	return s.GetPlan(ctx, id)
}

// ApprovePlan moves an open plan to approved.
func (s *Store) ApprovePlan(ctx context.Context, id, approver string) (*Plan, error) {
	return s.decidePlan(ctx, "bmad.ApprovePlan", id, PlanStatusApproved, approver, "")
}

// RejectPlan moves an open plan to rejected with the given reason.
func (s *Store) RejectPlan(ctx context.Context, id, reviewer, reason string) (*Plan, error) {
	return s.decidePlan(ctx, "bmad.RejectPlan", id, PlanStatusRejected, reviewer, reason)
}

func (s *Store) decidePlan(ctx context.Context, errOp, id, status, reviewer, note string) (*Plan, error) {
	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if !planOpen(plan.Status) {
		return nil, domain.E(domain.CodeFailedPrecondition, errOp,
			fmt.Sprintf("plan %q is %s; only draft or review plans can be decided", id, plan.Status), nil)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE plans
		 SET status = ?, reviewed_by = ?, review_note = ?, updated_at = datetime('now')
		 WHERE id = ? AND deleted_at IS NULL`,
		status, nullableString(reviewer), nullableString(note), id,
	)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "decide plan", err)
	}
	return s.GetPlan(ctx, id)
}

func planOpen(status string) bool {
	return status == PlanStatusDraft || status == PlanStatusReview
}

func (s *Store) ListPlans(ctx context.Context, status string, limit int) ([]Plan, error) {
	const errOp = "bmad.ListPlans"

	query := `SELECT id, title, objective, status, steps, reviewed_by, review_note, created_at, updated_at
		 FROM plans WHERE deleted_at IS NULL`
	args := []any{}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY updated_at DESC, id LIMIT ?"
	args = append(args, clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "list plans", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var (
			p     Plan
			steps string
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Objective, &p.Status, &steps,
			&p.ReviewedBy, &p.ReviewNote, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, domain.E(domain.CodeFrom(err), errOp, "scan plan", err)
		}
		if p.Steps, err = decodeStrings(steps); err != nil {
			return nil, domain.E(domain.CodeFrom(err), errOp, "decode steps", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "iterate plans", err)
	}
	return plans, nil
}

func (s *Store) CreateDocument(ctx context.Context, p CreateDocumentParams) (*Document, error) {
	const errOp = "bmad.CreateDocument"

	tags, err := encodeStrings(p.Tags)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "encode tags", err)
	}

	id := s.newID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, tags) VALUES (?, ?, ?)`,
		id, p.Title, tags,
	)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "insert document", err)
	}
	return s.GetDocument(ctx, id)
}

func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	const errOp = "bmad.GetDocument"

	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, tags, created_at, updated_at
		 FROM documents WHERE id = ? AND deleted_at IS NULL`, id)

	var (
		d    Document
		tags string
	)
	err := row.Scan(&d.ID, &d.Title, &tags, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.CodeNotFound, errOp,
			fmt.Sprintf("document %q not found", id), domain.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "query document", err)
	}
	if d.Tags, err = decodeStrings(tags); err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "decode tags", err)
	}
	return &d, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	const errOp = "bmad.DeleteDocument"

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET deleted_at = datetime('now'), updated_at = datetime('now')
		 WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return domain.E(domain.CodeFrom(err), errOp, "delete document", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.E(domain.CodeNotFound, errOp,
			fmt.Sprintf("document %q not found", id), domain.ErrDocumentNotFound)
	}
	return nil
}

func (s *Store) CreateWorkflowRun(ctx context.Context, workflow string) (*WorkflowRun, error) {
	const errOp = "bmad.CreateWorkflowRun"

	id := s.newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflow_runs (id, workflow) VALUES (?, ?)`,
		id, workflow,
	)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "insert workflow run", err)
	}
	return s.GetWorkflowRun(ctx, id)
}

// CompleteWorkflowRun finishes a run with its final status and the
// per-step outcomes.
func (s *Store) CompleteWorkflowRun(ctx context.Context, id, status string, steps []WorkflowStepResult) (*WorkflowRun, error) {
	const errOp = "bmad.CompleteWorkflowRun"

	encoded, err := json.Marshal(steps)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "encode steps", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE workflow_runs
		 SET status = ?, steps = ?, completed_at = datetime('now')
		 WHERE id = ?`,
		status, string(encoded), id,
	)
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "complete workflow run", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, domain.E(domain.CodeNotFound, errOp,
			fmt.Sprintf("workflow run %q not found", id), domain.ErrWorkflowNotFound)
	}
	return s.GetWorkflowRun(ctx, id)
}

func (s *Store) GetWorkflowRun(ctx context.Context, id string) (*WorkflowRun, error) {
	const errOp = "bmad.GetWorkflowRun"

	row := s.db.QueryRowContext(ctx,
		`SELECT id, workflow, status, steps, started_at, completed_at
		 FROM workflow_runs WHERE id = ?`, id)

	var (
		r     WorkflowRun
		steps string
	)
	err := row.Scan(&r.ID, &r.Workflow, &r.Status, &steps, &r.StartedAt, &r.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.CodeNotFound, errOp,
			fmt.Sprintf("workflow run %q not found", id), domain.ErrWorkflowNotFound)
	}
	if err != nil {
		return nil, domain.E(domain.CodeFrom(err), errOp, "query workflow run", err)
	}
	if steps != "" && steps != "[]" {
		if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
			return nil, domain.E(domain.CodeFrom(err), errOp, "decode steps", err)
		}
	}
	return &r, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func encodeStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeStrings(encoded string) ([]string, error) {
	if encoded == "" || encoded == "[]" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(encoded), &values); err != nil {
		return nil, err
	}
	return values, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(q string) string {
	return likeEscaper.Replace(q)
}
