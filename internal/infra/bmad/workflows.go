package bmad

import (
	"fmt"
)

// WorkflowStep is one stage of a workflow definition. Steps run in
// declared order; DependsOn may only name earlier steps.
type WorkflowStep struct {
	Name      string   `json:"name"`
	Agent     string   `json:"agent,omitempty"`
	Action    string   `json:"action,omitempty"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// WorkflowDefinition is a named, versioned sequence of steps. The
// built-in catalog is static; execute_workflow records a run per
// invocation.
type WorkflowDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Version     string         `json:"version"`
	Steps       []WorkflowStep `json:"steps"`
}

// BuiltinWorkflows returns the static workflow catalog in listing
// order.
func BuiltinWorkflows() []WorkflowDefinition {
	return []WorkflowDefinition{
		{
			Name:        "greenfield_planning",
			Description: "Produce the planning artifacts for a new project: brief, requirements, architecture.",
			Version:     "1.2.0",
			Steps: []WorkflowStep{
				{Name: "project_brief", Agent: "analyst", Action: "draft the project brief"},
				{Name: "product_requirements", Agent: "pm", Action: "derive the requirements document", DependsOn: []string{"project_brief"}},
				{Name: "system_architecture", Agent: "architect", Action: "design the system architecture", DependsOn: []string{"product_requirements"}},
			},
		},
		{
			Name:        "story_delivery",
			Description: "Take one story from draft through implementation and review.",
			Version:     "1.0.1",
			Steps: []WorkflowStep{
				{Name: "draft_story", Agent: "sm", Action: "draft the story from the backlog"},
				{Name: "implement_story", Agent: "dev", Action: "implement the story", DependsOn: []string{"draft_story"}},
				{Name: "review_story", Agent: "qa", Action: "review the implementation", DependsOn: []string{"implement_story"}},
			},
		},
		{
			Name:        "release_readiness",
			Description: "Verify open work, documents, and sign-off before a release.",
			Version:     "1.1.0",
			Steps: []WorkflowStep{
				{Name: "audit_open_tasks", Agent: "sm", Action: "confirm no blocking tasks remain open"},
				{Name: "refresh_documents", Agent: "po", Action: "bring release documents up to date", DependsOn: []string{"audit_open_tasks"}},
				{Name: "sign_off", Agent: "pm", Action: "record the release decision", DependsOn: []string{"audit_open_tasks", "refresh_documents"}},
			},
		},
	}
}

// FindWorkflow looks name up in the built-in catalog.
func FindWorkflow(name string) (WorkflowDefinition, bool) {
	for _, def := range BuiltinWorkflows() {
		if def.Name == name {
			return def, true
		}
	}
	return WorkflowDefinition{}, false
}

// ValidateDefinition checks a definition's structure and step
// references. It returns one message per problem; an empty slice means
// the definition is executable.
func ValidateDefinition(def WorkflowDefinition) []string {
	var issues []string

	if def.Name == "" {
		issues = append(issues, "workflow name is required")
	}
	if len(def.Steps) == 0 {
		issues = append(issues, "workflow has no steps")
	}

	seen := make(map[string]bool, len(def.Steps))
	for i, step := range def.Steps {
		if step.Name == "" {
			issues = append(issues, fmt.Sprintf("step %d has no name", i+1))
			continue
		}
		if seen[step.Name] {
			issues = append(issues, fmt.Sprintf("step name %q is duplicated", step.Name))
		}
		for _, dep := range step.DependsOn {
			if !seen[dep] {
				issues = append(issues, fmt.Sprintf("step %q depends on %q, which is not defined earlier", step.Name, dep))
			}
		}
		seen[step.Name] = true
	}
	return issues
}
