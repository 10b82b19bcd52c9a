package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
)

func summary(name string, group domain.ToolGroup, priority int) registry.ToolSummary {
	return registry.ToolSummary{Name: name, Version: "1.0.0", Group: group, Priority: priority}
}

func catalog() []registry.ToolSummary {
	return []registry.ToolSummary{
		summary("task", domain.GroupTaskManagement, 40),
		summary("plan", domain.GroupPlanning, 30),
		summary("document", domain.GroupDocuments, 20),
		summary("workflow", domain.GroupWorkflow, 10),
		summary("diagnostics", domain.GroupDiagnostics, 0),
	}
}

func toolNames(tools []registry.ToolSummary) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestFilter_AllowedIntersectsClientAndProjectGroups(t *testing.T) {
	f := New(Options{})

	visible := f.Allowed(domain.ClientInfo{
		ClientType:  domain.ClientIDE,
		ProjectType: domain.ProjectInfrastructure,
	}, catalog())

	// Infrastructure projects enable task_management, workflow, and
	// diagnostics; the IDE profile enables everything, so the
	// intersection drops planning and documents.
	assert.Equal(t, []string{"task", "workflow", "diagnostics"}, toolNames(visible))
}

func TestFilter_AllowedUnionsDisabledPatterns(t *testing.T) {
	allGroups := []domain.ToolGroup{
		domain.GroupTaskManagement,
		domain.GroupPlanning,
		domain.GroupDocuments,
		domain.GroupWorkflow,
		domain.GroupDiagnostics,
	}
	f := New(Options{
		Clients: map[domain.ClientType]domain.ClientToolPolicy{
			domain.ClientCLI: {EnabledGroups: allGroups, DisabledPatterns: []string{"doc*"}},
		},
		Projects: map[domain.ProjectType]domain.ProjectToolPolicy{
			domain.ProjectGeneric: {EnabledGroups: allGroups, DisabledPatterns: []string{"work*"}},
		},
	})

	visible := f.Allowed(domain.ClientInfo{
		ClientType:  domain.ClientCLI,
		ProjectType: domain.ProjectGeneric,
	}, catalog())

	assert.Equal(t, []string{"task", "plan", "diagnostics"}, toolNames(visible))
}

func TestFilter_AllowedOrdersByPriorityThenName(t *testing.T) {
	f := New(Options{
		Clients: map[domain.ClientType]domain.ClientToolPolicy{
			domain.ClientWeb: {
				EnabledGroups: []domain.ToolGroup{domain.GroupDocuments},
				MaxTools:      2,
			},
		},
	})

	tools := []registry.ToolSummary{
		summary("beta", domain.GroupDocuments, 10),
		summary("gamma", domain.GroupDocuments, 20),
		summary("alpha", domain.GroupDocuments, 10),
	}
	visible := f.Allowed(domain.ClientInfo{
		ClientType:  domain.ClientWeb,
		ProjectType: domain.ProjectGeneric,
	}, tools)

	// gamma wins on priority, then alpha beats beta by name; MaxTools
	// cuts the list to two.
	assert.Equal(t, []string{"gamma", "alpha"}, toolNames(visible))
}

func TestFilter_AllowedIsIdempotent(t *testing.T) {
	f := New(Options{})
	info := domain.ClientInfo{
		ClientType:  domain.ClientMobile,
		ProjectType: domain.ProjectLibrary,
	}

	once := f.Allowed(info, catalog())
	twice := f.Allowed(info, once)
	assert.Equal(t, once, twice)
}

func TestFilter_AllowedUnknownTypesFailSafe(t *testing.T) {
	f := New(Options{})

	visible := f.Allowed(domain.ClientInfo{
		ClientType:  domain.ClientType("spaceship"),
		ProjectType: domain.ProjectGeneric,
	}, catalog())
	assert.Empty(t, visible)

	visible = f.Allowed(domain.ClientInfo{
		ClientType:  domain.ClientIDE,
		ProjectType: domain.ProjectType("spaceship"),
	}, catalog())
	assert.Empty(t, visible)
}

func TestFilter_Check(t *testing.T) {
	f := New(Options{})

	tests := []struct {
		name     string
		info     domain.ClientInfo
		tool     string
		group    domain.ToolGroup
		denied   bool
		contains string
	}{
		{
			name:  "ide in generic project sees workflow",
			info:  domain.ClientInfo{ClientType: domain.ClientIDE, ProjectType: domain.ProjectGeneric},
			tool:  "workflow",
			group: domain.GroupWorkflow,
		},
		{
			name:     "library project disables the workflow group",
			info:     domain.ClientInfo{ClientType: domain.ClientIDE, ProjectType: domain.ProjectLibrary},
			tool:     "workflow",
			group:    domain.GroupWorkflow,
			denied:   true,
			contains: "not enabled",
		},
		{
			name:     "mobile pattern blocks workflow tools even if a group slips through",
			info:     domain.ClientInfo{ClientType: domain.ClientMobile, ProjectType: domain.ProjectGeneric},
			tool:     "workflow_debug",
			group:    domain.GroupTaskManagement,
			denied:   true,
			contains: `pattern "workflow*"`,
		},
		{
			name:  "mobile still reaches task tools",
			info:  domain.ClientInfo{ClientType: domain.ClientMobile, ProjectType: domain.ProjectGeneric},
			tool:  "task",
			group: domain.GroupTaskManagement,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := f.Check(tc.info, tc.tool, tc.group)
			if !tc.denied {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrToolDisabled))
			assert.Equal(t, domain.CodePermissionDenied, domain.CodeFrom(err))
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestFilter_CheckIgnoresMaxTools(t *testing.T) {
	f := New(Options{
		Clients: map[domain.ClientType]domain.ClientToolPolicy{
			domain.ClientIDE: {
				EnabledGroups: []domain.ToolGroup{domain.GroupTaskManagement, domain.GroupPlanning},
				MaxTools:      1,
			},
		},
	})
	info := domain.ClientInfo{ClientType: domain.ClientIDE, ProjectType: domain.ProjectGeneric}

	visible := f.Allowed(info, catalog())
	require.Len(t, visible, 1)

	// The listing cap hides plan, but calling it stays allowed.
	assert.NoError(t, f.Check(info, "task", domain.GroupTaskManagement))
	assert.NoError(t, f.Check(info, "plan", domain.GroupPlanning))
}

func TestFilter_ApplyRestoresDefaults(t *testing.T) {
	f := New(Options{
		Clients: map[domain.ClientType]domain.ClientToolPolicy{
			domain.ClientIDE: {EnabledGroups: []domain.ToolGroup{domain.GroupDiagnostics}},
		},
	})
	info := domain.ClientInfo{ClientType: domain.ClientIDE, ProjectType: domain.ProjectGeneric}

	assert.Equal(t, []string{"diagnostics"}, toolNames(f.Allowed(info, catalog())))

	f.Apply(nil, nil)
	assert.Equal(t,
		[]string{"task", "plan", "document", "workflow", "diagnostics"},
		toolNames(f.Allowed(info, catalog())))
}

func TestFilter_ApplyManifest(t *testing.T) {
	f := New(Options{})
	f.ApplyManifest(ProjectManifest{
		Type:             domain.ProjectWebApp,
		DisabledPatterns: []string{"work*"},
	})

	assert.Equal(t, domain.ProjectWebApp, f.DefaultProject())

	info := domain.ClientInfo{ClientType: domain.ClientIDE, ProjectType: domain.ProjectWebApp}
	assert.NotContains(t, toolNames(f.Allowed(info, catalog())), "workflow")
	require.Error(t, f.Check(info, "workflow", domain.GroupWorkflow))

	// Other project types keep their own policies.
	generic := domain.ClientInfo{ClientType: domain.ClientIDE, ProjectType: domain.ProjectGeneric}
	assert.Contains(t, toolNames(f.Allowed(generic, catalog())), "workflow")

	// A config reload must not wash the manifest out.
	f.Apply(nil, nil)
	assert.NotContains(t, toolNames(f.Allowed(info, catalog())), "workflow")
}
