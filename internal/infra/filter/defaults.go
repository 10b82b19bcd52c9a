package filter

import "webmcpd/internal/domain"

// DefaultClientPolicies returns the built-in visibility table per client
// type. IDE sessions get the full catalog; mobile clients get the
// narrowest slice.
func DefaultClientPolicies() map[domain.ClientType]domain.ClientToolPolicy {
	return map[domain.ClientType]domain.ClientToolPolicy{
		domain.ClientIDE: {
			EnabledGroups: []domain.ToolGroup{
				domain.GroupTaskManagement,
				domain.GroupPlanning,
				domain.GroupDocuments,
				domain.GroupWorkflow,
				domain.GroupDiagnostics,
			},
			MaxTools: domain.DefaultMaxToolsPerClient,
		},
		domain.ClientCLI: {
			EnabledGroups: []domain.ToolGroup{
				domain.GroupTaskManagement,
				domain.GroupPlanning,
				domain.GroupDocuments,
				domain.GroupWorkflow,
				domain.GroupDiagnostics,
			},
			MaxTools: 30,
		},
		domain.ClientWeb: {
			EnabledGroups: []domain.ToolGroup{
				domain.GroupTaskManagement,
				domain.GroupPlanning,
				domain.GroupDocuments,
				domain.GroupDiagnostics,
			},
			MaxTools: 20,
		},
		domain.ClientMobile: {
			EnabledGroups: []domain.ToolGroup{
				domain.GroupTaskManagement,
				domain.GroupDocuments,
			},
			DisabledPatterns: []string{"workflow*"},
			MaxTools:         10,
		},
	}
}

// DefaultProjectPolicies returns the built-in visibility table per
// project type.
func DefaultProjectPolicies() map[domain.ProjectType]domain.ProjectToolPolicy {
	allGroups := []domain.ToolGroup{
		domain.GroupTaskManagement,
		domain.GroupPlanning,
		domain.GroupDocuments,
		domain.GroupWorkflow,
		domain.GroupDiagnostics,
	}
	return map[domain.ProjectType]domain.ProjectToolPolicy{
		domain.ProjectWebApp:     {EnabledGroups: allGroups},
		domain.ProjectAPIService: {EnabledGroups: allGroups},
		domain.ProjectLibrary: {
			EnabledGroups: []domain.ToolGroup{
				domain.GroupTaskManagement,
				domain.GroupPlanning,
				domain.GroupDocuments,
				domain.GroupDiagnostics,
			},
			DisabledPatterns: []string{"workflow*"},
		},
		domain.ProjectInfrastructure: {
			EnabledGroups: []domain.ToolGroup{
				domain.GroupTaskManagement,
				domain.GroupWorkflow,
				domain.GroupDiagnostics,
			},
		},
		domain.ProjectGeneric: {EnabledGroups: allGroups},
	}
}
