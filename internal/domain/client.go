package domain

import "strings"

// ClientType classifies the caller connecting to the server.
type ClientType string

const (
	ClientIDE    ClientType = "ide"
	ClientCLI    ClientType = "cli"
	ClientWeb    ClientType = "web"
	ClientMobile ClientType = "mobile"
)

// NormalizeClientType lowercases and trims the raw value; unknown values
// fall back to CLI, the most restricted profile.
func NormalizeClientType(raw string) ClientType {
	switch ClientType(strings.ToLower(strings.TrimSpace(raw))) {
	case ClientIDE:
		return ClientIDE
	case ClientWeb:
		return ClientWeb
	case ClientMobile:
		return ClientMobile
	default:
		return ClientCLI
	}
}

// ProjectType classifies the project a client is working in.
type ProjectType string

const (
	ProjectWebApp         ProjectType = "web_app"
	ProjectAPIService     ProjectType = "api_service"
	ProjectLibrary        ProjectType = "library"
	ProjectInfrastructure ProjectType = "infrastructure"
	ProjectGeneric        ProjectType = "generic"
)

// NormalizeProjectType lowercases and trims the raw value; unknown values
// fall back to the generic profile.
func NormalizeProjectType(raw string) ProjectType {
	switch ProjectType(strings.ToLower(strings.TrimSpace(raw))) {
	case ProjectWebApp:
		return ProjectWebApp
	case ProjectAPIService:
		return ProjectAPIService
	case ProjectLibrary:
		return ProjectLibrary
	case ProjectInfrastructure:
		return ProjectInfrastructure
	default:
		return ProjectGeneric
	}
}

// ToolGroup is a coarse bundle of master tools used by visibility policy.
type ToolGroup string

const (
	GroupTaskManagement ToolGroup = "task_management"
	GroupPlanning       ToolGroup = "planning"
	GroupDocuments      ToolGroup = "documents"
	GroupWorkflow       ToolGroup = "workflow"
	GroupDiagnostics    ToolGroup = "diagnostics"
)

// ClientInfo identifies one caller for filtering decisions.
type ClientInfo struct {
	ClientType  ClientType  `json:"client_type"`
	ProjectType ProjectType `json:"project_type"`
}

// ClientToolPolicy is the static visibility table for one client type.
type ClientToolPolicy struct {
	EnabledGroups    []ToolGroup
	DisabledPatterns []string
	MaxTools         int
}

// ProjectToolPolicy is the static visibility table for one project type.
type ProjectToolPolicy struct {
	EnabledGroups    []ToolGroup
	DisabledPatterns []string
}

// MatchesPattern reports whether name matches pattern. Patterns are exact
// names or a trailing-* prefix match; nothing richer is supported.
func MatchesPattern(name, pattern string) bool {
	if pattern == "" {
		return false
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}
	return name == pattern
}
