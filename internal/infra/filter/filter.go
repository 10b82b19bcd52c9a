package filter

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/telemetry"
)

// Options configures a Filter. Clients and Projects overlay the built-in
// default tables per type; types absent from an overlay keep their
// defaults.
type Options struct {
	Clients  map[domain.ClientType]domain.ClientToolPolicy
	Projects map[domain.ProjectType]domain.ProjectToolPolicy
	Logger   *zap.Logger
}

// Filter decides which master tools a given client in a given project
// may see and call. Visibility is the intersection of the client's and
// the project's enabled groups minus the union of both disabled pattern
// lists; listings are capped at the client's MaxTools.
//
// The zero tables deny everything, so a policy lookup miss fails safe.
type Filter struct {
	mu               sync.RWMutex
	clients          map[domain.ClientType]domain.ClientToolPolicy
	projects         map[domain.ProjectType]domain.ProjectToolPolicy
	manifestType     domain.ProjectType
	manifestPatterns []string

	logger *zap.Logger
}

func New(opts Options) *Filter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Filter{
		manifestType: domain.ProjectGeneric,
		logger:       logger.Named("filter"),
	}
	f.Apply(opts.Clients, opts.Projects)
	return f
}

// Apply replaces the active policy overlays, rebuilding both tables
// from the defaults. A previously applied manifest stays in effect.
// Safe to call while requests are being filtered.
func (f *Filter) Apply(clients map[domain.ClientType]domain.ClientToolPolicy, projects map[domain.ProjectType]domain.ProjectToolPolicy) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clients = DefaultClientPolicies()
	for clientType, policy := range clients {
		f.clients[clientType] = policy
	}
	f.projects = DefaultProjectPolicies()
	for projectType, policy := range projects {
		f.projects[projectType] = policy
	}
	f.overlayManifestLocked()

	f.logger.Info("tool policies applied",
		telemetry.EventField(telemetry.EventConfigReload),
		zap.Int("client_overrides", len(clients)),
		zap.Int("project_overrides", len(projects)),
	)
}

// ApplyManifest overlays a project manifest: its disabled patterns are
// appended to the named project type's policy, and that type becomes
// the default for requests that do not declare one.
func (f *Filter) ApplyManifest(m ProjectManifest) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.manifestType = m.Type
	f.manifestPatterns = append([]string(nil), m.DisabledPatterns...)
	f.overlayManifestLocked()

	f.logger.Info("project manifest applied",
		telemetry.EventField(telemetry.EventManifestReload),
		zap.String(telemetry.FieldProjectType, string(m.Type)),
		zap.Strings("disabled_patterns", m.DisabledPatterns),
	)
}

func (f *Filter) overlayManifestLocked() {
	if len(f.manifestPatterns) == 0 {
		return
	}
	policy := f.projects[f.manifestType]
	merged := append([]string(nil), policy.DisabledPatterns...)
	merged = append(merged, f.manifestPatterns...)
	policy.DisabledPatterns = merged
	f.projects[f.manifestType] = policy
}

// DefaultProject returns the project type requests fall back to when
// client info does not declare one.
func (f *Filter) DefaultProject() domain.ProjectType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.manifestType
}

// Allowed returns the tools visible to info, sorted by priority
// descending then name ascending, truncated at the client's MaxTools.
// The input slice is not modified.
func (f *Filter) Allowed(info domain.ClientInfo, tools []registry.ToolSummary) []registry.ToolSummary {
	enabled, disabled, maxTools := f.visibility(info)

	visible := make([]registry.ToolSummary, 0, len(tools))
	for _, tool := range tools {
		if !enabled[tool.Group] {
			continue
		}
		if matchesAny(tool.Name, disabled) != "" {
			continue
		}
		visible = append(visible, tool)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].Priority != visible[j].Priority {
			return visible[i].Priority > visible[j].Priority
		}
		return visible[i].Name < visible[j].Name
	})
	if maxTools > 0 && len(visible) > maxTools {
		visible = visible[:maxTools]
	}
	return visible
}

// Check gates a single tool for the execute path. MaxTools is a listing
// cap only and does not apply here. A denial is a PERMISSION_DENIED
// error wrapping ErrToolDisabled.
func (f *Filter) Check(info domain.ClientInfo, name string, group domain.ToolGroup) error {
	const errOp = "filter.Check"

	enabled, disabled, _ := f.visibility(info)
	if !enabled[group] {
		return domain.E(domain.CodePermissionDenied, errOp,
			fmt.Sprintf("tool %q (group %s) is not enabled for client %s in project %s",
				name, group, info.ClientType, info.ProjectType),
			domain.ErrToolDisabled)
	}
	if pattern := matchesAny(name, disabled); pattern != "" {
		return domain.E(domain.CodePermissionDenied, errOp,
			fmt.Sprintf("tool %q is disabled by pattern %q", name, pattern),
			domain.ErrToolDisabled)
	}
	return nil
}

// visibility resolves info to the enabled-group set, the merged
// disabled patterns, and the listing cap.
func (f *Filter) visibility(info domain.ClientInfo) (map[domain.ToolGroup]bool, []string, int) {
	f.mu.RLock()
	clientPolicy := f.clients[info.ClientType]
	projectPolicy := f.projects[info.ProjectType]
	f.mu.RUnlock()

	projectEnabled := make(map[domain.ToolGroup]bool, len(projectPolicy.EnabledGroups))
	for _, group := range projectPolicy.EnabledGroups {
		projectEnabled[group] = true
	}
	enabled := make(map[domain.ToolGroup]bool, len(clientPolicy.EnabledGroups))
	for _, group := range clientPolicy.EnabledGroups {
		if projectEnabled[group] {
			enabled[group] = true
		}
	}

	disabled := make([]string, 0, len(clientPolicy.DisabledPatterns)+len(projectPolicy.DisabledPatterns))
	disabled = append(disabled, clientPolicy.DisabledPatterns...)
	disabled = append(disabled, projectPolicy.DisabledPatterns...)

	return enabled, disabled, clientPolicy.MaxTools
}

// matchesAny returns the first pattern name matches, or "".
func matchesAny(name string, patterns []string) string {
	for _, pattern := range patterns {
		if domain.MatchesPattern(name, pattern) {
			return pattern
		}
	}
	return ""
}
