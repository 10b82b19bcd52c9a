package httpapi

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/telemetry"
)

type executeRequest struct {
	Arguments  map[string]any     `json:"arguments"`
	ClientInfo *domain.ClientInfo `json:"client_info"`
}

type executeResponse struct {
	RequestID       string         `json:"request_id"`
	Operation       string         `json:"operation"`
	Result          any            `json:"result,omitempty"`
	Success         bool           `json:"success"`
	ExecutionTimeMs float64        `json:"execution_time_ms"`
	Error           string         `json:"error,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// clientInfoFromRequest resolves the caller identity. Precedence: request
// body, then query parameters, then headers. A missing project type falls
// back to the manifest default so generated manifests steer unaware
// clients.
func (s *Server) clientInfoFromRequest(r *http.Request, declared *domain.ClientInfo) domain.ClientInfo {
	rawClient, rawProject := "", ""
	if declared != nil {
		rawClient = string(declared.ClientType)
		rawProject = string(declared.ProjectType)
	}
	if rawClient == "" {
		rawClient = r.URL.Query().Get("client_type")
	}
	if rawClient == "" {
		rawClient = r.Header.Get(headerClientType)
	}
	if rawProject == "" {
		rawProject = r.URL.Query().Get("project_type")
	}
	if rawProject == "" {
		rawProject = r.Header.Get(headerProjectType)
	}

	info := domain.ClientInfo{ClientType: domain.NormalizeClientType(rawClient)}
	if rawProject == "" {
		info.ProjectType = s.opts.Filter.DefaultProject()
	} else {
		info.ProjectType = domain.NormalizeProjectType(rawProject)
	}
	return info
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	info := s.clientInfoFromRequest(r, nil)
	tools := s.opts.Registry.Tools()
	summaries := make([]registry.ToolSummary, 0, len(tools))
	for _, tool := range tools {
		summaries = append(summaries, tool.Summary())
	}
	visible := s.opts.Filter.Allowed(info, summaries)
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":        visible,
		"count":        len(visible),
		"client_type":  info.ClientType,
		"project_type": info.ProjectType,
	})
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["tool"]
	tool, ok := s.opts.Registry.Tool(name)
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeNotFound, fmt.Sprintf("master tool %q not found", name))
		return
	}
	info := s.clientInfoFromRequest(r, nil)
	if err := s.opts.Filter.Check(info, tool.Name(), tool.Group()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool.Descriptor())
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	toolName, opName := vars["tool"], vars["operation"]
	tool, ok := s.opts.Registry.Tool(toolName)
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeNotFound, fmt.Sprintf("master tool %q not found", toolName))
		return
	}
	info := s.clientInfoFromRequest(r, nil)
	if err := s.opts.Filter.Check(info, tool.Name(), tool.Group()); err != nil {
		writeDomainError(w, err)
		return
	}
	op, ok := tool.Operation(opName)
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeNotFound,
			fmt.Sprintf("operation %q not found on master tool %q", opName, toolName))
		return
	}
	writeJSON(w, http.StatusOK, registry.DescribeOperation(op))
}

// handleExecute runs one operation. Dispatch failures still come back as
// 200 with success=false and an error code in the metadata; non-200 means
// the request never reached the tool.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	toolName, opName := vars["tool"], vars["operation"]

	var body executeRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeDomainError(w, err)
		return
	}
	info := s.clientInfoFromRequest(r, body.ClientInfo)

	tool, ok := s.opts.Registry.Tool(toolName)
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeNotFound, fmt.Sprintf("master tool %q not found", toolName))
		return
	}
	if err := s.opts.Filter.Check(info, tool.Name(), tool.Group()); err != nil {
		writeDomainError(w, err)
		return
	}
	op, ok := tool.Operation(opName)
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeNotFound,
			fmt.Sprintf("operation %q not found on master tool %q", opName, toolName))
		return
	}
	if op.RequiresAuth && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, domain.CodePermissionDenied,
			fmt.Sprintf("operation %q requires authorization", op.Name))
		return
	}

	requestID, _ := telemetry.RequestIDFromContext(r.Context())
	result := tool.Execute(r.Context(), &domain.OperationRequest{
		Operation: opName,
		Arguments: body.Arguments,
		RequestID: requestID,
		Timestamp: time.Now(),
	})
	writeJSON(w, http.StatusOK, executeResponseFrom(result))
}

func (s *Server) handleToolStats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["tool"]
	tool, ok := s.opts.Registry.Tool(name)
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeNotFound, fmt.Sprintf("master tool %q not found", name))
		return
	}
	// Stats are an operator surface, not a client one, so no visibility
	// check here.
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":   tool.Stats(),
		"breaker": tool.BreakerSnapshot(),
	})
}

func (s *Server) handleRegistryStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Registry.Stats())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Health == nil {
		writeJSON(w, http.StatusOK, telemetry.HealthReport{Status: "ok"})
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Health.Report())
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": s.opts.Version,
		"build":   s.opts.Build,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.opts.AuthToken == "" {
		return true
	}
	value, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(value), []byte(s.opts.AuthToken)) == 1
}

func executeResponseFrom(result *domain.OperationResult) executeResponse {
	return executeResponse{
		RequestID:       result.RequestID,
		Operation:       result.Operation,
		Result:          result.Result,
		Success:         result.Success,
		ExecutionTimeMs: float64(result.ExecutionTime) / float64(time.Millisecond),
		Error:           result.Error,
		Metadata:        result.Metadata,
	}
}
