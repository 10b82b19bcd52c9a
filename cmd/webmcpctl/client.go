package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/httpapi"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/telemetry"
)

// apiClient is a thin client for the facade API. It never retries: the
// commands behind it are either reads or a single deliberate execute.
type apiClient struct {
	baseURL     string
	clientType  string
	projectType string
	token       string
	httpClient  *http.Client
}

func newAPIClient(opts *cliOptions) *apiClient {
	return &apiClient{
		baseURL:     strings.TrimRight(opts.serverURL, "/"),
		clientType:  opts.clientType,
		projectType: opts.projectType,
		token:       opts.authToken,
		httpClient:  &http.Client{Timeout: opts.timeout},
	}
}

type toolListResponse struct {
	Tools       []registry.ToolSummary `json:"tools"`
	Count       int                    `json:"count"`
	ClientType  string                 `json:"client_type"`
	ProjectType string                 `json:"project_type"`
}

type executeResult struct {
	RequestID       string         `json:"request_id"`
	Operation       string         `json:"operation"`
	Result          any            `json:"result,omitempty"`
	Success         bool           `json:"success"`
	ExecutionTimeMs float64        `json:"execution_time_ms"`
	Error           string         `json:"error,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type toolStatsResponse struct {
	Stats   domain.ToolStatsSnapshot `json:"stats"`
	Breaker domain.BreakerSnapshot   `json:"breaker"`
}

type versionResponse struct {
	Version string `json:"version"`
	Build   string `json:"build"`
}

type apiErrorBody struct {
	Message string           `json:"error"`
	Code    domain.ErrorCode `json:"code"`
}

func (c *apiClient) listTools(ctx context.Context) (toolListResponse, error) {
	var out toolListResponse
	err := c.get(ctx, httpapi.APIPathMasterTools, c.identityQuery(), &out)
	return out, err
}

func (c *apiClient) getTool(ctx context.Context, tool string) (registry.ToolDescriptor, error) {
	var out registry.ToolDescriptor
	path := httpapi.APIPathMasterTools + "/" + url.PathEscape(tool)
	err := c.get(ctx, path, c.identityQuery(), &out)
	return out, err
}

func (c *apiClient) getOperation(ctx context.Context, tool, operation string) (registry.OperationDescriptor, error) {
	var out registry.OperationDescriptor
	path := fmt.Sprintf("%s/%s/operations/%s",
		httpapi.APIPathMasterTools, url.PathEscape(tool), url.PathEscape(operation))
	err := c.get(ctx, path, c.identityQuery(), &out)
	return out, err
}

func (c *apiClient) execute(ctx context.Context, tool, operation string, arguments map[string]any) (executeResult, error) {
	var out executeResult
	path := fmt.Sprintf("%s/%s/operations/%s/execute",
		httpapi.APIPathMasterTools, url.PathEscape(tool), url.PathEscape(operation))
	body := map[string]any{
		"arguments":   arguments,
		"client_info": c.clientInfo(),
	}
	err := c.do(ctx, http.MethodPost, path, nil, body, &out)
	return out, err
}

func (c *apiClient) toolStats(ctx context.Context, tool string) (toolStatsResponse, error) {
	var out toolStatsResponse
	path := httpapi.APIPathMasterTools + "/" + url.PathEscape(tool) + "/stats"
	err := c.get(ctx, path, nil, &out)
	return out, err
}

func (c *apiClient) registryStats(ctx context.Context) (domain.RegistryStatsSnapshot, error) {
	var out domain.RegistryStatsSnapshot
	err := c.get(ctx, httpapi.APIPathMasterTools+"/registry/stats", nil, &out)
	return out, err
}

func (c *apiClient) health(ctx context.Context) (telemetry.HealthReport, error) {
	var out telemetry.HealthReport
	err := c.get(ctx, httpapi.APIPathHealthz, nil, &out)
	return out, err
}

func (c *apiClient) version(ctx context.Context) (versionResponse, error) {
	var out versionResponse
	err := c.get(ctx, httpapi.APIPathVersion, nil, &out)
	return out, err
}

func (c *apiClient) clientInfo() map[string]string {
	info := map[string]string{"client_type": c.clientType}
	if c.projectType != "" {
		info["project_type"] = c.projectType
	}
	return info
}

func (c *apiClient) identityQuery() url.Values {
	query := url.Values{}
	if c.clientType != "" {
		query.Set("client_type", c.clientType)
	}
	if c.projectType != "" {
		query.Set("project_type", c.projectType)
	}
	return query
}

func (c *apiClient) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorBody
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
