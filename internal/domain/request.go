package domain

import "time"

// Metadata keys set by the dispatch layer on OperationResult.
const (
	MetaToolName    = "tool_name"
	MetaToolVersion = "tool_version"
	MetaCacheHit    = "cache_hit"
	MetaCoalesced   = "coalesced"
	MetaErrorCode   = "error_code"
)

// OperationRequest is a single invocation of a named operation.
// RequestID is correlation-only and never used as a deduplication key.
type OperationRequest struct {
	Operation string         `json:"operation"`
	Arguments map[string]any `json:"arguments"`
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
}

// OperationResult is the outcome of one invocation. Error is non-empty
// iff Success is false. Handler failures are carried here, never as Go
// errors past the dispatch boundary.
type OperationResult struct {
	RequestID     string         `json:"request_id"`
	Operation     string         `json:"operation"`
	Result        any            `json:"result,omitempty"`
	Success       bool           `json:"success"`
	ExecutionTime time.Duration  `json:"execution_time"`
	Error         string         `json:"error,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// WithMeta returns the result with the metadata key set, allocating the
// map on first use.
func (r *OperationResult) WithMeta(key string, value any) *OperationResult {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
	return r
}

// CacheHit reports whether the result was served from cache.
func (r *OperationResult) CacheHit() bool {
	if r == nil || r.Metadata == nil {
		return false
	}
	hit, ok := r.Metadata[MetaCacheHit].(bool)
	return ok && hit
}
