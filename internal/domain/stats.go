package domain

import (
	"sync"
	"time"
)

// ToolStatsSnapshot is a read-only view of one master tool's execution
// counters. TotalExecutions == SuccessfulExecutions + FailedExecutions
// holds after every recorded call.
type ToolStatsSnapshot struct {
	Tool                 string        `json:"tool"`
	TotalExecutions      uint64        `json:"total_executions"`
	SuccessfulExecutions uint64        `json:"successful_executions"`
	FailedExecutions     uint64        `json:"failed_executions"`
	CacheHits            uint64        `json:"cache_hits"`
	AverageExecutionTime time.Duration `json:"average_execution_time"`
}

// ToolStats accumulates per-tool execution counters. The average tracks
// measured handler invocations only; cache hits are counted separately
// and do not shift it.
type ToolStats struct {
	mu                   sync.Mutex
	tool                 string
	totalExecutions      uint64
	successfulExecutions uint64
	failedExecutions     uint64
	cacheHits            uint64
	averageExecution     time.Duration
}

// NewToolStats creates zeroed stats for the named tool.
func NewToolStats(tool string) *ToolStats {
	return &ToolStats{tool: tool}
}

// RecordExecution records one measured handler call and folds its
// duration into the cumulative average:
// new_avg = ((old_avg * (n-1)) + elapsed) / n.
func (s *ToolStats) RecordExecution(elapsed time.Duration, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalExecutions++
	if success {
		s.successfulExecutions++
	} else {
		s.failedExecutions++
	}

	n := s.totalExecutions
	s.averageExecution = time.Duration((int64(s.averageExecution)*int64(n-1) + int64(elapsed)) / int64(n))
}

// RecordCacheHit counts a request served from cache.
func (s *ToolStats) RecordCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits++
}

// Snapshot returns a copy of the counters.
func (s *ToolStats) Snapshot() ToolStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ToolStatsSnapshot{
		Tool:                 s.tool,
		TotalExecutions:      s.totalExecutions,
		SuccessfulExecutions: s.successfulExecutions,
		FailedExecutions:     s.failedExecutions,
		CacheHits:            s.cacheHits,
		AverageExecutionTime: s.averageExecution,
	}
}

// RegistryStatsSnapshot aggregates counters across all registered tools.
type RegistryStatsSnapshot struct {
	Tools                int                 `json:"tools"`
	Operations           int                 `json:"operations"`
	TotalExecutions      uint64              `json:"total_executions"`
	SuccessfulExecutions uint64              `json:"successful_executions"`
	FailedExecutions     uint64              `json:"failed_executions"`
	CacheHits            uint64              `json:"cache_hits"`
	PerTool              []ToolStatsSnapshot `json:"per_tool"`
}
