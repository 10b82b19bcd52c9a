package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/telemetry"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printToolList(resp toolListResponse, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(resp)
	}
	fmt.Printf("client=%s project=%s tools=%d\n", resp.ClientType, resp.ProjectType, resp.Count)
	for _, tool := range resp.Tools {
		fmt.Printf("%s\t%s\tv%s\toperations=%d\n", tool.Name, tool.Group, tool.Version, tool.OperationCount)
	}
	return nil
}

func printToolDescriptor(desc registry.ToolDescriptor, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(desc)
	}
	fmt.Printf("%s v%s group=%s priority=%d\n", desc.Name, desc.Version, desc.Group, desc.Priority)
	if desc.Description != "" {
		fmt.Println(desc.Description)
	}
	fmt.Printf("operations=%d\n", len(desc.Operations))
	for _, op := range desc.Operations {
		printOperationLine(op)
	}
	return nil
}

func printOperations(desc registry.ToolDescriptor, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(desc.Operations)
	}
	for _, op := range desc.Operations {
		printOperationLine(op)
	}
	return nil
}

func printOperationLine(op registry.OperationDescriptor) {
	attrs := []string{string(op.Kind)}
	if op.CacheTTLSeconds > 0 {
		attrs = append(attrs, fmt.Sprintf("cache=%.0fs", op.CacheTTLSeconds))
	}
	if op.RequiresAuth {
		attrs = append(attrs, "auth")
	}
	fmt.Printf("%s\t%s\n", op.Name, strings.Join(attrs, ","))
}

func printOperationDescriptor(op registry.OperationDescriptor, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(op)
	}
	fmt.Printf("%s kind=%s timeout=%.0fs\n", op.Name, op.Kind, op.TimeoutSeconds)
	if op.Description != "" {
		fmt.Println(op.Description)
	}
	if op.CacheTTLSeconds > 0 {
		fmt.Printf("cache_ttl=%.0fs\n", op.CacheTTLSeconds)
	}
	if op.RequiresAuth {
		fmt.Println("requires_auth=true")
	}
	if op.InputSchema != nil {
		data, err := json.MarshalIndent(op.InputSchema, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("input_schema:\n%s\n", string(data))
	}
	return nil
}

func printExecuteResult(result executeResult, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(result)
	}
	fmt.Printf("operation=%s success=%t time=%.1fms request=%s\n",
		result.Operation, result.Success, result.ExecutionTimeMs, result.RequestID)
	if result.Error != "" {
		fmt.Printf("error=%s\n", result.Error)
	}
	if result.Result != nil {
		data, err := json.MarshalIndent(result.Result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	return nil
}

func printToolStats(resp toolStatsResponse, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(resp)
	}
	stats := resp.Stats
	fmt.Printf("tool=%s executions=%d ok=%d failed=%d cache_hits=%d avg=%s\n",
		stats.Tool, stats.TotalExecutions, stats.SuccessfulExecutions,
		stats.FailedExecutions, stats.CacheHits, stats.AverageExecutionTime.Round(time.Microsecond))
	fmt.Printf("breaker=%s failures=%d opens=%d\n",
		resp.Breaker.State, resp.Breaker.FailureCount, resp.Breaker.CircuitOpenCount)
	return nil
}

func printRegistryStats(snapshot domain.RegistryStatsSnapshot, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(snapshot)
	}
	fmt.Printf("tools=%d operations=%d executions=%d ok=%d failed=%d cache_hits=%d\n",
		snapshot.Tools, snapshot.Operations, snapshot.TotalExecutions,
		snapshot.SuccessfulExecutions, snapshot.FailedExecutions, snapshot.CacheHits)
	for _, tool := range snapshot.PerTool {
		fmt.Printf("%s\texecutions=%d ok=%d failed=%d cache_hits=%d\n",
			tool.Tool, tool.TotalExecutions, tool.SuccessfulExecutions,
			tool.FailedExecutions, tool.CacheHits)
	}
	return nil
}

func printHealthReport(report telemetry.HealthReport, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(report)
	}
	fmt.Printf("status=%s\n", report.Status)
	for _, component := range report.Components {
		line := fmt.Sprintf("%s\talive=%t", component.Name, component.Alive)
		if !component.LastBeat.IsZero() {
			line += "\tlast_beat=" + component.LastBeat.Format(time.RFC3339)
		}
		fmt.Println(line)
	}
	return nil
}
