package registry

import (
	"github.com/google/jsonschema-go/jsonschema"

	"webmcpd/internal/domain"
)

// OperationDescriptor is the wire form of one operation, served over the
// HTTP façade and the MCP surface.
type OperationDescriptor struct {
	Name            string               `json:"name"`
	Kind            domain.OperationKind `json:"kind"`
	Description     string               `json:"description,omitempty"`
	InputSchema     *jsonschema.Schema   `json:"input_schema,omitempty"`
	OutputSchema    *jsonschema.Schema   `json:"output_schema,omitempty"`
	TimeoutSeconds  float64              `json:"timeout_seconds"`
	RequiresAuth    bool                 `json:"requires_auth"`
	CacheTTLSeconds float64              `json:"cache_ttl_seconds"`
	Priority        int                  `json:"priority"`
}

// ToolDescriptor is the wire form of one master tool with its full
// operation table.
type ToolDescriptor struct {
	Name        string                `json:"name"`
	Version     string                `json:"version"`
	Description string                `json:"description,omitempty"`
	Group       domain.ToolGroup      `json:"group"`
	Priority    int                   `json:"priority"`
	Operations  []OperationDescriptor `json:"operations"`
}

// ToolSummary is the compact list form.
type ToolSummary struct {
	Name           string           `json:"name"`
	Version        string           `json:"version"`
	Description    string           `json:"description,omitempty"`
	Group          domain.ToolGroup `json:"group"`
	Priority       int              `json:"priority"`
	OperationCount int              `json:"operation_count"`
	Operations     []string         `json:"operations"`
}

// DescribeOperation converts one operation into its wire descriptor.
func DescribeOperation(op domain.Operation) OperationDescriptor {
	return OperationDescriptor{
		Name:            op.Name,
		Kind:            op.Kind,
		Description:     op.Description,
		InputSchema:     op.InputSchema,
		OutputSchema:    op.OutputSchema,
		TimeoutSeconds:  op.Timeout.Seconds(),
		RequiresAuth:    op.RequiresAuth,
		CacheTTLSeconds: op.CacheTTL.Seconds(),
		Priority:        op.Priority,
	}
}

// Descriptor returns the full wire descriptor, operations sorted by name.
func (t *MasterTool) Descriptor() ToolDescriptor {
	ops := t.Operations()
	descriptors := make([]OperationDescriptor, 0, len(ops))
	for _, op := range ops {
		descriptors = append(descriptors, DescribeOperation(op))
	}
	return ToolDescriptor{
		Name:        t.name,
		Version:     t.version,
		Description: t.description,
		Group:       t.group,
		Priority:    t.priority,
		Operations:  descriptors,
	}
}

// Summary returns the compact list form, operations sorted by name.
func (t *MasterTool) Summary() ToolSummary {
	ops := t.Operations()
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.Name)
	}
	return ToolSummary{
		Name:           t.name,
		Version:        t.version,
		Description:    t.description,
		Group:          t.group,
		Priority:       t.priority,
		OperationCount: len(names),
		Operations:     names,
	}
}
