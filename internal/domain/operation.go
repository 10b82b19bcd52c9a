package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// OperationKind classifies what an operation does to the underlying resource.
type OperationKind string

const (
	OperationCreate   OperationKind = "create"
	OperationRead     OperationKind = "read"
	OperationUpdate   OperationKind = "update"
	OperationDelete   OperationKind = "delete"
	OperationList     OperationKind = "list"
	OperationSearch   OperationKind = "search"
	OperationExecute  OperationKind = "execute"
	OperationValidate OperationKind = "validate"
	OperationApprove  OperationKind = "approve"
	OperationReject   OperationKind = "reject"
)

// Valid reports whether the kind is one of the known operation kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case OperationCreate, OperationRead, OperationUpdate, OperationDelete,
		OperationList, OperationSearch, OperationExecute, OperationValidate,
		OperationApprove, OperationReject:
		return true
	default:
		return false
	}
}

// Idempotent reports whether the kind is safe to memoize by default.
func (k OperationKind) Idempotent() bool {
	switch k {
	case OperationRead, OperationList, OperationSearch:
		return true
	default:
		return false
	}
}

// Operation is the static descriptor of one named action a master tool can
// perform. Immutable after registration.
type Operation struct {
	Name         string
	Kind         OperationKind
	Description  string
	InputSchema  *jsonschema.Schema
	OutputSchema *jsonschema.Schema
	Timeout      time.Duration
	RequiresAuth bool
	// CacheTTL of zero disables result caching for this operation.
	CacheTTL time.Duration
	Priority int
}

// Validate checks the descriptor for registration-time programmer errors.
func (o Operation) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return E(CodeInvalidArgument, "", "operation name is required", nil)
	}
	if !o.Kind.Valid() {
		return E(CodeInvalidArgument, "", fmt.Sprintf("operation %q: unknown kind %q", o.Name, o.Kind), nil)
	}
	if o.Timeout <= 0 {
		return E(CodeInvalidArgument, "", fmt.Sprintf("operation %q: timeout must be > 0", o.Name), nil)
	}
	if o.CacheTTL < 0 {
		return E(CodeInvalidArgument, "", fmt.Sprintf("operation %q: cacheTTL must be >= 0", o.Name), nil)
	}
	return nil
}

// Cacheable reports whether results of this operation may be stored.
func (o Operation) Cacheable() bool {
	return o.CacheTTL > 0
}
