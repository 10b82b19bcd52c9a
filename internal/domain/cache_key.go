package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

type cacheKeyInput struct {
	Args      map[string]any `json:"args"`
	Operation string         `json:"operation"`
	Tool      string         `json:"tool"`
}

// CacheKey derives the memoization key for one (tool, operation, arguments)
// triple. encoding/json emits map keys in sorted order, so two structurally
// equal argument maps hash identically regardless of insertion order. The
// key is stable across processes. Arguments that cannot be serialized fail
// here, at call time, rather than hashing inconsistently.
func CacheKey(tool, operation string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(cacheKeyInput{
		Args:      args,
		Operation: operation,
		Tool:      tool,
	})
	if err != nil {
		return "", E(CodeInvalidArgument, "domain.CacheKey", "arguments are not JSON-serializable", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
