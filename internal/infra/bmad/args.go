package bmad

import (
	"fmt"
	"math"
	"strings"

	"webmcpd/internal/domain"
)

// Argument maps arrive straight from JSON decoding, so numbers are
// float64 and lists are []any. These helpers coerce and validate them;
// every failure is an INVALID_ARGUMENT carrying the argument name.

func requiredString(errOp string, args map[string]any, key string) (string, error) {
	value, ok, err := optionalString(errOp, args, key)
	if err != nil {
		return "", err
	}
	if !ok || value == "" {
		return "", domain.E(domain.CodeInvalidArgument, errOp,
			fmt.Sprintf("argument %q is required", key), nil)
	}
	return value, nil
}

func optionalString(errOp string, args map[string]any, key string) (string, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", false, domain.E(domain.CodeInvalidArgument, errOp,
			fmt.Sprintf("argument %q must be a string", key), nil)
	}
	return strings.TrimSpace(value), true, nil
}

// stringPtr returns nil when key is absent, so update handlers can
// distinguish "leave unchanged" from "set to empty".
func stringPtr(errOp string, args map[string]any, key string) (*string, error) {
	value, ok, err := optionalString(errOp, args, key)
	if err != nil || !ok {
		return nil, err
	}
	return &value, nil
}

func optionalInt(errOp string, args map[string]any, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, domain.E(domain.CodeInvalidArgument, errOp,
				fmt.Sprintf("argument %q must be an integer", key), nil)
		}
		return int(v), true, nil
	default:
		return 0, false, domain.E(domain.CodeInvalidArgument, errOp,
			fmt.Sprintf("argument %q must be an integer", key), nil)
	}
}

func limitArg(errOp string, args map[string]any) (int, error) {
	limit, ok, err := optionalInt(errOp, args, "limit")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if limit <= 0 {
		return 0, domain.E(domain.CodeInvalidArgument, errOp,
			`argument "limit" must be positive`, nil)
	}
	return limit, nil
}

func stringSlice(errOp string, args map[string]any, key string) ([]string, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false, domain.E(domain.CodeInvalidArgument, errOp,
			fmt.Sprintf("argument %q must be a list of strings", key), nil)
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		value, ok := item.(string)
		if !ok {
			return nil, false, domain.E(domain.CodeInvalidArgument, errOp,
				fmt.Sprintf("argument %q must be a list of strings", key), nil)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values, true, nil
}

// enumArg validates a string argument against the allowed set. Absent
// returns ok=false with no error.
func enumArg(errOp string, args map[string]any, key string, allowed []string) (string, bool, error) {
	value, ok, err := optionalString(errOp, args, key)
	if err != nil || !ok {
		return "", ok, err
	}
	for _, candidate := range allowed {
		if value == candidate {
			return value, true, nil
		}
	}
	return "", false, domain.E(domain.CodeInvalidArgument, errOp,
		fmt.Sprintf("argument %q must be one of %s", key, strings.Join(allowed, ", ")), nil)
}
