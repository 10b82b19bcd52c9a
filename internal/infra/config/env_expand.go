package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandEnv substitutes ${VAR} references in every string scalar of the
// YAML document and reports which variables were unset. Unquoted scalars
// that expand to numbers, booleans, or null are retagged so the decoder
// sees typed values rather than strings; quoted scalars stay strings.
func expandEnv(raw []byte) (string, []string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}
	// Empty and comment-only files leave the root node unset, which the
	// encoder refuses to round-trip.
	if doc.Kind == 0 {
		return "", nil, nil
	}

	missing := make(map[string]struct{})
	walkValues(&doc, func(node *yaml.Node) {
		expandScalar(node, missing)
	})

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}
	return string(out), sortedSet(missing), nil
}

// walkValues visits every scalar value node. Mapping keys are skipped;
// an env reference in a key position is left alone.
func walkValues(node *yaml.Node, visit func(*yaml.Node)) {
	switch node.Kind {
	case yaml.ScalarNode:
		visit(node)
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			walkValues(node.Content[i], visit)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			walkValues(node.Alias, visit)
		}
	default:
		for _, child := range node.Content {
			walkValues(child, visit)
		}
	}
}

func expandScalar(node *yaml.Node, missing map[string]struct{}) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}

	expanded := os.Expand(node.Value, func(name string) string {
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		missing[name] = struct{}{}
		return ""
	})
	if expanded == node.Value {
		return
	}

	if node.Style != 0 {
		node.Tag = "!!str"
		node.Value = expanded
		return
	}
	node.Tag, node.Value = retagScalar(expanded)
}

// retagScalar re-resolves the expanded text so "15" becomes an int and
// "true" a bool, matching what the author would have gotten by writing
// the value inline.
func retagScalar(value string) (string, string) {
	if strings.TrimSpace(value) == "" {
		return "!!str", value
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return "!!str", value
	}

	switch v := parsed.(type) {
	case nil:
		return "!!null", "null"
	case bool:
		return "!!bool", strconv.FormatBool(v)
	case int:
		return "!!int", strconv.Itoa(v)
	case int64:
		return "!!int", strconv.FormatInt(v, 10)
	case uint64:
		return "!!int", strconv.FormatUint(v, 10)
	case float64:
		return "!!float", strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "!!str", value
	}
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
