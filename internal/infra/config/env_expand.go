package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandEnv substitutes ${VAR} references in the YAML document. Unset
// variables expand to the empty string and are reported back to the caller
// so the loader can warn about them.
func expandEnv(raw []byte) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}

	missing := make(map[string]struct{})
	expandNode(&root, missing)

	expanded, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}

	var names []string
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return string(expanded), names, nil
}

func expandNode(node *yaml.Node, missing map[string]struct{}) {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			expandNode(child, missing)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			expandNode(node.Content[i+1], missing)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			expandNode(node.Alias, missing)
		}
	case yaml.ScalarNode:
		if node.Tag != "" && node.Tag != "!!str" {
			return
		}
		if !strings.Contains(node.Value, "$") {
			return
		}
		expanded := os.Expand(node.Value, func(key string) string {
			if val, ok := os.LookupEnv(key); ok {
				return val
			}
			missing[key] = struct{}{}
			return ""
		})
		if expanded != node.Value {
			retypeScalar(node, expanded)
		}
	}
}

// retypeScalar rewrites a scalar after expansion. Quoted scalars stay
// strings; plain scalars are re-resolved so "${PORT}" can become an int.
func retypeScalar(node *yaml.Node, expanded string) {
	if node.Style != 0 || strings.TrimSpace(expanded) == "" {
		node.Tag = "!!str"
		node.Value = expanded
		return
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(expanded), &parsed); err != nil {
		node.Tag = "!!str"
		node.Value = expanded
		return
	}

	switch v := parsed.(type) {
	case nil:
		node.Tag = "!!null"
		node.Value = "null"
	case bool:
		node.Tag = "!!bool"
		node.Value = strconv.FormatBool(v)
	case int:
		node.Tag = "!!int"
		node.Value = strconv.Itoa(v)
	case int64:
		node.Tag = "!!int"
		node.Value = strconv.FormatInt(v, 10)
	case uint64:
		node.Tag = "!!int"
		node.Value = strconv.FormatUint(v, 10)
	case float64:
		node.Tag = "!!float"
		node.Value = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		node.Tag = "!!str"
		node.Value = expanded
	}
}
