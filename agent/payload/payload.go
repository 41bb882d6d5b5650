// Package payload converts between the flat parameter shape planners emit and
// the nested shape the storefront expects.
//
// Flat shape:
//
//	includes:     [{"alias": "product", "fields": ["id", "name"]}]
//	associations: ["deliveries.stateMachineState"]
//	filter:       [{"type": "range", "field": "price", "gte": 10}]
//
// Nested shape:
//
//	includes:     {"product": ["id", "name"]}
//	associations: {"deliveries": {"associations": {"stateMachineState": {}}}}
//	filter:       [{"type": "range", "field": "price", "parameters": {"gte": 10}}]
//
// Flatten(Expand(x)) == x holds when includes are sorted by unique alias,
// association paths are sorted, unique and leaf-only, and range filters carry
// their bounds at the top level.
package payload

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

const (
	KeyIncludes     = "includes"
	KeyAssociations = "associations"
	KeyFilter       = "filter"

	filterTypeRange  = "range"
	filterParameters = "parameters"
)

var rangeBounds = []string{"gt", "gte", "lt", "lte"}

// Expand turns a flat payload into the executor's nested form. Values that are
// already nested are kept as they are.
func Expand(flat map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(flat))
	maps.Copy(out, flat)

	if v, ok := flat[KeyIncludes]; ok {
		includes, err := expandIncludes(v)
		if err != nil {
			return nil, err
		}
		out[KeyIncludes] = includes
	}
	if v, ok := flat[KeyAssociations]; ok {
		assoc, err := expandAssociations(v)
		if err != nil {
			return nil, err
		}
		out[KeyAssociations] = assoc
	}
	if v, ok := flat[KeyFilter]; ok {
		filter, err := expandFilter(v)
		if err != nil {
			return nil, err
		}
		out[KeyFilter] = filter
	}
	return out, nil
}

// Flatten is the inverse of Expand.
func Flatten(nested map[string]any) map[string]any {
	out := make(map[string]any, len(nested))
	maps.Copy(out, nested)

	if m, ok := nested[KeyIncludes].(map[string]any); ok {
		out[KeyIncludes] = flattenIncludes(m)
	}
	if m, ok := nested[KeyAssociations].(map[string]any); ok {
		out[KeyAssociations] = flattenAssociations(m)
	}
	if list, ok := nested[KeyFilter].([]any); ok {
		out[KeyFilter] = flattenFilter(list)
	}
	return out
}

func expandIncludes(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return t, nil
	case []any:
		out := make(map[string]any, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: includes[%d] must be an object", contractx.ErrValidation, i)
			}
			alias, _ := m["alias"].(string)
			if strings.TrimSpace(alias) == "" {
				return nil, fmt.Errorf("%w: includes[%d].alias is required", contractx.ErrValidation, i)
			}
			fields, ok := m["fields"].([]any)
			if !ok {
				return nil, fmt.Errorf("%w: includes[%d].fields must be a list", contractx.ErrValidation, i)
			}
			out[alias] = fields
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: includes has unsupported type %T", contractx.ErrValidation, v)
	}
}

func flattenIncludes(m map[string]any) []any {
	aliases := sortedKeys(m)
	out := make([]any, 0, len(aliases))
	for _, alias := range aliases {
		out = append(out, map[string]any{"alias": alias, "fields": m[alias]})
	}
	return out
}

func expandAssociations(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return t, nil
	case []any:
		root := map[string]any{}
		for i, item := range t {
			p, ok := item.(string)
			if !ok || strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("%w: associations[%d] must be a dotted path", contractx.ErrValidation, i)
			}
			node := root
			segs := strings.Split(p, ".")
			for j, seg := range segs {
				if seg == "" {
					return nil, fmt.Errorf("%w: associations[%d] has an empty segment", contractx.ErrValidation, i)
				}
				child, ok := node[seg].(map[string]any)
				if !ok {
					child = map[string]any{}
					node[seg] = child
				}
				if j == len(segs)-1 {
					break
				}
				next, ok := child[KeyAssociations].(map[string]any)
				if !ok {
					next = map[string]any{}
					child[KeyAssociations] = next
				}
				node = next
			}
		}
		return root, nil
	default:
		return nil, fmt.Errorf("%w: associations has unsupported type %T", contractx.ErrValidation, v)
	}
}

func flattenAssociations(m map[string]any) []any {
	var paths []string
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for _, name := range sortedKeys(node) {
			p := name
			if prefix != "" {
				p = prefix + "." + name
			}
			child, _ := node[name].(map[string]any)
			nested, _ := child[KeyAssociations].(map[string]any)
			if len(nested) == 0 {
				paths = append(paths, p)
				continue
			}
			walk(p, nested)
		}
	}
	walk("", m)
	sort.Strings(paths)

	out := make([]any, 0, len(paths))
	for _, p := range paths {
		out = append(out, p)
	}
	return out
}

func expandFilter(v any) (any, error) {
	list, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: filter must be a list", contractx.ErrValidation)
	}
	out := make([]any, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: filter[%d] must be an object", contractx.ErrValidation, i)
		}
		if m["type"] != filterTypeRange {
			out = append(out, m)
			continue
		}
		if _, nested := m[filterParameters]; nested {
			out = append(out, m)
			continue
		}
		f := make(map[string]any, len(m))
		params := map[string]any{}
		for k, val := range m {
			if slices.Contains(rangeBounds, k) {
				params[k] = val
				continue
			}
			f[k] = val
		}
		f[filterParameters] = params
		out = append(out, f)
	}
	return out, nil
}

func flattenFilter(list []any) []any {
	out := make([]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok || m["type"] != filterTypeRange {
			out = append(out, item)
			continue
		}
		params, ok := m[filterParameters].(map[string]any)
		if !ok {
			out = append(out, item)
			continue
		}
		f := make(map[string]any, len(m)+len(params))
		for k, val := range m {
			if k != filterParameters {
				f[k] = val
			}
		}
		maps.Copy(f, params)
		out = append(out, f)
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
