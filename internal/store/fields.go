package store

import "strings"

type transformKind int

const (
	transformDelete transformKind = iota + 1
	transformArrayUnion
	transformArrayRemove
)

// Transform is a field value that is resolved against the stored document
// instead of being written literally.
type Transform struct {
	kind   transformKind
	values []any
}

// DeleteField removes the field it is assigned to.
var DeleteField = Transform{kind: transformDelete}

// ArrayUnion appends each value not already present in the array field.
func ArrayUnion(values ...any) Transform {
	return Transform{kind: transformArrayUnion, values: values}
}

// ArrayRemove drops every occurrence of each value from the array field.
func ArrayRemove(values ...any) Transform {
	return Transform{kind: transformArrayRemove, values: values}
}

// mergeFields applies updates to a copy of base. Keys containing dots address
// nested maps ("data.text"); missing intermediate maps are created.
func mergeFields(base, updates map[string]any) map[string]any {
	out := cloneMap(base)
	for key, value := range updates {
		parts := strings.Split(key, ".")
		target := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := target[part].(map[string]any)
			if !ok {
				next = map[string]any{}
			} else {
				next = cloneMap(next)
			}
			target[part] = next
			target = next
		}
		leaf := parts[len(parts)-1]
		if t, ok := value.(Transform); ok {
			applyTransform(target, leaf, t)
			continue
		}
		target[leaf] = value
	}
	return out
}

func applyTransform(target map[string]any, key string, t Transform) {
	switch t.kind {
	case transformDelete:
		delete(target, key)
	case transformArrayUnion:
		current := toSlice(target[key])
		for _, v := range t.values {
			if !containsValue(current, v) {
				current = append(current, v)
			}
		}
		target[key] = current
	case transformArrayRemove:
		current := toSlice(target[key])
		kept := make([]any, 0, len(current))
		for _, item := range current {
			remove := false
			for _, v := range t.values {
				if equalValues(item, v) {
					remove = true
					break
				}
			}
			if !remove {
				kept = append(kept, item)
			}
		}
		target[key] = kept
	}
}

func toSlice(v any) []any {
	switch items := v.(type) {
	case []any:
		return append([]any(nil), items...)
	case []string:
		out := make([]any, len(items))
		for i, s := range items {
			out[i] = s
		}
		return out
	}
	return []any{}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
