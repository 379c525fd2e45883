package store

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// Record is one stored document.
type Record struct {
	Path    string
	ID      string
	Fields  map[string]any
	Version int64
}

type Snapshot struct {
	Collection string
	Records    []Record
}

type PredicateOp string

const (
	OpEq            PredicateOp = "=="
	OpArrayContains PredicateOp = "array-contains"
)

type Predicate struct {
	Field string
	Op    PredicateOp
	Value any
}

func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

func ArrayContains(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpArrayContains, Value: value}
}

// Query selects the documents of one collection. Only equality and
// array-contains predicates exist; a query with more than one predicate
// needs a composite index and is refused with ErrFailedPrecondition.
type Query struct {
	Collection string
	Where      []Predicate
}

func (q Query) validate() error {
	if q.Collection == "" {
		return errInvalidQuery
	}
	if len(q.Where) > 1 {
		return ErrFailedPrecondition
	}
	for _, p := range q.Where {
		if p.Op != OpEq && p.Op != OpArrayContains {
			return ErrFailedPrecondition
		}
	}
	return nil
}

func (q Query) Matches(r Record) bool {
	for _, p := range q.Where {
		v, ok := r.Fields[p.Field]
		switch p.Op {
		case OpEq:
			if !ok || !equalValues(v, p.Value) {
				return false
			}
		case OpArrayContains:
			if !ok || !containsValue(v, p.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (r Record) String(field string) string {
	s, _ := r.Fields[field].(string)
	return s
}

// StringPtr returns nil when the field is missing, null or not a string.
func (r Record) StringPtr(field string) *string {
	s, ok := r.Fields[field].(string)
	if !ok {
		return nil
	}
	return &s
}

func (r Record) Bool(field string) bool {
	b, _ := r.Fields[field].(bool)
	return b
}

// Int returns the numeric field as int64; missing or non-numeric values are 0.
func (r Record) Int(field string) int64 {
	switch n := r.Fields[field].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		if v, err := n.Int64(); err == nil {
			return v
		}
	}
	f, ok := toFloat(r.Fields[field])
	if !ok {
		return 0
	}
	return int64(math.Floor(f))
}

func (r Record) Strings(field string) []string {
	switch v := r.Fields[field].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (r Record) Map(field string) map[string]any {
	m, _ := r.Fields[field].(map[string]any)
	return m
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

func containsValue(list, value any) bool {
	switch items := list.(type) {
	case []any:
		for _, item := range items {
			if equalValues(item, value) {
				return true
			}
		}
	case []string:
		for _, item := range items {
			if equalValues(item, value) {
				return true
			}
		}
	}
	return false
}
