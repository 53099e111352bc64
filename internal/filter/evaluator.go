package filter

import (
	"strings"

	"vectra/internal/store"
)

// Matches reports whether a chunk passes every constraint of the filter.
// A nil or empty filter passes everything.
func (f *SearchFilters) Matches(chunk *store.Chunk) bool {
	if f.IsZero() {
		return true
	}
	if f.Metadata != nil && !f.Metadata.matches(chunk) {
		return false
	}
	if f.CreatedAfter != nil && chunk.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && chunk.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	if len(f.DocumentIDs) > 0 {
		found := false
		for _, id := range f.DocumentIDs {
			if chunk.DocumentID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (g *Group) matches(chunk *store.Chunk) bool {
	if g.Operator == LogicalOr {
		for _, node := range g.Filters {
			if node.matches(chunk) {
				return true
			}
		}
		return false
	}
	// "and", including the zero-children case.
	for _, node := range g.Filters {
		if !node.matches(chunk) {
			return false
		}
	}
	return true
}

func (n Node) matches(chunk *store.Chunk) bool {
	switch {
	case n.Group != nil:
		return n.Group.matches(chunk)
	case n.Predicate != nil:
		return n.Predicate.matches(chunk)
	default:
		return false
	}
}

// matches evaluates a single metadata predicate. An absent field is false
// for every operator, negative ones included; a type mismatch is false,
// never an error.
func (p *Predicate) matches(chunk *store.Chunk) bool {
	value, ok := chunk.Metadata[p.Field]
	if !ok {
		return false
	}
	switch p.Op {
	case OpEquals:
		return looseEquals(value, p.Value)
	case OpNotEquals:
		return sameKind(value, p.Value) && !looseEquals(value, p.Value)
	case OpGreaterThan:
		cmp, ok := compareOrdered(value, p.Value)
		return ok && cmp > 0
	case OpGreaterEqual:
		cmp, ok := compareOrdered(value, p.Value)
		return ok && cmp >= 0
	case OpLessThan:
		cmp, ok := compareOrdered(value, p.Value)
		return ok && cmp < 0
	case OpLessEqual:
		cmp, ok := compareOrdered(value, p.Value)
		return ok && cmp <= 0
	case OpIn:
		return inList(value, p.Value)
	case OpNotIn:
		list, ok := asList(p.Value)
		return ok && !contains(list, value)
	case OpContains:
		a, b, ok := bothStrings(value, p.Value)
		return ok && strings.Contains(a, b)
	case OpNotContains:
		a, b, ok := bothStrings(value, p.Value)
		return ok && !strings.Contains(a, b)
	case OpStartsWith:
		a, b, ok := bothStrings(value, p.Value)
		return ok && strings.HasPrefix(a, b)
	case OpEndsWith:
		a, b, ok := bothStrings(value, p.Value)
		return ok && strings.HasSuffix(a, b)
	default:
		return false
	}
}

// toFloat widens any numeric value to float64. JSON decoding yields
// float64, but metadata set programmatically may carry Go integer types.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// looseEquals compares across numeric representations, and exactly for
// strings and bools. Unsupported value shapes never match.
func looseEquals(a, b any) bool {
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
	default:
		return false
	}
}

// sameKind reports whether two values are of shapes looseEquals can
// meaningfully compare; ne on mismatched types stays false.
func sameKind(a, b any) bool {
	if _, ok := toFloat(a); ok {
		_, ok := toFloat(b)
		return ok
	}
	switch a.(type) {
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	default:
		return false
	}
}

// compareOrdered returns -1/0/1 for numeric or string-to-string ordering.
func compareOrdered(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

// bothStrings returns both values as strings when both are strings; any
// other pairing reports false.
func bothStrings(a, b any) (string, string, bool) {
	as, aok := a.(string)
	bs, bok := b.(string)
	return as, bs, aok && bok
}

func asList(v any) ([]any, bool) {
	list, ok := v.([]any)
	return list, ok
}

func contains(list []any, v any) bool {
	for _, item := range list {
		if looseEquals(v, item) {
			return true
		}
	}
	return false
}

func inList(value, filterValue any) bool {
	list, ok := asList(filterValue)
	return ok && contains(list, value)
}
