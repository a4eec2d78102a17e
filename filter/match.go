package filter

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Match reports whether doc satisfies f.
//
// doc is expected in JSON-decoded form: strings, float64, bool, nil, []any and
// map[string]any. Operands are brought into the same form with [Normalize].
// Timestamp strings on both sides compare as instants (see [TimeLayout]).
// Missing fields follow MongoDB semantics: Eq(field, nil) and Ne(field, x)
// match documents without the field, ordered comparisons never do.
func Match(f Filter, doc map[string]any) bool {
	switch f.Op {
	case OpAll:
		return true
	case OpAnd:
		for _, c := range f.Children {
			if !Match(c, doc) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range f.Children {
			if Match(c, doc) {
				return true
			}
		}
		return false
	case OpNot:
		return len(f.Children) == 1 && !Match(f.Children[0], doc)
	case OpExists:
		_, ok := Lookup(doc, f.Field)
		return ok
	case OpNotExists:
		_, ok := Lookup(doc, f.Field)
		return !ok
	}

	got, ok := Lookup(doc, f.Field)
	if s, isString := got.(string); isString {
		got = canonicalTime(s)
	}
	switch f.Op {
	case OpEq:
		return equal(got, ok, Normalize(f.Value))
	case OpNe:
		return !equal(got, ok, Normalize(f.Value))
	case OpIn:
		for _, v := range f.Values {
			if equal(got, ok, Normalize(v)) {
				return true
			}
		}
		return false
	case OpLt, OpLte, OpGt, OpGte:
		if !ok {
			return false
		}
		c, comparable := compare(got, Normalize(f.Value))
		if !comparable {
			return false
		}
		switch f.Op {
		case OpLt:
			return c < 0
		case OpLte:
			return c <= 0
		case OpGt:
			return c > 0
		default:
			return c >= 0
		}
	}
	return false
}

// Lookup resolves a dotted field path inside doc.
func Lookup(doc map[string]any, field string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Normalize converts an operand into its JSON-decoded form. Timestamps become
// TimeLayout strings.
func Normalize(v any) any {
	switch v := v.(type) {
	case nil, bool, float64:
		return v
	case string:
		return canonicalTime(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case time.Time:
		return FormatTime(v)
	case fmt.Stringer:
		return canonicalTime(v.String())
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return Canonical(out)
}

func equal(got any, present bool, want any) bool {
	if !present {
		return want == nil
	}
	if c, ok := compare(got, want); ok {
		return c == 0
	}
	return reflect.DeepEqual(got, want)
}

// compare orders two scalars of the same kind.
func compare(a, b any) (int, bool) {
	switch a := a.(type) {
	case float64:
		b, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	case string:
		b, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(a, b), true
	case bool:
		b, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case a == b:
			return 0, true
		case !a:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}
