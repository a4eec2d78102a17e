// Package filter provides portable boolean predicates over document fields.
//
// A [Filter] is a small expression tree. Backends translate it into their native
// query language (DynamoDB filter expressions, MongoDB query documents) and the
// in-memory backend evaluates it directly with [Match].
//
// Field names are the serialized attribute names ("id", "deleted", "name"), and
// may address nested documents with dots ("address.city").
package filter

import (
	"fmt"
	"strings"
)

// Op identifies the operator of a Filter node.
type Op string

const (
	// OpAll matches every document. It is the zero value.
	OpAll Op = ""

	OpEq        Op = "eq"
	OpNe        Op = "ne"
	OpLt        Op = "lt"
	OpLte       Op = "lte"
	OpGt        Op = "gt"
	OpGte       Op = "gte"
	OpIn        Op = "in"
	OpExists    Op = "exists"
	OpNotExists Op = "not_exists"
	OpAnd       Op = "and"
	OpOr        Op = "or"
	OpNot       Op = "not"
)

// Filter is a node of a predicate tree. The zero value matches everything.
type Filter struct {
	// Op is the node operator.
	Op Op

	// Field is the attribute the comparison applies to (leaf nodes only).
	Field string

	// Value is the comparison operand (OpEq through OpGte).
	Value any

	// Values holds the candidate set for OpIn.
	Values []any

	// Children holds the operands of OpAnd, OpOr and OpNot.
	Children []Filter
}

// All returns a filter that matches every document.
func All() Filter { return Filter{} }

// Eq matches documents whose field equals value.
func Eq(field string, value any) Filter { return leaf(OpEq, field, value) }

// Ne matches documents whose field does not equal value.
func Ne(field string, value any) Filter { return leaf(OpNe, field, value) }

// Lt matches documents whose field is less than value.
func Lt(field string, value any) Filter { return leaf(OpLt, field, value) }

// Lte matches documents whose field is less than or equal to value.
func Lte(field string, value any) Filter { return leaf(OpLte, field, value) }

// Gt matches documents whose field is greater than value.
func Gt(field string, value any) Filter { return leaf(OpGt, field, value) }

// Gte matches documents whose field is greater than or equal to value.
func Gte(field string, value any) Filter { return leaf(OpGte, field, value) }

// In matches documents whose field equals any of values.
func In(field string, values ...any) Filter {
	return Filter{Op: OpIn, Field: field, Values: values}
}

// Exists matches documents that carry the field.
func Exists(field string) Filter { return Filter{Op: OpExists, Field: field} }

// NotExists matches documents that do not carry the field.
func NotExists(field string) Filter { return Filter{Op: OpNotExists, Field: field} }

func leaf(op Op, field string, value any) Filter {
	return Filter{Op: op, Field: field, Value: value}
}

// And matches documents satisfying every filter.
// Nested conjunctions are flattened and match-all operands are dropped, so
// And() and And(All()) both return All().
func And(filters ...Filter) Filter {
	var children []Filter
	for _, f := range filters {
		switch f.Op {
		case OpAll:
			continue
		case OpAnd:
			children = append(children, f.Children...)
		default:
			children = append(children, f)
		}
	}
	switch len(children) {
	case 0:
		return All()
	case 1:
		return children[0]
	}
	return Filter{Op: OpAnd, Children: children}
}

// Or matches documents satisfying at least one filter.
// A match-all operand makes the whole disjunction match-all. With no operands
// nothing can be satisfied, so Or() matches no document (see [None]).
func Or(filters ...Filter) Filter {
	var children []Filter
	for _, f := range filters {
		switch f.Op {
		case OpAll:
			return All()
		case OpOr:
			children = append(children, f.Children...)
		default:
			children = append(children, f)
		}
	}
	switch len(children) {
	case 0:
		return None()
	case 1:
		return children[0]
	}
	return Filter{Op: OpOr, Children: children}
}

// None returns a filter that matches no document: a disjunction without
// operands.
func None() Filter { return Filter{Op: OpOr} }

// Not negates f. Double negation is collapsed.
func Not(f Filter) Filter {
	if f.Op == OpNot && len(f.Children) == 1 {
		return f.Children[0]
	}
	return Filter{Op: OpNot, Children: []Filter{f}}
}

// IsAll reports whether f matches every document.
func (f Filter) IsAll() bool { return f.Op == OpAll }

// IsNone reports whether f is the empty disjunction returned by [None].
func (f Filter) IsNone() bool { return f.Op == OpOr && len(f.Children) == 0 }

// Conjuncts returns the operands of a top-level conjunction, or f itself.
func (f Filter) Conjuncts() []Filter {
	switch f.Op {
	case OpAll:
		return nil
	case OpAnd:
		return f.Children
	}
	return []Filter{f}
}

// Validate checks the tree for malformed nodes.
func (f Filter) Validate() error {
	switch f.Op {
	case OpAll:
		return nil
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpExists, OpNotExists:
		if f.Field == "" {
			return fmt.Errorf("filter: %s without field", f.Op)
		}
		return nil
	case OpAnd, OpOr:
		for _, c := range f.Children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
		return nil
	case OpNot:
		if len(f.Children) != 1 {
			return fmt.Errorf("filter: not expects one operand, got %d", len(f.Children))
		}
		return f.Children[0].Validate()
	}
	return fmt.Errorf("filter: unknown operator %q", f.Op)
}

var symbols = map[Op]string{
	OpEq:  "=",
	OpNe:  "<>",
	OpLt:  "<",
	OpLte: "<=",
	OpGt:  ">",
	OpGte: ">=",
}

// String renders f for logs, e.g. `deleted = false AND name = "ada"`.
func (f Filter) String() string {
	switch f.Op {
	case OpAll:
		return "*"
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		return fmt.Sprintf("%s %s %s", f.Field, symbols[f.Op], formatValue(f.Value))
	case OpIn:
		vals := make([]string, len(f.Values))
		for i, v := range f.Values {
			vals[i] = formatValue(v)
		}
		return fmt.Sprintf("%s IN (%s)", f.Field, strings.Join(vals, ", "))
	case OpExists:
		return fmt.Sprintf("exists(%s)", f.Field)
	case OpNotExists:
		return fmt.Sprintf("not_exists(%s)", f.Field)
	case OpAnd, OpOr:
		if f.IsNone() {
			return "none"
		}
		sep := " AND "
		if f.Op == OpOr {
			sep = " OR "
		}
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = c.group()
		}
		return strings.Join(parts, sep)
	case OpNot:
		if len(f.Children) == 1 {
			return "NOT " + f.Children[0].group()
		}
	}
	return fmt.Sprintf("<invalid %s>", f.Op)
}

func (f Filter) group() string {
	if f.Op == OpAnd || f.Op == OpOr {
		return "(" + f.String() + ")"
	}
	return f.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case nil:
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
