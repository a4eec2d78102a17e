package dynamo

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/trove/filter"
	"github.com/jacentio/trove/store"
)

// encoder is shared by items and filter operands. Empty strings stay S values
// so they compare like any other string instead of collapsing to NULL, and
// timestamps are written in filter.TimeLayout so they order by instant.
var encoder = attributevalue.NewEncoder(func(o *attributevalue.EncoderOptions) {
	o.EncodeTime = encodeTime
})

func encodeTime(t time.Time) (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: filter.FormatTime(t)}, nil
}

// nullType is the attribute_type operand for NULL attributes.
var nullType = &types.AttributeValueMemberS{Value: "NULL"}

// expression accumulates the placeholders shared by the key condition,
// filter and projection of a single request.
type expression struct {
	names   map[string]string
	aliases map[string]string
	values  map[string]types.AttributeValue
}

func newExpression() *expression {
	return &expression{
		names:   make(map[string]string),
		aliases: make(map[string]string),
		values:  make(map[string]types.AttributeValue),
	}
}

// name returns the placeholder path for a dotted attribute path.
func (e *expression) name(path string) string {
	parts := strings.Split(path, ".")
	for i, part := range parts {
		alias, ok := e.aliases[part]
		if !ok {
			alias = fmt.Sprintf("#n%d", len(e.aliases))
			e.aliases[part] = alias
			e.names[alias] = part
		}
		parts[i] = alias
	}
	return strings.Join(parts, ".")
}

// value registers an operand and returns its placeholder.
func (e *expression) value(v any) (string, error) {
	av, ok := v.(types.AttributeValue)
	if !ok {
		var err error
		av, err = encoder.Encode(v)
		if err != nil {
			return "", fmt.Errorf("marshal operand %v: %w", v, err)
		}
	}
	placeholder := fmt.Sprintf(":v%d", len(e.values))
	e.values[placeholder] = av
	return placeholder, nil
}

// attributeNames returns the name map, or nil when no name was used.
func (e *expression) attributeNames() map[string]string {
	if len(e.names) == 0 {
		return nil
	}
	return e.names
}

// attributeValues returns the value map, or nil when no value was used.
func (e *expression) attributeValues() map[string]types.AttributeValue {
	if len(e.values) == 0 {
		return nil
	}
	return e.values
}

// projection renders a ProjectionExpression for fields.
func (e *expression) projection(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = e.name(f)
	}
	return strings.Join(parts, ", ")
}

// keyCondition renders the hash key equality used by Query.
func (e *expression) keyCondition(id string) (string, error) {
	v, err := e.value(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", e.name(store.FieldID), v), nil
}

// none renders a condition no item satisfies.
func (e *expression) none() string {
	n := e.name(store.FieldID)
	return fmt.Sprintf("(attribute_exists(%s) AND attribute_not_exists(%s))", n, n)
}

var comparators = map[filter.Op]string{
	filter.OpEq:  "=",
	filter.OpNe:  "<>",
	filter.OpLt:  "<",
	filter.OpLte: "<=",
	filter.OpGt:  ">",
	filter.OpGte: ">=",
}

// filter compiles f into a condition expression. An empty result means f
// matches every item and the request should carry no FilterExpression.
//
// Missing attributes behave as in the other backends: Eq(field, nil) and
// Ne(field, x) match items without the attribute, ordered comparisons do not.
func (e *expression) filter(f filter.Filter) (string, error) {
	switch f.Op {
	case filter.OpAll:
		return "", nil

	case filter.OpAnd:
		var parts []string
		for _, c := range f.Children {
			expr, err := e.filter(c)
			if err != nil {
				return "", err
			}
			if expr != "" {
				parts = append(parts, "("+expr+")")
			}
		}
		return strings.Join(parts, " AND "), nil

	case filter.OpOr:
		if len(f.Children) == 0 {
			return e.none(), nil
		}
		parts := make([]string, 0, len(f.Children))
		for _, c := range f.Children {
			expr, err := e.filter(c)
			if err != nil {
				return "", err
			}
			if expr == "" {
				return "", nil
			}
			parts = append(parts, "("+expr+")")
		}
		return strings.Join(parts, " OR "), nil

	case filter.OpNot:
		if len(f.Children) != 1 {
			return "", fmt.Errorf("filter: not expects one operand, got %d", len(f.Children))
		}
		expr, err := e.filter(f.Children[0])
		if err != nil {
			return "", err
		}
		if expr == "" {
			return e.none(), nil
		}
		return "NOT (" + expr + ")", nil

	case filter.OpExists:
		return fmt.Sprintf("attribute_exists(%s)", e.name(f.Field)), nil

	case filter.OpNotExists:
		return fmt.Sprintf("attribute_not_exists(%s)", e.name(f.Field)), nil

	case filter.OpIn:
		return e.in(f)

	case filter.OpEq:
		return e.equal(f.Field, f.Value)

	case filter.OpNe:
		n := e.name(f.Field)
		if f.Value == nil {
			t, err := e.value(nullType)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("attribute_exists(%s) AND NOT attribute_type(%s, %s)", n, n, t), nil
		}
		v, err := e.value(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("attribute_not_exists(%s) OR %s <> %s", n, n, v), nil

	case filter.OpLt, filter.OpLte, filter.OpGt, filter.OpGte:
		n := e.name(f.Field)
		v, err := e.value(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", n, comparators[f.Op], v), nil
	}
	return "", fmt.Errorf("filter: unknown operator %q", f.Op)
}

// equal renders field = value, treating nil as missing-or-NULL.
func (e *expression) equal(field string, value any) (string, error) {
	n := e.name(field)
	if value == nil {
		t, err := e.value(nullType)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("attribute_not_exists(%s) OR attribute_type(%s, %s)", n, n, t), nil
	}
	v, err := e.value(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", n, v), nil
}

func (e *expression) in(f filter.Filter) (string, error) {
	if len(f.Values) == 0 {
		return e.none(), nil
	}

	hasNil := false
	for _, v := range f.Values {
		if v == nil {
			hasNil = true
			break
		}
	}

	// IN cannot express the missing-or-NULL case, so fall back to a
	// disjunction of equalities.
	if hasNil {
		parts := make([]string, len(f.Values))
		for i, v := range f.Values {
			expr, err := e.equal(f.Field, v)
			if err != nil {
				return "", err
			}
			parts[i] = "(" + expr + ")"
		}
		return strings.Join(parts, " OR "), nil
	}

	n := e.name(f.Field)
	placeholders := make([]string, len(f.Values))
	for i, v := range f.Values {
		p, err := e.value(v)
		if err != nil {
			return "", err
		}
		placeholders[i] = p
	}
	return fmt.Sprintf("%s IN (%s)", n, strings.Join(placeholders, ", ")), nil
}

// splitKey extracts a top-level id equality from f so the read can run as a
// Query on the hash key. rest is f without that conjunct.
func splitKey(f filter.Filter) (id string, rest filter.Filter, ok bool) {
	conjuncts := f.Conjuncts()
	for i, c := range conjuncts {
		if c.Op != filter.OpEq || c.Field != store.FieldID {
			continue
		}
		s, isString := c.Value.(string)
		if !isString || s == "" {
			continue
		}
		others := make([]filter.Filter, 0, len(conjuncts)-1)
		others = append(others, conjuncts[:i]...)
		others = append(others, conjuncts[i+1:]...)
		return s, filter.And(others...), true
	}
	return "", filter.All(), false
}
