package mongostore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/jacentio/trove/filter"
	"github.com/jacentio/trove/store"
)

// idField is the MongoDB primary key the entity id is stored under.
const idField = "_id"

var operators = map[filter.Op]string{
	filter.OpEq:  "$eq",
	filter.OpNe:  "$ne",
	filter.OpLt:  "$lt",
	filter.OpLte: "$lte",
	filter.OpGt:  "$gt",
	filter.OpGte: "$gte",
}

// field maps an entity field name to its document key.
func field(name string) string {
	if name == store.FieldID {
		return idField
	}
	return name
}

// none matches no document; every document carries _id.
func none() bson.D {
	return bson.D{{Key: idField, Value: bson.D{{Key: "$exists", Value: false}}}}
}

// Translate converts f into a MongoDB query document.
func Translate(f filter.Filter) (bson.D, error) {
	switch f.Op {
	case filter.OpAll:
		return bson.D{}, nil

	case filter.OpEq, filter.OpNe, filter.OpLt, filter.OpLte, filter.OpGt, filter.OpGte:
		return bson.D{{Key: field(f.Field), Value: bson.D{{Key: operators[f.Op], Value: f.Value}}}}, nil

	case filter.OpIn:
		values := make(bson.A, len(f.Values))
		copy(values, f.Values)
		return bson.D{{Key: field(f.Field), Value: bson.D{{Key: "$in", Value: values}}}}, nil

	case filter.OpExists, filter.OpNotExists:
		return bson.D{{Key: field(f.Field), Value: bson.D{{Key: "$exists", Value: f.Op == filter.OpExists}}}}, nil

	case filter.OpAnd:
		var clauses bson.A
		for _, c := range f.Children {
			if c.IsAll() {
				continue
			}
			d, err := Translate(c)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, d)
		}
		if len(clauses) == 0 {
			return bson.D{}, nil
		}
		return bson.D{{Key: "$and", Value: clauses}}, nil

	case filter.OpOr:
		if len(f.Children) == 0 {
			return none(), nil
		}
		clauses := make(bson.A, 0, len(f.Children))
		for _, c := range f.Children {
			if c.IsAll() {
				return bson.D{}, nil
			}
			d, err := Translate(c)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, d)
		}
		return bson.D{{Key: "$or", Value: clauses}}, nil

	case filter.OpNot:
		if len(f.Children) != 1 {
			return nil, fmt.Errorf("filter: not expects one operand, got %d", len(f.Children))
		}
		if f.Children[0].IsAll() {
			return none(), nil
		}
		d, err := Translate(f.Children[0])
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{d}}}, nil
	}
	return nil, fmt.Errorf("filter: unknown operator %q", f.Op)
}

// projection converts field names into a projection document.
func projection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	d := make(bson.D, 0, len(fields))
	for _, f := range fields {
		d = append(d, bson.E{Key: field(f), Value: 1})
	}
	return d
}
