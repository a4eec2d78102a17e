package store

import "github.com/jacentio/trove/filter"

// Visibility returns the soft-delete predicate every query starts from.
// Use it when building queries outside a Repository.
func Visibility(includeDeleted bool) filter.Filter {
	if includeDeleted {
		return filter.All()
	}
	return filter.Eq(FieldDeleted, false)
}

// IsNullOrDeleted reports whether entity is the "not found" sentinel or is soft-deleted.
func IsNullOrDeleted[T Document](entity T) bool {
	var zero T
	return entity == zero || entity.IsDeleted()
}
