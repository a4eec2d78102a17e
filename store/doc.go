// Package store provides a generic, soft-delete aware repository over document databases.
//
// Trove gives callers type-safe CRUD and query operations against collections of
// domain entities. Every read path starts from the same soft-delete rule, so
// deleted records stay invisible unless a caller explicitly asks for them.
//
// # Key Features
//
//   - Generic [Repository] per entity type
//   - Explicit type-to-collection [Registry], validated when repositories are built
//   - Lazily evaluated [Query] values composed from portable filters
//   - Identity-based Replace that never inserts
//   - Pluggable backends (DynamoDB, MongoDB, in-memory)
//
// # Entities
//
// Entity types embed [Entity] and are used through pointers:
//
//	type Customer struct {
//	    store.Entity `bson:",inline"`
//	    Name string `json:"name" dynamodbav:"name" bson:"name"`
//	}
//
//	reg := store.NewRegistry()
//	store.MustRegister[*Customer](reg, "customers")
//	customers, err := store.New[*Customer](backend, reg, store.DefaultConfig())
//
// # Soft Delete
//
// Queries built with includeDeleted=false carry the predicate deleted = false.
// Records are soft-deleted by replacing them with Deleted set:
//
//	c.SetDeleted(true)
//	err := customers.Replace(ctx, c)
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrCollectionNotRegistered] - entity type has no collection binding
//   - [ErrMultipleResults] - single-result read matched more than one record
//   - [ErrNotFound] - Replace found no record with the entity's ID
//   - [ErrMissingID] - Replace was given an entity that was never added
//
// Absence is not an error: Get, FirstOrDefault and SingleOrDefault return the
// zero value (nil) when nothing matches. Backend errors are returned as-is.
package store
