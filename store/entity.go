package store

import "time"

// Serialized names of the fields every entity carries.
const (
	FieldID      = "id"
	FieldAdded   = "added"
	FieldDeleted = "deleted"
)

// Entity is the base shape shared by all stored records. Embed it in domain
// types and use the domain type through a pointer:
//
//	type Customer struct {
//	    store.Entity `bson:",inline"`
//	    Name string `json:"name" dynamodbav:"name" bson:"name"`
//	}
type Entity struct {
	// ID identifies the record within its collection. Empty until Add assigns it.
	ID string `json:"id" dynamodbav:"id" bson:"_id"`

	// Added is the creation timestamp.
	Added time.Time `json:"added" dynamodbav:"added" bson:"added"`

	// Deleted is the soft-delete flag.
	Deleted bool `json:"deleted" dynamodbav:"deleted" bson:"deleted"`
}

// GetID returns the entity's ID.
func (e *Entity) GetID() string { return e.ID }

// SetID sets the entity's ID.
func (e *Entity) SetID(id string) { e.ID = id }

// GetAdded returns the creation timestamp.
func (e *Entity) GetAdded() time.Time { return e.Added }

// SetAdded sets the creation timestamp.
func (e *Entity) SetAdded(t time.Time) { e.Added = t }

// IsDeleted reports whether the entity is soft-deleted.
func (e *Entity) IsDeleted() bool { return e.Deleted }

// SetDeleted sets the soft-delete flag.
func (e *Entity) SetDeleted(deleted bool) { e.Deleted = deleted }

// Document is the constraint satisfied by entity pointer types, typically a
// pointer to a struct embedding Entity. The zero value (nil) is the "not found"
// sentinel returned by single-result reads.
type Document interface {
	comparable

	GetID() string
	SetID(id string)
	GetAdded() time.Time
	SetAdded(t time.Time)
	IsDeleted() bool
	SetDeleted(deleted bool)
}

// IsTransient reports whether entity has never been persisted.
func IsTransient[T Document](entity T) bool {
	var zero T
	return entity == zero || entity.GetID() == ""
}
