package store

import "errors"

var (
	// ErrCollectionNotRegistered is returned when an entity type has no collection binding.
	ErrCollectionNotRegistered = errors.New("trove: no collection registered for entity type")

	// ErrInvalidCollection is returned when registering an empty collection name.
	ErrInvalidCollection = errors.New("trove: invalid collection name")

	// ErrCollectionConflict is returned when an entity type is bound to two collections.
	ErrCollectionConflict = errors.New("trove: entity type already bound to another collection")

	// ErrNotFound is returned by Replace when no record carries the entity's ID.
	ErrNotFound = errors.New("trove: entity not found")

	// ErrMissingID is returned by Replace for an entity that was never added.
	ErrMissingID = errors.New("trove: entity has no id")

	// ErrMultipleResults is returned when a single-result read matches more than one record.
	ErrMultipleResults = errors.New("trove: more than one entity matches")

	// ErrDuplicateID is returned by backends when an insert collides with an existing ID.
	ErrDuplicateID = errors.New("trove: entity with id already exists")

	// ErrNilEntity is returned when a write is given the nil sentinel.
	ErrNilEntity = errors.New("trove: nil entity")
)
