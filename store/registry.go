package store

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Binding ties an entity type to its collection.
type Binding struct {
	// Type is the entity type (e.g., *Customer).
	Type reflect.Type

	// Collection is the backing collection name (e.g., "customers").
	Collection string
}

// Registry maps entity types to collection names. Populate it at startup,
// before constructing repositories; lookups are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	bindings map[reflect.Type]string
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[reflect.Type]string),
	}
}

// Register binds entity type T to the named collection.
// Registering the same binding twice is a no-op.
func Register[T Document](r *Registry, collection string) error {
	if collection == "" {
		return ErrInvalidCollection
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.bindings[typ]; ok && existing != collection {
		return fmt.Errorf("%w: %s is bound to %q, not %q", ErrCollectionConflict, typ, existing, collection)
	}
	r.bindings[typ] = collection
	return nil
}

// MustRegister is like Register but panics on error.
// Intended for init() and program setup.
func MustRegister[T Document](r *Registry, collection string) {
	if err := Register[T](r, collection); err != nil {
		panic(err)
	}
}

// CollectionName returns the collection bound to entity type T.
func CollectionName[T Document](r *Registry) (string, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if r != nil {
		r.mu.RLock()
		name, ok := r.bindings[typ]
		r.mu.RUnlock()
		if ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrCollectionNotRegistered, typ)
}

// Registered returns true if any entity type is bound to the collection.
func (r *Registry) Registered(collection string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.bindings {
		if name == collection {
			return true
		}
	}
	return false
}

// Bindings returns all registered bindings ordered by collection, then type name.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	result := make([]Binding, 0, len(r.bindings))
	for typ, name := range r.bindings {
		result = append(result, Binding{Type: typ, Collection: name})
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Collection != result[j].Collection {
			return result[i].Collection < result[j].Collection
		}
		return result[i].Type.String() < result[j].Type.String()
	})
	return result
}
