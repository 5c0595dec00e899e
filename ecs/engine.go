package ecs

// TypeResolver is the part of the engine that assigns component type ids.
type TypeResolver interface {
	// ResolveComponentTypeID returns the id of the component type with the
	// given fully-qualified name.
	ResolveComponentTypeID(namespace, name string) (int, error)
	// MaxComponentTypeCount returns the process-wide maximum number of
	// component types. It may be expensive; the registry calls it once.
	MaxComponentTypeCount() int
}

// EntityRow is one entity returned by a bulk fetch, with its components
// ordered by ascending component type id of the requested signature.
type EntityRow struct {
	Entity     Entity
	Components []Component
}

// Engine is the boundary this package calls into. Implementations own all
// entity and component storage.
type Engine interface {
	TypeResolver

	// FetchEntitiesForSignature returns every entity whose component set is
	// a superset of key, one bit per component type id. Each row's
	// components are ordered by ascending type id.
	FetchEntitiesForSignature(key uint64) ([]EntityRow, error)

	// FindEntityByName returns the first entity with the given name.
	FindEntityByName(name string) (Entity, bool, error)

	// Component returns the component of type id attached to e.
	Component(e Entity, id ComponentTypeID) (Component, bool, error)
}

// EntityInspector is implemented by engines that expose entity metadata and
// hierarchy to logic code.
type EntityInspector interface {
	Exists(e Entity) bool
	Name(e Entity) (string, error)
	// Remove marks e for removal. The entity is removed at the next frame
	// boundary, not immediately.
	Remove(e Entity) error
	Parent(e Entity) (Entity, bool, error)
	Children(e Entity) ([]Entity, error)
}
