package ecs

import "github.com/google/uuid"

// Entity is an opaque handle to an engine-owned entity. This package never
// creates or destroys the underlying entity. The zero Entity means "no
// entity" and is how unset references are represented.
type Entity struct {
	id uuid.UUID
}

// NewEntity wraps an engine entity id. Engines call this; logic code
// receives entities from queries.
func NewEntity(id uuid.UUID) Entity {
	return Entity{id: id}
}

// ID returns the engine id of the entity.
func (e Entity) ID() uuid.UUID {
	return e.id
}

// Valid reports whether e refers to an entity. It does not check that the
// entity still exists in the engine.
func (e Entity) Valid() bool {
	return e.id != uuid.Nil
}

func (e Entity) String() string {
	if !e.Valid() {
		return "<nil entity>"
	}
	return e.id.String()
}
