package ecs_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/plus3/ooftn/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Common test component types
type Transform struct {
	X, Y, Z float32
}

func (*Transform) ComponentTypeKey() ecs.TypeKey {
	return ecs.TypeKey{Namespace: "Carrot", Name: "Transform"}
}

type Health struct {
	Current int
	Max     int
}

func (*Health) ComponentTypeKey() ecs.TypeKey {
	return ecs.TypeKey{Namespace: "Carrot", Name: "Health"}
}

type Velocity struct {
	DX, DY float32
}

func (*Velocity) ComponentTypeKey() ecs.TypeKey {
	return ecs.TypeKey{Namespace: "Carrot", Name: "Velocity"}
}

type Score int

func (Score) ComponentTypeKey() ecs.TypeKey {
	return ecs.TypeKey{Namespace: "Carrot", Name: "Score"}
}

type fakeEntity struct {
	entity     ecs.Entity
	name       string
	components map[ecs.ComponentTypeID]ecs.Component
}

// fakeEngine assigns ids from a fixed table and filters entities itself.
type fakeEngine struct {
	max int
	ids map[ecs.TypeKey]int

	resolveCalls map[ecs.TypeKey]int
	maxCalls     int
	resolveErr   error

	entities []*fakeEntity
	fetched  []uint64
	fetchErr error
	mutate   func([]ecs.EntityRow)
	findErr  error
}

func newFakeEngine(ids map[ecs.TypeKey]int) *fakeEngine {
	return &fakeEngine{
		max:          64,
		ids:          ids,
		resolveCalls: make(map[ecs.TypeKey]int),
	}
}

func (f *fakeEngine) ResolveComponentTypeID(namespace, name string) (int, error) {
	key := ecs.TypeKey{Namespace: namespace, Name: name}
	f.resolveCalls[key]++
	if f.resolveErr != nil {
		return 0, f.resolveErr
	}
	id, ok := f.ids[key]
	if !ok {
		return 0, errors.New("unknown component type " + key.String())
	}
	return id, nil
}

func (f *fakeEngine) MaxComponentTypeCount() int {
	f.maxCalls++
	return f.max
}

func (f *fakeEngine) spawn(name string, components ...ecs.Component) ecs.Entity {
	e := &fakeEntity{
		entity:     ecs.NewEntity(uuid.New()),
		name:       name,
		components: make(map[ecs.ComponentTypeID]ecs.Component),
	}
	for _, c := range components {
		e.components[ecs.ComponentTypeID(f.ids[c.ComponentTypeKey()])] = c
	}
	f.entities = append(f.entities, e)
	return e.entity
}

func (f *fakeEngine) FetchEntitiesForSignature(key uint64) ([]ecs.EntityRow, error) {
	f.fetched = append(f.fetched, key)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	var rows []ecs.EntityRow
	for _, e := range f.entities {
		var comps []ecs.Component
		matched := true
		for id := 0; id < 64; id++ {
			if key&(1<<id) == 0 {
				continue
			}
			c, ok := e.components[ecs.ComponentTypeID(id)]
			if !ok {
				matched = false
				break
			}
			comps = append(comps, c)
		}
		if matched {
			rows = append(rows, ecs.EntityRow{Entity: e.entity, Components: comps})
		}
	}
	if f.mutate != nil {
		f.mutate(rows)
	}
	return rows, nil
}

func (f *fakeEngine) FindEntityByName(name string) (ecs.Entity, bool, error) {
	if f.findErr != nil {
		return ecs.Entity{}, false, f.findErr
	}
	for _, e := range f.entities {
		if e.name == name {
			return e.entity, true, nil
		}
	}
	return ecs.Entity{}, false, nil
}

func (f *fakeEngine) Component(e ecs.Entity, id ecs.ComponentTypeID) (ecs.Component, bool, error) {
	for _, fe := range f.entities {
		if fe.entity == e {
			c, ok := fe.components[id]
			return c, ok, nil
		}
	}
	return nil, false, errors.New("no such entity")
}

// carrotIDs places Transform at 2 and Health at 5.
func carrotIDs() map[ecs.TypeKey]int {
	return map[ecs.TypeKey]int{
		ecs.KeyOf[*Transform](): 2,
		ecs.KeyOf[*Health]():    5,
		ecs.KeyOf[*Velocity]():  7,
		ecs.KeyOf[Score]():      9,
	}
}

func newBoundRegistry(t *testing.T, resolver ecs.TypeResolver) *ecs.TypeRegistry {
	t.Helper()
	reg := ecs.NewTypeRegistry()
	reg.Bind(resolver)
	require.True(t, reg.Ready())
	return reg
}

func assertConfigPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", target)
		}
		cfgErr, ok := r.(*ecs.ConfigError)
		if !ok {
			t.Fatalf("panic value is %T (%v), want *ecs.ConfigError", r, r)
		}
		assert.ErrorIs(t, cfgErr, target)
	}()
	fn()
}

func assertErrorPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value is %T (%v), want error", r, r)
		}
		assert.ErrorIs(t, err, target)
	}()
	fn()
}
