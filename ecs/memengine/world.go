// Package memengine is an in-memory engine implementing the ecs boundary.
// It backs the tests, the stress command and scripted systems; its storage
// layout is not part of the ecs contract.
//
// An all-zero signature key matches every entity.
package memengine

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
	"github.com/plus3/ooftn/ecs"
	"go.uber.org/zap"
)

// DefaultMaxComponentTypes is the default and largest supported number of
// component types, bounded by the 64-bit bulk-fetch key.
const DefaultMaxComponentTypes = 64

var (
	ErrNoSuchEntity         = errors.New("no such entity")
	ErrComponentTypeLimit   = errors.New("component type limit reached")
	ErrDuplicateComponent   = errors.New("duplicate component type")
	ErrUnknownComponentType = errors.New("unknown component type")
)

var (
	_ ecs.Engine          = (*World)(nil)
	_ ecs.EntityInspector = (*World)(nil)
)

type record struct {
	entity   ecs.Entity
	name     string
	arch     *archetype
	slot     int
	parent   ecs.Entity
	children []ecs.Entity
}

// World owns entities and their components.
type World struct {
	maxTypes int
	typeIDs  map[ecs.TypeKey]ecs.ComponentTypeID
	keys     []ecs.TypeKey

	archetypes *intmap.Map[uint64, *archetype]
	order      []*archetype

	records map[uuid.UUID]*record
	spawned []ecs.Entity

	commands *Commands
	failNext error
	newID    func() uuid.UUID
	log      *zap.Logger
}

// Option configures a World.
type Option func(*World)

// WithMaxComponentTypes sets the component type limit, between 1 and 64.
func WithMaxComponentTypes(n int) Option {
	return func(w *World) {
		w.maxTypes = n
	}
}

// WithLogger sets the world's logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *World) {
		w.log = log
	}
}

// WithIDGenerator replaces uuid.New as the source of entity ids.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(w *World) {
		w.newID = fn
	}
}

// New creates an empty world.
func New(opts ...Option) *World {
	w := &World{
		maxTypes:   DefaultMaxComponentTypes,
		typeIDs:    make(map[ecs.TypeKey]ecs.ComponentTypeID),
		archetypes: intmap.New[uint64, *archetype](64),
		records:    make(map[uuid.UUID]*record),
		commands:   newCommands(),
		newID:      uuid.New,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.maxTypes < 1 || w.maxTypes > DefaultMaxComponentTypes {
		panic(fmt.Sprintf("memengine: max component types must be in [1, %d], got %d", DefaultMaxComponentTypes, w.maxTypes))
	}
	return w
}

// MaxComponentTypeCount implements ecs.TypeResolver.
func (w *World) MaxComponentTypeCount() int {
	return w.maxTypes
}

// ResolveComponentTypeID implements ecs.TypeResolver. Ids are assigned
// sequentially in first-lookup order.
func (w *World) ResolveComponentTypeID(namespace, name string) (int, error) {
	id, err := w.typeID(ecs.TypeKey{Namespace: namespace, Name: name})
	return int(id), err
}

func (w *World) typeID(key ecs.TypeKey) (ecs.ComponentTypeID, error) {
	if id, ok := w.typeIDs[key]; ok {
		return id, nil
	}
	if len(w.keys) >= w.maxTypes {
		return 0, fmt.Errorf("%s: %w (%d)", key, ErrComponentTypeLimit, w.maxTypes)
	}
	id := ecs.ComponentTypeID(len(w.keys))
	w.typeIDs[key] = id
	w.keys = append(w.keys, key)
	return id, nil
}

// TypeKeyOf returns the key assigned id.
func (w *World) TypeKeyOf(id ecs.ComponentTypeID) (ecs.TypeKey, bool) {
	if int(id) >= len(w.keys) {
		return ecs.TypeKey{}, false
	}
	return w.keys[id], true
}

func (w *World) archetypeFor(mask uint64) *archetype {
	if a, ok := w.archetypes.Get(mask); ok {
		return a
	}
	a := newArchetype(mask)
	w.archetypes.Put(mask, a)
	w.order = append(w.order, a)
	return a
}

// sortComponents returns the mask of components and the components ordered
// by ascending type id.
func (w *World) sortComponents(components []ecs.Component) (uint64, []ecs.Component, error) {
	var mask uint64
	byID := make(map[ecs.ComponentTypeID]ecs.Component, len(components))
	for _, c := range components {
		key := c.ComponentTypeKey()
		id, err := w.typeID(key)
		if err != nil {
			return 0, nil, err
		}
		if mask&(1<<id) != 0 {
			return 0, nil, fmt.Errorf("%s: %w", key, ErrDuplicateComponent)
		}
		mask |= 1 << id
		byID[id] = c
	}

	ordered := make([]ecs.Component, 0, len(components))
	for m := mask; m != 0; m &= m - 1 {
		ordered = append(ordered, byID[ecs.ComponentTypeID(bits.TrailingZeros64(m))])
	}
	return mask, ordered, nil
}

// Spawn creates a named entity with the given components. Components are
// usually pointers so systems can mutate them in place.
func (w *World) Spawn(name string, components ...ecs.Component) (ecs.Entity, error) {
	mask, ordered, err := w.sortComponents(components)
	if err != nil {
		return ecs.Entity{}, fmt.Errorf("spawn %q: %w", name, err)
	}

	e := ecs.NewEntity(w.newID())
	arch := w.archetypeFor(mask)
	slot := arch.spawn(e, ordered)
	w.records[e.ID()] = &record{
		entity: e,
		name:   name,
		arch:   arch,
		slot:   slot,
	}
	w.spawned = append(w.spawned, e)
	return e, nil
}

func (w *World) lookup(e ecs.Entity) (*record, error) {
	rec, ok := w.records[e.ID()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", e, ErrNoSuchEntity)
	}
	return rec, nil
}

// move migrates rec to the archetype for mask, storing the given ordered
// components.
func (w *World) move(rec *record, mask uint64, ordered []ecs.Component) {
	rec.arch.delete(rec.slot)
	arch := w.archetypeFor(mask)
	rec.slot = arch.spawn(rec.entity, ordered)
	rec.arch = arch
}

// AddComponent attaches c to e, replacing a component of the same type.
func (w *World) AddComponent(e ecs.Entity, c ecs.Component) error {
	rec, err := w.lookup(e)
	if err != nil {
		return fmt.Errorf("add component: %w", err)
	}
	id, err := w.typeID(c.ComponentTypeKey())
	if err != nil {
		return fmt.Errorf("add component to %s: %w", e, err)
	}

	if pos := rec.arch.columnOf(id); pos >= 0 {
		rec.arch.columns[pos].set(rec.slot, c)
		return nil
	}

	current := rec.arch.components(rec.slot)
	mask, ordered, err := w.sortComponents(append(current, c))
	if err != nil {
		return fmt.Errorf("add component to %s: %w", e, err)
	}
	w.move(rec, mask, ordered)
	return nil
}

// RemoveComponent detaches the component with the given key. The entity
// itself survives with its remaining components, possibly none.
func (w *World) RemoveComponent(e ecs.Entity, key ecs.TypeKey) error {
	rec, err := w.lookup(e)
	if err != nil {
		return fmt.Errorf("remove component: %w", err)
	}
	id, ok := w.typeIDs[key]
	if !ok {
		return fmt.Errorf("remove component %s from %s: %w", key, e, ErrUnknownComponentType)
	}
	pos := rec.arch.columnOf(id)
	if pos < 0 {
		return nil
	}

	current := rec.arch.components(rec.slot)
	remaining := append(current[:pos:pos], current[pos+1:]...)
	w.move(rec, rec.arch.mask&^(1<<id), remaining)
	return nil
}

// FetchEntitiesForSignature implements ecs.Engine. Archetypes are visited in
// creation order and entities in slot order. A zero key matches every
// entity.
func (w *World) FetchEntitiesForSignature(key uint64) ([]ecs.EntityRow, error) {
	if err := w.failNext; err != nil {
		w.failNext = nil
		return nil, err
	}

	width := bits.OnesCount64(key)
	var rows []ecs.EntityRow
	for _, arch := range w.order {
		if arch.mask&key != key || arch.len() == 0 {
			continue
		}

		positions := make([]int, 0, width)
		for m := key; m != 0; m &= m - 1 {
			positions = append(positions, arch.columnOf(ecs.ComponentTypeID(bits.TrailingZeros64(m))))
		}

		for slot, e := range arch.iter() {
			components := make([]ecs.Component, width)
			for i, pos := range positions {
				components[i] = arch.columns[pos].get(slot)
			}
			rows = append(rows, ecs.EntityRow{Entity: e, Components: components})
		}
	}
	return rows, nil
}

// FailNextFetch makes the next bulk fetch return err.
func (w *World) FailNextFetch(err error) {
	w.failNext = err
}

// FindEntityByName implements ecs.Engine with a linear scan in spawn order.
func (w *World) FindEntityByName(name string) (ecs.Entity, bool, error) {
	for _, e := range w.spawned {
		if rec, ok := w.records[e.ID()]; ok && rec.name == name {
			return e, true, nil
		}
	}
	return ecs.Entity{}, false, nil
}

// Component implements ecs.Engine.
func (w *World) Component(e ecs.Entity, id ecs.ComponentTypeID) (ecs.Component, bool, error) {
	rec, err := w.lookup(e)
	if err != nil {
		return nil, false, err
	}
	c, ok := rec.arch.component(rec.slot, id)
	return c, ok, nil
}

// Exists implements ecs.EntityInspector.
func (w *World) Exists(e ecs.Entity) bool {
	_, ok := w.records[e.ID()]
	return ok
}

// Name implements ecs.EntityInspector.
func (w *World) Name(e ecs.Entity) (string, error) {
	rec, err := w.lookup(e)
	if err != nil {
		return "", err
	}
	return rec.name, nil
}

// Remove implements ecs.EntityInspector. The entity stays visible until the
// next Flush.
func (w *World) Remove(e ecs.Entity) error {
	if _, err := w.lookup(e); err != nil {
		return err
	}
	w.commands.Delete(e)
	return nil
}

// Parent implements ecs.EntityInspector.
func (w *World) Parent(e ecs.Entity) (ecs.Entity, bool, error) {
	rec, err := w.lookup(e)
	if err != nil {
		return ecs.Entity{}, false, err
	}
	return rec.parent, rec.parent.Valid(), nil
}

// Children implements ecs.EntityInspector.
func (w *World) Children(e ecs.Entity) ([]ecs.Entity, error) {
	rec, err := w.lookup(e)
	if err != nil {
		return nil, err
	}
	out := make([]ecs.Entity, len(rec.children))
	copy(out, rec.children)
	return out, nil
}

// SetParent makes parent the parent of child. A zero parent detaches child.
func (w *World) SetParent(child, parent ecs.Entity) error {
	rec, err := w.lookup(child)
	if err != nil {
		return fmt.Errorf("set parent: %w", err)
	}
	if parent.Valid() {
		for p := parent; p.Valid(); {
			if p == child {
				return fmt.Errorf("set parent of %s to %s: would create a cycle", child, parent)
			}
			prec, err := w.lookup(p)
			if err != nil {
				return fmt.Errorf("set parent: %w", err)
			}
			p = prec.parent
		}
	}

	w.detach(rec)
	if parent.Valid() {
		prec := w.records[parent.ID()]
		prec.children = append(prec.children, child)
		rec.parent = parent
	}
	return nil
}

func (w *World) detach(rec *record) {
	if !rec.parent.Valid() {
		return
	}
	if prec, ok := w.records[rec.parent.ID()]; ok {
		for i, c := range prec.children {
			if c == rec.entity {
				prec.children = append(prec.children[:i], prec.children[i+1:]...)
				break
			}
		}
	}
	rec.parent = ecs.Entity{}
}

// Commands returns the deferred command buffer applied by Flush.
func (w *World) Commands() *Commands {
	return w.commands
}

// Flush applies deferred commands. The dispatch loop calls it at the end of
// every frame.
func (w *World) Flush() {
	w.commands.flush(w)
}

func (w *World) destroy(e ecs.Entity) {
	rec, ok := w.records[e.ID()]
	if !ok {
		return
	}
	w.detach(rec)
	for _, c := range rec.children {
		if crec, ok := w.records[c.ID()]; ok {
			crec.parent = ecs.Entity{}
		}
	}
	rec.arch.delete(rec.slot)
	delete(w.records, e.ID())
	w.log.Debug("entity removed", zap.Stringer("entity", e), zap.String("name", rec.name))
}

// compactSpawned drops removed entities from the name search order.
func (w *World) compactSpawned() {
	live := w.spawned[:0]
	for _, e := range w.spawned {
		if _, ok := w.records[e.ID()]; ok {
			live = append(live, e)
		}
	}
	clear(w.spawned[len(live):])
	w.spawned = live
}

// Compact repacks every archetype's storage to remove holes left by removed
// entities. Entity handles stay valid.
func (w *World) Compact() {
	for _, arch := range w.order {
		for _, m := range arch.compact() {
			e, _ := arch.slots.Get(m.to)
			w.records[e.ID()].slot = m.to
		}
	}
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return len(w.records)
}
