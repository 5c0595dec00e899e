package ecs

import (
	"fmt"

	"go.uber.org/zap"
)

// System is a unit of logic driven by the engine's dispatch loop. Tick is
// called once per frame at the main simulation rate.
//
// Logic authors embed *Base and declare their interest set in the
// constructor:
//
//	type MovementSystem struct {
//		*ecs.Base
//	}
//
//	func NewMovementSystem(handle ecs.NativeHandle, engine ecs.Engine, reg *ecs.TypeRegistry) *MovementSystem {
//		s := &MovementSystem{Base: ecs.NewBase(handle, engine, reg)}
//		ecs.DeclareComponentType[*Transform](s.Base)
//		ecs.DeclareComponentType[*Velocity](s.Base)
//		return s
//	}
type System interface {
	Tick(dt float64) error
}

// PrePhysicsTicker is implemented by systems that run right before each
// physics step. dt is the physics timestep.
type PrePhysicsTicker interface {
	PrePhysicsTick(dt float64) error
}

// PostPhysicsTicker is implemented by systems that run right after each
// physics step. dt is the physics timestep.
type PostPhysicsTicker interface {
	PostPhysicsTick(dt float64) error
}

// NativeHandle identifies the engine-side counterpart of a System. The
// engine owns the counterpart's lifetime.
type NativeHandle uint64

// Base is the typed façade a System embeds. It owns the System's signature
// and gives access to the iteration and query helpers.
type Base struct {
	handle    NativeHandle
	engine    Engine
	registry  *TypeRegistry
	signature *Signature
	log       *zap.Logger
}

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithLogger sets the logger available to the System through Logger.
func WithLogger(log *zap.Logger) BaseOption {
	return func(b *Base) {
		b.log = log
	}
}

// NewBase creates the façade for the System identified by handle.
func NewBase(handle NativeHandle, engine Engine, registry *TypeRegistry, opts ...BaseOption) *Base {
	b := &Base{
		handle:    handle,
		engine:    engine,
		registry:  registry,
		signature: registry.NewSignature(),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle returns the native handle passed at construction.
func (b *Base) Handle() NativeHandle {
	return b.handle
}

// Engine returns the engine this System talks to.
func (b *Base) Engine() Engine {
	return b.engine
}

// Registry returns the shared component type registry.
func (b *Base) Registry() *TypeRegistry {
	return b.registry
}

// Signature returns the System's interest set.
func (b *Base) Signature() *Signature {
	return b.signature
}

// Logger returns the System's logger.
func (b *Base) Logger() *zap.Logger {
	return b.log
}

// DeclareComponentType adds T to the System's interest set. It must be
// called before the first tick; afterwards the signature is frozen and this
// panics.
func DeclareComponentType[T Component](b *Base) {
	b.signature.AddComponentType(TypeIDOf[T](b.registry))
}

// DeclareComponentKey is DeclareComponentType for a key only known at
// runtime.
func (b *Base) DeclareComponentKey(key TypeKey) {
	b.signature.AddComponentType(b.registry.TypeID(key))
}

// FindEntityByName looks an entity up by name. The engine performs a linear
// scan; avoid calling this every frame over large worlds.
func (b *Base) FindEntityByName(name string) (Entity, bool, error) {
	e, ok, err := b.engine.FindEntityByName(name)
	if err != nil {
		return Entity{}, false, fmt.Errorf("find entity %q: %w", name, err)
	}
	return e, ok, nil
}

// GetComponent returns the component of type T attached to e. A missing
// component is reported with ok == false, not an error.
func GetComponent[T Component](b *Base, e Entity) (T, bool, error) {
	var zero T
	id := TypeIDOf[T](b.registry)
	c, ok, err := b.engine.Component(e, id)
	if err != nil {
		return zero, false, fmt.Errorf("get component %s of %s: %w", KeyOf[T](), e, err)
	}
	if !ok {
		return zero, false, nil
	}
	typed, ok := c.(T)
	if !ok {
		return zero, false, fmt.Errorf("get component %s of %s: %w: got %T", KeyOf[T](), e, ErrComponentTypeMismatch, c)
	}
	return typed, true, nil
}

func (b *Base) inspector() (EntityInspector, error) {
	in, ok := b.engine.(EntityInspector)
	if !ok {
		return nil, ErrUnsupported
	}
	return in, nil
}

// Exists reports whether e still refers to a live entity.
func (b *Base) Exists(e Entity) bool {
	if !e.Valid() {
		return false
	}
	in, err := b.inspector()
	if err != nil {
		return false
	}
	return in.Exists(e)
}

// NameOf returns the name of e.
func (b *Base) NameOf(e Entity) (string, error) {
	in, err := b.inspector()
	if err != nil {
		return "", fmt.Errorf("name of %s: %w", e, err)
	}
	return in.Name(e)
}

// Remove marks e for removal at the next frame boundary.
func (b *Base) Remove(e Entity) error {
	in, err := b.inspector()
	if err != nil {
		return fmt.Errorf("remove %s: %w", e, err)
	}
	return in.Remove(e)
}

// ParentOf returns the parent of e. An entity without a parent yields
// ok == false.
func (b *Base) ParentOf(e Entity) (Entity, bool, error) {
	in, err := b.inspector()
	if err != nil {
		return Entity{}, false, fmt.Errorf("parent of %s: %w", e, err)
	}
	return in.Parent(e)
}

// ChildrenOf returns the direct children of e.
func (b *Base) ChildrenOf(e Entity) ([]Entity, error) {
	in, err := b.inspector()
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", e, err)
	}
	return in.Children(e)
}
