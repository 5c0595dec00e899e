package ecs

import (
	"fmt"
	"sync"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// TypeRegistry maps component type keys to engine-assigned ids. One registry
// is created by process startup code and passed to every System; it is
// bound to the engine once, before any System is constructed.
type TypeRegistry struct {
	mu       sync.RWMutex
	resolver TypeResolver
	ids      map[TypeKey]ComponentTypeID
	keys     *intmap.Map[ComponentTypeID, TypeKey]

	maxOnce sync.Once
	max     int

	log *zap.Logger
}

// RegistryOption configures a TypeRegistry.
type RegistryOption func(*TypeRegistry)

// WithRegistryLogger sets the logger used for id assignment events.
func WithRegistryLogger(log *zap.Logger) RegistryOption {
	return func(r *TypeRegistry) {
		r.log = log
	}
}

// NewTypeRegistry creates an unbound registry.
func NewTypeRegistry(opts ...RegistryOption) *TypeRegistry {
	r := &TypeRegistry{
		ids:  make(map[TypeKey]ComponentTypeID),
		keys: intmap.New[ComponentTypeID, TypeKey](64),
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind attaches the engine that assigns ids. It panics if the registry is
// already bound or resolver is nil.
func (r *TypeRegistry) Bind(resolver TypeResolver) {
	if resolver == nil {
		configPanic(TypeKey{}, ErrRegistryNotReady)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolver != nil {
		configPanic(TypeKey{}, ErrAlreadyBound)
	}
	r.resolver = resolver
	r.log.Info("component type registry bound", zap.Int("max_component_types", r.maxLocked(resolver)))
}

// Ready reports whether the registry has been bound to an engine.
func (r *TypeRegistry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolver != nil
}

// MaxComponentTypeCount returns the engine's maximum component type count.
// The engine is asked once; later calls are served from cache.
func (r *TypeRegistry) MaxComponentTypeCount() int {
	r.mu.RLock()
	resolver := r.resolver
	r.mu.RUnlock()
	if resolver == nil {
		configPanic(TypeKey{}, ErrRegistryNotReady)
	}
	return r.maxLocked(resolver)
}

func (r *TypeRegistry) maxLocked(resolver TypeResolver) int {
	r.maxOnce.Do(func() {
		r.max = resolver.MaxComponentTypeCount()
	})
	return r.max
}

// TypeID returns the id for key, asking the engine on first use.
// Misconfiguration panics with a *ConfigError.
func (r *TypeRegistry) TypeID(key TypeKey) ComponentTypeID {
	r.mu.RLock()
	id, ok := r.ids[key]
	resolver := r.resolver
	r.mu.RUnlock()
	if ok {
		return id
	}
	if resolver == nil {
		configPanic(key, ErrRegistryNotReady)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[key]; ok {
		return id
	}

	max := r.maxLocked(resolver)
	if len(r.ids) >= max {
		configPanic(key, fmt.Errorf("%w: limit is %d", ErrTooManyComponentTypes, max))
	}

	raw, err := resolver.ResolveComponentTypeID(key.Namespace, key.Name)
	if err != nil {
		configPanic(key, fmt.Errorf("resolve component type id: %w", err))
	}
	if raw < 0 || raw >= max {
		configPanic(key, fmt.Errorf("%w: %d not in [0, %d)", ErrTypeIDOutOfRange, raw, max))
	}

	id = ComponentTypeID(raw)
	if other, taken := r.keys.Get(id); taken {
		configPanic(key, fmt.Errorf("%w: id %d already belongs to %s", ErrTypeIDCollision, id, other))
	}

	r.ids[key] = id
	r.keys.Put(id, key)
	r.log.Debug("component type assigned",
		zap.Stringer("key", key),
		zap.Uint32("id", uint32(id)),
	)
	return id
}

// Lookup returns the id already assigned to key. Unlike TypeID it never
// asks the engine.
func (r *TypeRegistry) Lookup(key TypeKey) (ComponentTypeID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[key]
	return id, ok
}

// KeyOfID returns the key that was assigned id, if any.
func (r *TypeRegistry) KeyOfID(id ComponentTypeID) (TypeKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keys.Get(id)
}

// Keys returns a snapshot of every assigned id and its key.
func (r *TypeRegistry) Keys() map[ComponentTypeID]TypeKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ComponentTypeID]TypeKey, len(r.ids))
	for key, id := range r.ids {
		out[id] = key
	}
	return out
}

// Len returns the number of assigned component types.
func (r *TypeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// NewSignature returns an empty signature sized for this registry.
func (r *TypeRegistry) NewSignature() *Signature {
	return NewSignature(r.MaxComponentTypeCount())
}

// SignatureOf returns a signature containing the given component types.
func (r *TypeRegistry) SignatureOf(keys ...TypeKey) *Signature {
	sig := r.NewSignature()
	for _, key := range keys {
		sig.AddComponentType(r.TypeID(key))
	}
	return sig
}

// TypeIDOf returns the id of component type T.
func TypeIDOf[T Component](r *TypeRegistry) ComponentTypeID {
	return r.TypeID(KeyOf[T]())
}
