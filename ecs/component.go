package ecs

import (
	"strings"
)

// ComponentTypeID is the process-wide identity of a component type. It is
// assigned by the engine on first lookup and never reassigned.
type ComponentTypeID uint32

// TypeKey is the fully-qualified name of a component type.
type TypeKey struct {
	Namespace string
	Name      string
}

// ParseTypeKey splits "Namespace.Name" at the last dot. A key without a dot
// has an empty namespace.
func ParseTypeKey(s string) TypeKey {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return TypeKey{Name: s}
	}
	return TypeKey{Namespace: s[:i], Name: s[i+1:]}
}

func (k TypeKey) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "." + k.Name
}

// IsZero reports whether k is the empty key.
func (k TypeKey) IsZero() bool {
	return k.Namespace == "" && k.Name == ""
}

// Component is implemented by every component type. ComponentTypeKey must
// return a constant and must not dereference its receiver, so that it can be
// called on the zero value of the type:
//
//	type Transform struct{ X, Y, Z float32 }
//
//	func (*Transform) ComponentTypeKey() ecs.TypeKey {
//		return ecs.TypeKey{Namespace: "Carrot", Name: "Transform"}
//	}
type Component interface {
	ComponentTypeKey() TypeKey
}

// KeyOf returns the type key of T without an instance of T.
func KeyOf[T Component]() TypeKey {
	var zero T
	return zero.ComponentTypeKey()
}
