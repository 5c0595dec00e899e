package ecs

import (
	"errors"
	"fmt"
)

// Configuration errors. These are raised as a panic carrying a *ConfigError
// while the process is starting up and are never recovered at runtime.
var (
	ErrRegistryNotReady      = errors.New("component type registry is not bound to an engine")
	ErrAlreadyBound          = errors.New("component type registry is already bound")
	ErrTooManyComponentTypes = errors.New("too many component types registered")
	ErrTypeIDOutOfRange      = errors.New("component type id out of range")
	ErrTypeIDCollision       = errors.New("component type id assigned to two keys")
)

// Programmer errors.
var (
	ErrTypeNotInSignature = errors.New("type not in signature")
	ErrSignatureFrozen    = errors.New("signature is frozen")
	ErrKeyOverflow        = errors.New("signature does not fit an integer key")
	ErrRowOutOfRange      = errors.New("row index out of range")
)

// Engine-call errors.
var (
	ErrMalformedResult       = errors.New("engine returned a malformed query result")
	ErrComponentTypeMismatch = errors.New("component does not match requested type")
	ErrUnsupported           = errors.New("operation not supported by engine")
)

// ConfigError is the panic value used for fatal startup misconfiguration.
type ConfigError struct {
	Key TypeKey
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key.IsZero() {
		return "ecs: " + e.Err.Error()
	}
	return fmt.Sprintf("ecs: %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configPanic(key TypeKey, err error) {
	panic(&ConfigError{Key: key, Err: err})
}
