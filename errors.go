package apicore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidConfiguration is returned when a route definition is rejected
	ErrInvalidConfiguration = errors.New("invalid route configuration")
	// ErrUnresolved is returned when an action or middleware name is not registered
	ErrUnresolved = errors.New("unresolved reference")
	// ErrRouteConflict is returned when the same method and pattern are registered twice
	ErrRouteConflict = errors.New("route conflict")
	// ErrCacheMiss is returned by a CacheStore when the key is absent or expired
	ErrCacheMiss = errors.New("cache miss")
)

// ConfigurationError reports a route definition that failed validation.
// Method is set when the failure is an unknown HTTP method.
type ConfigurationError struct {
	Key    string
	Method string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("route %q: method %q is not allowed (allowed: %s)", e.Key, e.Method, allowedMethodList())
	}
	return fmt.Sprintf("route %q: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// ResolutionError reports an action or middleware name with no registry entry.
type ResolutionError struct {
	Kind string
	Key  string
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("route %q: %s %q is not registered", e.Key, e.Kind, e.Name)
}

func (e *ResolutionError) Unwrap() error {
	return ErrUnresolved
}
