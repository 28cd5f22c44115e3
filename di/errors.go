package di

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrClosed is returned when a closed container is used.
	ErrClosed = errors.New("di: container is closed")

	// ErrNilProvider is returned when a nil provider is passed to a container builder.
	ErrNilProvider = errors.New("di: nil provider")
)

func joinKeys(path []Key) string {
	parts := make([]string, len(path))
	for i, k := range path {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}

// UnknownScopeError is returned when a source declares a scope that is not
// part of the configured scope set.
type UnknownScopeError struct {
	Scope Scope
	Key   Key
}

// Error implements the error interface.
func (e UnknownScopeError) Error() string {
	// Example: di: unknown scope "TENANT" for Config
	msg := "di: unknown scope " + strconv.Quote(e.Scope.Name)
	if e.Key.typ.IsZero() {
		return msg
	}
	return msg + " for " + e.Key.String()
}

// InvalidScopeSetError is returned when a custom scope set is malformed.
type InvalidScopeSetError struct{ Reason string }

// Error implements the error interface.
func (e InvalidScopeSetError) Error() string {
	return "di: invalid scope set: " + e.Reason
}

// CycleDependenciesError is returned when a dependency path revisits a key.
//
// Path lists the keys in resolution order; the last key closes the cycle.
type CycleDependenciesError struct{ Path []Key }

// Error implements the error interface.
func (e CycleDependenciesError) Error() string {
	// Example: di: cycle dependencies: A -> B -> A
	return "di: cycle dependencies: " + joinKeys(e.Path)
}

// NoFactoryError is returned when nothing produces a requested key.
type NoFactoryError struct {
	// Requested is the key nobody provides.
	Requested Key
	// Path is the chain of keys that led to Requested, outermost first.
	Path []Key
	// Suggestions are near-misses in other components or scopes.
	Suggestions []string
}

// Error implements the error interface.
func (e NoFactoryError) Error() string {
	var b strings.Builder
	b.WriteString("di: cannot find factory for ")
	b.WriteString(e.Requested.String())
	if len(e.Path) > 0 {
		b.WriteString(" (required by ")
		b.WriteString(joinKeys(e.Path))
		b.WriteString(")")
	}
	for _, s := range e.Suggestions {
		b.WriteString("\n  hint: ")
		b.WriteString(s)
	}
	return b.String()
}

// GraphMissingFactoryError is the build-time flavour of NoFactoryError,
// raised by graph validation and alias/decorator processing.
type GraphMissingFactoryError struct{ NoFactoryError }

// Unwrap exposes the embedded NoFactoryError to errors.As.
func (e GraphMissingFactoryError) Unwrap() error { return e.NoFactoryError }

// ImplicitOverrideDetectedError is returned when a key is registered again
// without explicit override intent.
type ImplicitOverrideDetectedError struct {
	Key      Key
	New      Kind
	Existing Kind
}

// Error implements the error interface.
func (e ImplicitOverrideDetectedError) Error() string {
	return "di: implicit override of " + e.Key.String() + " (" + e.Existing.String() + " replaced by " +
		e.New.String() + "); declare the new source with Override() if this is intended"
}

// NothingOverriddenError is returned when a source declares Override() but
// nothing was registered under its key before.
type NothingOverriddenError struct{ Key Key }

// Error implements the error interface.
func (e NothingOverriddenError) Error() string {
	return "di: " + e.Key.String() + " is declared as override but nothing was registered before"
}

// NoContextValueError is returned when a context variable is requested but
// was never supplied at scope entry.
type NoContextValueError struct{ Key Key }

// Error implements the error interface.
func (e NoContextValueError) Error() string {
	return "di: no context value supplied for " + e.Key.String()
}

// UnsupportedFactoryError is returned when the synchronous container is
// built with an asynchronous source.
type UnsupportedFactoryError struct {
	Key  Key
	Kind Kind
}

// Error implements the error interface.
func (e UnsupportedFactoryError) Error() string {
	return "di: " + e.Kind.String() + " source for " + e.Key.String() + " requires an AsyncContainer"
}

// NoScopeSetError is returned when a source has no scope and its provider has
// no default scope either.
type NoScopeSetError struct{ Key Key }

// Error implements the error interface.
func (e NoScopeSetError) Error() string {
	return "di: no scope set for " + e.Key.String() + "; set it on the source or the provider"
}

// InvalidSourceError is returned when a declaration cannot be used, such as a
// dependency whose type was never determined or a nil callable.
type InvalidSourceError struct {
	Key    Key
	Reason string
}

// Error implements the error interface.
func (e InvalidSourceError) Error() string {
	return "di: invalid source for " + e.Key.String() + ": " + e.Reason
}

// ChildScopeNotFoundError is returned when a requested child scope is not
// deeper than the current one.
type ChildScopeNotFoundError struct {
	Requested Scope
	Current   Scope
}

// Error implements the error interface.
func (e ChildScopeNotFoundError) Error() string {
	if e.Requested.IsZero() {
		return "di: no scope to enter after " + strconv.Quote(e.Current.Name)
	}
	return "di: cannot enter scope " + strconv.Quote(e.Requested.Name) + " from " + strconv.Quote(e.Current.Name)
}

// FactoryError wraps a failure returned by a user factory.
type FactoryError struct {
	Key   Key
	Cause error
}

// Error implements the error interface.
func (e FactoryError) Error() string {
	return "di: factory for " + e.Key.String() + " failed: " + e.Cause.Error()
}

// Unwrap returns the factory's own error.
func (e FactoryError) Unwrap() error { return e.Cause }

// WrongTypeError is returned by the typed helpers when a resolved value has
// an unexpected Go type.
type WrongTypeError struct {
	Key     Key
	GotType string
}

// Error implements the error interface.
func (e WrongTypeError) Error() string {
	// Example: di: dependency Config has wrong type (*main.Other)
	return "di: dependency " + e.Key.String() + " has wrong type (" + e.GotType + ")"
}

// ExitError aggregates every teardown failure of a scope exit.
type ExitError struct{ Errors []error }

// Error implements the error interface.
func (e ExitError) Error() string {
	if len(e.Errors) == 1 {
		return "di: teardown failed: " + e.Errors[0].Error()
	}
	var b strings.Builder
	b.WriteString("di: ")
	b.WriteString(strconv.Itoa(len(e.Errors)))
	b.WriteString(" teardown failures:")
	for i, err := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the individual teardown errors.
func (e ExitError) Unwrap() []error { return e.Errors }
