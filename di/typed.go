package di

import (
	"context"
	"fmt"
)

// Typed helpers derive keys from Go types with TypeFor. Dependencies are
// unqualified and inherit the component of the declared source.

// Provide0 declares a factory for T without dependencies.
func Provide0[T any](p *Provider, fn func() (T, error), opts ...SourceOption) *Provider {
	if fn == nil {
		return p.Provide(TypeFor[T](), nil, opts...)
	}
	return p.Provide(TypeFor[T](), func(Deps) (any, error) {
		return fn()
	}, opts...)
}

// Provide1 declares a factory for T built from an A.
func Provide1[T, A any](p *Provider, fn func(A) (T, error), opts ...SourceOption) *Provider {
	if fn == nil {
		return p.Provide(TypeFor[T](), nil, opts...)
	}
	opts = append([]SourceOption{RequiresTypes(TypeFor[A]())}, opts...)
	return p.Provide(TypeFor[T](), func(d Deps) (any, error) {
		return fn(Arg[A](d, 0))
	}, opts...)
}

// Provide2 declares a factory for T built from an A and a B.
func Provide2[T, A, B any](p *Provider, fn func(A, B) (T, error), opts ...SourceOption) *Provider {
	if fn == nil {
		return p.Provide(TypeFor[T](), nil, opts...)
	}
	opts = append([]SourceOption{RequiresTypes(TypeFor[A](), TypeFor[B]())}, opts...)
	return p.Provide(TypeFor[T](), func(d Deps) (any, error) {
		return fn(Arg[A](d, 0), Arg[B](d, 1))
	}, opts...)
}

// Provide3 declares a factory for T built from an A, a B and a C.
func Provide3[T, A, B, C any](p *Provider, fn func(A, B, C) (T, error), opts ...SourceOption) *Provider {
	if fn == nil {
		return p.Provide(TypeFor[T](), nil, opts...)
	}
	opts = append([]SourceOption{RequiresTypes(TypeFor[A](), TypeFor[B](), TypeFor[C]())}, opts...)
	return p.Provide(TypeFor[T](), func(d Deps) (any, error) {
		return fn(Arg[A](d, 0), Arg[B](d, 1), Arg[C](d, 2))
	}, opts...)
}

// ProvideValueOf declares v as the value of T.
func ProvideValueOf[T any](p *Provider, v T, opts ...SourceOption) *Provider {
	return p.ProvideValue(TypeFor[T](), v, opts...)
}

// keyFor returns the key of T, in component when one is given.
func keyFor[T any](component []string) Key {
	if len(component) > 0 {
		return KeyIn(TypeFor[T](), component[0])
	}
	return KeyOf(TypeFor[T]())
}

func cast[T any](key Key, v any) (T, error) {
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, WrongTypeError{Key: key, GotType: fmt.Sprintf("%T", v)}
	}
	return out, nil
}

// Resolve returns the value of T from c. An optional component selects the
// partition, the default component otherwise.
func Resolve[T any](c *Container, component ...string) (T, error) {
	key := keyFor[T](component)
	v, err := c.Get(key)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](key, v)
}

// MustResolve is Resolve panicking on error, for wiring code.
func MustResolve[T any](c *Container, component ...string) T {
	v, err := Resolve[T](c, component...)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveAsync returns the value of T from an AsyncContainer.
func ResolveAsync[T any](ctx context.Context, c *AsyncContainer, component ...string) (T, error) {
	key := keyFor[T](component)
	v, err := c.Get(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](key, v)
}

// GetAs returns the value of key from c as a T.
func GetAs[T any](c *Container, key Key) (T, error) {
	v, err := c.Get(key)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](key, v)
}
