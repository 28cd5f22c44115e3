package di

import (
	"context"
	"fmt"
	"sort"
)

// Kind tells the compiler how to run a factory.
type Kind uint8

const (
	KindPlain Kind = iota
	KindGenerator
	KindAsync
	KindAsyncGenerator
	KindValue
	KindAlias
	KindContext
)

var kindNames = [...]string{
	KindPlain:          "plain",
	KindGenerator:      "generator",
	KindAsync:          "async",
	KindAsyncGenerator: "async generator",
	KindValue:          "value",
	KindAlias:          "alias",
	KindContext:        "context",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsAsync reports whether the kind needs an AsyncContainer.
func (k Kind) IsAsync() bool { return k == KindAsync || k == KindAsyncGenerator }

// Finalizer tears down a value produced by a generator factory.
// cause is the error the scope was closed with, nil on a normal exit.
type Finalizer func(cause error) error

// AsyncFinalizer is the Finalizer of an async generator.
type AsyncFinalizer func(ctx context.Context, cause error) error

// PlainFunc builds a value from its resolved dependencies.
type PlainFunc func(d Deps) (any, error)

// GeneratorFunc builds a value and returns the finalizer to run on scope exit.
// A nil finalizer registers nothing.
type GeneratorFunc func(d Deps) (any, Finalizer, error)

// AsyncFunc builds a value and may block on ctx.
type AsyncFunc func(ctx context.Context, d Deps) (any, error)

// AsyncGeneratorFunc is the async flavour of GeneratorFunc.
type AsyncGeneratorFunc func(ctx context.Context, d Deps) (any, AsyncFinalizer, error)

// Deps carries the resolved dependencies of one factory invocation.
type Deps struct {
	args []any
	kw   map[string]any
}

// Len returns the number of positional dependencies.
func (d Deps) Len() int { return len(d.args) }

// At returns the i-th positional dependency.
func (d Deps) At(i int) any { return d.args[i] }

// Named returns a keyword dependency, nil when absent.
func (d Deps) Named(name string) any { return d.kw[name] }

// Arg returns the i-th positional dependency as T.
//
// It panics if the value is not a T; keys are fixed at declaration time, so
// a mismatch is a wiring bug.
func Arg[T any](d Deps, i int) T {
	v, ok := d.args[i].(T)
	if !ok {
		panic(fmt.Errorf("di: dependency %d is %T, not %s", i, d.args[i], TypeFor[T]()))
	}
	return v
}

// KwArg returns a keyword dependency as T, panicking like Arg.
func KwArg[T any](d Deps, name string) T {
	v, ok := d.kw[name].(T)
	if !ok {
		panic(fmt.Errorf("di: dependency %q is %T, not %s", name, d.kw[name], TypeFor[T]()))
	}
	return v
}

// Factory is a registered recipe for one key.
//
// Factories are owned by a Registry once built and must be treated as
// read-only.
type Factory struct {
	Provides       Key
	Dependencies   []Key
	KwDependencies map[string]Key
	Scope          Scope
	Kind           Kind
	Cache          bool
	Override       bool

	plain     PlainFunc
	generator GeneratorFunc
	async     AsyncFunc
	asyncGen  AsyncGeneratorFunc
	value     any

	// decorates is set on decorator factories to the hidden key of the
	// factory they wrap.
	decorates Key
	// template is the generic factory this one was specialized from.
	template *Factory
}

// Source returns the callable or literal behind the factory, nil for aliases
// and context variables.
func (f *Factory) Source() any {
	switch f.Kind {
	case KindPlain:
		return f.plain
	case KindGenerator:
		return f.generator
	case KindAsync:
		return f.async
	case KindAsyncGenerator:
		return f.asyncGen
	case KindValue:
		return f.value
	}
	return nil
}

// IsDecorator reports whether the factory wraps another one.
func (f *Factory) IsDecorator() bool { return f.decorates.typ.d != nil }

// IsGeneric reports whether the provided type has unbound type variables.
func (f *Factory) IsGeneric() bool { return f.Provides.typ.HasVars() }

// kwNames returns the keyword dependency names in a stable order.
func (f *Factory) kwNames() []string {
	names := make([]string, 0, len(f.KwDependencies))
	for n := range f.KwDependencies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f *Factory) clone() *Factory {
	cp := *f
	cp.Dependencies = append([]Key(nil), f.Dependencies...)
	if f.KwDependencies != nil {
		cp.KwDependencies = make(map[string]Key, len(f.KwDependencies))
		for n, k := range f.KwDependencies {
			cp.KwDependencies[n] = k
		}
	}
	return &cp
}

// rewrite maps every dependency key through fn.
func (f *Factory) rewrite(fn func(Key) Key) {
	for i, k := range f.Dependencies {
		f.Dependencies[i] = fn(k)
	}
	for n, k := range f.KwDependencies {
		f.KwDependencies[n] = fn(k)
	}
	if f.IsDecorator() {
		f.decorates = fn(f.decorates)
	}
}

// specialize substitutes the bindings into the provided and dependency keys.
func (f *Factory) specialize(provides Key, b Bindings) *Factory {
	cp := f.clone()
	cp.Provides = provides
	cp.template = f
	cp.rewrite(func(k Key) Key { return k.WithType(k.typ.Substitute(b)) })
	return cp
}

// dependsOn reports whether key is among the factory's dependencies.
func (f *Factory) dependsOn(key Key) bool {
	for _, k := range f.Dependencies {
		if k == key {
			return true
		}
	}
	for _, k := range f.KwDependencies {
		if k == key {
			return true
		}
	}
	return false
}
