package di

import (
	"errors"
	"strconv"
)

// sourceDecl collects the options of one declaration.
type sourceDecl struct {
	scope        Scope
	component    string
	hasComponent bool
	deps         []Key
	kw           map[string]Key
	noCache      bool
	override     bool
	also         []Type
}

// SourceOption configures a single declaration on a Provider.
type SourceOption func(*sourceDecl)

// InScope sets the scope of the declared source, overriding the provider default.
func InScope(s Scope) SourceOption {
	return func(d *sourceDecl) { d.scope = s }
}

// InComponent places the provided key in component instead of the provider's.
func InComponent(component string) SourceOption {
	return func(d *sourceDecl) {
		d.component = component
		d.hasComponent = true
	}
}

// Requires appends positional dependencies. Unqualified keys inherit the
// component of the declared source.
func Requires(keys ...Key) SourceOption {
	return func(d *sourceDecl) { d.deps = append(d.deps, keys...) }
}

// RequiresTypes appends positional dependencies given by type.
func RequiresTypes(ts ...Type) SourceOption {
	return func(d *sourceDecl) {
		for _, t := range ts {
			d.deps = append(d.deps, KeyOf(t))
		}
	}
}

// RequiresKw adds a keyword dependency.
func RequiresKw(name string, key Key) SourceOption {
	return func(d *sourceDecl) {
		if d.kw == nil {
			d.kw = make(map[string]Key)
		}
		d.kw[name] = key
	}
}

// NoCache makes every request build a fresh value.
func NoCache() SourceOption {
	return func(d *sourceDecl) { d.noCache = true }
}

// Override declares the intent to replace an earlier registration of the same key.
func Override() SourceOption {
	return func(d *sourceDecl) { d.override = true }
}

// Also makes the source provide extra types, each an alias of the main key.
func Also(ts ...Type) SourceOption {
	return func(d *sourceDecl) { d.also = append(d.also, ts...) }
}

type alias struct {
	source   Key
	provides Key
	cache    bool
	override bool
}

type decorator struct {
	factory  *Factory
	provides Key
}

type contextVar struct {
	provides Key
	scope    Scope
	override bool
}

// Provider is an ordered collection of dependency sources sharing a default
// scope and component.
//
// Declaration errors are recorded and reported when a container is built;
// every declaring method returns the provider for chaining.
type Provider struct {
	name        string
	scope       Scope
	component   string
	factories   []*Factory
	aliases     []*alias
	decorators  []*decorator
	contextVars []*contextVar
	errs        []error
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// ProviderScope sets the default scope of the provider's sources.
func ProviderScope(s Scope) ProviderOption {
	return func(p *Provider) { p.scope = s }
}

// ProviderComponent sets the component of every key the provider declares.
func ProviderComponent(component string) ProviderOption {
	return func(p *Provider) { p.component = component }
}

// ProviderName names the provider in logs.
func ProviderName(name string) ProviderOption {
	return func(p *Provider) { p.name = name }
}

// NewProvider returns an empty provider.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name, if any.
func (p *Provider) Name() string { return p.name }

// Scope returns the default scope.
func (p *Provider) Scope() Scope { return p.scope }

// Component returns the provider component.
func (p *Provider) Component() string { return p.component }

// Err returns the declaration errors recorded so far, joined.
func (p *Provider) Err() error { return errors.Join(p.errs...) }

// Factories returns the declared factories, in declaration order.
func (p *Provider) Factories() []*Factory { return append([]*Factory(nil), p.factories...) }

func (p *Provider) fail(err error) *Provider {
	p.errs = append(p.errs, err)
	return p
}

func (p *Provider) decl(opts []SourceOption) *sourceDecl {
	d := &sourceDecl{}
	for _, opt := range opts {
		opt(d)
	}
	if !d.hasComponent {
		d.component = p.component
	}
	return d
}

// newFactory validates a declaration and builds its factory.
func (p *Provider) newFactory(provides Type, kind Kind, d *sourceDecl, needScope bool) (*Factory, error) {
	key := KeyIn(provides, d.component)
	if provides.IsZero() {
		return nil, InvalidSourceError{Key: key, Reason: "provided type is not set"}
	}
	scope := d.scope
	if scope.IsZero() {
		scope = p.scope
	}
	if needScope && scope.IsZero() {
		return nil, NoScopeSetError{Key: key}
	}
	f := &Factory{
		Provides: key,
		Scope:    scope,
		Kind:     kind,
		Cache:    !d.noCache,
		Override: d.override,
	}
	for i, dep := range d.deps {
		if dep.typ.IsZero() {
			return nil, InvalidSourceError{Key: key, Reason: "type of dependency " + strconv.Itoa(i) + " cannot be determined"}
		}
		f.Dependencies = append(f.Dependencies, dep.Inherit(d.component))
	}
	if len(d.kw) > 0 {
		f.KwDependencies = make(map[string]Key, len(d.kw))
		for n, dep := range d.kw {
			if dep.typ.IsZero() {
				return nil, InvalidSourceError{Key: key, Reason: "type of dependency " + strconv.Quote(n) + " cannot be determined"}
			}
			f.KwDependencies[n] = dep.Inherit(d.component)
		}
	}
	return f, nil
}

func (p *Provider) addFactory(provides Type, kind Kind, opts []SourceOption, set func(*Factory) bool) *Provider {
	d := p.decl(opts)
	f, err := p.newFactory(provides, kind, d, true)
	if err != nil {
		return p.fail(err)
	}
	if !set(f) {
		return p.fail(InvalidSourceError{Key: f.Provides, Reason: "nil " + kind.String() + " function"})
	}
	p.factories = append(p.factories, f)
	for _, t := range d.also {
		if t.IsZero() {
			return p.fail(InvalidSourceError{Key: f.Provides, Reason: "extra provided type is not set"})
		}
		p.aliases = append(p.aliases, &alias{
			source:   f.Provides,
			provides: KeyIn(t, d.component),
			cache:    f.Cache,
			override: f.Override,
		})
	}
	return p
}

// Provide declares a plain factory.
func (p *Provider) Provide(provides Type, fn PlainFunc, opts ...SourceOption) *Provider {
	return p.addFactory(provides, KindPlain, opts, func(f *Factory) bool {
		f.plain = fn
		return fn != nil
	})
}

// ProvideGenerator declares a factory whose finalizer runs on scope exit.
func (p *Provider) ProvideGenerator(provides Type, fn GeneratorFunc, opts ...SourceOption) *Provider {
	return p.addFactory(provides, KindGenerator, opts, func(f *Factory) bool {
		f.generator = fn
		return fn != nil
	})
}

// ProvideAsync declares a factory that may block on a context.
// Only an AsyncContainer can run it.
func (p *Provider) ProvideAsync(provides Type, fn AsyncFunc, opts ...SourceOption) *Provider {
	return p.addFactory(provides, KindAsync, opts, func(f *Factory) bool {
		f.async = fn
		return fn != nil
	})
}

// ProvideAsyncGenerator declares an async factory with an async finalizer.
func (p *Provider) ProvideAsyncGenerator(provides Type, fn AsyncGeneratorFunc, opts ...SourceOption) *Provider {
	return p.addFactory(provides, KindAsyncGenerator, opts, func(f *Factory) bool {
		f.asyncGen = fn
		return fn != nil
	})
}

// ProvideValue declares a literal value.
func (p *Provider) ProvideValue(provides Type, v any, opts ...SourceOption) *Provider {
	return p.addFactory(provides, KindValue, opts, func(f *Factory) bool {
		f.value = v
		f.Dependencies = nil
		f.KwDependencies = nil
		return true
	})
}

// Alias makes provides resolve to the value of source.
//
// The alias shares the source's cached instance and is placed in the scope of
// whatever finally produces source. An unqualified source inherits the
// alias component.
func (p *Provider) Alias(source Key, provides Type, opts ...SourceOption) *Provider {
	d := p.decl(opts)
	key := KeyIn(provides, d.component)
	switch {
	case provides.IsZero():
		return p.fail(InvalidSourceError{Key: key, Reason: "provided type is not set"})
	case source.typ.IsZero():
		return p.fail(InvalidSourceError{Key: key, Reason: "alias source type is not set"})
	}
	p.aliases = append(p.aliases, &alias{
		source:   source.Inherit(d.component),
		provides: key,
		cache:    !d.noCache,
		override: d.override,
	})
	return p
}

// FromContext declares a context variable: a value supplied when its scope
// is entered instead of being built.
func (p *Provider) FromContext(provides Type, opts ...SourceOption) *Provider {
	d := p.decl(opts)
	f, err := p.newFactory(provides, KindContext, d, true)
	if err != nil {
		return p.fail(err)
	}
	p.contextVars = append(p.contextVars, &contextVar{
		provides: KeyIn(provides, DefaultComponent),
		scope:    f.Scope,
		override: d.override,
	})
	return p
}

func (p *Provider) addDecorator(provides Type, kind Kind, opts []SourceOption, set func(*Factory) bool) *Provider {
	d := p.decl(opts)
	f, err := p.newFactory(provides, kind, d, false)
	if err != nil {
		return p.fail(err)
	}
	if !set(f) {
		return p.fail(InvalidSourceError{Key: f.Provides, Reason: "nil " + kind.String() + " decorator"})
	}
	if !f.dependsOn(f.Provides) {
		f.Dependencies = append([]Key{f.Provides}, f.Dependencies...)
	}
	p.decorators = append(p.decorators, &decorator{factory: f, provides: f.Provides})
	return p
}

// Decorate wraps the factory already registered for provides.
//
// The decorated value is passed as the first positional dependency unless
// Requires already lists the provided key. provides may be a parameterized
// type with variables, in which case every matching specialization is wrapped.
func (p *Provider) Decorate(provides Type, fn PlainFunc, opts ...SourceOption) *Provider {
	return p.addDecorator(provides, KindPlain, opts, func(f *Factory) bool {
		f.plain = fn
		return fn != nil
	})
}

// DecorateGenerator is Decorate with a finalizer.
func (p *Provider) DecorateGenerator(provides Type, fn GeneratorFunc, opts ...SourceOption) *Provider {
	return p.addDecorator(provides, KindGenerator, opts, func(f *Factory) bool {
		f.generator = fn
		return fn != nil
	})
}

// DecorateAsync is Decorate for AsyncContainers.
func (p *Provider) DecorateAsync(provides Type, fn AsyncFunc, opts ...SourceOption) *Provider {
	return p.addDecorator(provides, KindAsync, opts, func(f *Factory) bool {
		f.async = fn
		return fn != nil
	})
}
