package di

import "strconv"

// ValidationSettings toggles the override and decoration checks of the
// registry builder.
type ValidationSettings struct {
	// NothingOverridden rejects Override() sources with nothing to replace.
	NothingOverridden bool
	// ImplicitOverride rejects re-registration without Override().
	ImplicitOverride bool
	// NothingDecorated rejects decorators that match no factory.
	NothingDecorated bool
}

var (
	// StrictValidation enables every check. It is the default.
	StrictValidation = ValidationSettings{NothingOverridden: true, ImplicitOverride: true, NothingDecorated: true}
	// LooseValidation disables every check: later registrations silently win.
	LooseValidation = ValidationSettings{}
)

// Keys under which a container exposes itself to the factories it runs.
var (
	ContainerType      = Named("github.com/sghaida/scoped/di.Container")
	AsyncContainerType = Named("github.com/sghaida/scoped/di.AsyncContainer")
)

// registryBuilder turns providers into one registry per scope.
type registryBuilder struct {
	scopes     scopeSet
	providers  []*Provider
	validation ValidationSettings
	async      bool

	components []string
	registries []*Registry
	processed  map[Key]*Factory
	order      []Key
	scopeOf    map[Key]Scope
	pending    map[Key]*alias
	hidden     int
}

func newRegistryBuilder(scopes scopeSet, providers []*Provider, validation ValidationSettings, async bool) *registryBuilder {
	return &registryBuilder{
		scopes:     scopes,
		providers:  providers,
		validation: validation,
		async:      async,
		processed:  make(map[Key]*Factory),
		scopeOf:    make(map[Key]Scope),
		pending:    make(map[Key]*alias),
	}
}

func (b *registryBuilder) build() ([]*Registry, error) {
	for _, p := range b.providers {
		if p == nil {
			return nil, ErrNilProvider
		}
		if err := p.Err(); err != nil {
			return nil, err
		}
	}
	b.collectComponents()
	b.initRegistries()

	for _, p := range b.providers {
		for _, f := range p.factories {
			if err := b.processFactory(f); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range b.providers {
		for _, cv := range p.contextVars {
			if err := b.processContextVar(cv); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range b.providers {
		for _, a := range p.aliases {
			b.pending[a.provides] = a
		}
	}
	for _, p := range b.providers {
		for _, a := range p.aliases {
			if err := b.processAlias(a); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range b.providers {
		for _, d := range p.decorators {
			if err := b.processDecorator(d); err != nil {
				return nil, err
			}
		}
	}
	b.postProcessGenerics()
	return b.registries, nil
}

func (b *registryBuilder) collectComponents() {
	seen := map[string]struct{}{DefaultComponent: {}}
	b.components = []string{DefaultComponent}
	add := func(c string) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			b.components = append(b.components, c)
		}
	}
	for _, p := range b.providers {
		add(p.component)
		for _, f := range p.factories {
			add(f.Provides.component)
		}
		for _, a := range p.aliases {
			add(a.provides.component)
		}
		for _, d := range p.decorators {
			add(d.provides.component)
		}
	}
}

// initRegistries creates one registry per scope, each exposing the running
// container in every component.
func (b *registryBuilder) initRegistries() {
	self := ContainerType
	if b.async {
		self = AsyncContainerType
	}
	b.registries = make([]*Registry, len(b.scopes))
	for i, s := range b.scopes {
		r := newRegistry(s)
		for _, f := range b.contextFactories(self, s, false) {
			r.add(f)
		}
		b.registries[i] = r
	}
}

// contextFactories returns the context factory of t in the default component
// and an alias to it in every other component.
func (b *registryBuilder) contextFactories(t Type, scope Scope, override bool) []*Factory {
	base := KeyIn(t, DefaultComponent)
	out := make([]*Factory, 0, len(b.components))
	for _, c := range b.components {
		if c == DefaultComponent {
			out = append(out, &Factory{Provides: base, Scope: scope, Kind: KindContext, Cache: true, Override: override})
			continue
		}
		out = append(out, &Factory{
			Provides:     KeyIn(t, c),
			Dependencies: []Key{base},
			Scope:        scope,
			Kind:         KindAlias,
			Cache:        true,
			Override:     override,
		})
	}
	return out
}

func (b *registryBuilder) registry(s Scope) *Registry {
	return b.registries[b.scopes.index(s)]
}

func (b *registryBuilder) checkScope(f *Factory) error {
	if b.scopes.index(f.Scope) < 0 {
		return UnknownScopeError{Scope: f.Scope, Key: f.Provides}
	}
	if !b.async && f.Kind.IsAsync() {
		return UnsupportedFactoryError{Key: f.Provides, Kind: f.Kind}
	}
	return nil
}

// register applies the override rules and stores f.
func (b *registryBuilder) register(f *Factory) error {
	key := f.Provides
	if _, ok := b.processed[key]; ok {
		if !f.Override && b.validation.ImplicitOverride {
			return ImplicitOverrideDetectedError{Key: key, New: f.Kind, Existing: b.processed[key].Kind}
		}
		b.registry(b.scopeOf[key]).remove(key)
	} else {
		if f.Override && b.validation.NothingOverridden {
			return NothingOverriddenError{Key: key}
		}
		b.order = append(b.order, key)
	}
	b.processed[key] = f
	b.scopeOf[key] = f.Scope
	r := b.registry(f.Scope)
	r.add(f)
	if f.IsGeneric() {
		r.addFamily(f)
	}
	return nil
}

func (b *registryBuilder) processFactory(f *Factory) error {
	if err := b.checkScope(f); err != nil {
		return err
	}
	return b.register(f.clone())
}

func (b *registryBuilder) processContextVar(cv *contextVar) error {
	for _, f := range b.contextFactories(cv.provides.typ, cv.scope, cv.override) {
		if err := b.checkScope(f); err != nil {
			return err
		}
		// The same context variable declared by several providers is one
		// declaration, not an override.
		if prev, ok := b.processed[f.Provides]; ok && !f.Override && sameContext(prev, f) {
			continue
		}
		if err := b.register(f); err != nil {
			return err
		}
	}
	return nil
}

func sameContext(a, b *Factory) bool {
	if a.Kind != b.Kind || a.Scope != b.Scope || len(a.Dependencies) != len(b.Dependencies) {
		return false
	}
	switch a.Kind {
	case KindContext:
		return true
	case KindAlias:
		return a.Dependencies[0] == b.Dependencies[0]
	}
	return false
}

// lookupScope finds the scope of an already registered key, specializing
// generic factories when needed.
func (b *registryBuilder) lookupScope(key Key) (Scope, bool) {
	if s, ok := b.scopeOf[key]; ok {
		return s, true
	}
	for _, r := range b.registries {
		if _, ok := r.find(key, false); ok {
			return r.scope, true
		}
	}
	return Scope{}, false
}

// processAlias follows the alias chain to the first produced key and
// registers the alias in that key's scope.
func (b *registryBuilder) processAlias(a *alias) error {
	visited := []Key{a.provides}
	src := a.source
	var scope Scope
	for {
		if s, ok := b.lookupScope(src); ok {
			scope = s
			break
		}
		for _, v := range visited {
			if v == src {
				return CycleDependenciesError{Path: append(visited, src)}
			}
		}
		next, ok := b.pending[src]
		if !ok {
			return GraphMissingFactoryError{NoFactoryError{
				Requested:   src,
				Path:        visited,
				Suggestions: b.suggest(src),
			}}
		}
		visited = append(visited, src)
		src = next.source
	}
	return b.register(&Factory{
		Provides:     a.provides,
		Dependencies: []Key{a.source},
		Scope:        scope,
		Kind:         KindAlias,
		Cache:        a.cache,
		Override:     a.override,
	})
}

// decoratorTargets returns the registered factories the decorator wraps.
func (b *registryBuilder) decoratorTargets(d *decorator) []*Factory {
	pattern := d.provides
	if !pattern.typ.HasVars() {
		if f, ok := b.processed[pattern]; ok {
			return []*Factory{f}
		}
		// A concrete decorator over a generic family pins the specialization
		// so only that one is wrapped.
		for _, r := range b.registries {
			if f, ok := r.find(pattern, false); ok {
				r.add(f)
				b.processed[pattern] = f
				b.scopeOf[pattern] = r.scope
				b.order = append(b.order, pattern)
				return []*Factory{f}
			}
		}
		return nil
	}
	var out []*Factory
	for _, key := range b.order {
		f, ok := b.processed[key]
		if !ok || key.component != pattern.component || key.typ.Origin() != pattern.typ.Origin() {
			continue
		}
		if _, ok := Match(pattern.typ, key.typ); ok {
			out = append(out, f)
		}
	}
	return out
}

func (b *registryBuilder) processDecorator(d *decorator) error {
	targets := b.decoratorTargets(d)
	if len(targets) == 0 {
		if b.validation.NothingDecorated {
			return GraphMissingFactoryError{NoFactoryError{
				Requested:   d.provides,
				Suggestions: append([]string{"a decorator needs a factory to wrap; declare it in this or an earlier provider"}, b.suggest(d.provides)...),
			}}
		}
		return nil
	}
	for _, target := range targets {
		if err := b.decorate(d, target); err != nil {
			return err
		}
	}
	return nil
}

// decorate renames target to a hidden key and registers the decorator as the
// new producer of target's key, depending on the hidden one.
func (b *registryBuilder) decorate(d *decorator, target *Factory) error {
	if target.Kind == KindContext {
		return InvalidSourceError{Key: target.Provides, Reason: "context variables cannot be decorated"}
	}
	bindings, _ := Match(d.provides.typ, target.Provides.typ)

	b.hidden++
	t := target.Provides.typ
	hiddenOrigin := Named(t.Origin().String() + "#decorated-" + strconv.Itoa(b.hidden))
	hiddenType := hiddenOrigin
	if t.IsParameterized() {
		hiddenType = hiddenOrigin.Of(t.Args()...)
	}
	hidden := target.Provides.WithType(hiddenType)

	renamed := target.clone()
	renamed.Provides = hidden
	renamed.Override = false

	df := d.factory.specialize(target.Provides, bindings)
	df.template = nil
	df.rewrite(func(k Key) Key {
		if k == target.Provides {
			return hidden
		}
		return k
	})
	df.decorates = hidden
	df.Scope = target.Scope
	df.Cache = target.Cache
	df.Override = false
	if err := b.checkScope(df); err != nil {
		return err
	}

	reg := b.registry(target.Scope)
	reg.add(renamed)
	reg.add(df)
	if renamed.IsGeneric() {
		reg.addFamily(renamed)
		reg.addFamily(df)
	}
	b.processed[hidden] = renamed
	b.scopeOf[hidden] = target.Scope
	b.order = append(b.order, hidden)
	b.processed[target.Provides] = df
	return nil
}

// postProcessGenerics indexes generic factories by their origin key so
// parameterized lookups can specialize them.
func (b *registryBuilder) postProcessGenerics() {
	for _, r := range b.registries {
		for _, f := range r.Factories() {
			if f.IsGeneric() {
				r.addFamily(f)
			}
		}
	}
}

// suggest lists registrations of key's type under other components or in
// other scopes.
func (b *registryBuilder) suggest(key Key) []string {
	return suggestFor(b.registries, key, -1)
}

// suggestFor builds human-readable near-miss hints for a missing key.
// from is the index of the requesting scope, -1 when unknown.
func suggestFor(registries []*Registry, key Key, from int) []string {
	var out []string
	for i, r := range registries {
		for _, f := range r.byType(key.typ) {
			switch {
			case f.Provides == key && from >= 0 && i > from:
				out = append(out, key.String()+" is provided in inner scope "+r.scope.Name+
					"; it cannot be used from "+registries[from].scope.Name)
			case f.Provides == key && from < 0:
				out = append(out, key.String()+" is provided in scope "+r.scope.Name)
			case f.Provides.component != key.component:
				out = append(out, "did you mean "+f.Provides.String()+" in scope "+r.scope.Name+"?")
			}
		}
	}
	return out
}
