package di

import "sync"

type compiledKey struct {
	key   Key
	async bool
}

// Registry maps keys to the factories of one scope.
//
// It is immutable after the build except for two memos: specializations of
// generic factories and compiled resolution routines. Both are guarded so a
// registry can be shared by concurrently resolving containers.
type Registry struct {
	scope Scope

	mu        sync.RWMutex
	factories map[Key]*Factory
	order     []Key
	families  map[Key][]*Factory
	routines  map[compiledKey]routine
}

func newRegistry(scope Scope) *Registry {
	return &Registry{
		scope:     scope,
		factories: make(map[Key]*Factory),
		families:  make(map[Key][]*Factory),
		routines:  make(map[compiledKey]routine),
	}
}

// Scope returns the scope served by the registry.
func (r *Registry) Scope() Scope { return r.scope }

// Len returns the number of registered factories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Factories returns the registered factories in registration order.
// Specializations created on demand are included.
func (r *Registry) Factories() []*Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Factory, 0, len(r.order))
	for _, k := range r.order {
		if f, ok := r.factories[k]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Has reports whether key is registered exactly, without specialization.
func (r *Registry) Has(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[key]
	return ok
}

// Factory looks key up.
//
// An exact registration wins. Otherwise a parameterized key is matched
// against the generic factories registered for its origin, newest first; the
// first whose provided type is broader than or equal to key is specialized,
// memoized under key and returned. A MetaOf key with a concrete argument
// yields a value factory producing that argument.
func (r *Registry) Factory(key Key) (*Factory, bool) {
	return r.find(key, true)
}

// find is Factory with optional memoization of specializations.
func (r *Registry) find(key Key, memo bool) (*Factory, bool) {
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if ok {
		return f, true
	}
	t := key.typ
	if !t.IsParameterized() || t.HasVars() {
		return nil, false
	}
	if t.Origin() == metaType {
		return r.keep(key, &Factory{
			Provides: key,
			Scope:    r.scope,
			Kind:     KindValue,
			Cache:    true,
			value:    t.Args()[0],
		}, memo), true
	}

	origin := key.WithType(t.Origin())
	r.mu.RLock()
	family := r.families[origin]
	r.mu.RUnlock()
	for i := len(family) - 1; i >= 0; i-- {
		generic := family[i]
		b, ok := Match(generic.Provides.typ, t)
		if !ok {
			continue
		}
		return r.keep(key, generic.specialize(key, b), memo), true
	}
	return nil, false
}

// keep memoizes a specialization when asked to, keeping the first one on a race.
func (r *Registry) keep(key Key, f *Factory, memo bool) *Factory {
	if !memo {
		return f
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.factories[key]; ok {
		return existing
	}
	r.factories[key] = f
	r.order = append(r.order, key)
	return f
}

// add registers f under its key, replacing any previous factory.
func (r *Registry) add(f *Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[f.Provides]; !ok {
		r.order = append(r.order, f.Provides)
	}
	r.factories[f.Provides] = f
}

func (r *Registry) remove(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	origin := key.WithType(key.typ.Origin())
	if fam := r.families[origin]; len(fam) > 0 {
		kept := fam[:0:0]
		for _, f := range fam {
			if f.Provides != key {
				kept = append(kept, f)
			}
		}
		r.families[origin] = kept
	}
}

// addFamily registers a generic factory under its origin key.
func (r *Registry) addFamily(f *Factory) {
	origin := f.Provides.WithType(f.Provides.typ.Origin())
	r.mu.Lock()
	defer r.mu.Unlock()
	fam := r.families[origin]
	for i, g := range fam {
		if g.Provides == f.Provides {
			fam[i] = f
			return
		}
	}
	r.families[origin] = append(fam, f)
}

// byType returns the exact registrations whose type is t, any component.
func (r *Registry) byType(t Type) []*Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Factory
	for _, k := range r.order {
		if k.typ == t {
			out = append(out, r.factories[k])
		}
	}
	return out
}
