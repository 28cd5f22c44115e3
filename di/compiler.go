package di

import (
	"context"
	"strconv"
)

// maxNodeDepth bounds dependency trees, which only grow unbounded when a
// generic factory depends on an ever larger specialization of itself.
const maxNodeDepth = 128

// resolveState is the per-container state a compiled routine works on.
type resolveState struct {
	cache map[Key]any
	exits *exitStack
	// outer resolves keys owned by an outer scope.
	outer func(ctx context.Context, key Key) (any, error)
	env   *environment
}

// routine resolves one key and its same-scope subtree.
type routine func(ctx context.Context, st *resolveState) (any, error)

// node mirrors a factory inside a dependency tree. External nodes belong to
// an outer scope and are fetched through resolveState.outer.
type node struct {
	key      Key
	factory  *Factory
	deps     []*node
	kwNames  []string
	kwDeps   []*node
	external bool
}

// compiled returns the memoized routine of key, or nil when the registry has
// no factory for it.
func (r *Registry) compiled(key Key, async bool) (routine, error) {
	ck := compiledKey{key: key, async: async}
	r.mu.RLock()
	fn, ok := r.routines[ck]
	r.mu.RUnlock()
	if ok {
		return fn, nil
	}
	if _, ok := r.Factory(key); !ok {
		return nil, nil
	}
	n, err := r.makeNode(key, nil, map[Key]struct{}{})
	if err != nil {
		return nil, err
	}
	fn, err = compileNode(n, async)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if existing, ok := r.routines[ck]; ok {
		fn = existing
	} else {
		r.routines[ck] = fn
	}
	r.mu.Unlock()
	return fn, nil
}

// makeNode builds the dependency tree of key inside this registry.
func (r *Registry) makeNode(key Key, path []Key, onPath map[Key]struct{}) (*node, error) {
	f, ok := r.Factory(key)
	if !ok {
		return &node{key: key, external: true}, nil
	}
	if _, seen := onPath[key]; seen || len(path) >= maxNodeDepth {
		return nil, CycleDependenciesError{Path: append(append([]Key(nil), path...), key)}
	}
	path = append(path, key)
	onPath[key] = struct{}{}
	defer delete(onPath, key)

	n := &node{key: key, factory: f}
	for _, dep := range f.Dependencies {
		child, err := r.makeNode(dep, path, onPath)
		if err != nil {
			return nil, err
		}
		n.deps = append(n.deps, child)
	}
	for _, name := range f.kwNames() {
		child, err := r.makeNode(f.KwDependencies[name], path, onPath)
		if err != nil {
			return nil, err
		}
		n.kwNames = append(n.kwNames, name)
		n.kwDeps = append(n.kwDeps, child)
	}
	return n, nil
}

// compileNode turns a node tree into nested closures. Every node checks the
// container cache before resolving its own dependencies.
func compileNode(n *node, async bool) (routine, error) {
	key := n.key
	if n.external {
		return func(ctx context.Context, st *resolveState) (any, error) {
			return st.outer(ctx, key)
		}, nil
	}
	f := n.factory
	if f.Kind.IsAsync() && !async {
		return nil, UnsupportedFactoryError{Key: key, Kind: f.Kind}
	}

	switch f.Kind {
	case KindContext:
		return func(_ context.Context, st *resolveState) (any, error) {
			if v, ok := st.cache[key]; ok {
				return v, nil
			}
			return nil, NoContextValueError{Key: key}
		}, nil
	case KindValue:
		v := f.value
		return func(context.Context, *resolveState) (any, error) { return v, nil }, nil
	}

	deps := make([]routine, len(n.deps))
	for i, d := range n.deps {
		fn, err := compileNode(d, async)
		if err != nil {
			return nil, err
		}
		deps[i] = fn
	}
	kwDeps := make([]routine, len(n.kwDeps))
	for i, d := range n.kwDeps {
		fn, err := compileNode(d, async)
		if err != nil {
			return nil, err
		}
		kwDeps[i] = fn
	}
	kwNames := n.kwNames

	invoke, err := invoker(f)
	if err != nil {
		return nil, err
	}
	cache := f.Cache
	return func(ctx context.Context, st *resolveState) (any, error) {
		if cache {
			if v, ok := st.cache[key]; ok {
				return v, nil
			}
		}
		d := Deps{}
		if len(deps) > 0 {
			d.args = make([]any, len(deps))
			for i, dep := range deps {
				v, err := dep(ctx, st)
				if err != nil {
					return nil, err
				}
				d.args[i] = v
			}
		}
		if len(kwDeps) > 0 {
			d.kw = make(map[string]any, len(kwDeps))
			for i, dep := range kwDeps {
				v, err := dep(ctx, st)
				if err != nil {
					return nil, err
				}
				d.kw[kwNames[i]] = v
			}
		}
		v, err := invoke(ctx, st, d)
		if err != nil {
			return nil, err
		}
		if cache {
			st.cache[key] = v
		}
		return v, nil
	}, nil
}

type invokeFunc func(ctx context.Context, st *resolveState, d Deps) (any, error)

// invoker runs a factory body according to its kind.
func invoker(f *Factory) (invokeFunc, error) {
	key := f.Provides
	scope := f.Scope.Name
	switch f.Kind {
	case KindAlias:
		return func(_ context.Context, _ *resolveState, d Deps) (any, error) {
			return d.args[0], nil
		}, nil
	case KindPlain:
		fn := f.plain
		return func(ctx context.Context, st *resolveState, d Deps) (any, error) {
			st.env.factoryCalled(ctx, scope)
			v, err := fn(d)
			if err != nil {
				return nil, FactoryError{Key: key, Cause: err}
			}
			return v, nil
		}, nil
	case KindGenerator:
		fn := f.generator
		return func(ctx context.Context, st *resolveState, d Deps) (any, error) {
			st.env.factoryCalled(ctx, scope)
			v, fin, err := fn(d)
			if err != nil {
				return nil, FactoryError{Key: key, Cause: err}
			}
			if fin != nil {
				st.exits.push(exitEntry{key: key, sync: fin})
			}
			return v, nil
		}, nil
	case KindAsync:
		fn := f.async
		return func(ctx context.Context, st *resolveState, d Deps) (any, error) {
			st.env.factoryCalled(ctx, scope)
			v, err := fn(ctx, d)
			if err != nil {
				return nil, FactoryError{Key: key, Cause: err}
			}
			return v, nil
		}, nil
	case KindAsyncGenerator:
		fn := f.asyncGen
		return func(ctx context.Context, st *resolveState, d Deps) (any, error) {
			st.env.factoryCalled(ctx, scope)
			v, fin, err := fn(ctx, d)
			if err != nil {
				return nil, FactoryError{Key: key, Cause: err}
			}
			if fin != nil {
				st.exits.push(exitEntry{key: key, async: fin})
			}
			return v, nil
		}, nil
	}
	return nil, InvalidSourceError{Key: key, Reason: "unexpected factory kind " + strconv.Itoa(int(f.Kind))}
}
