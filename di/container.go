package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sghaida/scoped/logger"
)

// core is the state shared by Container and AsyncContainer.
type core struct {
	id         uuid.UUID
	scopes     scopeSet
	registries []*Registry
	index      int
	env        *environment

	cache  map[Key]any
	exits  exitStack
	closed bool
	// closeParent is set on containers whose parent was entered implicitly
	// and must be closed with them.
	closeParent bool
}

func newCore(scopes scopeSet, registries []*Registry, index int, env *environment, values map[Type]any) core {
	c := core{
		id:         uuid.New(),
		scopes:     scopes,
		registries: registries,
		index:      index,
		env:        env,
		cache:      make(map[Key]any, len(values)+1),
	}
	for t, v := range values {
		c.cache[KeyIn(t, DefaultComponent)] = v
	}
	return c
}

// ID returns the unique id of the container, used in logs.
func (c *core) ID() uuid.UUID { return c.id }

// Scope returns the scope served by the container.
func (c *core) Scope() Scope { return c.scopes[c.index] }

// Registry returns the registry of the container's scope.
func (c *core) Registry() *Registry { return c.registries[c.index] }

// Registries returns the registries of every scope, outer first.
func (c *core) Registries() []*Registry { return append([]*Registry(nil), c.registries...) }

func (c *core) noFactory(key Key) error {
	return NoFactoryError{Requested: key, Suggestions: suggestFor(c.registries, key, c.index)}
}

func (c *core) logFields() map[string]interface{} {
	return logger.Fields(
		logger.FieldContainerID, c.id.String(),
		logger.FieldScope, c.Scope().Name,
	)
}

// childPath returns the scope indexes to enter from the current one, outer
// first. Without an explicit target the next non-skip scope is entered.
func (c *core) childPath(o *options) ([]int, error) {
	target, err := o.target(c.scopes)
	if err != nil {
		return nil, err
	}
	if target >= 0 {
		if target <= c.index {
			return nil, ChildScopeNotFoundError{Requested: c.scopes[target], Current: c.Scope()}
		}
		path := make([]int, 0, target-c.index)
		for i := c.index + 1; i <= target; i++ {
			path = append(path, i)
		}
		return path, nil
	}
	var path []int
	for i := c.index + 1; i < len(c.scopes); i++ {
		path = append(path, i)
		if !c.scopes[i].Skip {
			return path, nil
		}
	}
	if len(path) > 0 {
		return path, nil
	}
	return nil, ChildScopeNotFoundError{Current: c.Scope()}
}

// rootPath returns the scope indexes MakeContainer enters.
func rootPath(ss scopeSet, o *options) ([]int, error) {
	target, err := o.target(ss)
	if err != nil {
		return nil, err
	}
	if target < 0 {
		target = 0
		for target < len(ss)-1 && ss[target].Skip {
			target++
		}
	}
	path := make([]int, 0, target+1)
	for i := 0; i <= target; i++ {
		path = append(path, i)
	}
	return path, nil
}

// buildRegistries runs the registry builder and the graph validator.
func buildRegistries(ctx context.Context, providers []*Provider, o *options, env *environment, async bool) (scopeSet, []*Registry, error) {
	scopes := DefaultScopes()
	if o.scopes != nil {
		scopes = o.scopes
	}
	ss, err := newScopeSet(scopes)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	_, span := env.startSpan(ctx, "di.build", ss[0])
	registries, err := newRegistryBuilder(ss, providers, o.validation, async).build()
	if err == nil && !o.skipValidation {
		err = newGraphValidator(registries).validate()
	}
	endSpan(span, err)
	if err != nil {
		env.log.Error("container build failed", logger.ErrorFields("build", err))
		return nil, nil, err
	}
	env.log.Debug("registries validated", logger.DurationFields("build", time.Since(start)))
	for _, r := range registries {
		env.log.Debug("registry built", logger.Fields(
			logger.FieldScope, r.Scope().Name,
			logger.FieldFactories, r.Len(),
		))
	}
	return ss, registries, nil
}

// mergeExit folds two teardown results into one ExitError.
func mergeExit(a, b error) error {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	var errs []error
	for _, err := range []error{a, b} {
		var exit ExitError
		if errors.As(err, &exit) {
			errs = append(errs, exit.Errors...)
			continue
		}
		errs = append(errs, err)
	}
	return ExitError{Errors: errs}
}

// PanicError is the close cause passed to finalizers when Run recovers a panic.
type PanicError struct{ Value any }

// Error implements the error interface.
func (e PanicError) Error() string { return fmt.Sprintf("di: panic: %v", e.Value) }

// Container is the synchronous runtime of one scope.
//
// It caches what it builds, delegates keys of outer scopes to its parent and
// runs finalizers in reverse construction order when closed.
type Container struct {
	core
	parent *Container
	mu     *sync.Mutex
	state  *resolveState
}

// MakeContainer builds and validates the registries of providers and opens
// the root container: the first non-skip scope, or the scope named by
// WithScope. Skip-marked scopes before it are opened implicitly and closed
// together with the returned container.
func MakeContainer(providers []*Provider, opts ...Option) (*Container, error) {
	o := newOptions(opts)
	env := newEnvironment(o.log, o.tracerProvider, o.meterProvider)
	ss, registries, err := buildRegistries(context.Background(), providers, o, env, false)
	if err != nil {
		return nil, err
	}
	path, err := rootPath(ss, o)
	if err != nil {
		return nil, err
	}
	var c *Container
	for i, index := range path {
		c = newContainer(c, ss, registries, index, env, o.context, o.locked(true))
		c.closeParent = i > 0
	}
	return c, nil
}

func newContainer(parent *Container, ss scopeSet, registries []*Registry, index int, env *environment, values map[Type]any, lock bool) *Container {
	c := &Container{
		core:   newCore(ss, registries, index, env, values),
		parent: parent,
	}
	if lock {
		c.mu = &sync.Mutex{}
	}
	c.cache[KeyIn(ContainerType, DefaultComponent)] = c
	c.state = &resolveState{
		cache: c.cache,
		exits: &c.exits,
		env:   env,
		outer: func(_ context.Context, key Key) (any, error) {
			return c.outer(key)
		},
	}
	fields := c.logFields()
	if parent != nil {
		fields[logger.FieldParentID] = parent.id.String()
	}
	env.log.Debug("scope entered", fields)
	return c
}

// Parent returns the container of the enclosing scope, nil for the root.
func (c *Container) Parent() *Container { return c.parent }

// Get returns the value of key, building it if needed. Unqualified keys are
// looked up in the default component.
func (c *Container) Get(key Key) (any, error) {
	key = key.Inherit(DefaultComponent)
	v, ok, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, c.noFactory(key)
	}
	return v, nil
}

// outer resolves a key owned by an enclosing scope on behalf of a compiled
// routine. The caller holds c's lock; context values passed to Enter live in
// c's own cache.
func (c *Container) outer(key Key) (any, error) {
	if v, ok := c.cache[key]; ok {
		return v, nil
	}
	if c.parent == nil {
		return nil, c.noFactory(key)
	}
	v, ok, err := c.parent.lookup(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, c.noFactory(key)
	}
	return v, nil
}

func (c *Container) lookup(key Key) (any, bool, error) {
	if c.mu != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	if c.closed {
		return nil, false, ErrClosed
	}
	if v, ok := c.cache[key]; ok {
		return v, true, nil
	}
	fn, err := c.Registry().compiled(key, false)
	if err != nil {
		return nil, false, err
	}
	if fn == nil {
		if c.parent == nil {
			return nil, false, nil
		}
		return c.parent.lookup(key)
	}
	v, err := fn(context.Background(), c.state)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Enter opens a child container: the next non-skip scope, or the scope given
// with WithScope. Context values given with WithValue are visible to every
// container opened by the call.
func (c *Container) Enter(opts ...Option) (*Container, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	o := newOptions(opts)
	path, err := c.childPath(o)
	if err != nil {
		return nil, err
	}
	_, span := c.env.startSpan(context.Background(), "di.enter", c.scopes[path[len(path)-1]])
	defer span.End()

	child := c
	for i, index := range path {
		child = newContainer(child, c.scopes, c.registries, index, c.env, o.context, o.locked(false))
		child.closeParent = i > 0
	}
	return child, nil
}

// Run enters a child scope, calls fn with it and closes it on every path. A
// returned error is passed to finalizers as the close cause; a panic is passed
// as a PanicError and re-raised after teardown.
func (c *Container) Run(fn func(*Container) error, opts ...Option) (err error) {
	child, err := c.Enter(opts...)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = child.CloseWithCause(PanicError{Value: r})
			panic(r)
		}
		if cerr := child.CloseWithCause(err); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(child)
}

func (c *Container) isClosed() bool {
	if c.mu != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	return c.closed
}

// Close runs the container's finalizers. It is idempotent.
func (c *Container) Close() error { return c.CloseWithCause(nil) }

// CloseWithCause is Close passing cause to every finalizer.
func (c *Container) CloseWithCause(cause error) error {
	if c.mu != nil {
		c.mu.Lock()
	}
	if c.closed {
		if c.mu != nil {
			c.mu.Unlock()
		}
		return nil
	}
	c.closed = true
	_, span := c.env.startSpan(context.Background(), "di.close", c.Scope())
	scope := c.Scope().Name
	err := c.exits.close(context.Background(), cause, func(key Key, err error) {
		c.env.teardownFailed(context.Background(), scope, key, err)
	})
	clear(c.cache)
	if c.mu != nil {
		c.mu.Unlock()
	}
	c.env.log.Debug("scope exited", c.logFields())
	endSpan(span, err)

	if c.closeParent && c.parent != nil {
		err = mergeExit(err, c.parent.CloseWithCause(cause))
	}
	return err
}
