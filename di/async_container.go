package di

import (
	"context"
	"errors"

	"github.com/sghaida/scoped/logger"
)

// AsyncContainer is the context-aware runtime of one scope. It can run every
// factory kind, including async factories and async generators.
type AsyncContainer struct {
	core
	parent *AsyncContainer
	// lock is a one-slot semaphore so waiting honours ctx.
	lock  chan struct{}
	state *resolveState
}

// MakeAsyncContainer is MakeContainer for async providers.
func MakeAsyncContainer(ctx context.Context, providers []*Provider, opts ...Option) (*AsyncContainer, error) {
	o := newOptions(opts)
	env := newEnvironment(o.log, o.tracerProvider, o.meterProvider)
	ss, registries, err := buildRegistries(ctx, providers, o, env, true)
	if err != nil {
		return nil, err
	}
	path, err := rootPath(ss, o)
	if err != nil {
		return nil, err
	}
	var c *AsyncContainer
	for i, index := range path {
		c = newAsyncContainer(c, ss, registries, index, env, o.context, o.locked(true))
		c.closeParent = i > 0
	}
	return c, nil
}

func newAsyncContainer(parent *AsyncContainer, ss scopeSet, registries []*Registry, index int, env *environment, values map[Type]any, lock bool) *AsyncContainer {
	c := &AsyncContainer{
		core:   newCore(ss, registries, index, env, values),
		parent: parent,
	}
	if lock {
		c.lock = make(chan struct{}, 1)
	}
	c.cache[KeyIn(AsyncContainerType, DefaultComponent)] = c
	c.state = &resolveState{
		cache: c.cache,
		exits: &c.exits,
		env:   env,
		outer: c.outer,
	}
	fields := c.logFields()
	if parent != nil {
		fields[logger.FieldParentID] = parent.id.String()
	}
	env.log.Debug("scope entered", fields)
	return c
}

// Parent returns the container of the enclosing scope, nil for the root.
func (c *AsyncContainer) Parent() *AsyncContainer { return c.parent }

// acquire takes the lock, giving up when ctx is done first.
func (c *AsyncContainer) acquire(ctx context.Context) error {
	if c.lock == nil {
		return nil
	}
	select {
	case c.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *AsyncContainer) release() {
	if c.lock != nil {
		<-c.lock
	}
}

// Get returns the value of key, building it if needed. ctx is handed to async
// factories; it only interrupts waiting for the lock, never a running factory.
func (c *AsyncContainer) Get(ctx context.Context, key Key) (any, error) {
	key = key.Inherit(DefaultComponent)
	v, ok, err := c.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, c.noFactory(key)
	}
	return v, nil
}

func (c *AsyncContainer) outer(ctx context.Context, key Key) (any, error) {
	if v, ok := c.cache[key]; ok {
		return v, nil
	}
	if c.parent == nil {
		return nil, c.noFactory(key)
	}
	v, ok, err := c.parent.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, c.noFactory(key)
	}
	return v, nil
}

func (c *AsyncContainer) lookup(ctx context.Context, key Key) (any, bool, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, false, err
	}
	defer c.release()
	if c.closed {
		return nil, false, ErrClosed
	}
	if v, ok := c.cache[key]; ok {
		return v, true, nil
	}
	fn, err := c.Registry().compiled(key, true)
	if err != nil {
		return nil, false, err
	}
	if fn == nil {
		if c.parent == nil {
			return nil, false, nil
		}
		return c.parent.lookup(ctx, key)
	}
	v, err := fn(ctx, c.state)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Enter opens a child container like Container.Enter.
func (c *AsyncContainer) Enter(ctx context.Context, opts ...Option) (*AsyncContainer, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	closed := c.closed
	c.release()
	if closed {
		return nil, ErrClosed
	}
	o := newOptions(opts)
	path, err := c.childPath(o)
	if err != nil {
		return nil, err
	}
	_, span := c.env.startSpan(ctx, "di.enter", c.scopes[path[len(path)-1]])
	defer span.End()

	child := c
	for i, index := range path {
		child = newAsyncContainer(child, c.scopes, c.registries, index, c.env, o.context, o.locked(false))
		child.closeParent = i > 0
	}
	return child, nil
}

// Run enters a child scope, calls fn with it and closes it on every path,
// like Container.Run.
func (c *AsyncContainer) Run(ctx context.Context, fn func(context.Context, *AsyncContainer) error, opts ...Option) (err error) {
	child, err := c.Enter(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = child.CloseWithCause(context.WithoutCancel(ctx), PanicError{Value: r})
			panic(r)
		}
		if cerr := child.CloseWithCause(context.WithoutCancel(ctx), err); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(ctx, child)
}

// Close runs the container's finalizers. It is idempotent.
func (c *AsyncContainer) Close(ctx context.Context) error { return c.CloseWithCause(ctx, nil) }

// CloseWithCause is Close passing cause to every finalizer. Teardown waits for
// the lock without a deadline so finalizers always run.
func (c *AsyncContainer) CloseWithCause(ctx context.Context, cause error) error {
	if err := c.acquire(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if c.closed {
		c.release()
		return nil
	}
	c.closed = true
	ctx, span := c.env.startSpan(ctx, "di.close", c.Scope())
	scope := c.Scope().Name
	err := c.exits.close(ctx, cause, func(key Key, err error) {
		c.env.teardownFailed(ctx, scope, key, err)
	})
	clear(c.cache)
	c.release()
	c.env.log.Debug("scope exited", c.logFields())
	endSpan(span, err)

	if c.closeParent && c.parent != nil {
		err = mergeExit(err, c.parent.CloseWithCause(ctx, cause))
	}
	return err
}
