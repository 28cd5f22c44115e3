// Package di is a scoped dependency injection engine.
//
// Dependencies are declared on Providers as factories, aliases, decorators
// and context variables. Each declaration names a Type descriptor, a scope
// and optionally a component. MakeContainer turns the providers into one
// Registry per scope, validates the graph (cycles, missing factories,
// override conflicts) and returns the root Container.
//
// Design goals:
//   - Explicit keys: types are interned descriptors, not reflection. TypeFor
//     only derives a name from a Go type.
//   - Fail at build: graph errors abort MakeContainer, never the first Get.
//   - Scoped lifetimes: values are cached per container and torn down in
//     reverse construction order when the container is closed.
//   - Generics by unification: a factory for Repo[~T] serves Repo[User] and
//     Repo[Order] by specialization.
//
// Example:
//
//	p := di.NewProvider(di.ProviderScope(di.App))
//	p.ProvideValue(Port, 8080)
//	p.Provide(Addr, func(d di.Deps) (any, error) {
//		return fmt.Sprintf(":%d", di.Arg[int](d, 0)), nil
//	}, di.RequiresTypes(Port), di.InScope(di.Request))
//
//	c, err := di.MakeContainer([]*di.Provider{p})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	err = c.Run(func(req *di.Container) error {
//		addr, err := req.Get(di.KeyOf(Addr))
//		...
//	})
//
// Concurrency: a Container is safe for concurrent Get calls only when locked
// (WithLock). Containers returned by MakeContainer are locked by default.
// AsyncContainer runs async factories and honours context cancellation while
// waiting for its lock.
package di
