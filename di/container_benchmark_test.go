package di_test

import (
	"context"
	"testing"

	"github.com/sghaida/scoped/di"
)

/*
   Shared helpers (NOT counted in benchmarks)
*/

func benchProviders() []*di.Provider {
	p := di.NewProvider(di.ProviderScope(di.App))
	di.ProvideValueOf(p, dsn("postgres"))
	di.Provide1(p, func(d dsn) (*store, error) { return &store{DSN: d}, nil })
	di.ProvideValueOf(p, 8080)
	di.Provide0(p, func() (string, error) { return "bench", nil }, di.InScope(di.Request))
	di.Provide3(p, func(r *store, name string, port int) (*billing, error) {
		return &billing{Store: r, Name: name, Port: port}, nil
	}, di.InScope(di.Request))
	return providers(p)
}

func newBenchContainer(b *testing.B, opts ...di.Option) *di.Container {
	b.Helper()
	c, err := di.MakeContainer(benchProviders(), opts...)
	if err != nil {
		b.Fatal(err)
	}
	return c
}

/*
   Benchmarks
*/

func BenchmarkMakeContainer(b *testing.B) {
	ps := benchProviders()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, err := di.MakeContainer(ps)
		if err != nil {
			b.Fatal(err)
		}
		_ = c.Close()
	}
}

func BenchmarkGet_Cached(b *testing.B) {
	c := newBenchContainer(b)
	key := di.KeyOf(di.TypeFor[*store]())
	_, _ = c.Get(key)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(key)
	}
}

func BenchmarkGet_Unlocked(b *testing.B) {
	c := newBenchContainer(b, di.WithLock(false))
	key := di.KeyOf(di.TypeFor[*store]())
	_, _ = c.Get(key)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(key)
	}
}

func BenchmarkEnter_ResolveRequestGraph(b *testing.B) {
	c := newBenchContainer(b)
	key := di.KeyOf(di.TypeFor[*billing]())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req, err := c.Enter()
		if err != nil {
			b.Fatal(err)
		}
		_, _ = req.Get(key)
		_ = req.Close()
	}
}

func BenchmarkResolve_Typed(b *testing.B) {
	c := newBenchContainer(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = di.Resolve[*store](c)
	}
}

func BenchmarkAsyncEnter_ResolveRequestGraph(b *testing.B) {
	ctx := context.Background()
	c, err := di.MakeAsyncContainer(ctx, benchProviders())
	if err != nil {
		b.Fatal(err)
	}
	key := di.KeyOf(di.TypeFor[*billing]())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req, err := c.Enter(ctx)
		if err != nil {
			b.Fatal(err)
		}
		_, _ = req.Get(ctx, key)
		_ = req.Close(ctx)
	}
}
