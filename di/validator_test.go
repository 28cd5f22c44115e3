package di_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/scoped/di"
)

func constant(v any) di.PlainFunc {
	return func(di.Deps) (any, error) { return v, nil }
}

func TestValidator_Cycle(t *testing.T) {
	t.Parallel()

	a, b, c := di.Named("cycle.A"), di.Named("cycle.B"), di.Named("cycle.C")
	p := di.NewProvider(di.ProviderScope(di.App))
	p.Provide(a, constant("a"), di.RequiresTypes(b))
	p.Provide(b, constant("b"), di.RequiresTypes(c))
	p.Provide(c, constant("c"), di.RequiresTypes(a))

	_, err := di.MakeContainer(providers(p))
	var e di.CycleDependenciesError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []di.Key{di.KeyIn(a, ""), di.KeyIn(b, ""), di.KeyIn(c, ""), di.KeyIn(a, "")}, e.Path)
	assert.Equal(t, "di: cycle dependencies: cycle.A -> cycle.B -> cycle.C -> cycle.A", err.Error())
}

func TestValidator_CycleDetectedAtResolveWhenSkipped(t *testing.T) {
	t.Parallel()

	a, b := di.Named("cycleskip.A"), di.Named("cycleskip.B")
	p := di.NewProvider(di.ProviderScope(di.App))
	p.Provide(a, constant("a"), di.RequiresTypes(b))
	p.Provide(b, constant("b"), di.RequiresTypes(a))

	c, err := di.MakeContainer(providers(p), di.SkipValidation())
	require.NoError(t, err)

	_, err = c.Get(di.KeyOf(a))
	var e di.CycleDependenciesError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []di.Key{di.KeyIn(a, ""), di.KeyIn(b, ""), di.KeyIn(a, "")}, e.Path)
}

func TestValidator_MissingFactory(t *testing.T) {
	t.Parallel()

	a, b, missing := di.Named("missing.A"), di.Named("missing.B"), di.Named("missing.Dep")
	p := di.NewProvider(di.ProviderScope(di.App))
	p.Provide(a, constant("a"), di.RequiresTypes(b))
	p.Provide(b, constant("b"), di.RequiresTypes(missing))

	_, err := di.MakeContainer(providers(p))
	var e di.GraphMissingFactoryError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, di.KeyIn(missing, ""), e.Requested)
	assert.Equal(t, []di.Key{di.KeyIn(a, ""), di.KeyIn(b, "")}, e.Path)
	assert.Contains(t, err.Error(), "required by missing.A -> missing.B")
}

func TestValidator_MissingFactoryWhenSkipped(t *testing.T) {
	t.Parallel()

	a, missing := di.Named("missingskip.A"), di.Named("missingskip.Dep")
	p := di.NewProvider(di.ProviderScope(di.App))
	p.Provide(a, constant("a"), di.RequiresTypes(missing))

	c, err := di.MakeContainer(providers(p), di.SkipValidation())
	require.NoError(t, err)

	_, err = c.Get(di.KeyOf(a))
	var nf di.NoFactoryError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, di.KeyIn(missing, ""), nf.Requested)
}

func TestValidator_Suggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		declare func() []*di.Provider
		hint    string
	}{
		{
			name: "inner scope",
			declare: func() []*di.Provider {
				p := di.NewProvider(di.ProviderScope(di.App))
				p.Provide(tString, constant("s"), di.RequiresTypes(tInt))
				p.ProvideValue(tInt, 1, di.InScope(di.Request))
				return providers(p)
			},
			hint: "int is provided in inner scope REQUEST; it cannot be used from APP",
		},
		{
			name: "other component",
			declare: func() []*di.Provider {
				p := di.NewProvider(di.ProviderScope(di.App))
				p.Provide(tString, constant("s"), di.RequiresTypes(tInt))
				other := di.NewProvider(di.ProviderScope(di.App), di.ProviderComponent("db"))
				other.ProvideValue(tInt, 1)
				return providers(p, other)
			},
			hint: `did you mean int (component "db") in scope APP?`,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := di.MakeContainer(tc.declare())
			var e di.GraphMissingFactoryError
			require.ErrorAs(t, err, &e)
			assert.Contains(t, e.Suggestions, tc.hint)
			assert.Contains(t, err.Error(), "hint: "+tc.hint)
		})
	}
}

func TestValidator_OuterScopeDependenciesAreValid(t *testing.T) {
	t.Parallel()

	p := di.NewProvider(di.ProviderScope(di.App))
	p.ProvideValue(tInt, 1, di.InScope(di.Runtime))
	p.Provide(tString, constant("s"), di.RequiresTypes(tInt))
	p.Provide(tGreeting, constant(&greeting{}), di.RequiresTypes(tString, tInt), di.InScope(di.Step))

	_, err := di.MakeContainer(providers(p))
	require.NoError(t, err)
}

func TestValidator_DecoratorDependingOnInnerScope(t *testing.T) {
	t.Parallel()

	p := di.NewProvider(di.ProviderScope(di.App))
	p.Provide(tString, constant("s"))
	p.ProvideValue(tInt, 1, di.InScope(di.Request))
	p.Decorate(tString, func(d di.Deps) (any, error) { return d.At(0), nil }, di.RequiresTypes(tInt))

	_, err := di.MakeContainer(providers(p))
	var e di.GraphMissingFactoryError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, di.KeyIn(tInt, ""), e.Requested)
}
