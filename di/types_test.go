package di_test

import (
	htmltemplate "html/template"
	"testing"
	texttemplate "text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/scoped/di"
)

type typesTestModel struct{}

// TypeFor / Named
func TestTypeFor_Names(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "int", di.TypeFor[int]().String())
	assert.Equal(t, "*github.com/sghaida/scoped/di_test.typesTestModel", di.TypeFor[*typesTestModel]().String())
	assert.Equal(t, "map[string][]*github.com/sghaida/scoped/di_test.typesTestModel", di.TypeFor[map[string][]*typesTestModel]().String())
	assert.Equal(t, "<-chan [2]int", di.TypeFor[<-chan [2]int]().String())
	assert.Equal(t, "github.com/sghaida/scoped/di_test.typesTestModel", di.TypeFor[typesTestModel]().String())
	assert.Equal(t, di.TypeFor[int](), di.Named("int"))
}

func TestTypeFor_SamePackageNameDifferentPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b di.Type
	}{
		{"pointer", di.TypeFor[*texttemplate.Template](), di.TypeFor[*htmltemplate.Template]()},
		{"slice", di.TypeFor[[]*texttemplate.Template](), di.TypeFor[[]*htmltemplate.Template]()},
		{"map", di.TypeFor[map[string]texttemplate.FuncMap](), di.TypeFor[map[string]htmltemplate.FuncMap]()},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.NotEqual(t, tc.a, tc.b)
			assert.NotEqual(t, di.KeyOf(tc.a), di.KeyOf(tc.b))
		})
	}
}

func TestNamed_Interned(t *testing.T) {
	t.Parallel()

	a := di.Named("types.Interned")
	b := di.Named("types.Interned")
	assert.Equal(t, a, b)
	assert.True(t, di.Named("").IsZero())
	assert.False(t, a.IsZero())
	assert.Equal(t, "types.Interned", a.Name())
}

// Of / Var
func TestOf_Parameterized(t *testing.T) {
	t.Parallel()

	list := di.Named("types.List")
	user := di.Named("types.User")
	lu := list.Of(user)

	assert.Equal(t, "types.List[types.User]", lu.String())
	assert.Equal(t, lu, list.Of(user))
	assert.True(t, lu.IsParameterized())
	assert.Equal(t, list, lu.Origin())
	assert.Equal(t, []di.Type{user}, lu.Args())
	assert.Equal(t, list, list.Origin())
	assert.Nil(t, list.Args())

	assert.True(t, list.Of().IsZero())
	assert.True(t, list.Of(di.Type{}).IsZero())
	assert.True(t, lu.Of(user).IsZero(), "parameterized types cannot be parameterized again")
}

func TestVar_HasVars(t *testing.T) {
	t.Parallel()

	list := di.Named("types.VarList")
	pair := di.Named("types.Pair")
	k := di.Var("K")
	v := di.Var("V")

	assert.True(t, k.IsVar())
	assert.True(t, k.HasVars())
	assert.True(t, list.Of(k).HasVars())
	assert.False(t, list.Of(list).HasVars())
	assert.Equal(t, []di.Type{k, v}, pair.Of(k, list.Of(v), k).Vars())
	assert.True(t, di.Var("").IsZero())
	assert.Equal(t, di.Var("K"), k)
}

// IsSubtype / Implements
func TestIsSubtype(t *testing.T) {
	t.Parallel()

	closer := di.Named("types.Closer")
	resource := di.Named("types.Resource", di.Implements(closer))
	file := di.Named("types.File", di.Implements(resource))
	other := di.Named("types.Other")

	assert.True(t, file.IsSubtype(file))
	assert.True(t, file.IsSubtype(resource))
	assert.True(t, file.IsSubtype(closer), "subtyping is transitive")
	assert.False(t, closer.IsSubtype(file))
	assert.False(t, other.IsSubtype(closer))
	assert.False(t, di.Type{}.IsSubtype(closer))
}

// Match / Substitute
func TestMatch(t *testing.T) {
	t.Parallel()

	entity := di.Named("match.Entity")
	user := di.Named("match.User", di.Implements(entity))
	order := di.Named("match.Order")
	repo := di.Named("match.Repo")
	pair := di.Named("match.Pair")

	tT := di.Var("T")
	tBound := di.Var("E", di.Bound(entity))
	tOneOf := di.Var("C", di.Constraints(user, order))

	tests := []struct {
		name    string
		pattern di.Type
		target  di.Type
		ok      bool
		binds   di.Bindings
	}{
		{"exact", repo.Of(user), repo.Of(user), true, di.Bindings{}},
		{"different origin", repo.Of(tT), pair.Of(user), false, nil},
		{"free var", repo.Of(tT), repo.Of(order), true, di.Bindings{tT: order}},
		{"bound satisfied", repo.Of(tBound), repo.Of(user), true, di.Bindings{tBound: user}},
		{"bound violated", repo.Of(tBound), repo.Of(order), false, nil},
		{"constraint satisfied", repo.Of(tOneOf), repo.Of(order), true, di.Bindings{tOneOf: order}},
		{"constraint violated", repo.Of(tOneOf), repo.Of(entity), false, nil},
		{"consistent binding", pair.Of(tT, tT), pair.Of(user, user), true, di.Bindings{tT: user}},
		{"inconsistent binding", pair.Of(tT, tT), pair.Of(user, order), false, nil},
		{"nested", repo.Of(pair.Of(tT, order)), repo.Of(pair.Of(user, order)), true, di.Bindings{tT: user}},
		{"arity", pair.Of(tT, tT), pair.Of(user), false, nil},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, ok := di.Match(tc.pattern, tc.target)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.binds, b)
			}
		})
	}
}

func TestSubstitute(t *testing.T) {
	t.Parallel()

	repo := di.Named("subst.Repo")
	pair := di.Named("subst.Pair")
	user := di.Named("subst.User")
	tT := di.Var("T")
	tU := di.Var("U")

	b := di.Bindings{tT: user}
	assert.Equal(t, repo.Of(user), repo.Of(tT).Substitute(b))
	assert.Equal(t, pair.Of(user, tU), pair.Of(tT, tU).Substitute(b))
	assert.Equal(t, user, tT.Substitute(b))
	assert.Equal(t, repo, repo.Substitute(b))
	assert.Equal(t, di.MetaOf(user), di.MetaOf(tT).Substitute(b))
}

// Keys
func TestKeys(t *testing.T) {
	t.Parallel()

	cfg := di.Named("keys.Config")

	unqualified := di.KeyOf(cfg)
	assert.False(t, unqualified.Qualified())
	assert.Equal(t, cfg, unqualified.Type())

	inDefault := di.KeyIn(cfg, di.DefaultComponent)
	assert.True(t, inDefault.Qualified())
	assert.NotEqual(t, unqualified, inDefault)
	assert.Equal(t, inDefault, unqualified.Inherit(di.DefaultComponent))

	inOther := di.KeyIn(cfg, "other")
	assert.Equal(t, inOther, inOther.Inherit(di.DefaultComponent), "qualified keys keep their component")
	component, ok := inOther.Component()
	assert.Equal(t, "other", component)
	assert.True(t, ok)

	assert.Equal(t, "keys.Config", inDefault.String())
	assert.Equal(t, `keys.Config (component "other")`, inOther.String())
	assert.Equal(t, di.KeyIn(di.Named("keys.Other"), "other"), inOther.WithType(di.Named("keys.Other")))

	m := map[di.Key]int{inDefault: 1, inOther: 2}
	assert.Equal(t, 1, m[di.KeyIn(di.Named("keys.Config"), "")])
}
