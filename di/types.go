package di

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
)

type typeKind uint8

const (
	kindNamed typeKind = iota
	kindParam
	kindVar
)

type typeDesc struct {
	kind        typeKind
	name        string
	id          string
	origin      Type
	args        []Type
	bound       Type
	constraints []Type

	mu     sync.RWMutex
	supers map[Type]struct{}
}

// Type is an interned type descriptor.
//
// Descriptors built from the same structure are the same handle, so Type is
// comparable and can be used as a map key. The zero Type is invalid and marks
// a dependency whose type was never declared.
type Type struct{ d *typeDesc }

var interned sync.Map // canonical id -> *typeDesc

func intern(d *typeDesc) Type {
	actual, _ := interned.LoadOrStore(d.id, d)
	return Type{d: actual.(*typeDesc)}
}

// TypeOption configures a named type.
type TypeOption func(t Type)

// Implements records that the named type satisfies each iface.
//
// The relation is used when a type variable bound is checked during generic
// specialization; it replaces structural interface detection.
func Implements(ifaces ...Type) TypeOption {
	return func(t Type) {
		t.d.mu.Lock()
		defer t.d.mu.Unlock()
		if t.d.supers == nil {
			t.d.supers = make(map[Type]struct{}, len(ifaces))
		}
		for _, iface := range ifaces {
			if !iface.IsZero() {
				t.d.supers[iface] = struct{}{}
			}
		}
	}
}

// Named returns the descriptor of a plain named type.
func Named(name string, opts ...TypeOption) Type {
	if name == "" {
		return Type{}
	}
	t := intern(&typeDesc{kind: kindNamed, name: name, id: name})
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TypeFor returns the descriptor named after the Go type T.
//
// Reflection is only used to derive a stable name; the descriptor is interned
// like any other named type.
func TypeFor[T any](opts ...TypeOption) Type {
	return Named(typeName(reflect.TypeFor[T]()), opts...)
}

// typeName qualifies every named type by its import path so that types from
// packages sharing a name stay distinct.
func typeName(rt reflect.Type) string {
	if rt.Name() != "" {
		if rt.PkgPath() != "" {
			return rt.PkgPath() + "." + rt.Name()
		}
		return rt.Name()
	}
	switch rt.Kind() {
	case reflect.Pointer:
		return "*" + typeName(rt.Elem())
	case reflect.Slice:
		return "[]" + typeName(rt.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(rt.Len()) + "]" + typeName(rt.Elem())
	case reflect.Map:
		return "map[" + typeName(rt.Key()) + "]" + typeName(rt.Elem())
	case reflect.Chan:
		switch rt.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + typeName(rt.Elem())
		case reflect.SendDir:
			return "chan<- " + typeName(rt.Elem())
		}
		return "chan " + typeName(rt.Elem())
	}
	return rt.String()
}

// Of returns the parameterized type t[args...].
//
// t must be a named type; any other receiver yields the zero Type.
func (t Type) Of(args ...Type) Type {
	if t.d == nil || t.d.kind != kindNamed || len(args) == 0 {
		return Type{}
	}
	ids := make([]string, len(args))
	for i, a := range args {
		if a.IsZero() {
			return Type{}
		}
		ids[i] = a.d.id
	}
	return intern(&typeDesc{
		kind:   kindParam,
		name:   t.d.name,
		id:     t.d.id + "[" + strings.Join(ids, ", ") + "]",
		origin: t,
		args:   append([]Type(nil), args...),
	})
}

// VarOption configures a type variable.
type VarOption func(d *typeDesc)

// Bound restricts a type variable to b and the types implementing b.
func Bound(b Type) VarOption {
	return func(d *typeDesc) { d.bound = b }
}

// Constraints restricts a type variable to exactly one of ts.
func Constraints(ts ...Type) VarOption {
	return func(d *typeDesc) { d.constraints = append(d.constraints, ts...) }
}

// Var returns a type variable (a generic placeholder).
func Var(name string, opts ...VarOption) Type {
	if name == "" {
		return Type{}
	}
	d := &typeDesc{kind: kindVar, name: name}
	for _, opt := range opts {
		opt(d)
	}
	var b strings.Builder
	b.WriteString("~")
	b.WriteString(name)
	if !d.bound.IsZero() {
		b.WriteString(" <: ")
		b.WriteString(d.bound.d.id)
	}
	if len(d.constraints) > 0 {
		ids := make([]string, len(d.constraints))
		for i, c := range d.constraints {
			ids[i] = c.String()
		}
		b.WriteString(" in (" + strings.Join(ids, ", ") + ")")
	}
	d.id = b.String()
	return intern(d)
}

// metaType is the origin of MetaOf descriptors.
var metaType = Named("type")

// MetaOf returns the descriptor of "the type t itself".
//
// A dependency on MetaOf(T) inside a generic factory resolves to the concrete
// Type bound to T once the factory is specialized.
func MetaOf(t Type) Type { return metaType.Of(t) }

// IsZero reports whether t is the invalid zero descriptor.
func (t Type) IsZero() bool { return t.d == nil }

// String returns the canonical spelling of t.
func (t Type) String() string {
	if t.d == nil {
		return "<invalid>"
	}
	return t.d.id
}

// Name returns the bare name of a named type, the origin name of a
// parameterized type or the name of a type variable.
func (t Type) Name() string {
	if t.d == nil {
		return ""
	}
	return t.d.name
}

// Origin returns the unparameterized origin of t, or t itself.
func (t Type) Origin() Type {
	if t.d != nil && t.d.kind == kindParam {
		return t.d.origin
	}
	return t
}

// Args returns the type arguments of a parameterized type.
func (t Type) Args() []Type {
	if t.d == nil || t.d.kind != kindParam {
		return nil
	}
	return append([]Type(nil), t.d.args...)
}

// IsVar reports whether t is a type variable.
func (t Type) IsVar() bool { return t.d != nil && t.d.kind == kindVar }

// IsParameterized reports whether t carries type arguments.
func (t Type) IsParameterized() bool { return t.d != nil && t.d.kind == kindParam }

// HasVars reports whether t is, or contains, an unbound type variable.
func (t Type) HasVars() bool {
	if t.d == nil {
		return false
	}
	switch t.d.kind {
	case kindVar:
		return true
	case kindParam:
		for _, a := range t.d.args {
			if a.HasVars() {
				return true
			}
		}
	}
	return false
}

// Vars returns the type variables of t in order of first appearance.
func (t Type) Vars() []Type {
	var out []Type
	seen := map[Type]struct{}{}
	var walk func(Type)
	walk = func(x Type) {
		if x.d == nil {
			return
		}
		switch x.d.kind {
		case kindVar:
			if _, ok := seen[x]; !ok {
				seen[x] = struct{}{}
				out = append(out, x)
			}
		case kindParam:
			for _, a := range x.d.args {
				walk(a)
			}
		}
	}
	walk(t)
	return out
}

// IsSubtype reports whether t equals super or declares it implements super,
// directly or through another declared supertype.
func (t Type) IsSubtype(super Type) bool {
	if t == super {
		return true
	}
	if t.d == nil || super.d == nil {
		return false
	}
	seen := map[Type]struct{}{t: {}}
	queue := []Type{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		cur.d.mu.RLock()
		next := make([]Type, 0, len(cur.d.supers))
		for s := range cur.d.supers {
			next = append(next, s)
		}
		cur.d.mu.RUnlock()
		for _, s := range next {
			if s == super {
				return true
			}
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				queue = append(queue, s)
			}
		}
	}
	return false
}

// satisfies reports whether arg may be bound to the type variable v.
func satisfies(arg, v Type) bool {
	d := v.d
	if !d.bound.IsZero() {
		if arg.IsVar() {
			return !arg.d.bound.IsZero() && arg.d.bound.IsSubtype(d.bound)
		}
		if !arg.IsSubtype(d.bound) && !arg.Origin().IsSubtype(d.bound) {
			return false
		}
	}
	if len(d.constraints) > 0 {
		for _, c := range d.constraints {
			if c == arg {
				return true
			}
		}
		return false
	}
	return true
}

// Bindings maps type variables to the types substituted for them.
type Bindings map[Type]Type

// Match unifies the pattern (which may contain type variables) with t.
//
// It reports whether pattern is broader than or equal to t and returns the
// bindings discovered for the pattern's variables. Each variable binds
// consistently and must satisfy its bound and constraints.
func Match(pattern, t Type) (Bindings, bool) {
	b := Bindings{}
	if !unify(pattern, t, b) {
		return nil, false
	}
	return b, true
}

func unify(pattern, t Type, b Bindings) bool {
	if pattern.d == nil || t.d == nil {
		return false
	}
	switch pattern.d.kind {
	case kindVar:
		if prev, ok := b[pattern]; ok {
			return prev == t
		}
		if !satisfies(t, pattern) {
			return false
		}
		b[pattern] = t
		return true
	case kindParam:
		if t.d.kind != kindParam || t.d.origin != pattern.d.origin || len(t.d.args) != len(pattern.d.args) {
			return false
		}
		for i := range pattern.d.args {
			if !unify(pattern.d.args[i], t.d.args[i], b) {
				return false
			}
		}
		return true
	default:
		return pattern == t
	}
}

// Substitute rewrites every bound variable of t.
func (t Type) Substitute(b Bindings) Type {
	if t.d == nil || len(b) == 0 {
		return t
	}
	switch t.d.kind {
	case kindVar:
		if r, ok := b[t]; ok {
			return r
		}
		return t
	case kindParam:
		args := make([]Type, len(t.d.args))
		changed := false
		for i, a := range t.d.args {
			args[i] = a.Substitute(b)
			changed = changed || args[i] != a
		}
		if !changed {
			return t
		}
		return t.d.origin.Of(args...)
	default:
		return t
	}
}
