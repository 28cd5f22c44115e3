package di

import "strconv"

// DefaultComponent is the component of keys that never name one.
const DefaultComponent = ""

// Key identifies a dependency: a type plus an optional component.
//
// A key built with KeyOf is unqualified and inherits the component of
// whoever declares it. KeyIn pins the component. Two keys are equal iff their
// types, their components and their qualified flags are equal; registries
// only ever store qualified keys.
type Key struct {
	typ       Type
	component string
	qualified bool
}

// KeyOf returns the unqualified key of t.
func KeyOf(t Type) Key { return Key{typ: t} }

// KeyIn returns the key of t pinned to component.
func KeyIn(t Type, component string) Key {
	return Key{typ: t, component: component, qualified: true}
}

// Type returns the type of the key.
func (k Key) Type() Type { return k.typ }

// Component returns the component and whether the key is qualified.
func (k Key) Component() (string, bool) { return k.component, k.qualified }

// Qualified reports whether the key names its component.
func (k Key) Qualified() bool { return k.qualified }

// Inherit qualifies an unqualified key with component.
// Qualified keys are returned unchanged.
func (k Key) Inherit(component string) Key {
	if k.qualified {
		return k
	}
	return KeyIn(k.typ, component)
}

// WithType returns the key with its type replaced, keeping the component.
func (k Key) WithType(t Type) Key {
	k.typ = t
	return k
}

// String returns a readable form, used in error messages.
func (k Key) String() string {
	if !k.qualified || k.component == DefaultComponent {
		return k.typ.String()
	}
	return k.typ.String() + " (component " + strconv.Quote(k.component) + ")"
}
