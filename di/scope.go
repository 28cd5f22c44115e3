package di

// Scope is a lifetime tier.
//
// Scopes are totally ordered by Level (outer to inner). A dependency may only
// live in the same or an outer scope than anything depending on it. Skip-marked
// scopes are entered implicitly when moving to the next scope.
type Scope struct {
	Name  string
	Level int
	Skip  bool
}

// The default scope set.
var (
	Runtime = Scope{Name: "RUNTIME", Level: 0, Skip: true}
	App     = Scope{Name: "APP", Level: 1}
	Session = Scope{Name: "SESSION", Level: 2, Skip: true}
	Request = Scope{Name: "REQUEST", Level: 3}
	Action  = Scope{Name: "ACTION", Level: 4}
	Step    = Scope{Name: "STEP", Level: 5}
)

// DefaultScopes returns the default ordered scope set.
func DefaultScopes() []Scope {
	return []Scope{Runtime, App, Session, Request, Action, Step}
}

// IsZero reports whether the scope was never set.
func (s Scope) IsZero() bool { return s == Scope{} }

// String returns the scope name.
func (s Scope) String() string {
	if s.IsZero() {
		return "<unset>"
	}
	return s.Name
}

// scopeSet is an ordered, validated list of scopes.
type scopeSet []Scope

func newScopeSet(scopes []Scope) (scopeSet, error) {
	if len(scopes) == 0 {
		return nil, InvalidScopeSetError{Reason: "no scopes declared"}
	}
	names := make(map[string]struct{}, len(scopes))
	for i, s := range scopes {
		if s.Name == "" {
			return nil, InvalidScopeSetError{Reason: "scope without a name"}
		}
		if _, dup := names[s.Name]; dup {
			return nil, InvalidScopeSetError{Reason: "duplicate scope " + s.Name}
		}
		names[s.Name] = struct{}{}
		if i > 0 && scopes[i-1].Level >= s.Level {
			return nil, InvalidScopeSetError{Reason: "scopes must be declared outer to inner with increasing levels"}
		}
	}
	return append(scopeSet(nil), scopes...), nil
}

// index returns the position of s or -1.
func (ss scopeSet) index(s Scope) int {
	for i, x := range ss {
		if x == s {
			return i
		}
	}
	return -1
}

// byName looks a scope up by name.
func (ss scopeSet) byName(name string) (Scope, bool) {
	for _, x := range ss {
		if x.Name == name {
			return x, true
		}
	}
	return Scope{}, false
}
