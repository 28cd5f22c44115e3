package di

// graphValidator checks that every factory's dependencies resolve within the
// same or an outer scope and that no dependency path revisits a key.
type graphValidator struct {
	registries []*Registry
	path       []Key
	onPath     map[Key]struct{}
	valid      []map[Key]struct{}
}

func newGraphValidator(registries []*Registry) *graphValidator {
	valid := make([]map[Key]struct{}, len(registries))
	for i := range valid {
		valid[i] = make(map[Key]struct{})
	}
	return &graphValidator{
		registries: registries,
		onPath:     make(map[Key]struct{}),
		valid:      valid,
	}
}

// validate walks the registries outer to inner.
func (v *graphValidator) validate() error {
	for i, r := range v.registries {
		for _, f := range r.Factories() {
			v.path = v.path[:0]
			clear(v.onPath)
			if err := v.validateFactory(f, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateKey resolves key from the registry at index, looking only at that
// scope and the outer ones.
func (v *graphValidator) validateKey(key Key, index int) error {
	if _, ok := v.valid[index][key]; ok {
		return nil
	}
	if _, ok := v.onPath[key]; ok {
		start := 0
		for i, k := range v.path {
			if k == key {
				start = i
				break
			}
		}
		cycle := append(append([]Key(nil), v.path[start:]...), key)
		return CycleDependenciesError{Path: cycle}
	}
	for i := 0; i <= index; i++ {
		if f, ok := v.registries[i].Factory(key); ok {
			return v.validateFactory(f, i)
		}
	}
	return GraphMissingFactoryError{NoFactoryError{
		Requested:   key,
		Path:        append([]Key(nil), v.path...),
		Suggestions: suggestFor(v.registries, key, index),
	}}
}

func (v *graphValidator) validateFactory(f *Factory, index int) error {
	key := f.Provides
	if _, ok := v.valid[index][key]; ok {
		return nil
	}
	v.path = append(v.path, key)
	v.onPath[key] = struct{}{}

	check := func(dep Key) error {
		// A decorator referencing its own key is the expected self-edge.
		if dep == key && f.IsDecorator() {
			return nil
		}
		// Variables are only known once a generic factory is specialized.
		if dep.typ.HasVars() {
			return nil
		}
		return v.validateKey(dep, index)
	}
	for _, dep := range f.Dependencies {
		if err := check(dep); err != nil {
			return err
		}
	}
	for _, name := range f.kwNames() {
		if err := check(f.KwDependencies[name]); err != nil {
			return err
		}
	}

	v.path = v.path[:len(v.path)-1]
	delete(v.onPath, key)
	v.valid[index][key] = struct{}{}
	return nil
}
