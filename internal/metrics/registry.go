package metrics

import (
	"errors"
	"fmt"
)

// ErrUnknownMetric is returned by Registry.Get for names that were never
// registered. Callers resolving a run configuration treat it as fatal.
var ErrUnknownMetric = errors.New("unknown metric")

// DuplicateNameError reports an attempt to register a second factory under
// an already-taken name. Registration never overwrites silently.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("metric %q is already registered", e.Name)
}

// Factory constructs a parameterized Algorithm instance.
type Factory func(p Params) (Algorithm, error)

// Registry maps metric names to factories. It is a plain value scoped to one
// run; there is deliberately no package-global registry, so concurrent or
// repeated runs cannot collide through shared registration state.
type Registry struct {
	order     []string
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name. Duplicate names fail with a
// *DuplicateNameError.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("metric name must not be empty")
	}
	if f == nil {
		return fmt.Errorf("metric %q: nil factory", name)
	}
	if _, exists := r.factories[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	r.factories[name] = f
	r.order = append(r.order, name)
	return nil
}

// mustRegister panics on registration failure; used only while assembling
// the built-in registry.
func (r *Registry) mustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Get constructs an instance of the named metric with the given parameters.
// Unknown names return an error wrapping ErrUnknownMetric.
func (r *Registry) Get(name string, p Params) (Algorithm, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownMetric)
	}
	alg, err := f(p)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}
	return alg, nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Describe returns the description of the named metric constructed with
// default parameters, or "" if construction fails.
func (r *Registry) Describe(name string) string {
	alg, err := r.Get(name, nil)
	if err != nil {
		return ""
	}
	return alg.Description()
}
