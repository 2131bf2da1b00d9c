package fuzzy

import (
	"fmt"
	"math"
)

// Registry owns the universe and term definitions of every linguistic
// variable. The intended lifecycle is configure once, then read-only:
// concurrent evaluation is safe as long as nothing mutates the registry.
type Registry struct {
	vars []*Variable
}

func NewRegistry() *Registry {
	return &Registry{}
}

// DefineVariable registers a new linguistic variable with universe
// [min, max].
func (r *Registry) DefineVariable(name string, min, max float64) (*Variable, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty variable name", ErrConfiguration)
	}
	if math.IsNaN(min) || math.IsNaN(max) || !(min < max) {
		return nil, fmt.Errorf("%w: universe of variable %q must satisfy min < max, got [%v, %v]",
			ErrConfiguration, name, min, max)
	}
	if _, ok := r.Lookup(name); ok {
		return nil, fmt.Errorf("%w: variable %q already defined", ErrConfiguration, name)
	}
	v := &Variable{name: name, min: min, max: max}
	r.vars = append(r.vars, v)
	return v, nil
}

func (r *Registry) Lookup(name string) (*Variable, bool) {
	for _, v := range r.vars {
		if v.name == name {
			return v, true
		}
	}
	return nil, false
}

// Variables returns all variables in definition order. The returned slice
// must not be modified.
func (r *Registry) Variables() []*Variable { return r.vars }

// AddTerm adds a named term with the given membership function to a
// variable.
func (r *Registry) AddTerm(variable, term string, s Shape) error {
	v, ok := r.Lookup(variable)
	if !ok {
		return fmt.Errorf("%w: unknown variable %q", ErrConfiguration, variable)
	}
	return v.addTerm(term, s)
}

// MembershipDegree clamps crisp into the variable's universe and returns
// its degree of membership in the named term. Pure, no side effects.
func (r *Registry) MembershipDegree(variable, term string, crisp float64) (float64, error) {
	v, ok := r.Lookup(variable)
	if !ok {
		return 0, fmt.Errorf("%w: unknown variable %q", ErrInput, variable)
	}
	t, ok := v.Term(term)
	if !ok {
		return 0, fmt.Errorf("%w: unknown term %q of variable %q", ErrInput, term, variable)
	}
	if math.IsNaN(crisp) {
		return 0, fmt.Errorf("%w: value for variable %q is NaN", ErrInput, variable)
	}
	return v.degree(t, crisp), nil
}

// Fuzzify returns the membership degree of crisp in every term of the
// variable, in term declaration order.
func (r *Registry) Fuzzify(variable string, crisp float64) (VariableDegrees, error) {
	v, ok := r.Lookup(variable)
	if !ok {
		return VariableDegrees{}, fmt.Errorf("%w: unknown variable %q", ErrInput, variable)
	}
	if math.IsNaN(crisp) {
		return VariableDegrees{}, fmt.Errorf("%w: value for variable %q is NaN", ErrInput, variable)
	}
	if len(v.terms) == 0 {
		return VariableDegrees{}, fmt.Errorf("%w: variable %q has no terms", ErrConfiguration, variable)
	}
	row := VariableDegrees{
		Variable: v.name,
		Degrees:  make([]TermDegree, 0, len(v.terms)),
	}
	for _, t := range v.terms {
		row.Degrees = append(row.Degrees, TermDegree{Term: t.Name, Degree: v.degree(t, crisp)})
	}
	return row, nil
}
