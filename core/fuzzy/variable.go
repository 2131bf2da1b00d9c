package fuzzy

import (
	"fmt"
	"math"

	"example.com/fuzzy-infusion/base/floats"
)

// Term is a named fuzzy set over its variable's universe. Terms are
// immutable once added.
type Term struct {
	Name  string
	Shape Shape
}

// Variable is one linguistic variable: a universe of discourse, optional
// plausibility bounds for raw readings, and an ordered set of terms.
type Variable struct {
	name      string
	min, max  float64
	sanityLo  float64
	sanityHi  float64
	hasSanity bool
	terms     []Term
}

func (v *Variable) Name() string { return v.name }
func (v *Variable) Min() float64 { return v.min }
func (v *Variable) Max() float64 { return v.max }

// Sanity returns the hard plausibility bounds for crisp readings and
// whether they have been set.
func (v *Variable) Sanity() (lo, hi float64, ok bool) {
	return v.sanityLo, v.sanityHi, v.hasSanity
}

// SetSanity declares the plausibility bounds used by evaluation-time input
// checks: readings outside [lo, hi] are rejected rather than clamped. The
// bounds must contain the universe.
func (v *Variable) SetSanity(lo, hi float64) error {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > v.min || hi < v.max {
		return fmt.Errorf("%w: sanity range [%v, %v] must contain universe [%v, %v] of variable %q",
			ErrConfiguration, lo, hi, v.min, v.max, v.name)
	}
	v.sanityLo, v.sanityHi = lo, hi
	v.hasSanity = true
	return nil
}

// Terms returns the variable's terms in declaration order. The returned
// slice must not be modified.
func (v *Variable) Terms() []Term { return v.terms }

// Term looks up a term by name.
func (v *Variable) Term(name string) (Term, bool) {
	for _, t := range v.terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

func (v *Variable) addTerm(name string, s Shape) error {
	if name == "" {
		return fmt.Errorf("%w: empty term name for variable %q", ErrConfiguration, v.name)
	}
	if _, ok := v.Term(name); ok {
		return fmt.Errorf("%w: term %q already defined for variable %q",
			ErrConfiguration, name, v.name)
	}
	err := s.validate()
	if err != nil {
		return fmt.Errorf("term %q of variable %q: %w", name, v.name, err)
	}
	v.terms = append(v.terms, Term{Name: name, Shape: s})
	return nil
}

// degree computes the membership of crisp in the given term after clamping
// crisp into the universe.
func (v *Variable) degree(t Term, crisp float64) float64 {
	return t.Shape.Degree(floats.Clamp(crisp, v.min, v.max))
}
