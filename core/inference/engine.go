// Mamdani-style fuzzy inference: fuzzification, rule firing, per-term max
// aggregation, centroid defuzzification.
//
// See E. H. Mamdani, S. Assilian, An Experiment in Linguistic Synthesis
// with a Fuzzy Logic Controller
// International Journal of Man-Machine Studies 7 (1), 1975

package inference

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"example.com/fuzzy-infusion/core/fuzzy"
	"example.com/fuzzy-infusion/core/rules"
)

// ErrNoRuleFired reports an aggregate output membership that is identically
// zero. The engine never substitutes a default; the caller owns the safe
// fallback (e.g. hold the previous rate).
var ErrNoRuleFired = errors.New("no rule fired")

// DefaultResolution is the number of sampling intervals across the output
// universe used for centroid defuzzification.
const DefaultResolution = 1000

// Engine runs one full control-step evaluation against a configured
// registry and rule base. It holds no evaluation-scoped state; concurrent
// Evaluate calls are safe once configuration is complete and left
// unmutated.
type Engine struct {
	Registry   *fuzzy.Registry
	Rules      *rules.Base
	Resolution int // sampling intervals, DefaultResolution if 0
}

// TermActivation is the clip level of one output term after max
// aggregation across all rules with that consequent.
type TermActivation struct {
	Term     string
	Strength float64
}

// Point is one sample of the aggregate output fuzzy set.
type Point struct {
	X      float64
	Degree float64
}

// Result is one evaluation's full outcome, created fresh per call and
// owned by the caller.
type Result struct {
	Value       float64            // defuzzified crisp output
	Snapshot    fuzzy.Snapshot     // degree of every term of every input variable
	Activations []rules.Activation // rules that fired, declaration order
	Aggregate   []TermActivation   // clip level per output term, term order
	Curve       []Point            // sampled aggregate set, Resolution+1 points
}

// Evaluate computes the crisp output for one set of crisp inputs, keyed by
// variable name. Every non-output variable of the registry is required.
// Inputs outside a variable's sanity range fail with an input error;
// in-range values are clamped into the universe by fuzzification.
func (e *Engine) Evaluate(inputs map[string]float64) (*Result, error) {
	if e.Registry == nil || e.Rules == nil {
		return nil, fmt.Errorf("%w: engine is missing a registry or rule base",
			fuzzy.ErrConfiguration)
	}
	res := e.Resolution
	if res == 0 {
		res = DefaultResolution
	}
	if res < 1 {
		return nil, fmt.Errorf("%w: resolution must be positive", fuzzy.ErrConfiguration)
	}
	output := e.Rules.Output()

	err := e.checkInputs(inputs, output)
	if err != nil {
		return nil, err
	}

	var snap fuzzy.Snapshot
	for _, v := range e.Registry.Variables() {
		if v.Name() == output {
			continue
		}
		row, err := e.Registry.Fuzzify(v.Name(), inputs[v.Name()])
		if err != nil {
			return nil, err
		}
		snap.Rows = append(snap.Rows, row)
	}

	acts := e.Rules.Evaluate(snap)

	out, ok := e.Registry.Lookup(output)
	if !ok {
		panic("unexpected unregistered output variable")
	}
	terms := out.Terms()
	agg := make([]TermActivation, len(terms))
	for i, t := range terms {
		agg[i] = TermActivation{Term: t.Name}
	}
	for _, a := range acts {
		for i := range agg {
			if agg[i].Term == a.Consequent {
				if a.Strength > agg[i].Strength {
					agg[i].Strength = a.Strength
				}
				break
			}
		}
	}

	lo, hi := out.Min(), out.Max()
	curve := make([]Point, 0, res+1)
	num, den := 0.0, 0.0
	for i := 0; i <= res; i++ {
		x := lo + (hi-lo)*float64(i)/float64(res)
		mu := 0.0
		for j := range terms {
			m := terms[j].Shape.Degree(x)
			if agg[j].Strength < m {
				m = agg[j].Strength
			}
			if m > mu {
				mu = m
			}
		}
		curve = append(curve, Point{X: x, Degree: mu})
		num += x * mu
		den += mu
	}
	if den == 0 {
		return nil, fmt.Errorf("%w: aggregate output membership is identically zero",
			ErrNoRuleFired)
	}

	fired := make([]rules.Activation, 0, len(acts))
	for _, a := range acts {
		if a.Strength > 0 {
			fired = append(fired, a)
		}
	}

	return &Result{
		Value:       num / den,
		Snapshot:    snap,
		Activations: fired,
		Aggregate:   agg,
		Curve:       curve,
	}, nil
}

// checkInputs requires exactly the registry's non-output variables, each
// with a plausible value. Violations are reported in a deterministic
// order: registry order for missing or implausible inputs, sorted name
// order for unexpected ones.
func (e *Engine) checkInputs(inputs map[string]float64, output string) error {
	required := 0
	for _, v := range e.Registry.Variables() {
		if v.Name() == output {
			continue
		}
		required++
		x, ok := inputs[v.Name()]
		if !ok {
			return fmt.Errorf("%w: missing input for variable %q", fuzzy.ErrInput, v.Name())
		}
		if math.IsNaN(x) {
			return fmt.Errorf("%w: input for variable %q is NaN", fuzzy.ErrInput, v.Name())
		}
		lo, hi, ok := v.Sanity()
		if ok && (x < lo || x > hi) {
			return fmt.Errorf("%w: input %v for variable %q outside sanity range [%v, %v]",
				fuzzy.ErrInput, x, v.Name(), lo, hi)
		}
	}
	if len(inputs) == required {
		return nil
	}
	extras := make([]string, 0, len(inputs)-required)
	for name := range inputs {
		v, ok := e.Registry.Lookup(name)
		if !ok || v.Name() == output {
			extras = append(extras, name)
		}
	}
	slices.Sort(extras)
	if len(extras) == 0 {
		panic("unexpected input count")
	}
	return fmt.Errorf("%w: unexpected input variable %q", fuzzy.ErrInput, extras[0])
}
