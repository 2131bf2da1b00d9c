package inference_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"example.com/fuzzy-infusion/core/fuzzy"
	"example.com/fuzzy-infusion/core/inference"
	"example.com/fuzzy-infusion/core/rules"
)

func newTestRegistry(t *testing.T) *fuzzy.Registry {
	t.Helper()
	r := fuzzy.NewRegistry()
	type term struct {
		name  string
		shape fuzzy.Shape
	}
	vars := []struct {
		name     string
		min, max float64
		terms    []term
	}{
		{
			name: "level", min: 0, max: 10,
			terms: []term{
				{"low", fuzzy.Triangle(0, 0, 10)},
				{"high", fuzzy.Triangle(0, 10, 10)},
			},
		},
		{
			name: "aux", min: 0, max: 10,
			terms: []term{
				{"on", fuzzy.Triangle(0, 0, 10)},
			},
		},
		{
			name: "out", min: 0, max: 100,
			terms: []term{
				{"none", fuzzy.Triangle(0, 0, 15)},
				{"lowband", fuzzy.Triangle(10, 20, 30)},
				{"mid", fuzzy.Triangle(40, 60, 80)},
				{"highband", fuzzy.Triangle(70, 80, 90)},
			},
		},
	}
	for _, v := range vars {
		_, err := r.DefineVariable(v.name, v.min, v.max)
		if err != nil {
			t.Fatalf("failed to define variable %q: %v", v.name, err)
		}
		for _, tm := range v.terms {
			err = r.AddTerm(v.name, tm.name, tm.shape)
			if err != nil {
				t.Fatalf("failed to add term %q: %v", tm.name, err)
			}
		}
	}
	return r
}

type testRule struct {
	name   string
	when   string
	then   string
	weight float64
}

func newTestEngine(t *testing.T, reg *fuzzy.Registry, trs []testRule) *inference.Engine {
	t.Helper()
	base, err := rules.NewBase(reg, "out")
	if err != nil {
		t.Fatalf("failed to create rule base: %v", err)
	}
	for _, tr := range trs {
		err = base.AddString(tr.name, tr.when, tr.then, tr.weight)
		if err != nil {
			t.Fatalf("failed to add rule %q: %v", tr.name, err)
		}
	}
	return &inference.Engine{Registry: reg, Rules: base}
}

func TestEvaluateCentroid(t *testing.T) {
	tests := []struct {
		name     string
		rules    []testRule
		inputs   map[string]float64
		want     float64
		wantPeak float64
	}{
		{
			name:     "left shoulder at full strength",
			rules:    []testRule{{"suspend", "level is low", "none", 1}},
			inputs:   map[string]float64{"level": 0, "aux": 10},
			want:     4.966666666666668,
			wantPeak: 1,
		},
		{
			name:     "symmetric triangle at full strength",
			rules:    []testRule{{"hold", "level is low", "mid", 1}},
			inputs:   map[string]float64{"level": 0, "aux": 10},
			want:     60.00000000000001,
			wantPeak: 1,
		},
		{
			name:     "clipped triangle stays symmetric",
			rules:    []testRule{{"hold", "level is low", "mid", 1}},
			inputs:   map[string]float64{"level": 5, "aux": 10},
			want:     60.000000000000036,
			wantPeak: 0.5,
		},
		{
			name: "disjoint bands balance",
			rules: []testRule{
				{"lower", "level is low", "lowband", 1},
				{"upper", "aux is on", "highband", 1},
			},
			inputs:   map[string]float64{"level": 0, "aux": 0},
			want:     50,
			wantPeak: 1,
		},
		{
			name: "same consequent takes the max",
			rules: []testRule{
				{"strong", "level is low", "mid", 1},
				{"weak", "aux is on", "mid", 1},
			},
			inputs:   map[string]float64{"level": 4, "aux": 7},
			want:     60.000000000000185,
			wantPeak: 0.6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, newTestRegistry(t), tt.rules)
			res, err := e.Evaluate(tt.inputs)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if math.Abs(res.Value-tt.want) > 1e-9 {
				t.Errorf("Evaluate value: got %v, want %v", res.Value, tt.want)
			}
			peak := 0.0
			for _, p := range res.Curve {
				if p.Degree > peak {
					peak = p.Degree
				}
			}
			if peak != tt.wantPeak {
				t.Errorf("aggregate curve peak: got %v, want %v", peak, tt.wantPeak)
			}
		})
	}
}

func TestEvaluateResult(t *testing.T) {
	e := newTestEngine(t, newTestRegistry(t), []testRule{
		{"a", "level is low", "mid", 1},
		{"b", "aux is on", "none", 0.5},
	})
	res, err := e.Evaluate(map[string]float64{"level": 4, "aux": 7})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if want := 54.13134860410145; math.Abs(res.Value-want) > 1e-9 {
		t.Errorf("value: got %v, want %v", res.Value, want)
	}

	wantSnap := fuzzy.Snapshot{Rows: []fuzzy.VariableDegrees{
		{Variable: "level", Degrees: []fuzzy.TermDegree{
			{Term: "low", Degree: 0.6},
			{Term: "high", Degree: 0.4},
		}},
		{Variable: "aux", Degrees: []fuzzy.TermDegree{
			{Term: "on", Degree: 0.3},
		}},
	}}
	if diff := cmp.Diff(wantSnap, res.Snapshot); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	wantActs := []rules.Activation{
		{Rule: "a", Consequent: "mid", Strength: 0.6,
			Contributions: []rules.Contribution{{Variable: "level", Term: "low", Degree: 0.6}}},
		{Rule: "b", Consequent: "none", Strength: 0.15,
			Contributions: []rules.Contribution{{Variable: "aux", Term: "on", Degree: 0.3}}},
	}
	if diff := cmp.Diff(wantActs, res.Activations); diff != "" {
		t.Errorf("activations mismatch (-want +got):\n%s", diff)
	}

	wantAgg := []inference.TermActivation{
		{Term: "none", Strength: 0.15},
		{Term: "lowband", Strength: 0},
		{Term: "mid", Strength: 0.6},
		{Term: "highband", Strength: 0},
	}
	if diff := cmp.Diff(wantAgg, res.Aggregate); diff != "" {
		t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
	}

	if got, want := len(res.Curve), inference.DefaultResolution+1; got != want {
		t.Fatalf("curve length: got %d, want %d", got, want)
	}
	if first := (inference.Point{X: 0, Degree: 0.15}); res.Curve[0] != first {
		t.Errorf("curve start: got %+v, want %+v", res.Curve[0], first)
	}
	if last := (inference.Point{X: 100, Degree: 0}); res.Curve[len(res.Curve)-1] != last {
		t.Errorf("curve end: got %+v, want %+v", res.Curve[len(res.Curve)-1], last)
	}
}

func TestEvaluateNoRuleFired(t *testing.T) {
	e := newTestEngine(t, newTestRegistry(t), []testRule{
		{"only", "level is low", "none", 1},
	})
	res, err := e.Evaluate(map[string]float64{"level": 10, "aux": 10})
	if !errors.Is(err, inference.ErrNoRuleFired) {
		t.Fatalf("Evaluate error: got %v, want %v", err, inference.ErrNoRuleFired)
	}
	if res != nil {
		t.Errorf("Evaluate result: got %+v, want nil", res)
	}
}

func TestEvaluateInputChecks(t *testing.T) {
	tests := []struct {
		name    string
		inputs  map[string]float64
		wantErr bool
	}{
		{
			name:    "missing input",
			inputs:  map[string]float64{"aux": 0},
			wantErr: true,
		},
		{
			name:    "NaN input",
			inputs:  map[string]float64{"level": math.NaN(), "aux": 0},
			wantErr: true,
		},
		{
			name:    "unknown variable",
			inputs:  map[string]float64{"level": 0, "aux": 0, "pulse": 1},
			wantErr: true,
		},
		{
			name:    "output variable as input",
			inputs:  map[string]float64{"level": 0, "aux": 0, "out": 5},
			wantErr: true,
		},
		{
			name:    "above sanity range",
			inputs:  map[string]float64{"level": 25, "aux": 0},
			wantErr: true,
		},
		{
			name:    "below sanity range",
			inputs:  map[string]float64{"level": -25, "aux": 0},
			wantErr: true,
		},
		{
			name:   "outside universe within sanity",
			inputs: map[string]float64{"level": 15, "aux": 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newTestRegistry(t)
			v, ok := reg.Lookup("level")
			if !ok {
				t.Fatal("failed to look up variable")
			}
			err := v.SetSanity(-20, 20)
			if err != nil {
				t.Fatalf("failed to set sanity range: %v", err)
			}
			e := newTestEngine(t, reg, []testRule{
				{"r1", "level is low", "mid", 1},
				{"r2", "aux is on", "none", 1},
			})
			res, err := e.Evaluate(tt.inputs)
			if tt.wantErr {
				if !errors.Is(err, fuzzy.ErrInput) {
					t.Fatalf("Evaluate error: got %v, want %v", err, fuzzy.ErrInput)
				}
				if res != nil {
					t.Errorf("Evaluate result: got %+v, want nil", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			// 15 clamps to the universe edge, where "low" has degree zero.
			if d, ok := res.Snapshot.Degree("level", "low"); !ok || d != 0 {
				t.Errorf("clamped degree: got %v, %t, want 0, true", d, ok)
			}
		})
	}
}

func TestEvaluateConfigurationErrors(t *testing.T) {
	reg := newTestRegistry(t)
	base, err := rules.NewBase(reg, "out")
	if err != nil {
		t.Fatalf("failed to create rule base: %v", err)
	}
	err = base.AddString("r1", "level is low", "mid", 1)
	if err != nil {
		t.Fatalf("failed to add rule: %v", err)
	}
	tests := []struct {
		name   string
		engine *inference.Engine
	}{
		{
			name:   "missing registry",
			engine: &inference.Engine{Rules: base},
		},
		{
			name:   "missing rule base",
			engine: &inference.Engine{Registry: reg},
		},
		{
			name:   "negative resolution",
			engine: &inference.Engine{Registry: reg, Rules: base, Resolution: -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.engine.Evaluate(map[string]float64{"level": 0, "aux": 0})
			if !errors.Is(err, fuzzy.ErrConfiguration) {
				t.Fatalf("Evaluate error: got %v, want %v", err, fuzzy.ErrConfiguration)
			}
			if res != nil {
				t.Errorf("Evaluate result: got %+v, want nil", res)
			}
		})
	}
}

func TestEvaluateResolution(t *testing.T) {
	e := newTestEngine(t, newTestRegistry(t), []testRule{
		{"suspend", "level is low", "none", 1},
	})
	e.Resolution = 500
	res, err := e.Evaluate(map[string]float64{"level": 0, "aux": 10})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got, want := len(res.Curve), 501; got != want {
		t.Errorf("curve length: got %d, want %d", got, want)
	}
	if want := 4.93333333333333; math.Abs(res.Value-want) > 1e-9 {
		t.Errorf("value: got %v, want %v", res.Value, want)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	e := newTestEngine(t, newTestRegistry(t), []testRule{
		{"a", "level is low AND aux is on", "mid", 0.75},
		{"b", "level is high OR aux is on", "highband", 1},
	})
	inputs := map[string]float64{"level": 3, "aux": 6}
	first, err := e.Evaluate(inputs)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	second, err := e.Evaluate(inputs)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated evaluation mismatch (-first +second):\n%s", diff)
	}
}

func TestEvaluateRuleOrderIndependent(t *testing.T) {
	reg := newTestRegistry(t)
	forward := newTestEngine(t, reg, []testRule{
		{"a", "level is low", "mid", 1},
		{"b", "aux is on", "mid", 1},
		{"c", "level is high", "highband", 0.5},
	})
	reverse := newTestEngine(t, reg, []testRule{
		{"c", "level is high", "highband", 0.5},
		{"b", "aux is on", "mid", 1},
		{"a", "level is low", "mid", 1},
	})
	inputs := map[string]float64{"level": 4, "aux": 7}
	fwd, err := forward.Evaluate(inputs)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	rev, err := reverse.Evaluate(inputs)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if fwd.Value != rev.Value {
		t.Errorf("rule order changed the value: %v vs %v", fwd.Value, rev.Value)
	}
	if diff := cmp.Diff(fwd.Aggregate, rev.Aggregate); diff != "" {
		t.Errorf("rule order changed the aggregate (-forward +reverse):\n%s", diff)
	}
}
