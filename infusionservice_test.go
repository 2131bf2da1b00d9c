package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"example.com/fuzzy-infusion/core/profile"
)

func TestParseInputs(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    map[string]float64
		wantErr bool
	}{
		{
			name: "single",
			in:   "glycemia=120",
			want: map[string]float64{"glycemia": 120},
		},
		{
			name: "multiple",
			in:   "glycemia=120,trend=-2.5,carbs=40",
			want: map[string]float64{"glycemia": 120, "trend": -2.5, "carbs": 40},
		},
		{
			name: "spaces",
			in:   " glycemia = 120 , trend = 0 ",
			want: map[string]float64{"glycemia": 120, "trend": 0},
		},
		{name: "empty", in: "", wantErr: true},
		{name: "blank", in: "   ", wantErr: true},
		{name: "missing separator", in: "glycemia", wantErr: true},
		{name: "empty name", in: "=120", wantErr: true},
		{name: "empty value", in: "glycemia=", wantErr: true},
		{name: "bad value", in: "glycemia=abc", wantErr: true},
		{name: "duplicate", in: "glycemia=100,glycemia=110", wantErr: true},
		{name: "trailing comma", in: "glycemia=100,", wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := parseInputs(c.in)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to parse inputs %v", err)
			}
			if d := cmp.Diff(c.want, got); d != "" {
				t.Errorf("unexpected inputs (-want +got):\n%s", d)
			}
		})
	}
}

func TestInfusionserviceEval(t *testing.T) {
	initLogger(true /* verbose */)

	inputs, err := parseInputs("glycemia=100,trend=0,exercise=2,stress=2,carbs=10")
	if err != nil {
		t.Fatalf("failed to parse inputs %v", err)
	}

	reg, base := profile.Default()
	p := &profile.Profile{Registry: reg, Base: base}
	res, err := p.Engine().Evaluate(inputs)
	if err != nil {
		t.Fatalf("failed to evaluate inputs %v", err)
	}
	if res.Value < 45 || res.Value > 60 {
		t.Errorf("rate = %v, expected a basal rate in [45, 60]", res.Value)
	}
}
