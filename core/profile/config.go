package profile

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"example.com/fuzzy-infusion/core/fuzzy"
	"example.com/fuzzy-infusion/core/inference"
	"example.com/fuzzy-infusion/core/rules"
)

// Profile is a fully built controller vocabulary: the variable registry,
// the rule base bound to it, and the defuzzification resolution (0 selects
// the engine default).
type Profile struct {
	Registry   *fuzzy.Registry
	Base       *rules.Base
	Resolution int
}

// Engine binds the profile into an inference engine.
func (p *Profile) Engine() *inference.Engine {
	return &inference.Engine{
		Registry:   p.Registry,
		Rules:      p.Base,
		Resolution: p.Resolution,
	}
}

type termConfig struct {
	Name   string    `toml:"name"`
	Shape  string    `toml:"shape"`
	Points []float64 `toml:"points"`
}

type variableConfig struct {
	Name      string       `toml:"name"`
	Min       float64      `toml:"min"`
	Max       float64      `toml:"max"`
	SanityMin *float64     `toml:"sanity_min,omitempty"`
	SanityMax *float64     `toml:"sanity_max,omitempty"`
	Terms     []termConfig `toml:"term"`
}

type ruleConfig struct {
	Name   string   `toml:"name"`
	When   string   `toml:"when"`
	Then   string   `toml:"then"`
	Weight *float64 `toml:"weight,omitempty"`
}

type profileConfig struct {
	Output     string           `toml:"output"`
	Resolution int              `toml:"resolution,omitempty"`
	Variables  []variableConfig `toml:"variable"`
	Rules      []ruleConfig     `toml:"rule"`
}

// Load builds a profile from its TOML form. Unknown fields, malformed
// shapes, and semantic violations (duplicate names, unbound terms, bad
// weights) all fail with a configuration error.
func Load(raw []byte) (*Profile, error) {
	var cfg profileConfig
	err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding profile: %v", fuzzy.ErrConfiguration, err)
	}
	if cfg.Output == "" {
		return nil, fmt.Errorf("%w: output variable not specified", fuzzy.ErrConfiguration)
	}
	if cfg.Resolution < 0 {
		return nil, fmt.Errorf("%w: resolution must be positive", fuzzy.ErrConfiguration)
	}

	reg := fuzzy.NewRegistry()
	for _, vc := range cfg.Variables {
		v, err := reg.DefineVariable(vc.Name, vc.Min, vc.Max)
		if err != nil {
			return nil, err
		}
		if (vc.SanityMin == nil) != (vc.SanityMax == nil) {
			return nil, fmt.Errorf(
				"%w: variable %q: sanity_min and sanity_max must be set together",
				fuzzy.ErrConfiguration, vc.Name)
		}
		if vc.SanityMin != nil {
			err = v.SetSanity(*vc.SanityMin, *vc.SanityMax)
			if err != nil {
				return nil, err
			}
		}
		for _, tc := range vc.Terms {
			s, err := termShape(tc)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", vc.Name, err)
			}
			err = reg.AddTerm(vc.Name, tc.Name, s)
			if err != nil {
				return nil, err
			}
		}
	}

	base, err := rules.NewBase(reg, cfg.Output)
	if err != nil {
		return nil, err
	}
	for _, rc := range cfg.Rules {
		weight := 1.0
		if rc.Weight != nil {
			weight = *rc.Weight
		}
		err = base.AddString(rc.Name, rc.When, rc.Then, weight)
		if err != nil {
			return nil, err
		}
	}

	return &Profile{Registry: reg, Base: base, Resolution: cfg.Resolution}, nil
}

func termShape(tc termConfig) (fuzzy.Shape, error) {
	switch tc.Shape {
	case "triangle":
		if len(tc.Points) != 3 {
			return fuzzy.Shape{}, fmt.Errorf("%w: term %q: triangle needs 3 points, got %d",
				fuzzy.ErrConfiguration, tc.Name, len(tc.Points))
		}
		return fuzzy.Triangle(tc.Points[0], tc.Points[1], tc.Points[2]), nil
	case "trapezoid":
		if len(tc.Points) != 4 {
			return fuzzy.Shape{}, fmt.Errorf("%w: term %q: trapezoid needs 4 points, got %d",
				fuzzy.ErrConfiguration, tc.Name, len(tc.Points))
		}
		return fuzzy.Trapezoid(tc.Points[0], tc.Points[1], tc.Points[2], tc.Points[3]), nil
	default:
		return fuzzy.Shape{}, fmt.Errorf("%w: term %q: unknown shape %q",
			fuzzy.ErrConfiguration, tc.Name, tc.Shape)
	}
}
