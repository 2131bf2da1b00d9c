// Package profile provides the built-in clinical infusion profile and a
// TOML codec for external profiles.
//
// A profile is the complete vocabulary of one controller: the linguistic
// variables with their universes, sanity ranges and terms, plus the rule
// base that maps them to an infusion rate.
package profile

import (
	"example.com/fuzzy-infusion/core/fuzzy"
	"example.com/fuzzy-infusion/core/rules"
)

type termDef struct {
	name  string
	shape fuzzy.Shape
}

type variableDef struct {
	name     string
	min, max float64
	sanity   []float64 // nil, or implausible-reading bounds {lo, hi}
	terms    []termDef
}

type ruleDef struct {
	name   string
	when   string
	then   string
	weight float64
}

var defaultVariables = []variableDef{
	{
		// Blood glucose in mg/dL. The device clamps readings into
		// 40..400; anything outside 0..1000 is a broken sensor.
		name: "glycemia", min: 40, max: 400, sanity: []float64{0, 1000},
		terms: []termDef{
			{"very-low", fuzzy.Trapezoid(40, 40, 55, 70)},
			{"low", fuzzy.Triangle(60, 80, 105)},
			{"normal", fuzzy.Trapezoid(85, 110, 140, 180)},
			{"high", fuzzy.Triangle(160, 220, 280)},
			{"very-high", fuzzy.Trapezoid(250, 320, 400, 400)},
		},
	},
	{
		// Glucose rate of change in mg/dL per minute.
		name: "trend", min: -20, max: 20, sanity: []float64{-60, 60},
		terms: []termDef{
			{"falling-fast", fuzzy.Trapezoid(-20, -20, -10, -5)},
			{"falling", fuzzy.Triangle(-8, -4, 0)},
			{"steady", fuzzy.Triangle(-2, 0, 2)},
			{"rising", fuzzy.Triangle(0, 4, 8)},
			{"rising-fast", fuzzy.Trapezoid(5, 10, 20, 20)},
		},
	},
	{
		// Physical activity on a 0..10 self-reported scale.
		name: "exercise", min: 0, max: 10, sanity: []float64{0, 20},
		terms: []termDef{
			{"light", fuzzy.Triangle(0, 0, 4)},
			{"moderate", fuzzy.Triangle(3, 5, 7)},
			{"intense", fuzzy.Triangle(6, 10, 10)},
		},
	},
	{
		// Stress on a 0..10 self-reported scale.
		name: "stress", min: 0, max: 10, sanity: []float64{0, 20},
		terms: []termDef{
			{"low", fuzzy.Triangle(0, 0, 4)},
			{"moderate", fuzzy.Triangle(3, 5, 7)},
			{"high", fuzzy.Triangle(6, 10, 10)},
		},
	},
	{
		// Carbohydrate intake of the upcoming meal in grams.
		name: "carbs", min: 0, max: 150, sanity: []float64{0, 500},
		terms: []termDef{
			{"none", fuzzy.Trapezoid(0, 0, 5, 15)},
			{"small", fuzzy.Triangle(10, 25, 45)},
			{"moderate", fuzzy.Triangle(35, 60, 90)},
			{"large", fuzzy.Trapezoid(75, 110, 150, 150)},
		},
	},
	{
		// Insulin infusion rate in U/h, bounded by the pump limits.
		name: "infusion", min: 0, max: 100,
		terms: []termDef{
			{"none", fuzzy.Triangle(0, 0, 15)},
			{"low", fuzzy.Triangle(10, 30, 50)},
			{"moderate", fuzzy.Triangle(40, 60, 80)},
			{"high", fuzzy.Triangle(70, 85, 100)},
			{"maximal", fuzzy.Triangle(85, 100, 100)},
		},
	},
}

var defaultRules = []ruleDef{
	{"hypo-suspend", "glycemia is very-low", "none", 1},
	{"hypo-guard", "glycemia is low AND (trend is falling OR trend is falling-fast)", "none", 1},
	{"low-hold", "glycemia is low AND trend is steady", "low", 0.8},
	{"low-recovering", "glycemia is low AND (trend is rising OR trend is rising-fast)", "low", 1},
	{"basal", "glycemia is normal AND trend is steady", "moderate", 1},
	{"normal-falling", "glycemia is normal AND (trend is falling OR trend is falling-fast)", "low", 1},
	{"normal-rising", "glycemia is normal AND (trend is rising OR trend is rising-fast)", "high", 0.7},
	{"high-falling", "glycemia is high AND (trend is falling OR trend is falling-fast)", "moderate", 1},
	{"high-hold", "glycemia is high AND trend is steady", "high", 1},
	{"high-rising", "glycemia is high AND (trend is rising OR trend is rising-fast)", "high", 1},
	{"hyper", "glycemia is very-high", "high", 1},
	{"hyper-surge", "glycemia is very-high AND (trend is rising OR trend is rising-fast)", "maximal", 1},
	{"exercise-intense", "exercise is intense", "low", 1},
	{"exercise-damping", "exercise is moderate AND glycemia is normal", "low", 0.6},
	{"stress-normal", "stress is high AND glycemia is normal", "moderate", 0.7},
	{"stress-high", "stress is high AND glycemia is high", "high", 0.7},
	{"carb-large", "carbs is large", "high", 1},
	{"carb-moderate", "carbs is moderate AND (glycemia is low OR glycemia is normal)", "moderate", 0.9},
	{"carb-small", "carbs is small AND glycemia is normal", "moderate", 0.6},
	{"rest-basal", "exercise is light AND glycemia is normal", "moderate", 0.5},
}

// Default builds the built-in clinical profile: five input variables
// (glycemia, trend, exercise, stress, carbs), the infusion output, and
// twenty rules. Every in-universe input combination fires at least one
// rule. The profile is built fresh per call; the caller may extend it.
func Default() (*fuzzy.Registry, *rules.Base) {
	reg := fuzzy.NewRegistry()
	for _, vd := range defaultVariables {
		v, err := reg.DefineVariable(vd.name, vd.min, vd.max)
		if err != nil {
			panic("unexpected variable error in built-in profile: " + err.Error())
		}
		if vd.sanity != nil {
			err = v.SetSanity(vd.sanity[0], vd.sanity[1])
			if err != nil {
				panic("unexpected sanity error in built-in profile: " + err.Error())
			}
		}
		for _, td := range vd.terms {
			err = reg.AddTerm(vd.name, td.name, td.shape)
			if err != nil {
				panic("unexpected term error in built-in profile: " + err.Error())
			}
		}
	}
	base, err := rules.NewBase(reg, "infusion")
	if err != nil {
		panic("unexpected rule base error in built-in profile: " + err.Error())
	}
	for _, rd := range defaultRules {
		err = base.AddString(rd.name, rd.when, rd.then, rd.weight)
		if err != nil {
			panic("unexpected rule error in built-in profile: " + err.Error())
		}
	}
	return reg, base
}
