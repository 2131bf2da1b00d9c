// Driver for quick experiments

package main

import (
	"go.uber.org/zap"

	"example.com/fuzzy-infusion/core/inference"
	"example.com/fuzzy-infusion/core/profile"
)

func runX() {
	initLogger(true /* verbose */)

	reg, base := profile.Default()
	e := &inference.Engine{Registry: reg, Rules: base}
	res, err := e.Evaluate(map[string]float64{
		"glycemia": 100, "trend": 0, "exercise": 2, "stress": 2, "carbs": 10,
	})
	if err != nil {
		log.Fatal("failed to evaluate inputs", zap.Error(err))
	}
	log.Debug("evaluated inputs", zap.Float64("rate", res.Value))
	for _, a := range res.Activations {
		log.Debug("rule fired",
			zap.String("rule", a.Rule),
			zap.String("consequent", a.Consequent),
			zap.Float64("strength", a.Strength),
		)
	}
}
