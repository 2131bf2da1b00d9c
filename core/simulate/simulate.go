// Package simulate drives a controller with a deterministic synthetic
// patient and records the resulting control steps.
package simulate

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"example.com/fuzzy-infusion/base/floats"
	"example.com/fuzzy-infusion/base/metrics"
	"example.com/fuzzy-infusion/core/inference"
	"example.com/fuzzy-infusion/core/session"
	"example.com/fuzzy-infusion/core/trend"
)

// Scenario generates the synthetic patient: a sinusoidal glucose baseline
// with meal excursions, slow-moving exercise and stress, and carbohydrate
// intake reported at meal starts. One step is one simulated minute.
type Scenario struct {
	Baseline  float64 // mg/dL
	Amplitude float64 // mg/dL swing of the baseline sine
	Period    float64 // steps per radian of the baseline sine
	MealSteps []int   // steps at which meals begin
	MealRise  float64 // peak glucose excursion per meal, mg/dL
	MealCarbs float64 // grams reported during the first meal minutes
}

// DefaultScenario is a synthetic half day with two meals.
func DefaultScenario() *Scenario {
	return &Scenario{
		Baseline:  120,
		Amplitude: 25,
		Period:    20,
		MealSteps: []int{40, 150},
		MealRise:  80,
		MealCarbs: 60,
	}
}

// Glucose returns the meter reading at step: the baseline sine plus a
// sharp rise and slow decay around each meal.
func (s *Scenario) Glucose(step int) float64 {
	g := s.Baseline + s.Amplitude*math.Sin(float64(step)/s.Period)
	for _, m := range s.MealSteps {
		d := step - m
		switch {
		case d < 0 || d >= 40:
		case d < 10:
			g += s.MealRise * float64(d) / 10
		default:
			g += s.MealRise * float64(40-d) / 30
		}
	}
	return g
}

// Inputs returns the crisp inputs at step, keyed by the built-in profile's
// vocabulary. The trend input is added by the control loop.
func (s *Scenario) Inputs(step int) map[string]float64 {
	carbs := 0.0
	for _, m := range s.MealSteps {
		if step >= m && step < m+5 {
			carbs = s.MealCarbs
		}
	}
	return map[string]float64{
		"glycemia": s.Glucose(step),
		"exercise": 2 + 2*math.Sin(float64(step)/40),
		"stress":   2 + 2*math.Sin(float64(step)/60),
		"carbs":    carbs,
	}
}

type simMetrics struct {
	steps              prometheus.Counter
	fallbacks          prometheus.Counter
	journalWrites      prometheus.Counter
	journalWriteErrors prometheus.Counter
	glucose            prometheus.Gauge
	slope              prometheus.Gauge
	rate               prometheus.Gauge
}

var (
	simMetricsOnce sync.Once
	simMetricsInst *simMetrics
)

// newSimMetrics registers in the default registry, so it must run at most
// once per process.
func newSimMetrics() *simMetrics {
	simMetricsOnce.Do(func() {
		simMetricsInst = &simMetrics{
			steps: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.SimStepsN,
				Help: metrics.SimStepsH,
			}),
			fallbacks: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.SimFallbacksN,
				Help: metrics.SimFallbacksH,
			}),
			journalWrites: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.JournalWritesN,
				Help: metrics.JournalWritesH,
			}),
			journalWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: metrics.JournalWriteErrorsN,
				Help: metrics.JournalWriteErrorsH,
			}),
			glucose: promauto.NewGauge(prometheus.GaugeOpts{
				Name: metrics.SimGlucoseN,
				Help: metrics.SimGlucoseH,
			}),
			slope: promauto.NewGauge(prometheus.GaugeOpts{
				Name: metrics.SimTrendN,
				Help: metrics.SimTrendH,
			}),
			rate: promauto.NewGauge(prometheus.GaugeOpts{
				Name: metrics.SimInfusionRateN,
				Help: metrics.SimInfusionRateH,
			}),
		}
	})
	return simMetricsInst
}

// Recorder persists control steps; satisfied by the journal driver. A
// failed write is counted and logged, never fatal.
type Recorder interface {
	Record(e session.Entry) error
}

// Config controls one simulation run.
type Config struct {
	Engine      *inference.Engine
	Steps       int           // control steps to run, DefaultSteps if 0
	Interval    time.Duration // wall-clock pacing between steps, none if 0
	HistoryCap  int           // history window, session.DefaultCapacity if 0
	Scenario    *Scenario     // DefaultScenario if nil
	TrendWindow int           // estimator window, trend.DefaultWindow if 0
	Recorder    Recorder      // optional journal
}

// DefaultSteps covers the default scenario's full half day.
const DefaultSteps = 240

// Run executes the control loop: each step feeds the scenario's meter
// reading to the trend estimator, evaluates the engine on the synthetic
// inputs, and appends the outcome to the returned history. When no rule
// fires, the previous rate is held and the step is marked as a fallback.
// Cancelling the context stops the run between steps.
func Run(ctx context.Context, log *zap.Logger, cfg Config) (*session.History, error) {
	sc := cfg.Scenario
	if sc == nil {
		sc = DefaultScenario()
	}
	steps := cfg.Steps
	if steps == 0 {
		steps = DefaultSteps
	}
	mtrcs := newSimMetrics()
	est := trend.NewEstimator(log, cfg.TrendWindow)
	hist := session.NewHistory(cfg.HistoryCap)
	start := time.Now().UTC()

	var ticker *time.Ticker
	if cfg.Interval > 0 {
		ticker = time.NewTicker(cfg.Interval)
		defer ticker.Stop()
	}

	rate := 0.0
	for step := 0; step < steps; step++ {
		if step > 0 && ticker != nil {
			select {
			case <-ctx.Done():
				return hist, ctx.Err()
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return hist, ctx.Err()
		}

		at := start.Add(time.Duration(step) * time.Minute)
		inputs := sc.Inputs(step)
		est.AddSample(at, inputs["glycemia"])
		slope, ok := est.Slope()
		if !ok {
			slope = 0
		}
		inputs["trend"] = slope
		clampToSanity(cfg.Engine, inputs)

		entry := session.Entry{At: at, Inputs: inputs, Rate: rate}
		res, err := cfg.Engine.Evaluate(inputs)
		switch {
		case err == nil:
			rate = res.Value
			entry.Rate = rate
			entry.TopRule = topRule(res)
			entry.Fired = len(res.Activations)
		case errors.Is(err, inference.ErrNoRuleFired):
			entry.Fallback = true
			mtrcs.fallbacks.Inc()
		default:
			return hist, err
		}

		hist.Add(entry)
		if cfg.Recorder != nil {
			err = cfg.Recorder.Record(entry)
			if err != nil {
				log.Error("failed to record journal entry", zap.Error(err))
				mtrcs.journalWriteErrors.Inc()
			} else {
				mtrcs.journalWrites.Inc()
			}
		}

		mtrcs.steps.Inc()
		mtrcs.glucose.Set(inputs["glycemia"])
		mtrcs.slope.Set(slope)
		mtrcs.rate.Set(entry.Rate)
		log.Info("control step",
			zap.Int("step", step),
			zap.Float64("glucose", inputs["glycemia"]),
			zap.Float64("trend", slope),
			zap.Float64("carbs", inputs["carbs"]),
			zap.Float64("rate", entry.Rate),
			zap.Bool("fallback", entry.Fallback),
			zap.String("top_rule", entry.TopRule),
		)
	}
	return hist, nil
}

// clampToSanity keeps synthetic inputs inside each variable's plausibility
// bounds so that scenario overshoot cannot trip an input error.
func clampToSanity(e *inference.Engine, inputs map[string]float64) {
	for _, v := range e.Registry.Variables() {
		lo, hi, ok := v.Sanity()
		if !ok {
			continue
		}
		x, ok := inputs[v.Name()]
		if !ok {
			continue
		}
		inputs[v.Name()] = floats.Clamp(x, lo, hi)
	}
}

func topRule(res *inference.Result) string {
	name := ""
	best := 0.0
	for _, a := range res.Activations {
		if a.Strength > best {
			best = a.Strength
			name = a.Rule
		}
	}
	return name
}
