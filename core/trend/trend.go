// Package trend estimates the glucose rate of change from recent meter
// readings.
package trend

import (
	"time"

	"go.uber.org/zap"

	"example.com/fuzzy-infusion/base/floats"
)

// If the window is too large, the estimate lags behind genuine turns of
// the glucose curve; too small and sensor noise dominates.
const DefaultWindow = 8

type sample struct {
	at      time.Time
	glucose float64
}

// Estimator derives a robust glucose slope from a bounded window of meter
// readings via the Theil-Sen method, the median of all pairwise slopes.
// It is not safe for concurrent use.
type Estimator struct {
	log     *zap.Logger
	window  int
	samples []sample
}

// NewEstimator creates an estimator holding at most window readings; a
// non-positive window selects DefaultWindow.
func NewEstimator(log *zap.Logger, window int) *Estimator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Estimator{log: log, window: window}
}

// AddSample records one meter reading. Once the window is full, the oldest
// reading is dropped.
func (e *Estimator) AddSample(at time.Time, glucose float64) {
	if len(e.samples) == e.window {
		e.samples = e.samples[1:]
	}
	e.samples = append(e.samples, sample{at: at, glucose: glucose})
}

// Len returns the number of buffered readings.
func (e *Estimator) Len() int { return len(e.samples) }

// Slope returns the estimated rate of change in mg/dL per minute. The
// second result is false while the window holds fewer than two readings
// with distinct timestamps.
func (e *Estimator) Slope() (float64, bool) {
	var slopes []float64
	for i, a := range e.samples {
		for _, b := range e.samples[i+1:] {
			// Like in the original paper by Sen (1968), ignore pairs
			// with the same x coordinate.
			if !a.at.Equal(b.at) {
				slopes = append(slopes, (b.glucose-a.glucose)/b.at.Sub(a.at).Minutes())
			}
		}
	}
	if len(slopes) == 0 {
		return 0, false
	}
	m := floats.Median(slopes)
	e.log.Debug("Theil-Sen glucose trend",
		zap.Int("samples", len(e.samples)),
		zap.Int("pairs", len(slopes)),
		zap.Float64("slope", m),
	)
	return m, true
}
