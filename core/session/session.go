// Package session keeps the recent control steps of a run and derives
// summary statistics from them.
package session

import (
	"maps"
	"time"

	"example.com/fuzzy-infusion/base/floats"
)

// DefaultCapacity bounds the history window, matching the report window.
const DefaultCapacity = 100

// Entry is one control step: the crisp inputs, the administered rate, and
// how the rate came about.
type Entry struct {
	At       time.Time
	Inputs   map[string]float64
	Rate     float64
	Fallback bool   // rate held from the previous step, no rule fired
	TopRule  string // strongest activation, empty on fallback
	Fired    int    // number of rules with positive strength
}

// History is a bounded window of evaluation entries, oldest first. It is
// not safe for concurrent use.
type History struct {
	capacity int
	entries  []Entry
}

// NewHistory creates a history holding at most capacity entries; a
// non-positive capacity selects DefaultCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity}
}

// Add appends one entry, dropping the oldest once the window is full. The
// entry's input map is copied.
func (h *History) Add(e Entry) {
	if len(h.entries) == h.capacity {
		h.entries = h.entries[1:]
	}
	e.Inputs = maps.Clone(e.Inputs)
	h.entries = append(h.entries, e)
}

// Len returns the number of buffered entries.
func (h *History) Len() int { return len(h.entries) }

// Entries returns the buffered entries, oldest first. The result shares no
// state with the history.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	for i := range out {
		out[i].Inputs = maps.Clone(out[i].Inputs)
	}
	return out
}

// Stats summarizes the rates of one history window.
type Stats struct {
	Count      int
	Fallbacks  int
	RateMin    float64
	RateMax    float64
	RateMean   float64
	RateMedian float64
}

// Stats computes summary statistics over the buffered entries. The second
// result is false for an empty history.
func (h *History) Stats() (Stats, bool) {
	if len(h.entries) == 0 {
		return Stats{}, false
	}
	s := Stats{Count: len(h.entries)}
	rates := make([]float64, 0, len(h.entries))
	sum := 0.0
	for i, e := range h.entries {
		if e.Fallback {
			s.Fallbacks++
		}
		if i == 0 || e.Rate < s.RateMin {
			s.RateMin = e.Rate
		}
		if i == 0 || e.Rate > s.RateMax {
			s.RateMax = e.Rate
		}
		sum += e.Rate
		rates = append(rates, e.Rate)
	}
	s.RateMean = sum / float64(len(h.entries))
	s.RateMedian = floats.Median(rates)
	return s, true
}

// TimeInRange returns the fraction of entries whose input for variable
// lies in [lo, hi]. Entries without that input count as out of range. The
// second result is false for an empty history.
func (h *History) TimeInRange(variable string, lo, hi float64) (float64, bool) {
	if len(h.entries) == 0 {
		return 0, false
	}
	in := 0
	for _, e := range h.entries {
		x, ok := e.Inputs[variable]
		if ok && x >= lo && x <= hi {
			in++
		}
	}
	return float64(in) / float64(len(h.entries)), true
}
