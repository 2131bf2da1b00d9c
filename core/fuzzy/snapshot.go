package fuzzy

// TermDegree is one term's membership degree for a crisp value.
type TermDegree struct {
	Term   string
	Degree float64
}

// VariableDegrees is one variable's full fuzzification row: the degree of
// every term, in term declaration order.
type VariableDegrees struct {
	Variable string
	Degrees  []TermDegree
}

// Snapshot is the fuzzification of one evaluation: a row per input
// variable, in variable definition order. It is a plain value with
// deterministic iteration, built fresh per evaluation.
type Snapshot struct {
	Rows []VariableDegrees
}

// Degree looks up the membership degree of (variable, term). The second
// result is false if the pair is not part of the snapshot.
func (s Snapshot) Degree(variable, term string) (float64, bool) {
	for _, row := range s.Rows {
		if row.Variable != variable {
			continue
		}
		for _, d := range row.Degrees {
			if d.Term == term {
				return d.Degree, true
			}
		}
		return 0, false
	}
	return 0, false
}
