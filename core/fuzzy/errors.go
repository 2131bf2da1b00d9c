package fuzzy

import "errors"

var (
	// ErrConfiguration reports malformed variable, term, rule, or profile
	// setup. Configuration errors are fatal to startup and never silently
	// corrected.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInput reports a missing, unknown, or implausible crisp input.
	// Input errors are per-evaluation and leave configured state untouched.
	ErrInput = errors.New("invalid input")
)
