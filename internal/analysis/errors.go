package analysis

import "errors"

var (
	// ErrLengthMismatch is returned when paired inputs differ in length.
	ErrLengthMismatch = errors.New("input lengths differ")

	// ErrTooFewPoints is returned when a fit has fewer observations than it needs.
	ErrTooFewPoints = errors.New("too few points")

	// ErrNonPositive is returned when a re-expression needs strictly positive
	// (or non-negative) data and gets something else.
	ErrNonPositive = errors.New("values out of domain for power")

	// ErrInvalidSpan is returned for a non-positive loess span or a degree
	// outside 0..2.
	ErrInvalidSpan = errors.New("invalid loess span or degree")

	// ErrSingular is returned when a regression has no spread in its predictor
	// or its weights sum to zero.
	ErrSingular = errors.New("singular fit")
)
