// Package analysis implements the exploratory statistics behind the
// streamflow report: letter-value summaries and skew, Tukey's ladder of
// powers, loess smoothing in one and two predictors, ordinary and robust
// straight-line fits, and monthly and seasonal views of the residuals.
//
// All functions are pure. Inputs are never modified; outputs are freshly
// allocated. Functions that take paired slices return ErrLengthMismatch
// when the lengths differ.
package analysis
