package analysis

// Residuals returns observed - fitted element by element.
func Residuals(observed, fitted []float64) ([]float64, error) {
	if len(observed) != len(fitted) {
		return nil, ErrLengthMismatch
	}
	out := make([]float64, len(observed))
	for i := range observed {
		out[i] = observed[i] - fitted[i]
	}
	return out, nil
}
