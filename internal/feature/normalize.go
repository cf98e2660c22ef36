package feature

// Normalize min-max scales values into [0,1]. An empty input yields an empty
// output. When every value is equal the whole output is 0.5, which keeps the
// component comparable instead of collapsing it to an arbitrary 0.
func Normalize(values []float64) []float64 {
	if len(values) == 0 {
		return []float64{}
	}
	lo, hi := minMax(values)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = scale(v, lo, hi)
	}
	return out
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// scale maps v into [0,1] relative to [lo,hi], clamping values that fall
// outside the range. Degenerate ranges map to 0.5.
func scale(v, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	s := (v - lo) / (hi - lo)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
