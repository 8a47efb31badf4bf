package almanac

import (
	"math"
)

// ScaleVariance rescales a small variance into a display-friendly
// mantissa/exponent pair: the returned mantissa is value*10^exponent,
// roughly in [1,100), so a UI can render "3.4 x10^-6" style output
// without losing precision.
//
// An undefined, non-positive or NaN variance returns the (0.0, 0)
// sentinel meaning "not displayable". The exponent is exact when the
// input is exactly a power of ten.
func ScaleVariance(v float64) (mantissa float64, exponent int) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0.0, 0
	}

	e := math.Floor(math.Log10(v))
	// Guard against Log10 rounding at exact powers of ten.
	if math.Pow(10, e) > v {
		e--
	} else if math.Pow(10, e+1) <= v {
		e++
	}

	exponent = -int(e) + 1
	return v * math.Pow(10, float64(exponent)), exponent
}
