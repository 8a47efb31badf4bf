package almanac

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleVariance(t *testing.T) {
	t.Run("reconstructs the input", func(t *testing.T) {
		inputs := []float64{
			0.0002, 0.000123, 0.0459, 3.7e-9, 0.99, 1.0, 12.5, 4321.0,
		}
		for _, v := range inputs {
			mantissa, exponent := ScaleVariance(v)
			assert.InEpsilon(t, v, mantissa/math.Pow(10, float64(exponent)), 1e-12,
				"value %g must survive the round trip", v)
		}
	})

	t.Run("mantissa lands in a display-friendly band", func(t *testing.T) {
		for _, v := range []float64{0.0002, 0.000123, 0.0459, 0.99, 12.5} {
			mantissa, _ := ScaleVariance(v)
			assert.GreaterOrEqual(t, mantissa, 10.0, "value %g", v)
			assert.Less(t, mantissa, 100.0, "value %g", v)
		}
	})

	t.Run("non-positive and undefined variances collapse to zero", func(t *testing.T) {
		for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
			mantissa, exponent := ScaleVariance(v)
			assert.Equal(t, 0.0, mantissa)
			assert.Equal(t, 0, exponent)
		}
	})

	t.Run("exact powers of ten", func(t *testing.T) {
		mantissa, exponent := ScaleVariance(0.0001)
		assert.InDelta(t, 10.0, mantissa, 1e-9)
		assert.Equal(t, 5, exponent)

		mantissa, exponent = ScaleVariance(1.0)
		assert.InDelta(t, 10.0, mantissa, 1e-9)
		assert.Equal(t, 1, exponent)
	})
}
