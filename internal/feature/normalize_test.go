package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Normalize([]float64{1, 2, 3}))
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]float64{}))
}

func TestNormalizeAllEqual(t *testing.T) {
	out := Normalize([]float64{7, 7, 7, 7})
	for _, v := range out {
		assert.Equal(t, 0.5, v)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []float64{10, 20}
	Normalize(in)
	assert.Equal(t, []float64{10, 20}, in)
}

func TestScaleClampsOutOfRange(t *testing.T) {
	assert.Equal(t, 0.0, scale(-5, 0, 10))
	assert.Equal(t, 1.0, scale(25, 0, 10))
	assert.Equal(t, 0.5, scale(3, 4, 4))
}
