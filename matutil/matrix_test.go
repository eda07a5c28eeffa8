package matutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestEye(t *testing.T) {
	e := Eye(3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.Equal(t, want, e.At(i, j))
		}
	}
}

func TestScaledEye(t *testing.T) {
	s := ScaledEye(2, 1e-6)
	assert.Equal(t, 1e-6, s.At(0, 0))
	assert.Equal(t, 1e-6, s.At(1, 1))
	assert.Zero(t, s.At(0, 1))
}

func TestNaNOrInf(t *testing.T) {
	clean := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	assert.False(t, NaNOrInf(clean))

	dirty := mat.NewDense(2, 2, []float64{1, math.NaN(), 3, 4})
	assert.True(t, NaNOrInf(dirty))

	inf := mat.NewDense(2, 2, []float64{1, 2, math.Inf(1), 4})
	assert.True(t, NaNOrInf(inf))
}

func TestRidgedCholeskyDraw(t *testing.T) {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(3)}

	spd := mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1})
	v, ok := RidgedCholeskyDraw(spd, 1e-12, normal)
	require.True(t, ok)
	require.Equal(t, 2, v.Len())
	assert.False(t, NaNOrInf(v))

	// a zero matrix only factorizes thanks to the ridge
	zero := mat.NewSymDense(2, nil)
	_, ok = RidgedCholeskyDraw(zero, 1e-12, normal)
	assert.True(t, ok)

	// negative definite stays unfactorizable after the ridge
	neg := mat.NewSymDense(2, []float64{-1, 0, 0, -1})
	_, ok = RidgedCholeskyDraw(neg, 1e-12, normal)
	assert.False(t, ok)
}
