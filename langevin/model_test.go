package langevin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/jj2249/mengproject"
	"github.com/jj2249/mengproject/levy"
	"github.com/jj2249/mengproject/matutil"
)

func TestNewModelValidation(t *testing.T) {
	var verr *mengproject.ValidationError
	_, err := NewModel(0)
	require.ErrorAs(t, err, &verr)
}

func TestModelMatrices(t *testing.T) {
	m, err := NewModel(-0.5)
	require.NoError(t, err)

	r, c := m.B.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)

	r, c = m.H.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 1.0, m.H.At(0, 0))
	assert.Zero(t, m.H.At(0, 1))
	assert.Zero(t, m.H.At(0, 2))
}

func TestTransitionZeroDriftZeroDt(t *testing.T) {
	m, err := NewModel(-0.5)
	require.NoError(t, err)

	a := m.Transition(mat.NewVecDense(2, nil), 0)
	assert.True(t, mat.EqualApprox(a, matutil.Eye(3), 1e-14))
}

func TestTransitionShape(t *testing.T) {
	theta := -0.7
	m, err := NewModel(theta)
	require.NoError(t, err)

	drift := mat.NewVecDense(2, []float64{0.4, 0.9})
	dt := 1.3
	a := m.Transition(drift, dt)

	e := math.Exp(theta * dt)
	assert.InDelta(t, 1.0, a.At(0, 0), 1e-15)
	assert.InDelta(t, (e-1)/theta, a.At(0, 1), 1e-15)
	assert.InDelta(t, e, a.At(1, 1), 1e-15)
	assert.InDelta(t, 0.4, a.At(0, 2), 1e-15)
	assert.InDelta(t, 0.9, a.At(1, 2), 1e-15)
	assert.Equal(t, 1.0, a.At(2, 2))
	assert.Zero(t, a.At(2, 0))
	assert.Zero(t, a.At(2, 1))
}

func TestMomentsSingleJump(t *testing.T) {
	theta := -0.5
	m, err := NewModel(theta)
	require.NoError(t, err)

	// one jump of size z at u; the diffusion moment must be the rank-one
	// outer product z*f*f^T of the drift contribution f
	u, z, tEnd := 0.3, 0.8, 1.0
	path := &levy.Path{
		MinT:   0,
		MaxT:   tEnd,
		Times:  []float64{0, u},
		Jumps:  []float64{0, z},
		Values: []float64{0, z},
	}

	e := math.Exp(theta * (tEnd - u))
	f0, f1 := (e-1)/theta, e

	drift := m.DriftMoment(tEnd, path)
	assert.InDelta(t, z*f0, drift.AtVec(0), 1e-14)
	assert.InDelta(t, z*f1, drift.AtVec(1), 1e-14)

	s := m.DiffusionMoment(tEnd, path)
	assert.InDelta(t, z*f0*f0, s.At(0, 0), 1e-14)
	assert.InDelta(t, z*f0*f1, s.At(0, 1), 1e-14)
	assert.InDelta(t, z*f1*f1, s.At(1, 1), 1e-14)
	// rank one up to roundoff
	assert.InDelta(t, s.At(0, 1)*s.At(0, 1), s.At(0, 0)*s.At(1, 1), 1e-12)
}

func TestMomentsEmptyPath(t *testing.T) {
	m, err := NewModel(-0.5)
	require.NoError(t, err)

	path := &levy.Path{MinT: 0, MaxT: 1, Times: []float64{0}, Jumps: []float64{0}, Values: []float64{0}}

	drift := m.DriftMoment(1, path)
	assert.Zero(t, drift.AtVec(0))
	assert.Zero(t, drift.AtVec(1))

	s := m.DiffusionMoment(1, path)
	assert.Zero(t, s.At(0, 0))
	assert.Zero(t, s.At(1, 1))
}

func testParams() mengproject.ModelParams {
	return mengproject.ModelParams{
		MuMu:    0,
		SigmaSq: 1,
		Beta:    1,
		Kw:      1,
		Kv:      0.01,
		Theta:   -0.5,
	}
}

func TestForwardSimulate(t *testing.T) {
	params := testParams()
	m, err := NewModel(params.Theta)
	require.NoError(t, err)

	series, err := ForwardSimulate(params, m, 50, 1.0, 200, rand.NewSource(11))
	require.NoError(t, err)

	require.Equal(t, 50, series.Len())
	assert.Zero(t, series.Time(0))
	for i := 1; i < series.Len(); i++ {
		assert.Greater(t, series.Time(i), series.Time(i-1))
		assert.False(t, math.IsNaN(series.Price(i)))
	}
}

func TestForwardSimulateReproducible(t *testing.T) {
	params := testParams()
	m, err := NewModel(params.Theta)
	require.NoError(t, err)

	a, err := ForwardSimulate(params, m, 20, 1.0, 100, rand.NewSource(5))
	require.NoError(t, err)
	b, err := ForwardSimulate(params, m, 20, 1.0, 100, rand.NewSource(5))
	require.NoError(t, err)

	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.Time(i), b.Time(i))
		assert.Equal(t, a.Price(i), b.Price(i))
	}
}

func TestForwardSimulateValidation(t *testing.T) {
	params := testParams()
	m, err := NewModel(params.Theta)
	require.NoError(t, err)

	var verr *mengproject.ValidationError
	_, err = ForwardSimulate(params, m, 1, 1.0, 100, rand.NewSource(1))
	require.ErrorAs(t, err, &verr)

	_, err = ForwardSimulate(params, m, 10, 0, 100, rand.NewSource(1))
	require.ErrorAs(t, err, &verr)

	bad := params
	bad.Beta = -1
	_, err = ForwardSimulate(bad, m, 10, 1.0, 100, rand.NewSource(1))
	require.ErrorAs(t, err, &verr)
}
