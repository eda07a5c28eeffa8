package levy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/jj2249/mengproject"
)

func TestPoissonEpochsAscending(t *testing.T) {
	epochs, err := PoissonEpochs(2.5, 200, rand.NewSource(1))
	require.NoError(t, err)
	require.Len(t, epochs, 200)

	prev := 0.0
	for i, e := range epochs {
		assert.Greater(t, e, prev, "epoch %d not ascending", i)
		prev = e
	}
}

func TestPoissonEpochsValidation(t *testing.T) {
	var verr *mengproject.ValidationError

	_, err := PoissonEpochs(0, 10, rand.NewSource(1))
	require.ErrorAs(t, err, &verr)

	_, err = PoissonEpochs(1, 0, rand.NewSource(1))
	require.ErrorAs(t, err, &verr)
}

func TestGammaProcessValidation(t *testing.T) {
	var verr *mengproject.ValidationError
	cases := []struct {
		name          string
		c, beta, rate float64
		samps         int
	}{
		{"non-positive shape", 0, 1, 1, 100},
		{"non-positive scale", 1, -1, 1, 100},
		{"non-positive rate", 1, 1, 0, 100},
		{"non-positive truncation", 1, 1, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGammaProcess(tc.c, tc.beta, tc.rate, tc.samps, rand.NewSource(1))
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestGammaProcessEmptyWindow(t *testing.T) {
	gp, err := NewGammaProcess(1, 1, 1, 100, rand.NewSource(1))
	require.NoError(t, err)

	var verr *mengproject.ValidationError
	_, err = gp.Generate(2, 2)
	require.ErrorAs(t, err, &verr)
}

func TestGammaProcessPathInvariants(t *testing.T) {
	minT, maxT := 0.5, 2.0
	gp, err := NewGammaProcess(1.0, 0.8, maxT-minT, 500, rand.NewSource(7))
	require.NoError(t, err)

	for trial := 0; trial < 20; trial++ {
		path, err := gp.Generate(minT, maxT)
		require.NoError(t, err)

		require.Equal(t, len(path.Times), len(path.Values))
		require.Equal(t, len(path.Times), len(path.Jumps))

		// explicit origin sample
		assert.Equal(t, minT, path.Times[0])
		assert.Zero(t, path.Values[0])
		assert.Zero(t, path.Jumps[0])

		for i := 1; i < path.Len(); i++ {
			assert.Greater(t, path.Times[i], path.Times[i-1], "times not strictly ascending at %d", i)
			assert.LessOrEqual(t, path.Times[i], maxT)
			assert.GreaterOrEqual(t, path.Values[i], path.Values[i-1], "values decreasing at %d", i)
			assert.False(t, math.IsNaN(path.Values[i]) || math.IsInf(path.Values[i], 0))
		}
	}
}

func TestGammaProcessAcceptanceProbabilityRange(t *testing.T) {
	// the thinning probability (1+bx)exp(-bx) must lie in (0,1] for every
	// finite positive candidate
	beta := 1.3
	for _, x := range []float64{1e-8, 1e-3, 0.5, 1, 10, 1e4, 1e8} {
		a := (1 + beta*x) * math.Exp(-beta*x)
		assert.Greater(t, a, 0.0, "x=%v", x)
		assert.LessOrEqual(t, a, 1.0, "x=%v", x)
	}
}

func TestGammaProcessReproducible(t *testing.T) {
	gen := func(seed uint64) *Path {
		gp, err := NewGammaProcess(1, 1, 1, 300, rand.NewSource(seed))
		require.NoError(t, err)
		path, err := gp.Generate(0, 1)
		require.NoError(t, err)
		return path
	}

	a, b := gen(42), gen(42)
	require.Equal(t, a.Times, b.Times)
	require.Equal(t, a.Values, b.Values)
}
