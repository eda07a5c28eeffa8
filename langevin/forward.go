package langevin

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jj2249/mengproject"
	"github.com/jj2249/mengproject/levy"
	"github.com/jj2249/mengproject/matutil"
	"github.com/jj2249/mengproject/timeseries"
)

// ridge stabilizes the per-interval Cholesky factorizations.
const ridge = 1e-12

// ForwardSimulate generates a synthetic observation series of nobs points
// from the model itself: observation times are sorted uniform draws on
// (0, horizon] behind a fixed origin, and each interval advances the state
// with a freshly simulated subordinator path. Useful as a ground-truth
// fixture for exercising the filter.
func ForwardSimulate(params mengproject.ModelParams, model *Model, nobs int, horizon float64, gsamps int, src rand.Source) (*timeseries.Series, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if nobs < 2 {
		return nil, mengproject.Validationf("forward simulation needs at least 2 observations, got %d", nobs)
	}
	if horizon <= 0 {
		return nil, mengproject.Validationf("forward simulation horizon must be positive, got %v", horizon)
	}

	rnd := rand.New(src)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rnd}

	times := make([]float64, nobs)
	for i := 1; i < nobs; i++ {
		times[i] = horizon * rnd.Float64()
	}
	sort.Float64s(times)

	state := mat.NewVecDense(3, []float64{0, 0, params.MuMu})
	prices := make([]float64, nobs)
	prices[0] = state.AtVec(0)

	obsSigma := math.Sqrt(params.SigmaSq * params.Kv)
	for i := 1; i < nobs; i++ {
		s, t := times[i-1], times[i]

		gp, err := levy.NewGammaProcess(1, params.Beta, t-s, gsamps, rand.NewSource(rnd.Uint64()))
		if err != nil {
			return nil, err
		}
		path, err := gp.Generate(s, t)
		if err != nil {
			return nil, err
		}

		drift := model.DriftMoment(t, path)
		var cov mat.SymDense
		cov.ScaleSym(params.SigmaSq, model.DiffusionMoment(t, path))

		e, ok := matutil.RidgedCholeskyDraw(&cov, ridge, normal)
		if !ok {
			return nil, &mengproject.NumericInstabilityError{Op: "forward simulation", Msg: "diffusion moment not positive definite after ridge"}
		}

		a := model.Transition(drift, t-s)
		next := mat.NewVecDense(3, nil)
		next.MulVec(a, state)
		var be mat.VecDense
		be.MulVec(model.B, e)
		next.AddVec(next, &be)
		state = next
		if matutil.NaNOrInf(state) {
			return nil, &mengproject.NumericInstabilityError{Op: "forward simulation", Msg: "state diverged"}
		}

		prices[i] = state.AtVec(0) + obsSigma*normal.Rand()
	}

	return timeseries.New(times, prices)
}
