// Package rbpf implements a Rao-Blackwellised particle filter for the
// Gamma-driven Langevin price model: each particle simulates a realization
// of the driving subordinator and, conditional on that path, tracks the
// linear-Gaussian sub-state exactly through Kalman recursions. The filter
// owns the particle population, the importance weights and the marginal
// likelihood bookkeeping.
package rbpf

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jj2249/mengproject"
	"github.com/jj2249/mengproject/langevin"
	"github.com/jj2249/mengproject/levy"
	"github.com/jj2249/mengproject/matutil"
)

// ridge is the additive diagonal term applied before every Cholesky
// factorization.
const ridge = 1e-12

// Particle holds one latent-state hypothesis: the Kalman mean and
// covariance of the conditionally-Gaussian sub-state, the carried state
// sample that conditions future transition matrices, and the running
// unnormalized log-weight. Each particle owns an independent random
// stream so the population can be updated in parallel reproducibly.
type Particle struct {
	params mengproject.ModelParams
	model  *langevin.Model
	gsamps int

	mean  *mat.VecDense // 3
	cov   *mat.Dense    // 3x3, symmetric PSD by construction
	state *mat.VecDense // last simulated state sample

	logWeight float64

	rnd    *rand.Rand
	normal distuv.Normal
}

// NewParticle draws a particle from the prior N((0, 0, mumu),
// diag(0, 0, sigmasq*kw)) via a ridge-stabilized Cholesky factor.
func NewParticle(params mengproject.ModelParams, model *langevin.Model, gsamps int, src rand.Source) (*Particle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if gsamps <= 0 {
		return nil, mengproject.Validationf("subordinator truncation count must be positive, got %d", gsamps)
	}

	rnd := rand.New(src)
	p := &Particle{
		params: params,
		model:  model,
		gsamps: gsamps,
		mean:   mat.NewVecDense(3, []float64{0, 0, params.MuMu}),
		cov:    mat.NewDense(3, 3, nil),
		rnd:    rnd,
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: rnd},
	}
	p.cov.Set(2, 2, params.SigmaSq*params.Kw)

	prior := mat.NewSymDense(3, nil)
	prior.SetSym(2, 2, params.SigmaSq*params.Kw)
	draw, ok := matutil.RidgedCholeskyDraw(prior, ridge, p.normal)
	if !ok {
		return nil, &mengproject.NumericInstabilityError{Op: "prior sampling", Msg: "prior covariance not positive definite after ridge"}
	}
	p.state = mat.NewVecDense(3, nil)
	p.state.AddVec(p.mean, draw)

	return p, nil
}

// Predict advances the particle over the interval [s, t]: it simulates one
// subordinator path, propagates the carried state sample through the
// conditioned transition, and returns the predicted Kalman mean and
// covariance. The particle's corrected statistics are not touched;
// Increment assigns them after the correction step.
func (p *Particle) Predict(s, t float64) (*mat.VecDense, *mat.Dense, error) {
	dt := t - s

	gp, err := levy.NewGammaProcess(1, p.params.Beta, dt, p.gsamps, rand.NewSource(p.rnd.Uint64()))
	if err != nil {
		return nil, nil, err
	}
	path, err := gp.Generate(s, t)
	if err != nil {
		return nil, nil, err
	}

	drift := p.model.DriftMoment(t, path)
	var noiseCov mat.SymDense
	noiseCov.ScaleSym(p.params.SigmaSq, p.model.DiffusionMoment(t, path))

	e, ok := matutil.RidgedCholeskyDraw(&noiseCov, ridge, p.normal)
	if !ok {
		return nil, nil, &mengproject.NumericInstabilityError{Op: "predict", Msg: "diffusion moment not positive definite after ridge"}
	}

	a := p.model.Transition(drift, dt)

	// state sample increment, retained to condition future transitions
	next := mat.NewVecDense(3, nil)
	next.MulVec(a, p.state)
	var be mat.VecDense
	be.MulVec(p.model.B, e)
	next.AddVec(next, &be)
	p.state = next

	// Kalman prediction
	predMean := mat.NewVecDense(3, nil)
	predMean.MulVec(a, p.mean)

	predCov := mat.NewDense(3, 3, nil)
	var ac mat.Dense
	ac.Mul(a, p.cov)
	predCov.Mul(&ac, a.T())
	var bs, bsb mat.Dense
	bs.Mul(p.model.B, &noiseCov)
	bsb.Mul(&bs, p.model.B.T())
	predCov.Add(predCov, &bsb)

	return predMean, predCov, nil
}

// innovationVariance is H C H^T + sigmasq*kv for a predicted covariance C.
func (p *Particle) innovationVariance(predCov *mat.Dense) float64 {
	var hc mat.Dense
	hc.Mul(p.model.H, predCov)
	var hch mat.Dense
	hch.Mul(&hc, p.model.H.T())
	return hch.At(0, 0) + p.params.SigmaSq*p.params.Kv
}

// Correct folds one observation into the predicted statistics and returns
// the corrected mean and covariance.
func (p *Particle) Correct(observation float64, predMean *mat.VecDense, predCov *mat.Dense) (*mat.VecDense, *mat.Dense) {
	innovVar := p.innovationVariance(predCov)

	// Kalman gain K = C H^T / innovVar
	gain := mat.NewVecDense(3, nil)
	var cht mat.Dense
	cht.Mul(predCov, p.model.H.T())
	for i := 0; i < 3; i++ {
		gain.SetVec(i, cht.At(i, 0)/innovVar)
	}

	var hm mat.VecDense
	hm.MulVec(p.model.H, predMean)
	resid := observation - hm.AtVec(0)

	mean := mat.NewVecDense(3, nil)
	mean.AddScaledVec(predMean, resid, gain)

	var hc mat.Dense
	hc.Mul(p.model.H, predCov)
	var khc mat.Dense
	khc.Mul(gain, &hc)
	cov := mat.NewDense(3, 3, nil)
	cov.Sub(predCov, &khc)

	return mean, cov
}

// LogPED returns the one-step prediction-error-decomposition term: the log
// Gaussian density of observation under the predicted observation mean and
// innovation variance. It serves as both the importance-weight increment
// and the marginal-likelihood increment.
func (p *Particle) LogPED(observation float64, predMean *mat.VecDense, predCov *mat.Dense) float64 {
	var hm mat.VecDense
	hm.MulVec(p.model.H, predMean)
	pred := distuv.Normal{Mu: hm.AtVec(0), Sigma: math.Sqrt(p.innovationVariance(predCov))}
	return pred.LogProb(observation)
}

// Increment runs one full predict/correct/weight cycle for the interval
// [s, t] ending in observation, mutating the particle in place.
func (p *Particle) Increment(observation, s, t float64) error {
	predMean, predCov, err := p.Predict(s, t)
	if err != nil {
		return err
	}
	p.mean, p.cov = p.Correct(observation, predMean, predCov)
	p.logWeight += p.LogPED(observation, predMean, predCov)
	return nil
}

// clone produces an independent offspring sharing no mutable state with
// the parent; src seeds the offspring's own random stream.
func (p *Particle) clone(src rand.Source) *Particle {
	rnd := rand.New(src)
	c := &Particle{
		params:    p.params,
		model:     p.model,
		gsamps:    p.gsamps,
		mean:      mat.VecDenseCopyOf(p.mean),
		cov:       mat.DenseCopyOf(p.cov),
		state:     mat.VecDenseCopyOf(p.state),
		logWeight: p.logWeight,
		rnd:       rnd,
		normal:    distuv.Normal{Mu: 0, Sigma: 1, Src: rnd},
	}
	return c
}
