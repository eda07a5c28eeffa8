package rbpf

import (
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jj2249/mengproject"
	"github.com/jj2249/mengproject/langevin"
	"github.com/jj2249/mengproject/timeseries"
)

// Filter is the particle-population engine: it owns exactly N particles,
// drives the observation sweep, renormalizes importance weights, detects
// weight degeneracy and resamples, and accumulates the log marginal
// likelihood. The first observation of the series initializes the cursor
// and is not itself filtered.
type Filter struct {
	params mengproject.ModelParams
	model  *langevin.Model
	series *timeseries.Series

	n      int
	gsamps int

	cursor           int
	currentTime      float64
	currentPrice     float64
	logResampleLimit float64 // log(N*epsilon)
	logMarginal      float64

	particles []*Particle

	rnd *rand.Rand
	log logrus.FieldLogger
}

// History records per-step weighted posterior summaries of the first two
// state components, seeded with zeros for the unfiltered first
// observation.
type History struct {
	StateMeans     []float64
	StateVariances []float64
	GradMeans      []float64
	GradVariances  []float64
}

// New constructs a filter of n particles over the given observation
// series. Both timestamps and prices are zero-based against the first
// observation before filtering. The seed fixes every random stream in the
// engine; runs with identical inputs and seed are exactly reproducible.
func New(params mengproject.ModelParams, model *langevin.Model, series *timeseries.Series, n, gsamps int, epsilon float64, seed uint64) (*Filter, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, mengproject.Validationf("particle count must be positive, got %d", n)
	}
	if gsamps <= 0 {
		return nil, mengproject.Validationf("subordinator truncation count must be positive, got %d", gsamps)
	}
	if epsilon <= 0 || epsilon >= 1 {
		return nil, mengproject.Validationf("degeneracy threshold must lie in (0,1), got %v", epsilon)
	}
	if series == nil || series.Len() < 2 {
		return nil, mengproject.Validationf("observation series needs at least 2 points")
	}

	zeroed := series.ZeroBased()
	f := &Filter{
		params:           params,
		model:            model,
		series:           zeroed,
		n:                n,
		gsamps:           gsamps,
		currentTime:      zeroed.Time(0),
		currentPrice:     zeroed.Price(0),
		logResampleLimit: math.Log(float64(n) * epsilon),
		particles:        make([]*Particle, n),
		rnd:              rand.New(rand.NewSource(seed)),
		log:              discardLogger(),
	}
	for i := range f.particles {
		p, err := NewParticle(params, model, gsamps, rand.NewSource(f.rnd.Uint64()))
		if err != nil {
			return nil, errors.Wrapf(err, "particle %d", i)
		}
		f.particles[i] = p
	}
	return f, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetLogger routes per-step diagnostics to l.
func (f *Filter) SetLogger(l logrus.FieldLogger) {
	f.log = l
}

// IncrementParticles advances the cursor to the next observation and runs
// one predict/correct/weight cycle on every particle. Particles update in
// parallel; each owns an independent random stream, so the result does not
// depend on scheduling.
func (f *Filter) IncrementParticles() error {
	if f.cursor+1 >= f.series.Len() {
		return &mengproject.ExhaustionError{Cursor: f.cursor + 1, Len: f.series.Len()}
	}
	f.cursor++
	prevTime := f.currentTime
	f.currentTime = f.series.Time(f.cursor)
	f.currentPrice = f.series.Price(f.cursor)

	errs := make([]error, len(f.particles))
	var wg sync.WaitGroup
	wg.Add(len(f.particles))
	for i, p := range f.particles {
		go func(i int, p *Particle) {
			defer wg.Done()
			errs[i] = p.Increment(f.currentPrice, prevTime, f.currentTime)
		}(i, p)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "increment particle %d", i)
		}
	}
	return nil
}

func (f *Filter) logWeights() []float64 {
	lw := make([]float64, len(f.particles))
	for i, p := range f.particles {
		lw[i] = p.logWeight
	}
	return lw
}

// ReweightParticles renormalizes the population in the log domain so that
// the linear weights sum to one. Calling it twice in a row is a no-op.
func (f *Filter) ReweightParticles() error {
	lse := floats.LogSumExp(f.logWeights())
	if math.IsInf(lse, -1) || math.IsNaN(lse) {
		return &mengproject.NumericInstabilityError{Op: "reweight", Msg: "all particle weights vanished"}
	}
	for _, p := range f.particles {
		p.logWeight -= lse
	}
	return nil
}

// ResampleParticles draws one joint multinomial count vector over the
// normalized weights and replaces the population wholesale with deep,
// non-aliasing offspring copies, each reset to log-weight -log(N).
func (f *Filter) ResampleParticles() error {
	weights := make([]float64, len(f.particles))
	var sum float64
	for i, p := range f.particles {
		w := math.Exp(p.logWeight)
		if math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0
		}
		weights[i] = w
		sum += w
	}
	if sum == 0 {
		return &mengproject.NumericInstabilityError{Op: "resample", Msg: "all particle weights underflowed to zero"}
	}
	for i := range weights {
		weights[i] /= sum
	}

	counts := f.multinomial(weights)

	offspring := make([]*Particle, 0, f.n)
	for idx, c := range counts {
		for k := 0; k < c; k++ {
			offspring = append(offspring, f.particles[idx].clone(rand.NewSource(f.rnd.Uint64())))
		}
	}
	f.particles = offspring

	logUniform := -math.Log(float64(f.n))
	for _, p := range f.particles {
		p.logWeight = logUniform
	}
	return nil
}

// multinomial draws a single multinomial(n, weights) count vector through
// the conditional-binomial chain: counts[i] ~ Binomial(remaining,
// weights[i]/remainingMass).
func (f *Filter) multinomial(weights []float64) []int {
	counts := make([]int, len(weights))
	remaining := f.n
	mass := 1.0
	last := 0
	for i, w := range weights {
		if remaining == 0 {
			break
		}
		if w <= 0 {
			continue
		}
		last = i
		p := w / mass
		if p >= 1 {
			counts[i] += remaining
			remaining = 0
			break
		}
		b := distuv.Binomial{N: float64(remaining), P: p, Src: f.rnd}
		c := int(b.Rand())
		counts[i] += c
		remaining -= c
		mass -= w
	}
	// floating-point slack in the chain can leave stragglers
	counts[last] += remaining
	return counts
}

// LogPredictiveLikelihood returns the log-sum-exp of the current
// log-weights: before renormalization this is the step's marginal
// likelihood increment; after it, zero.
func (f *Filter) LogPredictiveLikelihood() float64 {
	return floats.LogSumExp(f.logWeights())
}

// LogMarginalLikelihood returns the accumulated log marginal likelihood.
func (f *Filter) LogMarginalLikelihood() float64 {
	return f.logMarginal
}

// LogPn2 is the inverse-sum-of-squares effective-sample-size estimator,
// -log sum_i w_i^2, in [0, log N] for normalized weights.
func (f *Filter) LogPn2() float64 {
	lw := f.logWeights()
	for i := range lw {
		lw[i] *= 2
	}
	return -floats.LogSumExp(lw)
}

// LogDninf is the inverse-maximum-weight effective-sample-size estimator,
// -max_i log w_i. This is the diagnostic that gates resampling.
func (f *Filter) LogDninf() float64 {
	lw := f.logWeights()
	return -floats.Max(lw)
}

// StateMean returns the weighted mean of the particle state means under
// the normalized weights.
func (f *Filter) StateMean() *mat.VecDense {
	mean := mat.NewVecDense(3, nil)
	for _, p := range f.particles {
		mean.AddScaledVec(mean, math.Exp(p.logWeight), p.mean)
	}
	return mean
}

// StateCovariance returns the weighted mean of the particle state
// covariances under the normalized weights.
func (f *Filter) StateCovariance() *mat.Dense {
	cov := mat.NewDense(3, 3, nil)
	var scaled mat.Dense
	for _, p := range f.particles {
		scaled.Scale(math.Exp(p.logWeight), p.cov)
		cov.Add(cov, &scaled)
	}
	return cov
}

// RunFilter sweeps every remaining observation. When recordHistory is set
// it returns per-step weighted summaries of the level and velocity
// components; otherwise the history is nil. The accumulated log marginal
// likelihood is always returned and is usable as a calibration objective.
func (f *Filter) RunFilter(recordHistory bool) (*History, float64, error) {
	var hist *History
	if recordHistory {
		hist = &History{
			StateMeans:     []float64{0},
			StateVariances: []float64{0},
			GradMeans:      []float64{0},
			GradVariances:  []float64{0},
		}
	}

	for f.cursor+1 < f.series.Len() {
		if err := f.IncrementParticles(); err != nil {
			return hist, f.logMarginal, err
		}
		f.logMarginal += f.LogPredictiveLikelihood()
		if err := f.ReweightParticles(); err != nil {
			return hist, f.logMarginal, err
		}

		if recordHistory {
			mean := f.StateMean()
			cov := f.StateCovariance()
			hist.StateMeans = append(hist.StateMeans, mean.AtVec(0))
			hist.StateVariances = append(hist.StateVariances, cov.At(0, 0))
			hist.GradMeans = append(hist.GradMeans, mean.AtVec(1))
			hist.GradVariances = append(hist.GradVariances, cov.At(1, 1))
		}

		entry := f.log.WithFields(logrus.Fields{
			"step":        f.cursor,
			"time":        f.currentTime,
			"logMarginal": f.logMarginal,
			"logDninf":    f.LogDninf(),
		})
		if f.LogDninf() < f.logResampleLimit {
			entry.Debug("resampling")
			if err := f.ResampleParticles(); err != nil {
				return hist, f.logMarginal, err
			}
		} else {
			entry.Debug("stepped")
		}
	}
	return hist, f.logMarginal, nil
}
