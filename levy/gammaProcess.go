// Package levy simulates finite realizations of the pure-jump Lévy
// processes that drive the latent price dynamics. The only process
// implemented is the Gamma subordinator, generated through its generalized
// shot-noise series representation with acceptance-rejection thinning.
package levy

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/jj2249/mengproject"
)

// Path is one finite realization of a subordinator over [MinT, MaxT].
// Times are strictly ascending, beginning with the explicit origin sample
// (MinT, 0); Values holds the running sum of Jumps and is therefore
// non-decreasing. A path is generated once, consumed once and never reused.
type Path struct {
	MinT, MaxT float64
	// Times[i] is the arrival time of the i-th jump. Times[0] is the
	// window start, carrying the zero-size origin jump.
	Times []float64
	// Jumps[i] is the size of the i-th jump, Jumps[0] = 0.
	Jumps []float64
	// Values[i] is the cumulative process value at Times[i].
	Values []float64
}

// Len returns the number of samples on the path, origin included.
func (p *Path) Len() int {
	return len(p.Times)
}

// GammaProcess generates Gamma subordinator paths with shape parameter C
// and scale Beta. Candidate jumps come from Samps Poisson epochs of the
// given Rate; Samps fixes the series truncation, so larger values refine
// the small-jump tail of the approximation at linearly higher cost. Epochs
// near zero map to very large candidate jumps, which the thinning step
// almost surely rejects; candidates that overflow to +Inf are discarded
// outright since their acceptance probability underflows to zero anyway.
type GammaProcess struct {
	C     float64
	Beta  float64
	Rate  float64
	Samps int

	rnd *rand.Rand
}

// NewGammaProcess validates the subordinator parameters and returns a
// generator drawing from src.
func NewGammaProcess(c, beta, rate float64, samps int, src rand.Source) (*GammaProcess, error) {
	if c <= 0 {
		return nil, mengproject.Validationf("gamma process shape must be positive, got %v", c)
	}
	if beta <= 0 {
		return nil, mengproject.Validationf("gamma process scale must be positive, got %v", beta)
	}
	if rate <= 0 {
		return nil, mengproject.Validationf("gamma process epoch rate must be positive, got %v", rate)
	}
	if samps <= 0 {
		return nil, mengproject.Validationf("gamma process truncation count must be positive, got %d", samps)
	}
	return &GammaProcess{C: c, Beta: beta, Rate: rate, Samps: samps, rnd: rand.New(src)}, nil
}

type jump struct {
	time float64
	size float64
}

// Generate simulates one path over the window [minT, maxT].
//
// The series representation maps each Poisson epoch e to a candidate jump
// x = 1/(Beta*(exp(e/C)-1)), a decreasing function of e, and keeps it with
// probability (1+Beta*x)*exp(-Beta*x), correcting the series to the true
// Lévy density. Accepted jumps receive independent uniform arrival times
// on the window; size and time are independent marks.
func (g *GammaProcess) Generate(minT, maxT float64) (*Path, error) {
	if maxT <= minT {
		return nil, mengproject.Validationf("gamma process window [%v, %v] is empty", minT, maxT)
	}

	epochs, err := PoissonEpochs(g.Rate, g.Samps, g.rnd)
	if err != nil {
		return nil, err
	}

	accepted := make([]jump, 0, len(epochs))
	for _, e := range epochs {
		x := 1.0 / (g.Beta * math.Expm1(e/g.C))
		if math.IsInf(x, 0) {
			continue
		}
		a := (1 + g.Beta*x) * math.Exp(-g.Beta*x)
		if g.rnd.Float64() < a {
			t := minT + (maxT-minT)*g.rnd.Float64()
			accepted = append(accepted, jump{time: t, size: x})
		}
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].time < accepted[j].time })

	path := &Path{
		MinT:   minT,
		MaxT:   maxT,
		Times:  make([]float64, len(accepted)+1),
		Jumps:  make([]float64, len(accepted)+1),
		Values: make([]float64, len(accepted)+1),
	}
	path.Times[0] = minT
	var acc float64
	for i, j := range accepted {
		path.Times[i+1] = j.time
		path.Jumps[i+1] = j.size
		acc += j.size
		path.Values[i+1] = acc
	}
	return path, nil
}
