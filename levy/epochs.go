package levy

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jj2249/mengproject"
)

// PoissonEpochs returns count ascending arrival times of a Poisson process
// with the given rate: the running sum of independent Exponential(rate)
// inter-arrival gaps.
func PoissonEpochs(rate float64, count int, src rand.Source) ([]float64, error) {
	if rate <= 0 {
		return nil, mengproject.Validationf("poisson epoch rate must be positive, got %v", rate)
	}
	if count <= 0 {
		return nil, mengproject.Validationf("poisson epoch count must be positive, got %d", count)
	}
	gap := distuv.Exponential{Rate: rate, Src: src}
	epochs := make([]float64, count)
	var acc float64
	for i := range epochs {
		acc += gap.Rand()
		epochs[i] = acc
	}
	return epochs, nil
}
