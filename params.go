// Package mengproject holds the shared model hyperparameters and error
// types for a Rao-Blackwellised particle filter over a Langevin price model
// driven by a Gamma subordinator.
package mengproject

// ModelParams contains all hyperparameters of the Langevin state-space
// model shared between the model provider, the particles and the filter.
type ModelParams struct {
	// Prior mean of the stationary mean offset
	MuMu float64
	// State variance scale
	SigmaSq float64
	// Gamma subordinator scale
	Beta float64
	// Prior variance multiplier for the mean offset component
	Kw float64
	// Observation noise multiplier
	Kv float64
	// Langevin mean-reversion coefficient
	Theta float64
}

// Validate rejects parameter combinations the filter cannot run with.
func (p ModelParams) Validate() error {
	if p.SigmaSq <= 0 {
		return Validationf("sigmasq must be positive, got %v", p.SigmaSq)
	}
	if p.Beta <= 0 {
		return Validationf("beta must be positive, got %v", p.Beta)
	}
	if p.Kw < 0 {
		return Validationf("kw must be non-negative, got %v", p.Kw)
	}
	if p.Kv < 0 {
		return Validationf("kv must be non-negative, got %v", p.Kv)
	}
	if p.Theta == 0 {
		return Validationf("theta must be non-zero")
	}
	return nil
}
