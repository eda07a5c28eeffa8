// Package langevin provides the state-space model underlying the filter: a
// Langevin (mean-reverting) velocity model whose driving noise is time-
// changed by a Gamma subordinator, with the stationary mean offset carried
// as a third, marginalised state component.
//
// The latent state is (level, velocity, mean offset). Conditional on a
// subordinator path the model is linear-Gaussian:
//
//	x(t) = A(m, dt) x(s) + B e,   e ~ N(0, sigmasq*S)
//	y(t) = H x(t) + observation noise
//
// where the drift moment m and diffusion moment S are deterministic
// functionals of the path.
package langevin

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jj2249/mengproject"
	"github.com/jj2249/mengproject/levy"
)

// Model is the immutable configuration injected into each particle: the
// mean-reversion coefficient plus the fixed noise-input and observation
// matrices. B and H are precomputed once and must not be mutated.
type Model struct {
	Theta float64
	// B maps the 2-dimensional innovation onto the 3-dimensional state.
	B *mat.Dense
	// H observes the level component.
	H *mat.Dense
}

// NewModel returns the model configuration for mean-reversion coefficient
// theta.
func NewModel(theta float64) (*Model, error) {
	if theta == 0 {
		return nil, mengproject.Validationf("langevin theta must be non-zero")
	}
	return &Model{
		Theta: theta,
		B: mat.NewDense(3, 2, []float64{
			1, 0,
			0, 1,
			0, 0,
		}),
		H: mat.NewDense(1, 3, []float64{1, 0, 0}),
	}, nil
}

// ft is the Langevin impulse response exp(A2*(t-u)) h with h = (0, 1):
// the contribution at time t of a unit jump arriving at time u.
func (m *Model) ft(t, u float64) (f0, f1 float64) {
	e := math.Exp(m.Theta * (t - u))
	return (e - 1) / m.Theta, e
}

// DriftMoment returns the 2-vector m(t) = sum_i dZ_i f(t, u_i) over the
// jumps of path.
func (m *Model) DriftMoment(t float64, path *levy.Path) *mat.VecDense {
	var m0, m1 float64
	for i := 0; i < path.Len(); i++ {
		f0, f1 := m.ft(t, path.Times[i])
		m0 += path.Jumps[i] * f0
		m1 += path.Jumps[i] * f1
	}
	return mat.NewVecDense(2, []float64{m0, m1})
}

// DiffusionMoment returns the 2x2 matrix S(t) = sum_i dZ_i f(t, u_i)
// f(t, u_i)^T over the jumps of path. S is positive semi-definite by
// construction.
func (m *Model) DiffusionMoment(t float64, path *levy.Path) *mat.SymDense {
	var s00, s01, s11 float64
	for i := 0; i < path.Len(); i++ {
		f0, f1 := m.ft(t, path.Times[i])
		z := path.Jumps[i]
		s00 += z * f0 * f0
		s01 += z * f0 * f1
		s11 += z * f1 * f1
	}
	s := mat.NewSymDense(2, nil)
	s.SetSym(0, 0, s00)
	s.SetSym(0, 1, s01)
	s.SetSym(1, 1, s11)
	return s
}

// Transition builds the 3x3 state transition matrix A(m, dt): the matrix
// exponential of the 2x2 Langevin block over dt, bordered by the drift
// moment column so that the mean offset component feeds the first two
// states and propagates itself unchanged.
func (m *Model) Transition(drift *mat.VecDense, dt float64) *mat.Dense {
	e := math.Exp(m.Theta * dt)
	return mat.NewDense(3, 3, []float64{
		1, (e - 1) / m.Theta, drift.AtVec(0),
		0, e, drift.AtVec(1),
		0, 0, 1,
	})
}
