package matutil

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RidgedCholeskyDraw draws one sample L*z where L is the lower Cholesky
// factor of sym + ridge*I and z is a vector of independent draws from
// normal. It reports false when the ridged matrix is still not positive
// definite; callers treat that as fatal.
func RidgedCholeskyDraw(sym *mat.SymDense, ridge float64, normal distuv.Normal) (*mat.VecDense, bool) {
	n := sym.SymmetricDim()

	var ridged mat.SymDense
	ridged.AddSym(sym, ScaledEye(n, ridge))

	var chol mat.Cholesky
	if !chol.Factorize(&ridged) {
		return nil, false
	}
	l := mat.NewTriDense(n, mat.Lower, nil)
	chol.LTo(l)

	z := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		z.SetVec(i, normal.Rand())
	}
	out := mat.NewVecDense(n, nil)
	out.MulVec(l, z)
	return out, true
}
