// Package matutil provides small gonum matrix helpers shared by the
// numeric packages.
package matutil

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Eye returns the (n by n) identity matrix.
func Eye(n int) *mat.Dense {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	return mat.NewDense(n, n, data)
}

// ScaledEye returns value*I as a symmetric matrix, the additive ridge used
// to stabilize Cholesky factorizations.
func ScaledEye(n int, value float64) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, value)
	}
	return s
}

// NaNOrInf checks if there are any NaN or Inf entries in matrix.
func NaNOrInf(matrix mat.Matrix) bool {
	m, n := matrix.Dims()
	for row := 0; row < m; row++ {
		for col := 0; col < n; col++ {
			if math.IsNaN(matrix.At(row, col)) || math.IsInf(matrix.At(row, col), 0) {
				return true
			}
		}
	}
	return false
}
