// Package timeseries holds the observation series consumed by the filter:
// ordered (time, price) pairs with strictly increasing timestamps.
package timeseries

import (
	"time"

	"github.com/jj2249/mengproject"
)

// Series is an immutable, pre-validated observation series. Times are
// elapsed seconds; both axes may be zero-based against the first
// observation before filtering.
type Series struct {
	times  []float64
	prices []float64
}

// New validates and wraps an observation series. The two slices must have
// equal length of at least 2 and strictly increasing times.
func New(times, prices []float64) (*Series, error) {
	if len(times) != len(prices) {
		return nil, mengproject.Validationf("times and prices differ in length: %d vs %d", len(times), len(prices))
	}
	if len(times) < 2 {
		return nil, mengproject.Validationf("observation series needs at least 2 points, got %d", len(times))
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, mengproject.Validationf("observation times must be strictly increasing: times[%d]=%v, times[%d]=%v",
				i-1, times[i-1], i, times[i])
		}
	}
	s := &Series{
		times:  make([]float64, len(times)),
		prices: make([]float64, len(prices)),
	}
	copy(s.times, times)
	copy(s.prices, prices)
	return s, nil
}

// FromDurations adapts duration-valued timestamps to elapsed seconds and
// validates the result.
func FromDurations(times []time.Duration, prices []float64) (*Series, error) {
	secs := make([]float64, len(times))
	for i, d := range times {
		secs[i] = d.Seconds()
	}
	return New(secs, prices)
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.times)
}

// Time returns the i-th observation time.
func (s *Series) Time(i int) float64 {
	return s.times[i]
}

// Price returns the i-th observation value.
func (s *Series) Price(i int) float64 {
	return s.prices[i]
}

// ZeroBased returns a copy of the series shifted so that the first
// observation sits at time 0 and price 0.
func (s *Series) ZeroBased() *Series {
	t0, p0 := s.times[0], s.prices[0]
	z := &Series{
		times:  make([]float64, len(s.times)),
		prices: make([]float64, len(s.prices)),
	}
	for i := range s.times {
		z.times[i] = s.times[i] - t0
		z.prices[i] = s.prices[i] - p0
	}
	return z
}
