package mengproject

import "fmt"

// ValidationError reports a parameter or input rejected at construction
// time. It is always fatal: the object under construction is not usable.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// Validationf builds a *ValidationError from a format string.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NumericInstabilityError reports an unrecoverable numerical failure, such
// as a covariance that stays non-positive-definite after ridge correction
// or a particle population whose weights have all underflowed to zero.
// No retry is defined.
type NumericInstabilityError struct {
	Op  string
	Msg string
}

func (e *NumericInstabilityError) Error() string {
	return "numeric instability in " + e.Op + ": " + e.Msg
}

// ExhaustionError reports an attempt to advance the observation cursor past
// the end of the series. The fixed loop bound in RunFilter makes this
// unreachable in normal operation; it guards manual stepping.
type ExhaustionError struct {
	Cursor int
	Len    int
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("observation series exhausted: cursor %d of %d", e.Cursor, e.Len)
}
