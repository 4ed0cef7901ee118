package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

// NumericalInstabilityError reports NaN or Inf values produced by an operation.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("imrcast: numerical instability detected in %s. Values: [%s]", e.Operation, valStr)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values})
}

// CheckScalar returns an error when value is NaN or Inf.
func CheckScalar(operation string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value})
	}
	return nil
}

// CheckMatrix returns an error when any cell of matrix is NaN or Inf.
func CheckMatrix(operation string, matrix interface {
	At(int, int) float64
	Dims() (int, int)
}) error {
	rows, cols := matrix.Dims()
	var unstable []float64
	for i := 0; i < rows && len(unstable) < 10; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				unstable = append(unstable, v)
			}
		}
	}
	if len(unstable) > 0 {
		return NewNumericalInstabilityError(operation, unstable)
	}
	return nil
}

// SafeDivide returns 0 when the denominator is (close to) zero.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}
