// Package model_selection partitions rows into training and holdout sets.
package model_selection

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

const (
	// DefaultTestSize is the holdout fraction.
	DefaultTestSize = 0.2
	// DefaultSeed seeds the shuffle when the caller does not.
	DefaultSeed int64 = 42
)

// Split holds disjoint row indices. Train and Test are in shuffled order.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles [0, n) with seed and holds out ceil(testSize·n)
// rows. The same n, testSize and seed always produce the same partition.
// Both sides must end up non-empty.
func TrainTestSplit(n int, testSize float64, seed int64) (Split, error) {
	if testSize <= 0 || testSize >= 1 {
		return Split{}, errors.NewValueError("TrainTestSplit", "test size must be in (0, 1)")
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return Split{}, errors.NewInputError("TrainTestSplit", "",
			"not enough rows to hold out a test set")
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return Split{Train: perm[nTest:], Test: perm[:nTest]}, nil
}

// Rows copies the given rows of X into a new matrix.
func Rows(X mat.Matrix, rows []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// Apply splits X and y by s.
func (s Split) Apply(X, y mat.Matrix) (XTrain, XTest, yTrain, yTest *mat.Dense) {
	return Rows(X, s.Train), Rows(X, s.Test), Rows(y, s.Train), Rows(y, s.Test)
}
