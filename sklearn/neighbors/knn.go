// Package neighbors implements k-nearest-neighbors regression.
package neighbors

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/core/parallel"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func init() {
	model.RegisterRegressor("imrcast/neighbors.KNeighborsRegressor", &KNeighborsRegressor{})
}

// KNeighborsRegressor predicts the unweighted mean target of the K nearest
// training rows by Euclidean distance. Equal distances keep training order.
type KNeighborsRegressor struct {
	model.BaseEstimator

	K int

	// Fit stores the training set as is.
	X         [][]float64
	Y         []float64
	NFeatures int
}

// NewKNeighborsRegressor returns a regressor using k neighbors.
func NewKNeighborsRegressor(k int) *KNeighborsRegressor {
	return &KNeighborsRegressor{K: k}
}

// Fit stores X and y.
func (m *KNeighborsRegressor) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("KNeighborsRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("KNeighborsRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("KNeighborsRegressor.Fit", 1, yCols, 1)
	}
	if m.K < 1 {
		return errors.NewValueError("KNeighborsRegressor.Fit", "k must be positive")
	}
	if m.K > rows {
		return errors.NewValueError("KNeighborsRegressor.Fit",
			"k exceeds the number of training samples")
	}

	m.X = make([][]float64, rows)
	for i := range m.X {
		m.X[i] = mat.Row(nil, i, X)
	}
	m.Y = mat.Col(nil, 0, y)
	m.NFeatures = cols
	m.SetFitted()
	return nil
}

// Predict averages the targets of each row's neighbors.
func (m *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("KNeighborsRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != m.NFeatures {
		return nil, errors.NewDimensionError("KNeighborsRegressor.Predict", m.NFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, 32, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			out.Set(i, 0, m.predictRow(row))
		}
	})
	return out, nil
}

// Neighbors returns the indices of the K nearest training rows to x,
// nearest first.
func (m *KNeighborsRegressor) Neighbors(x []float64) []int {
	type neighbor struct {
		d   float64
		idx int
	}
	all := make([]neighbor, len(m.X))
	for j, xj := range m.X {
		d := floats.Distance(x, xj, 2)
		all[j] = neighbor{d: d * d, idx: j}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].d < all[b].d })

	out := make([]int, m.K)
	for k := range out {
		out[k] = all[k].idx
	}
	return out
}

func (m *KNeighborsRegressor) predictRow(x []float64) float64 {
	var sum float64
	for _, j := range m.Neighbors(x) {
		sum += m.Y[j]
	}
	return sum / float64(m.K)
}
