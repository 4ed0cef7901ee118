package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// Data is a column-major copy of a training set. Ensembles build it once
// and fit every tree against it with their own sample indices.
type Data struct {
	cols [][]float64
	y    []float64
}

// NewData validates X (n × p) and y (n × 1) and copies them column-wise.
func NewData(X, y mat.Matrix) (*Data, error) {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("tree.NewData", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return nil, errors.NewDimensionError("tree.NewData", rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError("tree.NewData", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("tree.NewData", X); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix("tree.NewData", y); err != nil {
		return nil, err
	}

	d := &Data{cols: make([][]float64, cols), y: mat.Col(nil, 0, y)}
	for j := range d.cols {
		d.cols[j] = mat.Col(nil, j, X)
	}
	return d, nil
}

// NumSamples returns n.
func (d *Data) NumSamples() int { return len(d.y) }

// NumFeatures returns p.
func (d *Data) NumFeatures() int { return len(d.cols) }

// Target returns the target column. It must not be modified.
func (d *Data) Target() []float64 { return d.y }

// Row copies sample i into dst, allocating when dst is too short.
func (d *Data) Row(dst []float64, i int) []float64 {
	if len(dst) < len(d.cols) {
		dst = make([]float64, len(d.cols))
	}
	for j, c := range d.cols {
		dst[j] = c[i]
	}
	return dst[:len(d.cols)]
}

// WithTarget returns a view sharing the features of d with a new target.
func (d *Data) WithTarget(y []float64) *Data {
	return &Data{cols: d.cols, y: y}
}

// AllIndices returns 0..n-1.
func (d *Data) AllIndices() []int {
	idx := make([]int, len(d.y))
	for i := range idx {
		idx[i] = i
	}
	return idx
}
