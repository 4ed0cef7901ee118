// Package tree implements a CART regression tree with squared-error
// splits. The same builder backs the random-forest, extra-trees, boosting
// and AdaBoost ensembles.
package tree

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func init() {
	model.RegisterRegressor("imrcast/tree.DecisionTreeRegressor", &DecisionTreeRegressor{})
}

// Splitter selects how thresholds are chosen at each node.
type Splitter int

const (
	// Best scans every midpoint between distinct sorted values.
	Best Splitter = iota
	// Random draws one uniform threshold per feature (extremely randomized trees).
	Random
)

// Node is one node of a fitted tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Impurity  float64
	NSamples  int
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool { return n.Left < 0 }

// DecisionTreeRegressor is a binary regression tree. Samples with
// x[Feature] <= Threshold go left.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	MaxDepth        int // 0 => unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => all features
	Splitter        Splitter
	RandomState     int64

	Nodes       []Node
	NFeatures   int
	Importances []float64
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}
func WithMaxFeatures(k int) Option { return func(t *DecisionTreeRegressor) { t.MaxFeatures = k } }
func WithSplitter(s Splitter) Option { return func(t *DecisionTreeRegressor) { t.Splitter = s } }
func WithRandomState(seed int64) Option { return func(t *DecisionTreeRegressor) { t.RandomState = seed } }

// NewDecisionTreeRegressor returns a fully grown best-split tree unless
// options say otherwise.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Splitter:        Best,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit grows the tree on every row of X.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	data, err := NewData(X, y)
	if err != nil {
		return err
	}
	return t.FitData(data, data.AllIndices())
}

// FitData grows the tree on the given rows of data. Indices may repeat,
// which is how bootstrap samples are passed in.
func (t *DecisionTreeRegressor) FitData(data *Data, indices []int) error {
	if len(indices) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty sample", errors.ErrEmptyData)
	}
	if t.MinSamplesSplit < 2 {
		return errors.NewValueError("DecisionTreeRegressor.Fit", "min samples split must be at least 2")
	}
	if t.MinSamplesLeaf < 1 {
		return errors.NewValueError("DecisionTreeRegressor.Fit", "min samples leaf must be at least 1")
	}

	p := data.NumFeatures()
	b := &builder{
		tree:        t,
		data:        data,
		rng:         rand.New(rand.NewSource(t.RandomState)),
		features:    make([]int, p),
		importances: make([]float64, p),
	}
	for j := range b.features {
		b.features[j] = j
	}

	t.Nodes = t.Nodes[:0]
	t.NFeatures = p
	b.build(append([]int(nil), indices...), 0)
	t.Importances = normalize(b.importances)
	t.SetFitted()
	return nil
}

// Predict returns an n × 1 matrix of leaf means.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != t.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", t.NFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, t.PredictRow(row))
	}
	return out, nil
}

// PredictRow walks a single sample to its leaf. The tree must be fitted.
func (t *DecisionTreeRegressor) PredictRow(x []float64) float64 {
	n := t.Nodes[0]
	for !n.IsLeaf() {
		if x[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n.Value
}

// FeatureImportances returns the normalized total impurity decrease per
// feature.
func (t *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "FeatureImportances")
	}
	return append([]float64(nil), t.Importances...), nil
}

// Depth returns the length of the longest root-to-leaf path.
func (t *DecisionTreeRegressor) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// NumLeaves counts leaves.
func (t *DecisionTreeRegressor) NumLeaves() int {
	count := 0
	for _, n := range t.Nodes {
		if n.IsLeaf() {
			count++
		}
	}
	return count
}

func normalize(v []float64) []float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	out := make([]float64, len(v))
	if total <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}
