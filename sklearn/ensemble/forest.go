// Package ensemble provides tree ensembles for regression: bagged random
// forests, extremely randomized trees, gradient boosting and AdaBoost.R2.
package ensemble

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/core/parallel"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/sklearn/tree"
)

func init() {
	model.RegisterRegressor("imrcast/ensemble.RandomForestRegressor", &RandomForestRegressor{})
	model.RegisterRegressor("imrcast/ensemble.ExtraTreesRegressor", &ExtraTreesRegressor{})
}

// Forest is the state shared by averaging ensembles. Tree i is seeded with
// RandomState + i so a fit is reproducible regardless of scheduling.
type Forest struct {
	model.BaseEstimator

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     int64

	Estimators  []*tree.DecisionTreeRegressor
	NFeatures   int
	Importances []float64
}

// Option configures a forest.
type Option func(*Forest)

func WithNEstimators(n int) Option { return func(f *Forest) { f.NEstimators = n } }
func WithMaxDepth(d int) Option { return func(f *Forest) { f.MaxDepth = d } }
func WithMinSamplesLeaf(n int) Option { return func(f *Forest) { f.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) Option { return func(f *Forest) { f.MaxFeatures = k } }
func WithBootstrap(b bool) Option { return func(f *Forest) { f.Bootstrap = b } }
func WithRandomState(seed int64) Option {
	return func(f *Forest) { f.RandomState = seed }
}

func newForest(bootstrap bool, opts []Option) Forest {
	f := Forest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       bootstrap,
	}
	for _, o := range opts {
		o(&f)
	}
	return f
}

func (f *Forest) fit(name string, X, y mat.Matrix, splitter tree.Splitter) (err error) {
	defer errors.Recover(&err, name+".Fit")
	if f.NEstimators < 1 {
		return errors.NewValueError(name+".Fit", "n estimators must be positive")
	}
	data, err := tree.NewData(X, y)
	if err != nil {
		return err
	}
	n := data.NumSamples()

	trees := make([]*tree.DecisionTreeRegressor, f.NEstimators)
	err = parallel.ForEach(f.NEstimators, 1, func(i int) (treeErr error) {
		// workers recover their own panics; the caller's defer cannot see them
		defer errors.Recover(&treeErr, name+".Fit")
		seed := f.RandomState + int64(i)
		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(f.MaxDepth),
			tree.WithMinSamplesSplit(f.MinSamplesSplit),
			tree.WithMinSamplesLeaf(f.MinSamplesLeaf),
			tree.WithMaxFeatures(f.MaxFeatures),
			tree.WithSplitter(splitter),
			tree.WithRandomState(seed),
		)
		indices := data.AllIndices()
		if f.Bootstrap {
			rng := rand.New(rand.NewSource(seed))
			for j := range indices {
				indices[j] = rng.Intn(n)
			}
		}
		if err := t.FitData(data, indices); err != nil {
			return err
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return err
	}

	f.Estimators = trees
	f.NFeatures = data.NumFeatures()
	f.Importances = meanImportances(trees, f.NFeatures)
	f.SetFitted()
	return nil
}

func (f *Forest) predict(name string, X mat.Matrix) (mat.Matrix, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError(name, "Predict")
	}
	rows, cols := X.Dims()
	if cols != f.NFeatures {
		return nil, errors.NewDimensionError(name+".Predict", f.NFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, 64, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			var sum float64
			for _, t := range f.Estimators {
				sum += t.PredictRow(row)
			}
			out.Set(i, 0, sum/float64(len(f.Estimators)))
		}
	})
	return out, nil
}

// FeatureImportances returns the mean of the per-tree importances.
func (f *Forest) FeatureImportances() ([]float64, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("Forest", "FeatureImportances")
	}
	return append([]float64(nil), f.Importances...), nil
}

func meanImportances(trees []*tree.DecisionTreeRegressor, p int) []float64 {
	out := make([]float64, p)
	var total float64
	for _, t := range trees {
		for j, v := range t.Importances {
			out[j] += v
			total += v
		}
	}
	if total == 0 {
		return out
	}
	for j := range out {
		out[j] /= total
	}
	return out
}

// RandomForestRegressor averages fully grown trees fitted on bootstrap
// samples.
type RandomForestRegressor struct {
	Forest
}

// NewRandomForestRegressor defaults to 100 bootstrapped trees using every
// feature at each split.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	return &RandomForestRegressor{Forest: newForest(true, opts)}
}

func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	return rf.fit("RandomForestRegressor", X, y, tree.Best)
}

func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	return rf.predict("RandomForestRegressor", X)
}

// ExtraTreesRegressor averages trees whose thresholds are drawn at random.
// Every tree sees the full training set unless Bootstrap is set.
type ExtraTreesRegressor struct {
	Forest
}

// NewExtraTreesRegressor defaults to 100 trees without bootstrap.
func NewExtraTreesRegressor(opts ...Option) *ExtraTreesRegressor {
	return &ExtraTreesRegressor{Forest: newForest(false, opts)}
}

func (et *ExtraTreesRegressor) Fit(X, y mat.Matrix) error {
	return et.fit("ExtraTreesRegressor", X, y, tree.Random)
}

func (et *ExtraTreesRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	return et.predict("ExtraTreesRegressor", X)
}
