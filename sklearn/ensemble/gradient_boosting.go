package ensemble

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/sklearn/tree"
)

func init() {
	model.RegisterRegressor("imrcast/ensemble.GradientBoostingRegressor", &GradientBoostingRegressor{})
}

// GradientBoostingRegressor fits shallow trees to squared-error residuals
// in sequence, starting from the target mean.
//
//	F₀ = mean(y)
//	Fₘ = Fₘ₋₁ + LearningRate · treeₘ(x),  treeₘ fitted to y − Fₘ₋₁
type GradientBoostingRegressor struct {
	model.BaseEstimator

	NEstimators  int
	LearningRate float64
	MaxDepth     int
	RandomState  int64

	Init        float64
	Estimators  []*tree.DecisionTreeRegressor
	NFeatures   int
	Importances []float64

	// TrainLoss is the training MSE after each stage.
	TrainLoss []float64
}

// GBOption configures a GradientBoostingRegressor.
type GBOption func(*GradientBoostingRegressor)

func WithStages(n int) GBOption { return func(g *GradientBoostingRegressor) { g.NEstimators = n } }
func WithLearningRate(lr float64) GBOption {
	return func(g *GradientBoostingRegressor) { g.LearningRate = lr }
}
func WithStageDepth(d int) GBOption { return func(g *GradientBoostingRegressor) { g.MaxDepth = d } }
func WithGBRandomState(seed int64) GBOption {
	return func(g *GradientBoostingRegressor) { g.RandomState = seed }
}

// NewGradientBoostingRegressor defaults to 100 stages of depth-3 trees with
// learning rate 0.1.
func NewGradientBoostingRegressor(opts ...GBOption) *GradientBoostingRegressor {
	g := &GradientBoostingRegressor{
		NEstimators:  100,
		LearningRate: 0.1,
		MaxDepth:     3,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Fit runs the boosting stages.
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")
	if g.NEstimators < 1 || g.LearningRate <= 0 {
		return errors.NewValueError("GradientBoostingRegressor.Fit", "stages and learning rate must be positive")
	}
	data, err := tree.NewData(X, y)
	if err != nil {
		return err
	}
	target := data.Target()
	n := len(target)
	indices := data.AllIndices()

	g.Init = stat.Mean(target, nil)
	current := make([]float64, n)
	for i := range current {
		current[i] = g.Init
	}

	g.Estimators = make([]*tree.DecisionTreeRegressor, 0, g.NEstimators)
	g.TrainLoss = make([]float64, 0, g.NEstimators)
	residual := make([]float64, n)
	row := make([]float64, data.NumFeatures())
	for m := 0; m < g.NEstimators; m++ {
		for i := range residual {
			residual[i] = target[i] - current[i]
		}
		stage := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(g.MaxDepth),
			tree.WithRandomState(g.RandomState+int64(m)),
		)
		if err := stage.FitData(data.WithTarget(residual), indices); err != nil {
			return err
		}

		var loss float64
		for i := range current {
			row = data.Row(row, i)
			current[i] += g.LearningRate * stage.PredictRow(row)
			d := target[i] - current[i]
			loss += d * d
		}
		g.Estimators = append(g.Estimators, stage)
		g.TrainLoss = append(g.TrainLoss, loss/float64(n))
	}

	g.NFeatures = data.NumFeatures()
	g.Importances = meanImportances(g.Estimators, g.NFeatures)
	g.SetFitted()
	return nil
}

// Predict sums the staged contributions.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != g.NFeatures {
		return nil, errors.NewDimensionError("GradientBoostingRegressor.Predict", g.NFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		v := g.Init
		for _, t := range g.Estimators {
			v += g.LearningRate * t.PredictRow(row)
		}
		out.Set(i, 0, v)
	}
	return out, nil
}

// FeatureImportances returns the mean of the per-stage importances.
func (g *GradientBoostingRegressor) FeatureImportances() ([]float64, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "FeatureImportances")
	}
	return append([]float64(nil), g.Importances...), nil
}
