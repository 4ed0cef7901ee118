package ensemble

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/sklearn/tree"
)

func init() {
	model.RegisterRegressor("imrcast/ensemble.AdaBoostRegressor", &AdaBoostRegressor{})
}

// AdaBoostRegressor implements AdaBoost.R2 (Drucker, 1997) with the linear
// loss. Each round fits a shallow tree on a weighted bootstrap sample and
// predictions are the weighted median of the rounds.
type AdaBoostRegressor struct {
	model.BaseEstimator

	NEstimators  int
	LearningRate float64
	BaseDepth    int
	RandomState  int64

	Estimators []*tree.DecisionTreeRegressor
	Weights    []float64
	Errors     []float64
	NFeatures  int
}

// AdaOption configures an AdaBoostRegressor.
type AdaOption func(*AdaBoostRegressor)

func WithRounds(n int) AdaOption { return func(a *AdaBoostRegressor) { a.NEstimators = n } }
func WithBaseDepth(d int) AdaOption { return func(a *AdaBoostRegressor) { a.BaseDepth = d } }
func WithAdaRandomState(seed int64) AdaOption {
	return func(a *AdaBoostRegressor) { a.RandomState = seed }
}

// NewAdaBoostRegressor defaults to 100 rounds of depth-3 trees with
// learning rate 1.
func NewAdaBoostRegressor(opts ...AdaOption) *AdaBoostRegressor {
	a := &AdaBoostRegressor{
		NEstimators:  100,
		LearningRate: 1.0,
		BaseDepth:    3,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Fit runs the boosting rounds. It stops early when a round fits the
// training set exactly or when its weighted error reaches 0.5.
func (a *AdaBoostRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "AdaBoostRegressor.Fit")
	if a.NEstimators < 1 || a.LearningRate <= 0 {
		return errors.NewValueError("AdaBoostRegressor.Fit", "rounds and learning rate must be positive")
	}
	data, err := tree.NewData(X, y)
	if err != nil {
		return err
	}
	target := data.Target()
	n := len(target)

	rng := rand.New(rand.NewSource(a.RandomState))
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}

	a.Estimators = a.Estimators[:0]
	a.Weights = a.Weights[:0]
	a.Errors = a.Errors[:0]
	cdf := make([]float64, n)
	sample := make([]int, n)
	loss := make([]float64, n)
	row := make([]float64, data.NumFeatures())

	for round := 0; round < a.NEstimators; round++ {
		floats.CumSum(cdf, weights)
		total := cdf[n-1]
		for i := range sample {
			u := rng.Float64() * total
			sample[i] = sort.Search(n, func(k int) bool { return cdf[k] > u })
			if sample[i] == n {
				sample[i] = n - 1
			}
		}

		est := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(a.BaseDepth),
			tree.WithRandomState(rng.Int63()),
		)
		if err := est.FitData(data, sample); err != nil {
			return err
		}

		for i := range loss {
			row = data.Row(row, i)
			loss[i] = math.Abs(est.PredictRow(row) - target[i])
		}
		if maxLoss := floats.Max(loss); maxLoss > 0 {
			floats.Scale(1/maxLoss, loss)
		}
		estErr := floats.Dot(weights, loss)

		if estErr <= 0 {
			a.Estimators = append(a.Estimators, est)
			a.Weights = append(a.Weights, 1)
			a.Errors = append(a.Errors, 0)
			break
		}
		if estErr >= 0.5 {
			// keep the first round so the model can still predict
			if len(a.Estimators) == 0 {
				a.Estimators = append(a.Estimators, est)
				a.Weights = append(a.Weights, 0)
				a.Errors = append(a.Errors, estErr)
			}
			break
		}

		beta := estErr / (1 - estErr)
		a.Estimators = append(a.Estimators, est)
		a.Weights = append(a.Weights, a.LearningRate*math.Log(1/beta))
		a.Errors = append(a.Errors, estErr)

		if round == a.NEstimators-1 {
			break
		}
		for i := range weights {
			weights[i] *= math.Pow(beta, (1-loss[i])*a.LearningRate)
		}
		sum := floats.Sum(weights)
		if sum <= 0 {
			break
		}
		floats.Scale(1/sum, weights)
	}

	a.NFeatures = data.NumFeatures()
	a.SetFitted()
	return nil
}

// Predict returns the weighted median of the round predictions.
func (a *AdaBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !a.IsFitted() {
		return nil, errors.NewNotFittedError("AdaBoostRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != a.NFeatures {
		return nil, errors.NewDimensionError("AdaBoostRegressor.Predict", a.NFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	preds := make([]float64, len(a.Estimators))
	order := make([]int, len(a.Estimators))
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		for k, est := range a.Estimators {
			preds[k] = est.PredictRow(row)
			order[k] = k
		}
		out.Set(i, 0, weightedMedian(preds, a.Weights, order))
	}
	return out, nil
}

// weightedMedian returns the smallest prediction whose cumulative weight
// reaches half of the total. order is scratch space.
func weightedMedian(preds, weights []float64, order []int) float64 {
	sort.SliceStable(order, func(i, j int) bool { return preds[order[i]] < preds[order[j]] })
	var total float64
	for _, w := range weights {
		total += w
	}
	var cum float64
	for _, k := range order {
		cum += weights[k]
		if cum >= 0.5*total {
			return preds[k]
		}
	}
	return preds[order[len(order)-1]]
}

// FeatureImportances returns the estimator-weighted mean of the round
// importances.
func (a *AdaBoostRegressor) FeatureImportances() ([]float64, error) {
	if !a.IsFitted() {
		return nil, errors.NewNotFittedError("AdaBoostRegressor", "FeatureImportances")
	}
	out := make([]float64, a.NFeatures)
	total := floats.Sum(a.Weights)
	if total == 0 {
		return out, nil
	}
	for k, est := range a.Estimators {
		floats.AddScaled(out, a.Weights[k]/total, est.Importances)
	}
	return out, nil
}
