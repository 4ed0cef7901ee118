package training

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/artifact"
	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/dataset"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/pkg/log"
	"github.com/YuminosukeSato/imrcast/registry"
	"github.com/YuminosukeSato/imrcast/sklearn/linear_model"
)

const target = "Infant mortality rate (per 1000 live births)"

// linearDataset returns n rows of p numeric features and a noiseless linear
// target, plus a text column that must be ignored.
func linearDataset(t *testing.T, n, p int) (*dataset.Dataset, []string) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	y := make([]float64, n)
	for i := range y {
		y[i] = 3
	}
	var cols []*dataset.Column
	var names []string
	for j := 0; j < p; j++ {
		v := make([]float64, n)
		coef := float64(j%4) + 0.5
		for i := range v {
			v[i] = rng.NormFloat64()*float64(j+1) + float64(j)
			y[i] += coef * v[i]
		}
		name := fmt.Sprintf("x%02d", j)
		names = append(names, name)
		cols = append(cols, dataset.NewNumericColumn(name, v))
	}
	cols = append(cols,
		dataset.NewNumericColumn(target, y),
		dataset.NewTextColumn("Country", make([]string, n)),
	)
	ds, err := dataset.New(cols...)
	require.NoError(t, err)
	return ds, names
}

type failingRegressor struct{}

func (failingRegressor) Fit(X, y mat.Matrix) error { return errors.New("singular system") }
func (failingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	return nil, errors.NewNotFittedError("failingRegressor", "Predict")
}

type panickingRegressor struct{}

func (panickingRegressor) Fit(X, y mat.Matrix) error { panic("index out of range") }
func (panickingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	return nil, nil
}

func stubRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New(
		registry.Entry{Name: registry.LinearRegression, New: func() model.Regressor { return linear_model.NewLinearRegression() }},
		registry.Entry{Name: "broken", New: func() model.Regressor { return failingRegressor{} }},
		registry.Entry{Name: "panics", New: func() model.Regressor { return panickingRegressor{} }},
		registry.Entry{Name: registry.Ridge, New: func() model.Regressor { return linear_model.NewRidge(1.0) }},
	)
	require.NoError(t, err)
	return r
}

func TestRun_AllCandidates(t *testing.T) {
	ds, features := linearDataset(t, 100, 12)
	store := artifact.NewMemoryStore()
	logger, _ := log.NewTestLogger(log.LevelDebug)

	ev := NewEvaluator(store, WithLogger(logger))
	res, err := ev.Run(context.Background(), ds, target, features)
	require.NoError(t, err)

	assert.Equal(t, Done, ev.Stage())
	assert.Empty(t, res.Failures)
	assert.Equal(t, registry.RandomForest, res.Selected)

	scores := res.Metrics()
	assert.Len(t, scores, 11)
	for _, name := range registry.Default(registry.DefaultSeed).Names() {
		m, ok := scores[name]
		require.True(t, ok, name)
		assert.GreaterOrEqual(t, m.MAE, 0.0, name)
		assert.GreaterOrEqual(t, m.RMSE, 0.0, name)
		assert.LessOrEqual(t, m.R2, 1.0, name)
	}
	ols := scores[registry.LinearRegression]
	assert.Greater(t, ols.R2, 0.99)
	assert.InDelta(t, 0, ols.MAE, 1e-6)

	assert.Len(t, res.Split.Test, 20)
	assert.Len(t, res.Split.Train, 80)

	var persisted map[string]EvaluationResult
	require.NoError(t, store.Load(artifact.KeyMetrics, &persisted))
	assert.Len(t, persisted, 11)

	var names []string
	require.NoError(t, store.Load(artifact.KeyFeatureNames, &names))
	assert.Equal(t, features, names)

	var nm artifact.NamedModel
	require.NoError(t, store.Load(artifact.KeyModel, &nm))
	assert.Equal(t, registry.RandomForest, nm.Name)

	m, err := store.Manifest()
	require.NoError(t, err)
	assert.Equal(t, res.RunID, m.RunID)

	assert.True(t, logger.ContainsMessage("Training completed"))
	assert.True(t, logger.ContainsField(log.StageKey, "evaluate"))
}

func TestRun_IsolatesFailingCandidates(t *testing.T) {
	ds, features := linearDataset(t, 40, 3)
	store := artifact.NewMemoryStore()

	var calls []string
	ev := NewEvaluator(store,
		WithLogger(log.Discard()),
		WithRegistry(stubRegistry(t)),
		WithPolicy(FixedName(registry.LinearRegression)),
		WithProgress(func(name string, done, total int) {
			assert.Equal(t, 4, total)
			calls = append(calls, name)
		}),
	)
	res, err := ev.Run(context.Background(), ds, target, features)
	require.NoError(t, err)

	assert.Equal(t, []string{registry.LinearRegression, "broken", "panics", registry.Ridge}, calls)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "broken", res.Failures[0].Name)
	assert.Equal(t, "panics", res.Failures[1].Name)
	var pe *errors.PanicError
	assert.True(t, errors.As(res.Failures[1].Err, &pe))

	var persisted map[string]EvaluationResult
	require.NoError(t, store.Load(artifact.KeyMetrics, &persisted))
	assert.Len(t, persisted, 2)
	assert.Contains(t, persisted, registry.Ridge)
}

func TestRun_SelectedCandidateFailed(t *testing.T) {
	ds, features := linearDataset(t, 40, 3)
	store := artifact.NewMemoryStore()

	ev := NewEvaluator(store,
		WithLogger(log.Discard()),
		WithRegistry(stubRegistry(t)),
		WithPolicy(FixedName("broken")),
	)
	_, err := ev.Run(context.Background(), ds, target, features)

	var tf *errors.TrainingFailure
	require.True(t, errors.As(err, &tf))
	assert.ElementsMatch(t, []string{"broken", "panics"}, tf.Failed)

	_, err = store.Manifest()
	assert.True(t, errors.Is(err, errors.ErrMissingArtifact))
}

func TestRun_EveryCandidateFailed(t *testing.T) {
	ds, features := linearDataset(t, 20, 2)
	r, err := registry.New(registry.Entry{Name: "broken", New: func() model.Regressor { return failingRegressor{} }})
	require.NoError(t, err)

	store := artifact.NewMemoryStore()
	ev := NewEvaluator(store, WithLogger(log.Discard()), WithRegistry(r))
	_, err = ev.Run(context.Background(), ds, target, features)

	var tf *errors.TrainingFailure
	require.True(t, errors.As(err, &tf))
	assert.Equal(t, []string{"broken"}, tf.Failed)

	var names []string
	assert.True(t, errors.Is(store.Load(artifact.KeyFeatureNames, &names), errors.ErrMissingArtifact))
}

func TestRun_BestByPolicy(t *testing.T) {
	ds, features := linearDataset(t, 60, 4)
	store := artifact.NewMemoryStore()

	ev := NewEvaluator(store,
		WithLogger(log.Discard()),
		WithRegistry(stubRegistry(t)),
		WithPolicy(BestBy(MetricRMSE)),
	)
	res, err := ev.Run(context.Background(), ds, target, features)
	require.NoError(t, err)

	// ordinary least squares fits a noiseless target exactly, ridge does not
	assert.Equal(t, registry.LinearRegression, res.Selected)
}

func TestRun_InputErrors(t *testing.T) {
	ds, features := linearDataset(t, 20, 2)
	ev := NewEvaluator(artifact.NewMemoryStore(), WithLogger(log.Discard()), WithRegistry(stubRegistry(t)))
	var in *errors.InputError

	_, err := ev.Run(context.Background(), ds, target, nil)
	assert.True(t, errors.As(err, &in))

	_, err = ev.Run(context.Background(), ds, "Life expectancy", features)
	assert.True(t, errors.As(err, &in))

	_, err = ev.Run(context.Background(), ds, target, append(features, target))
	assert.True(t, errors.As(err, &in))

	tiny, names := linearDataset(t, 1, 2)
	_, err = ev.Run(context.Background(), tiny, target, names)
	assert.True(t, errors.As(err, &in))
}

func TestRun_ConstantTarget(t *testing.T) {
	ds, features := linearDataset(t, 50, 2)
	y, err := ds.NumericColumn(target)
	require.NoError(t, err)
	for i := range y.Values {
		y.Values[i] = 5
	}

	store := artifact.NewMemoryStore()
	ev := NewEvaluator(store, WithLogger(log.Discard()), WithRegistry(stubRegistry(t)))
	_, err = ev.Run(context.Background(), ds, target, features)

	var in *errors.InputError
	require.True(t, errors.As(err, &in))
	assert.Equal(t, target, in.Field)

	_, err = store.Manifest()
	assert.True(t, errors.Is(err, errors.ErrMissingArtifact))
}

// brokenStore fails every Save and every Abort.
type brokenStore struct {
	*artifact.MemoryStore
}

func (brokenStore) Save(key artifact.Key, _ any) error {
	return errors.Newf("disk full writing %s", key)
}

func (brokenStore) Abort() error { return errors.New("lock already released") }

func TestRun_AbortFailureIsLogged(t *testing.T) {
	ds, features := linearDataset(t, 40, 3)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	ev := NewEvaluator(brokenStore{artifact.NewMemoryStore()},
		WithLogger(logger),
		WithRegistry(stubRegistry(t)),
		WithPolicy(FixedName(registry.LinearRegression)),
	)
	_, err := ev.Run(context.Background(), ds, target, features)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.True(t, logger.ContainsMessage("Failed to abort artifact run"))
	assert.True(t, logger.ContainsField("error", "lock already released"))
}

func TestRun_Cancelled(t *testing.T) {
	ds, features := linearDataset(t, 20, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := artifact.NewMemoryStore()
	ev := NewEvaluator(store, WithLogger(log.Discard()), WithRegistry(stubRegistry(t)))
	_, err := ev.Run(ctx, ds, target, features)
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = store.Manifest()
	assert.Error(t, err)
}

func TestRun_SplitIsDeterministic(t *testing.T) {
	ds, features := linearDataset(t, 50, 3)
	run := func() *Result {
		ev := NewEvaluator(artifact.NewMemoryStore(),
			WithLogger(log.Discard()),
			WithRegistry(stubRegistry(t)),
			WithPolicy(FixedName(registry.Ridge)),
		)
		res, err := ev.Run(context.Background(), ds, target, features)
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.Split, b.Split)
	assert.Equal(t, a.Metrics(), b.Metrics())
	assert.NotEqual(t, a.RunID, b.RunID)
}
