// Package training splits, scales, fits every registry candidate, scores
// them on the holdout and persists the selected one.
package training

import (
	"context"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/artifact"
	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/dataset"
	"github.com/YuminosukeSato/imrcast/metrics"
	"github.com/YuminosukeSato/imrcast/model_selection"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/pkg/log"
	"github.com/YuminosukeSato/imrcast/preprocessing"
	"github.com/YuminosukeSato/imrcast/registry"
)

// Stage is the evaluator's position in a run.
type Stage int

const (
	Idle Stage = iota
	Split
	Scale
	TrainEach
	Evaluate
	Done
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Split:
		return "split"
	case Scale:
		return "scale"
	case TrainEach:
		return "train_each"
	case Evaluate:
		return "evaluate"
	case Done:
		return "done"
	}
	return "unknown"
}

// EvaluationResult is the holdout score of one candidate.
type EvaluationResult = metrics.Regression

// CandidateResult is a candidate that fitted, predicted and scored.
type CandidateResult struct {
	Name     string
	Metrics  EvaluationResult
	Model    model.Regressor
	Duration time.Duration
}

// CandidateFailure is a candidate whose fit, predict or scoring failed.
type CandidateFailure struct {
	Name string
	Err  error
}

// Result summarizes a completed run.
type Result struct {
	RunID      string
	Selected   string
	Features   []string
	Candidates []CandidateResult
	Failures   []CandidateFailure
	Scaler     *preprocessing.StandardScaler
	Split      model_selection.Split
	// Cleaned is the dataset after dropping rows with a missing target or
	// feature; Split indexes its rows.
	Cleaned *dataset.Dataset
	Dropped int
}

// Metrics returns the holdout scores keyed by candidate name.
func (r *Result) Metrics() map[string]EvaluationResult {
	return lo.SliceToMap(r.Candidates, func(c CandidateResult) (string, EvaluationResult) {
		return c.Name, c.Metrics
	})
}

// Candidate returns the named successful candidate.
func (r *Result) Candidate(name string) (CandidateResult, bool) {
	return lo.Find(r.Candidates, func(c CandidateResult) bool { return c.Name == name })
}

// ProgressFunc is called after each candidate finishes, successfully or not.
type ProgressFunc func(name string, done, total int)

// Evaluator runs the training pipeline against a Store.
type Evaluator struct {
	store    artifact.Store
	registry *registry.Registry
	policy   SelectionPolicy
	seed     int64
	testSize float64
	progress ProgressFunc
	logger   log.Logger

	stage Stage
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithSeed sets the split seed and the seed of the default registry.
func WithSeed(seed int64) Option {
	return func(e *Evaluator) { e.seed = seed }
}

// WithTestSize sets the holdout fraction.
func WithTestSize(size float64) Option {
	return func(e *Evaluator) { e.testSize = size }
}

// WithPolicy sets the selection policy.
func WithPolicy(p SelectionPolicy) Option {
	return func(e *Evaluator) { e.policy = p }
}

// WithRegistry replaces the default catalog.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Evaluator) { e.registry = r }
}

// WithProgress installs a per-candidate callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Evaluator) { e.progress = fn }
}

// NewEvaluator returns an Evaluator persisting into store.
func NewEvaluator(store artifact.Store, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:    store,
		policy:   DefaultPolicy(),
		seed:     model_selection.DefaultSeed,
		testSize: model_selection.DefaultTestSize,
		logger:   log.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = registry.Default(e.seed)
	}
	e.logger = e.logger.With(log.ComponentKey, "training")
	return e
}

// Stage returns the stage reached by the last Run.
func (e *Evaluator) Stage() Stage { return e.stage }

func (e *Evaluator) enter(logger log.Logger, s Stage) {
	e.stage = s
	logger.Debug("Training stage", log.StageKey, s.String())
}

// Run trains every candidate on features and persists the selected one.
//
// A candidate that fails or panics is recorded in Result.Failures and the
// run continues. When the selected candidate failed, or all of them did,
// Run returns a TrainingFailure and the store is left untouched.
func (e *Evaluator) Run(ctx context.Context, ds *dataset.Dataset, target string, features []string) (*Result, error) {
	const op = "training.Run"
	e.stage = Idle
	if len(features) == 0 {
		return nil, errors.NewInputError(op, "features", "no feature columns selected")
	}
	if lo.Contains(features, target) {
		return nil, errors.NewInputError(op, target, "target cannot be a feature")
	}
	logger := e.logger.With(log.TargetKey, target, log.RandomSeedKey, e.seed)
	start := time.Now()

	e.enter(logger, Split)
	cleaned, err := ds.DropNulls(append([]string{target}, features...)...)
	if err != nil {
		return nil, err
	}
	if _, err := cleaned.TargetColumn(target); err != nil {
		return nil, err
	}
	dropped := ds.NumRows() - cleaned.NumRows()
	if dropped > 0 {
		logger.Info("Dropped rows with missing values", "dropped", dropped, log.SamplesKey, cleaned.NumRows())
	}
	X, err := cleaned.Matrix(features)
	if err != nil {
		return nil, err
	}
	y, err := cleaned.Vector(target)
	if err != nil {
		return nil, err
	}
	split, err := model_selection.TrainTestSplit(cleaned.NumRows(), e.testSize, e.seed)
	if err != nil {
		return nil, err
	}
	XTrain, XTest, yTrain, yTest := split.Apply(X, y)

	e.enter(logger, Scale)
	scaler := preprocessing.NewStandardScaler()
	XTrainScaled, err := scaler.FitTransform(XTrain)
	if err != nil {
		return nil, err
	}
	XTestScaled, err := scaler.Transform(XTest)
	if err != nil {
		return nil, err
	}

	e.enter(logger, TrainEach)
	entries := e.registry.Entries()
	type fitted struct {
		entry    registry.Entry
		model    model.Regressor
		pred     mat.Matrix
		duration time.Duration
	}
	var trained []fitted
	var failures []CandidateFailure
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "training cancelled")
		}
		t0 := time.Now()
		reg, pred, err := fitPredict(entry, XTrainScaled, yTrain, XTestScaled)
		if err != nil {
			failures = append(failures, CandidateFailure{Name: entry.Name, Err: err})
			logger.Error("Candidate failed", err, log.ModelNameKey, entry.Name)
		} else {
			trained = append(trained, fitted{entry, reg, pred, time.Since(t0)})
		}
		if e.progress != nil {
			e.progress(entry.Name, i+1, len(entries))
		}
	}

	e.enter(logger, Evaluate)
	var candidates []CandidateResult
	for _, f := range trained {
		score, err := metrics.Evaluate(yTest, f.pred)
		if err != nil {
			failures = append(failures, CandidateFailure{Name: f.entry.Name, Err: err})
			logger.Error("Candidate scoring failed", err, log.ModelNameKey, f.entry.Name)
			continue
		}
		candidates = append(candidates, CandidateResult{
			Name:     f.entry.Name,
			Metrics:  score,
			Model:    f.model,
			Duration: f.duration,
		})
		logger.Info("Candidate evaluated",
			log.ModelNameKey, f.entry.Name,
			log.MAEKey, score.MAE,
			log.RMSEKey, score.RMSE,
			log.R2ScoreKey, score.R2,
			log.DurationMsKey, f.duration.Milliseconds(),
		)
	}

	failed := lo.Map(failures, func(f CandidateFailure, _ int) string { return f.Name })
	if len(candidates) == 0 {
		return nil, errors.NewTrainingFailure("every candidate failed", failed, firstErr(failures))
	}
	selected, err := e.policy.Select(candidates)
	if err != nil {
		return nil, errors.NewTrainingFailure("selection policy "+e.policy.String()+" found no usable model", failed, err)
	}

	res := &Result{
		RunID:      artifact.NewRunID(),
		Selected:   selected,
		Features:   append([]string(nil), features...),
		Candidates: candidates,
		Failures:   failures,
		Scaler:     scaler,
		Split:      split,
		Cleaned:    cleaned,
		Dropped:    dropped,
	}
	if err := e.persist(res); err != nil {
		return nil, err
	}

	e.enter(logger, Done)
	logger.Info("Training completed",
		log.RunIDKey, res.RunID,
		log.ModelNameKey, selected,
		log.SamplesKey, cleaned.NumRows(),
		log.FeaturesKey, len(features),
		"failed", len(failures),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// fitPredict fits a fresh instance of entry and predicts the holdout. A
// panic inside the model becomes an error.
func fitPredict(entry registry.Entry, XTrain, yTrain, XTest mat.Matrix) (model.Regressor, mat.Matrix, error) {
	var reg model.Regressor
	var pred mat.Matrix
	err := errors.SafeExecute(entry.Name, func() error {
		reg = entry.New()
		if err := reg.Fit(XTrain, yTrain); err != nil {
			return errors.Wrapf(err, "fit %s", entry.Name)
		}
		p, err := reg.Predict(XTest)
		if err != nil {
			return errors.Wrapf(err, "predict %s", entry.Name)
		}
		pred = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return reg, pred, nil
}

func (e *Evaluator) persist(res *Result) (err error) {
	if err := e.store.Begin(res.RunID); err != nil {
		return errors.Wrap(err, "begin artifact run")
	}
	defer func() {
		if err == nil {
			return
		}
		if abortErr := e.store.Abort(); abortErr != nil {
			e.logger.Warn("Failed to abort artifact run", log.ErrAttrKey, abortErr, log.RunIDKey, res.RunID)
		}
	}()

	chosen, _ := res.Candidate(res.Selected)
	values := []struct {
		key   artifact.Key
		value any
	}{
		{artifact.KeyScaler, res.Scaler},
		{artifact.KeyModel, artifact.NamedModel{Name: chosen.Name, Regressor: chosen.Model}},
		{artifact.KeyFeatureNames, res.Features},
		{artifact.KeyMetrics, res.Metrics()},
	}
	for _, v := range values {
		if err := e.store.Save(v.key, v.value); err != nil {
			return errors.Wrapf(err, "save %s", v.key)
		}
	}
	return e.store.Commit(artifact.Manifest{Model: res.Selected})
}

func firstErr(failures []CandidateFailure) error {
	if len(failures) == 0 {
		return nil
	}
	return failures[0].Err
}
