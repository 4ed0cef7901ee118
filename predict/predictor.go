// Package predict scores one observation with the scaler, model and feature
// order persisted by the last training run.
package predict

import (
	"github.com/samber/lo"

	"github.com/YuminosukeSato/imrcast/artifact"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/pkg/log"
	"github.com/YuminosukeSato/imrcast/preprocessing"
)

// Order decides how an observation's values are lined up with the model's
// columns.
type Order int

const (
	// OrderByName reorders values to the persisted feature order and rejects
	// unknown or missing names.
	OrderByName Order = iota
	// OrderPositional takes values in the caller's order and checks only the
	// count. A mis-ordered observation silently yields a wrong estimate.
	OrderPositional
)

func (o Order) String() string {
	if o == OrderPositional {
		return "positional"
	}
	return "by_name"
}

// Bundle is the state of one committed training run.
type Bundle struct {
	artifact.NamedModel
	RunID    string
	Features []string
	Scaler   *preprocessing.StandardScaler
}

// Predictor reads artifacts from a Store and scores observations.
type Predictor struct {
	store  artifact.Store
	order  Order
	logger log.Logger
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithOrder sets the ordering mode. The default is OrderByName.
func WithOrder(o Order) Option {
	return func(p *Predictor) { p.order = o }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(p *Predictor) { p.logger = l }
}

// NewPredictor returns a Predictor reading from store.
func NewPredictor(store artifact.Store, opts ...Option) *Predictor {
	p := &Predictor{store: store, logger: log.GetLogger()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(log.ComponentKey, "predict")
	return p
}

// Load reads the feature names, scaler and model of the last committed run.
// If another run commits while loading, the result is CorruptArtifact
// rather than a mix of two runs.
func (p *Predictor) Load() (*Bundle, error) {
	before, err := p.store.Manifest()
	if err != nil {
		return nil, err
	}

	b := &Bundle{RunID: before.RunID, Scaler: &preprocessing.StandardScaler{}}
	if err := p.store.Load(artifact.KeyFeatureNames, &b.Features); err != nil {
		return nil, err
	}
	if err := p.store.Load(artifact.KeyScaler, b.Scaler); err != nil {
		return nil, err
	}
	if err := p.store.Load(artifact.KeyModel, &b.NamedModel); err != nil {
		return nil, err
	}

	after, err := p.store.Manifest()
	if err != nil {
		return nil, err
	}
	if after.RunID != before.RunID {
		return nil, errors.NewArtifactError(errors.CorruptArtifact, "manifest",
			"training run changed while loading artifacts")
	}
	if len(b.Features) != b.Scaler.NFeatures {
		return nil, errors.NewArtifactError(errors.CorruptArtifact, string(artifact.KeyFeatureNames),
			"feature list does not match the scaler")
	}
	if dups := lo.FindDuplicates(b.Features); len(dups) > 0 {
		return nil, errors.NewArtifactError(errors.CorruptArtifact, string(artifact.KeyFeatureNames),
			"duplicate feature "+dups[0])
	}

	p.logger.Debug("Artifacts loaded",
		log.RunIDKey, b.RunID,
		log.ModelNameKey, b.Name,
		log.FeaturesKey, len(b.Features),
	)
	return b, nil
}

// Predict loads the latest run and scores obs.
func (p *Predictor) Predict(obs Observation) (float64, error) {
	b, err := p.Load()
	if err != nil {
		return 0, err
	}
	return p.PredictWith(b, obs)
}

// PredictWith scores obs against an already loaded bundle.
func (p *Predictor) PredictWith(b *Bundle, obs Observation) (float64, error) {
	var values []float64
	switch p.order {
	case OrderPositional:
		values = obs.Values()
		if len(values) != b.Scaler.NFeatures {
			return 0, errors.NewShapeMismatch(b.Scaler.NFeatures, len(values))
		}
	default:
		arranged, err := obs.Arrange(b.Features)
		if err != nil {
			return 0, err
		}
		values = arranged
	}

	row, err := b.Scaler.TransformRow(values)
	if err != nil {
		return 0, err
	}
	pred, err := b.Regressor.Predict(row)
	if err != nil {
		return 0, errors.Wrapf(err, "predict with %s", b.Name)
	}
	if r, c := pred.Dims(); r != 1 || c != 1 {
		return 0, errors.NewDimensionError("Predictor.Predict", 1, r, 0)
	}
	estimate := pred.At(0, 0)

	p.logger.Info("Estimate computed",
		log.OperationKey, log.OperationPredict,
		log.ModelNameKey, b.Name,
		"order", p.order.String(),
		"estimate", estimate,
	)
	return estimate, nil
}
