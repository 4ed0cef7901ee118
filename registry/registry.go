// Package registry is the fixed, ordered catalog of candidate regressors
// trained in every run.
package registry

import (
	"github.com/samber/lo"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/sklearn/ensemble"
	"github.com/YuminosukeSato/imrcast/sklearn/linear_model"
	"github.com/YuminosukeSato/imrcast/sklearn/neighbors"
	"github.com/YuminosukeSato/imrcast/sklearn/svm"
	"github.com/YuminosukeSato/imrcast/sklearn/tree"
)

// DefaultSeed seeds every tree and ensemble candidate.
const DefaultSeed int64 = 42

// Candidate names as they appear in persisted metrics.
const (
	RandomForest     = "Random Forest"
	GradientBoosting = "Gradient Boosting"
	SVR              = "SVR"
	LinearRegression = "Linear Regression"
	Ridge            = "Ridge Regression"
	Lasso            = "Lasso Regression"
	ElasticNet       = "ElasticNet"
	DecisionTree     = "Decision Tree"
	KNN              = "KNN"
	AdaBoost         = "AdaBoost"
	ExtraTrees       = "Extra Trees"
)

// Entry is one named candidate. New returns a fresh, unfitted model with
// the entry's fixed configuration.
type Entry struct {
	Name string
	New  func() model.Regressor
}

// Registry is an ordered set of uniquely named entries.
type Registry struct {
	entries []Entry
}

// New builds a registry from entries in the given order.
func New(entries ...Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, errors.NewValueError("registry.New", "at least one entry is required")
	}
	dups := lo.FindDuplicates(lo.Map(entries, func(e Entry, _ int) string { return e.Name }))
	if len(dups) > 0 {
		return nil, errors.NewValueError("registry.New", "duplicate entry "+dups[0])
	}
	for _, e := range entries {
		if e.New == nil {
			return nil, errors.NewValueError("registry.New", "entry "+e.Name+" has no constructor")
		}
	}
	return &Registry{entries: entries}, nil
}

// Default returns the eleven-model catalog seeded with seed.
func Default(seed int64) *Registry {
	r, _ := New(
		Entry{RandomForest, func() model.Regressor {
			return ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(100), ensemble.WithRandomState(seed))
		}},
		Entry{GradientBoosting, func() model.Regressor {
			return ensemble.NewGradientBoostingRegressor(ensemble.WithStages(100), ensemble.WithGBRandomState(seed))
		}},
		Entry{SVR, func() model.Regressor { return svm.NewSVR() }},
		Entry{LinearRegression, func() model.Regressor { return linear_model.NewLinearRegression() }},
		Entry{Ridge, func() model.Regressor { return linear_model.NewRidge(1.0) }},
		Entry{Lasso, func() model.Regressor { return linear_model.NewLasso(1.0) }},
		Entry{ElasticNet, func() model.Regressor { return linear_model.NewElasticNet(1.0, 0.5) }},
		Entry{DecisionTree, func() model.Regressor {
			return tree.NewDecisionTreeRegressor(tree.WithRandomState(seed))
		}},
		Entry{KNN, func() model.Regressor { return neighbors.NewKNeighborsRegressor(5) }},
		Entry{AdaBoost, func() model.Regressor {
			return ensemble.NewAdaBoostRegressor(ensemble.WithRounds(100), ensemble.WithAdaRandomState(seed))
		}},
		Entry{ExtraTrees, func() model.Regressor {
			return ensemble.NewExtraTreesRegressor(ensemble.WithNEstimators(100), ensemble.WithRandomState(seed))
		}},
	)
	return r
}

// Entries returns the entries in catalog order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Names returns entry names in catalog order.
func (r *Registry) Names() []string {
	return lo.Map(r.entries, func(e Entry, _ int) string { return e.Name })
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Lookup finds an entry by name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	return lo.Find(r.entries, func(e Entry) bool { return e.Name == name })
}
