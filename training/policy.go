package training

import (
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/registry"
)

// Metric names one holdout score.
type Metric string

const (
	MetricMAE  Metric = "MAE"
	MetricRMSE Metric = "RMSE"
	MetricR2   Metric = "R2"
)

// SelectionPolicy picks the candidate to persist from the ones that
// produced metrics. Candidates arrive in catalog order.
type SelectionPolicy interface {
	Select(candidates []CandidateResult) (string, error)
	String() string
}

// DefaultPolicy always persists the random forest regardless of its scores.
func DefaultPolicy() SelectionPolicy {
	return FixedName(registry.RandomForest)
}

type fixedName struct {
	name string
}

// FixedName selects the candidate called name and fails when it has no
// metrics.
func FixedName(name string) SelectionPolicy {
	return fixedName{name: name}
}

func (p fixedName) Select(candidates []CandidateResult) (string, error) {
	if _, ok := lo.Find(candidates, func(c CandidateResult) bool { return c.Name == p.name }); !ok {
		return "", errors.Newf("model %q produced no metrics", p.name)
	}
	return p.name, nil
}

func (p fixedName) String() string { return "fixed:" + p.name }

type bestBy struct {
	metric Metric
}

// BestBy selects the highest R2 or the lowest MAE / RMSE. Ties keep the
// earlier candidate.
func BestBy(metric Metric) SelectionPolicy {
	return bestBy{metric: metric}
}

func (p bestBy) score(c CandidateResult) float64 {
	switch p.metric {
	case MetricMAE:
		return -c.Metrics.MAE
	case MetricRMSE:
		return -c.Metrics.RMSE
	default:
		return c.Metrics.R2
	}
}

func (p bestBy) Select(candidates []CandidateResult) (string, error) {
	best, bestScore := "", math.Inf(-1)
	for _, c := range candidates {
		if s := p.score(c); s > bestScore {
			best, bestScore = c.Name, s
		}
	}
	if best == "" {
		return "", errors.Newf("no candidate has a finite %s", p.metric)
	}
	return best, nil
}

func (p bestBy) String() string { return "best:" + strings.ToLower(string(p.metric)) }

// ParsePolicy reads "fixed:<name>" or "best:r2|mae|rmse". An empty string
// is DefaultPolicy.
func ParsePolicy(s string) (SelectionPolicy, error) {
	if s == "" {
		return DefaultPolicy(), nil
	}
	kind, arg, ok := strings.Cut(s, ":")
	if !ok || arg == "" {
		return nil, errors.NewValueError("ParsePolicy", "expected fixed:<name> or best:<metric>, got "+s)
	}
	switch strings.ToLower(kind) {
	case "fixed":
		return FixedName(arg), nil
	case "best":
		switch m := Metric(strings.ToUpper(arg)); m {
		case MetricMAE, MetricRMSE, MetricR2:
			return BestBy(m), nil
		}
		return nil, errors.NewValueError("ParsePolicy", "unknown metric "+arg)
	}
	return nil, errors.NewValueError("ParsePolicy", "unknown policy "+kind)
}
