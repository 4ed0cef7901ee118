// Package feature ranks predictor columns by the strength of their linear
// relationship with the target.
package feature

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/imrcast/core/parallel"
	"github.com/YuminosukeSato/imrcast/dataset"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/pkg/log"
)

// DefaultTopK is the number of features kept when the caller does not say.
const DefaultTopK = 10

// Ranked is one entry of a feature ranking. Score is the absolute Pearson
// correlation with the target, NaN when it is undefined.
type Ranked struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Selector ranks numeric columns against a target.
type Selector struct {
	logger log.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Selector) { s.logger = l }
}

// NewSelector returns a Selector.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{logger: log.GetLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(log.ComponentKey, "feature")
	return s
}

// Rank returns up to k numeric columns ordered by descending |corr| with
// target. The target is never included. Columns with an undefined
// correlation rank last; ties keep column order. When fewer than k
// candidates exist all of them are returned. A constant target is an
// InputError.
func (s *Selector) Rank(ds *dataset.Dataset, target string, k int) ([]Ranked, error) {
	if k <= 0 {
		return nil, errors.NewValueError("feature.Rank", "k must be positive")
	}
	y, err := ds.TargetColumn(target)
	if err != nil {
		return nil, err
	}

	candidates := lo.Filter(ds.NumericNames(), func(name string, _ int) bool {
		return name != target
	})
	ranked := make([]Ranked, len(candidates))
	parallel.ParallelizeWithThreshold(len(candidates), 64, func(start, end int) {
		for i := start; i < end; i++ {
			c, _ := ds.Column(candidates[i])
			ranked[i] = Ranked{Name: candidates[i], Score: math.Abs(PairwiseCorrelation(c.Values, y.Values))}
		}
	})

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Score, ranked[j].Score
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	s.logger.Info("Features ranked",
		log.TargetKey, target,
		log.FeaturesKey, len(ranked),
		log.FeatureNamesKey, Names(ranked),
	)
	return ranked, nil
}

// Names returns the names of r in order.
func Names(r []Ranked) []string {
	return lo.Map(r, func(item Ranked, _ int) string { return item.Name })
}

// PairwiseCorrelation is the Pearson correlation of x and y over the rows
// where both are present. It is NaN with fewer than two complete pairs or
// when either side is constant.
func PairwiseCorrelation(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// CorrelationMatrix returns the pairwise-complete correlation matrix of the
// named numeric columns, in the given order.
func CorrelationMatrix(ds *dataset.Dataset, names []string) (*mat.SymDense, error) {
	cols := make([][]float64, len(names))
	for i, name := range names {
		c, err := ds.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c.Values
	}

	n := len(names)
	corr := mat.NewSymDense(n, nil)
	parallel.ParallelizeWithThreshold(n, 16, func(start, end int) {
		for i := start; i < end; i++ {
			for j := i; j < n; j++ {
				if i == j {
					corr.SetSym(i, i, 1)
					continue
				}
				corr.SetSym(i, j, PairwiseCorrelation(cols[i], cols[j]))
			}
		}
	})
	return corr, nil
}
