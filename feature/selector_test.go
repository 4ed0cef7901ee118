package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/imrcast/dataset"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/pkg/log"
)

const target = "Infant mortality rate (per 1000 live births)"

func newSelector() *Selector {
	return NewSelector(WithLogger(log.Discard()))
}

// syntheticDataset builds n rows where column "f<i>" has correlation with the
// target that weakens as i grows.
func syntheticDataset(t *testing.T, n, features int) *dataset.Dataset {
	t.Helper()
	y := make([]float64, n)
	for i := range y {
		y[i] = float64(i)
	}
	cols := []*dataset.Column{dataset.NewNumericColumn(target, y)}
	for f := 0; f < features; f++ {
		v := make([]float64, n)
		for i := range v {
			noise := math.Sin(float64(i*(f+3))) * float64(f) * 5
			v[i] = float64(i) + noise
		}
		cols = append(cols, dataset.NewNumericColumn(string(rune('a'+f)), v))
	}
	cols = append(cols, dataset.NewTextColumn("Country", make([]string, n)))
	ds, err := dataset.New(cols...)
	require.NoError(t, err)
	return ds
}

func TestRank_LengthAndOrder(t *testing.T) {
	ds := syntheticDataset(t, 60, 12)
	s := newSelector()

	for _, k := range []int{1, 5, 10, 12, 20} {
		ranked, err := s.Rank(ds, target, k)
		require.NoError(t, err)
		assert.Len(t, ranked, min(k, 12))

		for i, r := range ranked {
			assert.NotEqual(t, target, r.Name)
			assert.NotEqual(t, "Country", r.Name)
			if i > 0 {
				assert.GreaterOrEqual(t, ranked[i-1].Score, r.Score)
			}
		}
	}
}

func TestRank_FewerCandidatesThanK(t *testing.T) {
	ds := syntheticDataset(t, 40, 6)

	ranked, err := newSelector().Rank(ds, target, DefaultTopK)
	require.NoError(t, err)
	assert.Len(t, ranked, 6)
}

func TestRank_StrongestFirst(t *testing.T) {
	ds, err := dataset.New(
		dataset.NewNumericColumn("weak", []float64{1, 3, 2, 5, 4, 6}),
		dataset.NewNumericColumn(target, []float64{1, 2, 3, 4, 5, 6}),
		dataset.NewNumericColumn("negative", []float64{6, 5, 4, 3, 2, 1}),
		dataset.NewNumericColumn("constant", []float64{2, 2, 2, 2, 2, 2}),
	)
	require.NoError(t, err)

	ranked, err := newSelector().Rank(ds, target, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"negative", "weak", "constant"}, Names(ranked))
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-12)
	assert.True(t, math.IsNaN(ranked[2].Score))
}

func TestRank_Errors(t *testing.T) {
	ds := syntheticDataset(t, 10, 2)
	s := newSelector()

	_, err := s.Rank(ds, "missing", 3)
	var in *errors.InputError
	assert.True(t, errors.As(err, &in))

	_, err = s.Rank(ds, "Country", 3)
	assert.True(t, errors.As(err, &in))

	_, err = s.Rank(ds, target, 0)
	assert.Error(t, err)

	constant, err := dataset.New(
		dataset.NewNumericColumn("a", []float64{1, 2, 3, 4}),
		dataset.NewNumericColumn("b", []float64{4, 1, 3, 2}),
		dataset.NewNumericColumn(target, []float64{5, 5, math.NaN(), 5}),
	)
	require.NoError(t, err)
	_, err = s.Rank(constant, target, 3)
	require.True(t, errors.As(err, &in))
	assert.Contains(t, in.Reason, "zero variance")
}

func TestPairwiseCorrelation_SkipsMissing(t *testing.T) {
	nan := math.NaN()
	x := []float64{1, 2, nan, 4, 5}
	y := []float64{2, 4, 100, 8, nan}
	assert.InDelta(t, 1.0, PairwiseCorrelation(x, y), 1e-12)
	assert.True(t, math.IsNaN(PairwiseCorrelation([]float64{1, nan}, []float64{nan, 2})))
}

func TestCorrelationMatrix(t *testing.T) {
	ds := syntheticDataset(t, 30, 3)
	names := []string{target, "a", "b", "c"}

	corr, err := CorrelationMatrix(ds, names)
	require.NoError(t, err)
	assert.Equal(t, 4, corr.SymmetricDim())
	for i := range names {
		assert.Equal(t, 1.0, corr.At(i, i))
	}
	assert.InDelta(t, 1.0, corr.At(0, 1), 1e-12)
	assert.Equal(t, corr.At(1, 2), corr.At(2, 1))
}
