package svm

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/metrics"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func sineData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := -2 + 4*float64(i)/float64(n-1)
		X.Set(i, 0, x)
		y.Set(i, 0, math.Sin(x))
	}
	return X, y
}

func TestSVR_FitsSmoothFunction(t *testing.T) {
	X, y := sineData(60)
	svr := NewSVR()
	require.NoError(t, svr.Fit(X, y))

	pred, err := svr.Predict(X)
	require.NoError(t, err)
	r2, err := metrics.R2Score(y, pred)
	require.NoError(t, err)
	assert.Greater(t, r2, 0.95)

	// 1 / (1 · Var(X)) for a single feature
	assert.InDelta(t, 1/variance(X), svr.FittedGamma, 1e-12)
}

func variance(X *mat.Dense) float64 {
	data := X.RawMatrix().Data
	mean := floats.Sum(data) / float64(len(data))
	var ss float64
	for _, v := range data {
		ss += (v - mean) * (v - mean)
	}
	return ss / float64(len(data))
}

func TestSVR_DualFeasibility(t *testing.T) {
	X, y := sineData(40)
	svr := NewSVR(WithC(0.5), WithEpsilon(0.05))
	require.NoError(t, svr.Fit(X, y))

	assert.InDelta(t, 0, floats.Sum(svr.DualCoef), 1e-9)
	for _, c := range svr.DualCoef {
		assert.LessOrEqual(t, math.Abs(c), 0.5+1e-12)
	}
	assert.Less(t, len(svr.SupportVectors), 40)

	// points outside the support set lie inside the epsilon tube
	pred, err := svr.Predict(X)
	require.NoError(t, err)
	isSV := map[float64]bool{}
	for _, sv := range svr.SupportVectors {
		isSV[sv[0]] = true
	}
	for i := 0; i < 40; i++ {
		if !isSV[X.At(i, 0)] {
			assert.LessOrEqual(t, math.Abs(y.At(i, 0)-pred.At(i, 0)), 0.05+2e-3)
		}
	}
}

func TestSVR_ConstantTarget(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{0, 1, 1, 0, 2, 2, 3, 1, 4, 0})
	y := mat.NewDense(5, 1, []float64{7, 7, 7, 7, 7})

	svr := NewSVR()
	require.NoError(t, svr.Fit(X, y))
	assert.Empty(t, svr.DualCoef)

	pred, err := svr.Predict(mat.NewDense(1, 2, []float64{10, 10}))
	require.NoError(t, err)
	assert.InDelta(t, 7, pred.At(0, 0), 0.1)
}

func TestLineSearch(t *testing.T) {
	// no penalty, unconstrained minimum of ½t² − t is t = 1
	assert.InDelta(t, 1, lineSearch(1, -1, 0, 0, 0, -5, 5), 1e-12)
	// clipped at the upper bound
	assert.InDelta(t, 0.5, lineSearch(1, -1, 0, 0, 0, -5, 0.5), 1e-12)
	// a large epsilon keeps both coefficients at zero
	assert.Equal(t, 0.0, lineSearch(1, -1, 10, 0, 0, -5, 5))
}

func TestSVR_Errors(t *testing.T) {
	X, y := sineData(10)

	_, err := NewSVR().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	assert.Error(t, NewSVR(WithC(0)).Fit(X, y))

	svr := NewSVR()
	require.NoError(t, svr.Fit(X, y))
	_, err = svr.Predict(mat.NewDense(1, 2, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestSVR_GobRoundTrip(t *testing.T) {
	X, y := sineData(30)
	svr := NewSVR()
	require.NoError(t, svr.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveRegressor("SVR", svr, &buf))
	_, restored, err := model.LoadRegressor(&buf)
	require.NoError(t, err)

	want, err := svr.Predict(X)
	require.NoError(t, err)
	got, err := restored.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
