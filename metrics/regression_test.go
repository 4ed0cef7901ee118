package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func col(values ...float64) *mat.Dense {
	return mat.NewDense(len(values), 1, values)
}

func TestRegressionMetrics(t *testing.T) {
	tests := []struct {
		name  string
		yTrue *mat.Dense
		yPred *mat.Dense
		mse   float64
		mae   float64
		r2    float64
	}{
		{
			name:  "perfect prediction",
			yTrue: col(1, 2, 3, 4, 5),
			yPred: col(1, 2, 3, 4, 5),
			mse:   0,
			mae:   0,
			r2:    1,
		},
		{
			name:  "simple case",
			yTrue: col(1, 2, 3, 4),
			yPred: col(1.5, 2.5, 2.5, 3.5),
			mse:   0.25,
			mae:   0.5,
			r2:    0.8, // 1 - 1.0/5.0
		},
		{
			name:  "worse than the mean",
			yTrue: col(10, 20, 30),
			yPred: col(30, 20, 10),
			mse:   800.0 / 3.0,
			mae:   40.0 / 3.0,
			r2:    -3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mse, err := MSE(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.mse, mse, 1e-10)

			rmse, err := RMSE(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, math.Sqrt(tt.mse), rmse, 1e-10)

			mae, err := MAE(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.mae, mae, 1e-10)

			r2, err := R2Score(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.r2, r2, 1e-10)
		})
	}
}

func TestEvaluate_Bounds(t *testing.T) {
	yTrue := col(3, -1, 4, 1, -5, 9, 2, 6)
	yPred := col(2.5, 0, 3, 1.5, -4, 7, 3, 8)

	r, err := Evaluate(yTrue, yPred)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.MAE, 0.0)
	assert.GreaterOrEqual(t, r.RMSE, r.MAE)
	assert.LessOrEqual(t, r.R2, 1.0)
}

func TestR2Score_ConstantTarget(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	r2, err := R2Score(col(2, 2, 2), col(2, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)

	r2, err = R2Score(col(2, 2, 2), col(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r2)

	require.Len(t, warnings, 2)
	var undefined *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warnings[0], &undefined))
}

func TestMetrics_InvalidInput(t *testing.T) {
	_, err := MAE(col(1, 2, 3), col(1, 2))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	_, err = MSE(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	assert.Error(t, err)

	_, err = Evaluate(col(1, math.NaN()), col(1, 2))
	assert.Error(t, err)
}
