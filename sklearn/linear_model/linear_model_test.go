package linear_model

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// linearData returns y = 2·x0 - 3·x1 + 0.5·x2 + 5 (+ optional wiggle).
func linearData(n int, wiggle float64) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := math.Sin(float64(i) / 7)
		x1 := math.Cos(float64(i) / 3)
		x2 := float64(i) / float64(n)
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		X.Set(i, 2, x2)
		y.Set(i, 0, 2*x0-3*x1+0.5*x2+5+wiggle*math.Sin(float64(i*i)))
	}
	return X, y
}

func TestLinearRegression_RecoversCoefficients(t *testing.T) {
	X, y := linearData(80, 0)
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	assert.InDeltaSlice(t, []float64{2, -3, 0.5}, lr.Coefficients(), 1e-9)
	assert.InDelta(t, 5, lr.Intercept, 1e-9)
	assert.Equal(t, 3, lr.Rank)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(y, pred, 1e-9))
}

func TestLinearRegression_CollinearColumns(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{1, 2, 2, 4, 3, 6, 4, 8, 5, 10, 6, 12})
	y := mat.NewDense(6, 1, []float64{3, 5, 7, 9, 11, 13})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 1, lr.Rank)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(y, pred, 1e-9))
}

func TestRidge_ShrinksTowardZero(t *testing.T) {
	X, y := linearData(80, 0.1)

	ols := NewLinearRegression()
	require.NoError(t, ols.Fit(X, y))

	weak := NewRidge(1e-8)
	require.NoError(t, weak.Fit(X, y))
	assert.InDeltaSlice(t, ols.Coefficients(), weak.Coefficients(), 1e-5)

	strong := NewRidge(1.0)
	require.NoError(t, strong.Fit(X, y))
	norm := func(w []float64) float64 { return math.Sqrt(w[0]*w[0] + w[1]*w[1] + w[2]*w[2]) }
	assert.Less(t, norm(strong.Coefficients()), norm(ols.Coefficients()))

	// (XcᵀXc + αI) w = Xcᵀyc must hold at the solution
	data, err := center("test", X, y)
	require.NoError(t, err)
	var lhs, rhs mat.VecDense
	w := mat.NewVecDense(3, strong.Coefficients())
	var gram mat.Dense
	gram.Mul(data.X.T(), data.X)
	lhs.MulVec(&gram, w)
	lhs.AddScaledVec(&lhs, 1.0, w)
	rhs.MulVec(data.X.T(), mat.NewVecDense(len(data.y), data.y))
	assert.True(t, mat.EqualApprox(&lhs, &rhs, 1e-8))
}

func TestLasso_LargeAlphaZeroesCoefficients(t *testing.T) {
	X, y := linearData(50, 0)
	lasso := NewLasso(100)
	require.NoError(t, lasso.Fit(X, y))

	assert.Equal(t, []float64{0, 0, 0}, lasso.Coefficients())
	assert.InDelta(t, mat.Sum(y)/50, lasso.Intercept, 1e-12)
}

// The coordinate-descent solution must satisfy the subgradient conditions
// of the elastic-net objective.
func TestCoordinateDescent_OptimalityConditions(t *testing.T) {
	X, y := linearData(120, 0.2)

	for _, tc := range []struct {
		name    string
		alpha   float64
		l1Ratio float64
		fit     func() (*LinearModel, error)
	}{
		{"lasso", 0.05, 1, func() (*LinearModel, error) {
			m := NewLasso(0.05)
			m.Tol = 1e-10
			m.MaxIter = 100000
			return &m.LinearModel, m.Fit(X, y)
		}},
		{"elasticnet", 0.05, 0.5, func() (*LinearModel, error) {
			m := NewElasticNet(0.05, 0.5)
			m.Tol = 1e-10
			m.MaxIter = 100000
			return &m.LinearModel, m.Fit(X, y)
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fitted, err := tc.fit()
			require.NoError(t, err)

			data, err := center("test", X, y)
			require.NoError(t, err)
			n, p := data.X.Dims()
			residual := append([]float64(nil), data.y...)
			for i := 0; i < n; i++ {
				for j := 0; j < p; j++ {
					residual[i] -= data.X.At(i, j) * fitted.Coef[j]
				}
			}
			for j := 0; j < p; j++ {
				var g float64
				for i := 0; i < n; i++ {
					g += data.X.At(i, j) * residual[i]
				}
				g = g/float64(n) - tc.alpha*(1-tc.l1Ratio)*fitted.Coef[j]
				l1 := tc.alpha * tc.l1Ratio
				if fitted.Coef[j] == 0 {
					assert.LessOrEqual(t, math.Abs(g), l1+1e-5)
				} else {
					assert.InDelta(t, l1*math.Copysign(1, fitted.Coef[j]), g, 1e-5)
				}
			}
		})
	}
}

func TestElasticNet_ConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	X, y := linearData(60, 0.3)
	en := NewElasticNet(0.001, 0.5)
	en.MaxIter = 1
	en.Tol = 1e-12
	require.NoError(t, en.Fit(X, y))
	assert.Equal(t, 1, en.NIter)

	require.NotEmpty(t, warnings)
	var cw *errors.ConvergenceWarning
	assert.True(t, errors.As(warnings[0], &cw))
}

func TestLinearModels_Errors(t *testing.T) {
	X, y := linearData(10, 0)

	_, err := NewRidge(1).Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = NewLasso(1).Fit(X, mat.NewDense(9, 1, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	assert.Error(t, NewElasticNet(1, 2).Fit(X, y))
	assert.Error(t, NewRidge(-1).Fit(X, y))

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	_, err = lr.Predict(mat.NewDense(2, 2, nil))
	assert.True(t, errors.As(err, &dim))
}

func TestLinearModels_GobRoundTrip(t *testing.T) {
	X, y := linearData(40, 0.1)
	models := map[string]model.Regressor{
		"Linear Regression": NewLinearRegression(),
		"Ridge Regression":  NewRidge(1),
		"Lasso Regression":  NewLasso(0.01),
		"ElasticNet":        NewElasticNet(0.01, 0.5),
	}
	for name, reg := range models {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, reg.Fit(X, y))
			want, err := reg.Predict(X)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, model.SaveRegressor(name, reg, &buf))
			gotName, restored, err := model.LoadRegressor(&buf)
			require.NoError(t, err)
			assert.Equal(t, name, gotName)

			got, err := restored.Predict(X)
			require.NoError(t, err)
			assert.True(t, mat.Equal(want, got))
		})
	}
}
