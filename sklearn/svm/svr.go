// Package svm implements epsilon-support vector regression with an RBF
// kernel.
package svm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func init() {
	model.RegisterRegressor("imrcast/svm.SVR", &SVR{})
}

// GammaScale selects gamma = 1 / (n_features · Var(X)) at fit time.
const GammaScale = 0.0

// SVR solves the epsilon-insensitive dual
//
//	minimize ½βᵀKβ − yᵀβ + ε·||β||₁   s.t. Σβ = 0, −C ≤ βᵢ ≤ C
//
// by pairwise coordinate steps on the most violating pair, with an exact
// line search on each step. Predictions are f(x) = Σ βᵢ K(xᵢ, x) + b.
type SVR struct {
	model.BaseEstimator

	C       float64
	Epsilon float64
	Gamma   float64 // GammaScale => derived from the data
	Tol     float64
	MaxIter int

	// Fitted
	SupportVectors [][]float64
	DualCoef       []float64
	Intercept      float64
	FittedGamma    float64
	NFeatures      int
	NIter          int
}

// Option configures an SVR.
type Option func(*SVR)

func WithC(c float64) Option { return func(s *SVR) { s.C = c } }
func WithEpsilon(e float64) Option { return func(s *SVR) { s.Epsilon = e } }
func WithGamma(g float64) Option { return func(s *SVR) { s.Gamma = g } }
func WithMaxIter(n int) Option { return func(s *SVR) { s.MaxIter = n } }

// NewSVR returns an RBF SVR with C=1, ε=0.1 and gamma="scale".
func NewSVR(opts ...Option) *SVR {
	s := &SVR{
		C:       1.0,
		Epsilon: 0.1,
		Gamma:   GammaScale,
		Tol:     1e-3,
		MaxIter: 1_000_000,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Fit solves the dual problem on X and y.
func (s *SVR) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("SVR.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("SVR.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("SVR.Fit", 1, yCols, 1)
	}
	if s.C <= 0 || s.Epsilon < 0 {
		return errors.NewValueError("SVR.Fit", "C must be positive and epsilon non-negative")
	}
	if err := errors.CheckMatrix("SVR.Fit", X); err != nil {
		return err
	}

	points := make([][]float64, rows)
	for i := range points {
		points[i] = mat.Row(nil, i, X)
	}
	target := mat.Col(nil, 0, y)

	s.FittedGamma = s.Gamma
	if s.FittedGamma <= 0 {
		s.FittedGamma = scaleGamma(points, cols)
	}

	K := make([][]float64, rows)
	for i := range K {
		K[i] = make([]float64, rows)
	}
	for i := 0; i < rows; i++ {
		K[i][i] = 1
		for j := i + 1; j < rows; j++ {
			v := rbf(points[i], points[j], s.FittedGamma)
			K[i][j] = v
			K[j][i] = v
		}
	}

	beta, b, iters := s.solve(K, target)
	s.NIter = iters

	s.SupportVectors = s.SupportVectors[:0]
	s.DualCoef = s.DualCoef[:0]
	for i, v := range beta {
		if v != 0 {
			s.SupportVectors = append(s.SupportVectors, points[i])
			s.DualCoef = append(s.DualCoef, v)
		}
	}
	s.Intercept = b
	s.NFeatures = cols
	s.SetFitted()
	return nil
}

func (s *SVR) solve(K [][]float64, y []float64) (beta []float64, b float64, iter int) {
	n := len(y)
	C, eps := s.C, s.Epsilon
	beta = make([]float64, n)
	// g = Kβ − y
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -y[i]
	}

	up := func(i int) float64 {
		if beta[i] >= C {
			return math.Inf(1)
		}
		if beta[i] < 0 {
			return grad[i] - eps
		}
		return grad[i] + eps
	}
	down := func(i int) float64 {
		if beta[i] <= -C {
			return math.Inf(1)
		}
		if beta[i] > 0 {
			return -grad[i] - eps
		}
		return -grad[i] + eps
	}

	for iter = 0; iter < s.MaxIter; iter++ {
		i, j, rate := mostViolatingPair(n, up, down)
		if i < 0 || rate >= -s.Tol {
			break
		}

		eta := K[i][i] + K[j][j] - 2*K[i][j]
		if eta < 1e-12 {
			eta = 1e-12
		}
		lo := math.Max(-C-beta[i], beta[j]-C)
		hi := math.Min(C-beta[i], beta[j]+C)
		t := lineSearch(eta, grad[i]-grad[j], eps, beta[i], beta[j], lo, hi)
		if t == 0 {
			break
		}

		beta[i] += t
		beta[j] -= t
		for k := 0; k < n; k++ {
			grad[k] += t * (K[k][i] - K[k][j])
		}
	}
	if iter >= s.MaxIter {
		errors.Warn(errors.NewConvergenceWarning("SVR", iter,
			fmt.Sprintf("KKT violation above tolerance %g", s.Tol)))
	}

	// b from free vectors, else the midpoint of the feasible interval
	var sum float64
	free := 0
	lower, upper := math.Inf(-1), math.Inf(1)
	for k := 0; k < n; k++ {
		if beta[k] != 0 && math.Abs(beta[k]) < C {
			sum += -(grad[k] + eps*math.Copysign(1, beta[k]))
			free++
		}
		if u := up(k); !math.IsInf(u, 1) {
			lower = math.Max(lower, -u)
		}
		if d := down(k); !math.IsInf(d, 1) {
			upper = math.Min(upper, d)
		}
	}
	switch {
	case free > 0:
		b = sum / float64(free)
	case !math.IsInf(lower, 0) && !math.IsInf(upper, 0):
		b = (lower + upper) / 2
	default:
		b = stat.Mean(y, nil)
	}
	return beta, b, iter
}

// mostViolatingPair picks i to increase and j to decrease with the most
// negative combined directional derivative.
func mostViolatingPair(n int, up, down func(int) float64) (int, int, float64) {
	bestUp, bestUp2 := -1, -1
	bestDown, bestDown2 := -1, -1
	ups := make([]float64, n)
	downs := make([]float64, n)
	for k := 0; k < n; k++ {
		ups[k], downs[k] = up(k), down(k)
		switch {
		case bestUp < 0 || ups[k] < ups[bestUp]:
			bestUp2, bestUp = bestUp, k
		case bestUp2 < 0 || ups[k] < ups[bestUp2]:
			bestUp2 = k
		}
		switch {
		case bestDown < 0 || downs[k] < downs[bestDown]:
			bestDown2, bestDown = bestDown, k
		case bestDown2 < 0 || downs[k] < downs[bestDown2]:
			bestDown2 = k
		}
	}
	if n < 2 {
		return -1, -1, 0
	}
	if bestUp != bestDown {
		return bestUp, bestDown, ups[bestUp] + downs[bestDown]
	}
	a := ups[bestUp] + downs[bestDown2]
	c := ups[bestUp2] + downs[bestDown]
	if a <= c {
		return bestUp, bestDown2, a
	}
	return bestUp2, bestDown, c
}

// lineSearch minimizes ½ηt² + gt + ε(|βi+t| + |βj−t|) over [lo, hi]. The
// function is convex and piecewise quadratic, so the minimum is at a bound,
// a kink or a clipped stationary point of one of the pieces.
func lineSearch(eta, g, eps, bi, bj, lo, hi float64) float64 {
	clip := func(t float64) float64 { return math.Max(lo, math.Min(hi, t)) }
	f := func(t float64) float64 {
		return 0.5*eta*t*t + g*t + eps*(math.Abs(bi+t)+math.Abs(bj-t))
	}

	candidates := []float64{0, lo, hi, clip(-bi), clip(bj)}
	for _, si := range []float64{-1, 1} {
		for _, sj := range []float64{-1, 1} {
			candidates = append(candidates, clip(-(g+eps*(si-sj))/eta))
		}
	}
	best, bestVal := 0.0, f(0)
	for _, t := range candidates {
		if v := f(t); v < bestVal-1e-15 {
			best, bestVal = t, v
		}
	}
	return best
}

// Predict evaluates the kernel expansion.
func (s *SVR) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SVR", "Predict")
	}
	rows, cols := X.Dims()
	if cols != s.NFeatures {
		return nil, errors.NewDimensionError("SVR.Predict", s.NFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		v := s.Intercept
		for k, sv := range s.SupportVectors {
			v += s.DualCoef[k] * rbf(sv, row, s.FittedGamma)
		}
		out.Set(i, 0, v)
	}
	return out, nil
}

func rbf(a, b []float64, gamma float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-gamma * d * d)
}

// scaleGamma is 1 / (n_features · variance of every entry of X).
func scaleGamma(points [][]float64, cols int) float64 {
	all := make([]float64, 0, len(points)*cols)
	for _, p := range points {
		all = append(all, p...)
	}
	_, variance := stat.PopMeanVariance(all, nil)
	if variance == 0 {
		return 1
	}
	return 1 / (float64(cols) * variance)
}
