package linear_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func init() {
	model.RegisterRegressor("imrcast/linear_model.ElasticNet", &ElasticNet{})
	model.RegisterRegressor("imrcast/linear_model.Lasso", &Lasso{})
}

const (
	defaultMaxIter = 1000
	defaultTol     = 1e-4
)

// ElasticNet は L1 と L2 を組み合わせた正則化線形回帰
//
//	minimize 1/(2n)·||y - Xw||² + α·ρ·||w||₁ + α·(1-ρ)/2·||w||²
//
// ρ は L1Ratio。座標降下法で解き、双対ギャップで収束を判定する
type ElasticNet struct {
	LinearModel

	Alpha   float64
	L1Ratio float64
	MaxIter int
	Tol     float64

	// NIter は実際に回した反復数
	NIter int
}

// NewElasticNet は新しいElasticNetモデルを作成
func NewElasticNet(alpha, l1Ratio float64) *ElasticNet {
	return &ElasticNet{Alpha: alpha, L1Ratio: l1Ratio, MaxIter: defaultMaxIter, Tol: defaultTol}
}

// Fit はモデルを訓練データで学習
func (e *ElasticNet) Fit(X, y mat.Matrix) error {
	if e.L1Ratio < 0 || e.L1Ratio > 1 {
		return errors.NewValueError("ElasticNet.Fit", "l1 ratio must be in [0, 1]")
	}
	iters, err := coordinateDescent("ElasticNet", &e.LinearModel, X, y, e.Alpha, e.L1Ratio, e.MaxIter, e.Tol)
	e.NIter = iters
	return err
}

// Predict は入力データに対する予測を行う
func (e *ElasticNet) Predict(X mat.Matrix) (mat.Matrix, error) {
	return e.predict("ElasticNet", X)
}

// Lasso は L1 正則化付きの線形回帰 (L1Ratio = 1 の ElasticNet)
type Lasso struct {
	LinearModel

	Alpha   float64
	MaxIter int
	Tol     float64

	NIter int
}

// NewLasso は新しいLassoモデルを作成
func NewLasso(alpha float64) *Lasso {
	return &Lasso{Alpha: alpha, MaxIter: defaultMaxIter, Tol: defaultTol}
}

// Fit はモデルを訓練データで学習
func (l *Lasso) Fit(X, y mat.Matrix) error {
	iters, err := coordinateDescent("Lasso", &l.LinearModel, X, y, l.Alpha, 1, l.MaxIter, l.Tol)
	l.NIter = iters
	return err
}

// Predict は入力データに対する予測を行う
func (l *Lasso) Predict(X mat.Matrix) (mat.Matrix, error) {
	return l.predict("Lasso", X)
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

// coordinateDescent fits dst on centered data. The objective is scaled by
// n so the penalties are n·α·ρ and n·α·(1-ρ). It returns the number of
// sweeps run and emits a ConvergenceWarning when MaxIter is exhausted.
func coordinateDescent(name string, dst *LinearModel, X, y mat.Matrix, alpha, l1Ratio float64, maxIter int, tol float64) (int, error) {
	op := name + ".Fit"
	if alpha < 0 {
		return 0, errors.NewValueError(op, "alpha must be non-negative")
	}
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	data, err := center(op, X, y)
	if err != nil {
		return 0, err
	}
	n, p := data.X.Dims()

	l1 := alpha * l1Ratio * float64(n)
	l2 := alpha * (1 - l1Ratio) * float64(n)

	cols := make([][]float64, p)
	norms := make([]float64, p)
	for j := 0; j < p; j++ {
		cols[j] = mat.Col(nil, j, data.X)
		norms[j] = floats.Dot(cols[j], cols[j])
	}

	w := make([]float64, p)
	residual := append([]float64(nil), data.y...)
	scaledTol := tol * floats.Dot(data.y, data.y)

	iter := 0
	converged := false
	for iter < maxIter {
		iter++
		var maxUpdate, maxWeight float64
		for j := 0; j < p; j++ {
			if norms[j] == 0 {
				continue
			}
			old := w[j]
			if old != 0 {
				floats.AddScaled(residual, old, cols[j])
			}
			rho := floats.Dot(cols[j], residual)
			w[j] = softThreshold(rho, l1) / (norms[j] + l2)
			if w[j] != 0 {
				floats.AddScaled(residual, -w[j], cols[j])
			}
			maxUpdate = math.Max(maxUpdate, math.Abs(w[j]-old))
			maxWeight = math.Max(maxWeight, math.Abs(w[j]))
		}

		if maxWeight == 0 || maxUpdate/maxWeight < tol || iter == maxIter {
			if dualityGap(cols, data.y, residual, w, l1, l2) <= scaledTol {
				converged = true
				break
			}
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning(name, iter,
			fmt.Sprintf("duality gap above tolerance %g; consider increasing max iterations", tol)))
	}

	dst.Coef = w
	dst.setIntercept(data.xMean, data.yMean)
	return iter, nil
}

// dualityGap follows the elastic-net dual used by scikit-learn's solver.
func dualityGap(cols [][]float64, y, residual, w []float64, l1, l2 float64) float64 {
	var dualNorm float64
	for j, c := range cols {
		xtA := floats.Dot(c, residual) - l2*w[j]
		dualNorm = math.Max(dualNorm, math.Abs(xtA))
	}
	rNorm2 := floats.Dot(residual, residual)
	wNorm2 := floats.Dot(w, w)

	scale := 1.0
	var gap float64
	if dualNorm > l1 {
		scale = l1 / dualNorm
		gap = 0.5 * (rNorm2 + rNorm2*scale*scale)
	} else {
		gap = rNorm2
	}
	gap += l1*floats.Norm(w, 1) - scale*floats.Dot(residual, y) + 0.5*l2*(1+scale*scale)*wNorm2
	return gap
}
