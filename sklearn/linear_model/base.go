// Package linear_model は線形回帰系のモデル (OLS, Ridge, Lasso, ElasticNet) を提供する
//
// 全モデルは切片を正則化しない。学習時に X と y を中心化し、
// 係数を求めた後で切片 = mean(y) - mean(X)·coef を復元する。
package linear_model

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// LinearModel は学習済みの係数と切片を保持する
// 各モデルに埋め込まれ、gob で保存される
type LinearModel struct {
	model.BaseEstimator

	// Coef は各特徴量の重み係数
	Coef []float64

	// Intercept は切片
	Intercept float64

	// NFeatures は学習時の特徴量数
	NFeatures int
}

// Coefficients は学習された重み係数のコピーを返す
func (m *LinearModel) Coefficients() []float64 {
	return append([]float64(nil), m.Coef...)
}

func (m *LinearModel) predict(name string, X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError(name, "Predict")
	}
	rows, cols := X.Dims()
	if cols != m.NFeatures {
		return nil, errors.NewDimensionError(name+".Predict", m.NFeatures, cols, 1)
	}

	pred := mat.NewDense(rows, 1, nil)
	pred.Mul(X, mat.NewDense(cols, 1, append([]float64(nil), m.Coef...)))
	for i := 0; i < rows; i++ {
		pred.Set(i, 0, pred.At(i, 0)+m.Intercept)
	}
	return pred, nil
}

// setIntercept は中心化前の平均から切片を復元し、学習済みにする
func (m *LinearModel) setIntercept(xMean []float64, yMean float64) {
	m.Intercept = yMean
	for j, c := range m.Coef {
		m.Intercept -= xMean[j] * c
	}
	m.NFeatures = len(xMean)
	m.SetFitted()
}

// centered は入力を検証し、列平均を引いた X と平均を引いた y を返す
type centered struct {
	X     *mat.Dense
	y     []float64
	xMean []float64
	yMean float64
}

func center(op string, X, y mat.Matrix) (*centered, error) {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return nil, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError(op, 1, yCols, 1)
	}
	if err := errors.CheckMatrix(op, X); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix(op, y); err != nil {
		return nil, err
	}

	c := &centered{
		X:     mat.DenseCopyOf(X),
		y:     mat.Col(nil, 0, y),
		xMean: make([]float64, cols),
	}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, c.X)
		mean := stat.Mean(col, nil)
		c.xMean[j] = mean
		for i := range col {
			col[i] -= mean
		}
		c.X.SetCol(j, col)
	}
	c.yMean = stat.Mean(c.y, nil)
	for i := range c.y {
		c.y[i] -= c.yMean
	}
	return c, nil
}
