package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func init() {
	model.RegisterRegressor("imrcast/linear_model.LinearRegression", &LinearRegression{})
}

// rcond は特異値を打ち切る相対閾値
const rcond = 1e-12

// LinearRegression は最小二乗法による線形回帰
//
// 特異値分解で最小ノルム解を求めるため、列が線形従属でも失敗しない
type LinearRegression struct {
	LinearModel

	// Rank は中心化した X の数値ランク
	Rank int
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit はモデルを訓練データで学習
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	data, err := center("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}
	_, cols := data.X.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(data.X, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "svd failed", errors.ErrSingularMatrix)
	}
	lr.Rank = svd.Rank(rcond)
	if lr.Rank == 0 {
		// 全ての列が定数なら y の平均を予測する
		lr.Coef = make([]float64, cols)
		lr.setIntercept(data.xMean, data.yMean)
		return nil
	}

	var coef mat.Dense
	svd.SolveTo(&coef, mat.NewDense(len(data.y), 1, data.y), lr.Rank)
	lr.Coef = mat.Col(nil, 0, &coef)
	lr.setIntercept(data.xMean, data.yMean)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	return lr.predict("LinearRegression", X)
}
