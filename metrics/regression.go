// Package metrics は回帰モデルのホールドアウト評価指標を提供する
//
// 入力は全て n×1 の列ベクトル (mat.Matrix)。Predict の戻り値をそのまま渡せる。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// columns は2つの列ベクトルを検証してスライスに展開する
func columns(op string, yTrue, yPred mat.Matrix) ([]float64, []float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	if rPred != rTrue {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	t := mat.Col(nil, 0, yTrue)
	p := mat.Col(nil, 0, yPred)
	return t, p, nil
}

// MSE は平均二乗誤差を計算する
func MSE(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	// MSE = (1/n) * Σ(yTrue - yPred)²
	d := floats.Distance(t, p, 2)
	return d * d / float64(len(t)), nil
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("RMSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Distance(t, p, 2) / math.Sqrt(float64(len(t))), nil
}

// MAE は平均絶対誤差を計算する
func MAE(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	// MAE = (1/n) * Σ|yTrue - yPred|
	return floats.Distance(t, p, 1) / float64(len(t)), nil
}

// R2Score は決定係数 1 - RSS/TSS を計算する。TSS は yTrue の平均に対する変動
//
// yTrue が定数で TSS が 0 の場合は scikit-learn と同じく、完全一致なら 1、
// それ以外は 0 を返し UndefinedMetricWarning を出す
func R2Score(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	mean := stat.Mean(t, nil)

	var tss, rss float64
	for i := range t {
		tss += (t[i] - mean) * (t[i] - mean)
		rss += (t[i] - p[i]) * (t[i] - p[i])
	}

	if tss == 0 {
		score := 0.0
		if rss == 0 {
			score = 1.0
		}
		errors.Warn(errors.NewUndefinedMetricWarning("R2", "constant target in holdout", score))
		return score, nil
	}
	return 1 - rss/tss, nil
}

// Regression holds the three holdout scores reported per candidate.
type Regression struct {
	MAE  float64 `json:"MAE"`
	RMSE float64 `json:"RMSE"`
	R2   float64 `json:"R2"`
}

// Evaluate computes MAE, RMSE and R2 and rejects NaN or Inf scores.
func Evaluate(yTrue, yPred mat.Matrix) (Regression, error) {
	var r Regression
	var err error
	if r.MAE, err = MAE(yTrue, yPred); err != nil {
		return Regression{}, err
	}
	if r.RMSE, err = RMSE(yTrue, yPred); err != nil {
		return Regression{}, err
	}
	if r.R2, err = R2Score(yTrue, yPred); err != nil {
		return Regression{}, err
	}
	for _, v := range []float64{r.MAE, r.RMSE, r.R2} {
		if err := errors.CheckScalar("metrics.Evaluate", v); err != nil {
			return Regression{}, err
		}
	}
	return r, nil
}
