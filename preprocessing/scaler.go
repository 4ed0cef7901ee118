// Package preprocessing holds the feature transforms fitted on the training
// partition and replayed unchanged at evaluation and prediction time.
package preprocessing

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// zeroVarianceTol 以下の標準偏差は定数列とみなしスケール 1 を使う
const zeroVarianceTol = 1e-8

// StandardScaler は各特徴量を平均0、標準偏差1に変換する
// 標準偏差は母標準偏差 (ddof=0)
//
// 一度 Fit したスケーラーは Reset するまで再学習できない。
// ホールドアウトや推論データで統計量を推定し直さないための制約。
//
// gob で保存するためフィールドは全て公開している
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差
	Scale []float64

	// NFeatures は学習時の特徴量数
	NFeatures int

	// NSamples は学習に使ったサンプル数
	NSamples int
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler()
//	XTrainScaled, err := scaler.FitTransform(XTrain)
//	XTestScaled, err := scaler.Transform(XTest)
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit は訓練データから平均と標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	if s.IsFitted() {
		return errors.NewValueError("StandardScaler.Fit", "scaler is already fitted; call Reset before refitting")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix("StandardScaler.Fit", X); err != nil {
		return err
	}

	s.NFeatures = c
	s.NSamples = r
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, std := stat.PopMeanStdDev(col, nil)
		s.Mean[j] = mean
		if std < zeroVarianceTol {
			std = 1
		}
		s.Scale[j] = std
	}

	s.SetFitted()
	return nil
}

// Transform は学習済みの統計量でデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

// TransformRow standardizes a single observation and returns it as a
// 1 × n_features matrix.
func (s *StandardScaler) TransformRow(values []float64) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "TransformRow")
	}
	if len(values) != s.NFeatures {
		return nil, errors.NewShapeMismatch(s.NFeatures, len(values))
	}
	row := append([]float64(nil), values...)
	return s.Transform(mat.NewDense(1, len(row), row))
}
