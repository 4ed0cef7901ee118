// Package model defines the estimator contracts shared by every regressor
// and transformer, and gob helpers to persist them.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit は X (n_samples × n_features) と y (n_samples × 1) で学習する
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は n_samples × 1 の予測値を返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is the uniform contract of every registry candidate.
type Regressor interface {
	Fitter
	Predictor
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// FeatureImportancer is implemented by tree-based models that expose
// normalized impurity-decrease importances, one per input column.
type FeatureImportancer interface {
	FeatureImportances() ([]float64, error)
}
