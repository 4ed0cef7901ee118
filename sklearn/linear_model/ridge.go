package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/imrcast/core/model"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func init() {
	model.RegisterRegressor("imrcast/linear_model.Ridge", &Ridge{})
}

// Ridge は L2 正則化付きの線形回帰
//
//	minimize ||y - Xw||² + Alpha·||w||²
type Ridge struct {
	LinearModel

	Alpha float64
}

// NewRidge は新しいRidgeモデルを作成
func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha}
}

// Fit は (XᵀX + αI) w = Xᵀy をコレスキー分解で解く
func (r *Ridge) Fit(X, y mat.Matrix) error {
	if r.Alpha < 0 {
		return errors.NewValueError("Ridge.Fit", "alpha must be non-negative")
	}
	data, err := center("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	_, cols := data.X.Dims()

	gram := mat.NewSymDense(cols, nil)
	gram.SymOuterK(1, data.X.T())
	for j := 0; j < cols; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
	}

	var rhs mat.VecDense
	rhs.MulVec(data.X.T(), mat.NewVecDense(len(data.y), data.y))

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return errors.NewModelError("Ridge.Fit", "cholesky failed", errors.ErrSingularMatrix)
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &rhs); err != nil {
		return errors.NewModelError("Ridge.Fit", "solve failed", err)
	}

	r.Coef = make([]float64, cols)
	for j := range r.Coef {
		r.Coef[j] = w.AtVec(j)
	}
	r.setIntercept(data.xMean, data.yMean)
	return nil
}

// Predict は入力データに対する予測を行う
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	return r.predict("Ridge", X)
}
