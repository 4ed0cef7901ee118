package model

import (
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// envelope lets a Regressor travel through gob behind its interface type.
// Concrete types must be registered with RegisterRegressor first.
type envelope struct {
	Name  string
	Model Regressor
}

// RegisterRegressor registers a concrete regressor type with gob under name.
// Each model package calls it from init.
func RegisterRegressor(name string, value Regressor) {
	gob.RegisterName(name, value)
}

// SaveModelToWriter はモデルをgob形式でWriterに書き出す
//
// 使用例:
//
//	var buf bytes.Buffer
//	err := model.SaveModelToWriter(scaler, &buf)
func SaveModelToWriter(value interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(value); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はgob形式のモデルをReaderから読み込む
// value にはポインタを渡すこと
func LoadModelFromReader(value interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(value); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}

// SaveRegressor writes name and reg so LoadRegressor can restore the
// concrete type without knowing it in advance.
func SaveRegressor(name string, reg Regressor, w io.Writer) error {
	return SaveModelToWriter(&envelope{Name: name, Model: reg}, w)
}

// LoadRegressor reads a regressor written by SaveRegressor and returns it
// with its catalog name.
func LoadRegressor(r io.Reader) (string, Regressor, error) {
	var env envelope
	if err := LoadModelFromReader(&env, r); err != nil {
		return "", nil, err
	}
	if env.Model == nil {
		return "", nil, errors.NewValueError("LoadRegressor", "decoded envelope has no model")
	}
	return env.Name, env.Model, nil
}
