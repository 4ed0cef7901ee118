package predict

import (
	"bytes"
	"encoding/json"
	"io"
	"math"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// Pair is one named feature value.
type Pair struct {
	Name  string
	Value float64
}

// Observation is a single raw input row. Pairs keep the order in which the
// caller supplied them.
type Observation []Pair

// ParseObservation reads a JSON object of feature name to number, keeping
// key order. Duplicate keys, non-numeric values and trailing data are
// rejected.
func ParseObservation(data []byte) (Observation, error) {
	const op = "predict.ParseObservation"
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.NewInputError(op, "observation", "invalid JSON: "+err.Error())
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.NewInputError(op, "observation", "expected a JSON object")
	}

	var obs Observation
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.NewInputError(op, "observation", "invalid JSON: "+err.Error())
		}
		name := tok.(string)
		if seen[name] {
			return nil, errors.NewInputError(op, name, "duplicate feature")
		}
		seen[name] = true

		tok, err = dec.Token()
		if err != nil {
			return nil, errors.NewInputError(op, name, "invalid JSON: "+err.Error())
		}
		num, ok := tok.(json.Number)
		if !ok {
			return nil, errors.NewInputError(op, name, "value must be a number")
		}
		v, err := num.Float64()
		if err != nil || math.IsInf(v, 0) {
			return nil, errors.NewInputError(op, name, "value out of range: "+num.String())
		}
		obs = append(obs, Pair{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, errors.NewInputError(op, "observation", "invalid JSON: "+err.Error())
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.NewInputError(op, "observation", "unexpected data after object")
	}
	if len(obs) == 0 {
		return nil, errors.NewInputError(op, "observation", "no features given")
	}
	return obs, nil
}

// Names returns the feature names in caller order.
func (o Observation) Names() []string {
	return lo.Map(o, func(p Pair, _ int) string { return p.Name })
}

// Values returns the values in caller order.
func (o Observation) Values() []float64 {
	return lo.Map(o, func(p Pair, _ int) float64 { return p.Value })
}

// Arrange returns the values of o in the order of names. A key not in names
// is UnknownFeature; a missing or repeated key is ShapeMismatch.
func (o Observation) Arrange(names []string) ([]float64, error) {
	index := lo.SliceToMap(lo.Range(len(names)), func(i int) (string, int) { return names[i], i })
	out := make([]float64, len(names))
	filled := make([]bool, len(names))
	for _, p := range o {
		i, ok := index[p.Name]
		if !ok {
			return nil, errors.NewArtifactError(errors.UnknownFeature, p.Name, "not among the trained features")
		}
		if filled[i] {
			return nil, errors.NewArtifactError(errors.ShapeMismatch, p.Name, "feature given twice")
		}
		out[i], filled[i] = p.Value, true
	}
	missing := lo.Filter(names, func(_ string, i int) bool { return !filled[i] })
	if len(missing) > 0 {
		return nil, errors.NewArtifactError(errors.ShapeMismatch, "",
			"missing features: "+joinQuoted(missing))
	}
	return out, nil
}

func joinQuoted(names []string) string {
	var b bytes.Buffer
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`"` + n + `"`)
	}
	return b.String()
}
