package dataset

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

const sampleCSV = `Unnamed: 0,Country,Birth Rate,GDP,Infant mortality rate (per 1000 live births)
0,Albania,11.78,15278077447,7.8
1,Algeria,24.28,NaN,20.1
2,Andorra,7.2,3154057987,
3,Angola,40.73,94635415870,51.6
`

func TestLoadCSV(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, ds.NumRows())
	assert.Equal(t, []string{"Country", "Birth Rate", "GDP", "Infant mortality rate (per 1000 live births)"}, ds.Names())
	assert.Equal(t, []string{"Birth Rate", "GDP", "Infant mortality rate (per 1000 live births)"}, ds.NumericNames())

	country, ok := ds.Column("Country")
	require.True(t, ok)
	assert.Equal(t, Text, country.Kind)

	gdp, err := ds.NumericColumn("GDP")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(gdp.Values[1]))
}

func TestDropNullTarget(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	cleaned, err := ds.DropNullTarget("Infant mortality rate (per 1000 live births)")
	require.NoError(t, err)
	assert.Equal(t, 3, cleaned.NumRows())

	country, _ := cleaned.Column("Country")
	assert.Equal(t, []string{"Albania", "Algeria", "Angola"}, country.Text)

	t.Run("missing target", func(t *testing.T) {
		_, err := ds.DropNullTarget("Life expectancy")
		var in *errors.InputError
		assert.True(t, errors.As(err, &in))
	})

	t.Run("text target", func(t *testing.T) {
		_, err := ds.DropNullTarget("Country")
		var in *errors.InputError
		assert.True(t, errors.As(err, &in))
	})

	t.Run("empty after cleaning", func(t *testing.T) {
		empty, err := New(NewNumericColumn("y", []float64{math.NaN(), math.NaN()}))
		require.NoError(t, err)
		_, err = empty.DropNullTarget("y")
		var in *errors.InputError
		assert.True(t, errors.As(err, &in))
	})
}

func TestLoadCSV_ByteOrderMark(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader("\uFEFFBirth Rate,GDP\n1,2\n3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Birth Rate", "GDP"}, ds.Names())

	_, err = ds.NumericColumn("Birth Rate")
	assert.NoError(t, err)
}

func TestTargetColumn(t *testing.T) {
	nan := math.NaN()
	ds, err := New(
		NewNumericColumn("y", []float64{1, 2, nan, 4}),
		NewNumericColumn("constant", []float64{5, 5, nan, 5}),
		NewNumericColumn("single", []float64{nan, 3, nan, nan}),
		NewTextColumn("Country", []string{"a", "b", "c", "d"}),
	)
	require.NoError(t, err)

	c, err := ds.TargetColumn("y")
	require.NoError(t, err)
	assert.Equal(t, "y", c.Name)

	for _, name := range []string{"constant", "single", "Country", "missing"} {
		_, err := ds.TargetColumn(name)
		var in *errors.InputError
		assert.True(t, errors.As(err, &in), name)
	}
}

func TestMatrix(t *testing.T) {
	ds, err := New(
		NewNumericColumn("a", []float64{1, 2, 3}),
		NewNumericColumn("b", []float64{4, 5, 6}),
		NewTextColumn("c", []string{"x", "y", "z"}),
	)
	require.NoError(t, err)

	m, err := ds.Matrix([]string{"b", "a"})
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.0, m.At(0, 0))
	assert.Equal(t, 3.0, m.At(2, 1))

	_, err = ds.Matrix([]string{"c"})
	assert.Error(t, err)

	sub := ds.Rows([]int{2, 0})
	v, err := sub.Vector("a")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v.At(0, 0))
	assert.Equal(t, 1.0, v.At(1, 0))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(NewNumericColumn("a", []float64{1}), NewNumericColumn("a", []float64{2}))
	assert.Error(t, err)

	_, err = New(NewNumericColumn("a", []float64{1, 2}), NewNumericColumn("b", []float64{2}))
	assert.Error(t, err)
}

func TestUniqueHeader(t *testing.T) {
	assert.Equal(t, []string{"x", "x.1", "y", "x.2"}, uniqueHeader([]string{"x", "x", "y", "x"}))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Country", "Fertility Rate", "Infant mortality rate (per 1000 live births)"},
		{"Albania", 1.62, 7.8},
		{"Angola", 5.52, 51.6},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ds, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.NumRows())
	assert.Equal(t, []string{"Fertility Rate", "Infant mortality rate (per 1000 live births)"}, ds.NumericNames())

	y, err := ds.NumericColumn("Infant mortality rate (per 1000 live births)")
	require.NoError(t, err)
	assert.InDelta(t, 51.6, y.Values[1], 1e-12)
}
