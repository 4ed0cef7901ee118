// Package dataset holds the tabular input of a training run: named columns,
// numeric or text, with NaN marking a missing numeric cell.
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// Kind is the inferred type of a column.
type Kind int

const (
	Numeric Kind = iota
	Text
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Column is one named column. Values is set for Numeric columns (NaN for a
// missing cell) and Text for Text columns.
type Column struct {
	Name   string
	Kind   Kind
	Values []float64
	Text   []string
}

// NewNumericColumn returns a numeric column. values is not copied.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Values: values}
}

// NewTextColumn returns a text column. values is not copied.
func NewTextColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: Text, Text: values}
}

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Values)
	}
	return len(c.Text)
}

// IsNull reports whether row i is missing.
func (c *Column) IsNull(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Values[i])
	}
	return c.Text[i] == ""
}

func (c *Column) subset(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Values = make([]float64, len(rows))
		for i, r := range rows {
			out.Values[i] = c.Values[r]
		}
		return out
	}
	out.Text = make([]string, len(rows))
	for i, r := range rows {
		out.Text[i] = c.Text[r]
	}
	return out
}

// Dataset is an immutable, column-oriented table.
type Dataset struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a Dataset. Column names must be unique and all columns must
// have the same length.
func New(columns ...*Column) (*Dataset, error) {
	d := &Dataset{columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := d.index[c.Name]; dup {
			return nil, errors.NewInputError("dataset.New", c.Name, "duplicate column name")
		}
		d.index[c.Name] = i
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return nil, errors.NewInputError("dataset.New", c.Name,
				fmt.Sprintf("column has %d rows, expected %d", c.Len(), d.rows))
		}
	}
	return d, nil
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int { return d.rows }

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Columns returns the columns in file order.
func (d *Dataset) Columns() []*Column { return d.columns }

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Names returns all column names in file order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// NumericNames returns the names of numeric columns in file order.
func (d *Dataset) NumericNames() []string {
	var names []string
	for _, c := range d.columns {
		if c.Kind == Numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Rows returns a new Dataset restricted to the given row indices, in order.
func (d *Dataset) Rows(rows []int) *Dataset {
	cols := make([]*Column, len(d.columns))
	for i, c := range d.columns {
		cols[i] = c.subset(rows)
	}
	out, _ := New(cols...)
	if len(cols) == 0 {
		out.rows = len(rows)
	}
	return out
}

// NumericColumn returns the named column, failing with an InputError when
// it is absent or not numeric.
func (d *Dataset) NumericColumn(name string) (*Column, error) {
	c, ok := d.Column(name)
	if !ok {
		return nil, errors.NewInputError("dataset", name, "column not found")
	}
	if c.Kind != Numeric {
		return nil, errors.NewInputError("dataset", name, "column is not numeric")
	}
	return c, nil
}

// TargetColumn is NumericColumn plus a degeneracy check: the target needs
// at least two present values and non-zero variance over them.
func (d *Dataset) TargetColumn(name string) (*Column, error) {
	c, err := d.NumericColumn(name)
	if err != nil {
		return nil, err
	}
	present := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) < 2 {
		return nil, errors.NewInputError("dataset", name, "target needs at least two present values")
	}
	if stat.Variance(present, nil) == 0 {
		return nil, errors.NewInputError("dataset", name, "target has zero variance")
	}
	return c, nil
}

// DropNullTarget returns the rows whose target is present. It fails when the
// target is missing, not numeric, or when no row survives.
func (d *Dataset) DropNullTarget(target string) (*Dataset, error) {
	return d.DropNulls(target)
}

// DropNulls returns the rows in which every named column is present.
func (d *Dataset) DropNulls(names ...string) (*Dataset, error) {
	cols := make([]*Column, len(names))
	for i, name := range names {
		c, err := d.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	keep := make([]int, 0, d.rows)
	for r := 0; r < d.rows; r++ {
		ok := true
		for _, c := range cols {
			if c.IsNull(r) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, r)
		}
	}
	if len(keep) == 0 {
		return nil, errors.NewInputError("dataset.DropNulls", "", "dataset is empty after dropping missing values")
	}
	return d.Rows(keep), nil
}

// Matrix returns the named numeric columns as an n_rows × len(names) matrix
// in the given column order.
func (d *Dataset) Matrix(names []string) (*mat.Dense, error) {
	if d.rows == 0 || len(names) == 0 {
		return nil, errors.NewModelError("dataset.Matrix", "empty data", errors.ErrEmptyData)
	}
	m := mat.NewDense(d.rows, len(names), nil)
	for j, name := range names {
		c, err := d.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		for i, v := range c.Values {
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// Vector returns a numeric column as an n_rows × 1 matrix.
func (d *Dataset) Vector(name string) (*mat.Dense, error) {
	return d.Matrix([]string{name})
}
