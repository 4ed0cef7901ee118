package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// Columns whose header contains this marker are index columns left behind
// by spreadsheet exports and are dropped on load.
const unnamedMarker = "Unnamed"

var nullTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

// LoadFile loads a dataset from path. Files ending in .xlsx are read from
// their first sheet; anything else is parsed as comma-separated text.
func LoadFile(path string) (*Dataset, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path, "")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV parses a header row followed by data rows.
func LoadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	return fromRecords(records)
}

// LoadXLSX reads sheet (the first sheet when empty) of an Excel workbook.
func LoadXLSX(path, sheet string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open workbook %s", path)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.NewInputError("LoadXLSX", path, "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheet)
	}
	return fromRecords(rows)
}

func fromRecords(records [][]string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, errors.NewInputError("dataset.Load", "", "no header row")
	}
	header := uniqueHeader(records[0])
	body := records[1:]

	columns := make([]*Column, 0, len(header))
	for j, name := range header {
		if strings.Contains(name, unnamedMarker) {
			continue
		}
		cells := make([]string, len(body))
		for i, rec := range body {
			if j < len(rec) {
				cells[i] = strings.TrimSpace(rec[j])
			}
		}
		columns = append(columns, inferColumn(name, cells))
	}
	return New(columns...)
}

// uniqueHeader suffixes repeated names with ".1", ".2", ...
func uniqueHeader(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
		if name == "" {
			name = fmt.Sprintf("%s: %d", unnamedMarker, i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

// inferColumn makes a numeric column when every non-null cell parses as a
// float, and a text column otherwise.
func inferColumn(name string, cells []string) *Column {
	values := make([]float64, len(cells))
	for i, cell := range cells {
		if nullTokens[strings.ToLower(cell)] {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			text := make([]string, len(cells))
			for k, c := range cells {
				if !nullTokens[strings.ToLower(c)] {
					text[k] = c
				}
			}
			return NewTextColumn(name, text)
		}
		values[i] = v
	}
	return NewNumericColumn(name, values)
}
