// Package dataset loads a CSV file into an immutable in-memory table and
// computes deterministic aggregates over it. The Dataset is read-only after
// Load, so concurrent readers need no synchronization.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
)

// Column describes one named, typed column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// column holds the values of a single column. Exactly one of nums/strs is
// populated depending on kind; null marks empty cells in either case.
type column struct {
	name string
	kind Kind
	nums []float64
	strs []string
	null []bool
}

// Dataset is the loaded table. Never mutated after Load.
type Dataset struct {
	path    string
	cols    []column
	numRows int
}

// Load reads the CSV file at path into a Dataset. The first record is the
// header; every column whose non-empty cells all parse as floats is numeric,
// everything else is string. All failures are *LoadError.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, &LoadError{Path: path, Err: errors.New("file is empty")}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("read header: %w", err)}
	}
	if len(header) == 0 {
		return nil, &LoadError{Path: path, Err: errors.New("header has no columns")}
	}
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("column %d has an empty name", i+1)}
		}
		if seen[name] {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("duplicate column %q", name)}
		}
		seen[name] = true
		names[i] = name
	}

	raw := make([][]string, len(names))
	numRows := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("row %d: %w", numRows+2, err)}
		}
		for i := range names {
			raw[i] = append(raw[i], rec[i])
		}
		numRows++
	}

	ds := &Dataset{path: path, cols: make([]column, len(names)), numRows: numRows}
	for i, name := range names {
		ds.cols[i] = inferColumn(name, raw[i])
	}

	log.Info().
		Str("path", path).
		Int("rows", numRows).
		Int("columns", len(names)).
		Msg("dataset loaded")

	return ds, nil
}

// inferColumn types a column as numeric when every non-empty cell parses as a
// float, string otherwise. Empty cells become nulls.
func inferColumn(name string, cells []string) column {
	numeric := true
	hasValue := false
	for _, c := range cells {
		v := strings.TrimSpace(c)
		if v == "" {
			continue
		}
		hasValue = true
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			numeric = false
			break
		}
	}
	if !hasValue {
		numeric = false
	}

	col := column{name: name, null: make([]bool, len(cells))}
	if numeric {
		col.kind = KindNumber
		col.nums = make([]float64, len(cells))
		for i, c := range cells {
			v := strings.TrimSpace(c)
			if v == "" {
				col.null[i] = true
				continue
			}
			col.nums[i], _ = strconv.ParseFloat(v, 64)
		}
		return col
	}

	col.kind = KindString
	col.strs = make([]string, len(cells))
	for i, c := range cells {
		v := strings.TrimSpace(c)
		if v == "" {
			col.null[i] = true
			continue
		}
		col.strs[i] = v
	}
	return col
}

// Path returns the source file path.
func (d *Dataset) Path() string { return d.path }

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int { return d.numRows }

// Columns returns the column names and kinds in file order.
func (d *Dataset) Columns() []Column {
	out := make([]Column, len(d.cols))
	for i, c := range d.cols {
		out[i] = Column{Name: c.name, Kind: c.kind}
	}
	return out
}

// ColumnNames returns just the names in file order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.name
	}
	return out
}

func (d *Dataset) colByName(name string) (*column, bool) {
	for i := range d.cols {
		if d.cols[i].name == name {
			return &d.cols[i], true
		}
	}
	return nil, false
}

// firstOfKind returns the name of the first column of the given kind.
func (d *Dataset) firstOfKind(k Kind) (string, bool) {
	for _, c := range d.cols {
		if c.kind == k {
			return c.name, true
		}
	}
	return "", false
}

// cell returns the value at (row, col) as string, float64, or nil for null.
func (c *column) cell(row int) interface{} {
	if c.null[row] {
		return nil
	}
	if c.kind == KindNumber {
		return c.nums[row]
	}
	return c.strs[row]
}
