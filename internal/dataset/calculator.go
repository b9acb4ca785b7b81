package dataset

// Row is one result record keyed by column name.
type Row map[string]interface{}

// Calculator computes aggregates over a loaded Dataset. Every method is a
// pure function of the Dataset and its parameters: identical inputs always
// produce identical results, and concurrent calls are safe.
type Calculator struct {
	ds *Dataset
}

func NewCalculator(ds *Dataset) *Calculator {
	return &Calculator{ds: ds}
}

// Dataset returns the underlying table.
func (c *Calculator) Dataset() *Dataset { return c.ds }

// NumRows returns the number of data rows.
func (c *Calculator) NumRows() int { return c.ds.numRows }

// Sample returns the first n rows so the model can inspect value formats.
func (c *Calculator) Sample(n int) []Row {
	if n <= 0 {
		n = 3
	}
	if n > c.ds.numRows {
		n = c.ds.numRows
	}
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		row := make(Row, len(c.ds.cols))
		for j := range c.ds.cols {
			row[c.ds.cols[j].name] = c.ds.cols[j].cell(i)
		}
		rows[i] = row
	}
	return rows
}

// SumByCategory sums valueCol over rows whose catCol equals category.
// Empty valueCol/catCol default to the first numeric / first string column.
// Fails with *ComputeError when a column is missing, valueCol is not numeric,
// or the category matches no rows.
func (c *Calculator) SumByCategory(valueCol, catCol, category string) (float64, error) {
	if valueCol == "" {
		name, ok := c.ds.firstOfKind(KindNumber)
		if !ok {
			return 0, computeErrf("dataset has no numeric column to sum")
		}
		valueCol = name
	}
	if catCol == "" {
		name, ok := c.ds.firstOfKind(KindString)
		if !ok {
			return 0, computeErrf("dataset has no string column to group by")
		}
		catCol = name
	}

	vc, ok := c.ds.colByName(valueCol)
	if !ok {
		return 0, computeErrf("unknown column %q", valueCol)
	}
	if vc.kind != KindNumber {
		return 0, computeErrf("column %q is not numeric", valueCol)
	}
	cc, ok := c.ds.colByName(catCol)
	if !ok {
		return 0, computeErrf("unknown column %q", catCol)
	}

	sum := 0.0
	matched := false
	for i := 0; i < c.ds.numRows; i++ {
		if cc.null[i] || !cellEquals(cc, i, category) {
			continue
		}
		matched = true
		if !vc.null[i] {
			sum += vc.nums[i]
		}
	}
	if !matched {
		return 0, computeErrf("category %q not found in column %q", category, catCol)
	}
	return sum, nil
}
