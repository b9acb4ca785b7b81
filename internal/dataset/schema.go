package dataset

import "math"

const (
	maxUniqueValues = 50
	sampleUnique    = 10
)

// ColumnInfo summarizes one column for the model's system prompt.
type ColumnInfo struct {
	Type Kind `json:"type"`

	// String columns: all distinct values when there are few enough,
	// otherwise the distinct count plus a small sample.
	UniqueValues []string `json:"unique_values,omitempty"`
	UniqueCount  int      `json:"unique_count,omitempty"`
	SampleValues []string `json:"sample_values,omitempty"`

	// Numeric columns.
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Mean *float64 `json:"mean,omitempty"`
}

// SchemaReport describes the whole dataset.
type SchemaReport struct {
	Rows    int                   `json:"rows"`
	Order   []string              `json:"column_order"`
	Columns map[string]ColumnInfo `json:"columns"`
}

// Schema builds the per-column report: type, distinct values (or a sample)
// for string columns, min/max/mean for numeric columns. Deterministic for a
// given Dataset: distinct values keep first-seen order.
func (c *Calculator) Schema() *SchemaReport {
	d := c.ds
	report := &SchemaReport{
		Rows:    d.numRows,
		Order:   d.ColumnNames(),
		Columns: make(map[string]ColumnInfo, len(d.cols)),
	}

	for i := range d.cols {
		col := &d.cols[i]
		info := ColumnInfo{Type: col.kind}

		if col.kind == KindString {
			uniq := distinctInOrder(col)
			if len(uniq) <= maxUniqueValues {
				info.UniqueValues = uniq
			} else {
				info.UniqueCount = len(uniq)
				info.SampleValues = uniq[:sampleUnique]
			}
		} else {
			if min, max, mean, ok := numericStats(col); ok {
				info.Min = &min
				info.Max = &max
				rounded := math.Round(mean*100) / 100
				info.Mean = &rounded
			}
		}

		report.Columns[col.name] = info
	}
	return report
}

func distinctInOrder(col *column) []string {
	seen := make(map[string]bool)
	var out []string
	for i, v := range col.strs {
		if col.null[i] || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func numericStats(col *column) (min, max, mean float64, ok bool) {
	n := 0
	sum := 0.0
	for i, v := range col.nums {
		if col.null[i] {
			continue
		}
		if n == 0 {
			min, max = v, v
		} else {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0, 0, false
	}
	return min, max, sum / float64(n), true
}
