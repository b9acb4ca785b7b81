package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// QuerySpec is a structured query over the Dataset: optional filtering,
// grouping, aggregation, and sorting. The shapes of Where and Agg match the
// JSON the model emits in tool calls.
type QuerySpec struct {
	// Select projects the listed columns. Ignored when Agg is set.
	Select []string `json:"select,omitempty"`

	// Where filters rows per column. A condition is direct equality
	// ("Platform": "Fiverr"), list membership ("Region": ["Asia", "Europe"]),
	// or an operator map ("Earnings": {"$gte": 5000}). Operators:
	// $lt $lte $gt $gte $ne $eq $in $nin.
	Where map[string]interface{} `json:"where,omitempty"`

	// GroupBy + Agg aggregate per group; Agg alone aggregates the whole
	// table. Agg maps column -> function name or list of function names
	// (mean, count, sum, min, max, std). Results are named <col>_<fn>.
	GroupBy []string               `json:"group_by,omitempty"`
	Agg     map[string]interface{} `json:"agg,omitempty"`

	SortBy   string `json:"sort_by,omitempty"`
	SortDesc bool   `json:"sort_desc,omitempty"`
}

// Query executes spec against the Dataset and returns result rows.
// All parameter problems are *ComputeError.
func (c *Calculator) Query(spec QuerySpec) ([]Row, error) {
	idx, err := c.filterRows(spec.Where)
	if err != nil {
		return nil, err
	}

	var rows []Row
	switch {
	case len(spec.GroupBy) > 0 && len(spec.Agg) > 0:
		rows, err = c.groupAggregate(idx, spec.GroupBy, spec.Agg)
	case len(spec.Agg) > 0:
		rows, err = c.aggregate(idx, spec.Agg)
	default:
		rows, err = c.project(idx, spec.Select)
	}
	if err != nil {
		return nil, err
	}

	if spec.SortBy != "" {
		sortRows(rows, spec.SortBy, spec.SortDesc)
	}
	return rows, nil
}

// filterRows returns the indexes of rows matching every Where condition.
func (c *Calculator) filterRows(where map[string]interface{}) ([]int, error) {
	idx := make([]int, c.ds.numRows)
	for i := range idx {
		idx[i] = i
	}
	if len(where) == 0 {
		return idx, nil
	}

	// Apply conditions in column name order so error reporting is stable.
	names := make([]string, 0, len(where))
	for name := range where {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		col, ok := c.ds.colByName(name)
		if !ok {
			return nil, computeErrf("unknown column %q in where", name)
		}
		kept := idx[:0]
		for _, i := range idx {
			match, err := matchCondition(col, i, where[name])
			if err != nil {
				return nil, err
			}
			if match {
				kept = append(kept, i)
			}
		}
		idx = kept
	}
	return idx, nil
}

func matchCondition(col *column, row int, cond interface{}) (bool, error) {
	if col.null[row] {
		return false, nil
	}
	switch v := cond.(type) {
	case map[string]interface{}:
		// Operator map: every operator must hold.
		ops := make([]string, 0, len(v))
		for op := range v {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, op := range ops {
			ok, err := matchOperator(col, row, op, v[op])
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case []interface{}:
		return containsCell(col, row, v), nil
	default:
		return cellEquals(col, row, v), nil
	}
}

func matchOperator(col *column, row int, op string, operand interface{}) (bool, error) {
	switch op {
	case "$eq":
		return cellEquals(col, row, operand), nil
	case "$ne":
		return !cellEquals(col, row, operand), nil
	case "$in":
		list, ok := operand.([]interface{})
		if !ok {
			return false, computeErrf("operator $in on column %q requires a list", col.name)
		}
		return containsCell(col, row, list), nil
	case "$nin":
		list, ok := operand.([]interface{})
		if !ok {
			return false, computeErrf("operator $nin on column %q requires a list", col.name)
		}
		return !containsCell(col, row, list), nil
	case "$lt", "$lte", "$gt", "$gte":
		cmp, err := compareCell(col, row, operand)
		if err != nil {
			return false, err
		}
		switch op {
		case "$lt":
			return cmp < 0, nil
		case "$lte":
			return cmp <= 0, nil
		case "$gt":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	default:
		return false, computeErrf("unsupported operator %q for column %q", op, col.name)
	}
}

// cellEquals compares a cell with a JSON-decoded operand. Type mismatches
// simply do not match. Numeric string operands are parsed so the model can
// pass "5000" for a numeric column.
func cellEquals(col *column, row int, operand interface{}) bool {
	if col.kind == KindNumber {
		f, ok := toFloat(operand)
		return ok && col.nums[row] == f
	}
	s, ok := operand.(string)
	return ok && col.strs[row] == s
}

func containsCell(col *column, row int, list []interface{}) bool {
	for _, item := range list {
		if cellEquals(col, row, item) {
			return true
		}
	}
	return false
}

// compareCell returns -1/0/1 for cell vs operand. Numeric columns compare
// numerically, string columns lexicographically.
func compareCell(col *column, row int, operand interface{}) (int, error) {
	if col.kind == KindNumber {
		f, ok := toFloat(operand)
		if !ok {
			return 0, computeErrf("comparison on numeric column %q requires a number, got %v", col.name, operand)
		}
		switch {
		case col.nums[row] < f:
			return -1, nil
		case col.nums[row] > f:
			return 1, nil
		default:
			return 0, nil
		}
	}
	s, ok := operand.(string)
	if !ok {
		return 0, computeErrf("comparison on string column %q requires a string, got %v", col.name, operand)
	}
	return strings.Compare(col.strs[row], s), nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// project returns the selected columns for the given rows; empty Select means
// all columns.
func (c *Calculator) project(idx []int, sel []string) ([]Row, error) {
	cols := make([]*column, 0, len(c.ds.cols))
	if len(sel) == 0 {
		for i := range c.ds.cols {
			cols = append(cols, &c.ds.cols[i])
		}
	} else {
		for _, name := range sel {
			col, ok := c.ds.colByName(name)
			if !ok {
				return nil, computeErrf("unknown column %q in select", name)
			}
			cols = append(cols, col)
		}
	}

	rows := make([]Row, len(idx))
	for n, i := range idx {
		row := make(Row, len(cols))
		for _, col := range cols {
			row[col.name] = col.cell(i)
		}
		rows[n] = row
	}
	return rows, nil
}

var aggFuncs = map[string]bool{
	"mean": true, "count": true, "sum": true,
	"min": true, "max": true, "std": true,
}

// normalizeAgg turns the JSON agg spec (column -> fn or [fn, ...]) into an
// ordered list of (column, fn) pairs, validating columns and functions.
func (c *Calculator) normalizeAgg(agg map[string]interface{}) ([][2]string, error) {
	names := make([]string, 0, len(agg))
	for name := range agg {
		names = append(names, name)
	}
	sort.Strings(names)

	var pairs [][2]string
	for _, name := range names {
		col, ok := c.ds.colByName(name)
		if !ok {
			return nil, computeErrf("unknown column %q in agg", name)
		}

		var fns []string
		switch v := agg[name].(type) {
		case string:
			fns = []string{v}
		case []interface{}:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, computeErrf("agg for column %q must name functions as strings", name)
				}
				fns = append(fns, s)
			}
		case []string:
			fns = v
		default:
			return nil, computeErrf("agg for column %q must be a function name or list of names", name)
		}

		for _, fn := range fns {
			if !aggFuncs[fn] {
				return nil, computeErrf("unsupported aggregation %q for column %q", fn, name)
			}
			if fn != "count" && col.kind != KindNumber {
				return nil, computeErrf("aggregation %q requires numeric column, %q is %s", fn, name, col.kind)
			}
			pairs = append(pairs, [2]string{name, fn})
		}
	}
	return pairs, nil
}

// aggregate computes whole-table aggregates over the given rows as one row.
func (c *Calculator) aggregate(idx []int, agg map[string]interface{}) ([]Row, error) {
	pairs, err := c.normalizeAgg(agg)
	if err != nil {
		return nil, err
	}
	row := make(Row, len(pairs))
	for _, p := range pairs {
		col, _ := c.ds.colByName(p[0])
		row[p[0]+"_"+p[1]] = aggOver(col, idx, p[1])
	}
	return []Row{row}, nil
}

// groupAggregate groups rows by the groupBy columns and aggregates each
// group. Groups are emitted in ascending key order.
func (c *Calculator) groupAggregate(idx []int, groupBy []string, agg map[string]interface{}) ([]Row, error) {
	keyCols := make([]*column, len(groupBy))
	for i, name := range groupBy {
		col, ok := c.ds.colByName(name)
		if !ok {
			return nil, computeErrf("unknown column %q in group_by", name)
		}
		keyCols[i] = col
	}
	pairs, err := c.normalizeAgg(agg)
	if err != nil {
		return nil, err
	}

	type group struct {
		key  []interface{}
		rows []int
	}
	index := make(map[string]*group)
	var groups []*group
	for _, i := range idx {
		parts := make([]string, len(keyCols))
		key := make([]interface{}, len(keyCols))
		for j, col := range keyCols {
			key[j] = col.cell(i)
			parts[j] = fmt.Sprintf("%v", key[j])
		}
		k := strings.Join(parts, "\x1f")
		g, ok := index[k]
		if !ok {
			g = &group{key: key}
			index[k] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, i)
	}
	// Typed comparison per key component, so numeric keys sort numerically
	// rather than as strings.
	sort.SliceStable(groups, func(a, b int) bool {
		for j := range groups[a].key {
			if cmp := compareValues(groups[a].key[j], groups[b].key[j]); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})

	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		row := make(Row, len(groupBy)+len(pairs))
		for j, name := range groupBy {
			row[name] = g.key[j]
		}
		for _, p := range pairs {
			col, _ := c.ds.colByName(p[0])
			row[p[0]+"_"+p[1]] = aggOver(col, g.rows, p[1])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// aggOver applies one aggregation function over the non-null cells of the
// given rows. Empty input yields 0 for sum and count, nil otherwise; std
// needs at least two values.
func aggOver(col *column, rows []int, fn string) interface{} {
	if fn == "count" {
		n := 0
		for _, i := range rows {
			if !col.null[i] {
				n++
			}
		}
		return n
	}

	var vals []float64
	for _, i := range rows {
		if !col.null[i] {
			vals = append(vals, col.nums[i])
		}
	}

	switch fn {
	case "sum":
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum
	case "mean":
		if len(vals) == 0 {
			return nil
		}
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals))
	case "min":
		if len(vals) == 0 {
			return nil
		}
		min := vals[0]
		for _, v := range vals[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case "max":
		if len(vals) == 0 {
			return nil
		}
		max := vals[0]
		for _, v := range vals[1:] {
			if v > max {
				max = v
			}
		}
		return max
	case "std":
		// Sample standard deviation.
		if len(vals) < 2 {
			return nil
		}
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		mean := sum / float64(len(vals))
		ss := 0.0
		for _, v := range vals {
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(len(vals)-1))
	}
	return nil
}

// sortRows stable-sorts result rows by the named key when present. Rows
// without the key keep their position relative to each other.
func sortRows(rows []Row, key string, desc bool) {
	sort.SliceStable(rows, func(a, b int) bool {
		cmp := compareValues(rows[a][key], rows[b][key])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}
