package dataset_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/csvagent/csvagent/internal/dataset"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const fixture = "category,amount\nA,10\nA,20\nB,5\n"

// ─── Load ─────────────────────────────────────────────────────────────────────

func TestLoad(t *testing.T) {
	ds, err := dataset.Load(writeCSV(t, fixture))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.NumRows() != 3 {
		t.Errorf("NumRows = %d, want 3", ds.NumRows())
	}

	cols := ds.Columns()
	want := []dataset.Column{
		{Name: "category", Kind: dataset.KindString},
		{Name: "amount", Kind: dataset.KindNumber},
	}
	if !reflect.DeepEqual(cols, want) {
		t.Errorf("Columns = %+v, want %+v", cols, want)
	}
}

func TestLoadTwiceIdentical(t *testing.T) {
	path := writeCSV(t, fixture)

	first, err := dataset.Load(path)
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, err := dataset.Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}

	if first.NumRows() != second.NumRows() {
		t.Errorf("row counts differ: %d vs %d", first.NumRows(), second.NumRows())
	}
	if !reflect.DeepEqual(first.Columns(), second.Columns()) {
		t.Errorf("column sets differ: %+v vs %+v", first.Columns(), second.Columns())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := dataset.Load(filepath.Join(t.TempDir(), "absent.csv"))
	var loadErr *dataset.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	_, err := dataset.Load(writeCSV(t, ""))
	var loadErr *dataset.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError for empty file, got %v", err)
	}
}

func TestLoadRaggedRows(t *testing.T) {
	_, err := dataset.Load(writeCSV(t, "a,b\n1,2\n3\n"))
	var loadErr *dataset.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError for ragged rows, got %v", err)
	}
}

func TestLoadDuplicateColumn(t *testing.T) {
	_, err := dataset.Load(writeCSV(t, "a,a\n1,2\n"))
	var loadErr *dataset.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError for duplicate column, got %v", err)
	}
}

func TestColumnTyping(t *testing.T) {
	// A numeric-looking column with one text cell degrades to string.
	ds, err := dataset.Load(writeCSV(t, "mixed,clean\n1,1.5\ntwo,2.5\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cols := ds.Columns()
	if cols[0].Kind != dataset.KindString {
		t.Errorf("mixed column kind = %s, want string", cols[0].Kind)
	}
	if cols[1].Kind != dataset.KindNumber {
		t.Errorf("clean column kind = %s, want number", cols[1].Kind)
	}
}

// ─── SumByCategory ────────────────────────────────────────────────────────────

func TestSumByCategory(t *testing.T) {
	ds, err := dataset.Load(writeCSV(t, fixture))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	calc := dataset.NewCalculator(ds)

	sum, err := calc.SumByCategory("amount", "category", "A")
	if err != nil {
		t.Fatalf("SumByCategory: %v", err)
	}
	if sum != 30 {
		t.Errorf("sum = %v, want 30", sum)
	}
}

func TestSumByCategoryDefaults(t *testing.T) {
	ds, _ := dataset.Load(writeCSV(t, fixture))
	calc := dataset.NewCalculator(ds)

	// Empty column names resolve to the first string / first numeric column.
	sum, err := calc.SumByCategory("", "", "B")
	if err != nil {
		t.Fatalf("SumByCategory with defaults: %v", err)
	}
	if sum != 5 {
		t.Errorf("sum = %v, want 5", sum)
	}
}

func TestSumByCategoryUnknownCategory(t *testing.T) {
	ds, _ := dataset.Load(writeCSV(t, fixture))
	calc := dataset.NewCalculator(ds)

	_, err := calc.SumByCategory("amount", "category", "C")
	var computeErr *dataset.ComputeError
	if !errors.As(err, &computeErr) {
		t.Fatalf("expected *ComputeError for unknown category, got %v", err)
	}
}

func TestSumByCategoryUnknownColumn(t *testing.T) {
	ds, _ := dataset.Load(writeCSV(t, fixture))
	calc := dataset.NewCalculator(ds)

	_, err := calc.SumByCategory("missing", "category", "A")
	var computeErr *dataset.ComputeError
	if !errors.As(err, &computeErr) {
		t.Fatalf("expected *ComputeError for unknown column, got %v", err)
	}
}

func TestSumByCategoryDeterministic(t *testing.T) {
	ds, _ := dataset.Load(writeCSV(t, fixture))
	calc := dataset.NewCalculator(ds)

	first, err := calc.SumByCategory("amount", "category", "A")
	if err != nil {
		t.Fatalf("SumByCategory: %v", err)
	}
	second, err := calc.SumByCategory("amount", "category", "A")
	if err != nil {
		t.Fatalf("SumByCategory: %v", err)
	}
	if first != second {
		t.Errorf("results differ: %v vs %v", first, second)
	}
}

// ─── Schema ───────────────────────────────────────────────────────────────────

func TestSchema(t *testing.T) {
	ds, _ := dataset.Load(writeCSV(t, fixture))
	calc := dataset.NewCalculator(ds)

	report := calc.Schema()
	if report.Rows != 3 {
		t.Errorf("Rows = %d, want 3", report.Rows)
	}

	cat, ok := report.Columns["category"]
	if !ok {
		t.Fatal("category column missing from schema")
	}
	if !reflect.DeepEqual(cat.UniqueValues, []string{"A", "B"}) {
		t.Errorf("category unique values = %v, want [A B]", cat.UniqueValues)
	}

	amt, ok := report.Columns["amount"]
	if !ok {
		t.Fatal("amount column missing from schema")
	}
	if amt.Min == nil || *amt.Min != 5 {
		t.Errorf("amount min = %v, want 5", amt.Min)
	}
	if amt.Max == nil || *amt.Max != 20 {
		t.Errorf("amount max = %v, want 20", amt.Max)
	}
	if amt.Mean == nil || *amt.Mean != 11.67 {
		t.Errorf("amount mean = %v, want 11.67", amt.Mean)
	}
}

func TestSample(t *testing.T) {
	ds, _ := dataset.Load(writeCSV(t, fixture))
	calc := dataset.NewCalculator(ds)

	rows := calc.Sample(2)
	if len(rows) != 2 {
		t.Fatalf("Sample(2) returned %d rows", len(rows))
	}
	if rows[0]["category"] != "A" || rows[0]["amount"] != 10.0 {
		t.Errorf("first sample row = %v", rows[0])
	}

	// Requesting more rows than exist is bounded.
	if got := len(calc.Sample(100)); got != 3 {
		t.Errorf("Sample(100) returned %d rows, want 3", got)
	}
}
