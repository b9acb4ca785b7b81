package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/security"
)

// SampleRowsTool returns a few rows so the model can see actual value
// formats before building filters. Sensitive columns are masked before
// the rows reach the model.
func SampleRowsTool(calc *dataset.Calculator, masker *security.DataMasker, maskEnabled bool) Tool {
	return Tool{
		Name:        "sample_rows",
		Description: "Get a few sample rows from the dataset to understand actual value formats. Use this before writing filters to verify how categories and numbers are spelled.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"n": map[string]interface{}{
					"type":        "integer",
					"description": "Number of rows to return (default: 3, max: 20)",
				},
			},
		},
		Execute: func(ctx context.Context, input map[string]interface{}) (string, error) {
			n := 3
			if v, ok := input["n"].(float64); ok {
				n = int(v)
			}
			if n > 20 {
				n = 20
			}

			rows := calc.Sample(n)
			if maskEnabled {
				rows = maskRows(masker, rows)
			}
			out := map[string]interface{}{
				"total_rows": calc.NumRows(),
				"sample":     rows,
				"note":       "These are sample rows only. Use them to understand value formats, not to compute answers.",
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("marshal sample: %w", err)
			}
			return string(b), nil
		},
	}
}
