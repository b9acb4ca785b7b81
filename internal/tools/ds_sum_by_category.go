package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/security"
)

// SumByCategoryTool sums a numeric column over rows matching a category
func SumByCategoryTool(calc *dataset.Calculator) Tool {
	return Tool{
		Name:        "sum_by_category",
		Description: "Sum a numeric column over all rows whose category column equals the given category. Defaults to the first numeric and first text column when value_column/category_column are omitted.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"description": "The category value to match",
				},
				"value_column": map[string]interface{}{
					"type":        "string",
					"description": "Numeric column to sum (default: first numeric column)",
				},
				"category_column": map[string]interface{}{
					"type":        "string",
					"description": "Column holding the category (default: first text column)",
				},
			},
			"required": []string{"category"},
		},
		Execute: func(ctx context.Context, input map[string]interface{}) (string, error) {
			category, _ := input["category"].(string)
			valueCol, _ := input["value_column"].(string)
			catCol, _ := input["category_column"].(string)

			sum, err := calc.SumByCategory(valueCol, catCol, category)
			if err != nil {
				return "", err
			}

			out := map[string]interface{}{
				"category": category,
				"sum":      sum,
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("marshal sum result: %w", err)
			}
			return string(b), nil
		},
	}
}

// DatasetTools returns the full tool set for a loaded dataset. Row-returning
// tools mask sensitive columns when maskEnabled is set.
func DatasetTools(calc *dataset.Calculator, masker *security.DataMasker, maskEnabled bool) []Tool {
	return []Tool{
		DatasetSchemaTool(calc),
		SampleRowsTool(calc, masker, maskEnabled),
		QueryDatasetTool(calc, masker, maskEnabled),
		SumByCategoryTool(calc),
	}
}
