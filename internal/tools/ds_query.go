package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/security"
)

// QueryDatasetTool filters, groups, and aggregates the dataset
func QueryDatasetTool(calc *dataset.Calculator, masker *security.DataMasker, maskEnabled bool) Tool {
	return Tool{
		Name:        "query_dataset",
		Description: "Query the dataset with filtering, grouping, and aggregation. Returns matching rows or aggregate values.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"select": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": `List of columns to select, e.g. ["category", "amount"]`,
				},
				"where": map[string]interface{}{
					"type":        "object",
					"description": `Filter conditions. Supports equality: {"Platform": "Fiverr"}, lists: {"Platform": ["Fiverr", "Upwork"]}, and operators: {"Jobs_Completed": {"$lt": 100}, "Earnings_USD": {"$gte": 5000}}. Operators: $lt, $lte, $gt, $gte, $ne, $eq, $in, $nin`,
				},
				"group_by": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": `Columns to group by, e.g. ["Payment_Method", "Platform"]`,
				},
				"agg": map[string]interface{}{
					"type":        "object",
					"description": `Aggregation functions per column, e.g. {"Marketing_Spent": ["mean", "count"], "Jobs_Completed": "sum"}. Functions: mean, count, sum, min, max, std`,
				},
				"sort_by": map[string]interface{}{
					"type":        "string",
					"description": "Column name to sort results by",
				},
				"sort_desc": map[string]interface{}{
					"type":        "boolean",
					"description": "Sort in descending order (default: false)",
				},
			},
		},
		Execute: func(ctx context.Context, input map[string]interface{}) (string, error) {
			var spec dataset.QuerySpec
			// Round-trip through JSON so the loosely typed input map decodes
			// into the spec without per-field assertions.
			raw, err := json.Marshal(input)
			if err != nil {
				return "", fmt.Errorf("marshal query input: %w", err)
			}
			if err := json.Unmarshal(raw, &spec); err != nil {
				return "", fmt.Errorf("decode query spec: %w", err)
			}

			rows, err := calc.Query(spec)
			if err != nil {
				return "", err
			}
			if maskEnabled {
				rows = maskRows(masker, rows)
			}

			out := map[string]interface{}{
				"row_count": len(rows),
				"rows":      rows,
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("marshal query results: %w", err)
			}
			return string(b), nil
		},
	}
}
