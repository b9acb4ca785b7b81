package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/csvagent/csvagent/internal/dataset"
)

// DatasetSchemaTool returns the dataset's column types and value ranges
func DatasetSchemaTool(calc *dataset.Calculator) Tool {
	return Tool{
		Name:        "dataset_schema",
		Description: "Get the dataset schema: column names and types, distinct values for text columns, min/max/mean for numeric columns, and the total row count. Use this before querying to understand the data.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		Execute: func(ctx context.Context, input map[string]interface{}) (string, error) {
			report := calc.Schema()
			b, err := json.Marshal(report)
			if err != nil {
				return "", fmt.Errorf("marshal schema: %w", err)
			}
			return string(b), nil
		},
	}
}
