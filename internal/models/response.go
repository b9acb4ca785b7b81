package models

import "github.com/csvagent/csvagent/internal/dataset"

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// AskResponse is returned by POST /api/v1/ask
type AskResponse struct {
	Status   string                 `json:"status"`
	Question string                 `json:"question"`
	Answer   string                 `json:"answer,omitempty"`
	Metadata map[string]interface{} `json:"metadata"`
}

// QueryResponse is returned by POST /api/v1/query
type QueryResponse struct {
	Status          string        `json:"status"`
	RowCount        int           `json:"row_count"`
	Rows            []dataset.Row `json:"rows"`
	ExecutionTimeMs int64         `json:"execution_time_ms"`
}

// SampleResponse is returned by GET /api/v1/dataset/sample
type SampleResponse struct {
	TotalRows int           `json:"total_rows"`
	Sample    []dataset.Row `json:"sample"`
}
