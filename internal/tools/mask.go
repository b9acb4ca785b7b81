package tools

import (
	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/security"
)

// maskRows applies the data masker to result rows before they are serialized
// into tool-result content. The model sees tool results verbatim, so masking
// has to happen here, not only on the HTTP surface.
func maskRows(m *security.DataMasker, rows []dataset.Row) []dataset.Row {
	raw := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		raw[i] = row
	}
	masked := m.MaskRows(raw)
	out := make([]dataset.Row, len(masked))
	for i, row := range masked {
		out[i] = row
	}
	return out
}
