package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/models"
	"github.com/csvagent/csvagent/internal/security"
)

// QueryHandler handles direct structured query execution without the model
type QueryHandler struct {
	calc        *dataset.Calculator
	dataMasker  *security.DataMasker
	auditLogger *security.AuditLogger
	enableMask  bool
}

func NewQueryHandler(
	calc *dataset.Calculator,
	dataMasker *security.DataMasker,
	auditLogger *security.AuditLogger,
	enableMask bool,
) *QueryHandler {
	return &QueryHandler{
		calc:        calc,
		dataMasker:  dataMasker,
		auditLogger: auditLogger,
		enableMask:  enableMask,
	}
}

// Execute handles POST /api/v1/query
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var spec dataset.QuerySpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	apiKey := r.Header.Get("X-API-Key")
	start := time.Now()

	rows, err := h.calc.Query(spec)
	execTimeMs := time.Since(start).Milliseconds()

	specJSON, _ := json.Marshal(spec)
	if err != nil {
		h.auditLogger.LogQuery(string(specJSON), apiKey, 0, execTimeMs, false, err.Error())
		var computeErr *dataset.ComputeError
		if errors.As(err, &computeErr) {
			models.WriteError(w, http.StatusBadRequest, computeErr.Error())
			return
		}
		models.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.enableMask {
		rows = maskRows(h.dataMasker, rows)
	}
	h.auditLogger.LogQuery(string(specJSON), apiKey, len(rows), execTimeMs, true, "")

	models.WriteJSON(w, http.StatusOK, models.QueryResponse{
		Status:          "success",
		RowCount:        len(rows),
		Rows:            rows,
		ExecutionTimeMs: execTimeMs,
	})
}

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
