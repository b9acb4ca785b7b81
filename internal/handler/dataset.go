package handler

import (
	"net/http"
	"strconv"

	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/models"
	"github.com/csvagent/csvagent/internal/security"
)

// DatasetHandler serves the dataset's schema and sample rows
type DatasetHandler struct {
	calc       *dataset.Calculator
	dataMasker *security.DataMasker
	enableMask bool
}

func NewDatasetHandler(calc *dataset.Calculator, dataMasker *security.DataMasker, enableMask bool) *DatasetHandler {
	return &DatasetHandler{calc: calc, dataMasker: dataMasker, enableMask: enableMask}
}

// Schema handles GET /api/v1/dataset
func (h *DatasetHandler) Schema(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, h.calc.Schema())
}

// Sample handles GET /api/v1/dataset/sample?n=
func (h *DatasetHandler) Sample(w http.ResponseWriter, r *http.Request) {
	n := 3
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			models.WriteError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}
	if n > 50 {
		n = 50
	}

	rows := h.calc.Sample(n)
	if h.enableMask {
		rows = maskRows(h.dataMasker, rows)
	}

	models.WriteJSON(w, http.StatusOK, models.SampleResponse{
		TotalRows: h.calc.NumRows(),
		Sample:    rows,
	})
}
