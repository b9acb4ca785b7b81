package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/csvagent/csvagent/internal/agent"
	"github.com/csvagent/csvagent/internal/models"
)

// AskHandler handles POST /api/v1/ask
type AskHandler struct {
	dsHandler *agent.DatasetHandler
}

func NewAskHandler(dsHandler *agent.DatasetHandler) *AskHandler {
	return &AskHandler{dsHandler: dsHandler}
}

// Ask handles POST /api/v1/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults()

	if req.Question == "" {
		models.WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	if h.dsHandler == nil {
		models.WriteError(w, http.StatusServiceUnavailable, "model endpoint is not configured")
		return
	}

	apiKey := r.Header.Get("X-API-Key")

	resp, err := h.dsHandler.Handle(r.Context(), &req, apiKey)
	if err != nil {
		// Validation rejections come back with a response body attached.
		if resp != nil {
			models.WriteJSON(w, http.StatusBadRequest, resp)
			return
		}
		var orchErr *agent.OrchestrationError
		if errors.As(err, &orchErr) {
			models.WriteError(w, http.StatusBadGateway, orchErr.Error())
			return
		}
		models.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	models.WriteJSON(w, http.StatusOK, resp)
}
