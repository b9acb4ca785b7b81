package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/models"
	"github.com/csvagent/csvagent/internal/security"
	"github.com/csvagent/csvagent/internal/service"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const baseSystemPrompt = `You are a helpful data analyst that answers user questions based on the content of a CSV dataset.

RULES:
1. Use the provided tools to fetch and aggregate data - never invent numbers or do arithmetic yourself
2. Call dataset_schema or sample_rows first when you are unsure how values are spelled
3. Prefer query_dataset with group_by and agg for breakdowns; use sum_by_category for simple per-category totals
4. Answer in plain language and include the computed numbers
5. If a tool returns an error, adjust the parameters and try again instead of guessing`

// promptCache holds the system prompt built from the dataset schema. The
// Dataset is immutable for the process lifetime, so the prompt is built once;
// singleflight keeps concurrent first requests from duplicating the work.
type promptCache struct {
	mu     sync.RWMutex
	prompt string
	sf     singleflight.Group
}

func (c *promptCache) get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prompt, c.prompt != ""
}

func (c *promptCache) set(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = prompt
}

// DatasetHandler orchestrates one natural-language question over the dataset:
// input validation, system prompt construction, the agent loop, and auditing.
type DatasetHandler struct {
	orch        *Orchestrator
	calc        *dataset.Calculator
	piiDetector *security.PIIDetector
	promptVal   *security.PromptValidator
	auditLogger *security.AuditLogger
	router      *service.IntentRouter
	promptCache *promptCache
}

func NewDatasetHandler(
	orch *Orchestrator,
	calc *dataset.Calculator,
	piiDetector *security.PIIDetector,
	promptVal *security.PromptValidator,
	auditLogger *security.AuditLogger,
	router *service.IntentRouter,
) *DatasetHandler {
	return &DatasetHandler{
		orch:        orch,
		calc:        calc,
		piiDetector: piiDetector,
		promptVal:   promptVal,
		auditLogger: auditLogger,
		router:      router,
		promptCache: &promptCache{},
	}
}

// systemPrompt returns the base prompt extended with the dataset schema and
// row count, built once and shared by all requests.
func (h *DatasetHandler) systemPrompt() string {
	if prompt, ok := h.promptCache.get(); ok {
		return prompt
	}

	v, err, _ := h.promptCache.sf.Do(h.calc.Dataset().Path(), func() (interface{}, error) {
		if prompt, ok := h.promptCache.get(); ok {
			return prompt, nil
		}

		start := time.Now()
		report := h.calc.Schema()
		schemaJSON, err := json.Marshal(report)
		if err != nil {
			return baseSystemPrompt, nil // soft fail, don't cache
		}

		prompt := fmt.Sprintf("%s\n\nCSV schema: %s\nCSV total rows: %d",
			baseSystemPrompt, schemaJSON, h.calc.NumRows())
		h.promptCache.set(prompt)

		log.Info().
			Str("dataset", h.calc.Dataset().Path()).
			Dur("build_ms", time.Since(start)).
			Msg("system prompt built")
		return prompt, nil
	})

	if err != nil || v == nil {
		return baseSystemPrompt
	}
	return v.(string)
}

// Handle processes one ask request end to end.
func (h *DatasetHandler) Handle(ctx context.Context, req *models.AskRequest, apiKey string) (*models.AskResponse, error) {
	start := time.Now()
	metadata := map[string]interface{}{
		"dataset": h.calc.Dataset().Path(),
		"rows":    h.calc.NumRows(),
	}

	if found, kw := h.piiDetector.Detect(req.Question); found {
		metadata["pii_check"] = "blocked: " + kw
		return &models.AskResponse{
			Status:   "error",
			Question: req.Question,
			Metadata: metadata,
		}, fmt.Errorf("PII detected in question: %s", kw)
	}
	metadata["pii_check"] = "passed"

	vr := h.promptVal.Validate(req.Question)
	if !vr.Valid {
		metadata["question_validation"] = "blocked: " + vr.Message
		return &models.AskResponse{
			Status:   "error",
			Question: req.Question,
			Metadata: metadata,
		}, fmt.Errorf("question validation failed: %s", vr.Message)
	}
	metadata["question_validation"] = "passed"

	routing := h.router.Route(req.Question)
	metadata["intent"] = string(routing.Intent)
	metadata["routing_confidence"] = routing.Confidence
	metadata["routing_reasoning"] = routing.Reasoning

	askCtx, cancel := context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Second)
	defer cancel()

	systemPrompt := h.systemPrompt() + "\n\n" + routing.Hint()
	result, err := h.orch.Ask(askCtx, systemPrompt, req.Question)

	execTimeMs := time.Since(start).Milliseconds()
	h.auditLogger.LogAskRequest(req.Question, apiKey, err == nil, execTimeMs)

	if err != nil {
		return nil, fmt.Errorf("agent run: %w", err)
	}

	metadata["tools_used"] = result.ToolsUsed
	metadata["rounds"] = result.Rounds

	return &models.AskResponse{
		Status:   "success",
		Question: req.Question,
		Answer:   result.Answer,
		Metadata: metadata,
	}, nil
}
