package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/csvagent/csvagent/internal/agent"
	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/handler"
	"github.com/csvagent/csvagent/internal/llm"
	"github.com/csvagent/csvagent/internal/middleware"
	"github.com/csvagent/csvagent/internal/security"
	"github.com/csvagent/csvagent/internal/service"
	"github.com/csvagent/csvagent/internal/tools"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func (s *Server) setupRoutes() (http.Handler, error) {
	cfg := s.cfg

	// ─── Dataset ────────────────────────────────────────────────────────────────
	calc := dataset.NewCalculator(s.ds)

	// ─── Security ───────────────────────────────────────────────────────────────
	piiKeywords := cfg.PIIKeywords
	if !cfg.EnablePIIDetection {
		piiKeywords = nil
	}
	piiDetector := security.NewPIIDetector(piiKeywords)
	promptVal := security.NewPromptValidator()
	dataMasker := security.NewDataMasker(cfg.SensitiveColumns)
	auditLogger := security.NewAuditLogger(cfg.EnableAuditLogging)
	router := service.NewIntentRouter()

	// ─── Tools ──────────────────────────────────────────────────────────────────
	// The masker is wired into the row-returning tools so the model never
	// sees unmasked sensitive columns in tool results.
	registry, err := tools.NewRegistry(tools.DatasetTools(calc, dataMasker, cfg.EnableDataMasking)...)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	// ─── Model provider ─────────────────────────────────────────────────────────
	var provider llm.Provider
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Warn().Msg("ANTHROPIC_API_KEY not set - agent disabled")
		} else {
			provider = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model, cfg.AnthropicBaseURL)
		}
	default:
		provider = llm.NewOllamaClient(cfg.OllamaURL, cfg.Model, time.Duration(cfg.ChatTimeout)*time.Second)
	}

	log.Info().
		Str("dataset", cfg.DatasetPath).
		Int("rows", s.ds.NumRows()).
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Bool("agent_enabled", provider != nil).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("data_masking", cfg.EnableDataMasking).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Bool("pii_detection", cfg.EnablePIIDetection).
		Msg("service configuration")

	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("WARNING: auth enabled but no API keys configured - all API requests will be rejected")
	}

	// ─── Handlers ───────────────────────────────────────────────────────────────
	healthH := handler.NewHealthHandler(provider, calc)
	datasetH := handler.NewDatasetHandler(calc, dataMasker, cfg.EnableDataMasking)
	queryH := handler.NewQueryHandler(calc, dataMasker, auditLogger, cfg.EnableDataMasking)

	var askH *handler.AskHandler
	if provider != nil {
		orch := agent.NewOrchestrator(provider, registry, cfg.MaxRounds, cfg.MaxToolFailures)
		dsAgentH := agent.NewDatasetHandler(orch, calc, piiDetector, promptVal, auditLogger, router)
		askH = handler.NewAskHandler(dsAgentH)
	} else {
		askH = handler.NewAskHandler(nil)
	}

	// ─── Router ─────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)

	// Auth + rate limiting for API routes
	apiMiddleware := []func(http.Handler) http.Handler{
		middleware.RateLimit(cfg.RateLimitPerMinute),
	}
	if cfg.EnableAuth && len(cfg.APIKeys) > 0 {
		apiMiddleware = append(apiMiddleware, middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
	}

	r.Group(func(r chi.Router) {
		for _, m := range apiMiddleware {
			r.Use(m)
		}

		r.Route(cfg.APIPrefix, func(r chi.Router) {
			r.Get("/dataset", datasetH.Schema)
			r.Get("/dataset/sample", datasetH.Sample)
			r.Post("/query", queryH.Execute)
			r.Post("/ask", askH.Ask)
		})
	})

	return r, nil
}
