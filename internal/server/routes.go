package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/datasage/datasage/internal/analyst"
	"github.com/datasage/datasage/internal/handler"
	"github.com/datasage/datasage/internal/llm"
	"github.com/datasage/datasage/internal/middleware"
	"github.com/datasage/datasage/internal/session"
)

// setupRoutes returns (router, analyst, error) so the analyst's active
// source can be closed on shutdown.
func (s *Server) setupRoutes() (http.Handler, *analyst.Analyst, error) {
	cfg := s.cfg

	var client llm.Client
	if cfg.AnthropicAPIKey != "" {
		client = llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.Model, cfg.AnthropicBaseURL, cfg.LLMTimeout())
	} else {
		log.Warn().Msg("ANTHROPIC_API_KEY not set - /ask will fail synthesis")
		client = llm.Unconfigured()
	}

	a := analyst.New(cfg, client)
	sessions := session.NewRegistry(cfg.MaxHistory)

	log.Info().
		Bool("llm_configured", cfg.AnthropicAPIKey != "").
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("data_masking", cfg.EnableDataMasking).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Str("model", cfg.Model).
		Msg("service configuration")

	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("WARNING: auth enabled but no API keys configured - all API requests will be rejected")
	}

	healthH := handler.NewHealthHandler(a, cfg.AnthropicAPIKey != "")
	askH := handler.NewAskHandler(a, sessions)
	queryH := handler.NewQueryHandler(a)
	schemaH := handler.NewSchemaHandler(a)
	sourcesH := handler.NewSourcesHandler(a)

	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
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
			r.Post("/ask", askH.Ask)
			r.Post("/sessions", askH.CreateSession)
			r.Delete("/sessions/{session_id}", askH.DropSession)

			r.Post("/query", queryH.Execute)
			r.Get("/schema", schemaH.Get)

			r.Route("/sources", func(r chi.Router) {
				r.Post("/files", sourcesH.ConnectFiles)
				r.Post("/postgres", sourcesH.ConnectPostgres)
				r.Get("/active", sourcesH.Active)
				r.Delete("/active", sourcesH.Disconnect)
			})
		})
	})

	return r, a, nil
}
