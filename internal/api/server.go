// Package api provides the admin HTTP API of the Daily Blend bot.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dailyblend/blender/internal/service"
	"github.com/dailyblend/blender/internal/sse"
	"github.com/dailyblend/blender/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.SelectionStore
	commands *service.CommandService
	runner   service.Runner
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// Options configures the cross-cutting middleware of the server.
type Options struct {
	Tokens      TokenVerifier
	Limiter     Limiter
	CORSOrigins []string
	// Events enables GET /api/v1/events when set.
	Events *sse.Manager
}

// NewServer creates the admin API with all routes configured. runner may be
// nil when no scheduler is running.
func NewServer(st store.SelectionStore, commands *service.CommandService, runner service.Runner, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		store:    st,
		commands: commands,
		runner:   runner,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Daily Blend Admin API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerSelectionRoutes()
	s.registerBlendRoutes()
	s.registerEventRoutes(opts.Events)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	if len(opts.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	if opts.Tokens != nil {
		s.router.Use(authMiddleware(opts.Tokens))
	}
	if opts.Limiter != nil {
		s.router.Use(rateLimitMiddleware(opts.Limiter, s.logger))
	}
}

// requestLogger logs one line per request at debug level, and server errors
// at error level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
