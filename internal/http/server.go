package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pharmaflow-tutor/internal/auth"
	"pharmaflow-tutor/internal/core"
	"pharmaflow-tutor/internal/db"
	"pharmaflow-tutor/internal/llm"
	"pharmaflow-tutor/internal/scenario"
	"pharmaflow-tutor/internal/session"
)

// Server bundles together the dependencies required by the HTTP handlers.
type Server struct {
	Repo     db.Repository
	Auth     *auth.Service
	Engine   *core.Engine
	Judge    *core.Judge
	Sessions session.Store
	Catalog  *scenario.Catalog
	LLM      llm.Client
	Language string

	router *chi.Mux
}

// NewServer constructs a Server and wires its routes.
func NewServer(repo db.Repository, authSvc *auth.Service, engine *core.Engine, judge *core.Judge,
	sessions session.Store, catalog *scenario.Catalog, client llm.Client, language string) *Server {
	s := &Server{
		Repo:     repo,
		Auth:     authSvc,
		Engine:   engine,
		Judge:    judge,
		Sessions: sessions,
		Catalog:  catalog,
		LLM:      client,
		Language: language,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Get("/scenarios", s.handleListScenarios)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Post("/reset", s.handleResetSession)
				r.Post("/messages", s.handlePostMessage)
				r.Post("/voice", s.handleVoiceMessage)
				r.Post("/hint", s.handleHint)
				r.Post("/evaluate", s.handleEvaluate)
			})
		})

		r.Get("/ledger", s.handleLedger)
		r.Get("/ledger/stats", s.handleLedgerStats)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]apiError{"error": {Code: code, Message: message}})
}
