package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"mentraflow-backend/interfaces/http/rest/handlers"
	"mentraflow-backend/interfaces/http/rest/middleware"
	"mentraflow-backend/pkg/common"
	"mentraflow-backend/pkg/observability"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds the HTTP concerns taken from configuration.
type RouterConfig struct {
	EnableCORS    bool
	CORSOrigins   []string
	EnableMetrics bool
}

// Router creates and configures the HTTP router
type Router struct {
	mcp     *handlers.MCPHandler
	recall  *handlers.RecallHandler
	store   Pinger
	metrics *observability.Collector
	config  RouterConfig
	logger  *zap.Logger
}

func NewRouter(
	mcp *handlers.MCPHandler,
	recall *handlers.RecallHandler,
	store Pinger,
	metrics *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		mcp:     mcp,
		recall:  recall,
		store:   store,
		metrics: metrics,
		config:  config,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.config.EnableMetrics && rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.config.EnableMetrics && rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api/mcp", func(r chi.Router) {
		r.Post("/receive-export", rt.mcp.ReceiveExport)
		r.Get("/status/{importID}", rt.mcp.ImportStatus)
		r.Get("/history", rt.mcp.History)
		r.Get("/settings", rt.mcp.Settings)
		r.Get("/stats", rt.mcp.Stats)

		r.Route("/concepts", func(r chi.Router) {
			r.Get("/", rt.mcp.Concepts)
			r.Get("/{conceptID}/quiz", rt.mcp.ConceptQuiz)
		})

		r.Route("/quizzes", func(r chi.Router) {
			r.Get("/", rt.mcp.Quizzes)
			r.Post("/{quizID}/results", rt.mcp.RecordQuizResult)
		})

		r.Route("/recall-sessions", func(r chi.Router) {
			r.Get("/", rt.recall.ListSessions)
			r.Post("/{sessionID}/complete", rt.recall.CompleteSession)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports ready only while the store answers a ping.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
	defer cancel()

	if err := rt.store.Ping(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "store unavailable",
		})
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
