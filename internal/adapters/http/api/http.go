// Package api wires the HTTP surface of the scoreboard: routes, CORS policy,
// JSON encoding and error mapping.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/pkg/logger"
)

// Route parameters.
const (
	paramGameType = "game_type"
	paramPlayerID = "player_id"
)

const defaultMaxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ResultDependencies
	LeaderboardDependencies
	HistoryDependencies
	StatsProvider
}

// Compile-time check that the service satisfies the handler contracts.
var _ Dependencies = (*service.Service)(nil)

// Server wires HTTP routes for the business API.
type Server struct {
	rootHandler        *RootHandler
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	resultHandler      *ResultHandler
	leaderboardHandler *LeaderboardHandler
	historyHandler     *HistoryHandler
	exportHandler      *ExportHandler

	allowedOrigins []string
	logger         logger.Logger
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	allowedOrigins []string
	maxBodyBytes   int64
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(o *serverOptions) {
		o.allowedOrigins = origins
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := serverOptions{
		allowedOrigins: []string{"http://localhost:3000"},
		maxBodyBytes:   defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Server{
		rootHandler:        NewRootHandler(),
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		resultHandler:      NewResultHandler(deps, o.maxBodyBytes),
		leaderboardHandler: NewLeaderboardHandler(deps),
		historyHandler:     NewHistoryHandler(deps),
		exportHandler:      NewExportHandler(deps),
		allowedOrigins:     o.allowedOrigins,
		logger:             logger.Get().Named("api"),
	}
}

// Register attaches the middleware stack and all routes to r. ws, when
// non-nil, serves GET /ws/leaderboard/{game_type}.
func (s *Server) Register(_ context.Context, r chi.Router, ws http.Handler) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", MetricsMiddleware(s.rootHandler.HandleRoot, "root"))
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/games/result", MetricsMiddleware(s.resultHandler.HandlePostResult, "result"))
		r.Get("/games/history/{"+paramPlayerID+"}", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
		r.Get("/leaderboard/{"+paramGameType+"}", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
		r.Get("/leaderboard/{"+paramGameType+"}/export.xlsx", MetricsMiddleware(s.exportHandler.HandleExport, "export"))
	})

	if ws != nil {
		r.Get("/ws/leaderboard/{"+paramGameType+"}", MetricsMiddleware(ws.ServeHTTP, "ws"))
	}
}

// Handler returns a router with every route registered.
func (s *Server) Handler(ctx context.Context, ws http.Handler) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r, ws)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = message(err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
