package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/geoduel/internal/api/handler"
	apimiddleware "github.com/mcoot/geoduel/internal/api/middleware"
	"github.com/mcoot/geoduel/internal/middleware"
	"github.com/mcoot/geoduel/internal/web/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Engine     handler.Engine
	Loop       handler.Runner
	HubManager *sse.HubManager
	// WebSocket serves GET /ws; omitted when nil
	WebSocket http.Handler
	// Throttle limits requests per client IP; omitted when nil
	Throttle *middleware.Throttle
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.SecurityHeaders)
	if cfg.Throttle != nil {
		r.Use(cfg.Throttle.Middleware)
	}

	// Create handlers
	roomHandler := handler.NewRoomHandler(cfg.Engine, cfg.Loop, cfg.HubManager)
	catalogHandler := handler.NewCatalogHandler(cfg.Engine, cfg.Loop)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(apimiddleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/health", catalogHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/regions", catalogHandler.Regions).Methods(http.MethodGet)

	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/history", roomHandler.History).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/events", roomHandler.Events).Methods(http.MethodGet)

	// Game sessions
	if cfg.WebSocket != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(middleware.Recovery(cfg.Logger, nil))
		ws.Use(middleware.Logging(cfg.Logger))
		ws.Handle("", cfg.WebSocket).Methods(http.MethodGet)
	}

	return r
}
