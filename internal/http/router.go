package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"dinesync/internal/config"
	"dinesync/internal/http/handlers"
	"dinesync/internal/middleware"
	"dinesync/internal/orderapi"
	"dinesync/internal/registry"
	"dinesync/internal/ws"
)

func NewRouter(orders *orderapi.Client, kv registry.KV, logger *zap.Logger, cfg config.Config, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "X-Device-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}
		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}
		r.Use(cors.Handler(options))
	}

	h := &handlers.Handler{Orders: orders, KV: kv, Logger: logger, Config: cfg}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/orders/{orderID}", h.PublicOrderView)
		r.Get("/tracked", h.TrackedOrdersList)
		r.Post("/tracked", h.TrackedOrdersAdd)
		r.Delete("/tracked/{orderID}", h.TrackedOrdersRemove)
	})

	r.Route("/api/board", func(r chi.Router) {
		r.Use(middleware.RequireStaff(cfg.JWTSecret))
		r.Get("/orders", h.BoardOrders)
		r.Post("/orders/{orderID}/status", h.BoardOrderTransition)
	})

	if wsServer != nil {
		r.Get("/ws/board", wsServer.HandleBoard)
		r.Get("/ws/orders/{orderID}", wsServer.HandleOrder)
	}

	return r
}
