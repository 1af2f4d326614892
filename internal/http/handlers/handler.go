package handlers

import (
	"go.uber.org/zap"

	"dinesync/internal/config"
	"dinesync/internal/orderapi"
	"dinesync/internal/registry"
	"dinesync/internal/tracker"
)

// Handler carries the shared dependencies of every HTTP endpoint.
type Handler struct {
	Orders *orderapi.Client
	KV     registry.KV
	Logger *zap.Logger
	Config config.Config
}

// worklistFor builds the per-device worklist. Each customer device carries a
// stable opaque id in X-Device-Id; its registry lives under that profile in
// the shared KV.
func (h *Handler) worklistFor(deviceID string) *tracker.Worklist {
	store := registry.NewStore(h.KV, deviceID)
	return tracker.NewWorklist(store, h.Orders, h.Logger)
}
