package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dinesync/internal/orderapi"
	"dinesync/internal/registry"
	"dinesync/internal/roleview"
	"dinesync/internal/tracker"
	"dinesync/pkg/response"
)

// PublicOrderView serves the customer tracking page: one order rendered for
// the customer role, wait estimate included. No auth; order ids are opaque.
func (h *Handler) PublicOrderView(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	snap, err := h.Orders.FetchOrder(r.Context(), orderID)
	switch {
	case err == nil:
	case errors.Is(err, orderapi.ErrNotFound):
		response.NotFound(w, "order not found")
		return
	default:
		h.Logger.Warn("order fetch failed", zap.String("orderId", orderID), zap.Error(err))
		response.Error(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "order service unavailable, please retry")
		return
	}

	response.Success(w, roleview.View(snap, roleview.RoleCustomer, time.Now()))
}

// TrackedOrdersList reconstructs the device's worklist: every order the
// registry tracks, fetched fresh, newest first.
func (h *Handler) TrackedOrdersList(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := deviceIDOf(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "DEVICE_ID_REQUIRED", "X-Device-Id header required")
		return
	}

	items, err := h.worklistFor(deviceID).Load(r.Context())
	if err != nil {
		h.Logger.Warn("worklist load failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "REGISTRY_UNAVAILABLE", "could not read tracked orders")
		return
	}
	response.Success(w, items)
}

type trackOrderRequest struct {
	OrderID        string `json:"orderId"`
	RestaurantID   string `json:"restaurantId"`
	RestaurantName string `json:"restaurantName"`
}

// TrackedOrdersAdd appends an order to the device registry after checkout.
func (h *Handler) TrackedOrdersAdd(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := deviceIDOf(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "DEVICE_ID_REQUIRED", "X-Device-Id header required")
		return
	}

	var req trackOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.OrderID) == "" || strings.TrimSpace(req.RestaurantID) == "" {
		response.Error(w, http.StatusBadRequest, "MISSING_FIELDS", "orderId and restaurantId are required")
		return
	}

	err := h.worklistFor(deviceID).Track(r.Context(), registry.TrackedOrder{
		OrderID:        req.OrderID,
		RestaurantID:   req.RestaurantID,
		RestaurantName: req.RestaurantName,
	})
	if err != nil {
		h.Logger.Warn("track order failed", zap.String("orderId", req.OrderID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "REGISTRY_UNAVAILABLE", "could not store tracked order")
		return
	}
	response.Success(w, map[string]any{"tracked": true})
}

// TrackedOrdersRemove drops one entry on explicit user action. Orders still
// in flight stay tracked.
func (h *Handler) TrackedOrdersRemove(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := deviceIDOf(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "DEVICE_ID_REQUIRED", "X-Device-Id header required")
		return
	}
	orderID := chi.URLParam(r, "orderID")

	err := h.worklistFor(deviceID).Remove(r.Context(), orderID)
	switch {
	case err == nil:
		response.Success(w, map[string]any{"removed": true})
	case errors.Is(err, tracker.ErrNotTerminal):
		response.Error(w, http.StatusConflict, "ORDER_ACTIVE", "only completed or cancelled orders can be removed")
	case orderapi.IsTransient(err):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "order service unavailable, please retry")
	default:
		h.Logger.Warn("untrack order failed", zap.String("orderId", orderID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "REGISTRY_UNAVAILABLE", "could not remove tracked order")
	}
}

func deviceIDOf(r *http.Request) (string, bool) {
	deviceID := strings.TrimSpace(r.Header.Get("X-Device-Id"))
	return deviceID, deviceID != ""
}
