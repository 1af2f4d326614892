package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dinesync/internal/auth"
	"dinesync/internal/middleware"
	"dinesync/internal/model"
	"dinesync/internal/orderapi"
	"dinesync/internal/roleview"
	"dinesync/pkg/response"
)

// BoardOrders serves the staff board list for the caller's restaurant and
// role: active orders for waiter/chef, the full day view for cashier.
func (h *Handler) BoardOrders(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "staff token required")
		return
	}
	role := boardRole(authCtx.Role)

	statuses := model.ActiveStatuses
	if role == roleview.RoleCashier {
		statuses = nil
	}

	orders, err := h.Orders.ListOrders(r.Context(), authCtx.RestaurantID, statuses)
	if err != nil {
		h.Logger.Warn("board list failed", zap.String("restaurantId", authCtx.RestaurantID), zap.Error(err))
		response.Error(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "order service unavailable, please retry")
		return
	}

	response.Success(w, roleview.ViewList(orders, role, time.Now()))
}

type transitionRequest struct {
	Status model.Status `json:"status"`
}

// BoardOrderTransition requests a status transition on behalf of a staff
// surface. The surface may only request transitions its role offers, and the
// response is the re-fetched authoritative snapshot, never an assumption
// that the mutation took.
func (h *Handler) BoardOrderTransition(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "staff token required")
		return
	}
	role := boardRole(authCtx.Role)
	orderID := chi.URLParam(r, "orderID")

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "target status required")
		return
	}

	current, err := h.Orders.FetchOrder(r.Context(), orderID)
	switch {
	case err == nil:
	case errors.Is(err, orderapi.ErrNotFound):
		response.NotFound(w, "order not found")
		return
	default:
		response.Error(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "order service unavailable, please retry")
		return
	}

	if current.RestaurantID != authCtx.RestaurantID {
		response.NotFound(w, "order not found")
		return
	}
	if !roleview.MayRequest(role, current.Status, req.Status) {
		response.Error(w, http.StatusForbidden, "TRANSITION_NOT_OFFERED", "this surface does not offer that transition")
		return
	}

	if err := h.Orders.RequestTransition(r.Context(), orderID, req.Status); err != nil {
		if orderapi.IsTransient(err) {
			response.Error(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "order service unavailable, please retry")
			return
		}
		// The order service refused: it stays the authority on legality.
		response.Error(w, http.StatusConflict, "TRANSITION_REJECTED", "order service rejected the transition")
		return
	}

	// Reconcile immediately so the caller renders the authoritative result.
	fresh, err := h.Orders.FetchOrder(r.Context(), orderID)
	if err != nil {
		h.Logger.Warn("post-transition fetch failed", zap.String("orderId", orderID), zap.Error(err))
		response.Success(w, roleview.View(current, role, time.Now()))
		return
	}
	response.Success(w, roleview.View(fresh, role, time.Now()))
}

// boardRole maps the token's staff role onto the board rendering role.
func boardRole(staff auth.StaffRole) roleview.Role {
	switch staff {
	case auth.RoleChef:
		return roleview.RoleChef
	case auth.RoleCashier:
		return roleview.RoleCashier
	default:
		// Owners get the waiter surface.
		return roleview.RoleWaiter
	}
}
