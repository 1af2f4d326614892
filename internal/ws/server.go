// Package ws pushes projected order state to display clients: /ws/board for
// the staff surfaces, /ws/orders/{orderID} for customer tracking pages. One
// hub per scope owns the underlying board or tracker; the hub lives while at
// least one client is connected and is torn down with the last one, which
// closes the change-feed subscription and cancels all timers.
package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dinesync/internal/alert"
	"dinesync/internal/auth"
	"dinesync/internal/board"
	"dinesync/internal/config"
	"dinesync/internal/feed"
	"dinesync/internal/reconcile"
	"dinesync/internal/roleview"
	"dinesync/internal/tracker"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	Fetch    reconcile.Fetcher
	Feed     feed.Subscriber
	Notifier alert.Notifier
	Logger   *zap.Logger
	Config   config.Config

	mu       sync.Mutex
	boards   map[string]*boardHub
	trackers map[string]*trackerHub
}

func New(fetch reconcile.Fetcher, sub feed.Subscriber, notifier alert.Notifier, logger *zap.Logger, cfg config.Config) *Server {
	return &Server{
		Fetch:    fetch,
		Feed:     sub,
		Notifier: notifier,
		Logger:   logger,
		Config:   cfg,
		boards:   make(map[string]*boardHub),
		trackers: make(map[string]*trackerHub),
	}
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

func (c *wsClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// HandleBoard upgrades a staff connection and streams board state for the
// token's restaurant and role. The token travels as a query parameter
// because browsers cannot set headers on websocket dials.
func (s *Server) HandleBoard(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.VerifyAccessToken(strings.TrimSpace(r.URL.Query().Get("token")), s.Config.JWTSecret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	role := roleview.RoleWaiter
	switch claims.Role {
	case auth.RoleChef:
		role = roleview.RoleChef
	case auth.RoleCashier:
		role = roleview.RoleCashier
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn}

	hub := s.joinBoard(claims.RestaurantID, role, client)
	defer s.releaseBoard(hub, client)

	s.serveClient(client)
}

// HandleOrder upgrades a customer connection and streams one order's
// projected state.
func (s *Server) HandleOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	restaurantID := strings.TrimSpace(r.URL.Query().Get("restaurantId"))
	if orderID == "" {
		http.Error(w, "order id required", http.StatusBadRequest)
		return
	}
	// Without the restaurant scope the feed cannot deliver restaurant-level
	// signals for this order, so such subscriptions are refused rather than
	// silently degraded to poll-only.
	if restaurantID == "" {
		http.Error(w, "restaurant id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn}

	hub := s.joinTracker(orderID, restaurantID, client)
	defer s.releaseTracker(hub, client)

	s.serveClient(client)
}

// serveClient keeps the connection alive with heartbeats and drains inbound
// frames until the peer goes away. Display clients only listen.
func (s *Server) serveClient(client *wsClient) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := client.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(s.Config.WSHeartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if err := client.ping(); err != nil {
				return
			}
		}
	}
}

type boardHub struct {
	key    string
	board  *board.Board
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    *boardState
}

type boardState struct {
	Type   string               `json:"type"`
	Orders []roleview.OrderView `json:"data"`
	Alert  bool                 `json:"alert,omitempty"`
}

// joinBoard returns the hub for the restaurant and role with the client
// already registered. Membership is taken under s.mu so a concurrent
// releaseBoard can never tear the hub down between handing it out and the
// client joining it.
func (s *Server) joinBoard(restaurantID string, role roleview.Role, client *wsClient) *boardHub {
	key := restaurantID + "|" + string(role)

	s.mu.Lock()
	hub, ok := s.boards[key]
	if !ok {
		hub = s.startBoardHub(key, restaurantID, role)
		s.boards[key] = hub
	}
	hub.mu.Lock()
	hub.clients[client] = struct{}{}
	last := hub.last
	hub.mu.Unlock()
	s.mu.Unlock()

	if last == nil {
		last = &boardState{Type: "board.state", Orders: hub.board.Orders()}
	}
	if err := client.writeJSON(last); err != nil {
		_ = client.conn.Close()
	}
	return hub
}

// startBoardHub builds and runs a hub. Callers hold s.mu.
func (s *Server) startBoardHub(key, restaurantID string, role roleview.Role) *boardHub {
	hub := &boardHub{key: key, clients: make(map[*wsClient]struct{})}
	hub.board = board.New(s.Fetch, s.Feed, restaurantID, role, s.Notifier, func(u board.Update) {
		if u.Err != nil {
			// Transient failure: retained state was already pushed and
			// nothing on the displays is cleared.
			return
		}
		hub.broadcast(&boardState{Type: "board.state", Orders: u.Orders, Alert: u.AlertFired})
	}, s.Logger, board.Options{PollInterval: s.Config.FallbackPollInterval})

	ctx, cancel := context.WithCancel(context.Background())
	hub.cancel = cancel
	go func() {
		if err := hub.board.Run(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("board hub stopped", zap.String("hub", key), zap.Error(err))
		}
	}()
	return hub
}

func (s *Server) releaseBoard(hub *boardHub, client *wsClient) {
	_ = client.conn.Close()

	hub.mu.Lock()
	delete(hub.clients, client)
	empty := len(hub.clients) == 0
	hub.mu.Unlock()
	if !empty {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	hub.mu.Lock()
	empty = len(hub.clients) == 0
	hub.mu.Unlock()
	if empty {
		delete(s.boards, hub.key)
		_ = hub.board.Close()
		hub.cancel()
	}
}

func (h *boardHub) broadcast(state *boardState) {
	h.mu.Lock()
	h.last = state
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.writeJSON(state); err != nil {
			_ = c.conn.Close()
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
		}
	}
}

type trackerHub struct {
	key     string
	tracker *tracker.Tracker
	cancel  context.CancelFunc

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    *orderState
}

type orderState struct {
	Type     string              `json:"type"`
	Order    *roleview.OrderView `json:"data,omitempty"`
	NotFound bool                `json:"notFound,omitempty"`
}

// joinTracker mirrors joinBoard: the client is registered on the hub under
// s.mu so teardown in releaseTracker cannot race the join.
func (s *Server) joinTracker(orderID, restaurantID string, client *wsClient) *trackerHub {
	s.mu.Lock()
	hub, ok := s.trackers[orderID]
	if !ok {
		hub = s.startTrackerHub(orderID, restaurantID)
		s.trackers[orderID] = hub
	}
	hub.mu.Lock()
	hub.clients[client] = struct{}{}
	last := hub.last
	hub.mu.Unlock()
	s.mu.Unlock()

	if last != nil {
		if err := client.writeJSON(last); err != nil {
			_ = client.conn.Close()
		}
	}
	return hub
}

// startTrackerHub builds and runs a hub. Callers hold s.mu.
func (s *Server) startTrackerHub(orderID, restaurantID string) *trackerHub {
	hub := &trackerHub{key: orderID, clients: make(map[*wsClient]struct{})}
	hub.tracker = tracker.New(s.Fetch, s.Feed, orderID, restaurantID, func(u tracker.Update) {
		if u.Err != nil && u.View == nil {
			return
		}
		hub.broadcast(&orderState{Type: "order.state", Order: u.View, NotFound: u.NotFound})
	}, s.Logger, tracker.Options{
		PollInterval: s.Config.FallbackPollInterval,
		ETAInterval:  s.Config.ETARefreshInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	hub.cancel = cancel
	go func() {
		if err := hub.tracker.Run(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("tracker hub stopped", zap.String("orderId", orderID), zap.Error(err))
		}
	}()
	return hub
}

func (s *Server) releaseTracker(hub *trackerHub, client *wsClient) {
	_ = client.conn.Close()

	hub.mu.Lock()
	delete(hub.clients, client)
	empty := len(hub.clients) == 0
	hub.mu.Unlock()
	if !empty {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	hub.mu.Lock()
	empty = len(hub.clients) == 0
	hub.mu.Unlock()
	if empty {
		delete(s.trackers, hub.key)
		_ = hub.tracker.Close()
		hub.cancel()
	}
}

func (h *trackerHub) broadcast(state *orderState) {
	h.mu.Lock()
	h.last = state
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.writeJSON(state); err != nil {
			_ = c.conn.Close()
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
		}
	}
}
