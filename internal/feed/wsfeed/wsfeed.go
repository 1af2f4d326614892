// Package wsfeed consumes the order service's websocket push channel as a
// change feed. The channel speaks the same coarse message shapes the rest of
// the platform uses ("orders.insert" / "orders.update" / "orders.refresh");
// anything unrecognized is ignored.
package wsfeed

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dinesync/internal/feed"
)

type Subscriber struct {
	baseURL string
	logger  *zap.Logger
}

func New(baseURL string, logger *zap.Logger) *Subscriber {
	return &Subscriber{baseURL: baseURL, logger: logger}
}

type wireMessage struct {
	Type         string `json:"type"`
	RestaurantID string `json:"restaurantId"`
	OrderID      string `json:"orderId"`
}

type subscription struct {
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// Subscribe dials the push channel for the scope and invokes handler for
// every in-scope change signal. The read loop reconnects with backoff on
// connection loss; delivery stays best-effort either way.
func (s *Subscriber) Subscribe(ctx context.Context, scope feed.Scope, handler feed.Handler) (feed.Subscription, error) {
	endpoint, err := s.endpoint(scope)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		s.readLoop(runCtx, endpoint, scope, handler)
	}()

	return sub, nil
}

func (s *Subscriber) endpoint(scope feed.Scope) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if scope.OrderID != "" {
		q.Set("orderId", scope.OrderID)
	}
	if scope.RestaurantID != "" {
		q.Set("restaurantId", scope.RestaurantID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Subscriber) readLoop(ctx context.Context, endpoint string, scope feed.Scope, handler feed.Handler) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.logger != nil {
				s.logger.Warn("change feed dial failed", zap.Error(err))
			}
			sleep(ctx, backoff)
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second

		// Unblock ReadMessage when the subscription is closed.
		closed := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-closed:
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var msg wireMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			event, ok := eventOf(msg)
			if !ok {
				continue
			}
			// The transport may fan out more broadly than we asked for.
			if !scope.Matches(event) {
				continue
			}
			handler(event)
		}

		close(closed)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		sleep(ctx, backoff)
		backoff = minDuration(backoff*2, 30*time.Second)
	}
}

func eventOf(msg wireMessage) (feed.Event, bool) {
	var kind feed.EventKind
	switch msg.Type {
	case "orders.insert":
		kind = feed.EventInsert
	case "orders.update", "orders.refresh", "orders.state":
		kind = feed.EventUpdate
	default:
		return feed.Event{}, false
	}
	return feed.Event{
		Kind:         kind,
		RestaurantID: msg.RestaurantID,
		OrderID:      msg.OrderID,
	}, true
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
