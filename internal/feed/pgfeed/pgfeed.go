// Package pgfeed turns Postgres LISTEN/NOTIFY traffic on the orders channel
// into change-feed events. The order service NOTIFYs orders_updates with a
// "restaurantId" or "restaurantId:orderId" payload on every insert/update.
// Only notifications flow through this pool; order rows stay upstream.
package pgfeed

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dinesync/internal/feed"
)

const channelName = "orders_updates"

type Subscriber struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func New(pool *pgxpool.Pool, logger *zap.Logger) *Subscriber {
	return &Subscriber{pool: pool, logger: logger}
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

func (s *Subscriber) Subscribe(ctx context.Context, scope feed.Scope, handler feed.Handler) (feed.Subscription, error) {
	runCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		s.listenLoop(runCtx, scope, handler)
	}()

	return sub, nil
}

func (s *Subscriber) listenLoop(ctx context.Context, scope feed.Scope, handler feed.Handler) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.pool.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.logger != nil {
				s.logger.Warn("orders LISTEN acquire failed", zap.Error(err))
			}
			sleep(ctx, backoff)
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		if _, err := conn.Exec(ctx, `listen `+channelName); err != nil {
			conn.Release()
			if s.logger != nil {
				s.logger.Warn("orders LISTEN failed", zap.Error(err))
			}
			sleep(ctx, backoff)
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		backoff = time.Second
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				break
			}
			event, ok := parsePayload(n.Payload)
			if !ok {
				continue
			}
			if !scope.Matches(event) {
				continue
			}
			handler(event)
		}

		conn.Release()
		if ctx.Err() != nil {
			return
		}
		sleep(ctx, backoff)
		backoff = minDuration(backoff*2, 30*time.Second)
	}
}

func parsePayload(payload string) (feed.Event, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return feed.Event{}, false
	}
	event := feed.Event{Kind: feed.EventUpdate}
	if idx := strings.IndexByte(payload, ':'); idx >= 0 {
		event.RestaurantID = strings.TrimSpace(payload[:idx])
		event.OrderID = strings.TrimSpace(payload[idx+1:])
	} else {
		event.RestaurantID = payload
	}
	if event.RestaurantID == "" && event.OrderID == "" {
		return feed.Event{}, false
	}
	return event, true
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
