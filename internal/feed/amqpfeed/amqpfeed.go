// Package amqpfeed consumes order change events from the platform's RabbitMQ
// topic exchange. Routing keys follow the order.# convention
// (order.created, order.status.updated, ...), with a small JSON body naming
// the restaurant and order.
package amqpfeed

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"dinesync/internal/feed"
)

const (
	defaultExchange = "dinesync.events"
	// Topic wildcard '#' also matches multi-segment keys like
	// 'order.status.updated'; '*' would not.
	defaultBinding = "order.#"
)

type Subscriber struct {
	url      string
	exchange string
	logger   *zap.Logger
}

func New(url string, logger *zap.Logger) *Subscriber {
	return &Subscriber{url: url, exchange: defaultExchange, logger: logger}
}

type wireEvent struct {
	RestaurantID string `json:"restaurantId"`
	OrderID      string `json:"orderId"`
}

type subscription struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.ch != nil {
			s.err = s.ch.Close()
		}
		if s.conn != nil {
			if err := s.conn.Close(); s.err == nil {
				s.err = err
			}
		}
		<-s.done
	})
	return s.err
}

// Subscribe declares an exclusive auto-delete queue bound to the order topic
// space and pumps deliveries through the handler. The queue disappears with
// the connection, so closing the subscription releases everything.
func (s *Subscriber) Subscribe(ctx context.Context, scope feed.Scope, handler feed.Handler) (feed.Subscription, error) {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, defaultBinding, s.exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{conn: conn, ch: ch, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-runCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				event, ok := s.eventOf(d)
				if !ok {
					continue
				}
				if !scope.Matches(event) {
					continue
				}
				handler(event)
			}
		}
	}()

	return sub, nil
}

func (s *Subscriber) eventOf(d amqp.Delivery) (feed.Event, bool) {
	kind := feed.EventUpdate
	if strings.HasPrefix(d.RoutingKey, "order.created") {
		kind = feed.EventInsert
	}

	var body wireEvent
	if err := json.Unmarshal(d.Body, &body); err != nil {
		if s.logger != nil {
			s.logger.Debug("change feed event body ignored", zap.String("routingKey", d.RoutingKey), zap.Error(err))
		}
		return feed.Event{}, false
	}
	if body.RestaurantID == "" && body.OrderID == "" {
		return feed.Event{}, false
	}
	return feed.Event{Kind: kind, RestaurantID: body.RestaurantID, OrderID: body.OrderID}, true
}
