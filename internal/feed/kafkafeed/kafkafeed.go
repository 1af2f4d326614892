// Package kafkafeed consumes order change events from a Kafka topic. Each
// message body is the same small JSON shape the other transports carry; the
// message key is the restaurant id, which keeps one restaurant's events in
// order on a single partition (the consumer still assumes nothing about
// ordering).
package kafkafeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"dinesync/internal/feed"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Subscriber struct {
	brokers []string
	topic   string
	groupID string
	logger  *zap.Logger

	// newReader is swappable in tests.
	newReader func() messageReader
}

func New(brokers []string, topic, groupID string, logger *zap.Logger) *Subscriber {
	s := &Subscriber{brokers: brokers, topic: topic, groupID: groupID, logger: logger}
	s.newReader = func() messageReader {
		cfg := kafka.ReaderConfig{
			Brokers:           brokers,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}
		if groupID != "" {
			cfg.GroupID = groupID
			cfg.GroupTopics = []string{topic}
		} else {
			cfg.Topic = topic
		}
		return kafka.NewReader(cfg)
	}
	return s
}

type wireEvent struct {
	Kind         string `json:"kind"`
	RestaurantID string `json:"restaurantId"`
	OrderID      string `json:"orderId"`
}

type subscription struct {
	reader    messageReader
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.err = s.reader.Close()
		<-s.done
	})
	return s.err
}

func (s *Subscriber) Subscribe(ctx context.Context, scope feed.Scope, handler feed.Handler) (feed.Subscription, error) {
	reader := s.newReader()
	runCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{reader: reader, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for {
			msg, err := reader.FetchMessage(runCtx)
			if err != nil {
				return
			}
			if event, ok := eventOf(msg); ok && scope.Matches(event) {
				handler(event)
			}
			// Signals are re-fetch triggers, nothing is lost by committing
			// before the reconciliation lands.
			if err := reader.CommitMessages(runCtx, msg); err != nil {
				if s.logger != nil {
					s.logger.Warn("change feed commit failed", zap.Error(err))
				}
				return
			}
		}
	}()

	return sub, nil
}

func eventOf(msg kafka.Message) (feed.Event, bool) {
	var body wireEvent
	if err := json.Unmarshal(msg.Value, &body); err != nil {
		return feed.Event{}, false
	}
	event := feed.Event{
		Kind:         feed.EventUpdate,
		RestaurantID: body.RestaurantID,
		OrderID:      body.OrderID,
	}
	if body.Kind == "insert" {
		event.Kind = feed.EventInsert
	}
	if event.RestaurantID == "" && len(msg.Key) > 0 {
		event.RestaurantID = string(msg.Key)
	}
	if event.RestaurantID == "" && event.OrderID == "" {
		return feed.Event{}, false
	}
	return event, true
}
