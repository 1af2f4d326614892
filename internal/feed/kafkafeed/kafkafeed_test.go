package kafkafeed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"dinesync/internal/feed"
)

// fakeReader serves staged messages and then blocks until the subscription
// is torn down.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.messages) > 0 {
		msg := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestSubscriber(reader *fakeReader) *Subscriber {
	s := New([]string{"broker:9092"}, "order-events", "dinesync", zap.NewNop())
	s.newReader = func() messageReader { return reader }
	return s
}

func msg(key, value string) kafka.Message {
	return kafka.Message{Key: []byte(key), Value: []byte(value)}
}

func TestSubscribeDeliversAndCommits(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		msg("rest-1", `{"kind":"insert","restaurantId":"rest-1","orderId":"ord-1"}`),
		msg("rest-1", `{"kind":"update","restaurantId":"rest-1","orderId":"ord-2"}`),
		msg("rest-2", `{"kind":"update","restaurantId":"rest-2","orderId":"ord-9"}`),
		msg("", `broken payload`),
	}}

	events := make(chan feed.Event, 16)
	sub, err := newTestSubscriber(reader).Subscribe(context.Background(),
		feed.Scope{RestaurantID: "rest-1"},
		func(e feed.Event) { events <- e })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	want := []feed.Event{
		{Kind: feed.EventInsert, RestaurantID: "rest-1", OrderID: "ord-1"},
		{Kind: feed.EventUpdate, RestaurantID: "rest-1", OrderID: "ord-2"},
	}
	for i, expected := range want {
		select {
		case got := <-events:
			if got != expected {
				t.Fatalf("event %d: got %+v, want %+v", i, got, expected)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	// Out-of-scope and malformed messages are consumed but never surface.
	select {
	case e := <-events:
		t.Fatalf("unexpected event: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}

	// Every message is committed regardless of scope.
	deadline := time.Now().Add(time.Second)
	for {
		reader.mu.Lock()
		n := len(reader.committed)
		reader.mu.Unlock()
		if n == 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 4 commits, got %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestKeyFallbackWhenBodyOmitsRestaurant(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		msg("rest-1", `{"kind":"update"}`),
	}}

	events := make(chan feed.Event, 1)
	sub, err := newTestSubscriber(reader).Subscribe(context.Background(),
		feed.Scope{RestaurantID: "rest-1"},
		func(e feed.Event) { events <- e })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	select {
	case got := <-events:
		if got.RestaurantID != "rest-1" {
			t.Fatalf("key fallback missing: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for key-fallback event")
	}
}

func TestCloseReleasesReader(t *testing.T) {
	reader := &fakeReader{}
	sub, err := newTestSubscriber(reader).Subscribe(context.Background(),
		feed.Scope{RestaurantID: "rest-1"}, func(feed.Event) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	reader.mu.Lock()
	closed := reader.closed
	reader.mu.Unlock()
	if !closed {
		t.Fatal("Close must release the Kafka reader")
	}
}
