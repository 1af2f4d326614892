package wsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dinesync/internal/feed"
)

var upgrader = websocket.Upgrader{}

// pushServer upgrades every connection and writes the staged frames, then
// keeps the connection open until the client leaves.
func pushServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscribeDeliversInScopeEvents(t *testing.T) {
	srv := pushServer(t, []string{
		`{"type":"orders.update","restaurantId":"rest-1","orderId":"ord-1"}`,
		`not even json`,
		`{"type":"orders.unknown","restaurantId":"rest-1","orderId":"ord-1"}`,
		`{"type":"orders.update","restaurantId":"rest-2","orderId":"ord-9"}`,
		`{"type":"orders.insert","restaurantId":"rest-1"}`,
	})
	defer srv.Close()

	events := make(chan feed.Event, 16)
	sub, err := New(wsURL(srv), zap.NewNop()).Subscribe(context.Background(),
		feed.Scope{RestaurantID: "rest-1", OrderID: "ord-1"},
		func(e feed.Event) { events <- e })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	want := []feed.Event{
		{Kind: feed.EventUpdate, RestaurantID: "rest-1", OrderID: "ord-1"},
		{Kind: feed.EventInsert, RestaurantID: "rest-1"},
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

	// Malformed, unknown-type and out-of-scope frames never surface.
	select {
	case e := <-events:
		t.Fatalf("unexpected extra event: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriptionCloseIdempotent(t *testing.T) {
	srv := pushServer(t, nil)
	defer srv.Close()

	sub, err := New(wsURL(srv), zap.NewNop()).Subscribe(context.Background(),
		feed.Scope{RestaurantID: "rest-1"}, func(feed.Event) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sub.Close(); err != nil {
			t.Errorf("first Close: %v", err)
		}
		if err := sub.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return; read loop still holding the subscription")
	}
}

func TestEndpointCarriesScope(t *testing.T) {
	s := New("ws://feed.local/ws/orders", zap.NewNop())
	endpoint, err := s.endpoint(feed.Scope{RestaurantID: "rest-1", OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	if !strings.Contains(endpoint, "restaurantId=rest-1") || !strings.Contains(endpoint, "orderId=ord-1") {
		t.Fatalf("scope missing from endpoint: %s", endpoint)
	}
}
