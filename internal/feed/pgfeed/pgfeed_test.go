package pgfeed

import (
	"testing"

	"dinesync/internal/feed"
)

func TestParsePayload(t *testing.T) {
	cases := []struct {
		payload string
		want    feed.Event
		ok      bool
	}{
		{"rest-1", feed.Event{Kind: feed.EventUpdate, RestaurantID: "rest-1"}, true},
		{"rest-1:ord-1", feed.Event{Kind: feed.EventUpdate, RestaurantID: "rest-1", OrderID: "ord-1"}, true},
		{" rest-1 : ord-1 ", feed.Event{Kind: feed.EventUpdate, RestaurantID: "rest-1", OrderID: "ord-1"}, true},
		{"", feed.Event{}, false},
		{"   ", feed.Event{}, false},
		{":", feed.Event{}, false},
	}

	for _, tc := range cases {
		got, ok := parsePayload(tc.payload)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parsePayload(%q) = %+v, %v; want %+v, %v", tc.payload, got, ok, tc.want, tc.ok)
		}
	}
}
