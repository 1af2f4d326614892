// Package feed defines the change-feed capability: a push channel that emits
// coarse "something changed" signals for orders, keyed by restaurant or by a
// single order id. The transport makes no delivery guarantee (events may be
// duplicated, dropped or arrive out of order), so every consumer pairs a
// subscription with a periodic fallback poll and re-validates scope before
// acting.
package feed

import "context"

// EventKind distinguishes inserts from updates. Payloads are advisory only;
// consumers reconcile by re-fetching, never by applying event bodies.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
)

// Event is one coarse change signal. OrderID may be empty when the transport
// only knows the restaurant that changed.
type Event struct {
	Kind         EventKind
	RestaurantID string
	OrderID      string
}

// Scope is a logical interest set: one order, or one restaurant's board.
type Scope struct {
	RestaurantID string
	OrderID      string
}

// Matches reports whether an event falls inside the scope. Transports may
// filter more coarsely than the scope, so consumers always re-check here.
func (s Scope) Matches(e Event) bool {
	if s.OrderID != "" {
		// Order-keyed scope: accept events naming the order, and
		// restaurant-level signals for its restaurant (the transport may
		// not know order ids).
		if e.OrderID != "" {
			return e.OrderID == s.OrderID
		}
		return s.RestaurantID != "" && e.RestaurantID == s.RestaurantID
	}
	if s.RestaurantID != "" {
		return e.RestaurantID == s.RestaurantID
	}
	return false
}

// Handler consumes one event. Implementations must be cheap: typically just
// a reconciliation trigger.
type Handler func(Event)

// Subscription is one open logical subscription. Close is idempotent and
// releases all transport resources; it must run on every teardown path.
type Subscription interface {
	Close() error
}

// Subscriber opens subscriptions against one transport.
type Subscriber interface {
	Subscribe(ctx context.Context, scope Scope, handler Handler) (Subscription, error)
}

// Nop is the poll-only degradation: subscriptions open and close but no
// event ever arrives, leaving the fallback poll as the sole trigger.
type Nop struct{}

type nopSubscription struct{}

func (nopSubscription) Close() error { return nil }

func (Nop) Subscribe(ctx context.Context, scope Scope, handler Handler) (Subscription, error) {
	return nopSubscription{}, nil
}
