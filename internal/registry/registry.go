// Package registry is the device-local list of orders a customer is
// tracking. It is the sole source of truth for which orders this device
// cares about; the backend is never asked for orders by customer.
// Entries are appended at checkout and removed only by explicit user action;
// every mutation rewrites the whole list (read latest, filter, write back),
// so concurrent writers from other tabs converge last-writer-wins.
package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const (
	trackedOrdersKey      = "my_orders"
	selectedRestaurantKey = "selected_restaurant"
)

// KV is the synchronous local storage capability the registry persists into.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// TrackedOrder is one registry entry.
type TrackedOrder struct {
	OrderID        string    `json:"orderId"`
	RestaurantID   string    `json:"restaurantId"`
	RestaurantName string    `json:"restaurantName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Store struct {
	kv KV

	// prefix isolates one device profile inside a shared KV.
	prefix string
}

func NewStore(kv KV, profile string) *Store {
	prefix := ""
	if profile != "" {
		prefix = profile + ":"
	}
	return &Store{kv: kv, prefix: prefix}
}

// List returns the tracked orders in stored order. A corrupt or missing
// value reads as an empty list, never an error surface for the customer.
func (s *Store) List(ctx context.Context) ([]TrackedOrder, error) {
	raw, ok, err := s.kv.Get(ctx, s.prefix+trackedOrdersKey)
	if err != nil {
		return nil, errors.Wrap(err, "read tracked orders")
	}
	if !ok || len(raw) == 0 {
		return []TrackedOrder{}, nil
	}
	var entries []TrackedOrder
	if err := json.Unmarshal(raw, &entries); err != nil {
		return []TrackedOrder{}, nil
	}
	return entries, nil
}

// Add appends an entry after checkout. The list is re-read first so another
// tab's append since our last read is not clobbered; an entry with the same
// order id is replaced rather than duplicated.
func (s *Store) Add(ctx context.Context, entry TrackedOrder) error {
	entries, err := s.List(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.OrderID != entry.OrderID {
			kept = append(kept, e)
		}
	}
	kept = append(kept, entry)
	return s.write(ctx, kept)
}

// Remove drops one entry by order id. Whether removal is allowed (terminal
// status only) is the caller's concern; the store is a dumb list.
func (s *Store) Remove(ctx context.Context, orderID string) error {
	entries, err := s.List(ctx)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.OrderID != orderID {
			kept = append(kept, e)
		}
	}
	return s.write(ctx, kept)
}

func (s *Store) write(ctx context.Context, entries []TrackedOrder) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "marshal tracked orders")
	}
	return errors.Wrap(s.kv.Set(ctx, s.prefix+trackedOrdersKey, raw), "write tracked orders")
}

// SelectedRestaurant reads the restaurant the device currently has selected.
// Written by the restaurant-switching UI, read here to scope subscriptions.
func (s *Store) SelectedRestaurant(ctx context.Context) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, s.prefix+selectedRestaurantKey)
	if err != nil {
		return "", false, errors.Wrap(err, "read selected restaurant")
	}
	if !ok || len(raw) == 0 {
		return "", false, nil
	}
	return string(raw), true, nil
}
