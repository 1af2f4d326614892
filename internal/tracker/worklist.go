package tracker

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dinesync/internal/orderapi"
	"dinesync/internal/reconcile"
	"dinesync/internal/registry"
	"dinesync/internal/roleview"
)

// ErrNotTerminal rejects removal of an order that is still in flight.
var ErrNotTerminal = errors.New("order is not in a terminal status")

// WorklistItem is one tracked order with its current state, or a tombstone
// when the id no longer resolves upstream.
type WorklistItem struct {
	Entry    registry.TrackedOrder `json:"entry"`
	View     *roleview.OrderView   `json:"view,omitempty"`
	NotFound bool                  `json:"notFound,omitempty"`
}

// Worklist reconstructs the customer's "my orders" list from the local
// registry: the registry says which ids matter, upstream says what state
// they are in.
type Worklist struct {
	store  *registry.Store
	fetch  reconcile.Fetcher
	logger *zap.Logger
	clock  func() time.Time
}

func NewWorklist(store *registry.Store, fetch reconcile.Fetcher, logger *zap.Logger) *Worklist {
	return &Worklist{store: store, fetch: fetch, logger: logger, clock: time.Now}
}

// Track appends an order after checkout.
func (w *Worklist) Track(ctx context.Context, entry registry.TrackedOrder) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = w.clock()
	}
	return w.store.Add(ctx, entry)
}

// Load fetches every tracked order and returns the list newest-first.
// Transient fetch failures skip the entry for this load instead of failing
// the whole list; the registry entry stays, so the next load retries.
func (w *Worklist) Load(ctx context.Context) ([]WorklistItem, error) {
	entries, err := w.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := w.clock()
	items := make([]WorklistItem, 0, len(entries))
	for _, entry := range entries {
		snap, err := w.fetch.FetchOrder(ctx, entry.OrderID)
		if err != nil {
			if errors.Is(err, orderapi.ErrNotFound) {
				items = append(items, WorklistItem{Entry: entry, NotFound: true})
				continue
			}
			if w.logger != nil {
				w.logger.Warn("tracked order fetch failed", zap.String("orderId", entry.OrderID), zap.Error(err))
			}
			continue
		}
		view := roleview.View(snap, roleview.RoleCustomer, now)
		items = append(items, WorklistItem{Entry: entry, View: &view})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Entry.CreatedAt.After(items[j].Entry.CreatedAt)
	})
	return items, nil
}

// Remove drops a tracked order on explicit user action. Only orders that
// have reached a terminal status, or no longer exist upstream, may leave
// the registry; everything else keeps tracking.
func (w *Worklist) Remove(ctx context.Context, orderID string) error {
	snap, err := w.fetch.FetchOrder(ctx, orderID)
	switch {
	case err == nil:
		if !snap.Status.Terminal() {
			return ErrNotTerminal
		}
	case errors.Is(err, orderapi.ErrNotFound):
		// Gone upstream: nothing left to track.
	default:
		return err
	}
	return w.store.Remove(ctx, orderID)
}
