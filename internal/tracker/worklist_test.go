package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dinesync/internal/model"
	"dinesync/internal/orderapi"
	"dinesync/internal/registry"
	"dinesync/internal/registry/memkv"
)

// worklistFetcher serves canned snapshots or errors per order id.
type worklistFetcher struct {
	orders map[string]*model.OrderSnapshot
	errs   map[string]error
}

func (f *worklistFetcher) FetchOrder(_ context.Context, orderID string) (*model.OrderSnapshot, error) {
	if err, ok := f.errs[orderID]; ok {
		return nil, err
	}
	if snap, ok := f.orders[orderID]; ok {
		return snap, nil
	}
	return nil, orderapi.ErrNotFound
}

func (f *worklistFetcher) ListOrders(context.Context, string, []model.Status) ([]model.OrderSnapshot, error) {
	return nil, nil
}

func newWorklist(t *testing.T, f *worklistFetcher) *Worklist {
	t.Helper()
	store := registry.NewStore(memkv.New(), "device-1")
	return NewWorklist(store, f, zap.NewNop())
}

func TestWorklistLoadNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := &worklistFetcher{orders: map[string]*model.OrderSnapshot{
		"ord-old": {ID: "ord-old", RestaurantID: "rest-1", Status: model.StatusCompleted},
		"ord-new": {ID: "ord-new", RestaurantID: "rest-1", Status: model.StatusPending},
	}}
	w := newWorklist(t, f)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.Track(ctx, registry.TrackedOrder{OrderID: "ord-old", RestaurantID: "rest-1", CreatedAt: base}))
	require.NoError(t, w.Track(ctx, registry.TrackedOrder{OrderID: "ord-new", RestaurantID: "rest-1", CreatedAt: base.Add(time.Hour)}))

	items, err := w.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "ord-new", items[0].Entry.OrderID)
	require.Equal(t, "ord-old", items[1].Entry.OrderID)
	require.NotNil(t, items[0].View)
	require.Equal(t, model.StatusPending, items[0].View.Status)
}

func TestWorklistTrackStampsCreatedAt(t *testing.T) {
	ctx := context.Background()
	w := newWorklist(t, &worklistFetcher{orders: map[string]*model.OrderSnapshot{
		"ord-1": {ID: "ord-1", Status: model.StatusPending},
	}})

	require.NoError(t, w.Track(ctx, registry.TrackedOrder{OrderID: "ord-1", RestaurantID: "rest-1"}))

	items, err := w.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.False(t, items[0].Entry.CreatedAt.IsZero())
}

func TestWorklistLoadTombstonesMissingOrders(t *testing.T) {
	ctx := context.Background()
	w := newWorklist(t, &worklistFetcher{})

	require.NoError(t, w.Track(ctx, registry.TrackedOrder{OrderID: "ord-gone", RestaurantID: "rest-1"}))

	items, err := w.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.True(t, items[0].NotFound)
	require.Nil(t, items[0].View)
}

func TestWorklistLoadSkipsTransientFailures(t *testing.T) {
	ctx := context.Background()
	f := &worklistFetcher{
		orders: map[string]*model.OrderSnapshot{
			"ord-ok": {ID: "ord-ok", Status: model.StatusReady},
		},
		errs: map[string]error{
			"ord-flaky": &orderapi.TransientError{Err: context.DeadlineExceeded},
		},
	}
	w := newWorklist(t, f)

	require.NoError(t, w.Track(ctx, registry.TrackedOrder{OrderID: "ord-ok", RestaurantID: "rest-1"}))
	require.NoError(t, w.Track(ctx, registry.TrackedOrder{OrderID: "ord-flaky", RestaurantID: "rest-1"}))

	items, err := w.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "ord-ok", items[0].Entry.OrderID)

	// The skipped entry stays tracked: a later load with upstream healthy
	// surfaces it again.
	delete(f.errs, "ord-flaky")
	f.orders["ord-flaky"] = &model.OrderSnapshot{ID: "ord-flaky", Status: model.StatusPending}
	items, err = w.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestWorklistRemoveRules(t *testing.T) {
	ctx := context.Background()
	f := &worklistFetcher{
		orders: map[string]*model.OrderSnapshot{
			"ord-live": {ID: "ord-live", Status: model.StatusPreparing},
			"ord-done": {ID: "ord-done", Status: model.StatusCompleted},
		},
		errs: map[string]error{
			"ord-flaky": &orderapi.TransientError{Err: context.DeadlineExceeded},
		},
	}
	w := newWorklist(t, f)
	for _, id := range []string{"ord-live", "ord-done", "ord-gone", "ord-flaky"} {
		require.NoError(t, w.Track(ctx, registry.TrackedOrder{OrderID: id, RestaurantID: "rest-1"}))
	}

	require.ErrorIs(t, w.Remove(ctx, "ord-live"), ErrNotTerminal)
	require.NoError(t, w.Remove(ctx, "ord-done"))
	require.NoError(t, w.Remove(ctx, "ord-gone"))
	require.Error(t, w.Remove(ctx, "ord-flaky"))

	entries, err := registryEntries(ctx, w)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func registryEntries(ctx context.Context, w *Worklist) ([]registry.TrackedOrder, error) {
	return w.store.List(ctx)
}
