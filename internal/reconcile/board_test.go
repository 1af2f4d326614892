package reconcile

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"

	"dinesync/internal/model"
	"dinesync/internal/orderapi"
)

func boardOf(ids ...string) []model.OrderSnapshot {
	orders := make([]model.OrderSnapshot, 0, len(ids))
	for _, id := range ids {
		orders = append(orders, model.OrderSnapshot{ID: id, RestaurantID: "rest-1", Status: model.StatusPending})
	}
	return orders
}

func TestBoardReconcileReplacesWholeList(t *testing.T) {
	lists := [][]model.OrderSnapshot{
		boardOf("ord-1", "ord-2"),
		boardOf("ord-3"),
	}
	var call int32
	f := &fakeFetcher{list: func(context.Context, string, []model.Status) ([]model.OrderSnapshot, error) {
		return lists[atomic.AddInt32(&call, 1)-1], nil
	}}
	r := NewBoardReconciler(f, "rest-1", model.ActiveStatuses)

	if _, loaded := r.Orders(); loaded {
		t.Fatal("board must not report loaded before the first fetch")
	}

	if res := r.Reconcile(context.Background()); res.Outcome != OutcomeApplied {
		t.Fatalf("first reconcile: %v", res.Outcome)
	}
	orders, loaded := r.Orders()
	if !loaded || len(orders) != 2 {
		t.Fatalf("expected first list applied, got loaded=%v orders=%+v", loaded, orders)
	}

	if res := r.Reconcile(context.Background()); res.Outcome != OutcomeApplied {
		t.Fatalf("second reconcile: %v", res.Outcome)
	}
	orders, _ = r.Orders()
	if len(orders) != 1 || orders[0].ID != "ord-3" {
		t.Fatalf("second fetch must replace the list wholesale, got %+v", orders)
	}
}

func TestBoardStaleListDiscarded(t *testing.T) {
	r := NewBoardReconciler(nil, "rest-1", nil)

	seqOld := r.begin()
	seqNew := r.begin()

	if res := r.complete(seqNew, boardOf("ord-2"), nil); res.Outcome != OutcomeApplied {
		t.Fatalf("newer list must apply, got %v", res.Outcome)
	}
	if res := r.complete(seqOld, boardOf("ord-1"), nil); res.Outcome != OutcomeStale {
		t.Fatalf("older list must be discarded, got %v", res.Outcome)
	}
	orders, _ := r.Orders()
	if len(orders) != 1 || orders[0].ID != "ord-2" {
		t.Fatalf("stale list overwrote the board: %+v", orders)
	}
}

func TestBoardTransientRetainsList(t *testing.T) {
	callErr := error(nil)
	f := &fakeFetcher{list: func(context.Context, string, []model.Status) ([]model.OrderSnapshot, error) {
		if callErr != nil {
			return nil, callErr
		}
		return boardOf("ord-1"), nil
	}}
	r := NewBoardReconciler(f, "rest-1", model.ActiveStatuses)

	if res := r.Reconcile(context.Background()); res.Outcome != OutcomeApplied {
		t.Fatalf("seed reconcile failed: %v", res.Outcome)
	}

	callErr = errors.New("upstream 502")
	res := r.Reconcile(context.Background())
	if res.Outcome != OutcomeTransient {
		t.Fatalf("expected Transient, got %v", res.Outcome)
	}
	if len(res.Orders) != 1 {
		t.Fatalf("transient result must carry the retained list, got %+v", res.Orders)
	}
}

func TestBoardNotFoundClearsList(t *testing.T) {
	callErr := error(nil)
	f := &fakeFetcher{list: func(context.Context, string, []model.Status) ([]model.OrderSnapshot, error) {
		if callErr != nil {
			return nil, callErr
		}
		return boardOf("ord-1"), nil
	}}
	r := NewBoardReconciler(f, "rest-1", model.ActiveStatuses)
	r.Reconcile(context.Background())

	callErr = orderapi.ErrNotFound
	res := r.Reconcile(context.Background())
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected NotFound, got %v", res.Outcome)
	}
	orders, loaded := r.Orders()
	if !loaded || len(orders) != 0 {
		t.Fatalf("vanished restaurant must read as an empty board, got loaded=%v orders=%+v", loaded, orders)
	}
}
