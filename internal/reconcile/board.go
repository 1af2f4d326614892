package reconcile

import (
	"context"
	"errors"
	"sync"

	"dinesync/internal/model"
	"dinesync/internal/orderapi"
)

// ListResult is the board-scoped counterpart of Result.
type ListResult struct {
	Outcome Outcome
	Orders  []model.OrderSnapshot
	Err     error
}

type listCall struct {
	done   chan struct{}
	result ListResult
}

// BoardReconciler keeps one restaurant's order list, restricted to a status
// subset, in sync with upstream. Every fetch replaces the whole list.
type BoardReconciler struct {
	fetch        Fetcher
	restaurantID string
	statuses     []model.Status

	mu         sync.Mutex
	orders     []model.OrderSnapshot
	loaded     bool
	seqIssued  uint64
	seqApplied uint64
	inflight   *listCall
}

func NewBoardReconciler(fetch Fetcher, restaurantID string, statuses []model.Status) *BoardReconciler {
	return &BoardReconciler{fetch: fetch, restaurantID: restaurantID, statuses: statuses}
}

// Orders returns the last applied list and whether any list has been applied
// yet. The first load is distinguished so alert detection can skip it.
func (r *BoardReconciler) Orders() ([]model.OrderSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders, r.loaded
}

// Reconcile re-fetches the restaurant's order list. Concurrent calls share
// one in-flight fetch; responses that lose the sequence race are discarded.
func (r *BoardReconciler) Reconcile(ctx context.Context) ListResult {
	r.mu.Lock()
	if c := r.inflight; c != nil {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.result
		case <-ctx.Done():
			orders, _ := r.Orders()
			return ListResult{Outcome: OutcomeTransient, Orders: orders, Err: ctx.Err()}
		}
	}

	c := &listCall{done: make(chan struct{})}
	r.inflight = c
	seq := r.begin()
	r.mu.Unlock()

	orders, err := r.fetch.ListOrders(ctx, r.restaurantID, r.statuses)
	result := r.complete(seq, orders, err)

	r.mu.Lock()
	if r.inflight == c {
		r.inflight = nil
	}
	r.mu.Unlock()

	c.result = result
	close(c.done)
	return result
}

func (r *BoardReconciler) begin() uint64 {
	r.seqIssued++
	return r.seqIssued
}

func (r *BoardReconciler) complete(seq uint64, orders []model.OrderSnapshot, err error) ListResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq <= r.seqApplied {
		return ListResult{Outcome: OutcomeStale, Orders: r.orders}
	}

	switch {
	case err == nil:
		r.seqApplied = seq
		r.orders = orders
		r.loaded = true
		return ListResult{Outcome: OutcomeApplied, Orders: orders}
	case errors.Is(err, orderapi.ErrNotFound):
		// A vanished restaurant behaves like an empty board; the scope
		// itself is validated elsewhere.
		r.seqApplied = seq
		r.orders = nil
		r.loaded = true
		return ListResult{Outcome: OutcomeNotFound, Err: err}
	default:
		return ListResult{Outcome: OutcomeTransient, Orders: r.orders, Err: err}
	}
}
