package reconcile

import (
	"context"
	"errors"
	"sync"

	"dinesync/internal/model"
	"dinesync/internal/orderapi"
)

type call struct {
	done   chan struct{}
	result Result
}

// OrderReconciler keeps the local copy of one order in sync with upstream.
// Safe for concurrent use.
type OrderReconciler struct {
	fetch   Fetcher
	orderID string

	mu         sync.Mutex
	snapshot   *model.OrderSnapshot
	notFound   bool
	seqIssued  uint64
	seqApplied uint64
	inflight   *call
}

func NewOrderReconciler(fetch Fetcher, orderID string) *OrderReconciler {
	return &OrderReconciler{fetch: fetch, orderID: orderID}
}

// Snapshot returns the last applied snapshot, or nil before the first
// successful reconciliation.
func (r *OrderReconciler) Snapshot() *model.OrderSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// NotFound reports whether the order id failed to resolve upstream; once set
// it never clears and callers stop polling.
func (r *OrderReconciler) NotFound() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notFound
}

// Reconcile re-fetches the order and replaces the local snapshot. Concurrent
// calls (a push event and a timer firing close together) share one in-flight
// fetch and one result.
func (r *OrderReconciler) Reconcile(ctx context.Context) Result {
	r.mu.Lock()
	if r.notFound {
		r.mu.Unlock()
		return Result{Outcome: OutcomeNotFound, Err: orderapi.ErrNotFound}
	}
	if c := r.inflight; c != nil {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.result
		case <-ctx.Done():
			return Result{Outcome: OutcomeTransient, Snapshot: r.Snapshot(), Err: ctx.Err()}
		}
	}

	c := &call{done: make(chan struct{})}
	r.inflight = c
	seq := r.begin()
	r.mu.Unlock()

	snap, err := r.fetch.FetchOrder(ctx, r.orderID)
	result := r.complete(seq, snap, err)

	r.mu.Lock()
	if r.inflight == c {
		r.inflight = nil
	}
	r.mu.Unlock()

	c.result = result
	close(c.done)
	return result
}

// begin issues the next fetch sequence number. Callers hold r.mu.
func (r *OrderReconciler) begin() uint64 {
	r.seqIssued++
	return r.seqIssued
}

// complete applies one fetch outcome under the sequencing rule: a response
// whose sequence is not newer than the last applied one is discarded, so the
// most recently issued fetch always wins regardless of arrival order.
func (r *OrderReconciler) complete(seq uint64, snap *model.OrderSnapshot, err error) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq <= r.seqApplied {
		return Result{Outcome: OutcomeStale, Snapshot: r.snapshot}
	}

	switch {
	case err == nil:
		r.seqApplied = seq
		r.snapshot = snap
		return Result{Outcome: OutcomeApplied, Snapshot: snap}
	case errors.Is(err, orderapi.ErrNotFound):
		r.seqApplied = seq
		r.notFound = true
		return Result{Outcome: OutcomeNotFound, Snapshot: r.snapshot, Err: err}
	default:
		// Transient failures do not consume the sequence slot: keep the
		// previous snapshot and leave the door open for a slower success.
		return Result{Outcome: OutcomeTransient, Snapshot: r.snapshot, Err: err}
	}
}
