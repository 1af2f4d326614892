// Package reconcile fetches authoritative order state and replaces the local
// copy wholesale. It is the only writer of local snapshots. Push events,
// fallback timers and manual refreshes all funnel into the same entry point,
// which coalesces concurrent requests for one scope into a single in-flight
// fetch and discards responses that lose the sequence race.
package reconcile

import (
	"context"

	"dinesync/internal/model"
)

// Fetcher is the upstream read capability. *orderapi.Client satisfies it.
type Fetcher interface {
	FetchOrder(ctx context.Context, orderID string) (*model.OrderSnapshot, error)
	ListOrders(ctx context.Context, restaurantID string, statuses []model.Status) ([]model.OrderSnapshot, error)
}

// Outcome classifies one reconciliation attempt.
type Outcome int

const (
	// OutcomeApplied means a fresh snapshot replaced the local copy.
	OutcomeApplied Outcome = iota
	// OutcomeStale means the response lost the sequence race and was
	// discarded. Not surfaced to users.
	OutcomeStale
	// OutcomeNotFound is terminal: the id does not resolve upstream and
	// callers must stop polling it.
	OutcomeNotFound
	// OutcomeTransient keeps the previous snapshot; callers retry later.
	OutcomeTransient
)

type Result struct {
	Outcome  Outcome
	Snapshot *model.OrderSnapshot
	Err      error
}
