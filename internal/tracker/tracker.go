// Package tracker drives the customer-facing order surfaces: a live view of
// one order (tracking page) and the worklist of all orders the device is
// tracking. A tracker pairs a change-feed subscription (best-effort) with a
// fallback poll (the safety net), and recomputes the wait estimate on its
// own cadence so the countdown keeps moving between network refreshes.
package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"dinesync/internal/feed"
	"dinesync/internal/model"
	"dinesync/internal/reconcile"
	"dinesync/internal/roleview"
)

// Update is one observable change pushed to the surface.
type Update struct {
	View     *roleview.OrderView
	NotFound bool
	// Err is set on a transient failure; the View then still carries the
	// retained snapshot so nothing already rendered is cleared.
	Err error
}

type Options struct {
	PollInterval time.Duration
	ETAInterval  time.Duration
	Clock        func() time.Time
}

func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.ETAInterval <= 0 {
		o.ETAInterval = 30 * time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// Tracker follows one order for one customer surface.
type Tracker struct {
	rec      *reconcile.OrderReconciler
	sub      feed.Subscriber
	scope    feed.Scope
	onUpdate func(Update)
	logger   *zap.Logger
	opts     Options

	mu        sync.Mutex
	closed    bool
	feedSub   feed.Subscription
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func New(fetch reconcile.Fetcher, sub feed.Subscriber, orderID, restaurantID string, onUpdate func(Update), logger *zap.Logger, opts Options) *Tracker {
	opts.withDefaults()
	return &Tracker{
		rec:      reconcile.NewOrderReconciler(fetch, orderID),
		sub:      sub,
		scope:    feed.Scope{RestaurantID: restaurantID, OrderID: orderID},
		onUpdate: onUpdate,
		logger:   logger,
		opts:     opts,
	}
}

// Snapshot returns the last applied snapshot, nil before the first load.
func (t *Tracker) Snapshot() *model.OrderSnapshot {
	return t.rec.Snapshot()
}

// Run subscribes to the change feed, performs the initial reconciliation and
// then services feed events and both timers until ctx ends or Close is
// called.
func (t *Tracker) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		cancel()
		return nil
	}
	t.cancel = cancel

	events := make(chan feed.Event, 16)
	sub, err := t.sub.Subscribe(runCtx, t.scope, func(e feed.Event) {
		select {
		case events <- e:
		default:
			// A full buffer means a reconciliation is already overdue;
			// dropping the extra signal loses nothing.
		}
	})
	if err != nil {
		t.mu.Unlock()
		cancel()
		return err
	}
	t.feedSub = sub
	t.mu.Unlock()

	t.reconcileOnce(runCtx)

	poll := time.NewTicker(t.opts.PollInterval)
	defer poll.Stop()
	eta := time.NewTicker(t.opts.ETAInterval)
	defer eta.Stop()

	for {
		select {
		case <-runCtx.Done():
			return nil
		case e := <-events:
			t.handleEvent(runCtx, e)
		case <-poll.C:
			t.pollTick(runCtx)
		case <-eta.C:
			t.etaTick()
		}
	}
}

// Close tears the tracker down: the feed subscription is released, timers
// stop, and any in-flight fetch that resolves afterwards becomes a no-op.
// Idempotent.
func (t *Tracker) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		sub := t.feedSub
		cancel := t.cancel
		t.mu.Unlock()

		if sub != nil {
			_ = sub.Close()
		}
		if cancel != nil {
			cancel()
		}
	})
	return nil
}

func (t *Tracker) handleEvent(ctx context.Context, e feed.Event) {
	// The subscription already filtered, but the transport's filtering can
	// be coarser than the scope; re-validate before spending a fetch.
	if !t.scope.Matches(e) {
		return
	}
	t.reconcileOnce(ctx)
}

func (t *Tracker) pollTick(ctx context.Context) {
	if t.rec.NotFound() {
		return
	}
	t.reconcileOnce(ctx)
}

// etaTick re-renders the current snapshot at the current instant so the
// countdown moves without a network refresh. Stops mattering once terminal.
func (t *Tracker) etaTick() {
	snap := t.rec.Snapshot()
	if snap == nil || snap.Status.Terminal() {
		return
	}
	t.emitView(snap, nil)
}

func (t *Tracker) reconcileOnce(ctx context.Context) {
	result := t.rec.Reconcile(ctx)
	switch result.Outcome {
	case reconcile.OutcomeApplied:
		t.emitView(result.Snapshot, nil)
	case reconcile.OutcomeNotFound:
		t.emit(Update{NotFound: true})
	case reconcile.OutcomeTransient:
		if t.logger != nil {
			t.logger.Warn("order reconcile failed", zap.String("orderId", t.scope.OrderID), zap.Error(result.Err))
		}
		t.emitView(result.Snapshot, result.Err)
	case reconcile.OutcomeStale:
		// Discarded silently per the sequencing rule.
	}
}

func (t *Tracker) emitView(snap *model.OrderSnapshot, err error) {
	if snap == nil {
		if err != nil {
			t.emit(Update{Err: err})
		}
		return
	}
	view := roleview.View(snap, roleview.RoleCustomer, t.opts.Clock())
	t.emit(Update{View: &view, Err: err})
}

// emit delivers one update unless the tracker has been torn down. The closed
// check is the liveness guard: late fetches must not touch released surfaces.
func (t *Tracker) emit(u Update) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed || t.onUpdate == nil {
		return
	}
	t.onUpdate(u)
}
