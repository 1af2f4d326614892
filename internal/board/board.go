// Package board drives the staff-side surfaces: the order board, the kitchen
// display and the cashier summary. One board follows one restaurant's order
// list for one role, replacing the list per reconciliation and firing an
// audible cue when the needs-attention count grows between two consecutive
// observations.
package board

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"dinesync/internal/alert"
	"dinesync/internal/feed"
	"dinesync/internal/model"
	"dinesync/internal/reconcile"
	"dinesync/internal/roleview"
)

// Update is one observable board change.
type Update struct {
	Orders []roleview.OrderView
	// AlertFired reports that this observation crossed a needs-attention
	// increase; the cue itself already went to the notifier.
	AlertFired bool
	Err        error
}

type Options struct {
	PollInterval time.Duration
	Clock        func() time.Time
}

func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

type Board struct {
	rec      *reconcile.BoardReconciler
	sub      feed.Subscriber
	scope    feed.Scope
	role     roleview.Role
	notifier alert.Notifier
	detector alert.Detector
	onUpdate func(Update)
	logger   *zap.Logger
	opts     Options

	mu        sync.Mutex
	closed    bool
	feedSub   feed.Subscription
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New builds a board for one restaurant and role. Cashier boards watch the
// full status set (financial rollups include completed orders); waiter and
// chef boards watch the active subset.
func New(fetch reconcile.Fetcher, sub feed.Subscriber, restaurantID string, role roleview.Role, notifier alert.Notifier, onUpdate func(Update), logger *zap.Logger, opts Options) *Board {
	opts.withDefaults()
	if notifier == nil || role == roleview.RoleCashier || role == roleview.RoleCustomer {
		// Audio alerts are a waiter/chef concern only.
		notifier = alert.NopNotifier{}
	}
	statuses := model.ActiveStatuses
	if role == roleview.RoleCashier {
		statuses = nil
	}
	return &Board{
		rec:      reconcile.NewBoardReconciler(fetch, restaurantID, statuses),
		sub:      sub,
		scope:    feed.Scope{RestaurantID: restaurantID},
		role:     role,
		notifier: notifier,
		onUpdate: onUpdate,
		logger:   logger,
		opts:     opts,
	}
}

// Orders returns the current role views of the board list.
func (b *Board) Orders() []roleview.OrderView {
	orders, _ := b.rec.Orders()
	return roleview.ViewList(orders, b.role, b.opts.Clock())
}

// Run subscribes, loads the initial list and services feed events plus the
// fallback poll until ctx ends or Close is called.
func (b *Board) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return nil
	}
	b.cancel = cancel

	events := make(chan feed.Event, 16)
	sub, err := b.sub.Subscribe(runCtx, b.scope, func(e feed.Event) {
		select {
		case events <- e:
		default:
		}
	})
	if err != nil {
		b.mu.Unlock()
		cancel()
		return err
	}
	b.feedSub = sub
	b.mu.Unlock()

	b.reconcileOnce(runCtx)

	poll := time.NewTicker(b.opts.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-runCtx.Done():
			return nil
		case e := <-events:
			if !b.scope.Matches(e) {
				continue
			}
			b.reconcileOnce(runCtx)
		case <-poll.C:
			b.reconcileOnce(runCtx)
		}
	}
}

// Close releases the feed subscription and timers; late reconciliations
// become no-ops. Idempotent.
func (b *Board) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		sub := b.feedSub
		cancel := b.cancel
		b.mu.Unlock()

		if sub != nil {
			_ = sub.Close()
		}
		if cancel != nil {
			cancel()
		}
	})
	return nil
}

func (b *Board) reconcileOnce(ctx context.Context) {
	result := b.rec.Reconcile(ctx)
	switch result.Outcome {
	case reconcile.OutcomeApplied:
		fired := b.observeAttention(result.Orders)
		b.emit(Update{
			Orders:     roleview.ViewList(result.Orders, b.role, b.opts.Clock()),
			AlertFired: fired,
		})
	case reconcile.OutcomeTransient:
		if b.logger != nil {
			b.logger.Warn("board reconcile failed", zap.String("restaurantId", b.scope.RestaurantID), zap.Error(result.Err))
		}
		b.emit(Update{
			Orders: roleview.ViewList(result.Orders, b.role, b.opts.Clock()),
			Err:    result.Err,
		})
	case reconcile.OutcomeNotFound:
		b.emit(Update{Orders: []roleview.OrderView{}, Err: result.Err})
	case reconcile.OutcomeStale:
	}
}

// observeAttention runs the pure increase detection and, when it fires,
// hands the cue to the notifier without letting a sound failure anywhere
// near rendering.
func (b *Board) observeAttention(orders []model.OrderSnapshot) bool {
	b.mu.Lock()
	fired := b.detector.Observe(alert.CountNeedsAttention(orders))
	b.mu.Unlock()
	if fired {
		go b.notifier.Play(alert.KindNewOrder)
	}
	return fired
}

func (b *Board) emit(u Update) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed || b.onUpdate == nil {
		return
	}
	b.onUpdate(u)
}
