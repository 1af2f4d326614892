// Package alert detects "needs attention" transitions across consecutive
// board observations and forwards them to a pluggable notifier. Detection is
// pure so it can be tested without an audio backend; the notifier side is
// fire-and-forget and must never block rendering.
package alert

import "dinesync/internal/model"

// Kind names the audible cue to play.
type Kind string

const (
	KindNewOrder Kind = "order"
	KindRequest  Kind = "request"
)

// Notifier produces the actual cue (web audio bridge, terminal bell, push).
// Failures are logged by implementations and otherwise ignored.
type Notifier interface {
	Play(kind Kind)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(kind Kind)

func (f NotifierFunc) Play(kind Kind) { f(kind) }

// NopNotifier discards every cue. Used for customer surfaces, where audio
// alerts are a staff-side-only concern.
type NopNotifier struct{}

func (NopNotifier) Play(Kind) {}

// Detector fires on a strict increase of an observed count between two
// consecutive observations. The very first observation only seeds the
// baseline and never fires.
type Detector struct {
	seen bool
	last int
}

// Observe records a new count and reports whether a cue should fire.
func (d *Detector) Observe(count int) bool {
	fire := d.seen && count > d.last
	d.seen = true
	d.last = count
	return fire
}

// Reset drops the baseline, so the next observation is treated as a first
// load again. Called when a board's scope changes.
func (d *Detector) Reset() {
	d.seen = false
	d.last = 0
}

// NeedsAttention reports whether an order in the given status should count
// toward the staff-side cue. New orders waiting for the kitchen are the only
// attention-worthy state on the board.
func NeedsAttention(status model.Status) bool {
	return status == model.StatusPending
}

// CountNeedsAttention is the needs-attention subset size of one board list.
func CountNeedsAttention(orders []model.OrderSnapshot) int {
	n := 0
	for i := range orders {
		if NeedsAttention(orders[i].Status) {
			n++
		}
	}
	return n
}
